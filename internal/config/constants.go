package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const PresenceSweepInterval = time.Minute

// Realtime connection settings
const (
	ConnSendBuffer    = 64
	ConnWriteTimeout  = 10 * time.Second
	ConnMaxReadBytes  = 8 << 10
	PushTimeout       = 5 * time.Second
	RealtimeOpTimeout = 10 * time.Second
)

// Direct message text bounds, counted in runes after trimming.
const (
	MessageMinLength = 1
	MessageMaxLength = 64
)

// Upper bound on rows returned by the unread query.
const UnreadQueryLimit = 200

// Realtime handshakes allowed per client address per minute.
const HandshakeRateLimitPerMin = 60
