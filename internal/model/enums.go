package model

// Channel is one of the two independent realtime namespaces.
type Channel string

const (
	ChannelNotifications Channel = "notifications"
	ChannelChat          Channel = "chat"
)

func (c Channel) Valid() bool {
	return c == ChannelNotifications || c == ChannelChat
}

// Channels lists every channel in a stable order.
var Channels = []Channel{ChannelNotifications, ChannelChat}
