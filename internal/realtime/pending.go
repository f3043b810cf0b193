package realtime

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/odinbook/chat-server/internal/model"
)

type pendingEntry struct {
	summary    model.MessageSummary
	recordedAt time.Time
}

// PendingBuffer holds, per recipient, summaries of messages they have not
// dismissed or read. It is a cache over persisted readBy state and is lost
// on restart.
type PendingBuffer struct {
	mu      sync.Mutex
	entries map[string][]pendingEntry
	now     func() time.Time
}

func NewPendingBuffer() *PendingBuffer {
	return &PendingBuffer{
		entries: make(map[string][]pendingEntry),
		now:     time.Now,
	}
}

// Record appends summary to the recipient's backlog unless it is already there.
func (b *PendingBuffer) Record(recipientID string, summary model.MessageSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.entries[recipientID]
	if lo.ContainsBy(list, func(e pendingEntry) bool { return e.summary.ID == summary.ID }) {
		return
	}
	b.entries[recipientID] = append(list, pendingEntry{summary: summary, recordedAt: b.now()})
}

// Drain returns a copy of the recipient's backlog in arrival order. The
// backlog is not cleared.
func (b *PendingBuffer) Drain(recipientID string) []model.MessageSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	return lo.Map(b.entries[recipientID], func(e pendingEntry, _ int) model.MessageSummary {
		return e.summary
	})
}

// Dismiss removes one entry by message id.
func (b *PendingBuffer) Dismiss(recipientID, messageID string) bool {
	return b.Invalidate(recipientID, messageID) > 0
}

// Invalidate removes the given message ids from the recipient's backlog and
// returns how many entries were removed.
func (b *PendingBuffer) Invalidate(recipientID string, messageIDs ...string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, ok := b.entries[recipientID]
	if !ok {
		return 0
	}
	kept := lo.Reject(list, func(e pendingEntry, _ int) bool {
		return lo.Contains(messageIDs, e.summary.ID)
	})
	removed := len(list) - len(kept)
	b.store(recipientID, kept)
	return removed
}

// Prune drops entries recorded more than ttl ago.
func (b *PendingBuffer) Prune(ttl time.Duration) int {
	cutoff := b.now().Add(-ttl)

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for recipientID, list := range b.entries {
		kept := lo.Filter(list, func(e pendingEntry, _ int) bool {
			return e.recordedAt.After(cutoff)
		})
		removed += len(list) - len(kept)
		b.store(recipientID, kept)
	}
	return removed
}

func (b *PendingBuffer) Len(recipientID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries[recipientID])
}

func (b *PendingBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, list := range b.entries {
		total += len(list)
	}
	return total
}

func (b *PendingBuffer) store(recipientID string, list []pendingEntry) {
	if len(list) == 0 {
		delete(b.entries, recipientID)
		return
	}
	b.entries[recipientID] = list
}
