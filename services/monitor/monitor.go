package monitor

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"po-tracking/logger"
	"po-tracking/services/mailbox"
)

// reconnectBackoff is how long a poller waits after a connection-level
// failure before the next attempt.
const reconnectBackoff = 60 * time.Second

// Processor turns one fetched message into domain state. The returned
// handled flag tells the monitor to mark the message read; errors and
// handled=false both leave it unread for the next cycle or for manual
// follow-up.
type Processor interface {
	Name() string
	Process(db *gorm.DB, msg *mailbox.Message) (handled bool, err error)
}

// Monitor drives one mailbox: list unread, fetch, hand to the
// processor, mark read on success. One monitor per account; the
// confirmation and PO inboxes each get their own instance with their
// own processor.
type Monitor struct {
	client    *mailbox.Client
	db        *gorm.DB
	processor Processor
	interval  time.Duration

	// Message ids already handled in the current session, so a
	// reconnect mid-cycle cannot double-process.
	processed map[uint32]struct{}
}

func New(client *mailbox.Client, db *gorm.DB, processor Processor, interval time.Duration) *Monitor {
	return &Monitor{
		client:    client,
		db:        db,
		processor: processor,
		interval:  interval,
		processed: make(map[uint32]struct{}),
	}
}

// Run polls until the context is cancelled. Cancellation is only
// observed at sleep points; an in-flight cycle finishes its current
// message first.
func (m *Monitor) Run(ctx context.Context) {
	logger.Infof("🔄 Starting %s monitor...", m.processor.Name())

	if err := m.client.Connect(); err != nil {
		logger.Errorf("%s: initial connect failed, will retry: %v", m.processor.Name(), err)
		if !sleep(ctx, reconnectBackoff) {
			return
		}
	}
	defer m.client.Disconnect()

	for {
		if _, err := m.Cycle(); err != nil {
			logger.Errorf("%s: cycle aborted: %v", m.processor.Name(), err)
			// Force a fresh connection on the next cycle.
			m.client.Disconnect()
			if !sleep(ctx, reconnectBackoff) {
				return
			}
			continue
		}

		if !sleep(ctx, m.interval) {
			return
		}
	}
}

// Cycle processes every unread message once. Per-message failures log
// and skip; only a connection-level failure aborts the cycle.
func (m *Monitor) Cycle() (int, error) {
	ids, err := m.client.SearchUnseen()
	if err != nil {
		return 0, fmt.Errorf("listing unread messages: %w", err)
	}

	logger.Infof("%s: %d unread messages", m.processor.Name(), len(ids))

	count := 0
	for _, id := range ids {
		if _, seen := m.processed[id]; seen {
			continue
		}

		msg, err := m.client.FetchMessage(id)
		if err != nil {
			logger.Errorf("%s: fetch of message %d failed, skipping: %v", m.processor.Name(), id, err)
			continue
		}

		handled, err := m.processor.Process(m.db, msg)
		if err != nil {
			logger.Errorf("%s: processing message %d failed: %v", m.processor.Name(), id, err)
			continue
		}
		if !handled {
			continue
		}

		// Read-marking happens only after successful processing so a
		// crash in between leaves the message available for the next
		// cycle.
		if err := m.client.MarkRead(id); err != nil {
			logger.Error("Failed to mark message read", err)
		}
		m.processed[id] = struct{}{}
		count++
	}

	if count > 0 {
		logger.Successf("%s: processed %d messages", m.processor.Name(), count)
	}

	return count, nil
}

// sleep waits for d or until ctx is done; returns false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
