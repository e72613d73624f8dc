package logger

import (
	"log"

	"gorm.io/gorm"

	"po-tracking/models/syslog"
	"po-tracking/types"
)

// AsyncLogger persists system events to the database without blocking
// the caller. Entries go through a buffered channel drained by a single
// goroutine started from main.
type AsyncLogger struct {
	db      *gorm.DB
	channel chan types.LogEntry
}

func NewAsyncLogger(db *gorm.DB) *AsyncLogger {
	return &AsyncLogger{
		db:      db,
		channel: make(chan types.LogEntry, 100),
	}
}

func (l *AsyncLogger) ProcessLog() {
	log.Println("Starting asynchronous logger...")

	for entry := range l.channel {
		dbEntry := syslog.Entry{
			Level:         entry.Level,
			Module:        entry.Module,
			Message:       entry.Message,
			Details:       entry.Details,
			ReservationID: entry.ReservationID,
		}

		if err := l.db.Create(&dbEntry).Error; err != nil {
			log.Printf("Failed to insert system log entry: %v", err)
		}
	}
}

// Log pushes a log entry into the channel.
func (l *AsyncLogger) Log(entry types.LogEntry) {
	l.channel <- entry
}

// Event is a convenience wrapper for the common case.
func (l *AsyncLogger) Event(level, module, message string, reservationID *uint) {
	l.Log(types.LogEntry{
		Level:         level,
		Module:        module,
		Message:       message,
		ReservationID: reservationID,
	})
}
