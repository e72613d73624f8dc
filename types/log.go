package types

// LogEntry is the payload the async logger accepts before it is
// persisted as a syslog.Entry row.
type LogEntry struct {
	Level         string
	Module        string
	Message       string
	Details       *string
	ReservationID *uint
}
