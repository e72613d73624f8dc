package reservation

// POStatus is the purchase-order tracking state of a reservation.
type POStatus string

const (
	POStatusNotRequired POStatus = "not_required"
	POStatusPending     POStatus = "pending"
	POStatusReceived    POStatus = "received"
	POStatusCancelled   POStatus = "cancelled"
	POStatusExpired     POStatus = "expired"
)

func (s POStatus) String() string {
	return string(s)
}

func (s POStatus) IsValid() bool {
	switch s {
	case POStatusNotRequired, POStatusPending, POStatusReceived, POStatusCancelled, POStatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether automated jobs may still move the status.
// Only administrative action touches a terminal reservation.
func (s POStatus) IsTerminal() bool {
	return s != POStatusPending
}

// GetAllPOStatuses returns all valid PO statuses
func GetAllPOStatuses() []POStatus {
	return []POStatus{
		POStatusNotRequired,
		POStatusPending,
		POStatusReceived,
		POStatusCancelled,
		POStatusExpired,
	}
}
