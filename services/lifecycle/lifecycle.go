package lifecycle

import (
	"time"

	"po-tracking/constants"
	"po-tracking/models/notification"
	"po-tracking/models/reservation"
)

// Decision is the outcome of evaluating one pending reservation. At
// most one notice fires per evaluation; lower tiers that were never
// dispatched are listed in Skip so the caller can close them out in
// the audit trail.
type Decision struct {
	Send   *notification.NoticeKind
	Skip   []notification.NoticeKind
	Expire bool
}

// Evaluate determines what the follow-up flow owes a reservation right
// now. recorded holds the notice tiers that already have a recorded
// attempt of any outcome; a tier is never scheduled twice.
//
// The escalation collapses rather than queues: when the system was down
// long enough for several tiers to come due, only the highest one is
// sent and the ones below it are skipped. Expiry only applies once no
// notice is left to send.
func Evaluate(res *reservation.Reservation, reminderDays, finalDays int, recorded map[notification.NoticeKind]bool, now time.Time) Decision {
	var decision Decision

	if !res.RequiresPO || res.POStatus != reservation.POStatusPending {
		return decision
	}

	elapsed := res.ElapsedDays(now)

	due := []notification.NoticeKind{notification.KindInitial}
	if elapsed >= reminderDays {
		due = append(due, notification.KindReminder)
	}
	if elapsed >= finalDays {
		due = append(due, notification.KindFinalNotice)
	}

	// Walk from the highest due tier down; the first unrecorded one
	// fires and everything below it without a record is skipped.
	for i := len(due) - 1; i >= 0; i-- {
		if recorded[due[i]] {
			break
		}
		if decision.Send == nil {
			kind := due[i]
			decision.Send = &kind
			continue
		}
		decision.Skip = append(decision.Skip, due[i])
	}

	if decision.Send == nil && elapsed > constants.ExpiryDays {
		decision.Expire = true
	}

	return decision
}
