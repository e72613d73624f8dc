package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"po-tracking/models/notification"
	"po-tracking/models/reservation"
)

func pendingReservation(now time.Time, daysAgo int) *reservation.Reservation {
	origin := now.AddDate(0, 0, -daysAgo)
	return &reservation.Reservation{
		POStatus:        reservation.POStatusPending,
		RequiresPO:      true,
		OriginTimestamp: &origin,
	}
}

func recorded(kinds ...notification.NoticeKind) map[notification.NoticeKind]bool {
	m := make(map[notification.NoticeKind]bool)
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

func TestEvaluateEscalation(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name     string
		daysAgo  int
		recorded map[notification.NoticeKind]bool
		wantSend *notification.NoticeKind
		wantSkip []notification.NoticeKind
	}{
		{
			name:     "new reservation gets the initial request",
			daysAgo:  0,
			recorded: recorded(),
			wantSend: kindPtr(notification.KindInitial),
		},
		{
			name:     "reminder fires after the threshold",
			daysAgo:  2,
			recorded: recorded(notification.KindInitial),
			wantSend: kindPtr(notification.KindReminder),
		},
		{
			name:     "final notice fires after its threshold",
			daysAgo:  4,
			recorded: recorded(notification.KindInitial, notification.KindReminder),
			wantSend: kindPtr(notification.KindFinalNotice),
		},
		{
			name:     "nothing due again once the tier is closed",
			daysAgo:  2,
			recorded: recorded(notification.KindInitial, notification.KindReminder),
		},
		{
			name:     "downtime collapses to the highest tier",
			daysAgo:  4,
			recorded: recorded(),
			wantSend: kindPtr(notification.KindFinalNotice),
			wantSkip: []notification.NoticeKind{notification.KindReminder, notification.KindInitial},
		},
		{
			name:     "partial downtime skips only the missing middle",
			daysAgo:  4,
			recorded: recorded(notification.KindInitial),
			wantSend: kindPtr(notification.KindFinalNotice),
			wantSkip: []notification.NoticeKind{notification.KindReminder},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pendingReservation(now, tt.daysAgo)
			decision := Evaluate(res, 2, 4, tt.recorded, now)

			if tt.wantSend == nil {
				assert.Nil(t, decision.Send)
			} else {
				require.NotNil(t, decision.Send)
				assert.Equal(t, *tt.wantSend, *decision.Send)
			}
			assert.Equal(t, tt.wantSkip, decision.Skip)
			assert.False(t, decision.Expire)
		})
	}
}

func TestEvaluateExpiry(t *testing.T) {
	now := time.Now().UTC()

	// All tiers closed and past the expiry window.
	res := pendingReservation(now, 6)
	decision := Evaluate(res, 2, 4, recorded(
		notification.KindInitial, notification.KindReminder, notification.KindFinalNotice), now)
	assert.Nil(t, decision.Send)
	assert.True(t, decision.Expire)

	// An unsent final notice takes precedence over expiry.
	decision = Evaluate(pendingReservation(now, 6), 2, 4, recorded(), now)
	require.NotNil(t, decision.Send)
	assert.Equal(t, notification.KindFinalNotice, *decision.Send)
	assert.False(t, decision.Expire)

	// Inside the window nothing expires even with all tiers closed.
	decision = Evaluate(pendingReservation(now, 5), 2, 4, recorded(
		notification.KindInitial, notification.KindReminder, notification.KindFinalNotice), now)
	assert.False(t, decision.Expire)
}

func TestEvaluateTerminalStates(t *testing.T) {
	now := time.Now().UTC()

	for _, status := range []reservation.POStatus{
		reservation.POStatusReceived,
		reservation.POStatusExpired,
		reservation.POStatusCancelled,
		reservation.POStatusNotRequired,
	} {
		res := pendingReservation(now, 10)
		res.POStatus = status
		decision := Evaluate(res, 2, 4, recorded(), now)
		assert.Nil(t, decision.Send, string(status))
		assert.Empty(t, decision.Skip, string(status))
		assert.False(t, decision.Expire, string(status))
	}

	// Reservations flagged as not requiring a PO are left alone even
	// while nominally pending.
	res := pendingReservation(now, 10)
	res.RequiresPO = false
	decision := Evaluate(res, 2, 4, recorded(), now)
	assert.Nil(t, decision.Send)
	assert.False(t, decision.Expire)
}

func TestEvaluateUsesOriginTimestamp(t *testing.T) {
	now := time.Now().UTC()

	// CreatedAt is recent but the email arrived days ago; the email
	// date drives the escalation.
	origin := now.AddDate(0, 0, -4)
	res := &reservation.Reservation{
		POStatus:        reservation.POStatusPending,
		RequiresPO:      true,
		OriginTimestamp: &origin,
		CreatedAt:       now,
	}

	decision := Evaluate(res, 2, 4, recorded(), now)
	require.NotNil(t, decision.Send)
	assert.Equal(t, notification.KindFinalNotice, *decision.Send)
}

func kindPtr(k notification.NoticeKind) *notification.NoticeKind {
	return &k
}
