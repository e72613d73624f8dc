package constants

// Outbound email subjects, by escalation tier. The reservation code is
// interpolated so reply threads stay matchable.
const (
	SubjectInitial     = "Solicitud de Orden de Compra - Reserva %s"
	SubjectReminder    = "Recordatorio - OC Pendiente - Reserva %s"
	SubjectFinalNotice = "🚨 URGENTE - Ultimátum OC - Reserva %s"
)

// NoEmailPlaceholder is recorded as the recipient when an agency has no
// contact email configured. The record lands in error state without a
// network attempt.
const NoEmailPlaceholder = "SIN EMAIL"

// ExpiryDays is the age in days past the final notice after which a
// reservation with no purchase order is closed as expired.
const ExpiryDays = 5
