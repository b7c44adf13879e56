package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notification kinds emitted by the scheduling core.
const (
	KindAppointmentRequested = "appointment_requested"
	KindAppointmentConfirmed = "appointment_confirmed"
	KindAppointmentRejected  = "appointment_rejected"
	KindAppointmentCancelled = "appointment_cancelled"
	KindRescheduleProposed   = "reschedule_proposed"
	KindRescheduleAccepted   = "reschedule_accepted"
	KindRescheduleRejected   = "reschedule_rejected"
)

// Notifier delivers user-facing notifications about lifecycle transitions.
// Delivery is best-effort: implementations must not return errors to the
// caller and must never block a status transition.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload map[string]interface{})
}

// LogNotifier writes notifications to the structured log. It stands in for a
// real push/email gateway; swapping it out only touches main.go.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, kind string, payload map[string]interface{}) {
	n.log.Info().
		Str("user_id", userID).
		Str("kind", kind).
		Fields(payload).
		Msg("notification dispatched")
}
