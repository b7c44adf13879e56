package scheduling

import (
	"context"
	"time"

	"clinic-booking-server/internal/models"
)

// DisplayStatus is the status shown to users. It merges the stored status
// with wall-clock time and any outstanding reschedule request, is derived on
// every read, and is never persisted.
type DisplayStatus string

const (
	DisplayPending      DisplayStatus = "pending"
	DisplayScheduled    DisplayStatus = "scheduled"
	DisplayRescheduled  DisplayStatus = "rescheduled"
	DisplayCompleted    DisplayStatus = "completed"
	DisplayNoShow       DisplayStatus = "no_show"
	DisplayCancelled    DisplayStatus = "cancelled"
	DisplayOverdue      DisplayStatus = "overdue"
	DisplayRescheduling DisplayStatus = "rescheduling"
)

// ProjectDisplayStatus computes the user-facing status. pendingRequest is
// the appointment's pending reschedule request, or nil. The function is pure
// so any client can re-derive the same value from the same snapshot.
//
// Precedence: an open negotiation wins over everything; settled statuses are
// shown verbatim; a booking that was never resolved before its own start
// time shows as overdue.
func ProjectDisplayStatus(appt *models.Appointment, now time.Time, pendingRequest *models.RescheduleRequest) DisplayStatus {
	if pendingRequest != nil && pendingRequest.Status == models.ReschedulePending {
		return DisplayRescheduling
	}

	switch appt.Status {
	case models.StatusCompleted:
		return DisplayCompleted
	case models.StatusNoShow:
		return DisplayNoShow
	case models.StatusCancelled:
		return DisplayCancelled
	case models.StatusRescheduled:
		return DisplayRescheduled
	}

	if now.After(appt.StartsAt) {
		return DisplayOverdue
	}
	if appt.Status == models.StatusScheduled {
		return DisplayScheduled
	}
	return DisplayPending
}

// DisplayStatusFor looks up the appointment's pending reschedule request and
// projects the user-facing status with the service clock.
func (s *Service) DisplayStatusFor(ctx context.Context, appt *models.Appointment) (DisplayStatus, error) {
	pending, err := s.store.PendingRescheduleRequest(ctx, appt.ID)
	if err != nil {
		return "", err
	}
	return ProjectDisplayStatus(appt, s.clock.Now(), pending), nil
}
