package scheduling

import (
	"context"
	"time"

	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/notify"
)

// ProposeReschedule opens a reschedule negotiation for an appointment. It
// snapshots the current window and records the proposed one; the appointment
// itself is not touched until the request is accepted.
func (s *Service) ProposeReschedule(ctx context.Context, appointmentID, requestedBy string, newStartsAt time.Time) (*models.RescheduleRequest, error) {
	appt, err := s.store.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	switch appt.Status {
	case models.StatusPending, models.StatusScheduled, models.StatusRescheduled:
	default:
		return nil, ErrInvalidTransition
	}

	now := s.clock.Now()
	if appt.StartsAt.Sub(now) < s.leadTime {
		return nil, ErrTooLateToReschedule
	}
	if !newStartsAt.After(now) {
		return nil, ErrSlotUnavailable
	}

	profile, err := s.store.DoctorProfileByUserID(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}

	req := &models.RescheduleRequest{
		AppointmentID: appt.ID,
		RequestedBy:   requestedBy,
		OldStartsAt:   appt.StartsAt,
		OldEndsAt:     appt.EndsAt,
		NewStartsAt:   newStartsAt.UTC(),
		NewEndsAt:     newStartsAt.Add(time.Duration(profile.SlotMinutes) * time.Minute).UTC(),
		Status:        models.ReschedulePending,
	}

	err = s.store.WithinTx(ctx, func(tx Store) error {
		// The appointment row lock serializes concurrent proposals so the
		// one-pending-request invariant holds under races.
		if _, err := tx.AppointmentByIDForUpdate(ctx, appt.ID); err != nil {
			return err
		}
		pending, err := tx.PendingRescheduleRequest(ctx, appt.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			return ErrRescheduleAlreadyPending
		}
		return tx.CreateRescheduleRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID).
		Str("request_id", req.ID).
		Time("new_starts_at", req.NewStartsAt).
		Msg("reschedule proposed")
	s.notifyCounterpart(ctx, appt, requestedBy, notify.KindRescheduleProposed, map[string]interface{}{
		"appointmentId": appt.ID,
		"requestId":     req.ID,
		"newStartsAt":   req.NewStartsAt,
	})
	return req, nil
}

// AcceptReschedule resolves a pending request by moving the parent
// appointment to the proposed window. The new window is re-validated against
// the doctor's calendar at this moment, not at proposal time; if it has been
// taken since, the call fails and both rows are left unchanged.
func (s *Service) AcceptReschedule(ctx context.Context, requestID string) (*models.Appointment, error) {
	var appt *models.Appointment
	err := s.store.WithinTx(ctx, func(tx Store) error {
		req, err := tx.RescheduleRequestByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.ReschedulePending {
			return ErrInvalidTransition
		}
		appt, err = tx.AppointmentByIDForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status.IsTerminal() {
			return ErrInvalidTransition
		}

		free, err := s.windowFree(ctx, tx, appt.DoctorID, req.NewStartsAt, req.NewEndsAt, appt.ID)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotUnavailable
		}

		if err := tx.UpdateAppointmentWindow(ctx, appt.ID, req.NewStartsAt, req.NewEndsAt, models.StatusRescheduled); err != nil {
			return err
		}
		ok, err := tx.UpdateRescheduleRequestStatus(ctx, req.ID, models.ReschedulePending, models.RescheduleAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}

		appt.StartsAt = req.NewStartsAt
		appt.EndsAt = req.NewEndsAt
		appt.Status = models.StatusRescheduled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID).
		Str("request_id", requestID).
		Time("starts_at", appt.StartsAt).
		Msg("reschedule accepted")
	payload := map[string]interface{}{
		"appointmentId": appt.ID,
		"startsAt":      appt.StartsAt,
		"status":        appt.Status,
	}
	s.notifier.Notify(ctx, appt.PatientID, notify.KindRescheduleAccepted, payload)
	s.notifier.Notify(ctx, appt.DoctorID, notify.KindRescheduleAccepted, payload)
	return appt, nil
}

// RejectReschedule resolves a pending request by declining the proposed
// window; the parent appointment is cancelled outright rather than reverted
// to its pre-proposal state.
func (s *Service) RejectReschedule(ctx context.Context, requestID string) (*models.Appointment, error) {
	var appt *models.Appointment
	err := s.store.WithinTx(ctx, func(tx Store) error {
		req, err := tx.RescheduleRequestByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.ReschedulePending {
			return ErrInvalidTransition
		}
		appt, err = tx.AppointmentByIDForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return err
		}

		ok, err := tx.UpdateRescheduleRequestStatus(ctx, req.ID, models.ReschedulePending, models.RescheduleRejected)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		if !appt.Status.IsTerminal() {
			if _, err := tx.UpdateAppointmentStatus(ctx, appt.ID,
				[]models.AppointmentStatus{models.StatusPending, models.StatusScheduled, models.StatusRescheduled},
				models.StatusCancelled); err != nil {
				return err
			}
			appt.Status = models.StatusCancelled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID).
		Str("request_id", requestID).
		Msg("reschedule rejected")
	payload := map[string]interface{}{
		"appointmentId": appt.ID,
		"status":        appt.Status,
	}
	s.notifier.Notify(ctx, appt.PatientID, notify.KindRescheduleRejected, payload)
	s.notifier.Notify(ctx, appt.DoctorID, notify.KindRescheduleRejected, payload)
	return appt, nil
}

// PendingRequestFor exposes the appointment's pending reschedule request to
// read paths (display status projection).
func (s *Service) PendingRequestFor(ctx context.Context, appointmentID string) (*models.RescheduleRequest, error) {
	return s.store.PendingRescheduleRequest(ctx, appointmentID)
}

// notifyCounterpart sends to whichever party did not initiate the action.
func (s *Service) notifyCounterpart(ctx context.Context, appt *models.Appointment, actor, kind string, payload map[string]interface{}) {
	target := appt.DoctorID
	if actor == appt.DoctorID {
		target = appt.PatientID
	}
	s.notifier.Notify(ctx, target, kind, payload)
}
