package scheduling

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/notify"
)

// Service owns the appointment lifecycle: booking through the slot conflict
// guard, status transitions, and the reschedule negotiation sub-workflow.
// All operations are synchronous request/response calls; per-appointment
// ordering comes from the store's conditional writes, not from any
// scheduler loop.
type Service struct {
	store    Store
	clock    Clock
	notifier notify.Notifier
	log      zerolog.Logger
	leadTime time.Duration
}

// NewService wires the scheduling core. leadTime is the minimum interval
// before an appointment's start within which reschedules (and late
// cancellations) are disallowed.
func NewService(store Store, clock Clock, notifier notify.Notifier, logger zerolog.Logger, leadTime time.Duration) *Service {
	return &Service{
		store:    store,
		clock:    clock,
		notifier: notifier,
		log:      logger,
		leadTime: leadTime,
	}
}

// BookingInput carries everything needed to create an appointment. The
// patient id comes from the authenticated caller, never from ambient state.
type BookingInput struct {
	DoctorID          string
	PatientID         string
	StartsAt          time.Time
	Reason            string
	Notes             string
	ForWhom           models.ForWhom
	OtherPersonName   string
	OtherPersonDOB    *time.Time
	OtherPersonGender string
	GrantDoctorAccess bool
}

func (in *BookingInput) validate() error {
	if in.Reason == "" {
		return validationErr("reason", "is required")
	}
	if in.ForWhom == "" {
		in.ForWhom = models.ForWhomMe
	}
	if in.ForWhom != models.ForWhomMe && in.ForWhom != models.ForWhomSomeoneElse {
		return validationErr("forWhom", "must be 'me' or 'someone_else'")
	}
	if in.ForWhom == models.ForWhomSomeoneElse {
		if in.OtherPersonName == "" {
			return validationErr("otherPersonName", "is required when booking for someone else")
		}
		if in.OtherPersonDOB == nil {
			return validationErr("otherPersonDateOfBirth", "is required when booking for someone else")
		}
	}
	return nil
}

// Book creates an appointment in status pending, enforcing the no-overlap
// invariant at write time. The availability listing's IsBlocked flag is only
// a read-time hint; the overlap check here, inside one transaction with the
// insert, is what actually prevents double booking.
func (s *Service) Book(ctx context.Context, in BookingInput) (*models.Appointment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	profile, err := s.store.DoctorProfileByUserID(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !in.StartsAt.After(now) {
		return nil, ErrSlotUnavailable
	}

	appt := &models.Appointment{
		DoctorID:          in.DoctorID,
		PatientID:         in.PatientID,
		StartsAt:          in.StartsAt.UTC(),
		EndsAt:            in.StartsAt.Add(time.Duration(profile.SlotMinutes) * time.Minute).UTC(),
		Status:            models.StatusPending,
		Reason:            in.Reason,
		Notes:             in.Notes,
		ForWhom:           in.ForWhom,
		OtherPersonName:   in.OtherPersonName,
		OtherPersonDOB:    in.OtherPersonDOB,
		OtherPersonGender: in.OtherPersonGender,
		GrantDoctorAccess: in.GrantDoctorAccess,
	}

	err = s.store.WithinTx(ctx, func(tx Store) error {
		return s.guardAndInsert(ctx, tx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID).
		Str("doctor_id", appt.DoctorID).
		Time("starts_at", appt.StartsAt).
		Msg("appointment booked")
	s.notifier.Notify(ctx, appt.DoctorID, notify.KindAppointmentRequested, map[string]interface{}{
		"appointmentId": appt.ID,
		"startsAt":      appt.StartsAt,
	})
	return appt, nil
}

// guardAndInsert is the slot conflict guard: with the doctor's overlapping
// rows locked, at most one concurrent insert for a window can get here
// without observing the other.
func (s *Service) guardAndInsert(ctx context.Context, tx Store, appt *models.Appointment) error {
	free, err := s.windowFree(ctx, tx, appt.DoctorID, appt.StartsAt, appt.EndsAt, "")
	if err != nil {
		return err
	}
	if !free {
		return ErrSlotUnavailable
	}
	return tx.CreateAppointment(ctx, appt)
}

// windowFree checks the doctor's calendar for any non-cancelled appointment
// or blocked slot intersecting [start, end), excluding excludeID.
func (s *Service) windowFree(ctx context.Context, tx Store, doctorID string, start, end time.Time, excludeID string) (bool, error) {
	overlapping, err := tx.OverlappingAppointments(ctx, doctorID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	if len(overlapping) > 0 {
		return false, nil
	}
	blocked, err := tx.BlockedSlotsInWindow(ctx, doctorID, start, end)
	if err != nil {
		return false, err
	}
	return len(blocked) == 0, nil
}

// Accept confirms a pending appointment. Only valid from pending.
func (s *Service) Accept(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	appt, err := s.transition(ctx, appointmentID,
		[]models.AppointmentStatus{models.StatusPending}, models.StatusScheduled)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, appt.PatientID, notify.KindAppointmentConfirmed, map[string]interface{}{
		"appointmentId": appt.ID,
		"startsAt":      appt.StartsAt,
		"status":        appt.Status,
	})
	return appt, nil
}

// Reject declines a pending appointment, cancelling it. Only valid from pending.
func (s *Service) Reject(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	appt, err := s.transition(ctx, appointmentID,
		[]models.AppointmentStatus{models.StatusPending}, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, appt.PatientID, notify.KindAppointmentRejected, map[string]interface{}{
		"appointmentId": appt.ID,
		"status":        appt.Status,
	})
	return appt, nil
}

// MarkCompleted closes out an appointment whose start time has passed.
// Calling it when the appointment is already completed is a no-op success.
func (s *Service) MarkCompleted(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return s.closeOut(ctx, appointmentID, models.StatusCompleted)
}

// MarkNoShow records that the patient did not attend. Mirrors MarkCompleted,
// including the idempotent no-op when already no_show.
func (s *Service) MarkNoShow(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return s.closeOut(ctx, appointmentID, models.StatusNoShow)
}

func (s *Service) closeOut(ctx context.Context, appointmentID string, target models.AppointmentStatus) (*models.Appointment, error) {
	appt, err := s.store.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status == target {
		return appt, nil
	}
	if appt.Status != models.StatusScheduled && appt.Status != models.StatusRescheduled {
		return nil, ErrInvalidTransition
	}
	if s.clock.Now().Before(appt.StartsAt) {
		return nil, ErrInvalidTransition
	}
	return s.transition(ctx, appointmentID,
		[]models.AppointmentStatus{models.StatusScheduled, models.StatusRescheduled}, target)
}

// Cancel cancels an appointment. Pending appointments can always be
// cancelled; confirmed ones only while more than the lead time remains
// before the start.
func (s *Service) Cancel(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	appt, err := s.store.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	switch appt.Status {
	case models.StatusPending:
		// always allowed
	case models.StatusScheduled, models.StatusRescheduled:
		if appt.StartsAt.Sub(s.clock.Now()) < s.leadTime {
			return nil, ErrTooLateToReschedule
		}
	default:
		return nil, ErrInvalidTransition
	}

	appt, err = s.transition(ctx, appointmentID,
		[]models.AppointmentStatus{models.StatusPending, models.StatusScheduled, models.StatusRescheduled},
		models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, appt.PatientID, notify.KindAppointmentCancelled, map[string]interface{}{
		"appointmentId": appt.ID,
		"status":        appt.Status,
	})
	s.notifier.Notify(ctx, appt.DoctorID, notify.KindAppointmentCancelled, map[string]interface{}{
		"appointmentId": appt.ID,
		"status":        appt.Status,
	})
	return appt, nil
}

// transition applies a guarded status update. The allowed set is part of the
// same conditional write that sets the new status, so a concurrent
// transition cannot be silently overwritten.
func (s *Service) transition(ctx context.Context, appointmentID string, from []models.AppointmentStatus, to models.AppointmentStatus) (*models.Appointment, error) {
	ok, err := s.store.UpdateAppointmentStatus(ctx, appointmentID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Either the row is gone or the precondition failed; distinguish for
		// the caller.
		if _, getErr := s.store.AppointmentByID(ctx, appointmentID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidTransition
	}
	appt, err := s.store.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("appointment_id", appointmentID).
		Str("status", string(to)).
		Msg("appointment status changed")
	return appt, nil
}
