package scheduling

import (
	"context"
	"time"

	"clinic-booking-server/internal/models"
)

// Store is the persistence boundary of the scheduling core. The conditional
// forms (guarded status updates, row-locking reads inside WithinTx) are what
// make booking and transitions race-safe; everything else is plain reads and
// inserts.
type Store interface {
	// WithinTx runs fn against a transactional view of the store. Locking
	// reads (ForUpdate variants, OverlappingAppointments) are only
	// meaningful inside fn.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// DoctorProfileByUserID loads a doctor's scheduling profile with its
	// weekly availability blocks. Returns ErrNotFound if absent.
	DoctorProfileByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error)

	AppointmentByID(ctx context.Context, id string) (*models.Appointment, error)

	// AppointmentByIDForUpdate locks the appointment row for the duration of
	// the enclosing transaction.
	AppointmentByIDForUpdate(ctx context.Context, id string) (*models.Appointment, error)

	// AppointmentsInWindow returns the doctor's non-cancelled appointments
	// intersecting [from, to).
	AppointmentsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error)

	// OverlappingAppointments returns, with row locks held, the doctor's
	// non-cancelled appointments intersecting [start, end), excluding
	// excludeID when non-empty.
	OverlappingAppointments(ctx context.Context, doctorID string, start, end time.Time, excludeID string) ([]models.Appointment, error)

	BlockedSlotsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]models.BlockedSlot, error)

	CreateAppointment(ctx context.Context, appt *models.Appointment) error

	// UpdateAppointmentStatus sets the status to `to` only if the current
	// status is one of `from`, as a single conditional write. Returns false
	// when the precondition did not hold.
	UpdateAppointmentStatus(ctx context.Context, id string, from []models.AppointmentStatus, to models.AppointmentStatus) (bool, error)

	// UpdateAppointmentWindow rewrites the appointment's time window and
	// status. Callers must hold the row lock.
	UpdateAppointmentWindow(ctx context.Context, id string, startsAt, endsAt time.Time, status models.AppointmentStatus) error

	RescheduleRequestByID(ctx context.Context, id string) (*models.RescheduleRequest, error)
	RescheduleRequestByIDForUpdate(ctx context.Context, id string) (*models.RescheduleRequest, error)

	// PendingRescheduleRequest returns the appointment's pending request, or
	// (nil, nil) when there is none.
	PendingRescheduleRequest(ctx context.Context, appointmentID string) (*models.RescheduleRequest, error)

	CreateRescheduleRequest(ctx context.Context, req *models.RescheduleRequest) error

	// UpdateRescheduleRequestStatus is the conditional-write form for
	// resolving a request. Returns false when the current status was not
	// `from`.
	UpdateRescheduleRequestStatus(ctx context.Context, id string, from, to models.RescheduleStatus) (bool, error)
}
