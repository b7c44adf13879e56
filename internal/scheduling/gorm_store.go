package scheduling

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking-server/internal/models"
)

// GormStore implements Store on top of the application's gorm connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) DoctorProfileByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	var profile models.DoctorProfile
	err := s.db.WithContext(ctx).
		Preload("Availability").
		First(&profile, "user_id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *GormStore) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	return s.appointmentByID(ctx, id, false)
}

func (s *GormStore) AppointmentByIDForUpdate(ctx context.Context, id string) (*models.Appointment, error) {
	return s.appointmentByID(ctx, id, true)
}

func (s *GormStore) appointmentByID(ctx context.Context, id string, lock bool) (*models.Appointment, error) {
	var appt models.Appointment
	q := s.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.First(&appt, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *GormStore) AppointmentsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?",
			doctorID, models.StatusCancelled, to, from).
		Order("starts_at asc").
		Find(&appts).Error
	return appts, err
}

func (s *GormStore) OverlappingAppointments(ctx context.Context, doctorID string, start, end time.Time, excludeID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	q := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("doctor_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?",
			doctorID, models.StatusCancelled, end, start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Find(&appts).Error
	return appts, err
}

func (s *GormStore) BlockedSlotsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]models.BlockedSlot, error) {
	var blocked []models.BlockedSlot
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND starts_at < ? AND ends_at > ?", doctorID, to, from).
		Find(&blocked).Error
	return blocked, err
}

func (s *GormStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	return s.db.WithContext(ctx).Create(appt).Error
}

func (s *GormStore) UpdateAppointmentStatus(ctx context.Context, id string, from []models.AppointmentStatus, to models.AppointmentStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) UpdateAppointmentWindow(ctx context.Context, id string, startsAt, endsAt time.Time, status models.AppointmentStatus) error {
	return s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"starts_at": startsAt,
			"ends_at":   endsAt,
			"status":    status,
		}).Error
}

func (s *GormStore) RescheduleRequestByID(ctx context.Context, id string) (*models.RescheduleRequest, error) {
	return s.rescheduleRequestByID(ctx, id, false)
}

func (s *GormStore) RescheduleRequestByIDForUpdate(ctx context.Context, id string) (*models.RescheduleRequest, error) {
	return s.rescheduleRequestByID(ctx, id, true)
}

func (s *GormStore) rescheduleRequestByID(ctx context.Context, id string, lock bool) (*models.RescheduleRequest, error) {
	var req models.RescheduleRequest
	q := s.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.First(&req, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *GormStore) PendingRescheduleRequest(ctx context.Context, appointmentID string) (*models.RescheduleRequest, error) {
	var req models.RescheduleRequest
	err := s.db.WithContext(ctx).
		First(&req, "appointment_id = ? AND status = ?", appointmentID, models.ReschedulePending).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *GormStore) CreateRescheduleRequest(ctx context.Context, req *models.RescheduleRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *GormStore) UpdateRescheduleRequestStatus(ctx context.Context, id string, from, to models.RescheduleStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.RescheduleRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
