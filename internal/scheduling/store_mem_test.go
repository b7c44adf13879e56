package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/models"
)

// memStore is an in-memory Store used by the core tests. txMu serializes
// WithinTx blocks the way row locks serialize conflicting transactions; mu
// guards the maps for plain reads.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	profiles     map[string]*models.DoctorProfile
	appointments map[string]*models.Appointment
	requests     map[string]*models.RescheduleRequest
	blocked      []models.BlockedSlot
}

func newMemStore() *memStore {
	return &memStore{
		profiles:     make(map[string]*models.DoctorProfile),
		appointments: make(map[string]*models.Appointment),
		requests:     make(map[string]*models.RescheduleRequest),
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *memStore) DoctorProfileByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *profile
	return &cp, nil
}

func (m *memStore) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (m *memStore) AppointmentByIDForUpdate(ctx context.Context, id string) (*models.Appointment, error) {
	return m.AppointmentByID(ctx, id)
}

func (m *memStore) AppointmentsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error) {
	return m.overlapping(doctorID, from, to, "")
}

func (m *memStore) OverlappingAppointments(ctx context.Context, doctorID string, start, end time.Time, excludeID string) ([]models.Appointment, error) {
	return m.overlapping(doctorID, start, end, excludeID)
}

func (m *memStore) overlapping(doctorID string, start, end time.Time, excludeID string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if a.DoctorID != doctorID || a.ID == excludeID || a.Status == models.StatusCancelled {
			continue
		}
		if a.StartsAt.Before(end) && start.Before(a.EndsAt) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) BlockedSlotsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]models.BlockedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BlockedSlot
	for _, b := range m.blocked {
		if b.DoctorID != doctorID {
			continue
		}
		if b.StartsAt.Before(to) && from.Before(b.EndsAt) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	cp := *appt
	m.appointments[appt.ID] = &cp
	return nil
}

func (m *memStore) UpdateAppointmentStatus(ctx context.Context, id string, from []models.AppointmentStatus, to models.AppointmentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.appointments[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if appt.Status == s {
			appt.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateAppointmentWindow(ctx context.Context, id string, startsAt, endsAt time.Time, status models.AppointmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	appt.StartsAt = startsAt
	appt.EndsAt = endsAt
	appt.Status = status
	return nil
}

func (m *memStore) RescheduleRequestByID(ctx context.Context, id string) (*models.RescheduleRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memStore) RescheduleRequestByIDForUpdate(ctx context.Context, id string) (*models.RescheduleRequest, error) {
	return m.RescheduleRequestByID(ctx, id)
}

func (m *memStore) PendingRescheduleRequest(ctx context.Context, appointmentID string) (*models.RescheduleRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.AppointmentID == appointmentID && req.Status == models.ReschedulePending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateRescheduleRequest(ctx context.Context, req *models.RescheduleRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *memStore) UpdateRescheduleRequestStatus(ctx context.Context, id string, from, to models.RescheduleStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return false, nil
	}
	if req.Status != from {
		return false, nil
	}
	req.Status = to
	return true, nil
}

// fixedClock is a Clock pinned to a settable instant.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// recordNotifier captures emitted notifications for assertions.
type recordNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordNotifier) Notify(ctx context.Context, userID, kind string, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

func (n *recordNotifier) has(kind string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, k := range n.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func newTestService(store *memStore, now time.Time) (*Service, *fixedClock, *recordNotifier) {
	clk := &fixedClock{t: now}
	notifier := &recordNotifier{}
	svc := NewService(store, clk, notifier, zerolog.Nop(), 48*time.Hour)
	return svc, clk, notifier
}

func seedDoctor(store *memStore, userID string, slotMinutes int, timezone string, blocks ...models.AvailabilityBlock) {
	store.profiles[userID] = &models.DoctorProfile{
		BaseModel:    models.BaseModel{ID: "profile-" + userID},
		UserID:       userID,
		SlotMinutes:  slotMinutes,
		Timezone:     timezone,
		Availability: blocks,
	}
}

func seedAppointment(store *memStore, doctorID string, status models.AppointmentStatus, startsAt, endsAt time.Time) *models.Appointment {
	appt := &models.Appointment{
		BaseModel: models.BaseModel{ID: uuid.New().String()},
		DoctorID:  doctorID,
		PatientID: "patient-1",
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Status:    status,
		Reason:    "checkup",
	}
	cp := *appt
	store.appointments[appt.ID] = &cp
	return appt
}
