package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/notify"
)

func TestBookValidation(t *testing.T) {
	store := newMemStore()
	seedDoctor(store, "doc-1", 30, "UTC")
	svc, _, _ := newTestService(store, monday)

	dob := time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		in    BookingInput
		field string
	}{
		{
			name:  "missing reason",
			in:    BookingInput{DoctorID: "doc-1", PatientID: "patient-1", StartsAt: monday.Add(24 * time.Hour)},
			field: "reason",
		},
		{
			name: "someone else without name",
			in: BookingInput{
				DoctorID: "doc-1", PatientID: "patient-1", StartsAt: monday.Add(24 * time.Hour),
				Reason: "checkup", ForWhom: models.ForWhomSomeoneElse, OtherPersonDOB: &dob,
			},
			field: "otherPersonName",
		},
		{
			name: "someone else without date of birth",
			in: BookingInput{
				DoctorID: "doc-1", PatientID: "patient-1", StartsAt: monday.Add(24 * time.Hour),
				Reason: "checkup", ForWhom: models.ForWhomSomeoneElse, OtherPersonName: "Sam",
			},
			field: "otherPersonDateOfBirth",
		},
		{
			name: "unknown forWhom",
			in: BookingInput{
				DoctorID: "doc-1", PatientID: "patient-1", StartsAt: monday.Add(24 * time.Hour),
				Reason: "checkup", ForWhom: "relative",
			},
			field: "forWhom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Book() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("ValidationError.Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	store := newMemStore()
	seedDoctor(store, "doc-1", 30, "UTC")
	svc, _, notifier := newTestService(store, monday)

	start := monday.Add(24 * time.Hour)
	appt, err := svc.Book(context.Background(), BookingInput{
		DoctorID:  "doc-1",
		PatientID: "patient-1",
		StartsAt:  start,
		Reason:    "checkup",
	})
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if appt.Status != models.StatusPending {
		t.Errorf("Status = %q, want %q", appt.Status, models.StatusPending)
	}
	if !appt.EndsAt.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("EndsAt = %v, want %v", appt.EndsAt, start.Add(30*time.Minute))
	}
	if appt.ForWhom != models.ForWhomMe {
		t.Errorf("ForWhom = %q, want default %q", appt.ForWhom, models.ForWhomMe)
	}
	if !notifier.has(notify.KindAppointmentRequested) {
		t.Error("doctor was not notified of the new request")
	}
}

func TestBookRejectsPastStart(t *testing.T) {
	store := newMemStore()
	seedDoctor(store, "doc-1", 30, "UTC")
	svc, _, _ := newTestService(store, monday)

	_, err := svc.Book(context.Background(), BookingInput{
		DoctorID:  "doc-1",
		PatientID: "patient-1",
		StartsAt:  monday.Add(-time.Hour),
		Reason:    "checkup",
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("Book() error = %v, want ErrSlotUnavailable", err)
	}
}

func TestBookRejectsOverlappingWindow(t *testing.T) {
	store := newMemStore()
	seedDoctor(store, "doc-1", 30, "UTC")
	seedAppointment(store, "doc-1", models.StatusScheduled,
		monday.Add(24*time.Hour), monday.Add(24*time.Hour+30*time.Minute))
	svc, _, _ := newTestService(store, monday)

	// Offset by 15 minutes: partial overlap must still be refused.
	_, err := svc.Book(context.Background(), BookingInput{
		DoctorID:  "doc-1",
		PatientID: "patient-2",
		StartsAt:  monday.Add(24*time.Hour + 15*time.Minute),
		Reason:    "checkup",
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("Book() error = %v, want ErrSlotUnavailable", err)
	}
}

func TestBookAllowsTouchingWindows(t *testing.T) {
	store := newMemStore()
	seedDoctor(store, "doc-1", 30, "UTC")
	seedAppointment(store, "doc-1", models.StatusScheduled,
		monday.Add(24*time.Hour), monday.Add(24*time.Hour+30*time.Minute))
	svc, _, _ := newTestService(store, monday)

	// Back to back is fine: [10:00, 10:30) then [10:30, 11:00).
	if _, err := svc.Book(context.Background(), BookingInput{
		DoctorID:  "doc-1",
		PatientID: "patient-2",
		StartsAt:  monday.Add(24*time.Hour + 30*time.Minute),
		Reason:    "checkup",
	}); err != nil {
		t.Fatalf("Book() error = %v for a back-to-back window", err)
	}
}

func TestBookConcurrentSameSlot(t *testing.T) {
	store := newMemStore()
	seedDoctor(store, "doc-1", 30, "UTC")
	svc, _, _ := newTestService(store, monday)

	start := monday.Add(24 * time.Hour)
	const callers = 8
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), BookingInput{
				DoctorID:  "doc-1",
				PatientID: "patient-1",
				StartsAt:  start,
				Reason:    "checkup",
			})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotUnavailable):
			lost++
		default:
			t.Fatalf("unexpected error from concurrent Book(): %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d callers booked the same slot, want exactly 1", won)
	}
	if lost != callers-1 {
		t.Fatalf("%d callers got ErrSlotUnavailable, want %d", lost, callers-1)
	}
	if len(store.appointments) != 1 {
		t.Fatalf("store holds %d appointments, want 1", len(store.appointments))
	}
}

func TestAcceptConfirmsPending(t *testing.T) {
	store := newMemStore()
	appt := seedAppointment(store, "doc-1", models.StatusPending,
		monday.Add(24*time.Hour), monday.Add(24*time.Hour+30*time.Minute))
	svc, _, notifier := newTestService(store, monday)

	got, err := svc.Accept(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if got.Status != models.StatusScheduled {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusScheduled)
	}
	if !notifier.has(notify.KindAppointmentConfirmed) {
		t.Error("patient was not notified of confirmation")
	}
}

func TestRejectCancelsPending(t *testing.T) {
	store := newMemStore()
	appt := seedAppointment(store, "doc-1", models.StatusPending,
		monday.Add(24*time.Hour), monday.Add(24*time.Hour+30*time.Minute))
	svc, _, notifier := newTestService(store, monday)

	got, err := svc.Reject(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusCancelled)
	}
	if !notifier.has(notify.KindAppointmentRejected) {
		t.Error("patient was not notified of rejection")
	}
}

func TestAcceptRequiresPending(t *testing.T) {
	for _, status := range []models.AppointmentStatus{
		models.StatusScheduled, models.StatusCancelled, models.StatusCompleted, models.StatusNoShow,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := newMemStore()
			appt := seedAppointment(store, "doc-1", status,
				monday.Add(24*time.Hour), monday.Add(24*time.Hour+30*time.Minute))
			svc, _, _ := newTestService(store, monday)

			if _, err := svc.Accept(context.Background(), appt.ID); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Accept() from %s error = %v, want ErrInvalidTransition", status, err)
			}
		})
	}
}

func TestMarkCompletedAfterStart(t *testing.T) {
	store := newMemStore()
	appt := seedAppointment(store, "doc-1", models.StatusScheduled,
		monday.Add(9*time.Hour), monday.Add(9*time.Hour+30*time.Minute))
	svc, _, _ := newTestService(store, monday.Add(10*time.Hour))

	got, err := svc.MarkCompleted(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusCompleted)
	}

	// Calling again is a no-op success.
	again, err := svc.MarkCompleted(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("second MarkCompleted() error = %v", err)
	}
	if again.Status != models.StatusCompleted {
		t.Errorf("second call Status = %q, want %q", again.Status, models.StatusCompleted)
	}
}

func TestMarkCompletedBeforeStart(t *testing.T) {
	store := newMemStore()
	appt := seedAppointment(store, "doc-1", models.StatusScheduled,
		monday.Add(9*time.Hour), monday.Add(9*time.Hour+30*time.Minute))
	svc, _, _ := newTestService(store, monday.Add(8*time.Hour))

	if _, err := svc.MarkCompleted(context.Background(), appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("MarkCompleted() before start error = %v, want ErrInvalidTransition", err)
	}
}

func TestMarkNoShowFromRescheduled(t *testing.T) {
	store := newMemStore()
	appt := seedAppointment(store, "doc-1", models.StatusRescheduled,
		monday.Add(9*time.Hour), monday.Add(9*time.Hour+30*time.Minute))
	svc, _, _ := newTestService(store, monday.Add(10*time.Hour))

	got, err := svc.MarkNoShow(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("MarkNoShow() error = %v", err)
	}
	if got.Status != models.StatusNoShow {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusNoShow)
	}
}

func TestMarkNoShowRequiresConfirmed(t *testing.T) {
	store := newMemStore()
	appt := seedAppointment(store, "doc-1", models.StatusPending,
		monday.Add(9*time.Hour), monday.Add(9*time.Hour+30*time.Minute))
	svc, _, _ := newTestService(store, monday.Add(10*time.Hour))

	if _, err := svc.MarkNoShow(context.Background(), appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("MarkNoShow() from pending error = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelPendingAlwaysAllowed(t *testing.T) {
	store := newMemStore()
	// One hour before start, well inside the lead window.
	appt := seedAppointment(store, "doc-1", models.StatusPending,
		monday.Add(time.Hour), monday.Add(time.Hour+30*time.Minute))
	svc, _, notifier := newTestService(store, monday)

	got, err := svc.Cancel(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusCancelled)
	}
	if !notifier.has(notify.KindAppointmentCancelled) {
		t.Error("parties were not notified of cancellation")
	}
}

func TestCancelScheduledRespectsLeadTime(t *testing.T) {
	tests := []struct {
		name    string
		until   time.Duration
		wantErr error
	}{
		{name: "well ahead", until: 72 * time.Hour},
		{name: "exactly at the boundary", until: 48 * time.Hour},
		{name: "inside the window", until: 20 * time.Hour, wantErr: ErrTooLateToReschedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			appt := seedAppointment(store, "doc-1", models.StatusScheduled,
				monday.Add(tt.until), monday.Add(tt.until+30*time.Minute))
			svc, _, _ := newTestService(store, monday)

			_, err := svc.Cancel(context.Background(), appt.ID)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Cancel() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Cancel() error = %v, want %v", err, tt.wantErr)
			}
			got, _ := store.AppointmentByID(context.Background(), appt.ID)
			if got.Status != models.StatusScheduled {
				t.Errorf("appointment mutated on refused cancel: status %q", got.Status)
			}
		})
	}
}

func TestTerminalStatusesAreImmutable(t *testing.T) {
	ops := map[string]func(*Service, string) error{
		"Accept":        func(s *Service, id string) error { _, err := s.Accept(context.Background(), id); return err },
		"Reject":        func(s *Service, id string) error { _, err := s.Reject(context.Background(), id); return err },
		"Cancel":        func(s *Service, id string) error { _, err := s.Cancel(context.Background(), id); return err },
		"MarkCompleted": func(s *Service, id string) error { _, err := s.MarkCompleted(context.Background(), id); return err },
		"MarkNoShow":    func(s *Service, id string) error { _, err := s.MarkNoShow(context.Background(), id); return err },
	}

	for _, status := range []models.AppointmentStatus{
		models.StatusCancelled, models.StatusCompleted, models.StatusNoShow,
	} {
		for opName, op := range ops {
			t.Run(string(status)+"/"+opName, func(t *testing.T) {
				store := newMemStore()
				appt := seedAppointment(store, "doc-1", status,
					monday.Add(9*time.Hour), monday.Add(9*time.Hour+30*time.Minute))
				svc, _, _ := newTestService(store, monday.Add(10*time.Hour))

				err := op(svc, appt.ID)
				// Re-marking with the same terminal status is an idempotent
				// no-op; everything else must be refused.
				sameTarget := (opName == "MarkCompleted" && status == models.StatusCompleted) ||
					(opName == "MarkNoShow" && status == models.StatusNoShow)
				if sameTarget {
					if err != nil {
						t.Fatalf("%s on %s error = %v, want no-op success", opName, status, err)
					}
				} else if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s on %s error = %v, want ErrInvalidTransition", opName, status, err)
				}

				got, _ := store.AppointmentByID(context.Background(), appt.ID)
				if got.Status != status {
					t.Errorf("terminal appointment mutated: %q -> %q", status, got.Status)
				}
			})
		}
	}
}

func TestTransitionUnknownAppointment(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store, monday)

	if _, err := svc.Accept(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Accept() on missing id error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Cancel(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Cancel() on missing id error = %v, want ErrNotFound", err)
	}
}
