package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	appointments Repository
}

func NewService(appointments Repository) *Service {
	return &Service{appointments: appointments}
}

// RecordBooking stores a confirmed booking that came out of an outreach
// link. ScheduledAt defaults to now when the scheduler did not report a
// slot time.
func (s *Service) RecordBooking(ctx context.Context, a *AppointmentRecord) error {
	if a.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if a.ScheduledAt.IsZero() {
		a.ScheduledAt = time.Now().UTC()
	}
	a.Status = StatusConfirmed
	return s.appointments.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*AppointmentRecord, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status: %s", status)
	}
	return s.appointments.UpdateStatus(ctx, id, status)
}
