package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *AppointmentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*AppointmentRecord, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
