package reading

import "context"

// Repository persists clinical readings. There is no update or delete:
// the table is an append-only record of what patients reported.
type Repository interface {
	Create(ctx context.Context, r *ClinicalReading) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*ClinicalReading, int, error)
	CountByPatient(ctx context.Context, patientID string) (int, error)
}
