package outreach

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows ledger listings. Zero values mean no filter.
type ListFilter struct {
	Status      string
	PatientID   string
	MeasureCode string
}

// Repository persists the outreach ledger. Lifecycle mutations are
// conditional single-row updates so they stay idempotent under retries
// and concurrent clicks.
type Repository interface {
	Create(ctx context.Context, o *OutreachRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*OutreachRecord, error)
	GetByToken(ctx context.Context, token string) (*OutreachRecord, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*OutreachRecord, int, error)
	ListQueued(ctx context.Context, limit int) ([]*OutreachRecord, error)
	MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkClicked(ctx context.Context, token string) error
	MarkCompleted(ctx context.Context, token string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}
