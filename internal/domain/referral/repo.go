package referral

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *ReferralRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ReferralRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]*ReferralRequest, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
