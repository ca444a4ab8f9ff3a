package referral

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	referrals Repository
}

func NewService(referrals Repository) *Service {
	return &Service{referrals: referrals}
}

// CreateRequest records a new referral request. Status always starts at
// "new" regardless of what the caller set.
func (s *Service) CreateRequest(ctx context.Context, rr *ReferralRequest) error {
	if rr.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if rr.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	rr.Status = StatusNew
	return s.referrals.Create(ctx, rr)
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*ReferralRequest, error) {
	return s.referrals.GetByID(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, status string, limit, offset int) ([]*ReferralRequest, int, error) {
	if status != "" && !ValidStatus(status) {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	return s.referrals.List(ctx, status, limit, offset)
}

// UpdateStatus moves a request between workflow states. Any transition
// between valid states is allowed; staff can reopen a closed request.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status: %s", status)
	}
	return s.referrals.UpdateStatus(ctx, id, status)
}
