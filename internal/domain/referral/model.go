package referral

import (
	"time"

	"github.com/google/uuid"
)

// Referral request statuses. Requests land as "new" and are worked by
// staff from there.
const (
	StatusNew     = "new"
	StatusTriaged = "triaged"
	StatusClosed  = "closed"
)

// ValidStatus reports whether s is a recognized referral status.
func ValidStatus(s string) bool {
	return s == StatusNew || s == StatusTriaged || s == StatusClosed
}

// ReferralRequest maps to the referral_request table. It records a
// patient asking to be contacted, submitted through an outreach link.
type ReferralRequest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OutreachID  *uuid.UUID `db:"outreach_id" json:"outreach_id,omitempty"`
	PatientID   string     `db:"patient_id" json:"patient_id"`
	MeasureCode string     `db:"measure_code" json:"measure_code"`
	Reason      string     `db:"reason" json:"reason"`
	FreeText    string     `db:"free_text" json:"free_text,omitempty"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
