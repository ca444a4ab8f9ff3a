package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a recognized appointment status.
func ValidStatus(s string) bool {
	return s == StatusConfirmed || s == StatusCompleted || s == StatusCancelled
}

// AppointmentRecord maps to the appointment table. It tracks bookings
// that originated from an outreach link, so follow-up rates can be tied
// back to campaigns.
type AppointmentRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OutreachID  *uuid.UUID `db:"outreach_id" json:"outreach_id,omitempty"`
	PatientID   string     `db:"patient_id" json:"patient_id"`
	MeasureCode string     `db:"measure_code" json:"measure_code"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
