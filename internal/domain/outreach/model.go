// Package outreach owns the outreach ledger: one row per attempt to
// reach a patient about a quality measure, carrying the magic-link token
// and the delivery lifecycle.
package outreach

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexahealth/qscore/internal/platform/messaging"
)

// Outreach lifecycle statuses. The happy path is queued -> sent ->
// clicked -> completed; failed is terminal, reachable from queued or
// sent on delivery failure.
const (
	StatusQueued    = "queued"
	StatusSent      = "sent"
	StatusClicked   = "clicked"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ValidStatus reports whether s is a recognized lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusQueued, StatusSent, StatusClicked, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle permits moving from one
// status to another. Transitions only move forward; completed and
// failed are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case StatusQueued:
		return to == StatusSent || to == StatusFailed
	case StatusSent:
		return to == StatusClicked || to == StatusFailed
	case StatusClicked:
		return to == StatusCompleted
	}
	return false
}

// OutreachRecord maps to the outreach table. Lifecycle timestamps are
// set once and never overwritten; a missing timestamp means the record
// never reached that stage.
type OutreachRecord struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	PatientID         string            `db:"patient_id" json:"patient_id"`
	PatientName       string            `db:"patient_name" json:"patient_name,omitempty"`
	MeasureCode       string            `db:"measure_code" json:"measure_code"`
	Channel           messaging.Channel `db:"channel" json:"channel"`
	Destination       string            `db:"destination" json:"destination,omitempty"`
	Status            string            `db:"status" json:"status"`
	Token             string            `db:"token" json:"-"`
	ProviderMessageID *string           `db:"provider_message_id" json:"provider_message_id,omitempty"`
	FailReason        *string           `db:"fail_reason" json:"fail_reason,omitempty"`
	QueuedAt          time.Time         `db:"queued_at" json:"queued_at"`
	SentAt            *time.Time        `db:"sent_at" json:"sent_at,omitempty"`
	ClickedAt         *time.Time        `db:"clicked_at" json:"clicked_at,omitempty"`
	CompletedAt       *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// FirstName extracts the leading word of the patient name for message
// templates, falling back to a neutral greeting.
func (o *OutreachRecord) FirstName() string {
	name := o.PatientName
	for i, r := range name {
		if r == ' ' {
			name = o.PatientName[:i]
			break
		}
	}
	if name == "" {
		return "there"
	}
	return name
}
