package reading

import (
	"time"

	"github.com/google/uuid"
)

// SourcePatientPortal marks readings submitted through a magic-link
// landing page rather than a clinical system.
const SourcePatientPortal = "patient_portal"

// ClinicalReading maps to the clinical_reading table. Rows are
// append-only: every submission is recorded, compliant or not, and
// nothing updates or deletes them.
type ClinicalReading struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   string     `db:"patient_id" json:"patient_id"`
	MeasureCode string     `db:"measure_code" json:"measure_code"`
	Systolic    int        `db:"systolic" json:"systolic,omitempty"`
	Diastolic   int        `db:"diastolic" json:"diastolic,omitempty"`
	Value       *float64   `db:"value" json:"value,omitempty"`
	Adherent    *bool      `db:"adherent" json:"adherent,omitempty"`
	Source      string     `db:"source" json:"source"`
	ReportedAt  time.Time  `db:"reported_at" json:"reported_at"`
}
