// Package gap manages imported quality-measure gap data: one row per
// patient and measure, with compliance state, feeding the dashboard KPIs
// and bulk outreach.
package gap

import (
	"time"

	"github.com/google/uuid"
)

// MeasureGap maps to the measure_gap table.
type MeasureGap struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   string    `db:"patient_id" json:"patient_id"`
	Clinic      string    `db:"clinic" json:"clinic"`
	MeasureCode string    `db:"measure_code" json:"measure_code"`
	Value       float64   `db:"value" json:"value"`
	Compliant   bool      `db:"compliant" json:"compliant"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MeasureSummary is one dashboard KPI row.
type MeasureSummary struct {
	MeasureCode    string  `json:"measure_code"`
	MeasureDisplay string  `json:"measure_display"`
	Patients       int     `json:"patients"`
	Compliant      int     `json:"compliant"`
	Rate           float64 `json:"rate"`
	Target         float64 `json:"target"`
	MeetsTarget    bool    `json:"meets_target"`
}

// ImportReport summarizes one CSV import.
type ImportReport struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
