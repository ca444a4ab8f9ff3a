package reading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexahealth/qscore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type readingRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &readingRepoPG{pool: pool}
}

func (r *readingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const readingCols = `id, patient_id, measure_code, systolic, diastolic, value, adherent, source, reported_at`

func (r *readingRepoPG) scanReading(row pgx.Row) (*ClinicalReading, error) {
	var cr ClinicalReading
	err := row.Scan(&cr.ID, &cr.PatientID, &cr.MeasureCode, &cr.Systolic, &cr.Diastolic,
		&cr.Value, &cr.Adherent, &cr.Source, &cr.ReportedAt)
	return &cr, err
}

func (r *readingRepoPG) Create(ctx context.Context, cr *ClinicalReading) error {
	cr.ID = uuid.New()
	if cr.Source == "" {
		cr.Source = SourcePatientPortal
	}
	if cr.ReportedAt.IsZero() {
		cr.ReportedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_reading (id, patient_id, measure_code, systolic, diastolic, value, adherent, source, reported_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		cr.ID, cr.PatientID, cr.MeasureCode, cr.Systolic, cr.Diastolic, cr.Value, cr.Adherent, cr.Source, cr.ReportedAt)
	return err
}

func (r *readingRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*ClinicalReading, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_reading WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+readingCols+` FROM clinical_reading WHERE patient_id = $1 ORDER BY reported_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ClinicalReading
	for rows.Next() {
		cr, err := r.scanReading(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cr)
	}
	return items, total, nil
}

func (r *readingRepoPG) CountByPatient(ctx context.Context, patientID string) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_reading WHERE patient_id = $1`, patientID).Scan(&total)
	return total, err
}
