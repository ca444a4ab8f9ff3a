package gap

import (
	"context"
	"fmt"
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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type gapRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &gapRepoPG{pool: pool}
}

func (r *gapRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const gapCols = `id, patient_id, clinic, measure_code, value, compliant, recorded_at, created_at`

func (r *gapRepoPG) scanGap(row pgx.Row) (*MeasureGap, error) {
	var g MeasureGap
	err := row.Scan(&g.ID, &g.PatientID, &g.Clinic, &g.MeasureCode, &g.Value, &g.Compliant, &g.RecordedAt, &g.CreatedAt)
	return &g, err
}

func (r *gapRepoPG) BulkInsert(ctx context.Context, gaps []*MeasureGap) error {
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, g := range gaps {
		g.ID = uuid.New()
		g.CreatedAt = now
		batch.Queue(`
			INSERT INTO measure_gap (id, patient_id, clinic, measure_code, value, compliant, recorded_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			g.ID, g.PatientID, g.Clinic, g.MeasureCode, g.Value, g.Compliant, g.RecordedAt, g.CreatedAt)
	}
	br := r.conn(ctx).SendBatch(ctx, batch)
	for range gaps {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

func (r *gapRepoPG) DeleteAll(ctx context.Context) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM measure_gap`)
	return err
}

func (r *gapRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*MeasureGap, int, error) {
	where := ``
	args := []interface{}{}
	add := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}
	if filter.Clinic != "" {
		args = append(args, filter.Clinic)
		add(fmt.Sprintf("clinic = $%d", len(args)))
	}
	if filter.MeasureCode != "" {
		args = append(args, filter.MeasureCode)
		add(fmt.Sprintf("measure_code = $%d", len(args)))
	}
	if filter.OnlyNonCompliant {
		add("compliant = FALSE")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM measure_gap`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM measure_gap%s ORDER BY recorded_at DESC, patient_id LIMIT $%d OFFSET $%d`,
		gapCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MeasureGap
	for rows.Next() {
		g, err := r.scanGap(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, g)
	}
	return items, total, nil
}

func (r *gapRepoPG) Clinics(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT clinic FROM measure_gap ORDER BY clinic`)
}

func (r *gapRepoPG) Measures(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT measure_code FROM measure_gap ORDER BY measure_code`)
}

func (r *gapRepoPG) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
