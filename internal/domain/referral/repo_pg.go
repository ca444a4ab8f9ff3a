package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexahealth/qscore/internal/platform/db"
)

// ErrNotFound is returned when no referral request matches the ID.
var ErrNotFound = errors.New("referral: not found")

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type referralRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &referralRepoPG{pool: pool}
}

func (r *referralRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const referralCols = `id, outreach_id, patient_id, measure_code, reason, free_text, status, created_at, updated_at`

func (r *referralRepoPG) scanReferral(row pgx.Row) (*ReferralRequest, error) {
	var rr ReferralRequest
	err := row.Scan(&rr.ID, &rr.OutreachID, &rr.PatientID, &rr.MeasureCode,
		&rr.Reason, &rr.FreeText, &rr.Status, &rr.CreatedAt, &rr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rr, err
}

func (r *referralRepoPG) Create(ctx context.Context, rr *ReferralRequest) error {
	rr.ID = uuid.New()
	if rr.Status == "" {
		rr.Status = StatusNew
	}
	now := time.Now().UTC()
	rr.CreatedAt = now
	rr.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO referral_request (id, outreach_id, patient_id, measure_code, reason, free_text, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rr.ID, rr.OutreachID, rr.PatientID, rr.MeasureCode, rr.Reason, rr.FreeText, rr.Status, rr.CreatedAt, rr.UpdatedAt)
	return err
}

func (r *referralRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ReferralRequest, error) {
	return r.scanReferral(r.conn(ctx).QueryRow(ctx, `SELECT `+referralCols+` FROM referral_request WHERE id = $1`, id))
}

func (r *referralRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*ReferralRequest, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM referral_request`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM referral_request%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		referralCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ReferralRequest
	for rows.Next() {
		rr, err := r.scanReferral(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rr)
	}
	return items, total, nil
}

func (r *referralRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE referral_request SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
