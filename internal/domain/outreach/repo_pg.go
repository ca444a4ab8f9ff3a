package outreach

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

var (
	// ErrNotFound is returned when no ledger row matches.
	ErrNotFound = errors.New("outreach: not found")
	// ErrConflict is returned when a row exists but its status does not
	// permit the requested transition.
	ErrConflict = errors.New("outreach: transition not allowed")
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type outreachRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &outreachRepoPG{pool: pool}
}

func (r *outreachRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const outreachCols = `id, patient_id, patient_name, measure_code, channel, destination, status, token,
	provider_message_id, fail_reason, queued_at, sent_at, clicked_at, completed_at, created_at, updated_at`

func (r *outreachRepoPG) scanOutreach(row pgx.Row) (*OutreachRecord, error) {
	var o OutreachRecord
	err := row.Scan(&o.ID, &o.PatientID, &o.PatientName, &o.MeasureCode, &o.Channel, &o.Destination,
		&o.Status, &o.Token, &o.ProviderMessageID, &o.FailReason,
		&o.QueuedAt, &o.SentAt, &o.ClickedAt, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &o, err
}

func (r *outreachRepoPG) Create(ctx context.Context, o *OutreachRecord) error {
	o.ID = uuid.New()
	if o.Status == "" {
		o.Status = StatusQueued
	}
	now := time.Now().UTC()
	if o.QueuedAt.IsZero() {
		o.QueuedAt = now
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO outreach (id, patient_id, patient_name, measure_code, channel, destination, status, token, queued_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.PatientID, o.PatientName, o.MeasureCode, o.Channel, o.Destination, o.Status, o.Token, o.QueuedAt, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *outreachRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*OutreachRecord, error) {
	return r.scanOutreach(r.conn(ctx).QueryRow(ctx, `SELECT `+outreachCols+` FROM outreach WHERE id = $1`, id))
}

func (r *outreachRepoPG) GetByToken(ctx context.Context, token string) (*OutreachRecord, error) {
	return r.scanOutreach(r.conn(ctx).QueryRow(ctx, `SELECT `+outreachCols+` FROM outreach WHERE token = $1`, token))
}

func (r *outreachRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*OutreachRecord, int, error) {
	where := ``
	args := []interface{}{}
	add := func(clause string, val interface{}) {
		args = append(args, val)
		if where == "" {
			where = fmt.Sprintf(" WHERE %s = $%d", clause, len(args))
		} else {
			where += fmt.Sprintf(" AND %s = $%d", clause, len(args))
		}
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.PatientID != "" {
		add("patient_id", filter.PatientID)
	}
	if filter.MeasureCode != "" {
		add("measure_code", filter.MeasureCode)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM outreach`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM outreach%s ORDER BY queued_at DESC LIMIT $%d OFFSET $%d`,
		outreachCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*OutreachRecord
	for rows.Next() {
		o, err := r.scanOutreach(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, nil
}

func (r *outreachRepoPG) ListQueued(ctx context.Context, limit int) ([]*OutreachRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+outreachCols+` FROM outreach WHERE status = 'queued' ORDER BY queued_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OutreachRecord
	for rows.Next() {
		o, err := r.scanOutreach(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, nil
}

// checkRow maps a zero-row conditional update to ErrNotFound or
// ErrConflict depending on whether the row exists at all.
func (r *outreachRepoPG) checkRow(ctx context.Context, clause string, arg interface{}) error {
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM outreach WHERE `+clause+` = $1)`, arg).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *outreachRepoPG) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE outreach SET status = 'sent', sent_at = NOW(), provider_message_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'queued'`, id, providerMessageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.checkRow(ctx, "id", id)
	}
	return nil
}

// MarkFailed records a dispatch failure. A provider can bounce a message
// after reporting success, so failure is accepted from sent as well as
// queued.
func (r *outreachRepoPG) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE outreach SET status = 'failed', fail_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('queued','sent')`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.checkRow(ctx, "id", id)
	}
	return nil
}

// MarkClicked stamps the first click on a token. Repeat clicks affect
// zero rows and succeed; only a token with no ledger row at all is an
// error.
func (r *outreachRepoPG) MarkClicked(ctx context.Context, token string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE outreach SET clicked_at = NOW(),
			status = CASE WHEN status = 'sent' THEN 'clicked' ELSE status END,
			updated_at = NOW()
		WHERE token = $1 AND clicked_at IS NULL`, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if err := r.checkRow(ctx, "token", token); !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return nil
}

// MarkCompleted closes out an outreach whose measure was satisfied.
// Repeat completions affect zero rows and succeed.
func (r *outreachRepoPG) MarkCompleted(ctx context.Context, token string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE outreach SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE token = $1 AND completed_at IS NULL AND status <> 'failed'`, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if err := r.checkRow(ctx, "token", token); !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return nil
}

func (r *outreachRepoPG) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM outreach GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
