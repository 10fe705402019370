package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"weee-bot/api/internal/weee"
)

var ErrNotFound = sql.ErrNoRows

// ReportRepo persists classification outcomes keyed by session id.
// Optional: a nil repo means no persistence.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// ReportRow is what callers usually need back.
type ReportRow struct {
	ID         int64
	CreatedAt  time.Time
	SessionID  string
	Channel    string
	Sender     string
	CategoryID int
	Confidence float64
	Filtered   bool
	Result     weee.Result
}

// Save upserts the report for a session. A re-run of the same session
// overwrites the previous verdict.
func (r *ReportRepo) Save(ctx context.Context, channel, sender string, res *weee.Result) error {
	js, _ := json.Marshal(res)
	categoryID := 0
	if res.Category != nil {
		categoryID = res.Category.ID
	}
	const q = `
insert into weee_reports (
  session_id, channel, sender, category_id, confidence, filtered, result_json
) values ($1,$2,$3,$4,$5,$6,$7)
on conflict (session_id) do update
set channel = excluded.channel,
    sender = excluded.sender,
    category_id = excluded.category_id,
    confidence = excluded.confidence,
    filtered = excluded.filtered,
    result_json = excluded.result_json`
	_, err := r.DB.ExecContext(ctx, q,
		res.SessionID, channel, sender, categoryID, res.Confidence, res.Filtered != nil, js,
	)
	return err
}

// FindBySession fetches the stored report for one session.
func (r *ReportRepo) FindBySession(ctx context.Context, sessionID string) (*ReportRow, error) {
	const q = `
select id, created_at, session_id,
       coalesce(channel,'') as channel,
       coalesce(sender,'') as sender,
       coalesce(category_id,0) as category_id,
       coalesce(confidence,0) as confidence,
       filtered, result_json
from weee_reports
where session_id = $1`
	row := r.DB.QueryRowContext(ctx, q, sessionID)

	var (
		out ReportRow
		js  []byte
	)
	if err := row.Scan(&out.ID, &out.CreatedAt, &out.SessionID, &out.Channel, &out.Sender,
		&out.CategoryID, &out.Confidence, &out.Filtered, &js); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(js, &out.Result); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", sessionID, err)
	}
	return &out, nil
}

// PurgeOlderThan trims old reports so the table does not grow unbounded.
func (r *ReportRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from weee_reports where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
