package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository is the persistence contract for call rows.
//
// This service only inserts; updates (contacted_count, outcome changes) belong to the dashboard.
type Repository interface {
	Insert(ctx context.Context, r Record) (Record, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]Record, error)
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]Record, error)
}

// NOTE: PostgresRepository assumes the calls table exists with the columns below,
// user_id referencing users(id) and transcript as jsonb.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, user_id, vapi_call_id, phone_number, caller_name, duration, status,
intent, confidence, outcome, vehicle_make, vehicle_model, vehicle_year, service_requested,
preferred_date, notes, summary, transcript, recording_url, contacted_count, created_at`

func (p *PostgresRepository) Insert(ctx context.Context, r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	const q = `
INSERT INTO calls (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
`
	_, err := p.db.ExecContext(ctx, q,
		r.ID,
		r.UserID,
		nullIfEmpty(r.ExternalCallID),
		r.PhoneNumber,
		r.CallerName,
		r.DurationSeconds,
		string(r.Status),
		string(r.Intent),
		r.Confidence,
		string(r.Outcome),
		r.VehicleMake,
		r.VehicleModel,
		r.VehicleYear,
		r.ServiceRequested,
		r.PreferredDate,
		r.Notes,
		r.Summary,
		jsonOrNil(r.Transcript),
		r.RecordingURL,
		r.ContactedCount,
		r.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("calls: insert %s: %w", r.ID, err)
	}
	return r, nil
}

func (p *PostgresRepository) ListRecent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if userID == "" {
		return nil, errors.New("calls: user_id required")
	}
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT ` + recordColumns + `
FROM calls
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := p.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (p *PostgresRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]Record, error) {
	if userID == "" {
		return nil, errors.New("calls: user_id required")
	}
	const q = `
SELECT ` + recordColumns + `
FROM calls
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at DESC
`
	rows, err := p.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			r          Record
			externalID sql.NullString
			status     string
			intent     string
			outcome    string
			transcript []byte
		)
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&externalID,
			&r.PhoneNumber,
			&r.CallerName,
			&r.DurationSeconds,
			&status,
			&intent,
			&r.Confidence,
			&outcome,
			&r.VehicleMake,
			&r.VehicleModel,
			&r.VehicleYear,
			&r.ServiceRequested,
			&r.PreferredDate,
			&r.Notes,
			&r.Summary,
			&transcript,
			&r.RecordingURL,
			&r.ContactedCount,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.ExternalCallID = externalID.String
		r.Status = Status(status)
		r.Intent = Intent(intent)
		r.Outcome = Outcome(outcome)
		if len(transcript) > 0 {
			r.Transcript = json.RawMessage(transcript)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func jsonOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
