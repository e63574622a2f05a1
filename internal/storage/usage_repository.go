package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eco_gateway/internal/carbon"
	"eco_gateway/internal/queue"
)

// UsageRow is one mirrored usage event
type UsageRow struct {
	ID               string    `db:"id"`
	RequestID        string    `db:"request_id"`
	APIKeyID         string    `db:"api_key_id"`
	UserID           string    `db:"user_id"`
	Model            string    `db:"model"`
	RequestTimestamp time.Time `db:"request_timestamp"`
	InputTokens      int64     `db:"input_tokens"`
	OutputTokens     int64     `db:"output_tokens"`
	EnergyKWh        float64   `db:"energy_kwh"`
	CarbonGCO2eq     float64   `db:"carbon_gco2eq"`
	CostEUR          float64   `db:"cost_eur"`
	CreatedAt        time.Time `db:"created_at"`
}

// UsageRowFromEvent flattens a queue event into a row
func UsageRowFromEvent(ev *queue.Event) UsageRow {
	return UsageRow{
		ID:               ev.ID,
		RequestID:        ev.RequestID,
		APIKeyID:         ev.APIKeyID,
		UserID:           ev.UserID,
		Model:            ev.Record.Model,
		RequestTimestamp: ev.Record.Timestamp,
		InputTokens:      ev.Record.InputTokens,
		OutputTokens:     ev.Record.OutputTokens,
		EnergyKWh:        ev.Record.EnergyKWh,
		CarbonGCO2eq:     ev.Record.CarbonGCO2eq,
		CostEUR:          ev.CostEUR,
	}
}

// Record converts the row back into an event-log record
func (r UsageRow) Record() carbon.UsageRecord {
	return carbon.UsageRecord{
		Timestamp:    r.RequestTimestamp.UTC(),
		Model:        r.Model,
		InputTokens:  r.InputTokens,
		OutputTokens: r.OutputTokens,
		EnergyKWh:    r.EnergyKWh,
		CarbonGCO2eq: r.CarbonGCO2eq,
	}
}

// UsageRepository handles usage record database operations
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Re-inserting an event that is already mirrored is a no-op so that retried
// batches stay idempotent.
const insertUsageQuery = `
	INSERT INTO usage_records (
		id, request_id, api_key_id, user_id, model, request_timestamp,
		input_tokens, output_tokens, energy_kwh, carbon_gco2eq, cost_eur
	) VALUES (
		:id, :request_id, :api_key_id, :user_id, :model, :request_timestamp,
		:input_tokens, :output_tokens, :energy_kwh, :carbon_gco2eq, :cost_eur
	)
	ON CONFLICT (id) DO NOTHING
`

// Create inserts a single usage row
func (r *UsageRepository) Create(ctx context.Context, row *UsageRow) error {
	if row.RequestTimestamp.IsZero() {
		row.RequestTimestamp = time.Now().UTC()
	}
	if _, err := r.db.conn.NamedExecContext(ctx, insertUsageQuery, row); err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}
	return nil
}

// WriteUsage inserts a batch of events in a single transaction
func (r *UsageRepository) WriteUsage(ctx context.Context, events []*queue.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		row := UsageRowFromEvent(ev)
		if _, err := tx.NamedExecContext(ctx, insertUsageQuery, &row); err != nil {
			return fmt.Errorf("failed to insert usage record %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a usage row by event ID
func (r *UsageRepository) GetByID(ctx context.Context, id string) (*UsageRow, error) {
	query := `
		SELECT id, request_id, api_key_id, user_id, model, request_timestamp,
		       input_tokens, output_tokens, energy_kwh, carbon_gco2eq, cost_eur, created_at
		FROM usage_records
		WHERE id = $1
	`

	var row UsageRow
	err := r.db.conn.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUsageRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}
	return &row, nil
}

// ListSince retrieves rows at or after since, oldest first. limit <= 0 means
// no limit.
func (r *UsageRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]UsageRow, error) {
	query := `
		SELECT id, request_id, api_key_id, user_id, model, request_timestamp,
		       input_tokens, output_tokens, energy_kwh, carbon_gco2eq, cost_eur, created_at
		FROM usage_records
		WHERE request_timestamp >= $1
		ORDER BY request_timestamp ASC, id ASC
	`
	args := []interface{}{since}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows := []UsageRow{}
	if err := r.db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	return rows, nil
}

// CallerTotals aggregates one caller's usage
type CallerTotals struct {
	Requests     int64   `db:"requests"`
	TotalTokens  int64   `db:"total_tokens"`
	CarbonGCO2eq float64 `db:"carbon_gco2eq"`
	CostEUR      float64 `db:"cost_eur"`
}

// GetTotalsByAPIKey sums usage for an API key in [startTime, endTime)
func (r *UsageRepository) GetTotalsByAPIKey(ctx context.Context, apiKeyID string, startTime, endTime time.Time) (CallerTotals, error) {
	query := `
		SELECT COUNT(*) AS requests,
		       COALESCE(SUM(input_tokens + output_tokens), 0) AS total_tokens,
		       COALESCE(SUM(carbon_gco2eq), 0) AS carbon_gco2eq,
		       COALESCE(SUM(cost_eur), 0) AS cost_eur
		FROM usage_records
		WHERE api_key_id = $1
		  AND request_timestamp >= $2
		  AND request_timestamp < $3
	`

	var totals CallerTotals
	if err := r.db.conn.GetContext(ctx, &totals, query, apiKeyID, startTime, endTime); err != nil {
		return CallerTotals{}, fmt.Errorf("failed to get usage totals: %w", err)
	}
	return totals, nil
}
