package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"outbreaksim/domain/stats"
	"outbreaksim/ports"
)

const recordColumns = `run_id, network_name, repetitions, time_horizon, latency,
	external_infection_probability, transmission_probability, false_negative_probability,
	tests_per_day, random_order, probability, ci_width, lower_ci, upper_ci,
	method, batch_size, alpha, created_at`

const upsertRecord = `
	INSERT INTO detection_results (` + recordColumns + `)
	VALUES (:run_id, :network_name, :repetitions, :time_horizon, :latency,
		:external_infection_probability, :transmission_probability, :false_negative_probability,
		:tests_per_day, :random_order, :probability, :ci_width, :lower_ci, :upper_ci,
		:method, :batch_size, :alpha, :created_at)
	ON CONFLICT (run_id, network_name, repetitions, time_horizon, latency,
		external_infection_probability, transmission_probability,
		false_negative_probability, tests_per_day)
	DO UPDATE SET
		random_order = EXCLUDED.random_order,
		probability = EXCLUDED.probability,
		ci_width = EXCLUDED.ci_width,
		lower_ci = EXCLUDED.lower_ci,
		upper_ci = EXCLUDED.upper_ci,
		method = EXCLUDED.method,
		batch_size = EXCLUDED.batch_size,
		alpha = EXCLUDED.alpha,
		created_at = EXCLUDED.created_at`

// DefaultListLimit caps ListRecords when the filter sets no limit.
const DefaultListLimit = 500

// ResultRepository implements ports.ResultRepository for PostgreSQL
type ResultRepository struct {
	db *sqlx.DB
}

var _ ports.ResultRepository = (*ResultRepository)(nil)

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// WriteRecords upserts records in one transaction.
func (r *ResultRepository) WriteRecords(ctx context.Context, records []stats.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertRecord)
	if err != nil {
		return classify("prepare upsert", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec); err != nil {
			return classify(fmt.Sprintf("upsert %s k=%d", rec.NetworkName, rec.TestsPerDay), err)
		}
	}
	return classify("commit", tx.Commit())
}

// ListRecords returns matching records, newest first.
func (r *ResultRepository) ListRecords(ctx context.Context, filter ports.ResultFilter) ([]stats.Record, error) {
	query, args := buildListQuery(filter)
	var out []stats.Record
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, classify("list records", err)
	}
	return out, nil
}

func buildListQuery(filter ports.ResultFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.RunID != "" {
		add("run_id = $%d", filter.RunID.String())
	}
	if filter.NetworkName != "" {
		add("network_name = $%d", filter.NetworkName)
	}
	if filter.TestsPerDay > 0 {
		add("tests_per_day = $%d", filter.TestsPerDay)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(recordColumns)
	sb.WriteString(" FROM detection_results")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	return sb.String(), args
}
