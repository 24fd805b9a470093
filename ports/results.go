package ports

import (
	"context"

	"outbreaksim/domain/core"
	"outbreaksim/domain/stats"
)

// ResultSink persists exported detection records (CSV, XLSX, database).
type ResultSink interface {
	WriteRecords(ctx context.Context, records []stats.Record) error
}

// ResultRepository stores and queries detection records.
type ResultRepository interface {
	ResultSink
	ListRecords(ctx context.Context, filter ResultFilter) ([]stats.Record, error)
}

// ResultFilter narrows ListRecords. Zero values mean "any".
type ResultFilter struct {
	RunID       core.RunID
	NetworkName string
	TestsPerDay int
	Limit       int
}
