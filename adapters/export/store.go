package export

import (
	"context"
	"os"
	"sort"

	"outbreaksim/domain/stats"
	"outbreaksim/ports"
)

// CSVStore is a file-backed ResultRepository for running the results server
// without a database. Writes always append.
type CSVStore struct {
	sink *CSVSink
}

var _ ports.ResultRepository = (*CSVStore)(nil)

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{sink: NewCSVSink(path, true)}
}

func (s *CSVStore) WriteRecords(ctx context.Context, records []stats.Record) error {
	return s.sink.WriteRecords(ctx, records)
}

// ListRecords returns matching rows, newest first. A missing file is an
// empty result. The CSV layout has no run id, so a RunID filter matches
// nothing.
func (s *CSVStore) ListRecords(ctx context.Context, filter ports.ResultFilter) ([]stats.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filter.RunID != "" {
		return nil, nil
	}
	f, err := os.Open(s.sink.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	var out []stats.Record
	for _, r := range all {
		if filter.NetworkName != "" && r.NetworkName != filter.NetworkName {
			continue
		}
		if filter.TestsPerDay > 0 && r.TestsPerDay != filter.TestsPerDay {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
