// Package export writes detection records to CSV and XLSX files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"outbreaksim/domain/core"
	"outbreaksim/domain/stats"
	"outbreaksim/ports"
)

// Header is the column layout shared by the CSV and XLSX sinks.
var Header = []string{
	"Network name", "simulation reps", "t", "latency", "ext. infection prob",
	"int. infection prob", "fnrate", "no of tests per day", "random test order",
	"outbreak conditional prob", "CI width", "lower CI", "upper CI",
	"name of statistical test", "replication size", "alpha", "UTC",
}

// Row renders r in Header order.
func Row(r stats.Record) []string {
	return []string{
		r.NetworkName,
		strconv.Itoa(r.Repetitions),
		strconv.Itoa(r.TimeHorizon),
		strconv.Itoa(r.Latency),
		formatFloat(r.ExternalInfectionProbability),
		formatFloat(r.TransmissionProbability),
		formatFloat(r.FalseNegativeProbability),
		strconv.Itoa(r.TestsPerDay),
		strconv.FormatBool(r.RandomOrder),
		formatFloat(r.Probability),
		formatFloat(r.CIWidth),
		formatFloat(r.LowerCI),
		formatFloat(r.UpperCI),
		r.Method,
		strconv.Itoa(r.BatchSize),
		formatFloat(r.Alpha),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CSVSink writes records to a CSV file. With Append set, rows are added to
// an existing file and the header is written only when the file is new;
// otherwise the file is truncated and starts with the header.
type CSVSink struct {
	Path   string
	Append bool
}

var _ ports.ResultSink = (*CSVSink)(nil)

func NewCSVSink(path string, appendMode bool) *CSVSink {
	return &CSVSink{Path: path, Append: appendMode}
}

func (s *CSVSink) WriteRecords(ctx context.Context, records []stats.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	writeHeader := !s.Append
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		writeHeader = true
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if s.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.Path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, records, writeHeader); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes records to w, optionally preceded by Header.
func WriteCSV(w io.Writer, records []stats.Record, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(Header); err != nil {
			return err
		}
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV. Run ids are not part of the
// CSV layout and come back empty.
func ReadCSV(r io.Reader) ([]stats.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	var out []stats.Record
	for i, row := range rows {
		if i == 0 && row[0] == Header[0] {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string) (stats.Record, error) {
	p := rowParser{row: row}
	rec := stats.Record{
		NetworkName:                  row[0],
		Repetitions:                  p.atoi(1),
		TimeHorizon:                  p.atoi(2),
		Latency:                      p.atoi(3),
		ExternalInfectionProbability: p.parseFloat(4),
		TransmissionProbability:      p.parseFloat(5),
		FalseNegativeProbability:     p.parseFloat(6),
		TestsPerDay:                  p.atoi(7),
		RandomOrder:                  p.parseBool(8),
		Probability:                  p.parseFloat(9),
		CIWidth:                      p.parseFloat(10),
		LowerCI:                      p.parseFloat(11),
		UpperCI:                      p.parseFloat(12),
		Method:                       row[13],
		BatchSize:                    p.atoi(14),
		Alpha:                        p.parseFloat(15),
		CreatedAt:                    p.parseTime(16),
	}
	return rec, p.err
}

// rowParser keeps the first conversion error.
type rowParser struct {
	row []string
	err error
}

func (p *rowParser) fail(col int, err error) {
	if p.err == nil {
		p.err = core.NewValidationError(Header[col], err.Error())
	}
}

func (p *rowParser) atoi(col int) int {
	v, err := strconv.Atoi(p.row[col])
	if err != nil {
		p.fail(col, err)
	}
	return v
}

func (p *rowParser) parseFloat(col int) float64 {
	v, err := strconv.ParseFloat(p.row[col], 64)
	if err != nil {
		p.fail(col, err)
	}
	return v
}

func (p *rowParser) parseBool(col int) bool {
	v, err := strconv.ParseBool(p.row[col])
	if err != nil {
		p.fail(col, err)
	}
	return v
}

func (p *rowParser) parseTime(col int) time.Time {
	v, err := time.Parse(time.RFC3339Nano, p.row[col])
	if err != nil {
		p.fail(col, err)
	}
	return v
}
