package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"outbreaksim/domain/stats"
	"outbreaksim/ports"
)

// DefaultSheet is the worksheet the XLSX sink writes to.
const DefaultSheet = "Detection"

// XLSXSink writes records to one worksheet of a workbook. Numeric columns
// are stored as numbers. Append semantics match CSVSink.
type XLSXSink struct {
	Path   string
	Sheet  string
	Append bool
}

var _ ports.ResultSink = (*XLSXSink)(nil)

func NewXLSXSink(path string, appendMode bool) *XLSXSink {
	return &XLSXSink{Path: path, Sheet: DefaultSheet, Append: appendMode}
}

func (s *XLSXSink) WriteRecords(ctx context.Context, records []stats.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, next, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	for _, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		row := xlsxRow(r)
		if err := f.SetSheetRow(s.Sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", next, err)
		}
		next++
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := f.SaveAs(s.Path); err != nil {
		return fmt.Errorf("save %s: %w", s.Path, err)
	}
	return nil
}

// open returns the workbook to write to and the first free row (1-based).
func (s *XLSXSink) open() (*excelize.File, int, error) {
	if s.Append {
		if _, err := os.Stat(s.Path); err == nil {
			f, err := excelize.OpenFile(s.Path)
			if err != nil {
				return nil, 0, fmt.Errorf("open %s: %w", s.Path, err)
			}
			idx, err := f.GetSheetIndex(s.Sheet)
			if err != nil {
				f.Close()
				return nil, 0, err
			}
			if idx == -1 {
				if _, err := f.NewSheet(s.Sheet); err != nil {
					f.Close()
					return nil, 0, err
				}
			}
			rows, err := f.GetRows(s.Sheet)
			if err != nil {
				f.Close()
				return nil, 0, err
			}
			if len(rows) == 0 {
				return f, 2, writeXLSXHeader(f, s.Sheet)
			}
			return f, len(rows) + 1, nil
		}
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", s.Sheet); err != nil {
		f.Close()
		return nil, 0, err
	}
	if err := writeXLSXHeader(f, s.Sheet); err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, 2, nil
}

func writeXLSXHeader(f *excelize.File, sheet string) error {
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func xlsxRow(r stats.Record) []interface{} {
	return []interface{}{
		r.NetworkName,
		r.Repetitions,
		r.TimeHorizon,
		r.Latency,
		r.ExternalInfectionProbability,
		r.TransmissionProbability,
		r.FalseNegativeProbability,
		r.TestsPerDay,
		r.RandomOrder,
		r.Probability,
		r.CIWidth,
		r.LowerCI,
		r.UpperCI,
		r.Method,
		r.BatchSize,
		r.Alpha,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
