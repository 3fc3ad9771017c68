package workload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dialer-sim/dialer-sim/sim"
)

// TimeLayout is the timestamp format of call list files. Fractional seconds
// are accepted on input and written with microsecond precision.
const (
	TimeLayout      = "2006-01-02 15:04:05"
	timeWriteLayout = "2006-01-02 15:04:05.000000"
)

// Call list column names, in the order WriteCSV emits them.
const (
	ColCallStart          = "CallStartDateTime"
	ColOutcomeCode        = "OutcomeCode"
	ColOffsetConnect      = "OffsetConnect"
	ColOffsetDisconnect   = "OffsetDisconnect"
	ColCallEnd            = "CallEndDateTime"
	ColUniqueID           = "UniqueId"
	ColCauseCode          = "CauseCode"
	ColQueuedStart        = "QueuedStartDateTime"
	ColQueuedEnd          = "QueuedEndDateTime"
	ColQueued             = "Queued"
	ColTransferredToAgent = "TransferredToAgent"
)

// Columns lists every call list column.
var Columns = []string{
	ColCallStart, ColOutcomeCode, ColOffsetConnect, ColOffsetDisconnect, ColCallEnd,
	ColUniqueID, ColCauseCode, ColQueuedStart, ColQueuedEnd, ColQueued, ColTransferredToAgent,
}

// requiredColumns must be present in the header; the rest default to zero.
var requiredColumns = []string{ColCallStart, ColOutcomeCode, ColCallEnd, ColUniqueID}

// ErrMissingColumn is returned when a call list header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// ParseError reports a malformed call list cell. Line is 1-based and counts
// the header row.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads a call list from path, choosing the format by extension:
// .xlsx is read as a spreadsheet, anything else as CSV.
func Load(path string) ([]sim.SeedCallRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path)
	}
	return LoadCSV(path)
}

// LoadCSV reads a call list CSV file.
func LoadCSV(path string) ([]sim.SeedCallRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening call list: %w", err)
	}
	defer func() { _ = file.Close() }()

	records, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadCSV parses a call list from r. The first row is the header; columns are
// matched by name so their order does not matter.
func ReadCSV(r io.Reader) ([]sim.SeedCallRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	p, err := newRowParser(header)
	if err != nil {
		return nil, err
	}

	var records []sim.SeedCallRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		rec, err := p.parse(line, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadXLSX reads a call list from the first sheet of a spreadsheet laid out
// like the CSV format.
func LoadXLSX(path string) ([]sim.SeedCallRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening call list workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: sheet %q is empty", path, sheets[0])
	}

	p, err := newRowParser(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	records := make([]sim.SeedCallRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := p.parse(i+2, row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteCSV writes records as a call list CSV file with every column.
func WriteCSV(path string, records []sim.SeedCallRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating call list: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(formatRow(r)); err != nil {
			return fmt.Errorf("writing CSV row %s: %w", r.UniqueID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing call list: %w", err)
	}
	return file.Close()
}

func formatRow(r sim.SeedCallRecord) []string {
	return []string{
		formatTime(r.Start),
		r.OutcomeCode,
		strconv.FormatInt(r.OffsetConnectMs, 10),
		strconv.FormatInt(r.OffsetDisconnectMs, 10),
		formatTime(r.End),
		r.UniqueID,
		strconv.Itoa(r.CauseCode),
		formatTime(r.QueuedStart),
		formatTime(r.QueuedEnd),
		formatFlag(r.Queued),
		formatFlag(r.TransferredToAgent),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeWriteLayout)
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// rowParser maps column names to row positions.
type rowParser struct {
	index map[string]int
}

func newRowParser(header []string) (*rowParser, error) {
	p := &rowParser{index: make(map[string]int, len(header))}
	for i, name := range header {
		p.index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := p.index[col]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, col)
		}
	}
	return p, nil
}

func (p *rowParser) cell(row []string, col string) string {
	i, ok := p.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (p *rowParser) parse(line int, row []string) (sim.SeedCallRecord, error) {
	var (
		rec      sim.SeedCallRecord
		firstErr error
	)
	fail := func(col string, err error) {
		if firstErr == nil {
			firstErr = &ParseError{Line: line, Field: col, Err: err}
		}
	}
	timeCell := func(col string, required bool) time.Time {
		s := p.cell(row, col)
		if s == "" {
			if required {
				fail(col, errors.New("empty timestamp"))
			}
			return time.Time{}
		}
		t, err := time.Parse(TimeLayout, s)
		if err != nil {
			fail(col, err)
		}
		return t
	}
	intCell := func(col string) int64 {
		n, err := parseNumber(p.cell(row, col))
		if err != nil {
			fail(col, err)
		}
		return n
	}

	rec.UniqueID = p.cell(row, ColUniqueID)
	if rec.UniqueID == "" {
		fail(ColUniqueID, errors.New("empty id"))
	}
	rec.OutcomeCode = p.cell(row, ColOutcomeCode)
	rec.Start = timeCell(ColCallStart, true)
	rec.End = timeCell(ColCallEnd, true)
	rec.OffsetConnectMs = intCell(ColOffsetConnect)
	rec.OffsetDisconnectMs = intCell(ColOffsetDisconnect)
	rec.CauseCode = int(intCell(ColCauseCode))
	rec.QueuedStart = timeCell(ColQueuedStart, false)
	rec.QueuedEnd = timeCell(ColQueuedEnd, false)
	rec.Queued = intCell(ColQueued) == 1
	rec.TransferredToAgent = intCell(ColTransferredToAgent) == 1

	return rec, firstErr
}

// parseNumber reads an integer cell. Empty cells are zero and float notation
// such as "1500.0" is truncated toward zero.
func parseNumber(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	return int64(f), nil
}
