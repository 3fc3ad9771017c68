package workload

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

const sampleCSV = `CallStartDateTime,OutcomeCode,OffsetConnect,OffsetDisconnect,CallEndDateTime,UniqueId,CauseCode,QueuedStartDateTime,QueuedEndDateTime,Queued,TransferredToAgent
2017-03-01 09:00:00.250000,AC,3000,45000,2017-03-01 09:00:45.250000,a1,16,2017-03-01 09:00:05.000000,2017-03-01 09:00:20.500000,1,1
2017-03-01 09:00:01.000000,NU,0,0,2017-03-01 09:00:08.500000,a2,1,,,0,0
2017-03-01 09:00:02.000000,TR,1500.0,9000.0,2017-03-01 09:00:11.000000,a3,16,,,0.0,1.0
`

func TestReadCSV_ParsesRows(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}

	first := records[0]
	wantStart := time.Date(2017, 3, 1, 9, 0, 0, 250000000, time.UTC)
	if !first.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", first.Start, wantStart)
	}
	if first.OutcomeCode != "AC" || first.UniqueID != "a1" || first.CauseCode != 16 {
		t.Errorf("first = %+v", first)
	}
	if first.OffsetConnectMs != 3000 || first.OffsetDisconnectMs != 45000 {
		t.Errorf("offsets = %d/%d", first.OffsetConnectMs, first.OffsetDisconnectMs)
	}
	if !first.Queued || !first.TransferredToAgent {
		t.Errorf("flags queued=%v transferred=%v", first.Queued, first.TransferredToAgent)
	}
	if got := first.QueuedEnd.Sub(first.QueuedStart); got != 15500*time.Millisecond {
		t.Errorf("queued window = %v", got)
	}

	// Missing disconnect offset is back-computed from the timestamps.
	if got := records[1].DisconnectOffset(); got != 7500 {
		t.Errorf("back-computed disconnect = %d, want 7500", got)
	}
	if !records[1].QueuedStart.IsZero() {
		t.Errorf("empty queued start parsed as %v", records[1].QueuedStart)
	}

	// Float notation is accepted for numeric columns.
	if records[2].OffsetConnectMs != 1500 || records[2].Queued || !records[2].TransferredToAgent {
		t.Errorf("third = %+v", records[2])
	}
}

func TestReadCSV_ColumnOrderDoesNotMatter(t *testing.T) {
	in := "UniqueId,CallEndDateTime,OutcomeCode,CallStartDateTime\n" +
		"x,2017-03-01 09:00:10,AM,2017-03-01 09:00:00\n"
	records, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if records[0].UniqueID != "x" || records[0].OutcomeCode != "AM" || records[0].DisconnectOffset() != 10000 {
		t.Errorf("record = %+v", records[0])
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("CallStartDateTime,OutcomeCode,CallEndDateTime\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("err = %v, want ErrMissingColumn", err)
	}
}

func TestReadCSV_ParseErrorLocatesCell(t *testing.T) {
	in := strings.Replace(sampleCSV, "2017-03-01 09:00:08.500000", "yesterday", 1)

	_, err := ReadCSV(strings.NewReader(in))

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Line != 3 || pe.Field != ColCallEnd {
		t.Errorf("ParseError at line %d column %s, want line 3 column %s", pe.Line, pe.Field, ColCallEnd)
	}
}

func TestReadCSV_BadNumber(t *testing.T) {
	in := strings.Replace(sampleCSV, ",3000,", ",soon,", 1)
	_, err := ReadCSV(strings.NewReader(in))
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Field != ColOffsetConnect {
		t.Errorf("err = %v, want ParseError on %s", err, ColOffsetConnect)
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	cfg := DefaultSynthesisConfig()
	cfg.Count = 40
	records, err := Synthesize(cfg, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "calls.csv")

	if err := WriteCSV(path, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(records, got) {
		t.Errorf("round trip changed records:\nwant %+v\n got %+v", records[0], got[0])
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{ColUniqueID, ColOutcomeCode, ColCallStart, ColCallEnd, ColQueued},
		{"q1", "QT", "2017-03-01 09:00:00.000000", "2017-03-01 09:00:30.000000", "1"},
		{"n1", "E", "2017-03-01 09:00:01.000000", "2017-03-01 09:00:05.000000", "0"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if !records[0].Queued || records[0].DisconnectOffset() != 30000 {
		t.Errorf("first = %+v", records[0])
	}
	if records[1].OutcomeCode != "E" || records[1].Queued {
		t.Errorf("second = %+v", records[1])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}
