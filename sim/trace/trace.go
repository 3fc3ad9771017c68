// Package trace persists the checkpoint history and run summary of a
// simulation.
package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dialer-sim/dialer-sim/sim"
)

// historySheet is the worksheet name used by WriteHistoryXLSX.
const historySheet = "history"

// column is one exported checkpoint field.
type column struct {
	name  string
	value func(cp sim.HistoryCheckpoint) any
}

// historyColumns matches the YAML field names of sim.HistoryCheckpoint.
var historyColumns = []column{
	{"current_time", func(cp sim.HistoryCheckpoint) any { return cp.Time }},
	{"number_created_calls", func(cp sim.HistoryCheckpoint) any { return cp.CreatedCalls }},
	{"number_ringing_calls", func(cp sim.HistoryCheckpoint) any { return cp.RingingCalls }},
	{"number_queued_calls", func(cp sim.HistoryCheckpoint) any { return cp.QueuedCalls }},
	{"number_talking_calls", func(cp sim.HistoryCheckpoint) any { return cp.TalkingCalls }},
	{"number_disconnected_calls", func(cp sim.HistoryCheckpoint) any { return cp.DisconnectedCalls }},
	{"number_free_agents", func(cp sim.HistoryCheckpoint) any { return cp.FreeAgents }},
	{"number_busy_agents", func(cp sim.HistoryCheckpoint) any { return cp.BusyAgents }},
	{"number_agents", func(cp sim.HistoryCheckpoint) any { return cp.TotalAgents }},
	{"total_number_answered_calls", func(cp sim.HistoryCheckpoint) any { return cp.Answered }},
	{"total_number_not_answered_calls", func(cp sim.HistoryCheckpoint) any { return cp.NotAnswered }},
	{"total_number_abandon_calls", func(cp sim.HistoryCheckpoint) any { return cp.Abandoned }},
	{"total_number_talking_calls", func(cp sim.HistoryCheckpoint) any { return cp.Talked }},
	{"total_number_calls", func(cp sim.HistoryCheckpoint) any { return cp.Calls }},
	{"total_agent_talk_time", func(cp sim.HistoryCheckpoint) any { return cp.AgentTalkTime }},
	{"total_agent_idle_time", func(cp sim.HistoryCheckpoint) any { return cp.AgentIdleTime }},
	{"current_talk_time", func(cp sim.HistoryCheckpoint) any { return cp.TalkTimeRatio }},
	{"current_abandonment_rate", func(cp sim.HistoryCheckpoint) any { return cp.AbandonmentRate }},
}

// HistoryColumns returns the header row written by the history exporters.
func HistoryColumns() []string {
	names := make([]string, len(historyColumns))
	for i, c := range historyColumns {
		names[i] = c.name
	}
	return names
}

// WriteHistory writes checkpoints to path, as a spreadsheet when the
// extension is .xlsx and as CSV otherwise.
func WriteHistory(path string, checkpoints []sim.HistoryCheckpoint) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return WriteHistoryXLSX(path, checkpoints)
	}
	return WriteHistoryCSV(path, checkpoints)
}

// WriteHistoryCSV writes one row per checkpoint in time order.
func WriteHistoryCSV(path string, checkpoints []sim.HistoryCheckpoint) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating history file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(HistoryColumns()); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	row := make([]string, len(historyColumns))
	for _, cp := range checkpoints {
		for i, c := range historyColumns {
			row[i] = formatValue(c.value(cp))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row at %d: %w", cp.Time, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing history file: %w", err)
	}
	return file.Close()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// WriteHistoryXLSX writes checkpoints to a single-sheet workbook with a
// frozen header row.
func WriteHistoryXLSX(path string, checkpoints []sim.HistoryCheckpoint) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), historySheet); err != nil {
		return fmt.Errorf("naming history sheet: %w", err)
	}
	header := make([]any, len(historyColumns))
	for i, c := range historyColumns {
		header[i] = c.name
	}
	if err := f.SetSheetRow(historySheet, "A1", &header); err != nil {
		return fmt.Errorf("writing history header: %w", err)
	}
	for r, cp := range checkpoints {
		row := make([]any, len(historyColumns))
		for i, c := range historyColumns {
			row[i] = c.value(cp)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return fmt.Errorf("writing history row at %d: %w", cp.Time, err)
		}
	}
	if err := f.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing history header: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving history workbook: %w", err)
	}
	return nil
}
