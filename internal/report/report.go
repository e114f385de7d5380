package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"censorwave/internal/timeline"
)

const (
	planSheet    = "Plan"
	summarySheet = "Summary"
)

var planHeader = []any{"#", "Kind", "Strategy", "Start", "End", "Start (ms)", "End (ms)", "Duration (ms)"}

// WritePlan saves plan for source as an XLSX workbook at path.
func WritePlan(path, source, mode string, plan timeline.Plan) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", planSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(planSheet, "A1", &planHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(planSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, entry := range plan.Entries {
		r := entry.Range
		row := []any{
			i + 1,
			string(r.Kind),
			string(entry.Strategy),
			Timestamp(r.StartMS),
			Timestamp(r.EndMS),
			r.StartMS,
			r.EndMS,
			r.DurationMS(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(planSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(planSheet, "B", "C", 16); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]any{
		{"Source", filepath.Base(source)},
		{"Mode", mode},
		{"Flagged ranges", plan.Count(timeline.KindFlagged)},
		{"Severe ranges", plan.Count(timeline.KindSevere)},
		{"Total ranges", len(plan.Entries)},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// ReadPlan loads the ranges and strategies from a workbook written by WritePlan.
func ReadPlan(path string) (timeline.Plan, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return timeline.Plan{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(planSheet)
	if err != nil {
		return timeline.Plan{}, fmt.Errorf("read rows: %w", err)
	}
	var plan timeline.Plan
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 7 {
			return timeline.Plan{}, fmt.Errorf("row %d: expected 7 columns, got %d", i+1, len(row))
		}
		start, err := strconv.ParseInt(row[5], 10, 64)
		if err != nil {
			return timeline.Plan{}, fmt.Errorf("row %d start: %w", i+1, err)
		}
		end, err := strconv.ParseInt(row[6], 10, 64)
		if err != nil {
			return timeline.Plan{}, fmt.Errorf("row %d end: %w", i+1, err)
		}
		plan.Entries = append(plan.Entries, timeline.Entry{
			Range:    timeline.TimeRange{StartMS: start, EndMS: end, Kind: timeline.Kind(row[1])},
			Strategy: timeline.Strategy(row[2]),
		})
	}
	return plan, nil
}

// LoadManifest reads source paths from the first sheet of a workbook. The
// column headed "path" or "file" is used, falling back to the first column.
// Relative paths resolve against the workbook's directory.
func LoadManifest(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("manifest %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read manifest rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("manifest %s has no data rows", path)
	}

	col := 0
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		if l == "path" || l == "file" {
			col = i
			break
		}
	}

	base := filepath.Dir(path)
	var sources []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if value == "" || strings.HasPrefix(value, "#") {
			continue
		}
		if !filepath.IsAbs(value) {
			value = filepath.Join(base, value)
		}
		sources = append(sources, value)
	}
	return sources, nil
}

// Timestamp formats ms as m:ss.mmm.
func Timestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
