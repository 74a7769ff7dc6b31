package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	catalog "apitest-backend"
	"apitest-backend/internal/executor"
)

const (
	resultsSheet       = "Results"
	defaultColumnWidth = 18
	failBgColor        = "FF5900"
	errorBgColor       = "FFEB9C"
)

var excelHeaders = []string{
	"Test ID", "Method", "URL", "Expected Status", "Actual Status", "Verdict",
	"Duration (ms)", "Expected Body", "Actual Body", "Diff", "Error", "Curl",
}

// Workbook builds a results workbook with one row per outcome followed by a
// summary block. Failed rows are red, errored rows yellow.
func Workbook(outcomes []executor.Outcome, summary executor.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(excelHeaders))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(resultsSheet, "A", lastCol, defaultColumnWidth); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := writeRow(f, 1, headerCells()); err != nil {
		return nil, err
	}

	failStyle, err := fillStyle(f, failBgColor)
	if err != nil {
		return nil, err
	}
	errorStyle, err := fillStyle(f, errorBgColor)
	if err != nil {
		return nil, err
	}

	for i, o := range outcomes {
		row := i + 2
		tc, res := o.Test, o.Result
		cells := []any{
			tc.ID, tc.Method, tc.URL, tc.ExpectedStatusCode, res.ActualStatusCode, string(res.Verdict),
			res.DurationMS, string(tc.ExpectedResponse), string(res.ActualResponse), res.Diff, res.Error, Curl(tc),
		}
		if err := writeRow(f, row, cells); err != nil {
			return nil, err
		}
		style := 0
		switch res.Verdict {
		case catalog.VerdictFailed:
			style = failStyle
		case catalog.VerdictError:
			style = errorStyle
		}
		if style != 0 {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(excelHeaders), row)
			if err := f.SetCellStyle(resultsSheet, first, last, style); err != nil {
				return nil, fmt.Errorf("style row %d: %w", row, err)
			}
		}
	}

	start := len(outcomes) + 3
	summaryRows := [][]any{
		{"Run", summary.RunID},
		{"Total", summary.Total},
		{"Passed", summary.Passed},
		{"Failed", summary.Failed},
		{"Errored", summary.Errored},
		{"Duration", (time.Duration(summary.DurationMS) * time.Millisecond).String()},
	}
	for i, cells := range summaryRows {
		if err := writeRow(f, start+i, cells); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteExcel saves the results workbook to path.
func WriteExcel(path string, outcomes []executor.Outcome, summary executor.Summary) error {
	f, err := Workbook(outcomes, summary)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func headerCells() []any {
	cells := make([]any, len(excelHeaders))
	for i, h := range excelHeaders {
		cells[i] = h
	}
	return cells
}

func writeRow(f *excelize.File, row int, cells []any) error {
	for i, value := range cells {
		name, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(resultsSheet, name, value); err != nil {
			return fmt.Errorf("write cell %s: %w", name, err)
		}
	}
	return nil
}

func fillStyle(f *excelize.File, color string) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	return style, nil
}
