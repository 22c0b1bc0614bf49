package ocr

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
)

// WriteXLSX writes a batch report as a spreadsheet: one row per file plus
// a summary block, for reviewers who work outside the terminal.
func WriteXLSX(report Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headers := []string{"File", "LaTeX", "Status"}
	for i, h := range headers {
		write(i+1, 1, h)
	}
	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "B", "B", 64)
	_ = f.SetColWidth(sheet, "C", "C", 12)

	failed := make(map[string]bool, len(report.Errors))
	for _, e := range report.Errors {
		failed[e.File] = true
	}

	row := 2
	for _, name := range sortedKeys(report.Results) {
		status := "ok"
		if failed[name] {
			status = "error"
		}
		write(1, row, name)
		write(2, row, report.Results[name])
		write(3, row, status)
		row++
	}

	row++
	summary := []struct {
		label string
		value int
	}{
		{"Total", report.Count},
		{"Succeeded", report.SuccessCount},
		{"Simple", report.SimpleCount},
		{"Complex", report.ComplexCount},
	}
	for _, s := range summary {
		write(1, row, s.label)
		write(2, row, s.value)
		row++
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing spreadsheet: %w", err)
	}
	return nil
}

// WriteHTML renders a batch report as a reviewable page with recognized
// LaTeX typeset as MathML.
func WriteHTML(report Report, path string) error {
	md := goldmark.New(
		goldmark.WithExtensions(
			treeblood.MathML(),
		),
	)

	failed := make(map[string]bool, len(report.Errors))
	for _, e := range report.Errors {
		failed[e.File] = true
	}

	var source bytes.Buffer
	source.WriteString("# Recognition Results\n\n")
	fmt.Fprintf(&source, "%d files, %d succeeded, %d simple, %d complex\n\n",
		report.Count, report.SuccessCount, report.SimpleCount, report.ComplexCount)

	for _, name := range sortedKeys(report.Results) {
		fmt.Fprintf(&source, "## %s\n\n", name)
		if failed[name] {
			fmt.Fprintf(&source, "`%s`\n\n", report.Results[name])
			continue
		}
		fmt.Fprintf(&source, "$$%s$$\n\n", report.Results[name])
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>Recognition Results</title></head>\n<body>\n")
	if err := md.Convert(source.Bytes(), &out); err != nil {
		return fmt.Errorf("rendering HTML: %w", err)
	}
	out.WriteString("</body>\n</html>\n")

	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing HTML: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
