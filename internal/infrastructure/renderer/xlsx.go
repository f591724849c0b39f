package renderer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Document"

// convertXLSX lays the rendered text out as a single-column workbook, one
// line per row, with markdown-style headings widened into bold section rows.
func convertXLSX(renderedText string) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headingStyle, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 13}})
	if err != nil {
		return nil, fmt.Errorf("create heading style: %w", err)
	}

	row := 1
	for _, line := range strings.Split(renderedText, "\n") {
		cell := fmt.Sprintf("A%d", row)
		trimmed := strings.TrimSpace(line)
		if heading, ok := strings.CutPrefix(trimmed, "#"); ok {
			heading = strings.TrimLeft(heading, "# ")
			if err := file.SetCellValue(xlsxSheet, cell, heading); err != nil {
				return nil, fmt.Errorf("write heading: %w", err)
			}
			if err := file.SetCellStyle(xlsxSheet, cell, cell, headingStyle); err != nil {
				return nil, fmt.Errorf("style heading: %w", err)
			}
		} else if err := file.SetCellValue(xlsxSheet, cell, line); err != nil {
			return nil, fmt.Errorf("write line: %w", err)
		}
		row++
	}

	if err := file.SetColWidth(xlsxSheet, "A", "A", 90); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
