package renderer

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestConvertXLSXProducesWorkbook(t *testing.T) {
	out, err := convertXLSX("# Vision\nour vision\n## Problem\nthe problem")
	if err != nil {
		t.Fatalf("convertXLSX() error = %v", err)
	}

	file, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows(xlsxSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0][0] != "Vision" {
		t.Fatalf("heading row = %q, want markdown marker stripped", rows[0][0])
	}
	if rows[1][0] != "our vision" {
		t.Fatalf("body row = %q", rows[1][0])
	}
}
