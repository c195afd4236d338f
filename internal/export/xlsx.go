package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pdftablepro/pdftab/internal/entity"
)

// ToXLSX returns a real XLSX workbook for the extracted tables: one sheet per
// table, header row first. A single table lands on a sheet named "Table";
// several become "Table_1", "Table_2", and so on.
func ToXLSX(tables []entity.Table) ([]byte, error) {
	f := excelize.NewFile()

	if len(tables) == 0 {
		const sheet = "Table"
		if err := ensureSheet(f, sheet); err != nil {
			return nil, err
		}
		cell, _ := excelize.CoordinatesToCellName(1, 1)
		_ = f.SetCellValue(sheet, cell, PlaceholderNoData)
	}

	for i, table := range tables {
		sheet := "Table"
		if len(tables) > 1 {
			sheet = fmt.Sprintf("Table_%d", i+1)
		}
		if err := ensureSheet(f, sheet); err != nil {
			return nil, err
		}
		writeTableSheet(f, sheet, table)
	}

	// The default "Sheet1" is noise once real sheets exist.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func ensureSheet(f *excelize.File, sheet string) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	return nil
}

func writeTableSheet(f *excelize.File, sheet string, table entity.Table) {
	headers := table.Headers
	if len(headers) == 0 || len(table.Records) == 0 {
		cell, _ := excelize.CoordinatesToCellName(1, 1)
		_ = f.SetCellValue(sheet, cell, PlaceholderNoData)
		return
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range table.Records {
		for col, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, rec[h])
		}
		row++
	}

	// Widen columns enough that typical cell values stay readable.
	if last, err := excelize.ColumnNumberToName(len(headers)); err == nil {
		_ = f.SetColWidth(sheet, "A", last, 18)
	}
}
