package export

import (
	"bytes"
	"fmt"
	"sort"

	"titan/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// fixedColumns come first, in this order; pass-through fields follow
// alphabetically.
var fixedColumns = []string{"id", "status", "createdAt", "technicianId", "assignedAt"}

// BookingsXLSX renders bookings as a single-sheet workbook.
func BookingsXLSX(bookings []models.Booking) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	extra := extraColumns(bookings)
	headers := append(append([]string(nil), fixedColumns...), extra...)

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeader, style)

	for i, b := range bookings {
		row := i + 2
		values := []any{b.ID, b.Status, b.CreatedAt.UTC().Format("2006-01-02 15:04:05"), "", ""}
		if b.TechnicianID != nil {
			values[3] = *b.TechnicianID
		}
		if b.AssignedAt != nil {
			values[4] = b.AssignedAt.UTC().Format("2006-01-02 15:04:05")
		}
		for _, key := range extra {
			values = append(values, b.Field(key))
		}

		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("error writing cell %s: %w", cell, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "E", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error rendering workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func extraColumns(bookings []models.Booking) []string {
	set := map[string]struct{}{}
	for _, b := range bookings {
		for k := range b.Fields {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
