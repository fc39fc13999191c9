package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/AnshRaj112/crm-backend/internal/models"
)

const contactSheet = "Contacts"

var contactExportHeader = []string{
	"First Name", "Last Name", "Email", "Phone", "Company", "Job Title",
	"Tags", "Source", "Favorite", "Notes", "Last Contacted", "Created At",
}

var contactColumnWidths = []float64{15, 15, 28, 18, 22, 20, 25, 12, 10, 40, 20, 20}

func contactRow(c models.Contact) []string {
	favorite := "No"
	if c.IsFavorite {
		favorite = "Yes"
	}
	lastContacted := ""
	if c.LastContacted != nil {
		lastContacted = c.LastContacted.Format(time.RFC3339)
	}
	return []string{
		c.FirstName, c.LastName, c.Email, c.Phone, c.Company, c.JobTitle,
		strings.Join(c.Tags, ", "), string(c.Source), favorite, c.Notes,
		lastContacted, c.CreatedAt.Format(time.RFC3339),
	}
}

// ContactsCSV renders contacts as CSV with a header row.
func ContactsCSV(contacts []models.Contact) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(contactExportHeader); err != nil {
		return nil, err
	}
	for _, c := range contacts {
		if err := w.Write(contactRow(c)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContactsXLSX renders contacts as a single-sheet workbook with a frozen,
// styled header row.
func ContactsXLSX(contacts []models.Contact) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(contactSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(contactSheet); err == nil {
		f.SetActiveSheet(index)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range contactExportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(contactSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(contactSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(contactSheet, col, col, contactColumnWidths[i]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r, c := range contacts {
		for i, value := range contactRow(c) {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(contactSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(contactSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
