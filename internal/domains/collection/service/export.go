package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/shared"
)

const catalogSheet = "Catalogue"

var catalogHeaders = []string{
	"Item ID",
	"Title",
	"Description",
	"Alt Text",
	"Veneration",
	"Commission Date",
	"Owned Since",
	"Monitory Value",
	"Filename",
	"MIME Type",
	"File Size (bytes)",
	"Width",
	"Height",
	"Uploaded At",
}

// ExportToExcel builds the catalogue of every item in a collection visible to actor.
func (s *CollectionService) ExportToExcel(ctx context.Context, actor shared.Actor, id int64) (*excelize.File, *model.Collection, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.repo.CatalogRows(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog rows: %w", err)
	}

	f, err := buildCatalogFile(c, rows)
	if err != nil {
		return nil, nil, fmt.Errorf("build excel file: %w", err)
	}
	return f, c, nil
}

func buildCatalogFile(c *model.Collection, rows []model.CatalogRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", catalogSheet); err != nil {
		return nil, err
	}

	for colIdx, header := range catalogHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		if err := f.SetCellValue(catalogSheet, cell, header); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(catalogHeaders), 1)
		_ = f.SetCellStyle(catalogSheet, "A1", lastCell, headerStyle)
	}

	for i, r := range rows {
		rowNum := i + 2
		values := []interface{}{
			r.ItemID,
			r.Title,
			deref(r.Description),
			deref(r.AltText),
			deref(r.Veneration),
			formatTime(r.CommissionDate),
			formatTime(r.OwnedSince),
			deref(r.MonitoryValue),
			r.Filename,
			r.MimeType,
			r.FileSize,
			derefInt(r.Width),
			derefInt(r.Height),
			r.UploadDate.UTC().Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(catalogSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   c.Name,
		Subject: "Collection catalogue",
	})
	return f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
