package dataset

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/crec/internal/models"
)

const (
	sheetSpeeches = "speeches"
	sheetMeta     = "meta"
)

// xlsxColumns is the header row; text is last because long speeches continue
// into the cells to its right.
var xlsxColumns = []string{
	"id", "document_id", "source_file", "date", "chamber", "speaker",
	"speaker_bioguide", "title", "position", "text",
}

func writeXLSX(ctx context.Context, w io.Writer, ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSpeeches); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(xlsxColumns))
	for i, c := range xlsxColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetSpeeches, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range ds.Records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row := []interface{}{
			r.ID, r.DocumentID, r.SourceFile, r.Date, r.Chamber, r.Speaker,
			r.SpeakerBioguide, r.Title, r.Position,
		}
		for _, part := range splitCellText(r.Text, excelize.TotalCellChars) {
			row = append(row, part)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetSpeeches, cell, &row); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}

	if _, err := f.NewSheet(sheetMeta); err != nil {
		return fmt.Errorf("create meta sheet: %w", err)
	}
	for i, kv := range ds.Meta.pairs() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := []interface{}{kv[0], kv[1]}
		if err := f.SetSheetRow(sheetMeta, cell, &row); err != nil {
			return fmt.Errorf("write meta %s: %w", kv[0], err)
		}
	}
	return f.Write(w)
}

func readXLSX(ctx context.Context, path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetSpeeches)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheetSpeeches, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheetSpeeches)
	}
	textCol := len(xlsxColumns) - 1
	ds := &Dataset{}
	for n, row := range rows[1:] {
		if n%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(row) == 0 {
			continue
		}
		cells := make([]string, len(xlsxColumns))
		copy(cells, row)
		r := models.SpeechRecord{
			ID:              cells[0],
			DocumentID:      cells[1],
			SourceFile:      cells[2],
			Date:            cells[3],
			Chamber:         cells[4],
			Speaker:         cells[5],
			SpeakerBioguide: cells[6],
			Title:           cells[7],
		}
		if cells[8] != "" {
			pos, err := strconv.Atoi(cells[8])
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid position %q: %w", n+2, cells[8], err)
			}
			r.Position = pos
		}
		if len(row) > textCol {
			r.Text = strings.Join(row[textCol:], "")
		}
		ds.Records = append(ds.Records, r)
	}

	metaRows, err := f.GetRows(sheetMeta)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheetMeta, err)
	}
	for _, row := range metaRows {
		if len(row) == 0 {
			continue
		}
		value := ""
		if len(row) > 1 {
			value = row[1]
		}
		if err := ds.Meta.set(row[0], value); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// splitCellText cuts s into pieces of at most limit runes so no cell is truncated.
func splitCellText(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}
	var parts []string
	for len(runes) > limit {
		parts = append(parts, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
