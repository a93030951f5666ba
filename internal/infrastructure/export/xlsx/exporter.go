package xlsx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

const sheetName = "Documents"

var headers = []string{
	"Uploaded",
	"Section",
	"Name",
	"Type",
	"Size (bytes)",
	"Status",
	"Is POA",
	"POA Type",
	"Confidence",
	"State",
	"Principal",
	"Agents",
	"Summary",
	"Issues",
}

// Exporter writes documents to a single-sheet XLSX workbook.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(ctx context.Context, w io.Writer, docs []domain.Document) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for idx, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, rowCell(idx+2), rowValues(doc)); err != nil {
			return fmt.Errorf("write row %d: %w", idx+2, err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 20)
	_ = f.SetColWidth(sheetName, "C", "C", 32)
	_ = f.SetColWidth(sheetName, "H", "H", 28)
	_ = f.SetColWidth(sheetName, "M", "N", 60)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func rowCell(row int) string {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return cell
}

func rowValues(doc domain.Document) *[]any {
	values := []any{
		doc.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		doc.Section,
		doc.Name,
		doc.MimeType,
		doc.Size,
		string(doc.Status),
		"",
		"",
		"",
		doc.Jurisdiction,
		"",
		"",
		"",
		"",
	}
	if cls := doc.Classification; cls != nil {
		values[6] = yesNo(cls.IsPOA)
		if cls.POAType != nil {
			values[7] = *cls.POAType
		}
		values[8] = string(cls.Confidence)
	}
	if doc.HasAnalysis() {
		var analysis domain.Analysis
		if err := json.Unmarshal(doc.Analysis, &analysis); err == nil {
			if analysis.ExtractedFields.PrincipalName != nil {
				values[10] = *analysis.ExtractedFields.PrincipalName
			}
			values[11] = strings.Join(analysis.ExtractedFields.AgentNames, "; ")
			values[12] = analysis.Summary
			values[13] = strings.Join(analysis.Issues, "\n")
		}
	}
	return &values
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
