package xlsx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

func TestExportWritesHeaderAndRows(t *testing.T) {
	poaType := "Medical Power of Attorney"
	docs := []domain.Document{
		{
			ID:             "doc-1",
			Section:        "clients",
			Name:           "poa.pdf",
			MimeType:       "application/pdf",
			Size:           2048,
			Status:         domain.StatusReady,
			Classification: &domain.Classification{IsPOA: true, POAType: &poaType, Confidence: domain.ConfidenceHigh},
			Jurisdiction:   "Texas",
			Analysis:       []byte(`{"extractedFields":{"principalName":"Jane Doe","agentNames":["John Roe","Ann Poe"]},"summary":"Medical POA.","issues":["No notary"]}`),
			CreatedAt:      time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:        "doc-2",
			Section:   "clients",
			Name:      "scan.png",
			MimeType:  "image/png",
			Status:    domain.StatusUploaded,
			CreatedAt: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := NewExporter().Export(context.Background(), &buf, docs); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two rows, got %d", len(rows))
	}
	if rows[0][0] != "Uploaded" || rows[0][13] != "Issues" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	first := rows[1]
	if first[2] != "poa.pdf" || first[6] != "yes" || first[7] != poaType || first[9] != "Texas" {
		t.Fatalf("unexpected first row: %v", first)
	}
	if first[10] != "Jane Doe" || first[11] != "John Roe; Ann Poe" || first[12] != "Medical POA." {
		t.Fatalf("unexpected analysis columns: %v", first)
	}
	if rows[2][2] != "scan.png" || rows[2][5] != "uploaded" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}
