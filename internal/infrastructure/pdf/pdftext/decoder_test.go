package pdftext

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	if _, err := NewDecoder().Decode(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestDecodeRejectsNonPDF(t *testing.T) {
	_, err := NewDecoder().Decode(context.Background(), []byte("definitely not a pdf document"))
	if err == nil {
		t.Fatalf("expected error for non-pdf payload")
	}
}

func TestDecodeHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDecoder().Decode(ctx, []byte("%PDF-1.4")); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestDecodeReturnsWhenDeadlinePassesMidParse(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	decoder := &Decoder{decode: func([]byte) (domain.PDFText, error) {
		<-release
		return domain.PDFText{Text: "late"}, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := decoder.Decode(ctx, []byte("%PDF-1.4"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("decode did not return promptly: %s", elapsed)
	}
}

func TestDecodeReturnsParserResult(t *testing.T) {
	decoder := &Decoder{decode: func([]byte) (domain.PDFText, error) {
		return domain.PDFText{Text: "power of attorney", Pages: 2}, nil
	}}
	out, err := decoder.Decode(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Text != "power of attorney" || out.Pages != 2 {
		t.Fatalf("unexpected result %+v", out)
	}
}
