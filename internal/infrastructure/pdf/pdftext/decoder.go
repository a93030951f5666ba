package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

// Decoder reads the embedded text layer of a PDF. Scanned PDFs without a text
// layer decode to an empty string.
type Decoder struct {
	decode func([]byte) (domain.PDFText, error)
}

func NewDecoder() *Decoder {
	return &Decoder{decode: decodeText}
}

type decodeResult struct {
	text domain.PDFText
	err  error
}

// Decode parses data on a separate goroutine so a cancelled or expired ctx
// returns immediately. The parser itself cannot be interrupted and finishes in
// the background.
func (d *Decoder) Decode(ctx context.Context, data []byte) (domain.PDFText, error) {
	if err := ctx.Err(); err != nil {
		return domain.PDFText{}, err
	}
	if len(data) == 0 {
		return domain.PDFText{}, errors.New("empty pdf payload")
	}

	done := make(chan decodeResult, 1)
	go func() {
		text, err := d.decode(data)
		done <- decodeResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.PDFText{}, fmt.Errorf("decode pdf: %w", ctx.Err())
	case res := <-done:
		return res.text, res.err
	}
}

func decodeText(data []byte) (out domain.PDFText, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.PDFText{}
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.PDFText{}, fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return domain.PDFText{}, fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return domain.PDFText{}, fmt.Errorf("read pdf text: %w", err)
	}

	return domain.PDFText{
		Text:  strings.TrimSpace(string(raw)),
		Pages: pageCount(data, reader.NumPage()),
	}, nil
}

// pageCount prefers pdfcpu's structural count and falls back to the text
// reader's page tree when pdfcpu rejects the file.
func pageCount(data []byte, fallback int) (pages int) {
	defer func() {
		if r := recover(); r != nil {
			pages = fallback
		}
	}()
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		slog.Debug("pdf_page_count_fallback", "error", err.Error())
		return fallback
	}
	return count
}
