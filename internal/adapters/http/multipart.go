package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

// uploadForm is a parsed multipart request carrying one document.
type uploadForm struct {
	file   domain.UploadedFile
	values map[string][]string
}

func (f uploadForm) value(keys ...string) string {
	for _, key := range keys {
		if values := f.values[key]; len(values) > 0 {
			if v := strings.TrimSpace(values[0]); v != "" {
				return v
			}
		}
	}
	return ""
}

// readUploadForm accepts the file under any field name. Bodies larger than
// maxBytes plus form overhead are cut off with a MaxBytesError.
func readUploadForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return uploadForm{}, domain.WrapError(domain.ErrFileTooLarge, "read upload", fmt.Errorf("limit is %d bytes", maxBytes))
		}
		return uploadForm{}, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("missing file: %w", err))
	}

	form := uploadForm{values: r.MultipartForm.Value}
	fields := make([]string, 0, len(r.MultipartForm.File))
	for field, headers := range r.MultipartForm.File {
		if len(headers) > 0 {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return form, nil
	}
	sort.Strings(fields)
	header := r.MultipartForm.File[fields[0]][0]
	if header.Size > maxBytes {
		return uploadForm{}, domain.WrapError(domain.ErrFileTooLarge, "read upload", fmt.Errorf("%s is %d bytes, limit is %d", header.Filename, header.Size, maxBytes))
	}

	src, err := header.Open()
	if err != nil {
		return uploadForm{}, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return uploadForm{}, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}

	form.file = domain.NewUploadedFile(header.Filename, header.Header.Get("Content-Type"), data)
	return form, nil
}
