package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

const timeoutMessage = "Request timed out. The file may be too large or processing took too long. Please try a smaller file."

func mapErrorToHTTPStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), domain.IsKind(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest
	// Unreadable content is a server-side extraction failure.
	case isUnreadableContent(err):
		return http.StatusInternalServerError
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	// Gateway timeouts carry both kinds and stay 502; only the request budget is 504.
	case domain.IsKind(err, domain.ErrGateway),
		domain.IsKind(err, domain.ErrEmptyCompletion),
		domain.IsKind(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error, status int) string {
	switch status {
	case http.StatusGatewayTimeout:
		return timeoutMessage
	case http.StatusInternalServerError:
		if isUnreadableContent(err) {
			return err.Error()
		}
		return "unexpected error while processing the request"
	default:
		return err.Error()
	}
}

func isUnreadableContent(err error) bool {
	return domain.IsKind(err, domain.ErrPDFParse) ||
		domain.IsKind(err, domain.ErrOCR) ||
		domain.IsKind(err, domain.ErrEmptyText)
}

// isExtractionFailure reports errors raised before any model call, for which
// classify still answers with a negative verdict.
func isExtractionFailure(err error) bool {
	for _, kind := range []error{
		domain.ErrInvalidInput,
		domain.ErrFileTooLarge,
		domain.ErrUnsupportedType,
		domain.ErrPDFParse,
		domain.ErrOCR,
		domain.ErrEmptyText,
	} {
		if domain.IsKind(err, kind) {
			return true
		}
	}
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes)
}
