package feeds

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/linkguard/pkg/storage"
)

var (
	ErrUnknownFormat = errors.New("unknown feed format")
	ErrInvalidFeed   = errors.New("invalid feed")
	ErrMissingKey    = errors.New("Missing 'key'")
	ErrInvalidSector = errors.New("invalid sectors document")
)

// MapHTTPStatus maps feed errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownFormat),
		errors.Is(err, ErrInvalidFeed),
		errors.Is(err, ErrMissingKey):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEmptyKey), errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
