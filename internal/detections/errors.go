package detections

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/linkguard/pkg/repository"
)

// Domain errors for detection operations.
var (
	ErrNotFound       = errors.New("detection not found")
	ErrDuplicate      = errors.New("detection already exists")
	ErrInvalid        = errors.New("invalid detection")
	ErrMissingURL     = errors.New("Missing 'url'")
	ErrMissingApp     = errors.New("Missing 'app_info'")
	ErrMissingContent = errors.New("Missing 'content'")
)

var dbErrors = repository.Errors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalid,
}

// MapHTTPStatus maps detection domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalid) || errors.Is(err, ErrMissingURL) || errors.Is(err, ErrMissingApp) || errors.Is(err, ErrMissingContent) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
