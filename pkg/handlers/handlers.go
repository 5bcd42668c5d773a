// Package handlers provides JSON request and response helpers for HTTP handlers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/linkguard/pkg/formatting"
)

// RespondJSON writes data as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as {"error": msg} with the given
// status code. Server errors log at error level, everything else at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "handler error", "error", err, "status", status)
	RespondJSON(w, status, map[string]string{"error": err.Error()})
}

// DecodeJSON decodes the request body into dst. On failure it returns
// the error and the status to answer with.
func DecodeJSON(r *http.Request, dst any) (int, error) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return BodyStatus(err), BodyError(err)
	}
	return http.StatusOK, nil
}

// BodyStatus maps a request body read error to a status: 413 when a
// MaxBytesReader limit was hit, 400 otherwise.
func BodyStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// BodyError rewrites a body size error to name the limit in readable
// units. Other errors are returned unchanged.
func BodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("request body exceeds %s limit: %w", formatting.FormatBytes(maxErr.Limit, 0), err)
	}
	return err
}
