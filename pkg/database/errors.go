package database

import "errors"

var (
	// ErrNotReady indicates the database connection has not been established.
	ErrNotReady = errors.New("database not ready")
	// ErrInvalidConfig wraps every database configuration validation failure.
	ErrInvalidConfig = errors.New("invalid database config")
)
