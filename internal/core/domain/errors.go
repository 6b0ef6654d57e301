// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors shared by adapters and services.
var (
	ErrAuthExpired    = errors.New("authorization expired")
	ErrNotFound       = errors.New("not found")
	ErrNetwork        = errors.New("network error")
	ErrCannotConnect  = errors.New("cannot connect to server")
	ErrUploadTimeout  = errors.New("upload timed out")
	ErrFileTooLarge   = errors.New("file too large")
	ErrScanSuppressed = errors.New("scan suppressed by cooldown")
	ErrKeyNotFound    = errors.New("key not found")
	ErrEmptyCart      = errors.New("cart is empty")
)

// ValidationError collects field-level problems found before any network call.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty validation error.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a problem with a field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = msg
}

// Required records a missing required field when value is blank.
func (e *ValidationError) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "is required")
	}
}

// HasErrors reports whether any problem was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns nil when nothing was recorded, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserMessage converts an error into text fit for a notification.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, ErrAuthExpired):
		return "Authentication failed. Please log in again."
	case errors.Is(err, ErrCannotConnect):
		return "Cannot connect to server. Please check your internet connection and server URL."
	case errors.Is(err, ErrUploadTimeout):
		return "Upload timed out. Please try again with a smaller file or check your connection."
	case errors.Is(err, ErrFileTooLarge):
		return "File is too large. Please choose a smaller file."
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your connection."
	case errors.Is(err, ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrEmptyCart):
		return "No items scanned."
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
