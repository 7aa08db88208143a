package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("record already exists")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrVoucherUnavailable = errors.New("voucher cannot be redeemed")
)

// ValidationError collects per-field messages the same way a form would.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, format string, args ...interface{}) {
	e.Fields[field] = append(e.Fields[field], fmt.Sprintf(format, args...))
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, msg := range e.Fields[k] {
			parts = append(parts, k+": "+msg)
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OrNil returns nil when no field failed, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
