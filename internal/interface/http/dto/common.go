package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

// ParseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func ParseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, *raw)
	if err != nil {
		return nil, apperror.Validation(field + " must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	return &t, nil
}

func ParseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation(field + " must be a valid UUID")
	}
	return id, nil
}

func ParseOptionalUUID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := ParseUUID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func mapAll[T any, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
