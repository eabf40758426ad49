package server

import (
	"strconv"
	"strings"

	"github.com/smallbiznis/guestlist/internal/validation"
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func boolValue(v *bool) bool {
	return v != nil && *v
}

func newValidationError(field, code string) error {
	return validation.Field(field, code)
}
