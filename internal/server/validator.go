package server

import (
	"fmt"
	"strings"
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// validateLine checks that a chat line is non-blank and within the
// configured length bound.
func validateLine(line string, maxLen int) error {
	errs := make(map[string]string)

	if strings.TrimSpace(line) == "" {
		errs["line"] = "line is required"
	} else if maxLen > 0 && len(line) > maxLen {
		errs["line"] = fmt.Sprintf("line exceeds maximum length of %d bytes", maxLen)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
