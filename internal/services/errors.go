package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks recoverable network failures handled by reconnect,
	// rejoin, or bounded retry. Never surfaced unless retries exhaust.
	ErrTransient = errors.New("transient failure")
	// ErrUnrecoverable marks failures that exhaust the connect retry budget
	// and require user action.
	ErrUnrecoverable = errors.New("unrecoverable failure")
	// ErrJobFailed marks a download the backend reported as failed. Surfaced
	// per video, not retried automatically.
	ErrJobFailed = errors.New("job failed")
	// ErrNotFound marks lookups for entities the backend does not know.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks malformed input or configuration.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
