package services

import (
	"errors"
	"fmt"
	"strings"

	"librasflow/internal/project"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrAuthRequired   = errors.New("authentication required")
	ErrPermission     = errors.New("permission denied")
	ErrNotFound       = errors.New("not found")
	ErrProvider       = errors.New("provider error")
	ErrNotImplemented = errors.New("not implemented")
	ErrConfiguration  = errors.New("configuration error")
	ErrTimeout        = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProvider
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the project status the workflow manager
// should persist after the stage fails. Input problems the user can correct
// (validation, configuration) leave the project pending its stage rather than
// recording a failed run; everything else is a genuine failure.
func FailureStatus(err error) project.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return project.StatusPending
	default:
		return project.StatusError
	}
}

// Retryable reports whether re-running the failed stage could plausibly
// succeed. Validation problems, missing entities, and unimplemented paths
// never benefit from a retry.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNotImplemented),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrAuthRequired),
		errors.Is(err, ErrPermission):
		return false
	default:
		return true
	}
}

// Message extracts the human-readable portion of a wrapped stage error,
// stripping the sentinel prefix so the text can be persisted on the project.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{
		ErrValidation, ErrAuthRequired, ErrPermission, ErrNotFound,
		ErrProvider, ErrNotImplemented, ErrConfiguration, ErrTimeout,
	} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
