// Package notify delivers hoard cooldown reminders to their owners.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrRecipientUnreachable marks a delivery that failed for a reason that may
// clear up on its own: network errors, rate limits, upstream 5xx.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// Notifier sends a message to the owner of a hoard.
type Notifier interface {
	Notify(ctx context.Context, ownerID, message string) error
}

// PermanentError is a delivery failure that retrying will not fix, such as
// an unknown recipient or rejected credentials.
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent notify failure: " + e.Reason
	}
	return fmt.Sprintf("permanent notify failure: %s: %v", e.Reason, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth trying again on a later scan.
// Any error not explicitly permanent is treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	return !errors.As(err, &perm)
}

// Message renders the reminder sent when a hoard's cooldown has elapsed.
func Message(description string) string {
	return fmt.Sprintf("喂，%s 已經過了冷靜期。你還想買嗎？還是說這又是你一時衝動？", description)
}

// unreachable wraps err as a retryable delivery failure.
func unreachable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRecipientUnreachable, fmt.Sprintf(format, args...))
}

// classifyStatus maps an HTTP status from a delivery endpoint to an error.
func classifyStatus(op string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 429 || status >= 500:
		return unreachable("%s status %d: %s", op, status, body)
	default:
		return &PermanentError{Reason: fmt.Sprintf("%s status %d: %s", op, status, body)}
	}
}
