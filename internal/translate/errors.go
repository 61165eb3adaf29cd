package translate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransientError records a segment whose timeouts outlasted every retry.
// The segment keeps its source text.
type TransientError struct {
	SegmentID int
	Attempts  int
	Err       error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("segment %d: translation timed out after %d attempts: %v",
		e.SegmentID, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError records a segment whose translation failed without a
// timeout. It is never retried.
type PermanentError struct {
	SegmentID int
	Err       error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("segment %d: translation failed: %v", e.SegmentID, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTimeout reports whether err looks like a timeout and is worth retrying.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}
