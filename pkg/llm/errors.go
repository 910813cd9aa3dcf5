package llm

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
)

// ErrMalformedResponse marks output that failed schema validation at the
// model boundary. Callers must treat it per-partition, never batch-fatal.
var ErrMalformedResponse = eris.New("llm: malformed response")

// FailureKind distinguishes provider failure modes.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTimeout
	FailureRateLimit
	FailureProvider
	FailureMalformed
)

// Classify buckets an error from CreateMessage. The scorer uses this to
// decide between dropping a partition and retrying once on a rate limit.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, ErrMalformedResponse) {
		return FailureMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTimeout
	}
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 429 {
			return FailureRateLimit
		}
		return FailureProvider
	}
	return FailureProvider
}

// Retryable reports whether the failure is safe to retry within the same
// run. Only rate limits and 5xx-class provider errors qualify; timeouts are
// terminal for their partition so worst-case latency stays bounded.
func Retryable(err error) bool {
	switch Classify(err) {
	case FailureRateLimit:
		return true
	case FailureProvider:
		var apierr *sdk.Error
		if errors.As(err, &apierr) {
			return apierr.StatusCode >= 500
		}
	}
	return false
}
