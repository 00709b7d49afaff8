package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure into the domain taxonomy. Callers branch
// on kind, not on provider status codes.
type Kind int

const (
	// KindUnknown is a failure that fits no other kind.
	KindUnknown Kind = iota
	// KindRateLimited means the provider throttled the call; retryable after backoff.
	KindRateLimited
	// KindQuotaExhausted means the account is out of credit; fatal until an
	// external top-up, must not be retried automatically.
	KindQuotaExhausted
	// KindUpstream is a generic non-2xx provider failure; retryable with caution.
	KindUpstream
	// KindMalformedCompletion means the completion body could not be parsed as
	// the requested schema.
	KindMalformedCompletion
	// KindSchemaViolation means the completion parsed but violated the domain
	// schema (out-of-taxonomy value, missing required flag).
	KindSchemaViolation
	// KindTimeout means the upstream call exceeded the caller-supplied deadline.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindUpstream:
		return "upstream_failure"
	case KindMalformedCompletion:
		return "malformed_completion"
	case KindSchemaViolation:
		return "schema_violation"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may be retried.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindUpstream, KindTimeout:
		return true
	default:
		return false
	}
}

// Error is a gateway failure carrying its domain kind.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a gateway error of the given kind.
func NewError(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: cause}
}

// KindOf extracts the domain kind from an error chain. Non-gateway errors
// report KindUnknown.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the error chain carries a retryable gateway kind.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
