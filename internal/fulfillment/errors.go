package fulfillment

import (
	"errors"
	"fmt"
)

// LookupReason classifies why a customer lookup failed.
type LookupReason int

const (
	ReasonOther LookupReason = iota
	ReasonPermissionDenied
	ReasonNetwork
)

// String is the metric label of the reason.
func (r LookupReason) String() string {
	switch r {
	case ReasonPermissionDenied:
		return "permission_denied"
	case ReasonNetwork:
		return "network"
	default:
		return "other"
	}
}

// Text is the operator-facing description embedded in error markers.
func (r LookupReason) Text() string {
	switch r {
	case ReasonPermissionDenied:
		return "permessi negati"
	case ReasonNetwork:
		return "errore di rete"
	default:
		return "errore sconosciuto"
	}
}

// Directory implementations may return these to pick the reason explicitly.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNetwork          = errors.New("network failure")
)

// LookupError is a failed customer directory read.
type LookupError struct {
	UserID string
	Reason LookupReason
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup user %q: %s: %v", e.UserID, e.Reason, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// AggregationError fails a whole aggregation pass. No partial result accompanies it.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string { return "aggregate orders: " + e.Err.Error() }

func (e *AggregationError) Unwrap() error { return e.Err }

var (
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidEdit       = errors.New("invalid order edit")
)

// PersistenceError is a failed write. The stored order is left as it was.
type PersistenceError struct {
	Op      string
	OrderID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s order %s: %v", e.Op, e.OrderID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
