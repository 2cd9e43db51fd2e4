// Package cause defines the closed set of EMM causes this core can emit
// (TS 24.301 Annex A) and the typed error used to carry one out of a
// sub-procedure to the Attach engine.
package cause

import "fmt"

// EMMCause is one of the causes this core is able to produce. The set is
// intentionally small: only the values the Attach procedure and its common
// sub-procedures can themselves decide to send.
type EMMCause int

const (
	Success           EMMCause = 0
	IllegalUE         EMMCause = 3
	IMEINotAccepted   EMMCause = 5
	ESMFailure        EMMCause = 19
	ProtocolError     EMMCause = 111
)

func (c EMMCause) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case IllegalUE:
		return "ILLEGAL_UE"
	case IMEINotAccepted:
		return "IMEI_NOT_ACCEPTED"
	case ESMFailure:
		return "ESM_FAILURE"
	case ProtocolError:
		return "PROTOCOL_ERROR"
	default:
		return fmt.Sprintf("CAUSE_%d", int(c))
	}
}

// Kind classifies a ProcedureError for the purposes of propagation: how
// the Attach engine should react when a sub-procedure or an ingress check
// fails.
type Kind int

const (
	// Transient marks failures of retransmission or reachability: a common
	// procedure that exhausted its timer or was aborted, or an ESM peer
	// that could not be reached.
	Transient Kind = iota
	ProtocolViolation
	AuthFailure
	PolicyDenied
	ESMError
	ResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case ProtocolViolation:
		return "protocol_violation"
	case AuthFailure:
		return "auth_failure"
	case PolicyDenied:
		return "policy_denied"
	case ESMError:
		return "esm_error"
	case ResourceExhausted:
		return "resource_exhausted"
	default:
		return "unknown"
	}
}

// ProcedureError is returned by the common sub-procedure engines (via their
// failure continuation) and by ingress checks in the Attach engine. It
// carries the EMM cause that should ultimately appear in an Attach Reject,
// plus an optional inner ESM PDU to piggy-back (the ESMError case).
type ProcedureError struct {
	Kind    Kind
	Cause   EMMCause
	ESMPDU  []byte
	Wrapped error
}

func (e *ProcedureError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("emm procedure failed: %s (%s): %v", e.Kind, e.Cause, e.Wrapped)
	}
	return fmt.Sprintf("emm procedure failed: %s (%s)", e.Kind, e.Cause)
}

func (e *ProcedureError) Unwrap() error { return e.Wrapped }

// New builds a ProcedureError for the given kind and cause.
func New(kind Kind, emmCause EMMCause) *ProcedureError {
	return &ProcedureError{Kind: kind, Cause: emmCause}
}

// Wrap builds a ProcedureError that also carries the underlying error.
func Wrap(kind Kind, emmCause EMMCause, err error) *ProcedureError {
	return &ProcedureError{Kind: kind, Cause: emmCause, Wrapped: err}
}

// WithESM attaches an inner ESM PDU to an existing ProcedureError, used for
// the ESMError case where the Attach Reject must carry the ESM response
// PDU returned by ESM.
func (e *ProcedureError) WithESM(pdu []byte) *ProcedureError {
	e.ESMPDU = pdu
	return e
}

// CauseOf extracts the EMM cause carried by err, defaulting to IllegalUE if
// err is not a *ProcedureError or carries no cause of its own.
func CauseOf(err error) EMMCause {
	var pe *ProcedureError
	if as, ok := err.(*ProcedureError); ok {
		pe = as
	}
	if pe == nil || pe.Cause == Success {
		return IllegalUE
	}
	return pe.Cause
}
