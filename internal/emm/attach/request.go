// Package attach implements the Attach Procedure Engine: the
// top-level EMM state machine that classifies incoming Attach Requests,
// orchestrates the common sub-procedures, hands off to ESM, and emits
// Attach Accept/Reject.
package attach

import (
	"bytes"

	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
)

// AttachType distinguishes a normal EPS attach from an emergency one.
type AttachType int

const (
	TypeEPS AttachType = iota
	TypeEmergency
)

// RequestIEs is the immutable snapshot of a decoded Attach Request. It is
// owned by the Attach Procedure Record for the lifetime of that record.
type RequestIEs struct {
	IsInitial bool
	Type      AttachType

	IsNativeSecurityContext bool
	KSI                     uint8
	IsNativeGUTI            bool

	GUTI *emmcontext.GUTI
	IMSI string
	IMEI string

	LastVisitedRegisteredTAI *emmcontext.TAI
	OriginatingTAI           emmcontext.TAI
	OriginatingECGI          emmcontext.ECGI

	UENetworkCapability []byte
	MSNetworkCapability []byte
	DRXParameter        []byte

	ESMMsg []byte

	// NASIntegrityMatched records whether the Attach Request's NAS MAC
	// validated against an already-established Security Context ("IMSI
	// present, NAS-integrity MAC matched").
	NASIntegrityMatched bool
}

// Changed implements the IE-change predicate of: two
// snapshots are "changed" if any of the listed fields differ. ESM payload
// is deliberately excluded from the comparison.
func Changed(a, b *RequestIEs) bool {
	if a == nil || b == nil {
		return a != b
	}

	if a.Type != b.Type ||
		a.IsNativeSecurityContext != b.IsNativeSecurityContext ||
		a.KSI != b.KSI ||
		a.IsNativeGUTI != b.IsNativeGUTI {
		return true
	}

	if !gutiEqual(a.GUTI, b.GUTI) {
		return true
	}
	if a.IMSI != b.IMSI {
		return true
	}
	if a.IMEI != b.IMEI {
		return true
	}
	if !taiPtrEqual(a.LastVisitedRegisteredTAI, b.LastVisitedRegisteredTAI) {
		return true
	}
	if a.OriginatingTAI != b.OriginatingTAI {
		return true
	}
	if a.OriginatingECGI != b.OriginatingECGI {
		return true
	}
	if !bytes.Equal(a.UENetworkCapability, b.UENetworkCapability) {
		return true
	}
	if (a.MSNetworkCapability == nil) != (b.MSNetworkCapability == nil) {
		return true
	}
	if a.MSNetworkCapability != nil && !bytes.Equal(a.MSNetworkCapability, b.MSNetworkCapability) {
		return true
	}

	return false
}

func gutiEqual(a, b *emmcontext.GUTI) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func taiPtrEqual(a, b *emmcontext.TAI) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
