// Package nas defines the boundary between the EMM procedure engines and
// the wire-level NAS encoder plus S1AP/eNB transport — both explicitly out
// of scope for this core. Transport is the extension point a
// real deployment plugs a codec and an S1AP stack into; it plays the same
// role here that the AUSF/NRF HTTP clients play for their SBI peers in the
// reference 5G core, except the peer on the other end is the UE itself,
// reached over a transport this package does not implement.
package nas

import (
	"context"
	"time"

	"github.com/oss-emm/epc-mme/internal/emm/cause"
	"github.com/oss-emm/epc-mme/internal/emm/security"
)

// IdentityType is the identity requested by an Identification procedure
//.
type IdentityType int

const (
	IdentityIMSI IdentityType = iota
	IdentityIMEI
	IdentityIMEISV
	IdentityTMSI
)

func (t IdentityType) String() string {
	switch t {
	case IdentityIMSI:
		return "IMSI"
	case IdentityIMEI:
		return "IMEI"
	case IdentityIMEISV:
		return "IMEISV"
	case IdentityTMSI:
		return "TMSI"
	default:
		return "UNKNOWN"
	}
}

// AttachAccept carries everything/§6 says the Attach Accept
// message must convey.
type AttachAccept struct {
	GUTI                     *GUTIValue
	TAIList                  []TAIValue
	EPSNetworkFeatureSupport []byte
	T3402                    time.Duration
	ESMPDU                   []byte
	SelectedEEA              security.Algorithm
	SelectedEIA              security.Algorithm
}

// GUTIValue and TAIValue are transport-shaped mirrors of
// internal/emm/context's GUTI/TAI, kept separate so this package never
// imports context (context is the caller of Transport, not the callee).
type GUTIValue struct {
	PLMNMCC, PLMNMNC string
	AMFRegionID      uint8
	AMFSetID         uint16
	AMFPointer       uint8
	MTMSI            uint32
}

type TAIValue struct {
	PLMNMCC, PLMNMNC string
	TAC              string
}

// Transport is the downlink NAS delivery surface. Every call is a
// best-effort send: transport/delivery failures are Transient and are
// handled by the existing retransmission timers, not by this interface's
// return value.
type Transport interface {
	SendIdentityRequest(ctx context.Context, ueID string, requested IdentityType) error
	SendAuthenticationRequest(ctx context.Context, ueID string, rand, autn []byte) error
	SendSecurityModeCommand(ctx context.Context, ueID string, eea, eia security.Algorithm) error
	SendAttachAccept(ctx context.Context, ueID string, msg *AttachAccept) error
	SendAttachReject(ctx context.Context, ueID string, emmCause cause.EMMCause, esmPDU []byte) error
}
