// Package context implements the EMM Context and its
// Store: the per-UE mobility state and the concurrent map that owns it,
// indexed by UE identifier, GUTI and IMSI.
package context

import (
	"sync"
	"time"

	"github.com/oss-emm/epc-mme/internal/emm/registry"
	"github.com/oss-emm/epc-mme/internal/emm/security"
	"github.com/oss-emm/epc-mme/internal/emm/timer"
)

// State is one of the EMM mobility-management states.
type State int

const (
	Deregistered State = iota
	RegisteredInitiated
	CommonProcedureInitiated
	Registered
	DeregisteredInitiated
)

func (s State) String() string {
	switch s {
	case Deregistered:
		return "DEREGISTERED"
	case RegisteredInitiated:
		return "REGISTERED_INITIATED"
	case CommonProcedureInitiated:
		return "COMMON_PROCEDURE_INITIATED"
	case Registered:
		return "REGISTERED"
	case DeregisteredInitiated:
		return "DEREGISTERED_INITIATED"
	default:
		return "UNKNOWN"
	}
}

// Capabilities bundles the UE-advertised capabilities carried on Attach:
// network capability byte strings are compared verbatim by the IE-change
// predicate, so they are kept as opaque byte slices rather than decoded.
type Capabilities struct {
	UENetworkCapability []byte
	MSNetworkCapability []byte
	DRXParameter        []byte

	EEA []security.Algorithm
	EIA []security.Algorithm
	UEA []string // UTRAN ciphering algorithms, carried but not selected here
	UIA []string // UTRAN integrity algorithms, carried but not selected here
	GEA []string // GERAN ciphering algorithms, carried but not selected here
}

// EMMContext is all mobility state for one UE. Exactly one exists per
// ue_id while the UE is known to this MME.
type EMMContext struct {
	mu sync.Mutex

	UEID   string
	ENBKey string // opaque eNB association the UE is currently reachable through

	IMSI   string
	IMEI   string
	IMEISV string

	GUTI         *GUTI
	GUTIValid    bool // false between Attach Accept emission and Attach Complete
	PreviousGUTI *GUTI

	RegisteredTAIList      []TAI
	LastVisitedRegisteredTAI *TAI
	OriginatingTAI         TAI
	OriginatingECGI        ECGI

	Capabilities Capabilities
	KSI          uint8

	Security            *security.Context
	NonCurrentSecurity  *security.Context

	State State

	Procedures *registry.Registry

	NumAttachRequest int
	IsAttached       bool
	IsEmergency      bool

	T3450 timer.Handle
	T3460 timer.Handle
	T3470 timer.Handle

	CreatedAt      time.Time
	LastActivityAt time.Time
}

// New creates a fresh, DEREGISTERED context for ueID.
func New(ueID string) *EMMContext {
	now := time.Now()
	return &EMMContext{
		UEID:       ueID,
		State:      Deregistered,
		Procedures: registry.New(),
		CreatedAt:  now,
	}
}

// Lock/Unlock realize the "per-context lock" of: every EMM
// state transition for a given UE is serialized through this mutex, which
// stands in for the single-actor mailbox of the original cooperative
// scheduler ("Cooperative scheduling").
func (c *EMMContext) Lock()   { c.mu.Lock() }
func (c *EMMContext) Unlock() { c.mu.Unlock() }

// Touch records activity now.
func (c *EMMContext) Touch() { c.LastActivityAt = time.Now() }

// SetState transitions the context to state s.
func (c *EMMContext) SetState(s State) {
	c.State = s
	c.Touch()
}

// ResetSecurity clears both the current and non-current Security Contexts,
// as required at Attach start ("Security Context ... Cleared
// at Attach start").
func (c *EMMContext) ResetSecurity() {
	c.Security = nil
	c.NonCurrentSecurity = nil
}

// ActivateNonCurrentSecurity promotes the non-current Security Context
// (populated by Authentication) to current and marks it activated, as
// required on Security Mode Complete.
func (c *EMMContext) ActivateNonCurrentSecurity() {
	if c.NonCurrentSecurity == nil {
		return
	}
	c.NonCurrentSecurity.Activated = true
	c.Security = c.NonCurrentSecurity
	c.NonCurrentSecurity = nil
}

// ValidateGUTI marks the context's current GUTI as valid and clears the
// previous one, as required on Attach Complete.
func (c *EMMContext) ValidateGUTI() {
	c.GUTIValid = true
	c.PreviousGUTI = nil
}

// Release clears everything a destroyed context must free: Security
// Contexts, identities and timers. The caller is responsible for removing
// the context from the Store first.
func (c *EMMContext) Release() {
	c.T3450.Stop()
	c.T3460.Stop()
	c.T3470.Stop()
	c.ResetSecurity()
	c.IMSI = ""
	c.IMEI = ""
	c.IMEISV = ""
	c.GUTI = nil
	c.PreviousGUTI = nil
	c.GUTIValid = false
}
