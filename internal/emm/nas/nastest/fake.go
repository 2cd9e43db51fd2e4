// Package nastest provides a recording fake of nas.Transport shared by the
// procedure and attach package tests.
package nastest

import (
	"context"
	"sync"

	"github.com/oss-emm/epc-mme/internal/emm/cause"
	"github.com/oss-emm/epc-mme/internal/emm/nas"
	"github.com/oss-emm/epc-mme/internal/emm/security"
)

// Fake records every call made through it. Safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	IdentityRequests        []IdentityRequestCall
	AuthenticationRequests  int
	SecurityModeCommands    int
	AttachAccepts           []*nas.AttachAccept
	AttachRejects           []AttachRejectCall

	// Err, if set, is returned by every Send* call instead of nil.
	Err error
}

type IdentityRequestCall struct {
	UEID     string
	Requested nas.IdentityType
}

type AttachRejectCall struct {
	UEID   string
	Cause  cause.EMMCause
	ESMPDU []byte
}

func (f *Fake) SendIdentityRequest(ctx context.Context, ueID string, requested nas.IdentityType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IdentityRequests = append(f.IdentityRequests, IdentityRequestCall{UEID: ueID, Requested: requested})
	return f.Err
}

func (f *Fake) SendAuthenticationRequest(ctx context.Context, ueID string, rand, autn []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthenticationRequests++
	return f.Err
}

func (f *Fake) SendSecurityModeCommand(ctx context.Context, ueID string, eea, eia security.Algorithm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SecurityModeCommands++
	return f.Err
}

func (f *Fake) SendAttachAccept(ctx context.Context, ueID string, msg *nas.AttachAccept) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AttachAccepts = append(f.AttachAccepts, msg)
	return f.Err
}

func (f *Fake) SendAttachReject(ctx context.Context, ueID string, emmCause cause.EMMCause, esmPDU []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AttachRejects = append(f.AttachRejects, AttachRejectCall{UEID: ueID, Cause: emmCause, ESMPDU: esmPDU})
	return f.Err
}

func (f *Fake) IdentityRequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.IdentityRequests)
}

func (f *Fake) AttachAcceptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.AttachAccepts)
}

func (f *Fake) AttachRejectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.AttachRejects)
}
