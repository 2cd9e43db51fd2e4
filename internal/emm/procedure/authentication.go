package procedure

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"github.com/oss-emm/epc-mme/internal/emm/nas"
	"github.com/oss-emm/epc-mme/internal/emm/security"
	"github.com/oss-emm/epc-mme/internal/peer"
	"go.uber.org/zap"
)

// Authentication runs the Authentication common procedure,
// including the single resynchronisation attempt a USIM sync failure is
// allowed before the procedure gives up. This mirrors
// original_source/SRC/NAS/EMM/Authentication.c, which permits exactly one
// AUTS-driven resync per run.
type Authentication struct {
	mu sync.Mutex

	ueCtx    *emmcontext.EMMContext
	vectors  peer.VectorProvider
	transport nas.Transport
	logger   *zap.Logger

	vector *peer.AuthVector

	resyncAttempted bool
	retransmitCount int
	done            bool

	onSuccess func()
	onFailure func(err error)
}

// StartAuthentication fetches a fresh vector and begins the Authentication
// procedure. The caller is expected to hold ueCtx's lock.
func StartAuthentication(
	ctx context.Context,
	ueCtx *emmcontext.EMMContext,
	transport nas.Transport,
	vectors peer.VectorProvider,
	logger *zap.Logger,
	onSuccess func(),
	onFailure func(err error),
) *Authentication {
	p := &Authentication{
		ueCtx:     ueCtx,
		vectors:   vectors,
		transport: transport,
		logger:    logger,
		onSuccess: onSuccess,
		onFailure: onFailure,
	}
	ueCtx.Procedures.SetCommon(authenticationKind, p)
	p.fetchAndSend(ctx, false, nil)
	return p
}

func (p *Authentication) fetchAndSend(ctx context.Context, resync bool, auts []byte) {
	var (
		vec *peer.AuthVector
		err error
	)
	if resync {
		vec, err = p.vectors.Resync(ctx, p.ueCtx.IMSI, auts)
	} else {
		vec, err = p.vectors.GetVector(ctx, p.ueCtx.IMSI)
	}
	if err != nil {
		p.logger.Warn("failed to obtain authentication vector", zap.String("ue_id", p.ueCtx.UEID), zap.Error(err))
		p.mu.Lock()
		defer p.mu.Unlock()
		p.finish(func() { p.onFailure(fmt.Errorf("failed to obtain authentication vector: %w", err)) })
		return
	}

	p.mu.Lock()
	p.vector = vec
	p.mu.Unlock()

	if sendErr := p.transport.SendAuthenticationRequest(ctx, p.ueCtx.UEID, vec.RAND, vec.AUTN); sendErr != nil {
		p.logger.Warn("failed to send Authentication Request", zap.String("ue_id", p.ueCtx.UEID), zap.Error(sendErr))
	}
	p.ueCtx.T3460.Arm(t3460Duration, func() { p.onTimeout() })
}

func (p *Authentication) onTimeout() {
	p.ueCtx.Lock()
	defer p.ueCtx.Unlock()

	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.retransmitCount++
	count := p.retransmitCount
	p.mu.Unlock()

	if count <= maxRetransmissions {
		p.resendLastRequest(context.Background())
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish(func() { p.onFailure(errTimerExhausted("T3460")) })
}

func (p *Authentication) resendLastRequest(ctx context.Context) {
	p.mu.Lock()
	vec := p.vector
	p.mu.Unlock()
	if vec == nil {
		return
	}
	if err := p.transport.SendAuthenticationRequest(ctx, p.ueCtx.UEID, vec.RAND, vec.AUTN); err != nil {
		p.logger.Warn("failed to resend Authentication Request", zap.String("ue_id", p.ueCtx.UEID), zap.Error(err))
	}
	p.ueCtx.T3460.Arm(t3460Duration, func() { p.onTimeout() })
}

// HandleResponse compares the UE-supplied RES against the vector's XRES. A
// mismatch is a MAC failure; a match populates the non-current security
// context with the vector's KASME (it is activated later, on Security Mode
// Complete) and invokes the success continuation.
func (p *Authentication) HandleResponse(res []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done || p.vector == nil {
		return
	}

	if subtle.ConstantTimeCompare(res, p.vector.XRES) != 1 {
		p.finish(func() {
			p.onFailure(fmt.Errorf("authentication failed: RES mismatch"))
		})
		return
	}

	p.ueCtx.NonCurrentSecurity = &security.Context{
		KSIType: security.KSINative,
		KASME:   p.vector.KASME,
		Capabilities: security.UECapabilities{
			SupportedEEA: p.ueCtx.Capabilities.EEA,
			SupportedEIA: p.ueCtx.Capabilities.EIA,
		},
	}
	p.finish(func() { p.onSuccess() })
}

// HandleFailure processes an Authentication Failure from the UE. When
// syncFailure is true and no resync has yet been attempted this run, it
// requests one fresh vector via the synchronisation failure parameter
// (AUTS) and retries; any other failure, or a second sync failure, ends the
// procedure.
func (p *Authentication) HandleFailure(ctx context.Context, syncFailure bool, auts []byte) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	if syncFailure && !p.resyncAttempted {
		p.resyncAttempted = true
		p.retransmitCount = 0
		p.ueCtx.T3460.Stop()
		p.mu.Unlock()
		p.fetchAndSend(ctx, true, auts)
		return
	}
	defer p.mu.Unlock()
	p.finish(func() { p.onFailure(fmt.Errorf("authentication failed: UE reported failure")) })
}

// Abort implements registry.Procedure.
func (p *Authentication) Abort(notify bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.finish(func() {
		if notify {
			p.onFailure(errAborted())
		}
	})
}

// finish must be called with p.mu held.
func (p *Authentication) finish(cb func()) {
	p.done = true
	p.ueCtx.T3460.Stop()
	p.ueCtx.Procedures.ClearCommon(authenticationKind)
	cb()
}
