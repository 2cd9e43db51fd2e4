package procedure

import (
	"context"
	"fmt"
	"sync"

	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"github.com/oss-emm/epc-mme/internal/emm/nas"
	"github.com/oss-emm/epc-mme/internal/emm/security"
	"github.com/oss-emm/epc-mme/internal/emm/timer"
	"go.uber.org/zap"
)

// SecurityModeControl runs the Security Mode Control common procedure
//. Its retransmission timer is owned by the procedure
// itself rather than by the EMMContext, since SMC is the only common
// procedure does not assign a named context-level timer to.
type SecurityModeControl struct {
	mu sync.Mutex

	ueCtx     *emmcontext.EMMContext
	transport nas.Transport
	logger    *zap.Logger
	timer     timer.Handle

	retransmitCount int
	done            bool

	onSuccess func()
	onFailure func(err error)
}

// StartSecurityModeControl selects the algorithms to offer, arms the
// non-current Security Context with them, and sends the Security Mode
// Command. ueCtx.NonCurrentSecurity must already be populated (by
// Authentication) before this is called; the caller is expected to hold
// ueCtx's lock.
func StartSecurityModeControl(
	ctx context.Context,
	ueCtx *emmcontext.EMMContext,
	transport nas.Transport,
	policy security.Policy,
	logger *zap.Logger,
	onSuccess func(),
	onFailure func(err error),
) (*SecurityModeControl, error) {
	if ueCtx.NonCurrentSecurity == nil {
		return nil, fmt.Errorf("security mode control started without a non-current security context")
	}

	// Clears current security immediately before running Security Mode
	// Control, mirroring Attach.c's emm_ctx_clear_security call ordering;
	// the non-current context just populated by Authentication is untouched.
	ueCtx.Security = nil

	eea, eia, err := security.SelectAlgorithms(ueCtx.NonCurrentSecurity.Capabilities, policy)
	if err != nil {
		return nil, err
	}
	ueCtx.NonCurrentSecurity.SelectedEEA = eea
	ueCtx.NonCurrentSecurity.SelectedEIA = eia

	p := &SecurityModeControl{
		ueCtx:     ueCtx,
		transport: transport,
		logger:    logger,
		onSuccess: onSuccess,
		onFailure: onFailure,
	}
	ueCtx.Procedures.SetCommon(smcKind, p)
	p.send(ctx, eea, eia)
	return p, nil
}

func (p *SecurityModeControl) send(ctx context.Context, eea, eia security.Algorithm) {
	if err := p.transport.SendSecurityModeCommand(ctx, p.ueCtx.UEID, eea, eia); err != nil {
		p.logger.Warn("failed to send Security Mode Command", zap.String("ue_id", p.ueCtx.UEID), zap.Error(err))
	}
	p.timer.Arm(smcDuration, func() { p.onTimeout(eea, eia) })
}

func (p *SecurityModeControl) onTimeout(eea, eia security.Algorithm) {
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

	p.logger.Warn("security mode control timer expired", zap.String("ue_id", p.ueCtx.UEID), zap.Int("retransmit_count", count))

	if count <= maxRetransmissions {
		p.send(context.Background(), eea, eia)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish(func() { p.onFailure(errTimerExhausted("security mode control")) })
}

// HandleComplete processes a Security Mode Complete: it activates the
// non-current Security Context and invokes the success continuation.
func (p *SecurityModeControl) HandleComplete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.ueCtx.ActivateNonCurrentSecurity()
	p.finish(func() { p.onSuccess() })
}

// HandleReject processes a Security Mode Reject from the UE.
func (p *SecurityModeControl) HandleReject() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.ueCtx.NonCurrentSecurity = nil
	p.finish(func() { p.onFailure(fmt.Errorf("security mode control rejected by UE")) })
}

// Abort implements registry.Procedure.
func (p *SecurityModeControl) Abort(notify bool) {
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
func (p *SecurityModeControl) finish(cb func()) {
	p.done = true
	p.timer.Stop()
	p.ueCtx.Procedures.ClearCommon(smcKind)
	cb()
}
