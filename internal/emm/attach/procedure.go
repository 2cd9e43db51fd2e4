package attach

import (
	"context"

	"github.com/oss-emm/epc-mme/internal/emm/cause"
	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"github.com/oss-emm/epc-mme/internal/emm/nas"
	"github.com/oss-emm/epc-mme/internal/emm/registry"
	"go.uber.org/zap"
)

// Procedure is the running Attach Procedure Record: the specific
// procedure slot of a context's Procedure Registry while an Attach is in
// flight.
type Procedure struct {
	engine *Engine
	ueCtx  *emmcontext.EMMContext

	ies *RequestIEs

	emmCause cause.EMMCause

	attachAcceptSent       int
	attachRejectSent       bool
	attachCompleteReceived bool

	esmMsgOut []byte

	lastAcceptMsg *nas.AttachAccept
}

var _ registry.Procedure = (*Procedure)(nil)

func newProcedure(engine *Engine, ueCtx *emmcontext.EMMContext, ies *RequestIEs) *Procedure {
	return &Procedure{engine: engine, ueCtx: ueCtx, ies: ies}
}

// Abort implements registry.Procedure ("Cancellation"): it stops
// T3450, rejects any pending ESM PDN connection, optionally notifies the
// peer layer, and drops the procedure record. The caller must hold
// ueCtx's lock.
func (p *Procedure) Abort(notify bool) {
	p.ueCtx.T3450.Stop()

	ctx := context.Background()
	if err := p.engine.esm.PDNConnectivityReject(ctx, p.ueCtx.UEID); err != nil {
		p.engine.logger.Warn("failed to notify ESM of attach abort", zap.String("ue_id", p.ueCtx.UEID), zap.Error(err))
	}

	if notify {
		p.engine.logger.Info("EMMREG_ATTACH_ABORT",
			zap.String("ue_id", p.ueCtx.UEID),
			zap.String("cause", p.causeOrDefault().String()),
		)
		p.engine.metrics.AttachAborted()
	}

	p.ueCtx.Procedures.ClearSpecific()
	p.ueCtx.SetState(emmcontext.Deregistered)
}

func (p *Procedure) causeOrDefault() cause.EMMCause {
	if p.emmCause == cause.Success {
		return cause.IllegalUE
	}
	return p.emmCause
}
