package attach

import (
	"context"

	"github.com/oss-emm/epc-mme/internal/emm/procedure"
	"github.com/oss-emm/epc-mme/internal/emm/registry"
	"go.uber.org/zap"
)

// HandleIdentityResponse routes a UE's Identity Response to the running
// Identification common procedure, if any.
func (e *Engine) HandleIdentityResponse(ueID, value string) {
	ueCtx, ok := e.store.Get(ueID)
	if !ok {
		return
	}
	ueCtx.Lock()
	defer ueCtx.Unlock()

	ident, ok := ueCtx.Procedures.Common(registry.KindIdentification).(*procedure.Identification)
	if !ok {
		e.logger.Debug("Identity Response with no Identification running", zap.String("ue_id", ueID))
		return
	}
	ident.HandleResponse(value)
}

// HandleAuthenticationResponse routes a UE's Authentication Response to the
// running Authentication common procedure, if any.
func (e *Engine) HandleAuthenticationResponse(ueID string, res []byte) {
	ueCtx, ok := e.store.Get(ueID)
	if !ok {
		return
	}
	ueCtx.Lock()
	defer ueCtx.Unlock()

	auth, ok := ueCtx.Procedures.Common(registry.KindAuthentication).(*procedure.Authentication)
	if !ok {
		e.logger.Debug("Authentication Response with no Authentication running", zap.String("ue_id", ueID))
		return
	}
	auth.HandleResponse(res)
}

// HandleAuthenticationFailure routes a UE's Authentication Failure to the
// running Authentication common procedure, if any.
func (e *Engine) HandleAuthenticationFailure(ctx context.Context, ueID string, syncFailure bool, auts []byte) {
	ueCtx, ok := e.store.Get(ueID)
	if !ok {
		return
	}
	ueCtx.Lock()
	defer ueCtx.Unlock()

	auth, ok := ueCtx.Procedures.Common(registry.KindAuthentication).(*procedure.Authentication)
	if !ok {
		e.logger.Debug("Authentication Failure with no Authentication running", zap.String("ue_id", ueID))
		return
	}
	auth.HandleFailure(ctx, syncFailure, auts)
}

// HandleSecurityModeComplete routes a UE's Security Mode Complete to the
// running Security Mode Control procedure, if any.
func (e *Engine) HandleSecurityModeComplete(ueID string) {
	ueCtx, ok := e.store.Get(ueID)
	if !ok {
		return
	}
	ueCtx.Lock()
	defer ueCtx.Unlock()

	smc, ok := ueCtx.Procedures.Common(registry.KindSecurityModeControl).(*procedure.SecurityModeControl)
	if !ok {
		e.logger.Debug("Security Mode Complete with no SMC running", zap.String("ue_id", ueID))
		return
	}
	smc.HandleComplete()
}

// HandleSecurityModeReject routes a UE's Security Mode Reject to the running
// Security Mode Control procedure, if any.
func (e *Engine) HandleSecurityModeReject(ueID string) {
	ueCtx, ok := e.store.Get(ueID)
	if !ok {
		return
	}
	ueCtx.Lock()
	defer ueCtx.Unlock()

	smc, ok := ueCtx.Procedures.Common(registry.KindSecurityModeControl).(*procedure.SecurityModeControl)
	if !ok {
		e.logger.Debug("Security Mode Reject with no SMC running", zap.String("ue_id", ueID))
		return
	}
	smc.HandleReject()
}
