package attach

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	causepkg "github.com/oss-emm/epc-mme/internal/emm/cause"
	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"github.com/oss-emm/epc-mme/internal/emm/nas"
	"github.com/oss-emm/epc-mme/internal/emm/procedure"
	"github.com/oss-emm/epc-mme/internal/emm/registry"
	"github.com/oss-emm/epc-mme/internal/emm/security"
	"github.com/oss-emm/epc-mme/internal/peer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config carries everything the Attach engine needs that is not derived
// from the incoming request: MME policy and static Accept contents.
type Config struct {
	EmergencyBearersSupported bool
	SecurityPolicy            security.Policy
	GUTIAllocator             GUTIAllocator

	T3450Duration    time.Duration
	T3402            time.Duration
	AttachCounterMax int

	TAIList                  []emmcontext.TAI
	EPSNetworkFeatureSupport []byte
}

// Engine is the Attach Procedure Engine: the top-level EMM
// state machine. One Engine serves every UE known to the Store.
type Engine struct {
	store     *emmcontext.Store
	transport nas.Transport
	vectors   peer.VectorProvider
	esm       peer.ESMPeer
	logger    *zap.Logger
	metrics   Metrics
	tracer    trace.Tracer

	cfg Config
}

// NewEngine wires an Engine. metrics may be nil, in which case outcomes are
// simply not reported.
func NewEngine(
	store *emmcontext.Store,
	transport nas.Transport,
	vectors peer.VectorProvider,
	esm peer.ESMPeer,
	logger *zap.Logger,
	metrics Metrics,
	cfg Config,
) *Engine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if cfg.AttachCounterMax == 0 {
		cfg.AttachCounterMax = 5 // ATTACH_COUNTER_MAX invariant 5
	}
	return &Engine{
		store: store, transport: transport, vectors: vectors, esm: esm,
		logger: logger, metrics: metrics, cfg: cfg,
		tracer: otel.Tracer("emm-attach"),
	}
}

// collisionDecision is the outcome of the ingress classification table of
// step 3.
type collisionDecision int

const (
	decisionProceed collisionDecision = iota
	decisionContinueExisting
	decisionDrop
)

// HandleAttachRequest implements: ingress classification,
// collision resolution, and entry into Run.
func (e *Engine) HandleAttachRequest(ctx context.Context, enbKey, ueIDHint string, ies RequestIEs) error {
	ctx, span := e.tracer.Start(ctx, "AttachEngine.HandleAttachRequest")
	defer span.End()

	ueCtx, created := e.locate(enbKey, ueIDHint, ies)
	span.SetAttributes(
		attribute.String("ue_id", ueCtx.UEID),
		attribute.Bool("context_created", created),
	)

	ueCtx.Lock()
	defer ueCtx.Unlock()

	e.reconcileDuplicateENBContext(ueCtx, enbKey, ies)

	if ies.Type == TypeEmergency && !e.cfg.EmergencyBearersSupported {
		if err := e.transport.SendAttachReject(ctx, ueCtx.UEID, causepkg.IMEINotAccepted, nil); err != nil {
			e.logger.Warn("failed to send emergency Attach Reject", zap.String("ue_id", ueCtx.UEID), zap.Error(err))
		}
		e.metrics.AttachRejected(causepkg.IMEINotAccepted)
		if created {
			e.store.Remove(ueCtx)
		}
		return nil
	}

	decision := e.resolveCollision(ueCtx, &ies)

	ueCtx.NumAttachRequest++ // exactly once per Attach Request that passed the emergency gate

	switch decision {
	case decisionDrop, decisionContinueExisting:
		return nil
	}

	if !ueCtx.Procedures.IsSpecificRunning() {
		// Security Context ... Cleared at Attach start: every dispatch branch
		// of run (including the IMEI-only emergency path, which never reaches
		// Security Mode Control) must start from no Security Context rather
		// than risk reporting a previous registration's negotiated algorithms.
		ueCtx.ResetSecurity()
		proc := newProcedure(e, ueCtx, &ies)
		if err := ueCtx.Procedures.SetSpecific(registry.KindAttach, proc); err != nil {
			return fmt.Errorf("failed to register attach procedure: %w", err)
		}
		ueCtx.SetState(emmcontext.RegisteredInitiated)
		e.run(ctx, proc)
	}

	return nil
}

func (e *Engine) locate(enbKey, ueIDHint string, ies RequestIEs) (ueCtx *emmcontext.EMMContext, created bool) {
	if ueIDHint != "" {
		if c, ok := e.store.Get(ueIDHint); ok {
			return c, false
		}
	}
	if ies.GUTI != nil {
		if c, ok := e.store.FindByGUTI(*ies.GUTI); ok {
			return c, false
		}
	}
	if ies.IMSI != "" {
		if c, ok := e.store.FindByIMSI(ies.IMSI); ok {
			return c, false
		}
	}
	if c, ok := e.store.FindByENBKey(enbKey); ok {
		return c, false
	}

	c := emmcontext.New(uuid.NewString())
	c.ENBKey = enbKey
	if err := e.store.Insert(c); err != nil {
		// UEID collision is astronomically unlikely (uuid.NewString); if it
		// ever happens, fall back to whatever is already there.
		if existing, ok := e.store.Get(c.UEID); ok {
			return existing, false
		}
	}
	return c, true
}

// reconcileDuplicateENBContext implements step 3's
// "duplicate-eNB-context" footnote, resolved per original_source/SRC/NAS/
// EMM/Attach.c's asymmetric handling: an *initial* Attach Request reaching
// the context through a new eNB adopts that eNB association (the old one is
// stale); a retransmission through a new eNB is assumed to be a routing
// artifact and the existing association is kept.
func (e *Engine) reconcileDuplicateENBContext(ueCtx *emmcontext.EMMContext, enbKey string, ies RequestIEs) {
	if ueCtx.ENBKey == "" || ueCtx.ENBKey == enbKey {
		if ueCtx.ENBKey != enbKey {
			ueCtx.ENBKey = enbKey
			e.store.Reindex(ueCtx, nil, "", "")
		}
		return
	}

	e.logger.Info("duplicate eNB context detected",
		zap.String("ue_id", ueCtx.UEID),
		zap.String("old_enb_key", ueCtx.ENBKey),
		zap.String("new_enb_key", enbKey),
		zap.Bool("is_initial", ies.IsInitial),
	)

	if ies.IsInitial {
		oldENBKey := ueCtx.ENBKey
		ueCtx.ENBKey = enbKey
		e.store.Reindex(ueCtx, nil, "", oldENBKey)
	}
	// else: retain the old association; the new one is discarded.
}

// resolveCollision implements the table of step 3.
func (e *Engine) resolveCollision(ueCtx *emmcontext.EMMContext, ies *RequestIEs) collisionDecision {
	if ueCtx.Procedures.IsCommonRunning(registry.KindGUTIReallocation) {
		ueCtx.Procedures.AbortCommon(registry.KindGUTIReallocation, false)
	}
	if ueCtx.Procedures.IsCommonRunning(registry.KindSecurityModeControl) {
		ueCtx.Procedures.AbortCommon(registry.KindSecurityModeControl, false)
	}

	specific := ueCtx.Procedures.Specific()
	proc, hasAttach := specific.(*Procedure)

	if ueCtx.Procedures.IsCommonRunning(registry.KindIdentification) {
		if !hasAttach {
			return decisionProceed // "Identification common proc, no Attach -> Create new Attach"
		}
		if proc.attachAcceptSent > 0 || proc.attachRejectSent {
			return decisionContinueExisting
		}
		if Changed(proc.ies, ies) {
			ueCtx.Procedures.AbortSpecific(true)
			return decisionProceed
		}
		return decisionDrop
	}

	if hasAttach {
		if proc.attachAcceptSent > 0 && !proc.attachCompleteReceived {
			// Case d.
			if Changed(proc.ies, ies) {
				ueCtx.Procedures.AbortSpecific(true)
				return decisionProceed
			}
			e.resendAccept(proc)
			return decisionContinueExisting
		}
		if proc.attachAcceptSent == 0 && ueCtx.NumAttachRequest >= 1 {
			// Case e.
			if Changed(proc.ies, ies) {
				ueCtx.Procedures.AbortSpecific(true)
				return decisionProceed
			}
			return decisionDrop
		}
	}

	// Case f: no procedure running but context already REGISTERED.
	return decisionProceed
}

// run implements
func (e *Engine) run(ctx context.Context, proc *Procedure) {
	ctx, span := e.tracer.Start(ctx, "AttachEngine.Run")
	defer span.End()

	ueCtx := proc.ueCtx
	ies := proc.ies
	span.SetAttributes(attribute.String("ue_id", ueCtx.UEID))

	switch {
	case ies.IMSI != "" && ies.NASIntegrityMatched:
		e.startAuthentication(ctx, proc)

	case ies.IMSI != "", ies.GUTI != nil:
		e.startIdentificationThenAuthenticate(ctx, proc)

	case ies.IMEI != "":
		// Emergency fast path: this core takes the conservative reading of
		// TS 24.301 §5.5.1.2.3 and lets an
		// IMEI-only emergency attach straight through to ESM, skipping
		// Authentication and Security Mode Control entirely.
		e.esmHandoff(ctx, proc)

	default:
		e.rejectAttach(ctx, proc, causepkg.New(causepkg.ProtocolViolation, causepkg.ProtocolError))
	}
}

func (e *Engine) startIdentificationThenAuthenticate(ctx context.Context, proc *Procedure) {
	ueCtx := proc.ueCtx
	ueCtx.SetState(emmcontext.CommonProcedureInitiated)
	procedure.StartIdentification(ctx, ueCtx, e.transport, e.logger, nas.IdentityIMSI, true,
		func(value string) {
			ueCtx.SetState(emmcontext.RegisteredInitiated)
			e.startAuthentication(ctx, proc)
		},
		func(err error) { e.rejectAttach(ctx, proc, err) },
	)
}

func (e *Engine) startAuthentication(ctx context.Context, proc *Procedure) {
	ueCtx := proc.ueCtx
	ueCtx.SetState(emmcontext.CommonProcedureInitiated)
	procedure.StartAuthentication(ctx, ueCtx, e.transport, e.vectors, e.logger,
		func() {
			ueCtx.SetState(emmcontext.RegisteredInitiated)
			e.startSecurityModeControl(ctx, proc)
		},
		func(err error) { e.rejectAttach(ctx, proc, err) },
	)
}

func (e *Engine) startSecurityModeControl(ctx context.Context, proc *Procedure) {
	ueCtx := proc.ueCtx
	ueCtx.SetState(emmcontext.CommonProcedureInitiated)
	_, err := procedure.StartSecurityModeControl(ctx, ueCtx, e.transport, e.cfg.SecurityPolicy, e.logger,
		func() {
			ueCtx.SetState(emmcontext.RegisteredInitiated)
			e.esmHandoff(ctx, proc)
		},
		func(err error) { e.rejectAttach(ctx, proc, err) },
	)
	if err != nil {
		e.rejectAttach(ctx, proc, causepkg.Wrap(causepkg.ProtocolViolation, causepkg.IllegalUE, err))
	}
}

// esmHandoff implements
func (e *Engine) esmHandoff(ctx context.Context, proc *Procedure) {
	ueCtx := proc.ueCtx

	if len(proc.ies.ESMMsg) == 0 {
		e.emitAccept(ctx, proc)
		return
	}

	status, resp, err := e.esm.UnitDataInd(ctx, ueCtx.UEID, proc.ies.ESMMsg)
	if err != nil {
		e.rejectAttach(ctx, proc, causepkg.Wrap(causepkg.Transient, causepkg.IllegalUE, err))
		return
	}

	switch status {
	case peer.ESMSuccess:
		proc.esmMsgOut = resp
		e.emitAccept(ctx, proc)
	case peer.ESMDiscarded:
		e.emitAccept(ctx, proc)
	default: // peer.ESMError
		e.rejectAttach(ctx, proc, causepkg.New(causepkg.ESMError, causepkg.ESMFailure).WithESM(resp))
	}
}

// emitAccept implements's Accept-composition steps.
func (e *Engine) emitAccept(ctx context.Context, proc *Procedure) {
	ctx, span := e.tracer.Start(ctx, "AttachEngine.EmitAccept")
	defer span.End()

	ueCtx := proc.ueCtx
	ies := proc.ies
	span.SetAttributes(attribute.String("ue_id", ueCtx.UEID))

	if ies.IMSI != "" {
		ueCtx.IMSI = ies.IMSI
	}
	if ies.IMEI != "" {
		ueCtx.IMEI = ies.IMEI
	}
	ueCtx.OriginatingTAI = ies.OriginatingTAI
	ueCtx.OriginatingECGI = ies.OriginatingECGI
	if ies.LastVisitedRegisteredTAI != nil {
		ueCtx.LastVisitedRegisteredTAI = ies.LastVisitedRegisteredTAI
	}
	ueCtx.KSI = ies.KSI
	ueCtx.Capabilities.UENetworkCapability = ies.UENetworkCapability
	ueCtx.Capabilities.MSNetworkCapability = ies.MSNetworkCapability
	ueCtx.Capabilities.DRXParameter = ies.DRXParameter

	if !ueCtx.GUTIValid {
		newGUTI, err := e.cfg.GUTIAllocator.Allocate()
		if err != nil {
			e.rejectAttach(ctx, proc, causepkg.Wrap(causepkg.ResourceExhausted, causepkg.IllegalUE, err))
			e.store.Remove(ueCtx)
			return
		}
		ueCtx.PreviousGUTI = ueCtx.GUTI
		ueCtx.GUTI = newGUTI
		// The new GUTI is assigned-but-not-yet-valid. The old GUTI stays
		// resolvable via Store.FindByGUTI until Attach Complete (a UE that
		// never received this Accept may retransmit its Attach Request still
		// carrying it), so it is not removed from the index here.
		e.store.Reindex(ueCtx, nil, "", "")
	}

	var eea, eia security.Algorithm
	if ueCtx.Security != nil {
		eea, eia = ueCtx.Security.SelectedEEA, ueCtx.Security.SelectedEIA
	}

	msg := &nas.AttachAccept{
		GUTI:                     toGUTIValue(ueCtx.GUTI),
		TAIList:                  toTAIValues(e.cfg.TAIList),
		EPSNetworkFeatureSupport: e.cfg.EPSNetworkFeatureSupport,
		T3402:                    e.cfg.T3402,
		ESMPDU:                   proc.esmMsgOut,
		SelectedEEA:              eea,
		SelectedEIA:              eia,
	}

	if err := e.transport.SendAttachAccept(ctx, ueCtx.UEID, msg); err != nil {
		e.logger.Warn("failed to send Attach Accept", zap.String("ue_id", ueCtx.UEID), zap.Error(err))
	}

	ueCtx.T3450.Stop()
	ueID := ueCtx.UEID
	ueCtx.T3450.Arm(e.cfg.T3450Duration, func() { e.onT3450Expiry(ueID) })

	proc.attachAcceptSent++
	proc.lastAcceptMsg = msg
	e.metrics.AttachAccepted()
}

func (e *Engine) resendAccept(proc *Procedure) {
	ueCtx := proc.ueCtx
	if proc.lastAcceptMsg == nil {
		return
	}
	ctx := context.Background()
	if err := e.transport.SendAttachAccept(ctx, ueCtx.UEID, proc.lastAcceptMsg); err != nil {
		e.logger.Warn("failed to resend Attach Accept", zap.String("ue_id", ueCtx.UEID), zap.Error(err))
	}
	ueCtx.T3450.Stop()
	ueID := ueCtx.UEID
	ueCtx.T3450.Arm(e.cfg.T3450Duration, func() { e.onT3450Expiry(ueID) })
	e.metrics.AttachRetransmission()
}

// onT3450Expiry implements It closes over ueID rather than
// the context or procedure ("EMM context cyclic references") so
// that a fire racing with context destruction safely becomes a no-op.
func (e *Engine) onT3450Expiry(ueID string) {
	ueCtx, ok := e.store.Get(ueID)
	if !ok {
		return
	}

	ueCtx.Lock()
	defer ueCtx.Unlock()

	specific := ueCtx.Procedures.Specific()
	proc, ok := specific.(*Procedure)
	if !ok {
		return
	}

	if proc.attachAcceptSent < e.cfg.AttachCounterMax {
		e.resendAccept(proc)
		proc.attachAcceptSent++
		return
	}

	e.logger.Warn("T3450 exhausted, aborting attach", zap.String("ue_id", ueID))
	ueCtx.Procedures.AbortSpecific(true)
}

// rejectAttach sends an Attach Reject carrying err's cause and tears the
// procedure down ("Propagation").
func (e *Engine) rejectAttach(ctx context.Context, proc *Procedure, err error) {
	ctx, span := e.tracer.Start(ctx, "AttachEngine.RejectAttach")
	defer span.End()

	ueCtx := proc.ueCtx
	emmCause := causepkg.CauseOf(err)
	proc.emmCause = emmCause
	span.SetAttributes(attribute.String("ue_id", ueCtx.UEID), attribute.String("cause", emmCause.String()))

	var esmPDU []byte
	var pe *causepkg.ProcedureError
	if as, ok := err.(*causepkg.ProcedureError); ok {
		pe = as
		esmPDU = pe.ESMPDU
	}

	if sendErr := e.transport.SendAttachReject(ctx, ueCtx.UEID, emmCause, esmPDU); sendErr != nil {
		e.logger.Warn("failed to send Attach Reject", zap.String("ue_id", ueCtx.UEID), zap.Error(sendErr))
	}
	proc.attachRejectSent = true

	if pnErr := e.esm.PDNConnectivityReject(ctx, ueCtx.UEID); pnErr != nil {
		e.logger.Warn("failed to notify ESM of attach rejection", zap.String("ue_id", ueCtx.UEID), zap.Error(pnErr))
	}

	ueCtx.T3450.Stop()
	ueCtx.Procedures.ClearSpecific()
	ueCtx.SetState(emmcontext.Deregistered)
	e.metrics.AttachRejected(emmCause)
}

// HandleAttachComplete implements
func (e *Engine) HandleAttachComplete(ctx context.Context, ueID string, esmComplete []byte) {
	ueCtx, ok := e.store.Get(ueID)
	if !ok {
		return
	}

	ueCtx.Lock()
	defer ueCtx.Unlock()

	specific := ueCtx.Procedures.Specific()
	proc, ok := specific.(*Procedure)
	if !ok {
		return
	}

	oldGUTI := ueCtx.PreviousGUTI
	ueCtx.ValidateGUTI()
	if oldGUTI != nil {
		e.store.Reindex(ueCtx, oldGUTI, "", "")
	}
	proc.attachCompleteReceived = true

	if len(esmComplete) > 0 {
		if err := e.esm.DefaultBearerActivateConfirm(ctx, ueID, esmComplete); err != nil {
			e.logger.Warn("failed to confirm default bearer activation", zap.String("ue_id", ueID), zap.Error(err))
		}
	}

	ueCtx.T3450.Stop()
	ueCtx.IsAttached = true
	ueCtx.Procedures.ClearSpecific()
	ueCtx.SetState(emmcontext.Registered)

	e.logger.Info("EMMREG_ATTACH_CNF", zap.String("ue_id", ueID))
	e.metrics.AttachCompleted()
}

func toGUTIValue(g *emmcontext.GUTI) *nas.GUTIValue {
	if g == nil {
		return nil
	}
	return &nas.GUTIValue{
		PLMNMCC:     g.PLMNID.MCC,
		PLMNMNC:     g.PLMNID.MNC,
		AMFRegionID: g.AMFRegionID,
		AMFSetID:    g.AMFSetID,
		AMFPointer:  g.AMFPointer,
		MTMSI:       g.MTMSI,
	}
}

func toTAIValues(tais []emmcontext.TAI) []nas.TAIValue {
	out := make([]nas.TAIValue, 0, len(tais))
	for _, t := range tais {
		out = append(out, nas.TAIValue{PLMNMCC: t.PLMNID.MCC, PLMNMNC: t.PLMNID.MNC, TAC: t.TAC})
	}
	return out
}
