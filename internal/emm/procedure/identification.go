// Package procedure implements the three EMM common sub-procedures:
// Identification, Authentication and Security Mode Control. Each is a
// small state machine triggered by a parent (the Attach engine),
// reporting success or failure through registered continuations rather
// than returning synchronously — there is no synchronous "wait for the
// UE" in this design.
package procedure

import (
	"context"
	"sync"

	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"github.com/oss-emm/epc-mme/internal/emm/nas"
	"go.uber.org/zap"
)

// maxRetransmissions is how many times a common sub-procedure resends its
// request after the first send before giving up: on T3470 expiry,
// retransmit up to 4 times then invoke the failure continuation — the
// same bound applies to Authentication's T3460.
const maxRetransmissions = 4

// Identification runs the Identification common procedure.
type Identification struct {
	mu sync.Mutex

	ueCtx         *emmcontext.EMMContext
	transport     nas.Transport
	logger        *zap.Logger
	requestedType nas.IdentityType

	// IsCauseIsAttach records that this Identification was triggered by an
	// Attach. The Attach engine's collision handling does not read it: it
	// checks whether an Attach procedure is registered instead.
	IsCauseIsAttach bool

	onSuccess func(value string)
	onFailure func(err error)

	retransmitCount int
	done            bool
}

// StartIdentification creates, registers and starts an Identification
// procedure against ueCtx. The caller is expected to hold ueCtx's lock.
func StartIdentification(
	ctx context.Context,
	ueCtx *emmcontext.EMMContext,
	transport nas.Transport,
	logger *zap.Logger,
	requestedType nas.IdentityType,
	isCauseIsAttach bool,
	onSuccess func(value string),
	onFailure func(err error),
) *Identification {
	p := &Identification{
		ueCtx:           ueCtx,
		transport:       transport,
		logger:          logger,
		requestedType:   requestedType,
		IsCauseIsAttach: isCauseIsAttach,
		onSuccess:       onSuccess,
		onFailure:       onFailure,
	}
	ueCtx.Procedures.SetCommon(identificationKind, p)
	p.send(ctx)
	return p
}

func (p *Identification) send(ctx context.Context) {
	if err := p.transport.SendIdentityRequest(ctx, p.ueCtx.UEID, p.requestedType); err != nil {
		p.logger.Warn("failed to send Identity Request", zap.String("ue_id", p.ueCtx.UEID), zap.Error(err))
	}
	p.ueCtx.T3470.Arm(t3470Duration, func() { p.onTimeout() })
}

func (p *Identification) onTimeout() {
	p.ueCtx.Lock()
	defer p.ueCtx.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}

	p.retransmitCount++
	p.logger.Warn("T3470 expired", zap.String("ue_id", p.ueCtx.UEID), zap.Int("retransmit_count", p.retransmitCount))

	if p.retransmitCount <= maxRetransmissions {
		p.send(context.Background())
		return
	}

	p.finish(func() { p.onFailure(errTimerExhausted("T3470")) })
}

// HandleResponse is called by the Attach engine when an Identity Response
// arrives. It populates the matching identity attribute on the context and
// invokes the success continuation.
func (p *Identification) HandleResponse(value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}

	switch p.requestedType {
	case nas.IdentityIMSI:
		p.ueCtx.IMSI = value
	case nas.IdentityIMEI:
		p.ueCtx.IMEI = value
	case nas.IdentityIMEISV:
		p.ueCtx.IMEISV = value
	}

	p.finish(func() { p.onSuccess(value) })
}

// Abort implements registry.Procedure.
func (p *Identification) Abort(notify bool) {
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
func (p *Identification) finish(cb func()) {
	p.done = true
	p.ueCtx.T3470.Stop()
	p.ueCtx.Procedures.ClearCommon(identificationKind)
	cb()
}
