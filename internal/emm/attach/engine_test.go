package attach

import (
	"context"
	"testing"
	"time"

	"github.com/oss-emm/epc-mme/internal/emm/cause"
	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"github.com/oss-emm/epc-mme/internal/emm/nas/nastest"
	"github.com/oss-emm/epc-mme/internal/emm/security"
	"github.com/oss-emm/epc-mme/internal/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeVectorProvider struct {
	vector *peer.AuthVector
}

func (f *fakeVectorProvider) GetVector(ctx context.Context, imsi string) (*peer.AuthVector, error) {
	return f.vector, nil
}

func (f *fakeVectorProvider) Resync(ctx context.Context, imsi string, auts []byte) (*peer.AuthVector, error) {
	return f.vector, nil
}

type fakeESMPeer struct {
	unitDataStatus peer.ESMStatus
	unitDataResp   []byte
	unitDataErr    error

	rejectCalls  int
	confirmCalls int
}

func (f *fakeESMPeer) UnitDataInd(ctx context.Context, ueID string, esmReq []byte) (peer.ESMStatus, []byte, error) {
	return f.unitDataStatus, f.unitDataResp, f.unitDataErr
}

func (f *fakeESMPeer) DefaultBearerActivateConfirm(ctx context.Context, ueID string, esmComplete []byte) error {
	f.confirmCalls++
	return nil
}

func (f *fakeESMPeer) PDNConnectivityReject(ctx context.Context, ueID string) error {
	f.rejectCalls++
	return nil
}

type fakeAllocator struct{ next uint32 }

func (a *fakeAllocator) Allocate() (*emmcontext.GUTI, error) {
	a.next++
	return &emmcontext.GUTI{PLMNID: emmcontext.PLMNID{MCC: "001", MNC: "01"}, AMFSetID: 1, MTMSI: a.next}, nil
}

func newTestEngine(t *testing.T) (*Engine, *emmcontext.Store, *nastest.Fake, *fakeESMPeer) {
	store := emmcontext.NewStore()
	tr := &nastest.Fake{}
	vp := &fakeVectorProvider{vector: &peer.AuthVector{RAND: []byte("r"), AUTN: []byte("a"), XRES: []byte("x"), KASME: []byte("k")}}
	esm := &fakeESMPeer{unitDataStatus: peer.ESMSuccess, unitDataResp: []byte("esm-accept")}

	cfg := Config{
		EmergencyBearersSupported: false,
		SecurityPolicy: security.Policy{
			EEAPriority:        []security.Algorithm{security.EEA2, security.EEA0},
			EIAPriority:        []security.Algorithm{security.EIA2},
			AllowNullCiphering: true,
		},
		GUTIAllocator:    &fakeAllocator{},
		T3450Duration:    50 * time.Millisecond,
		T3402:            12 * time.Second,
		AttachCounterMax: 5,
	}

	e := NewEngine(store, tr, vp, esm, zaptest.NewLogger(t), nil, cfg)
	return e, store, tr, esm
}

func happyPathIEs() RequestIEs {
	return RequestIEs{
		IsInitial:           true,
		Type:                TypeEPS,
		KSI:                 0,
		IMSI:                "001010000000001",
		NASIntegrityMatched: false,
		UENetworkCapability: []byte{0x01, 0x02},
		ESMMsg:              []byte("esm-request"),
	}
}

// driveToAccept pushes a freshly-created context all the way through
// Identification, Authentication and Security Mode Control to a first
// Attach Accept, returning the context for further assertions.
func driveToAccept(t *testing.T, e *Engine, store *emmcontext.Store, ies RequestIEs) *emmcontext.EMMContext {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.HandleAttachRequest(ctx, "enb-1", "", ies))

	ueCtxs := store.All()
	require.Len(t, ueCtxs, 1)
	ueCtx := ueCtxs[0]

	e.HandleIdentityResponse(ueCtx.UEID, ies.IMSI)
	e.HandleAuthenticationResponse(ueCtx.UEID, []byte("x"))
	e.HandleSecurityModeComplete(ueCtx.UEID)
	return ueCtx
}

func TestEngine_HappyPathIMSIAttach(t *testing.T) {
	e, store, tr, esm := newTestEngine(t)

	ueCtx := driveToAccept(t, e, store, happyPathIEs())

	require.Equal(t, 1, tr.IdentityRequestCount())
	require.Equal(t, 1, tr.AuthenticationRequests)
	require.Equal(t, 1, tr.SecurityModeCommands)
	require.Equal(t, 1, tr.AttachAcceptCount())

	assert.True(t, ueCtx.T3450.Armed())
	assert.NotNil(t, ueCtx.GUTI)
	assert.False(t, ueCtx.GUTIValid)
	require.NotNil(t, ueCtx.Security)
	assert.True(t, ueCtx.Security.Activated)

	e.HandleAttachComplete(context.Background(), ueCtx.UEID, []byte("activate-accept"))

	assert.True(t, ueCtx.IsAttached)
	assert.True(t, ueCtx.GUTIValid)
	assert.Nil(t, ueCtx.PreviousGUTI)
	assert.Equal(t, emmcontext.Registered, ueCtx.State)
	assert.False(t, ueCtx.T3450.Armed())
	assert.Equal(t, 1, esm.confirmCalls)
}

func TestEngine_RetransmittedIdenticalAttachAfterAccept(t *testing.T) {
	e, store, tr, _ := newTestEngine(t)
	ies := happyPathIEs()

	ueCtx := driveToAccept(t, e, store, ies)
	require.Equal(t, 1, tr.AttachAcceptCount())
	require.Equal(t, 1, ueCtx.NumAttachRequest)

	retransmit := ies // byte-identical IEs
	require.NoError(t, e.HandleAttachRequest(context.Background(), "enb-1", ueCtx.UEID, retransmit))

	assert.Equal(t, 2, tr.AttachAcceptCount(), "Accept must be resent (case d.2)")
	assert.Equal(t, 2, ueCtx.NumAttachRequest, "num_attach_request still increments")
	assert.NotNil(t, ueCtx.Procedures.Specific(), "attach specific procedure still running")
}

func TestEngine_DifferentIEsAfterAcceptAbortsAndRestarts(t *testing.T) {
	e, store, tr, _ := newTestEngine(t)
	ies := happyPathIEs()

	ueCtx := driveToAccept(t, e, store, ies)
	require.Equal(t, 1, tr.AttachAcceptCount())

	changed := ies
	changed.KSI = 3
	require.NoError(t, e.HandleAttachRequest(context.Background(), "enb-1", ueCtx.UEID, changed))

	assert.Equal(t, 2, tr.IdentityRequestCount(), "changed IEs abort and restart from Identification (case d.1)")
}

func TestEngine_EmergencyAttachWhenDisabled(t *testing.T) {
	e, store, tr, _ := newTestEngine(t)

	ies := happyPathIEs()
	ies.Type = TypeEmergency

	require.NoError(t, e.HandleAttachRequest(context.Background(), "enb-1", "", ies))

	require.Equal(t, 1, tr.AttachRejectCount())
	assert.Equal(t, cause.IMEINotAccepted, tr.AttachRejects[0].Cause)
	assert.Empty(t, store.All(), "no context persisted on emergency rejection")
}

func TestEngine_T3450ExhaustionAbortsAttach(t *testing.T) {
	e, store, tr, _ := newTestEngine(t)
	ueCtx := driveToAccept(t, e, store, happyPathIEs())
	require.Equal(t, 1, tr.AttachAcceptCount())

	for i := 0; i < 4; i++ {
		e.onT3450Expiry(ueCtx.UEID)
	}
	assert.Equal(t, 5, tr.AttachAcceptCount())
	assert.Equal(t, emmcontext.RegisteredInitiated, ueCtx.State, "still mid-attach, Attach Complete never received")

	e.onT3450Expiry(ueCtx.UEID)
	assert.Equal(t, emmcontext.Deregistered, ueCtx.State)
	assert.False(t, ueCtx.T3450.Armed())
}

func TestEngine_AuthenticationFailureRejects(t *testing.T) {
	e, store, tr, _ := newTestEngine(t)
	ies := happyPathIEs()

	require.NoError(t, e.HandleAttachRequest(context.Background(), "enb-1", "", ies))
	ueCtx := store.All()[0]
	e.HandleIdentityResponse(ueCtx.UEID, ies.IMSI)

	e.HandleAuthenticationResponse(ueCtx.UEID, []byte("wrong"))

	require.Equal(t, 1, tr.AttachRejectCount())
	assert.Equal(t, emmcontext.Deregistered, ueCtx.State)
	assert.Nil(t, ueCtx.Procedures.Specific())
}

func TestEngine_ESMErrorCarriesESMPDUOnReject(t *testing.T) {
	e, store, tr, esm := newTestEngine(t)
	esm.unitDataStatus = peer.ESMError
	esm.unitDataResp = []byte("esm-reject-pdu")

	ies := happyPathIEs()
	require.NoError(t, e.HandleAttachRequest(context.Background(), "enb-1", "", ies))
	ueCtx := store.All()[0]
	e.HandleIdentityResponse(ueCtx.UEID, ies.IMSI)
	e.HandleAuthenticationResponse(ueCtx.UEID, []byte("x"))
	e.HandleSecurityModeComplete(ueCtx.UEID)

	require.Equal(t, 1, tr.AttachRejectCount())
	assert.Equal(t, []byte("esm-reject-pdu"), tr.AttachRejects[0].ESMPDU)
}

func TestEngine_IMSIWithMatchedMACSkipsIdentification(t *testing.T) {
	e, store, tr, _ := newTestEngine(t)
	ies := happyPathIEs()
	ies.NASIntegrityMatched = true

	require.NoError(t, e.HandleAttachRequest(context.Background(), "enb-1", "", ies))

	assert.Equal(t, 0, tr.IdentityRequestCount())
	require.Equal(t, 1, tr.AuthenticationRequests)
	_ = store
}

func TestChanged_SymmetricAndReflexive(t *testing.T) {
	a := happyPathIEs()
	b := happyPathIEs()
	assert.False(t, Changed(&a, &a))
	assert.False(t, Changed(&a, &b))
	assert.Equal(t, Changed(&a, &b), Changed(&b, &a))

	c := happyPathIEs()
	c.KSI = 7
	assert.True(t, Changed(&a, &c))
	assert.Equal(t, Changed(&a, &c), Changed(&c, &a))
}
