package procedure

import (
	"context"
	"testing"

	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"github.com/oss-emm/epc-mme/internal/emm/nas"
	"github.com/oss-emm/epc-mme/internal/emm/nas/nastest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIdentification_SuccessPopulatesIMSI(t *testing.T) {
	ueCtx := emmcontext.New("ue-1")
	tr := &nastest.Fake{}

	var gotValue string
	var succeeded, failed bool

	p := StartIdentification(context.Background(), ueCtx, tr, zaptest.NewLogger(t), nas.IdentityIMSI, true,
		func(value string) { succeeded = true; gotValue = value },
		func(err error) { failed = true },
	)
	require.Equal(t, 1, tr.IdentityRequestCount())
	assert.True(t, ueCtx.Procedures.IsCommonRunning(identificationKind))

	p.HandleResponse("001010000000001")

	assert.True(t, succeeded)
	assert.False(t, failed)
	assert.Equal(t, "001010000000001", gotValue)
	assert.Equal(t, "001010000000001", ueCtx.IMSI)
	assert.False(t, ueCtx.Procedures.IsCommonRunning(identificationKind))
}

func TestIdentification_AbortNotifiesFailure(t *testing.T) {
	ueCtx := emmcontext.New("ue-1")
	tr := &nastest.Fake{}

	var failed bool
	p := StartIdentification(context.Background(), ueCtx, tr, zaptest.NewLogger(t), nas.IdentityIMEI, false,
		func(value string) {},
		func(err error) { failed = true },
	)

	p.Abort(true)
	assert.True(t, failed)
	assert.False(t, ueCtx.T3470.Armed())
}

func TestIdentification_ExhaustingRetransmissionsFails(t *testing.T) {
	ueCtx := emmcontext.New("ue-1")
	tr := &nastest.Fake{}

	var failed bool
	p := StartIdentification(context.Background(), ueCtx, tr, zaptest.NewLogger(t), nas.IdentityIMSI, true,
		func(value string) {},
		func(err error) { failed = true },
	)

	for i := 0; i < maxRetransmissions; i++ {
		p.onTimeout()
		assert.False(t, failed)
	}
	p.onTimeout()

	assert.True(t, failed)
	assert.Equal(t, maxRetransmissions+1, tr.IdentityRequestCount())
}
