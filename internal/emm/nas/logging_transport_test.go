package nas

import (
	"context"
	"testing"

	"github.com/oss-emm/epc-mme/internal/emm/cause"
	"github.com/oss-emm/epc-mme/internal/emm/security"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestLoggingTransport_SendsWithoutError(t *testing.T) {
	tr := NewLoggingTransport(zaptest.NewLogger(t))
	ctx := context.Background()

	assert.NoError(t, tr.SendIdentityRequest(ctx, "ue-1", IdentityIMSI))
	assert.NoError(t, tr.SendAuthenticationRequest(ctx, "ue-1", []byte("r"), []byte("a")))
	assert.NoError(t, tr.SendSecurityModeCommand(ctx, "ue-1", security.EEA2, security.EIA2))
	assert.NoError(t, tr.SendAttachAccept(ctx, "ue-1", &AttachAccept{}))
	assert.NoError(t, tr.SendAttachReject(ctx, "ue-1", cause.IllegalUE, nil))
}
