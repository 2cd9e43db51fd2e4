package nas

import (
	"context"

	"github.com/oss-emm/epc-mme/internal/emm/cause"
	"github.com/oss-emm/epc-mme/internal/emm/security"
	"go.uber.org/zap"
)

// LoggingTransport is the default Transport: it logs every NAS message it
// is asked to send and otherwise does nothing, standing in for the wire
// codec and S1AP delivery this core does not implement.
type LoggingTransport struct {
	logger *zap.Logger
}

func NewLoggingTransport(logger *zap.Logger) *LoggingTransport {
	return &LoggingTransport{logger: logger}
}

func (t *LoggingTransport) SendIdentityRequest(ctx context.Context, ueID string, requested IdentityType) error {
	t.logger.Info("sending Identity Request", zap.String("ue_id", ueID), zap.String("requested_type", requested.String()))
	return nil
}

func (t *LoggingTransport) SendAuthenticationRequest(ctx context.Context, ueID string, rand, autn []byte) error {
	t.logger.Info("sending Authentication Request", zap.String("ue_id", ueID))
	return nil
}

func (t *LoggingTransport) SendSecurityModeCommand(ctx context.Context, ueID string, eea, eia security.Algorithm) error {
	t.logger.Info("sending Security Mode Command",
		zap.String("ue_id", ueID),
		zap.String("eea", string(eea)),
		zap.String("eia", string(eia)),
	)
	return nil
}

func (t *LoggingTransport) SendAttachAccept(ctx context.Context, ueID string, msg *AttachAccept) error {
	t.logger.Info("sending Attach Accept", zap.String("ue_id", ueID))
	return nil
}

func (t *LoggingTransport) SendAttachReject(ctx context.Context, ueID string, emmCause cause.EMMCause, esmPDU []byte) error {
	t.logger.Info("sending Attach Reject", zap.String("ue_id", ueID), zap.String("cause", emmCause.String()))
	return nil
}
