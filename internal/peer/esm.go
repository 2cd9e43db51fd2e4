package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ESMStatus mirrors the three-valued return status of the ESM SAP
// primitives: `SUCCESS | DISCARDED | ERROR`.
type ESMStatus int

const (
	ESMSuccess ESMStatus = iota
	ESMDiscarded
	ESMError
)

// ESMPeer is the ESM (session management) collaborator, reachable by the
// two request/response primitives allows: a non-standalone
// unit-data indication carrying the inner PDN-Connectivity Request, and a
// confirmation once the default bearer has been activated. Bearer setup
// itself is entirely ESM's concern.
type ESMPeer interface {
	// UnitDataInd forwards the Attach Request's inner ESM PDU to ESM
	// (EMMESM_UNITDATA_IND). On ESMSuccess esmResp is the
	// PDU to piggy-back on Attach Accept; on ESMError it is the PDU to
	// piggy-back on Attach Reject; on ESMDiscarded it is nil and must be
	// ignored.
	UnitDataInd(ctx context.Context, ueID string, esmReq []byte) (status ESMStatus, esmResp []byte, err error)

	// DefaultBearerActivateConfirm forwards the Attach Complete's inner
	// Activate Default EPS Bearer Context Accept to ESM
	// (EMMESM_DEFAULT_EPS_BEARER_CONTEXT_ACTIVATE_CNF).
	DefaultBearerActivateConfirm(ctx context.Context, ueID string, esmComplete []byte) error

	// PDNConnectivityReject notifies ESM that the Attach that requested a
	// PDN connection was aborted or rejected (EMMESM_PDN_CONNECTIVITY_REJ,
	// "Cancellation").
	PDNConnectivityReject(ctx context.Context, ueID string) error
}

// HTTPESMPeer is the default ESMPeer, talking to the ESM/SMF front-end
// over HTTP in the same shape as the AUSF/NRF clients of the reference 5G
// core.
type HTTPESMPeer struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPESMPeer(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPESMPeer {
	return &HTTPESMPeer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type unitDataIndRequest struct {
	UEID   string `json:"ueId"`
	ESMPDU []byte `json:"esmPdu"`
}

type unitDataIndResponse struct {
	Status string `json:"status"` // "SUCCESS" | "DISCARDED" | "ERROR"
	ESMPDU []byte `json:"esmPdu,omitempty"`
}

func (p *HTTPESMPeer) UnitDataInd(ctx context.Context, ueID string, esmReq []byte) (ESMStatus, []byte, error) {
	url := fmt.Sprintf("%s/esm/v1/unitdata-ind", p.baseURL)

	body, err := json.Marshal(unitDataIndRequest{UEID: ueID, ESMPDU: esmReq})
	if err != nil {
		return ESMError, nil, fmt.Errorf("failed to marshal unitdata-ind: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ESMError, nil, fmt.Errorf("failed to create unitdata-ind request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	p.logger.Debug("forwarding ESM PDU to ESM peer", zap.String("ue_id", ueID))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return ESMError, nil, fmt.Errorf("failed to reach esm peer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return ESMError, nil, fmt.Errorf("esm peer returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var ur unitDataIndResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return ESMError, nil, fmt.Errorf("failed to decode unitdata-ind response: %w", err)
	}

	switch ur.Status {
	case "SUCCESS":
		return ESMSuccess, ur.ESMPDU, nil
	case "DISCARDED":
		return ESMDiscarded, nil, nil
	default:
		return ESMError, ur.ESMPDU, nil
	}
}

func (p *HTTPESMPeer) DefaultBearerActivateConfirm(ctx context.Context, ueID string, esmComplete []byte) error {
	return p.postVoid(ctx, "/esm/v1/default-bearer-activate-cnf", ueID, esmComplete)
}

func (p *HTTPESMPeer) PDNConnectivityReject(ctx context.Context, ueID string) error {
	return p.postVoid(ctx, "/esm/v1/pdn-connectivity-rej", ueID, nil)
}

func (p *HTTPESMPeer) postVoid(ctx context.Context, path, ueID string, payload []byte) error {
	url := fmt.Sprintf("%s%s", p.baseURL, path)

	body, err := json.Marshal(unitDataIndRequest{UEID: ueID, ESMPDU: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach esm peer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("esm peer returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
