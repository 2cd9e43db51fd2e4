// Package peer implements the two external collaborators the Attach
// procedure treats as black boxes ("Deliberately out of
// scope"): the HSS/AuC authentication vector provider and the ESM
// (session management) peer. Both are modeled as small HTTP clients in
// the style of nf/amf/internal/client/ausf_client.go from the reference
// 5G core: JSON request/response over context-scoped http.Client calls,
// wrapped errors, zap debug logging.
package peer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AuthVector is the 4-tuple the Authentication common procedure needs:
// RAND/AUTN to challenge the UE, XRES to check the response, and KASME to
// seed the Security Context.
type AuthVector struct {
	RAND  []byte
	AUTN  []byte
	XRES  []byte
	KASME []byte
}

// VectorProvider is the HSS/AuC collaborator: it hands out authentication
// vectors keyed by IMSI, and can mint a fresh one after a UE-reported
// synchronization failure.
type VectorProvider interface {
	GetVector(ctx context.Context, imsi string) (*AuthVector, error)
	Resync(ctx context.Context, imsi string, auts []byte) (*AuthVector, error)
}

// HTTPVectorClient is the default VectorProvider, talking to an HSS/AuC
// front-end over HTTP.
type HTTPVectorClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPVectorClient creates a VectorProvider bound to baseURL.
func NewHTTPVectorClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPVectorClient {
	return &HTTPVectorClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type vectorRequest struct {
	IMSI string `json:"imsi"`
	AUTS string `json:"auts,omitempty"`
}

type vectorResponse struct {
	RAND  string `json:"rand"`
	AUTN  string `json:"autn"`
	XRES  string `json:"xres"`
	KASME string `json:"kasme"`
}

func (c *HTTPVectorClient) GetVector(ctx context.Context, imsi string) (*AuthVector, error) {
	return c.request(ctx, vectorRequest{IMSI: imsi})
}

func (c *HTTPVectorClient) Resync(ctx context.Context, imsi string, auts []byte) (*AuthVector, error) {
	return c.request(ctx, vectorRequest{IMSI: imsi, AUTS: hex.EncodeToString(auts)})
}

func (c *HTTPVectorClient) request(ctx context.Context, req vectorRequest) (*AuthVector, error) {
	url := fmt.Sprintf("%s/auc-vectors/v1/%s", c.baseURL, req.IMSI)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vector request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create vector request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("requesting authentication vector", zap.String("imsi", req.IMSI))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach auc: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("auc returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var vr vectorResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("failed to decode vector response: %w", err)
	}

	rand, _ := hex.DecodeString(vr.RAND)
	autn, _ := hex.DecodeString(vr.AUTN)
	xres, _ := hex.DecodeString(vr.XRES)
	kasme, _ := hex.DecodeString(vr.KASME)

	return &AuthVector{RAND: rand, AUTN: autn, XRES: xres, KASME: kasme}, nil
}
