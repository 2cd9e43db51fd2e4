package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
nf:
  name: mme-1
  instance_id: 550e8400-e29b-41d4-a716-446655440000
guami:
  amf_region_id: 1
  amf_set_id: 1
  amf_pointer: 0
plmn:
  mcc: "001"
  mnc: "01"
timers:
  t3450: 6s
  t3460: 6s
  t3470: 6s
  t3402: 12m
  attach_counter_max: 5
security:
  eea_priority: ["EEA2", "EEA0"]
  eia_priority: ["EIA2"]
  allow_null_ciphering: true
emergency:
  bearers_supported: false
peers:
  vector_provider:
    url: "http://hss.local:8443"
    timeout: 2s
  esm:
    url: "http://esm.local:8080"
    timeout: 2s
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mme.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTempConfig(t, validYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mme-1", cfg.NF.Name)
	assert.Equal(t, "001", cfg.PLMN.MCC)
	assert.Equal(t, 6*time.Second, cfg.Timers.T3450)
	assert.Equal(t, 12*time.Minute, cfg.Timers.T3402)
	assert.Equal(t, 5, cfg.Timers.AttachCounterMax)
	assert.Equal(t, []string{"EEA2", "EEA0"}, cfg.Security.EEAPriority)
	assert.Equal(t, "http://hss.local:8443", cfg.Peers.VectorProvider.URL)
	assert.Equal(t, "0.0.0.0:8090", cfg.Admin.BindAddress, "bind address falls back to default")
}

func TestLoad_DefaultsAppliedWhenOmitted(t *testing.T) {
	path := writeTempConfig(t, `
nf:
  name: mme-1
  instance_id: 550e8400-e29b-41d4-a716-446655440000
plmn:
  mcc: "001"
  mnc: "01"
security:
  eia_priority: ["EIA2"]
peers:
  vector_provider:
    url: "http://hss.local:8443"
  esm:
    url: "http://esm.local:8080"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6*time.Second, cfg.Timers.T3450)
	assert.Equal(t, 5, cfg.Timers.AttachCounterMax)
	assert.Equal(t, 9094, cfg.Observability.Metrics.Port)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
}

func TestLoad_MissingRequiredFieldFails(t *testing.T) {
	path := writeTempConfig(t, `
nf:
  name: mme-1
  instance_id: 550e8400-e29b-41d4-a716-446655440000
plmn:
  mcc: "001"
  mnc: "01"
security:
  eia_priority: ["EIA2"]
peers:
  esm:
    url: "http://esm.local:8080"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector_provider.url")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/mme.yaml")
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeTempConfig(t, "nf: [this is not a mapping")
	_, err := Load(path)
	require.Error(t, err)
}
