// Package config loads the MME's YAML configuration file: admin-surface
// bind address, GUAMI/PLMN, EMM timer
// durations, security algorithm priority, emergency bearer policy, and the
// peer URLs for the HSS/AuC and ESM collaborators.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level MME configuration.
type Config struct {
	NF            NFConfig            `yaml:"nf"`
	Admin         AdminConfig         `yaml:"admin"`
	GUAMI         GUAMIConfig         `yaml:"guami"`
	PLMN          PLMNConfig          `yaml:"plmn"`
	Timers        TimersConfig        `yaml:"timers"`
	Security      SecurityConfig      `yaml:"security"`
	Emergency     EmergencyConfig     `yaml:"emergency"`
	Peers         PeersConfig         `yaml:"peers"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// NFConfig identifies this MME instance.
type NFConfig struct {
	Name       string `yaml:"name"`
	InstanceID string `yaml:"instance_id"`
}

// AdminConfig carries the read-only admin HTTP surface's bind address
// (see internal/adminserver).
type AdminConfig struct {
	BindAddress string `yaml:"bind_address"`
}

// GUAMIConfig is the Globally Unique MME/AMF Identifier used to allocate
// GUTIs on Attach Accept.
type GUAMIConfig struct {
	AMFRegionID uint8  `yaml:"amf_region_id"`
	AMFSetID    uint16 `yaml:"amf_set_id"`
	AMFPointer  uint8  `yaml:"amf_pointer"`
}

// PLMNConfig is the serving Public Land Mobile Network identity.
type PLMNConfig struct {
	MCC string `yaml:"mcc"`
	MNC string `yaml:"mnc"`
}

// TimersConfig carries the EMM timer durations of "Timer
// values": T3450/T3460/T3470 retransmission timers, T3402 (carried on
// Attach Accept but not run by this core), and ATTACH_COUNTER_MAX, the
// retransmission budget of invariant 5.
type TimersConfig struct {
	T3450            time.Duration `yaml:"t3450"`
	T3460            time.Duration `yaml:"t3460"`
	T3470            time.Duration `yaml:"t3470"`
	T3402            time.Duration `yaml:"t3402"`
	AttachCounterMax int           `yaml:"attach_counter_max"`
}

// SecurityConfig carries the NAS algorithm priority lists used for
// selection on Security Mode Control.
type SecurityConfig struct {
	EEAPriority        []string `yaml:"eea_priority"`
	EIAPriority        []string `yaml:"eia_priority"`
	AllowNullCiphering bool     `yaml:"allow_null_ciphering"`
}

// EmergencyConfig is the emergency-attach gate of step 2.
type EmergencyConfig struct {
	BearersSupported bool `yaml:"bearers_supported"`
}

// PeersConfig carries the HSS/AuC and ESM peer URLs — collaborators
// modeled as opaque peers in internal/peer.
type PeersConfig struct {
	VectorProvider PeerClientConfig `yaml:"vector_provider"`
	ESM            PeerClientConfig `yaml:"esm"`
}

// PeerClientConfig is one HTTP peer client's endpoint and timeout.
type PeerClientConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ObservabilityConfig bundles the metrics and logging knobs.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig controls the Prometheus exposition server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates the MME configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Admin.BindAddress == "" {
		cfg.Admin.BindAddress = "0.0.0.0:8090"
	}
	if cfg.Timers.T3450 == 0 {
		cfg.Timers.T3450 = 6 * time.Second
	}
	if cfg.Timers.T3460 == 0 {
		cfg.Timers.T3460 = 6 * time.Second
	}
	if cfg.Timers.T3470 == 0 {
		cfg.Timers.T3470 = 6 * time.Second
	}
	if cfg.Timers.T3402 == 0 {
		cfg.Timers.T3402 = 12 * time.Minute
	}
	if cfg.Timers.AttachCounterMax == 0 {
		cfg.Timers.AttachCounterMax = 5
	}
	if cfg.Observability.Metrics.Port == 0 {
		cfg.Observability.Metrics.Port = 9094
	}
	if cfg.Observability.Logging.Level == "" {
		cfg.Observability.Logging.Level = "info"
	}
}

// Validate checks the required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NF.Name == "" {
		return fmt.Errorf("nf.name is required")
	}
	if c.NF.InstanceID == "" {
		return fmt.Errorf("nf.instance_id is required")
	}
	if c.PLMN.MCC == "" || c.PLMN.MNC == "" {
		return fmt.Errorf("plmn.mcc and plmn.mnc are required")
	}
	if c.Peers.VectorProvider.URL == "" {
		return fmt.Errorf("peers.vector_provider.url is required")
	}
	if c.Peers.ESM.URL == "" {
		return fmt.Errorf("peers.esm.url is required")
	}
	if len(c.Security.EIAPriority) == 0 {
		return fmt.Errorf("security.eia_priority must name at least one integrity algorithm")
	}
	return nil
}
