// Package config loads the daemon's YAML configuration, grounded on the
// teacher's config.go nested yaml-tagged struct convention (one struct per
// daemon concern, loaded with gopkg.in/yaml.v3).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Tuner      TunerConfig      `yaml:"tuner"`
	Detector   DetectorConfig   `yaml:"detector"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Websocket  WebsocketConfig  `yaml:"websocket"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	MCP        MCPConfig        `yaml:"mcp"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// TunerConfig configures the spectral tuner's main window and channels.
type TunerConfig struct {
	SampRate       uint          `yaml:"samp_rate"`
	WindowSize     int           `yaml:"window_size"`
	EarlyWindowing bool          `yaml:"early_windowing"`
	Channels       []ChannelSpec `yaml:"channels"`
}

// ChannelSpec describes one channel to open at startup.
type ChannelSpec struct {
	Name      string  `yaml:"name"`
	FreqHz    float64 `yaml:"freq_hz"`
	DeltaFHz  float64 `yaml:"delta_f_hz,omitempty"`
	BWHz      float64 `yaml:"bw_hz"`
	Guard     float64 `yaml:"guard"`
	Precise   bool    `yaml:"precise"`
	FreqDomain bool   `yaml:"freq_domain,omitempty"`
}

// DetectorConfig configures the channel detector.
type DetectorConfig struct {
	Mode       string  `yaml:"mode"` // spectrum, discovery, autocorrelation, nonlinear_diff
	SampRate   uint    `yaml:"samp_rate"`
	WindowSize uint    `yaml:"window_size"`
	Decimation uint    `yaml:"decimation"`
	Window     string  `yaml:"window"` // none, hamming, hann, flat_top, blackmann_harris
	SNR        float64 `yaml:"snr"`
	MaxAge     uint    `yaml:"max_age"`
	Tune       bool    `yaml:"tune"`
	Fc         float64 `yaml:"fc,omitempty"`
	BW         float64 `yaml:"bw,omitempty"`
}

// MQTTConfig configures the channel-event publisher.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// WebsocketConfig configures the live spectrum/channel feed.
type WebsocketConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	Path          string `yaml:"path"`
	CompressFrames bool  `yaml:"compress_frames"`
}

// MetricsConfig configures the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ListenAddr       string `yaml:"listen_addr"`
	HostSampleSeconds int   `yaml:"host_sample_seconds"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig configures the daemon's stdlib logger.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Default returns sane defaults for running the daemon standalone.
func Default() Config {
	return Config{
		Tuner: TunerConfig{
			SampRate:   48000,
			WindowSize: 4096,
		},
		Detector: DetectorConfig{
			Mode:       "discovery",
			SampRate:   48000,
			WindowSize: 8192,
			Decimation: 1,
			Window:     "blackmann_harris",
			SNR:        2,
			MaxAge:     40,
		},
		Websocket: WebsocketConfig{
			ListenAddr: ":8090",
			Path:       "/ws",
		},
		Metrics: MetricsConfig{
			Enabled:           true,
			ListenAddr:        ":9090",
			HostSampleSeconds: 5,
		},
	}
}

// Load reads and parses a YAML configuration file at path, starting from
// Default() so unset fields keep sane values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}
