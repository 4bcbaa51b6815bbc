// Package config handles syllable-detector configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Weights holds the fusion blend weights for each feature channel. They are
// expected to sum to roughly 1.0; Manager does not enforce that, the fusion
// stage normalizes by the actual enabled-weight sum at run time.
type Weights struct {
	PeakRate     float64 `json:"peakRate"`
	SpectralFlux float64 `json:"spectralFlux"`
	HFE          float64 `json:"hfe"`
	MFCC         float64 `json:"mfcc"`
	Wavelet      float64 `json:"wavelet"`
	VoicedBonus  float64 `json:"voicedBonus"`
}

// Config is the full set of recognized detector options, immutable once
// passed to syllable.New. Field names and defaults mirror the configuration
// table of the detector specification.
type Config struct {
	SampleRate int `json:"sampleRate"`

	ZFFTrendWindowMs float64 `json:"zffTrendWindowMs"`

	PeakRateBandMinHz float64 `json:"peakRateBandMinHz"`
	PeakRateBandMaxHz float64 `json:"peakRateBandMaxHz"`

	MinSyllableDistMs float64 `json:"minSyllableDistMs"`

	ThresholdPeakRate     float64 `json:"thresholdPeakRate"`
	AdaptivePeakRateK     float64 `json:"adaptivePeakRateK"`
	AdaptivePeakRateTauMs float64 `json:"adaptivePeakRateTauMs"`

	VoicedHoldMs float64 `json:"voicedHoldMs"`

	HysteresisOnFactor  float64 `json:"hysteresisOnFactor"`
	HysteresisOffFactor float64 `json:"hysteresisOffFactor"`

	ContextSize int `json:"contextSize"`

	EnableSpectralFlux bool `json:"enableSpectralFlux"`
	EnableHFE          bool `json:"enableHFE"`
	EnableMFCC         bool `json:"enableMFCC"`
	EnableWavelet      bool `json:"enableWavelet"`
	EnableAGC          bool `json:"enableAGC"`

	FFTSizeMs float64 `json:"fftSizeMs"`
	HopSizeMs float64 `json:"hopSizeMs"`

	HighFreqCutoffHz float64 `json:"highFreqCutoffHz"`

	Weights          Weights `json:"weights"`
	FusionBlendAlpha float64 `json:"fusionBlendAlpha"`

	UnvoicedOnsetThreshold float64 `json:"unvoicedOnsetThreshold"`
	AllowUnvoicedOnsets    bool    `json:"allowUnvoicedOnsets"`

	RealtimeMode          bool    `json:"realtimeMode"`
	CalibrationDurationMs float64 `json:"calibrationDurationMs"`
	SNRThresholdDB        float64 `json:"snrThresholdDB"`
}

// Default returns the default configuration for a given sample rate.
func Default(sampleRate int) Config {
	return Config{
		SampleRate:            sampleRate,
		ZFFTrendWindowMs:      10,
		PeakRateBandMinHz:     500,
		PeakRateBandMaxHz:     3200,
		MinSyllableDistMs:     150,
		ThresholdPeakRate:     3e-4,
		AdaptivePeakRateK:     4.0,
		AdaptivePeakRateTauMs: 500,
		VoicedHoldMs:          30,
		HysteresisOnFactor:    1.2,
		HysteresisOffFactor:   0.8,
		ContextSize:           2,
		EnableSpectralFlux:    true,
		EnableHFE:             true,
		EnableMFCC:            true,
		EnableWavelet:         true,
		EnableAGC:             true,
		FFTSizeMs:             32,
		HopSizeMs:             16,
		HighFreqCutoffHz:      2000,
		Weights: Weights{
			PeakRate:     0.30,
			SpectralFlux: 0.25,
			HFE:          0.15,
			MFCC:         0.10,
			Wavelet:      0.20,
			VoicedBonus:  0.10,
		},
		FusionBlendAlpha:       0.6,
		UnvoicedOnsetThreshold: 0.5,
		AllowUnvoicedOnsets:    true,
		RealtimeMode:           false,
		CalibrationDurationMs:  2000,
		SNRThresholdDB:         6,
	}
}

// Validate reports configuration errors that must be caught before
// construction: non-positive sample rate, or an inverted/degenerate
// bandpass range.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.PeakRateBandMinHz >= c.PeakRateBandMaxHz {
		return fmt.Errorf("config: peak rate band min (%g) must be less than max (%g)", c.PeakRateBandMinHz, c.PeakRateBandMaxHz)
	}
	return nil
}

// Overrides carries the four fields the external CLI/environment layer is
// permitted to override prior to construction.
type Overrides struct {
	ThresholdPeakRate     *float64
	AdaptivePeakRateK     *float64
	AdaptivePeakRateTauMs *float64
	VoicedHoldMs          *float64
}

// Apply layers non-nil override fields onto the configuration.
func (o Overrides) Apply(c *Config) {
	if o.ThresholdPeakRate != nil {
		c.ThresholdPeakRate = *o.ThresholdPeakRate
	}
	if o.AdaptivePeakRateK != nil {
		c.AdaptivePeakRateK = *o.AdaptivePeakRateK
	}
	if o.AdaptivePeakRateTauMs != nil {
		c.AdaptivePeakRateTauMs = *o.AdaptivePeakRateTauMs
	}
	if o.VoicedHoldMs != nil {
		c.VoicedHoldMs = *o.VoicedHoldMs
	}
}

// Manager handles loading and saving a Config to a JSON file on disk.
type Manager struct {
	configDir  string
	configPath string
	config     Config
	logger     *log.Logger
}

// NewManager creates a new configuration manager rooted at configDir, with
// defaults for sampleRate until Load is called.
func NewManager(configDir string, sampleRate int) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "detector.json"),
		config:     Default(sampleRate),
		logger:     log.NewWithOptions(os.Stderr, log.Options{Prefix: "config"}),
	}
}

// Load reads the configuration from disk, writing out defaults if no file
// exists yet.
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.logger.Debug("no config file found, writing defaults", "path", m.configPath)
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("config: read config: %w", err)
	}

	cfg := m.config // start from current defaults so unset JSON fields keep them
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("config: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.config = cfg
	return nil
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}

	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() Config {
	return m.config
}

// GetPath returns the config file path.
func (m *Manager) GetPath() string {
	return m.configPath
}

// Update replaces the configuration and saves it.
func (m *Manager) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return m.Save()
}
