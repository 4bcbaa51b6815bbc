package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsNonPositiveSampleRate(t *testing.T) {
	cfg := Default(0)
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedBandpassRange(t *testing.T) {
	cfg := Default(16000)
	cfg.PeakRateBandMinHz = 3000
	cfg.PeakRateBandMaxHz = 500
	assert.Error(t, cfg.Validate())
}

func TestManagerLoadWritesDefaultsWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	m := NewManager(tmpDir, 16000)
	require.NoError(t, m.Load())

	if _, err := os.Stat(m.GetPath()); os.IsNotExist(err) {
		t.Fatal("expected config file to be written with defaults")
	}
	assert.Equal(t, 16000, m.Get().SampleRate)
}

func TestManagerLoadRoundtripsOverrides(t *testing.T) {
	tmpDir := t.TempDir()

	m := NewManager(tmpDir, 16000)
	require.NoError(t, m.Load())

	cfg := m.Get()
	cfg.ThresholdPeakRate = 0.001
	require.NoError(t, m.Update(cfg))

	m2 := NewManager(tmpDir, 16000)
	require.NoError(t, m2.Load())
	assert.Equal(t, 0.001, m2.Get().ThresholdPeakRate)
}

func TestManagerLoadRejectsCorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "detector.json"), []byte("not json"), 0600))

	m := NewManager(tmpDir, 16000)
	assert.Error(t, m.Load())
}

func TestOverridesApplyOnlySetsNonNilFields(t *testing.T) {
	cfg := Default(16000)
	originalVoicedHold := cfg.VoicedHoldMs

	k := 7.0
	Overrides{AdaptivePeakRateK: &k}.Apply(&cfg)

	assert.Equal(t, 7.0, cfg.AdaptivePeakRateK)
	assert.Equal(t, originalVoicedHold, cfg.VoicedHoldMs)
}
