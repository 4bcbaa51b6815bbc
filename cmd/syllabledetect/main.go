// Command syllabledetect runs the streaming syllable/accent detector over a
// WAV file, printing detected events as newline-delimited JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/Suke-go/syllabledetection/internal/config"
	"github.com/Suke-go/syllabledetection/internal/syllable"
	"github.com/Suke-go/syllabledetection/internal/wavio"
)

// Version is set at build time via ldflags.
var Version = "dev"

type cliConfig struct {
	InputPath  string
	ConfigDir  string
	MarkOut    string
	Realtime   bool
	SNRdB      float64
	Verbose    bool
	Subcommand string
}

func main() {
	cfg := parseFlags()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "syllabledetect"})
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("fatal error", "err", err)
	}
}

func parseFlags() cliConfig {
	var cfg cliConfig

	pflag.StringVar(&cfg.ConfigDir, "config", "", "Configuration directory (default: ~/.config/syllabledetect)")
	pflag.StringVar(&cfg.MarkOut, "mark-out", "", "Write a copy of the input WAV with sine-pulse markers at accented events")
	pflag.BoolVar(&cfg.Realtime, "realtime", false, "Enable real-time calibrated-threshold mode")
	pflag.Float64Var(&cfg.SNRdB, "snr-db", 6, "SNR margin (dB) for real-time calibration thresholds")
	pflag.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose logging")
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: syllabledetect <detect|calibrate> <input.wav> [flags]")
		os.Exit(2)
	}
	cfg.Subcommand = args[0]
	cfg.InputPath = args[1]

	if cfg.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to get home directory: %v\n", err)
			os.Exit(1)
		}
		cfg.ConfigDir = filepath.Join(homeDir, ".config", "syllabledetect")
	}

	return cfg
}

func run(ctx context.Context, cli cliConfig, logger *log.Logger) error {
	if err := os.MkdirAll(cli.ConfigDir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	wav, err := wavio.ReadFile(cli.InputPath)
	if err != nil {
		return fmt.Errorf("read input WAV: %w", err)
	}
	logger.Info("loaded input", "path", cli.InputPath, "sampleRate", wav.Format.SampleRate, "samples", len(wav.Samples))

	configMgr := config.NewManager(cli.ConfigDir, wav.Format.SampleRate)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	detCfg := configMgr.Get()
	detCfg.SampleRate = wav.Format.SampleRate

	switch cli.Subcommand {
	case "calibrate":
		detCfg.RealtimeMode = true
		detCfg.SNRThresholdDB = cli.SNRdB
	case "detect":
		detCfg.RealtimeMode = cli.Realtime
		detCfg.SNRThresholdDB = cli.SNRdB
	default:
		return fmt.Errorf("unknown subcommand %q (want detect or calibrate)", cli.Subcommand)
	}

	det, err := syllable.New(detCfg)
	if err != nil {
		return fmt.Errorf("construct detector: %w", err)
	}
	logger.Debug("detector constructed", "realtimeMode", detCfg.RealtimeMode)

	var accentedTimestamps []int
	encoder := json.NewEncoder(os.Stdout)

	const blockSize = 4096
	eventsOut := make([]syllable.Event, 64)

	for off := 0; off < len(wav.Samples); off += blockSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := off + blockSize
		if end > len(wav.Samples) {
			end = len(wav.Samples)
		}

		n, err := det.Process(wav.Samples[off:end], eventsOut)
		if err != nil {
			return fmt.Errorf("process block: %w", err)
		}
		for i := 0; i < n; i++ {
			emitEvent(encoder, eventsOut[i], &accentedTimestamps)
		}
	}

	n := det.Flush(eventsOut)
	for i := 0; i < n; i++ {
		emitEvent(encoder, eventsOut[i], &accentedTimestamps)
	}

	if cli.MarkOut != "" {
		marked := append([]float32(nil), wav.Samples...)
		for _, sampleIdx := range accentedTimestamps {
			wavio.MixSinePulse(marked, wav.Format.SampleRate, sampleIdx, 1000, 50, 0.5)
		}
		if err := wavio.WriteFile(cli.MarkOut, wav.Format.SampleRate, marked); err != nil {
			return fmt.Errorf("write marked WAV: %w", err)
		}
		logger.Info("wrote marked output", "path", cli.MarkOut, "markers", len(accentedTimestamps))
	}

	return nil
}

func emitEvent(enc *json.Encoder, ev syllable.Event, accented *[]int) {
	if ev.IsAccented {
		*accented = append(*accented, int(ev.TimestampSamples))
	}
	if err := enc.Encode(ev); err != nil {
		fmt.Fprintf(os.Stderr, "encode event: %v\n", err)
	}
}
