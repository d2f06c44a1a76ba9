// Command gainrender runs a WAV file, or a generated test tone, through the
// gain effect and writes the result as 16-bit WAV.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/justyntemme/webgain/pkg/audioio"
	"github.com/justyntemme/webgain/pkg/dsp/gain"
	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/gainfx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gainrender: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "JSON configuration file (optional)")
	input := flag.String("in", "", "Input WAV file. Empty renders the test tone")
	output := flag.String("out", "output.wav", "Output WAV file path")
	gainDB := flag.Float64("gain", 0, "Gain in dB")
	gainTo := flag.Float64("gain-to", math.NaN(), "Gain in dB applied halfway through, to audition the ramp")
	off := flag.Bool("off", false, "Render with the effect switched off")
	bypass := flag.String("bypass", "", "Output while off: passthrough or silence")
	rampMs := flag.Float64("ramp-ms", 0, "Gain ramp length in milliseconds (0 keeps the configured value)")
	duration := flag.Float64("duration", 2, "Test tone length in seconds")
	sampleRate := flag.Int("sample-rate", 0, "Test tone sample rate in Hz (0 keeps the configured value)")
	paramsFile := flag.String("params", "", "Parameter table override JSON")
	stateFile := flag.String("state", "", "State blob to restore before rendering")
	saveState := flag.String("save-state", "", "Write the final parameter state to this file")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error, off")
	flag.Parse()

	cfg := gainfx.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = gainfx.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	f := &gainfx.File{ParamsFile: *paramsFile, StateFile: *stateFile}
	if *bypass != "" {
		f.Bypass = bypass
	}
	if *rampMs > 0 {
		f.RampMs = rampMs
	}
	if *sampleRate > 0 {
		sr := float64(*sampleRate)
		f.SampleRate = &sr
	}
	if *logLevel != "" {
		f.LogLevel = logLevel
	}
	if err := gainfx.ApplyFile(cfg, f); err != nil {
		return err
	}

	debug.SetLevel(cfg.LogLevel)
	logger := debug.Named("gainrender")

	table, err := gainfx.LoadTable(cfg.ParamsFile)
	if err != nil {
		return err
	}
	store := param.NewStore(table)
	proc, err := gainfx.NewProcessor(store,
		gainfx.WithBypassPolicy(cfg.Bypass),
		gainfx.WithRampMs(cfg.RampMs),
	)
	if err != nil {
		return err
	}

	if cfg.StateFile != "" {
		if err := loadState(proc, cfg.StateFile); err != nil {
			return err
		}
	} else {
		store.Set(gainfx.ParamGain, *gainDB, param.OriginHost)
	}
	if *off {
		store.Set(gainfx.ParamOnOff, 0, param.OriginHost)
	}

	clip, err := source(cfg, *input, *duration)
	if err != nil {
		return err
	}
	if err := proc.Prepare(float64(clip.SampleRate), cfg.BlockSize, len(clip.Channels)); err != nil {
		return err
	}

	gainDesc, _ := table.Lookup(gainfx.ParamGain)
	logger.Info("rendering %.2fs at %d Hz, %d ch, gain %s",
		clip.Duration(), clip.SampleRate, len(clip.Channels), gainDesc.Format(store.Get(gainfx.ParamGain)))

	half := clip.Frames() / 2
	out, err := audioio.Render(proc, clip, cfg.BlockSize, func(offset int) {
		if !math.IsNaN(*gainTo) && offset >= half && offset < half+cfg.BlockSize {
			store.Set(gainfx.ParamGain, *gainTo, param.OriginHost)
		}
	})
	if err != nil {
		return err
	}

	if err := audioio.WriteFile(*output, out); err != nil {
		return err
	}
	peak := float32(0)
	for i, ch := range out.Channels {
		logger.LogBufferIssues(ch, fmt.Sprintf("channel %d", i))
		if p := gain.Peak(ch); p > peak {
			peak = p
		}
	}
	fmt.Printf("Wrote %s (%d frames, peak %s)\n", *output, out.Frames(), param.DecibelFormatter(gain.LinearToDb(float64(peak))))

	if *saveState != "" {
		blob, err := proc.GetState()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*saveState, blob, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func loadState(proc *gainfx.Processor, path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := proc.SetState(blob); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// source returns the input clip, or the configured test tone when path is
// empty.
func source(cfg *gainfx.Config, path string, seconds float64) (*audioio.Clip, error) {
	if path != "" {
		return audioio.ReadFile(path)
	}
	if !(seconds > 0) {
		return nil, errors.New("duration must be > 0")
	}

	clip := audioio.NewClip(int(cfg.SampleRate), cfg.Channels, int(cfg.SampleRate*seconds))
	tone := gainfx.NewTone(cfg.SampleRate, cfg.ToneHz, cfg.ToneDB)
	if err := tone.SetWaveform(cfg.ToneWaveform); err != nil {
		return nil, err
	}
	tone.Fill(clip.Channels)
	return clip, nil
}
