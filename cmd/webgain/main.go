// Command webgain plays a test tone through the gain effect on the default
// audio device and serves a browser control panel. An optional terminal panel
// drives the same parameters from the keyboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
	"github.com/justyntemme/webgain/pkg/gainfx"
	"github.com/justyntemme/webgain/pkg/host/playback"
	"github.com/justyntemme/webgain/pkg/termui"
	"github.com/justyntemme/webgain/pkg/webui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "webgain: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	listen     string
	stateFile  string
	paramsFile string
	bypass     string
	logLevel   string
	logFile    string
	noAudio    bool
	terminal   bool
	bufferMs   int
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.configPath, "config", "", "JSON configuration file (optional)")
	flag.StringVar(&o.listen, "listen", "", "HTTP listen address (default 127.0.0.1:8080)")
	flag.StringVar(&o.stateFile, "state", "", "State file loaded at start and saved on exit")
	flag.StringVar(&o.paramsFile, "params", "", "Parameter table override JSON")
	flag.StringVar(&o.bypass, "bypass", "", "Output while off: passthrough or silence")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	flag.StringVar(&o.logFile, "log-file", "", "Append logs to this file instead of stderr")
	flag.BoolVar(&o.noAudio, "no-audio", false, "Run without opening the audio device")
	flag.BoolVar(&o.terminal, "term", false, "Show the keyboard panel on the terminal")
	flag.IntVar(&o.bufferMs, "buffer-ms", 0, "Audio device buffer in milliseconds (0 lets the driver decide)")
	flag.Parse()
	return o
}

func loadConfig(o *options) (*gainfx.Config, error) {
	cfg := gainfx.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = gainfx.LoadConfig(o.configPath); err != nil {
			return nil, err
		}
	}

	f := &gainfx.File{
		ParamsFile: o.paramsFile,
		StateFile:  o.stateFile,
		Listen:     o.listen,
	}
	if o.bypass != "" {
		f.Bypass = &o.bypass
	}
	if o.logLevel != "" {
		f.LogLevel = &o.logLevel
	}
	if err := gainfx.ApplyFile(cfg, f); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run() error {
	o := parseFlags()
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	debug.SetLevel(cfg.LogLevel)
	if o.logFile != "" {
		file, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer file.Close()
		debug.SetOutput(file)
	} else if o.terminal && cfg.LogLevel < debug.LogLevelWarn {
		// Info lines would tear through the panel.
		debug.SetLevel(debug.LogLevelWarn)
	}
	logger := debug.Named("webgain")

	table, err := gainfx.LoadTable(cfg.ParamsFile)
	if err != nil {
		return err
	}
	store := param.NewStore(table)
	history := plugin.NewEditHistory(store, plugin.DefaultHistoryLimit)

	proc, err := gainfx.NewProcessor(store,
		gainfx.WithBypassPolicy(cfg.Bypass),
		gainfx.WithRampMs(cfg.RampMs),
	)
	if err != nil {
		return err
	}
	if err := loadState(proc, cfg.StateFile, logger); err != nil {
		return err
	}
	if err := proc.Prepare(cfg.SampleRate, cfg.BlockSize, cfg.Channels); err != nil {
		return err
	}

	web, err := webui.New(store,
		webui.WithInfo(proc.Info),
		webui.WithHost(history),
		webui.WithHistory(history),
		webui.WithCodec(proc.Codec()),
		webui.WithMeter(proc.Meter().PeakDB, webui.DefaultMeterInterval),
	)
	if err != nil {
		return err
	}
	defer web.Close()

	var player *playback.Player
	if !o.noAudio {
		tone := gainfx.NewTone(cfg.SampleRate, cfg.ToneHz, cfg.ToneDB)
		if err := tone.SetWaveform(cfg.ToneWaveform); err != nil {
			return err
		}
		stream, err := playback.NewStream(proc, tone, cfg.SampleRate, cfg.Channels, 4*cfg.BlockSize)
		if err != nil {
			return err
		}
		player, err = playback.Open(stream, playback.Options{
			SampleRate: int(cfg.SampleRate),
			Channels:   cfg.Channels,
			BufferSize: time.Duration(o.bufferMs) * time.Millisecond,
		})
		if err != nil {
			return err
		}
		defer player.Close()
	}

	var panel *termui.Panel
	if o.terminal {
		restore, width, err := termui.RawTerminal(os.Stdin)
		if err != nil {
			return err
		}
		defer restore()

		panel, err = termui.New(store, gainfx.ParamGain, gainfx.ParamOnOff, os.Stdout,
			termui.WithHost(history),
			termui.WithHistory(history),
			termui.WithMeter(proc.Meter().PeakDB, 200*time.Millisecond),
			termui.WithWidth(width),
		)
		if err != nil {
			return err
		}
		defer panel.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return web.ListenAndServe(ctx, cfg.Listen)
	})
	if player != nil {
		g.Go(func() error {
			return player.Run(ctx)
		})
	}
	if panel != nil {
		g.Go(func() error {
			err := panel.Run(ctx, os.Stdin)
			switch {
			case errors.Is(err, termui.ErrQuit):
				stop()
				return nil
			case errors.Is(err, context.Canceled):
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	if serr := saveState(proc, cfg.StateFile, logger); serr != nil && err == nil {
		err = serr
	}
	return err
}

// loadState restores path if it exists. A missing file is not an error.
func loadState(proc *gainfx.Processor, path string, logger *debug.Logger) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("no state at %s, starting from defaults", path)
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := proc.Codec().Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("restored state from %s", path)
	return nil
}

// saveState writes the state through a temporary file so an interrupted
// write never leaves a truncated blob behind.
func saveState(proc *gainfx.Processor, path string, logger *debug.Logger) error {
	if path == "" {
		return nil
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := proc.Codec().Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	logger.Info("saved state to %s", path)
	return nil
}
