package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/justyntemme/webgain/pkg/framework/debug"
)

// Options configures the output device.
type Options struct {
	SampleRate int
	Channels   int
	// BufferSize is the device buffer length. Zero lets the driver decide.
	BufferSize time.Duration
	Logger     *debug.Logger
}

// Player plays a Stream on the default output device.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	stream *Stream
	logger *debug.Logger

	mu      sync.Mutex
	started bool
}

// Open creates the device context and waits until it is ready.
func Open(stream *Stream, opts Options) (*Player, error) {
	if opts.Channels != stream.channels {
		return nil, fmt.Errorf("device has %d channels, stream has %d", opts.Channels, stream.channels)
	}
	logger := opts.Logger
	if logger == nil {
		logger = debug.Named("playback")
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: opts.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   opts.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	logger.Info("audio device ready: %d Hz, %d ch", opts.SampleRate, opts.Channels)
	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(stream),
		stream: stream,
		logger: logger,
	}, nil
}

// Start begins playback.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.player.Play()
		p.started = true
	}
}

// Run plays until ctx is done, then closes the player.
func (p *Player) Run(ctx context.Context) error {
	p.Start()
	<-ctx.Done()
	p.logger.Debug("stopping after %d frames", p.stream.Frames())
	p.logger.Info("render load: %s", p.stream.Load().Report())
	return p.Close()
}

// Close stops playback. It is safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	p.started = false
	return err
}
