// Package webui serves the browser control panel. Every connected page is a
// session with its own relay per parameter, so an edit made in one page is
// echoed to every other page but never back to itself.
package webui

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
	"github.com/justyntemme/webgain/pkg/framework/relay"
	"github.com/justyntemme/webgain/pkg/framework/state"
)

//go:embed static
var staticFiles embed.FS

// DefaultMeterInterval is how often sessions receive the output meter.
const DefaultMeterInterval = 100 * time.Millisecond

// Option configures a Server.
type Option func(*Server)

// WithInfo sets the metadata reported by /api/info.
func WithInfo(info plugin.Info) Option {
	return func(s *Server) {
		s.info = info
	}
}

// WithHost sets the automation host every relay reports gestures to.
func WithHost(host plugin.AutomationHost) Option {
	return func(s *Server) {
		s.host = host
	}
}

// WithHistory enables /api/undo and /api/redo.
func WithHistory(h *plugin.EditHistory) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithCodec enables GET and PUT on /api/state.
func WithCodec(c *state.Codec) Option {
	return func(s *Server) {
		s.codec = c
	}
}

// WithMeter sets the peak meter source, read every interval while a session
// is connected.
func WithMeter(peakDB func() float64, interval time.Duration) Option {
	return func(s *Server) {
		s.meter = peakDB
		s.meterInterval = interval
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *debug.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is the web surface.
type Server struct {
	store         *param.Store
	info          plugin.Info
	host          plugin.AutomationHost
	history       *plugin.EditHistory
	codec         *state.Codec
	meter         func() float64
	meterInterval time.Duration
	logger        *debug.Logger
	mux           *http.ServeMux

	mu       sync.Mutex
	sessions map[string]*session
	// shared relays carry edits from requests without a session.
	shared map[string]*relay.Relay
	closed bool
}

// New creates the server and its routes.
func New(store *param.Store, opts ...Option) (*Server, error) {
	s := &Server{
		store:         store,
		host:          plugin.NopAutomationHost{},
		meterInterval: DefaultMeterInterval,
		logger:        debug.Named("webui"),
		sessions:      make(map[string]*session),
		shared:        make(map[string]*relay.Relay),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.meterInterval <= 0 {
		s.meterInterval = DefaultMeterInterval
	}

	for _, id := range store.Table().IDs() {
		r, err := relay.New("api/"+id, store, id, relay.WithHost(s.host), relay.WithLogger(s.logger))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.shared[id] = r
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServer(http.FS(static)))
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/params", s.handleListParams)
	mux.HandleFunc("GET /api/params/{id}", s.handleGetParam)
	mux.HandleFunc("POST /api/params/{id}", s.handleEdit)
	mux.HandleFunc("POST /api/params/{id}/gesture", s.handleGesture)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/meter", s.handleMeter)
	mux.HandleFunc("POST /api/undo", s.handleUndo)
	mux.HandleFunc("POST /api/redo", s.handleRedo)
	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("PUT /api/state", s.handlePutState)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	s.mux = mux
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening on http://%s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// Event streams end with their request context.
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close ends every session and releases the shared relays.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	for _, r := range s.shared {
		r.Close()
	}
	return nil
}

// relayFor returns the session's relay for id, or the shared one when
// sessionID is empty.
func (s *Server) relayFor(sessionID, id string) (*relay.Relay, error) {
	if _, ok := s.store.Index(id); !ok {
		return nil, errUnknownParameter
	}
	if sessionID == "" {
		return s.shared[id], nil
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, errUnknownSession
	}
	return sess.relays[id], nil
}
