package webui

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/justyntemme/webgain/pkg/framework/relay"
)

// session is one connected page.
type session struct {
	id     string
	relays map[string]*relay.Relay
	events chan relay.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newSessionID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// openSession registers a session with one relay per parameter and starts
// their delivery loops. The current value of every parameter is queued.
func (s *Server) openSession(parent context.Context) (*session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	sess := &session{
		id:     id,
		relays: make(map[string]*relay.Relay),
		events: make(chan relay.Event, 8),
		ctx:    ctx,
		cancel: cancel,
	}

	surface := relay.SurfaceFunc(func(e relay.Event) error {
		select {
		case sess.events <- e:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	for _, pid := range s.store.Table().IDs() {
		r, err := relay.New("web/"+id[:8]+"/"+pid, s.store, pid,
			relay.WithHost(s.host),
			relay.WithLogger(s.logger),
			relay.WithSurface(surface),
		)
		if err != nil {
			sess.close()
			return nil, err
		}
		sess.relays[pid] = r
		sess.wg.Add(1)
		go func() {
			defer sess.wg.Done()
			r.Run(ctx)
		}()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sess.close()
		return nil, errServerClosed
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info("session %s connected", id)
	return sess, nil
}

func (s *Server) closeSession(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()

	sess.close()
	s.logger.Info("session %s disconnected", sess.id)
}

// close ends open gestures, stops the relays and waits for their loops.
func (sess *session) close() {
	sess.once.Do(func() {
		for _, r := range sess.relays {
			r.Close()
		}
		sess.cancel()
		sess.wg.Wait()
	})
}
