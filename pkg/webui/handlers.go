package webui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/relay"
)

var (
	errUnknownParameter = errors.New("unknown parameter")
	errUnknownSession   = errors.New("unknown session")
	errServerClosed     = errors.New("server closed")
)

// maxStateSize bounds PUT /api/state bodies.
const maxStateSize = 1 << 20

// ParamInfo is one entry of GET /api/params.
type ParamInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ShortName       string  `json:"shortName,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	Default         float64 `json:"default"`
	Steps           int32   `json:"steps"`
	Value           float64 `json:"value"`
	NormalizedValue float64 `json:"normalizedValue"`
	Display         string  `json:"display"`
}

// EditRequest is the body of POST /api/params/{id}. Exactly one of
// NormalizedValue, Value or Text must be set.
type EditRequest struct {
	Session         string   `json:"session,omitempty"`
	NormalizedValue *float64 `json:"normalizedValue,omitempty"`
	Value           *float64 `json:"value,omitempty"`
	Text            *string  `json:"text,omitempty"`
}

// GestureRequest is the body of POST /api/params/{id}/gesture.
type GestureRequest struct {
	Session string `json:"session,omitempty"`
	Action  string `json:"action"`
}

func (s *Server) paramInfo(d *param.Descriptor) ParamInfo {
	v := s.store.Get(d.ID)
	return ParamInfo{
		ID:              d.ID,
		Name:            d.Name,
		ShortName:       d.ShortName,
		Unit:            d.Unit,
		Min:             d.Min,
		Max:             d.Max,
		Default:         d.Default,
		Steps:           d.StepCount,
		Value:           v,
		NormalizedValue: d.Normalize(v),
		Display:         d.Format(v),
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"info":    s.info,
		"uid":     fmt.Sprintf("%X", s.info.UID()),
		"undo":    s.history != nil,
		"state":   s.codec != nil,
		"meter":   s.meter != nil,
		"clients": s.SessionCount(),
	})
}

func (s *Server) handleListParams(w http.ResponseWriter, r *http.Request) {
	descs := s.store.Table().All()
	out := make([]ParamInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, s.paramInfo(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetParam(w http.ResponseWriter, r *http.Request) {
	d, ok := s.store.Table().Lookup(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, errUnknownParameter)
		return
	}
	writeJSON(w, http.StatusOK, s.paramInfo(d))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, ok := s.store.Table().Lookup(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, errUnknownParameter)
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var n float64
	switch {
	case req.NormalizedValue != nil:
		n = *req.NormalizedValue
	case req.Value != nil:
		n = d.Normalize(*req.Value)
	case req.Text != nil:
		v, err := d.Parse(*req.Text)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		n = d.Normalize(v)
	default:
		s.writeError(w, http.StatusBadRequest, errors.New("no value"))
		return
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("value %g is not finite", n))
		return
	}

	rl, err := s.relayFor(req.Session, id)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if err := rl.UserEdit(n); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.paramInfo(d))
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	var req GestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	rl, err := s.relayFor(req.Session, r.PathValue("id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	switch req.Action {
	case "begin":
		err = rl.BeginGesture()
	case "end":
		rl.EndGesture()
	default:
		err = fmt.Errorf("unknown gesture action %q", req.Action)
	}
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inGesture": rl.InGesture()})
}

// handleEvents streams parameter changes as server-sent events. The first
// event names the session id that edits must carry to avoid their echo.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	sess, err := s.openSession(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer s.closeSession(sess)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeEvent(w, "session", map[string]string{"session": sess.id})
	flusher.Flush()

	var tick <-chan time.Time
	if s.meter != nil {
		ticker := time.NewTicker(s.meterInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case e := <-sess.events:
			if err := writeEvent(w, "", e); err != nil {
				s.logger.Warn("session %s: %v", sess.id, err)
				return
			}
			flusher.Flush()

		case <-tick:
			writeEvent(w, "meter", map[string]float64{"peakDb": s.peakDB()})
			flusher.Flush()

		case <-sess.ctx.Done():
			return
		}
	}
}

func (s *Server) peakDB() float64 {
	v := s.meter()
	// JSON has no -Inf.
	if math.IsInf(v, -1) || math.IsNaN(v) {
		return -200
	}
	return v
}

func (s *Server) handleMeter(w http.ResponseWriter, r *http.Request) {
	if s.meter == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no meter"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"peakDb": s.peakDB()})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.step(w, true)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.step(w, false)
}

func (s *Server) step(w http.ResponseWriter, undo bool) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no edit history"))
		return
	}

	var (
		e  any
		ok bool
	)
	if undo {
		e, ok = s.history.Undo()
	} else {
		e, ok = s.history.Redo()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": ok,
		"edit":    e,
		"canUndo": s.history.CanUndo(),
		"canRedo": s.history.CanRedo(),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if s.codec == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no state codec"))
		return
	}
	blob, err := s.codec.Serialize()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="webgain.state"`)
	w.Write(blob)
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	if s.codec == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no state codec"))
		return
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, http.MaxBytesReader(w, r.Body, maxStateSize)); err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	if err := s.codec.Deserialize(buf.Bytes()); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.handleListParams(w, r)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownParameter), errors.Is(err, param.ErrUnknownParameter):
		return http.StatusNotFound
	case errors.Is(err, errUnknownSession):
		return http.StatusGone
	case errors.Is(err, relay.ErrClosed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Debug("%d: %v", status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeEvent(w io.Writer, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", name); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
