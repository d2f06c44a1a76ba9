package webui

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
	"github.com/justyntemme/webgain/pkg/framework/relay"
	"github.com/justyntemme/webgain/pkg/framework/state"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *param.Store) {
	t.Helper()
	table := param.MustTable(
		param.GainParameter("gain", "Gain", -60, 12).Build(),
		param.OnOffParameter("onoff", "On/Off", true).Build(),
	)
	store := param.NewStore(table, param.WithLogger(debug.Discard()))

	opts = append([]Option{WithLogger(debug.Discard())}, opts...)
	s, err := New(store, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListParams(t *testing.T) {
	s, store := newTestServer(t)
	store.Set("gain", -6, param.OriginHost)

	rec := do(t, s, http.MethodGet, "/api/params", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}

	var params []ParamInfo
	if err := json.NewDecoder(rec.Body).Decode(&params); err != nil {
		t.Fatal(err)
	}
	if len(params) != 2 || params[0].ID != "gain" || params[1].ID != "onoff" {
		t.Fatalf("params = %+v", params)
	}
	g := params[0]
	if g.Min != -60 || g.Max != 12 || g.Value != -6 || g.Display != "-6.0 dB" {
		t.Errorf("gain = %+v", g)
	}
	if math.Abs(g.NormalizedValue-0.75) > 1e-9 {
		t.Errorf("normalized = %f", g.NormalizedValue)
	}
	if params[1].Steps != 1 {
		t.Errorf("onoff steps = %d", params[1].Steps)
	}

	if rec := do(t, s, http.MethodGet, "/api/params/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown param status %d", rec.Code)
	}
}

func TestEdit(t *testing.T) {
	s, store := newTestServer(t)

	tests := []struct {
		name string
		body string
		want float64
	}{
		{"Normalized", `{"normalizedValue":0.5}`, -24},
		{"Value", `{"value":-6}`, -6},
		{"Text", `{"text":"-12 dB"}`, -12},
		{"Clamped", `{"value":100}`, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/params/gain", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d: %s", rec.Code, rec.Body)
			}
			if got := store.Get("gain"); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("gain = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestEditRejects(t *testing.T) {
	s, store := newTestServer(t)
	before := store.Snapshot()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"UnknownParameter", "/api/params/volume", `{"value":1}`, http.StatusNotFound},
		{"UnknownSession", "/api/params/gain", `{"session":"nope","value":1}`, http.StatusGone},
		{"BadJSON", "/api/params/gain", `{`, http.StatusBadRequest},
		{"NoValue", "/api/params/gain", `{}`, http.StatusBadRequest},
		{"BadText", "/api/params/gain", `{"text":"loud"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodPost, tt.path, tt.body); rec.Code != tt.status {
				t.Errorf("status %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
		})
	}

	if store.Snapshot() != before {
		t.Error("rejected edits must not change the store")
	}
}

func TestGestureUndo(t *testing.T) {
	table := param.MustTable(param.GainParameter("gain", "Gain", -60, 12).Build())
	store := param.NewStore(table, param.WithLogger(debug.Discard()))
	history := plugin.NewEditHistory(store, 0)

	s, err := New(store, WithHost(history), WithHistory(history), WithLogger(debug.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	do(t, s, http.MethodPost, "/api/params/gain/gesture", `{"action":"begin"}`)
	for _, v := range []string{"-3", "-9", "-12"} {
		do(t, s, http.MethodPost, "/api/params/gain", `{"value":`+v+`}`)
	}
	rec := do(t, s, http.MethodPost, "/api/params/gain/gesture", `{"action":"end"}`)
	if !strings.Contains(rec.Body.String(), `"inGesture":false`) {
		t.Errorf("gesture end response %s", rec.Body)
	}

	rec = do(t, s, http.MethodPost, "/api/undo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("undo status %d", rec.Code)
	}
	if got := store.Get("gain"); got != 0 {
		t.Errorf("undo of a gesture should restore 0 dB, got %f", got)
	}
	do(t, s, http.MethodPost, "/api/redo", "")
	if got := store.Get("gain"); math.Abs(got-(-12)) > 1e-9 {
		t.Errorf("redo = %f, want -12", got)
	}

	if rec := do(t, s, http.MethodPost, "/api/params/gain/gesture", `{"action":"wiggle"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action status %d", rec.Code)
	}
}

func TestUndoWithoutHistory(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s, http.MethodPost, "/api/undo", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status %d", rec.Code)
	}
}

func TestState(t *testing.T) {
	table := param.MustTable(param.GainParameter("gain", "Gain", -60, 12).Build())
	store := param.NewStore(table, param.WithLogger(debug.Discard()))
	codec := state.NewCodec(store, state.WithLogger(debug.Discard()))
	s, err := New(store, WithCodec(codec), WithLogger(debug.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	store.Set("gain", -6, param.OriginHost)
	rec := do(t, s, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte(state.Magic)) {
		t.Fatalf("GET /api/state = %d %q", rec.Code, rec.Body.Bytes())
	}
	blob := rec.Body.String()

	store.Set("gain", 6, param.OriginHost)
	if rec := do(t, s, http.MethodPut, "/api/state", blob); rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/state = %d %s", rec.Code, rec.Body)
	}
	if got := store.Get("gain"); got != -6 {
		t.Errorf("restored gain = %f", got)
	}

	if rec := do(t, s, http.MethodPut, "/api/state", "garbage"); rec.Code != http.StatusBadRequest {
		t.Errorf("garbage state status %d", rec.Code)
	}
}

func TestIndexAndInfo(t *testing.T) {
	s, _ := newTestServer(t, WithInfo(plugin.Info{ID: "com.webgain.test", Name: "Test Gain"}))

	rec := do(t, s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>WebGain</title>") {
		t.Errorf("index = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/info", "")
	var info struct {
		Info  plugin.Info `json:"info"`
		UID   string      `json:"uid"`
		Undo  bool        `json:"undo"`
		Meter bool        `json:"meter"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Info.Name != "Test Gain" || len(info.UID) != 32 || info.Undo || info.Meter {
		t.Errorf("info = %+v", info)
	}

	if rec := do(t, s, http.MethodGet, "/api/meter", ""); rec.Code != http.StatusNotFound {
		t.Errorf("meter without source status %d", rec.Code)
	}
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	name string
	data string
}

// openStream connects to /api/events and returns the session id and a channel
// of the events that follow.
func openStream(t *testing.T, ctx context.Context, url string) (string, <-chan sseEvent) {
	t.Helper()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := make(chan sseEvent, 16)
	go func() {
		defer resp.Body.Close()
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		var e sseEvent
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				e.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				e.data = strings.TrimPrefix(line, "data: ")
			case line == "":
				events <- e
				e = sseEvent{}
			}
		}
	}()

	first := next(t, events)
	if first.name != "session" {
		t.Fatalf("first event %+v", first)
	}
	var hello struct {
		Session string `json:"session"`
	}
	json.Unmarshal([]byte(first.data), &hello)
	return hello.Session, events
}

func next(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case e, ok := <-events:
		if !ok {
			t.Fatal("stream closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return sseEvent{}
}

func nextValue(t *testing.T, events <-chan sseEvent) relay.Event {
	t.Helper()
	e := next(t, events)
	var v relay.Event
	if err := json.Unmarshal([]byte(e.data), &v); err != nil {
		t.Fatalf("event %+v: %v", e, err)
	}
	return v
}

// drainInitial consumes the current-value push of every parameter.
func drainInitial(t *testing.T, events <-chan sseEvent, n int) map[string]float64 {
	t.Helper()
	got := make(map[string]float64)
	for i := 0; i < n; i++ {
		v := nextValue(t, events)
		got[v.ParameterID] = v.NormalizedValue
	}
	return got
}

func TestEventsEchoSuppression(t *testing.T) {
	s, store := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idA, eventsA := openStream(t, ctx, ts.URL)
	idB, eventsB := openStream(t, ctx, ts.URL)
	if idA == "" || idA == idB {
		t.Fatalf("session ids %q %q", idA, idB)
	}

	initial := drainInitial(t, eventsA, 2)
	if math.Abs(initial["gain"]-60.0/72) > 1e-9 || initial["onoff"] != 1 {
		t.Errorf("initial push %v", initial)
	}
	drainInitial(t, eventsB, 2)

	// A edits; B sees it, A does not.
	body := `{"session":"` + idA + `","normalizedValue":0.75}`
	resp, err := http.Post(ts.URL+"/api/params/gain", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := store.Get("gain"); math.Abs(got-(-6)) > 1e-9 {
		t.Fatalf("gain = %f", got)
	}

	v := nextValue(t, eventsB)
	if v.ParameterID != "gain" || math.Abs(v.NormalizedValue-0.75) > 1e-9 {
		t.Errorf("B received %+v", v)
	}

	// A host change reaches both; for A it is the next event, proving the
	// gain edit was never echoed back.
	store.Set("onoff", 0, param.OriginHost)
	if v := nextValue(t, eventsA); v.ParameterID != "onoff" || v.NormalizedValue != 0 {
		t.Errorf("A received %+v, want the onoff change", v)
	}
	if v := nextValue(t, eventsB); v.ParameterID != "onoff" {
		t.Errorf("B received %+v", v)
	}

	if s.SessionCount() != 2 {
		t.Errorf("SessionCount() = %d", s.SessionCount())
	}
}

func TestEventsMeterAndClose(t *testing.T) {
	s, _ := newTestServer(t, WithMeter(func() float64 { return math.Inf(-1) }, 10*time.Millisecond))
	ts := httptest.NewServer(s)
	defer ts.Close()

	_, events := openStream(t, context.Background(), ts.URL)

	deadline := time.After(2 * time.Second)
	for found := false; !found; {
		select {
		case e := <-events:
			if e.name == "meter" {
				if e.data != `{"peakDb":-200}` {
					t.Errorf("meter event %s", e.data)
				}
				found = true
			}
		case <-deadline:
			t.Fatal("no meter event")
		}
	}

	s.Close()
	for range events {
	}
	if s.SessionCount() != 0 {
		t.Errorf("SessionCount() after Close = %d", s.SessionCount())
	}
}
