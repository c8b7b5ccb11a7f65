package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lazypower/echocloset/internal/engine"
	"github.com/lazypower/echocloset/internal/gate"
	"github.com/lazypower/echocloset/internal/notify"
	"github.com/lazypower/echocloset/internal/store"
	"github.com/lazypower/echocloset/internal/tagger"
)

var t0 = time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	eng   *engine.Engine
	gate  *gate.Gate
	clock *clockwork.FakeClock
	disk  *store.MemoryPersister
	rec   *notify.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	disk := store.NewMemoryPersister()
	st, err := store.Open(disk)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	lex := tagger.DefaultLexicon()
	tg := tagger.New(lex, tagger.NewMaxMatchTokenizer(lex.Keywords()))
	clock := clockwork.NewFakeClockAt(t0)
	rec := notify.NewRecorder()
	eng := engine.New(st, tg, rec, clock, engine.Options{DefaultCooldownDays: 7})

	g, err := gate.New(clock, false, "02:30", "05:00", time.UTC)
	if err != nil {
		t.Fatalf("gate.New: %v", err)
	}
	srv := New(eng, g, clock, Options{Version: "test-version", ConfirmWindow: 30 * time.Second})
	return &testEnv{srv: srv, eng: eng, gate: g, clock: clock, disk: disk, rec: rec}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)

	var resp map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: decode body: %v; body: %s", method, path, err, w.Body.String())
		}
	}
	return w, resp
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["store"] != ":memory:" {
		t.Errorf("store = %v, want :memory:", body["store"])
	}

	env.clock.Advance(90 * time.Second)
	_, body = env.do(t, "GET", "/api/health", "")
	if body["uptime"] != 90.0 {
		t.Errorf("uptime = %v, want 90 from the injected clock", body["uptime"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/echoes", `{"text":"好開心"}`)

	w, _ := env.do(t, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "echocloset_entries_created_total") {
		t.Error("metrics output missing entries counter")
	}
}

func TestCreateEcho(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, "POST", "/api/echoes", `{"text":"好累，今天好煩"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	entry := body["entry"].(map[string]any)
	if entry["type"] != "echo" {
		t.Errorf("type = %v, want echo", entry["type"])
	}
	tags := entry["tags"].([]any)
	if len(tags) != 2 || tags[0] != "生氣" || tags[1] != "疲憊" {
		t.Errorf("tags = %v, want [生氣 疲憊]", tags)
	}
	if body["message"] != "……收下了。" {
		t.Errorf("message = %v", body["message"])
	}
	if env.eng.Store.Len() != 1 {
		t.Errorf("store len = %d, want 1", env.eng.Store.Len())
	}
}

func TestCreateEchoInvalid(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{}`, `{"text":""}`, `{"text":"   "}`, `not json`} {
		w, _ := env.do(t, "POST", "/api/echoes", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", body, w.Code, http.StatusBadRequest)
		}
	}
	if env.eng.Store.Len() != 0 {
		t.Errorf("invalid requests must not create entries")
	}
}

func TestPersistFailureIsGenericDecline(t *testing.T) {
	env := newTestEnv(t)
	env.disk.FailWith(errDisk)

	w, body := env.do(t, "POST", "/api/echoes", `{"text":"開心"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body["error"] != declined {
		t.Errorf("error = %v, want %q", body["error"], declined)
	}
	if strings.Contains(w.Body.String(), "disk") {
		t.Error("internal error detail leaked to client")
	}
}

func TestCreateAndListHoards(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, "POST", "/api/hoards", `{"description":"耳機","owner_id":"U1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if body["message"] != "……收下了。7天後再看看你還想不想買。" {
		t.Errorf("message = %v", body["message"])
	}
	hoard := body["hoard"].(map[string]any)
	if hoard["deadline"] != "2026-03-08T03:00:00Z" {
		t.Errorf("deadline = %v", hoard["deadline"])
	}

	env.do(t, "POST", "/api/hoards", `{"description":"相機","cooldown_days":0,"owner_id":"U2"}`)

	w, body = env.do(t, "GET", "/api/hoards?owner_id=U1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	hoards := body["hoards"].([]any)
	if len(hoards) != 1 {
		t.Fatalf("got %d hoards, want 1", len(hoards))
	}
	got := hoards[0].(map[string]any)["entry"].(map[string]any)
	if got["description"] != "耳機" || got["owner_id"] != "U1" {
		t.Errorf("unexpected hoard %v", got)
	}

	w, _ = env.do(t, "GET", "/api/hoards", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing owner: status = %d, want 400", w.Code)
	}
}

func TestCreateHoardInvalid(t *testing.T) {
	env := newTestEnv(t)
	bodies := []string{
		`{"owner_id":"U1"}`,
		`{"description":"耳機"}`,
		`{"description":"耳機","owner_id":"U1","cooldown_days":-1}`,
	}
	for _, b := range bodies {
		w, _ := env.do(t, "POST", "/api/hoards", b)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", b, w.Code)
		}
	}
}

func TestListRecentParams(t *testing.T) {
	env := newTestEnv(t)
	for _, text := range []string{"一", "二", "三"} {
		env.do(t, "POST", "/api/echoes", `{"text":"`+text+`"}`)
	}

	w, body := env.do(t, "GET", "/api/entries?count=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	entries := body["entries"].([]any)
	if len(entries) != 2 || entries[1].(map[string]any)["text"] != "三" {
		t.Errorf("entries = %v", entries)
	}

	// non-positive count and days fall back to the defaults, like ListRecent
	for _, q := range []string{"count=0", "count=-3", "days=-1", "days=0"} {
		w, body := env.do(t, "GET", "/api/entries?"+q, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", q, w.Code)
			continue
		}
		if n := len(body["entries"].([]any)); n != 3 {
			t.Errorf("%s: got %d entries, want 3", q, n)
		}
	}

	for _, q := range []string{"count=x", "days=1.5"} {
		w, _ := env.do(t, "GET", "/api/entries?"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestGetEntry(t *testing.T) {
	env := newTestEnv(t)
	_, created := env.do(t, "POST", "/api/hoards", `{"description":"耳機","owner_id":"u1"}`)
	id := created["hoard"].(map[string]any)["entry"].(map[string]any)["id"].(string)

	w, body := env.do(t, "GET", "/api/entries/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	if got := body["entry"].(map[string]any)["description"]; got != "耳機" {
		t.Errorf("description = %v, want 耳機", got)
	}
	if body["deadline"] != "2026-03-08T03:00:00Z" {
		t.Errorf("deadline = %v", body["deadline"])
	}

	w, _ = env.do(t, "GET", "/api/entries/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", w.Code)
	}
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, "GET", "/api/analyze", "")
	if body["no_data"] != true {
		t.Errorf("empty journal: no_data = %v, want true", body["no_data"])
	}

	env.do(t, "POST", "/api/echoes", `{"text":"開心"}`)
	env.do(t, "POST", "/api/echoes", `{"text":"開心又好累"}`)

	w, body := env.do(t, "GET", "/api/analyze?days=30", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	tags := body["tags"].([]any)
	first := tags[0].(map[string]any)
	if first["tag"] != "快樂" || first["count"] != float64(2) {
		t.Errorf("first row = %v, want 快樂 x2", first)
	}

	w, _ = env.do(t, "GET", "/api/analyze?days=0", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("days=0: status = %d, want 400", w.Code)
	}
}

func TestWipeRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/echoes", `{"text":"開心"}`)
	env.do(t, "POST", "/api/echoes", `{"text":"難過"}`)

	w, body := env.do(t, "POST", "/api/wipe", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if env.eng.Store.Len() != 2 {
		t.Fatal("wipe request alone must not delete anything")
	}
	token := body["token"].(string)

	w, body = env.do(t, "POST", "/api/wipe/confirm", `{"token":"`+token+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d; body: %s", w.Code, w.Body.String())
	}
	if body["wiped"] != float64(2) {
		t.Errorf("wiped = %v, want 2", body["wiped"])
	}
	if env.eng.Store.Len() != 0 {
		t.Error("store not empty after confirmed wipe")
	}

	// tokens are single use
	w, _ = env.do(t, "POST", "/api/wipe/confirm", `{"token":"`+token+`"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("reused token: status = %d, want 409", w.Code)
	}
}

func TestWipeTokenExpires(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/echoes", `{"text":"開心"}`)

	_, body := env.do(t, "POST", "/api/wipe", "")
	token := body["token"].(string)

	env.clock.Advance(31 * time.Second)
	w, _ := env.do(t, "POST", "/api/wipe/confirm", `{"token":"`+token+`"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expired token: status = %d, want 409", w.Code)
	}
	if env.eng.Store.Len() != 1 {
		t.Error("expired confirmation must not wipe")
	}

	w, _ = env.do(t, "POST", "/api/wipe/confirm", `{"token":"never-issued"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("unknown token: status = %d, want 409", w.Code)
	}
	w, _ = env.do(t, "POST", "/api/wipe/confirm", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing token: status = %d, want 400", w.Code)
	}
}

func TestGhostModeGate(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, "POST", "/api/ghost", "")
	if w.Code != http.StatusOK || body["ghost"] != true {
		t.Fatalf("toggle: status = %d, ghost = %v", w.Code, body["ghost"])
	}

	// 03:00 is inside 02:30-05:00
	w, _ = env.do(t, "POST", "/api/echoes", `{"text":"睡不著"}`)
	if w.Code != http.StatusCreated {
		t.Errorf("inside window: status = %d, want 201", w.Code)
	}

	env.clock.Advance(3 * time.Hour)
	w, body = env.do(t, "POST", "/api/echoes", `{"text":"睡不著"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("outside window: status = %d, want 403", w.Code)
	}
	if body["error"] != gate.DeclineMessage {
		t.Errorf("decline = %v", body["error"])
	}

	// health and the toggle itself are never gated
	if w, _ := env.do(t, "GET", "/api/health", ""); w.Code != http.StatusOK {
		t.Errorf("health gated: %d", w.Code)
	}
	w, body = env.do(t, "POST", "/api/ghost", "")
	if w.Code != http.StatusOK || body["ghost"] != false {
		t.Errorf("toggle off: status = %d, ghost = %v", w.Code, body["ghost"])
	}
	if w, _ := env.do(t, "GET", "/api/entries", ""); w.Code != http.StatusOK {
		t.Errorf("ghost off: status = %d, want 200", w.Code)
	}
}

func TestScanEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/hoards", `{"description":"耳機","cooldown_days":0,"owner_id":"U1"}`)

	w, body := env.do(t, "POST", "/api/scan", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["expired"] != float64(1) {
		t.Errorf("expired = %v, want 1", body["expired"])
	}
	if len(env.rec.Calls()) != 1 {
		t.Errorf("notifier calls = %d, want 1", len(env.rec.Calls()))
	}
}
