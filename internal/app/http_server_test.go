package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"timetrack/internal/adapter/sqlite"
	"timetrack/internal/auth"
	"timetrack/internal/domain"
)

type testAPI struct {
	t   *testing.T
	app *App
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	store, err := sqlite.NewClient(ctx, ":memory:", log)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	a := NewWithStore(log, store, tokens, nil, time.UTC)
	a.Access.Hasher = &auth.BcryptHasher{Cost: bcrypt.MinCost}
	a.ElapsedInterval = 10 * time.Millisecond

	srv := httptest.NewServer(loggingMiddleware(log, a.Handler()))
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return &testAPI{t: t, app: a, srv: srv}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (api *testAPI) do(method, path, token string, body, out any) int {
	api.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			api.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, api.srv.URL+path, rd)
	if err != nil {
		api.t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		api.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			api.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// setup creates project Acme with worker A1 and returns admin and worker tokens.
func (api *testAPI) setup() (adminTok, workerTok string) {
	api.t.Helper()
	if code := api.do("POST", "/api/projects", "", map[string]string{"name": "Acme", "password": "secret"}, nil); code != http.StatusCreated {
		api.t.Fatalf("create project = %d", code)
	}
	var login loginJSON
	if code := api.do("POST", "/api/login/admin", "", map[string]string{"project": "Acme", "password": "secret"}, &login); code != http.StatusOK {
		api.t.Fatalf("admin login = %d", code)
	}
	adminTok = login.Token

	worker := map[string]string{"name": "Alice", "workerCode": "A1", "password": "pw"}
	if code := api.do("POST", "/api/admin/workers", adminTok, worker, nil); code != http.StatusCreated {
		api.t.Fatalf("add worker = %d", code)
	}
	if code := api.do("POST", "/api/login/worker", "", map[string]string{"project": "Acme", "workerCode": "A1", "password": "pw"}, &login); code != http.StatusOK {
		api.t.Fatalf("worker login = %d", code)
	}
	return adminTok, login.Token
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestLoginFailures(t *testing.T) {
	api := newTestAPI(t)
	api.setup()

	var body map[string]string
	code := api.do("POST", "/api/login/admin", "", map[string]string{"project": "Acme", "password": "nope"}, &body)
	if code != http.StatusUnauthorized || body["error"] != "invalid credentials" {
		t.Errorf("wrong password = %d %v", code, body)
	}
	code = api.do("POST", "/api/login/worker", "", map[string]string{"project": "Ghost", "workerCode": "A1", "password": "pw"}, &body)
	if code != http.StatusUnauthorized || body["error"] != "invalid credentials" {
		t.Errorf("unknown project = %d %v", code, body)
	}
	if code := api.do("GET", "/api/session", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", code)
	}
}

func TestClockLifecycle(t *testing.T) {
	api := newTestAPI(t)
	adminTok, workerTok := api.setup()

	var sess domain.Session
	if code := api.do("GET", "/api/session", workerTok, nil, &sess); code != http.StatusOK || !sess.IsWorker() {
		t.Fatalf("session = %d %+v", code, sess)
	}

	var body map[string]string
	if code := api.do("POST", "/api/worker/clock-in", workerTok, map[string]string{"description": " "}, &body); code != http.StatusBadRequest {
		t.Errorf("blank description = %d %v", code, body)
	}
	var e entryJSON
	if code := api.do("POST", "/api/worker/clock-in", workerTok, map[string]string{"description": "wiring"}, &e); code != http.StatusCreated {
		t.Fatalf("clock in = %d", code)
	}
	if e.Status != domain.StatusActive || e.Hours != "N/A" {
		t.Errorf("entry = %+v", e)
	}
	if code := api.do("POST", "/api/worker/clock-in", workerTok, map[string]string{"description": "again"}, &body); code != http.StatusConflict {
		t.Errorf("second clock in = %d", code)
	}
	if code := api.do("POST", "/api/worker/clock-in", adminTok, map[string]string{"description": "admin"}, nil); code != http.StatusForbidden {
		t.Errorf("admin clock in = %d", code)
	}

	if code := api.do("PUT", "/api/worker/description", workerTok, map[string]string{"description": "wiring the panel"}, &e); code != http.StatusOK {
		t.Fatalf("save description = %d", code)
	}

	var dash workerDashboardJSON
	if code := api.do("GET", "/api/worker/dashboard", workerTok, nil, &dash); code != http.StatusOK {
		t.Fatalf("worker dashboard = %d", code)
	}
	if dash.Current == nil || dash.Current.WorkDescription != "wiring the panel" {
		t.Errorf("current = %+v", dash.Current)
	}

	if code := api.do("POST", "/api/worker/clock-out", workerTok, nil, &e); code != http.StatusOK {
		t.Fatalf("clock out = %d", code)
	}
	if e.Status != domain.StatusCompleted || e.TotalHours == nil || e.ClockOut == nil {
		t.Errorf("closed entry = %+v", e)
	}
	if code := api.do("POST", "/api/worker/clock-out", workerTok, nil, &body); code != http.StatusConflict {
		t.Errorf("clock out without session = %d", code)
	}
}

func TestAdminEditAndDashboard(t *testing.T) {
	api := newTestAPI(t)
	adminTok, workerTok := api.setup()

	var admin adminDashboardJSON
	if code := api.do("GET", "/api/admin/dashboard?month=1&year=2024", adminTok, nil, &admin); code != http.StatusOK {
		t.Fatalf("dashboard = %d", code)
	}
	if len(admin.Workers) != 1 {
		t.Fatalf("workers = %+v", admin.Workers)
	}
	workerID := admin.Workers[0].ID

	in := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	out := in.Add(4 * time.Hour)
	var e entryJSON
	req := map[string]any{"clockIn": in, "clockOut": out, "description": "site visit"}
	if code := api.do("POST", "/api/admin/workers/"+workerID+"/entries", adminTok, req, &e); code != http.StatusCreated {
		t.Fatalf("add entry = %d", code)
	}
	if e.Hours != "4.00" {
		t.Errorf("hours = %q, want 4.00", e.Hours)
	}

	newOut := in.Add(2 * time.Hour)
	if code := api.do("PATCH", "/api/entries/"+e.ID, adminTok, map[string]any{"clockOut": newOut}, &e); code != http.StatusOK {
		t.Fatalf("edit = %d", code)
	}
	if e.TotalHours == nil || *e.TotalHours != 2 {
		t.Errorf("edited hours = %v, want 2", e.TotalHours)
	}
	before := in.Add(-time.Hour)
	if code := api.do("PATCH", "/api/entries/"+e.ID, workerTok, map[string]any{"clockOut": before}, nil); code != http.StatusBadRequest {
		t.Errorf("inverted window = %d", code)
	}

	if code := api.do("GET", "/api/admin/dashboard?month=1&year=2024", adminTok, nil, &admin); code != http.StatusOK {
		t.Fatalf("dashboard = %d", code)
	}
	if len(admin.Summaries) != 1 || admin.Summaries[0].PeriodHours != 2 || len(admin.Summaries[0].Entries) != 1 {
		t.Errorf("summaries = %+v", admin.Summaries)
	}
	if len(admin.Years) != 1 || admin.Years[0] != 2024 {
		t.Errorf("years = %v", admin.Years)
	}
	if code := api.do("GET", "/api/admin/dashboard?month=13", adminTok, nil, nil); code != http.StatusBadRequest {
		t.Errorf("month 13 = %d", code)
	}
	if code := api.do("GET", "/api/admin/dashboard", workerTok, nil, nil); code != http.StatusForbidden {
		t.Errorf("worker on admin dashboard = %d", code)
	}
}

func TestExportDownload(t *testing.T) {
	api := newTestAPI(t)
	adminTok, workerTok := api.setup()

	var sess domain.Session
	api.do("GET", "/api/session", workerTok, nil, &sess)

	req, _ := http.NewRequest("GET", api.srv.URL+"/api/admin/workers/"+sess.WorkerID+"/export?month=1&year=2024&format=xlsx", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Alice_TimeEntries_2024_1.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if code := api.do("GET", "/api/admin/workers/"+sess.WorkerID+"/export?format=csv", adminTok, nil, nil); code != http.StatusBadRequest {
		t.Errorf("csv = %d", code)
	}
}

func TestElapsedWebsocket(t *testing.T) {
	api := newTestAPI(t)
	_, workerTok := api.setup()

	wsURL := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/api/worker/elapsed?token=" + workerTok

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	var msg elapsedJSON
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	conn.Close()
	if msg.Status != "idle" {
		t.Fatalf("without session = %+v, want idle", msg)
	}

	if code := api.do("POST", "/api/worker/clock-in", workerTok, map[string]string{"description": "live"}, nil); code != http.StatusCreated {
		t.Fatalf("clock in = %d", code)
	}
	conn, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Status != "active" || msg.Elapsed == "" {
		t.Fatalf("first message = %+v", msg)
	}

	if code := api.do("POST", "/api/worker/clock-out", workerTok, nil, nil); code != http.StatusOK {
		t.Fatalf("clock out = %d", code)
	}
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("stream ended before a closed message: %v", err)
		}
		if msg.Status == "closed" {
			break
		}
	}

	if _, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(api.srv.URL, "http")+"/api/worker/elapsed", nil); err == nil {
		t.Error("dial without token succeeded")
	} else if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
