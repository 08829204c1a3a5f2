package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"timetrack/internal/aggregate"
	"timetrack/internal/domain"
	"timetrack/internal/export"
	"timetrack/internal/usecase"
)

const (
	maxBodyBytes = 1 << 20
	writeWait    = 10 * time.Second
	// The elapsed stream re-reads the open entry every recheckEvery ticks.
	recheckEvery = 5
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HTTPServer returns a configured http.Server exposing the JSON API.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(a.log, a.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.log.Info("http api configured", slog.String("addr", addr))
	return srv
}

// Handler routes the API without request logging.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/projects", a.handleListProjects)
	mux.HandleFunc("POST /api/projects", a.handleCreateProject)
	mux.HandleFunc("POST /api/login/admin", a.handleAdminLogin)
	mux.HandleFunc("POST /api/login/worker", a.handleWorkerLogin)
	mux.HandleFunc("GET /api/session", a.authed(a.handleSession))

	mux.HandleFunc("GET /api/admin/dashboard", a.authed(a.handleAdminDashboard))
	mux.HandleFunc("POST /api/admin/workers", a.authed(a.handleAddWorker))
	mux.HandleFunc("POST /api/admin/workers/{id}/entries", a.authed(a.handleAddEntry))
	mux.HandleFunc("GET /api/admin/workers/{id}/export", a.authed(a.handleExport))

	mux.HandleFunc("GET /api/worker/dashboard", a.authed(a.handleWorkerDashboard))
	mux.HandleFunc("POST /api/worker/clock-in", a.authed(a.handleClockIn))
	mux.HandleFunc("POST /api/worker/clock-out", a.authed(a.handleClockOut))
	mux.HandleFunc("PUT /api/worker/description", a.authed(a.handleSaveDescription))
	mux.HandleFunc("POST /api/worker/entries", a.authed(a.handleAddOwnEntry))
	mux.HandleFunc("GET /api/worker/elapsed", a.handleElapsed)

	mux.HandleFunc("PATCH /api/entries/{id}", a.authed(a.handleEditEntry))

	return mux
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess domain.Session)

// authed rejects requests without a valid bearer token.
func (a *App) authed(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.sessionFrom(r, false)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		next(w, r, sess)
	}
}

func (a *App) sessionFrom(r *http.Request, allowQuery bool) (domain.Session, error) {
	tok := ""
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, rest, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			tok = strings.TrimSpace(rest)
		}
	}
	if tok == "" && allowQuery {
		tok = r.URL.Query().Get("token")
	}
	if tok == "" {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	return a.tokens.Parse(tok)
}

func (a *App) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Access.ListProjects(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]projectJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProject(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Password    string `json:"password"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.Access.CreateProject(r.Context(), usecase.ProjectInput{Name: req.Name, Description: req.Description, Password: req.Password})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProject(p))
}

func (a *App) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Project  string `json:"project"`
		Password string `json:"password"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	sess, err := a.Access.AdminLogin(r.Context(), req.Project, req.Password)
	a.writeLogin(w, r, sess, err)
}

func (a *App) handleWorkerLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Project    string `json:"project"`
		WorkerCode string `json:"workerCode"`
		Password   string `json:"password"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	sess, err := a.Access.WorkerLogin(r.Context(), req.Project, req.WorkerCode, req.Password)
	a.writeLogin(w, r, sess, err)
}

func (a *App) writeLogin(w http.ResponseWriter, r *http.Request, sess domain.Session, err error) {
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	tok, err := a.tokens.Issue(sess)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginJSON{Token: tok, Session: sess})
}

func (a *App) handleSession(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	writeJSON(w, http.StatusOK, sess)
}

func (a *App) handleAdminDashboard(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	month, year, err := a.period(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	view, err := a.Dashboard.Admin(r.Context(), sess, month, year)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminDashboard(view))
}

func (a *App) handleAddWorker(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	var req struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		WorkerCode string `json:"workerCode"`
		Password   string `json:"password"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	wk, err := a.Access.AddWorker(r.Context(), sess, usecase.WorkerInput{
		Name: req.Name, Email: req.Email, Code: req.WorkerCode, Password: req.Password,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorker(wk))
}

type newEntryRequest struct {
	ClockIn     *time.Time `json:"clockIn"`
	ClockOut    *time.Time `json:"clockOut"`
	Description string     `json:"description"`
}

func (a *App) handleAddEntry(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	a.addEntry(w, r, sess, r.PathValue("id"))
}

func (a *App) handleAddOwnEntry(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	a.addEntry(w, r, sess, sess.WorkerID)
}

func (a *App) addEntry(w http.ResponseWriter, r *http.Request, sess domain.Session, workerID string) {
	var req newEntryRequest
	if !a.decode(w, r, &req) {
		return
	}
	e, err := a.Ledger.AddEntry(r.Context(), sess, workerID, usecase.NewEntry{
		ClockIn: req.ClockIn, ClockOut: req.ClockOut, Description: req.Description,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntry(e))
}

func (a *App) handleExport(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	month, year, err := a.period(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	f, err := a.Exporter.WorkerMonth(r.Context(), sess, r.PathValue("id"), month, year, format)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

func (a *App) handleWorkerDashboard(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	view, err := a.Dashboard.Worker(r.Context(), sess)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDashboard(view))
}

func (a *App) handleClockIn(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	var req struct {
		Description string `json:"description"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	e, err := a.Ledger.ClockIn(r.Context(), sess, req.Description)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntry(e))
}

// currentEntry returns the acting worker's open entry or ErrSessionClosed.
func (a *App) currentEntry(ctx context.Context, sess domain.Session) (domain.TimeEntry, error) {
	if !sess.IsWorker() {
		return domain.TimeEntry{}, domain.ErrForbidden
	}
	cur, err := a.Ledger.CurrentSession(ctx, sess.WorkerID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if cur == nil {
		return domain.TimeEntry{}, domain.ErrSessionClosed
	}
	return *cur, nil
}

func (a *App) handleClockOut(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	var req struct {
		Description *string `json:"description"`
	}
	if r.ContentLength != 0 && !a.decode(w, r, &req) {
		return
	}
	cur, err := a.currentEntry(r.Context(), sess)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	e, err := a.Ledger.ClockOut(r.Context(), sess, cur.ID, req.Description)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntry(e))
}

func (a *App) handleSaveDescription(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	var req struct {
		Description string `json:"description"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	cur, err := a.currentEntry(r.Context(), sess)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	e, err := a.Ledger.SaveDescription(r.Context(), sess, cur.ID, req.Description)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntry(e))
}

func (a *App) handleEditEntry(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	var req struct {
		ClockIn     *time.Time `json:"clockIn"`
		ClockOut    *time.Time `json:"clockOut"`
		Reopen      bool       `json:"reopen"`
		Description *string    `json:"description"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	e, err := a.Ledger.EditEntry(r.Context(), sess, r.PathValue("id"), usecase.EntryEdit{
		ClockIn: req.ClockIn, ClockOut: req.ClockOut, Reopen: req.Reopen, Description: req.Description,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntry(e))
}

// handleElapsed streams the elapsed time of the worker's open entry over a
// websocket until the entry is clocked out or the client goes away.
func (a *App) handleElapsed(w http.ResponseWriter, r *http.Request) {
	sess, err := a.sessionFrom(r, true)
	if err == nil && !sess.IsWorker() {
		err = domain.ErrForbidden
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Reading is required to notice close frames from the client.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(m elapsedJSON) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m) == nil
	}
	cur, err := a.Ledger.CurrentSession(ctx, sess.WorkerID)
	if err != nil || cur == nil {
		send(elapsedJSON{Status: "idle"})
		a.closeWS(conn)
		return
	}

	interval := a.ElapsedInterval
	if interval <= 0 {
		interval = time.Second
	}
	n := 0
	for elapsed := range aggregate.WatchElapsed(ctx, cur.ClockIn, interval, time.Now) {
		if n > 0 && n%recheckEvery == 0 {
			still, err := a.Ledger.CurrentSession(ctx, sess.WorkerID)
			if err != nil && ctx.Err() != nil {
				return
			}
			if err == nil && (still == nil || still.ID != cur.ID) {
				send(elapsedJSON{Status: "closed", EntryID: cur.ID})
				a.closeWS(conn)
				return
			}
		}
		n++
		if !send(elapsedJSON{Status: "active", EntryID: cur.ID, Elapsed: elapsed}) {
			return
		}
	}
}

func (a *App) closeWS(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// period reads month and year, defaulting to the current month.
func (a *App) period(r *http.Request) (int, int, error) {
	now := time.Now().In(a.Dashboard.Location)
	month, year := int(now.Month()), now.Year()
	q := r.URL.Query()
	if s := q.Get("month"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: month must be a number", domain.ErrInvalidPeriod)
		}
		month = v
	}
	if s := q.Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: year must be a number", domain.ErrValidation)
		}
		year = v
	}
	if month < 1 || month > 12 {
		return 0, 0, domain.ErrInvalidPeriod
	}
	return month, year, nil
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionOpen),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrDescriptionRequired),
		errors.Is(err, domain.ErrInvalidPeriod):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		a.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		msg = "internal error"
	case http.StatusUnauthorized:
		msg = domain.ErrInvalidCredentials.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder remembers the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Hijack lets websocket upgrades pass through the logging middleware.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
