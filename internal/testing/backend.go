package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tunedeck/internal/models"
)

// Backend is an in-process fake of the music backend mounted under /api.
//
// Auth, jobs and search routes behave like the real service; knobs on the struct
// script failures. Fields are guarded by mu once the server runs.
type Backend struct {
	Server *httptest.Server

	mu            sync.Mutex
	users         map[string]string
	accessToken   string
	refreshToken  string
	issued        int
	rotateRefresh bool
	failRefresh   bool
	refreshDelay  time.Duration
	jobs          map[int64][]models.Job
	nextJobID     int64
	enqueued      []map[string]any
	search        any
	lastQuery     string
	calls         map[string]int
	authHeaders   []string
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		users:     map[string]string{"demo": "hunter2"},
		jobs:      make(map[int64][]models.Job),
		nextJobID: 100,
		calls:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", b.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", b.handleLogout)
	mux.HandleFunc("GET /api/jobs/{id}", b.protected(b.handleGetJob))
	mux.HandleFunc("POST /api/jobs/enqueue", b.protected(b.handleEnqueue))
	mux.HandleFunc("GET /api/search", b.protected(b.handleSearch))
	mux.HandleFunc("GET /api/me", b.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"username": "demo"})
	}))

	b.Server = httptest.NewServer(b.count(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL clients should be configured with.
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

// IssueTokens makes the backend accept a fresh pair and returns it.
func (b *Backend) IssueTokens() (access, refresh string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(true)
}

// ExpireAccessToken invalidates the current access token while keeping the refresh token valid.
func (b *Backend) ExpireAccessToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessToken = "expired"
}

// RotateRefreshTokens makes every refresh return a new refresh token.
func (b *Backend) RotateRefreshTokens(rotate bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotateRefresh = rotate
}

// FailRefresh makes the refresh endpoint reject every request.
func (b *Backend) FailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

// SetRefreshDelay slows the refresh endpoint down so concurrent callers overlap.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

// ScriptJob registers the states GET /jobs/{id} returns, one per call; the last state repeats.
func (b *Backend) ScriptJob(id int64, states ...models.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range states {
		states[i].ID = id
	}
	b.jobs[id] = states
}

// SetSearchResponse sets the body returned by GET /search.
func (b *Backend) SetSearchResponse(v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.search = v
}

// LastQuery returns the raw query string of the most recent search.
func (b *Backend) LastQuery() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastQuery
}

// Enqueued returns the bodies received by POST /jobs/enqueue.
func (b *Backend) Enqueued() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.enqueued...)
}

// Calls returns how many requests hit the given path, e.g. "/api/auth/refresh".
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// AuthHeaders returns every Authorization header the protected routes received, in order.
func (b *Backend) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders...)
}

func (b *Backend) issueLocked(newRefresh bool) (string, string) {
	b.issued++
	b.accessToken = fmt.Sprintf("access-%d", b.issued)
	if newRefresh || b.refreshToken == "" {
		b.refreshToken = fmt.Sprintf("refresh-%d", b.issued)
	}
	return b.accessToken, b.refreshToken
}

func (b *Backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.URL.Path]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, header)
		valid := b.accessToken != "" && header == "Bearer "+b.accessToken
		b.mu.Unlock()

		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"loc": "body", "msg": "invalid json"}},
		})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if pw, ok := b.users[body.Username]; !ok || pw != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}

	access, refresh := b.issueLocked(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"user":          map[string]any{"username": body.Username, "role": "member"},
	})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	delay := b.refreshDelay
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRefresh || body.RefreshToken == "" || body.RefreshToken != b.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid refresh token"})
		return
	}

	access, refresh := b.issueLocked(b.rotateRefresh)
	resp := map[string]string{"access_token": access}
	if b.rotateRefresh {
		resp["refresh_token"] = refresh
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.accessToken = ""
	b.refreshToken = ""
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid job id"})
		return
	}

	b.mu.Lock()
	states, ok := b.jobs[id]
	var job models.Job
	if ok {
		job = states[0]
		if len(states) > 1 {
			b.jobs[id] = states[1:]
		}
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (b *Backend) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	jobType, _ := body["type"].(string)
	if strings.TrimSpace(jobType) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "type is required"})
		return
	}

	b.mu.Lock()
	b.nextJobID++
	id := b.nextJobID
	b.enqueued = append(b.enqueued, body)
	if _, scripted := b.jobs[id]; !scripted {
		b.jobs[id] = []models.Job{
			{ID: id, Type: jobType, Status: models.JobPending, MaxAttempts: 3},
			{ID: id, Type: jobType, Status: models.JobRunning, Attempts: 1, MaxAttempts: 3},
			{ID: id, Type: jobType, Status: models.JobDone, Attempts: 1, MaxAttempts: 3, Result: json.RawMessage(`{"ok":true}`)},
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "job_id": id})
}

func (b *Backend) handleSearch(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.lastQuery = r.URL.RawQuery
	resp := b.search
	b.mu.Unlock()

	if resp == nil {
		resp = []any{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
