package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/qaspar/internal/api/models"
	"github.com/smazurov/qaspar/internal/events"
	"github.com/smazurov/qaspar/internal/logging"
	"github.com/smazurov/qaspar/internal/process"
	"github.com/smazurov/qaspar/internal/updater"
)

// fakeSession for testing
type fakeSession struct {
	mu      sync.Mutex
	status  process.Status
	stopped int
}

func (f *fakeSession) Status() process.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSession) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func runningSession() *fakeSession {
	code := 1
	return &fakeSession{status: process.Status{
		State: process.StateRunning,
		Tick:  7,
		Processes: []process.ProcessStatus{
			{Name: "Player", PID: 100, Running: true, EmptyPolls: 0, MaxEmptyPolls: 2},
			{Name: "Store", PID: 101, Running: false, EmptyPolls: 3, MaxEmptyPolls: 20, ExitCode: &code},
		},
		CleanupEnabled: true,
		CleanupDir:     "./archived_files",
	}}
}

func doRequest(t *testing.T, server *Server, method, path, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	server := NewServer(&Options{})
	rec := doRequest(t, server, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body models.HealthData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("Status = %q, want ok", body.Status)
	}
}

func TestGetSession(t *testing.T) {
	server := NewServer(&Options{Session: runningSession()})
	rec := doRequest(t, server, http.MethodGet, "/api/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body models.SessionData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.State != "running" || body.Tick != 7 {
		t.Errorf("session = %+v", body)
	}
	if len(body.Processes) != 2 {
		t.Fatalf("got %d processes, want 2", len(body.Processes))
	}
	store := body.Processes[1]
	if store.Name != "Store" || store.Running || store.ExitCode == nil || *store.ExitCode != 1 {
		t.Errorf("store = %+v", store)
	}
	if body.Processes[0].ExitCode != nil {
		t.Error("running process should have no exit code")
	}
}

func TestSessionUnavailable(t *testing.T) {
	server := NewServer(&Options{})
	if rec := doRequest(t, server, http.MethodGet, "/api/session", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET status = %d, want 503", rec.Code)
	}
	if rec := doRequest(t, server, http.MethodPost, "/api/session/stop", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("POST status = %d, want 503", rec.Code)
	}
}

func TestStopSession(t *testing.T) {
	session := runningSession()
	server := NewServer(&Options{Session: session})

	rec := doRequest(t, server, http.MethodPost, "/api/session/stop", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if session.stopped != 1 {
		t.Errorf("Stop called %d times, want 1", session.stopped)
	}

	var body models.StopData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.State != "running" {
		t.Errorf("State = %q, want running", body.State)
	}
}

func TestBasicAuth(t *testing.T) {
	session := runningSession()
	server := NewServer(&Options{AuthUsername: "admin", AuthPassword: "secret", Session: session})

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/health", "", http.StatusOK},
		{"version is public", http.MethodGet, "/api/version", "", http.StatusOK},
		{"session requires auth", http.MethodGet, "/api/session", "", http.StatusUnauthorized},
		{"wrong password", http.MethodGet, "/api/session", "admin:nope", http.StatusUnauthorized},
		{"valid credentials", http.MethodGet, "/api/session", "admin:secret", http.StatusOK},
		{"stop requires auth", http.MethodPost, "/api/session/stop", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, server, tt.method, tt.path, tt.auth)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}

	if session.stopped != 0 {
		t.Error("unauthorized stop request must not stop the session")
	}
}

func TestMetricsHandlerMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("qaspar_session_state 1\n"))
	})
	server := NewServer(&Options{AuthUsername: "admin", AuthPassword: "secret", MetricsHandler: metrics})

	rec := doRequest(t, server, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "qaspar_session_state") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestReadLogs(t *testing.T) {
	buffer := logging.NewRingBuffer(10)
	buffer.Write(logging.LogEntry{Level: "debug", Module: "supervisor", Message: "one"})
	buffer.Write(logging.LogEntry{Level: "info", Module: "supervisor", Message: "two"})
	buffer.Write(logging.LogEntry{Level: "warn", Module: "supervisor", Message: "three"})
	buffer.Write(logging.LogEntry{Level: "error", Module: "archive", Message: "four"})

	data := readLogs(buffer, &models.LogsInput{})
	if len(data.Entries) != 4 || data.LastSeq != 4 {
		t.Errorf("got %d entries, last seq %d", len(data.Entries), data.LastSeq)
	}

	data = readLogs(buffer, &models.LogsInput{Level: "warn"})
	if len(data.Entries) != 2 || data.Entries[0].Message != "three" {
		t.Errorf("level filter returned %+v", data.Entries)
	}
	if data.LastSeq != 4 {
		t.Errorf("LastSeq = %d, want 4 even when entries are filtered", data.LastSeq)
	}

	data = readLogs(buffer, &models.LogsInput{Since: 2, Limit: 1})
	if len(data.Entries) != 1 || data.Entries[0].Message != "four" {
		t.Errorf("since/limit returned %+v", data.Entries)
	}

	data = readLogs(nil, &models.LogsInput{Since: 9})
	if len(data.Entries) != 0 || data.LastSeq != 9 {
		t.Errorf("nil buffer returned %+v", data)
	}
}

func TestGetLogs(t *testing.T) {
	logging.Initialize(logging.Config{Level: "info", Format: "text"})
	logging.GetLogger("archive").Warn("Archive cleanup failed", "dir", "/tmp/x")

	server := NewServer(&Options{})
	rec := doRequest(t, server, http.MethodGet, "/api/logs?level=warn", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body models.LogsData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, entry := range body.Entries {
		if entry.Message == "Archive cleanup failed" && entry.Module == "archive" {
			found = true
		}
	}
	if !found {
		t.Errorf("log entry not returned: %+v", body.Entries)
	}
}

func TestEventsStream(t *testing.T) {
	bus := events.New()
	server := NewServer(&Options{Session: runningSession(), EventBus: bus})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	messages := make(chan string, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				messages <- line
			}
		}
	}()

	select {
	case msg := <-messages:
		if !strings.Contains(msg, `"new_state":"running"`) {
			t.Errorf("expected current state first, got: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for initial SSE message")
	}

	bus.Publish(events.ProcessStalledEvent{Process: "Store", EmptyPolls: 21, Tick: 21})

	select {
	case msg := <-messages:
		if !strings.Contains(msg, `"process":"Store"`) {
			t.Errorf("expected stall event, got: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for stall event")
	}
}

type fakeUpdater struct {
	enabled bool
	err     error
}

func (f *fakeUpdater) CheckForUpdate(context.Context) (*updater.UpdateInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &updater.UpdateInfo{CurrentVersion: "1.0.0", LatestVersion: "1.1.0", UpdateAvailable: true}, nil
}
func (f *fakeUpdater) ApplyUpdate(context.Context) error { return nil }
func (f *fakeUpdater) Rollback(context.Context) error    { return nil }
func (f *fakeUpdater) GetStatus(context.Context) *updater.Status {
	return &updater.Status{State: updater.StateAvailable, CurrentVersion: "1.0.0", TargetVersion: "1.1.0"}
}
func (f *fakeUpdater) IsEnabled() bool        { return f.enabled }
func (f *fakeUpdater) DisabledReason() string { return "read-only binary" }

func TestUpdateRoutes(t *testing.T) {
	server := NewServer(&Options{UpdateService: &fakeUpdater{enabled: true}})

	rec := doRequest(t, server, http.MethodGet, "/api/update/check", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("check status = %d: %s", rec.Code, rec.Body.String())
	}
	var check models.UpdateCheckData
	if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatal(err)
	}
	if !check.UpdateAvailable || check.LatestVersion != "1.1.0" {
		t.Errorf("check = %+v", check)
	}

	rec = doRequest(t, server, http.MethodGet, "/api/update/status", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"state":"available"`) {
		t.Errorf("status = %d: %s", rec.Code, rec.Body.String())
	}

	disabled := NewServer(&Options{UpdateService: &fakeUpdater{enabled: false}})
	if rec := doRequest(t, disabled, http.MethodGet, "/api/update/check", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled check status = %d, want 503", rec.Code)
	}

	withoutUpdater := NewServer(&Options{})
	if rec := doRequest(t, withoutUpdater, http.MethodGet, "/api/update/check", ""); rec.Code != http.StatusNotFound {
		t.Errorf("check without updater = %d, want 404", rec.Code)
	}
}

func TestMapUpdateError(t *testing.T) {
	tests := []struct {
		code updater.Code
		want int
	}{
		{updater.ErrCodeInvalidState, http.StatusConflict},
		{updater.ErrCodeNotFound, http.StatusNotFound},
		{updater.ErrCodeDisabled, http.StatusServiceUnavailable},
		{updater.ErrCodeCheckFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		err := mapUpdateError(&updater.Error{Code: tt.code, Message: "x"})
		var statusErr huma.StatusError
		if !errors.As(err, &statusErr) || statusErr.GetStatus() != tt.want {
			t.Errorf("%s mapped to %v, want %d", tt.code, err, tt.want)
		}
	}
}
