package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kestrelhq/driveconnect/internal/utils"
)

type recordedLaunch struct {
	path string
	auth string
	body launchRequest
}

func newEngineStub(t *testing.T, status int) (*httptest.Server, func() []recordedLaunch) {
	t.Helper()
	var mu sync.Mutex
	var launches []recordedLaunch

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body launchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad launch body: %v", err)
		}
		mu.Lock()
		launches = append(launches, recordedLaunch{
			path: r.URL.Path,
			auth: r.Header.Get("Authorization"),
			body: body,
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedLaunch {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedLaunch(nil), launches...)
	}
}

func TestTriggerFullSync(t *testing.T) {
	server, launches := newEngineStub(t, http.StatusAccepted)
	client := NewClient(server.URL, "secret-token", nil)

	err := client.TriggerFullSync(context.Background(), "conn-1", "cursor-9")
	if err != nil {
		t.Fatalf("TriggerFullSync failed: %v", err)
	}

	got := launches()
	if len(got) != 1 {
		t.Fatalf("expected 1 launch, got %d", len(got))
	}
	if got[0].path != "/workflows/full_sync" {
		t.Errorf("unexpected path: %s", got[0].path)
	}
	if got[0].auth != "Bearer secret-token" {
		t.Errorf("unexpected auth header: %s", got[0].auth)
	}
	if got[0].body.ConnectorID != "conn-1" {
		t.Errorf("unexpected connector id: %s", got[0].body.ConnectorID)
	}
	if got[0].body.Params["cursor"] != "cursor-9" {
		t.Errorf("cursor must be passed through, got %v", got[0].body.Params)
	}
}

func TestTriggerFullSyncEmptyCursor(t *testing.T) {
	server, launches := newEngineStub(t, http.StatusOK)
	client := NewClient(server.URL, "", nil)

	if err := client.TriggerFullSync(context.Background(), "conn-1", ""); err != nil {
		t.Fatalf("TriggerFullSync failed: %v", err)
	}

	got := launches()
	if len(got[0].body.Params) != 0 {
		t.Errorf("empty cursor must not appear in params: %v", got[0].body.Params)
	}
	if got[0].auth != "" {
		t.Errorf("no auth header expected without token, got %s", got[0].auth)
	}
}

func TestTriggerIncrementalSync(t *testing.T) {
	server, launches := newEngineStub(t, http.StatusOK)
	client := NewClient(server.URL, "", nil)

	if err := client.TriggerIncrementalSync(context.Background(), "conn-1"); err != nil {
		t.Fatalf("TriggerIncrementalSync failed: %v", err)
	}
	if got := launches(); got[0].path != "/workflows/incremental_sync" {
		t.Errorf("unexpected path: %s", got[0].path)
	}
}

func TestTriggerGarbageCollect(t *testing.T) {
	server, launches := newEngineStub(t, http.StatusOK)
	client := NewClient(server.URL, "", nil)

	if err := client.TriggerGarbageCollect(context.Background(), "conn-1"); err != nil {
		t.Fatalf("TriggerGarbageCollect failed: %v", err)
	}
	if got := launches(); got[0].path != "/workflows/garbage_collect" {
		t.Errorf("unexpected path: %s", got[0].path)
	}
}

func TestConflictCountsAsSuccess(t *testing.T) {
	server, _ := newEngineStub(t, http.StatusConflict)
	client := NewClient(server.URL, "", nil)

	if err := client.TriggerIncrementalSync(context.Background(), "conn-1"); err != nil {
		t.Fatalf("409 means the workflow already runs, got %v", err)
	}
}

func TestRateLimitSurfacesAsSoftError(t *testing.T) {
	server, _ := newEngineStub(t, http.StatusTooManyRequests)
	client := NewClient(server.URL, "", nil)

	err := client.TriggerIncrementalSync(context.Background(), "conn-1")
	if !utils.IsCode(err, utils.ErrCodeRateLimited) {
		t.Fatalf("got %v, want RATE_LIMITED", err)
	}
	if !utils.IsRetryable(err) {
		t.Error("rate limit must be marked retryable")
	}
}

func TestEngineErrorSurfacesAsUpstreamUnavailable(t *testing.T) {
	server, _ := newEngineStub(t, http.StatusInternalServerError)
	client := NewClient(server.URL, "", nil)

	err := client.TriggerFullSync(context.Background(), "conn-1", "")
	if !utils.IsCode(err, utils.ErrCodeUpstreamUnavailable) {
		t.Fatalf("got %v, want UPSTREAM_UNAVAILABLE", err)
	}
	if !utils.IsRetryable(err) {
		t.Error("5xx must be marked retryable")
	}
}

func TestUnreachableEngine(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", nil)

	err := client.TriggerFullSync(context.Background(), "conn-1", "")
	if !utils.IsCode(err, utils.ErrCodeUpstreamUnavailable) {
		t.Fatalf("got %v, want UPSTREAM_UNAVAILABLE", err)
	}
}
