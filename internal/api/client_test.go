package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"shopscout/internal/domain"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := New(srv.URL)
	return c, srv
}

func TestCachedGetIssuesOneNetworkCall(t *testing.T) {
	var calls int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"m1","title":"Visit store","status":"available"}]`))
	}))
	defer srv.Close()

	ctx := context.Background()
	first, err := c.FetchMissions(ctx)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := c.FetchMissions(ctx)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 network call, got %d", n)
	}
	if len(first) != 1 || len(second) != 1 || first[0].ID != second[0].ID {
		t.Fatalf("cached value mismatch: %v vs %v", first, second)
	}
}

func TestCacheRefreshesWhenURLChanges(t *testing.T) {
	var calls int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	}))
	defer srv.Close()

	ctx := context.Background()
	var out map[string]string
	if err := c.get(ctx, "X", "missions", &out); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if err := c.get(ctx, "X", "missions", &out); err != nil {
		t.Fatalf("repeat get: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 call after same-URL repeat, got %d", n)
	}
	if err := c.get(ctx, "X", "missions/admin/all", &out); err != nil {
		t.Fatalf("different-URL get: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected refetch for new URL, got %d calls", n)
	}
	if out["path"] != "/missions/admin/all" {
		t.Fatalf("expected overwritten entry, got %v", out)
	}
}

func TestMutationInvalidatesReadTags(t *testing.T) {
	var gets int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			atomic.AddInt32(&gets, 1)
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`{"id":"m9","title":"New","status":"available"}`))
	}))
	defer srv.Close()
	c.Token = func() string { return "tok" }

	ctx := context.Background()
	if _, err := c.FetchMissions(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := c.PostMission(ctx, domain.Mission{Title: "New"}); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := c.FetchMissions(ctx); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if n := atomic.LoadInt32(&gets); n != 2 {
		t.Fatalf("expected refetch after mutation, got %d GETs", n)
	}
}

func TestNoContentSynthesized(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c.Token = func() string { return "tok" }

	res, err := c.MarkRead(context.Background(), "u1")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected synthesized success, got %+v", res)
	}
	if res.Data.Marked != 0 {
		t.Fatalf("expected zero marked on 204, got %d", res.Data.Marked)
	}
}

func TestNonJSONSuccessWrapped(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("all good"))
	}))
	defer srv.Close()

	raw, err := c.do(context.Background(), http.MethodGet, "missions", nil, "")
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["message"] != "all good" {
		t.Fatalf("expected wrapped text, got %v", body)
	}
}

func TestHTTPErrorNormalized(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"bad credentials"}`))
	}))
	defer srv.Close()

	_, err := c.Login(context.Background(), "x@y.z", "nope")
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", apiErr.Status)
	}
	if apiErr.Success {
		t.Fatalf("expected success=false")
	}
	if apiErr.Message != "bad credentials" {
		t.Fatalf("expected parsed message, got %q", apiErr.Message)
	}
}

func TestNonJSONErrorBodyWrapped(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := c.FetchMissions(context.Background())
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestTransportFailureDefaultsTo500(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listens here
	_, err := c.FetchMissions(context.Background())
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 for transport failure, got %d", apiErr.Status)
	}
}

func TestTokenRequiredFailsFast(t *testing.T) {
	var calls int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	_, err := c.FetchReports(context.Background())
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 fail-fast, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no network call without token")
	}
}

func TestClientSafeForConcurrentFirstUse(t *testing.T) {
	var calls int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":1}`))
	}))
	defer srv.Close()
	if c.HTTPClient == nil {
		t.Fatal("New should initialize the HTTP client eagerly")
	}
	c.Token = func() string { return "tok" }

	// First uses from concurrent goroutines, as the poller does.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.UnreadCount(context.Background(), ""); err != nil {
				t.Errorf("unread count: %v", err)
			}
		}()
	}
	wg.Wait()

	// A zero-value client falls back without writing shared state.
	zero := &Client{BaseURL: srv.URL, Log: c.Log}
	if _, err := zero.do(context.Background(), http.MethodGet, "messages/count", nil, "tok"); err != nil {
		t.Fatalf("zero-value do: %v", err)
	}
	if zero.HTTPClient != nil {
		t.Fatal("do must not assign HTTPClient on the client")
	}
}

func TestBearerHeaderInjected(t *testing.T) {
	var gotAuth string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	c.Token = func() string { return "secret-token" }

	if _, err := c.FetchReports(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}
