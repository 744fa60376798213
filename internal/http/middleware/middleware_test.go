package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegraph-backend/internal/platform/ctxutil"
)

func TestRequestIdentityHonoursHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIdentity())

	var seen *ctxutil.TraceData
	r.GET("/api/users/:id/enrolments", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/u-1/enrolments", nil)
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("X-Trace-Id", "trace-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-1" || seen.TraceID != "trace-1" || seen.UserID != "u-1" {
		t.Fatalf("unexpected trace data: %+v", seen)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("unexpected request id header: %q", got)
	}
}

func TestRequestIdentityReplacesBadClientIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIdentity())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("a", maxClientIDLen+1))
	req.Header.Set("X-Trace-Id", "has space")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	reqID := rec.Header().Get("X-Request-Id")
	traceID := rec.Header().Get("X-Trace-Id")
	if reqID == "" || len(reqID) > maxClientIDLen {
		t.Fatalf("expected generated request id, got %q", reqID)
	}
	if traceID == "" || traceID == "has space" {
		t.Fatalf("expected generated trace id, got %q", traceID)
	}
}

func TestClientID(t *testing.T) {
	cases := map[string]string{
		"  abc-123 ": "abc-123",
		"":           "",
		"a\tb":      "",
		"ok_id":      "ok_id",
	}
	for in, want := range cases {
		if got := clientID(in); got != want {
			t.Fatalf("clientID(%q): got=%q want=%q", in, got, want)
		}
	}
}

type fakeObserver struct {
	mu      sync.Mutex
	started int
	routes  []string
	codes   []int
}

func (f *fakeObserver) HTTPStarted() {
	f.mu.Lock()
	f.started++
	f.mu.Unlock()
}

func (f *fakeObserver) ObserveHTTP(_ string, route string, status int, _ time.Duration) {
	f.mu.Lock()
	f.routes = append(f.routes, route)
	f.codes = append(f.codes, status)
	f.mu.Unlock()
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &fakeObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/api/users/:id/enrolments", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/users/u-1/enrolments", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if obs.started != 2 {
		t.Fatalf("unexpected started count: %d", obs.started)
	}
	if obs.routes[0] != "/api/users/:id/enrolments" || obs.codes[0] != http.StatusOK {
		t.Fatalf("unexpected first observation: %q %d", obs.routes[0], obs.codes[0])
	}
	if obs.routes[1] != "" || obs.codes[1] != http.StatusNotFound {
		t.Fatalf("unexpected second observation: %q %d", obs.routes[1], obs.codes[1])
	}
}

func TestMetricsNilObserverPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
