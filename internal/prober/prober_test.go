package prober

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allowAll пропускает любые цели, кроме перечисленных
type allowAll struct {
	blocked map[string]validator.Reason
	calls   int
}

func (a *allowAll) Validate(_ context.Context, target string) validator.Verdict {
	a.calls++
	if reason, ok := a.blocked[target]; ok {
		return validator.Verdict{Allowed: false, Reason: reason}
	}
	return validator.Verdict{Allowed: true}
}

func newTestProber(v TargetValidator) *Prober {
	return New(Config{DefaultTimeout: 2 * time.Second, MaxBodyBytes: 1024}, v, nil)
}

func monitorFor(url string, assertions models.AssertionConfig) *models.Monitor {
	return &models.Monitor{ID: "m1", URL: url, IntervalMs: 60_000, Assertions: assertions}
}

func TestProbeDefaultSemantics(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ok     bool
	}{
		{"200", http.StatusOK, true},
		{"204", http.StatusNoContent, true},
		{"redirect not followed counts as healthy", http.StatusFound, true},
		{"404", http.StatusNotFound, false},
		{"503", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusFound {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			check := newTestProber(&allowAll{}).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{}))

			require.True(t, check.Valid())
			assert.Equal(t, tt.ok, check.OK)
			require.NotNil(t, check.StatusCode)
			assert.Equal(t, tt.status, *check.StatusCode)
			if !tt.ok {
				assert.Equal(t, models.ErrorStatusMismatch, check.ErrorCode)
			}
		})
	}
}

func TestProbeAssertionsNarrowHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html>all systems operational</html>")
	}))
	defer srv.Close()

	p := newTestProber(&allowAll{})

	check := p.Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled:             true,
		AcceptedStatusCodes: "200",
		ContentType:         "text/html",
		BodyContains:        "operational",
	}))
	assert.True(t, check.OK)

	check = p.Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled:     true,
		ContentType: "application/json",
	}))
	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorContentTypeMismatch, check.ErrorCode)
	require.NotNil(t, check.StatusCode)
	assert.Equal(t, 200, *check.StatusCode)

	check = p.Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled:      true,
		BodyContains: "degraded",
	}))
	assert.Equal(t, models.ErrorBodyMismatch, check.ErrorCode)
}

func TestProbeReportsEveryFailedRuleFirstWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	check := newTestProber(&allowAll{}).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled:      true,
		ContentType:  "json",
		BodyContains: "ok",
	}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorStatusMismatch, check.ErrorCode)
	assert.Contains(t, check.ErrorMessage, "status_mismatch")
	assert.Contains(t, check.ErrorMessage, "content_type_mismatch")
	assert.Contains(t, check.ErrorMessage, "body_mismatch")
}

func TestProbeBodyReadIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 4096))
		fmt.Fprint(w, "needle")
	}))
	defer srv.Close()

	check := newTestProber(&allowAll{}).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled:      true,
		BodyContains: "needle",
	}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorBodyMismatch, check.ErrorCode)
}

func TestProbeAcceptedStatusRanges(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		accepted string
		ok       bool
	}{
		{"code inside configured range", http.StatusNoContent, "200-299", true},
		{"configured set narrows default", http.StatusFound, "200-299", false},
		{"configured codes cannot widen to 4xx", http.StatusUnauthorized, "200-299,401", false},
		{"configured codes cannot widen to 5xx", http.StatusServiceUnavailable, "500-599", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusFound {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			check := newTestProber(&allowAll{}).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
				Enabled:             true,
				AcceptedStatusCodes: tt.accepted,
			}))
			assert.Equal(t, tt.ok, check.OK)
			if !tt.ok {
				assert.Equal(t, models.ErrorStatusMismatch, check.ErrorCode)
			}
		})
	}
}

func TestProbeStalledBodyIsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	check := newTestProber(&allowAll{}).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled:      true,
		BodyContains: "ok",
		TimeoutMs:    300,
	}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorTimeout, check.ErrorCode)
	assert.Equal(t, models.CategoryTransportError, check.ErrorCode.Category())
	require.NotNil(t, check.StatusCode)
	assert.Equal(t, http.StatusOK, *check.StatusCode)
}

func TestProbeInvalidStoredAssertionsFail(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, "fine")
	}))
	defer srv.Close()

	check := newTestProber(&allowAll{}).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled:             true,
		AcceptedStatusCodes: "abc",
		BodyContains:        "missing",
	}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorInternal, check.ErrorCode)
	assert.Zero(t, hits)
}

func redirectChain(t *testing.T, hops int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(strings.TrimPrefix(r.URL.Path, "/"), "%d", &n)
		if n < hops {
			http.Redirect(w, r, fmt.Sprintf("/%d", n+1), http.StatusFound)
			return
		}
		fmt.Fprint(w, "landed")
	}))
}

func TestProbeRedirects(t *testing.T) {
	srv := redirectChain(t, 3)
	defer srv.Close()

	p := newTestProber(&allowAll{})
	start := srv.URL + "/0"

	// Редиректы выключены: 302 считается успешным ответом без перехода
	check := p.Probe(context.Background(), monitorFor(start, models.AssertionConfig{Enabled: true}))
	assert.True(t, check.OK)
	assert.Equal(t, http.StatusFound, *check.StatusCode)

	check = p.Probe(context.Background(), monitorFor(start, models.AssertionConfig{
		Enabled: true, FollowRedirects: true, MaxRedirects: 3, BodyContains: "landed",
	}))
	assert.True(t, check.OK)
	assert.Equal(t, http.StatusOK, *check.StatusCode)

	check = p.Probe(context.Background(), monitorFor(start, models.AssertionConfig{
		Enabled: true, FollowRedirects: true, MaxRedirects: 2,
	}))
	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorRedirectLimit, check.ErrorCode)
	assert.True(t, check.Valid())
}

func TestProbeRedirectToBlockedTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data", http.StatusFound)
	}))
	defer srv.Close()

	v := &allowAll{blocked: map[string]validator.Reason{
		"http://169.254.169.254/latest/meta-data": validator.ReasonLinkLocalAddress,
	}}
	check := newTestProber(v).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled: true, FollowRedirects: true, MaxRedirects: 5,
	}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorTargetBlocked, check.ErrorCode)
}

func TestProbeTimeoutOverrideOnlyWithAssertions(t *testing.T) {
	p := newTestProber(&allowAll{})

	m := monitorFor("https://example.com", models.AssertionConfig{TimeoutMs: 500})
	assert.Equal(t, 2*time.Second, p.Timeout(m))

	m.Assertions.Enabled = true
	assert.Equal(t, 500*time.Millisecond, p.Timeout(m))
}

func TestProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	started := time.Now()
	check := newTestProber(&allowAll{}).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{
		Enabled: true, TimeoutMs: 100,
	}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorTimeout, check.ErrorCode)
	assert.Less(t, time.Since(started), time.Second)
}

func TestProbeConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	check := newTestProber(&allowAll{}).Probe(context.Background(), monitorFor("http://"+addr, models.AssertionConfig{}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorConnectionRefused, check.ErrorCode)
	assert.Nil(t, check.StatusCode)
	assert.True(t, check.Valid())
}

func TestProbeBlockedTargetIsNotRequested(t *testing.T) {
	requested := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	defer srv.Close()

	v := &allowAll{blocked: map[string]validator.Reason{srv.URL: validator.ReasonLoopbackAddress}}
	check := newTestProber(v).Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorTargetBlocked, check.ErrorCode)
	assert.Equal(t, models.CategoryTargetBlocked, check.ErrorCode.Category())
	assert.Contains(t, check.ErrorMessage, "loopback_address")
	assert.False(t, requested)
}

func TestProbeUnresolvedTargetIsDNSError(t *testing.T) {
	v := &allowAll{blocked: map[string]validator.Reason{
		"https://gone.example.com": validator.ReasonDNSResolutionFailed,
	}}
	check := newTestProber(v).Probe(context.Background(), monitorFor("https://gone.example.com", models.AssertionConfig{}))

	assert.Equal(t, models.ErrorDNS, check.ErrorCode)
	assert.Equal(t, models.CategoryTransportError, check.ErrorCode.Category())
}

func TestProbeDialGuardBlocksLoopbackConnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := New(Config{DefaultTimeout: time.Second, DialGuard: true}, &allowAll{}, nil)
	check := p.Probe(context.Background(), monitorFor(srv.URL, models.AssertionConfig{}))

	assert.False(t, check.OK)
	assert.Equal(t, models.ErrorTargetBlocked, check.ErrorCode)
}

func TestProbeHonoursCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	check := newTestProber(&allowAll{}).Probe(ctx, monitorFor(srv.URL, models.AssertionConfig{}))
	assert.Equal(t, models.ErrorTimeout, check.ErrorCode)
}
