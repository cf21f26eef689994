package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(status Status) CheckFunc {
	return func(context.Context) Check { return Check{Status: status} }
}

func TestPerformChecks_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for i, s := range tt.checks {
				hc.RegisterCheck(string(rune('a'+i)), fixed(s))
			}
			resp := hc.Check(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
			assert.GreaterOrEqual(t, resp.Uptime, time.Duration(0))
		})
	}
}

func TestAddressSpaceCheck(t *testing.T) {
	var frozen atomic.Bool
	check := AddressSpaceCheck(func() (bool, int, int) { return frozen.Load(), 3, 120 })

	c := check(context.Background())
	assert.Equal(t, StatusUnhealthy, c.Status)
	assert.Equal(t, 120, c.Details["nodes"])

	frozen.Store(true)
	assert.Equal(t, StatusHealthy, check(context.Background()).Status)
}

func TestDatabaseCheck(t *testing.T) {
	ok := DatabaseCheck(func(context.Context) error { return nil })(context.Background())
	assert.Equal(t, StatusHealthy, ok.Status)

	down := DatabaseCheck(func(context.Context) error { return errors.New("connection refused") })(context.Background())
	assert.Equal(t, StatusDegraded, down.Status)
	assert.Equal(t, "connection refused", down.Message)
}

func TestMemoryCheck(t *testing.T) {
	c := MemoryCheck()(context.Background())
	assert.Contains(t, c.Details, "alloc_bytes")
	assert.NotEmpty(t, c.Status)
}

func TestHandlers(t *testing.T) {
	var frozen atomic.Bool
	hc := NewHealthChecker()
	hc.RegisterReadinessCheck("addressspace", AddressSpaceCheck(func() (bool, int, int) { return frozen.Load(), 1, 30 }))
	hc.RegisterLivenessCheck("memory", fixed(StatusHealthy))
	hc.RegisterCheck("database", fixed(StatusDegraded))

	serve := func(h http.HandlerFunc) (*httptest.ResponseRecorder, Response) {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		var resp Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return rec, resp
	}

	rec, resp := serve(hc.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusUnhealthy, resp.Status)

	frozen.Store(true)
	rec, _ = serve(hc.ReadinessHandler())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(hc.LivenessHandler())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = serve(hc.HTTPHandler())
	assert.Equal(t, http.StatusOK, rec.Code, "degraded still answers")
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
