package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probeFor(t *testing.T, check CheckFunc) *probe {
	t.Helper()
	return newProbe("test", time.Second, check)
}

func TestProbeThresholds(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy until three failures", func(t *testing.T) {
		p := probeFor(t, func(context.Context) error {
			return errors.New("down")
		})

		p.run(ctx)
		p.run(ctx)
		_, failed := p.failure()
		assert.False(t, failed, "two failures should not trip the probe")

		p.run(ctx)
		msg, failed := p.failure()
		assert.True(t, failed)
		assert.Equal(t, "down", msg)
	})

	t.Run("one success recovers", func(t *testing.T) {
		healthy := atomic.Bool{}
		p := probeFor(t, func(context.Context) error {
			if healthy.Load() {
				return nil
			}
			return errors.New("down")
		})

		for range 3 {
			p.run(ctx)
		}
		_, failed := p.failure()
		require.True(t, failed)

		healthy.Store(true)
		p.run(ctx)
		_, failed = p.failure()
		assert.False(t, failed)
	})

	t.Run("failure streak resets on success", func(t *testing.T) {
		var n atomic.Int32
		p := probeFor(t, func(context.Context) error {
			// Fail twice, succeed, fail twice: never three in a row.
			switch n.Add(1) {
			case 3:
				return nil
			default:
				return errors.New("down")
			}
		})

		for range 5 {
			p.run(ctx)
		}
		_, failed := p.failure()
		assert.False(t, failed)
	})
}

func TestProbeTimeout(t *testing.T) {
	p := probeFor(t, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	p.timeout = 10 * time.Millisecond

	ctx := context.Background()
	for range failureThreshold {
		p.run(ctx)
	}
	msg, failed := p.failure()
	assert.True(t, failed)
	assert.Contains(t, msg, "deadline")
}

func TestReadyEndpoint(t *testing.T) {
	h := New()

	get := func() (int, statusResponse) {
		w := httptest.NewRecorder()
		h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		var resp statusResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return w.Code, resp
	}

	// Not ready until marked.
	code, resp := get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Checks, "_readiness")

	h.SetReady(true)
	code, resp = get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Checks)

	// Draining flips it back.
	h.SetReady(false)
	code, _ = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadyEndpointFailingCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	// Trip the probe directly instead of waiting on the ticker.
	h.mu.RLock()
	p := h.readiness[0]
	h.mu.RUnlock()
	for range failureThreshold {
		p.run(context.Background())
	}

	assert.False(t, h.IsReady())

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "connection refused", resp.Checks["db"])
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartStop(t *testing.T) {
	h := New()
	var runs atomic.Int32
	h.AddLivenessCheck("counter", time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	h.Start(context.Background(), 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, time.Millisecond)

	h.Stop()
	h.Stop() // second Stop is a no-op

	stopped := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), stopped+1)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
