package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSequence_StopsInReverseOrder(t *testing.T) {
	seq := NewSequence(zap.NewNop(), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	seq.AddFunc("database", record("database"))
	seq.AddFunc("http-server", record("http-server"))
	seq.AddFunc("scheduler", record("scheduler"))

	require.NoError(t, seq.Stop())
	assert.Equal(t, []string{"scheduler", "http-server", "database"}, order)
}

func TestSequence_FailingStepDoesNotSkipRest(t *testing.T) {
	seq := NewSequence(zap.NewNop(), time.Second)

	closed := false
	seq.AddFunc("database", func() { closed = true })
	seq.Add("http-server", func(context.Context) error { return errors.New("listener busy") })

	err := seq.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http-server: listener busy")
	assert.True(t, closed)
}

func TestSequence_LaterStepsSeeExpiredDeadline(t *testing.T) {
	seq := NewSequence(zap.NewNop(), 10*time.Millisecond)

	var dbCtxErr error
	seq.Add("database", func(ctx context.Context) error {
		dbCtxErr = ctx.Err()
		return nil
	})
	seq.Add("scheduler", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := seq.Stop()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, dbCtxErr, context.DeadlineExceeded)
}

func TestInFlightTracker_WaitsForWork(t *testing.T) {
	tracker := NewInFlightTracker("runs", zap.NewNop())
	require.True(t, tracker.Add())

	released := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		tracker.Done()
		close(released)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tracker.Shutdown(ctx))
	<-released

	assert.False(t, tracker.Add(), "no new work after shutdown")
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("runs", zap.NewNop())
	require.True(t, tracker.Add())
	defer tracker.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
}

func TestInFlightTracker_Middleware(t *testing.T) {
	tracker := NewInFlightTracker("runs", zap.NewNop())
	handler := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/reconcile", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, tracker.Shutdown(context.Background()))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/reconcile", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
