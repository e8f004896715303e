package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTracker(t *testing.T) {
	ctx := context.Background()

	track := func(t *testing.T, tracker *RequestTracker, id contracts.RequestID, timeout time.Duration) {
		t.Helper()
		req := NewRequest(testAction, WithRequestID(id), WithRequestTimeout(timeout))
		require.NoError(t, tracker.Track(&req))
	}

	t.Run("Track rejects duplicate ids", func(t *testing.T) {
		tracker := NewRequestTracker()
		track(t, tracker, "a", time.Minute)

		req := NewRequest(testAction, WithRequestID("a"))
		assert.Error(t, tracker.Track(&req))
		assert.Error(t, tracker.Track(nil))
	})

	t.Run("Wait returns the completing frame", func(t *testing.T) {
		tracker := NewRequestTracker()
		track(t, tracker, "a", time.Minute)

		go func() {
			_ = tracker.Complete(&Frame{Type: MessageTypeCallResult, ID: "a", Payload: []byte(`{}`)})
		}()
		p, err := tracker.Wait(ctx, "a")

		require.NoError(t, err)
		assert.Equal(t, RequestStatusCompleted, p.Status)
		assert.True(t, p.Result().IsOK())
	})

	t.Run("CALLERROR settles as failed with its result", func(t *testing.T) {
		tracker := NewRequestTracker()
		track(t, tracker, "a", time.Minute)

		require.NoError(t, tracker.Complete(&Frame{Type: MessageTypeCallError, ID: "a", ErrorCode: contracts.ResultCodeSecurityError}))
		p, err := tracker.Wait(ctx, "a")

		require.NoError(t, err)
		assert.Equal(t, RequestStatusFailed, p.Status)
		assert.Equal(t, contracts.ResultCodeSecurityError, p.Result().Code)
	})

	t.Run("unknown id is reported", func(t *testing.T) {
		tracker := NewRequestTracker()

		err := tracker.Complete(&Frame{Type: MessageTypeCallResult, ID: "zzz"})

		assert.ErrorIs(t, err, ErrUnknownRequest)
	})

	t.Run("a request settles once", func(t *testing.T) {
		tracker := NewRequestTracker()
		track(t, tracker, "a", time.Minute)

		require.NoError(t, tracker.Fail("a", errors.New("socket closed")))
		assert.Error(t, tracker.Complete(&Frame{Type: MessageTypeCallResult, ID: "a"}))

		p, ok := tracker.Get("a")
		require.True(t, ok)
		assert.Equal(t, contracts.ResultCodeInternalError, p.Result().Code)
	})

	t.Run("Wait times out", func(t *testing.T) {
		tracker := NewRequestTracker()
		track(t, tracker, "a", 10*time.Millisecond)

		p, err := tracker.Wait(ctx, "a")

		assert.ErrorIs(t, err, ErrRequestTimeout)
		assert.Equal(t, RequestStatusTimeout, p.Status)
	})

	t.Run("Wait honours the context", func(t *testing.T) {
		tracker := NewRequestTracker()
		track(t, tracker, "a", time.Minute)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := tracker.Wait(cancelled, "a")

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("CleanupExpired times out and forgets", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		tracker := NewRequestTracker(
			WithClock(func() time.Time { return now }),
			WithRetention(time.Minute),
		)
		track(t, tracker, "old", time.Second)
		track(t, tracker, "new", time.Hour)

		now = now.Add(2 * time.Second)
		assert.Equal(t, 1, tracker.CleanupExpired())
		p, ok := tracker.Get("old")
		require.True(t, ok)
		assert.Equal(t, RequestStatusTimeout, p.Status)
		assert.Len(t, tracker.Active(), 1)

		now = now.Add(2 * time.Minute)
		assert.Equal(t, 0, tracker.CleanupExpired())
		_, ok = tracker.Get("old")
		assert.False(t, ok)
		_, ok = tracker.Get("new")
		assert.True(t, ok)
	})
}
