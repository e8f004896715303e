package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
)

var (
	// ErrUnknownRequest is returned for a response frame that answers no tracked request
	ErrUnknownRequest = errors.New("unknown request")
	// ErrRequestTimeout is returned when no response arrived before the request's deadline
	ErrRequestTimeout = errors.New("request timed out")
)

// RequestStatus represents the status of a tracked request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"
	RequestStatusTimeout   RequestStatus = "timeout"
)

// PendingRequest is a sent request waiting for its CALLRESULT or CALLERROR
type PendingRequest struct {
	ID       contracts.RequestID
	Action   string
	SentAt   time.Time
	Timeout  time.Duration
	Status   RequestStatus
	Response *Frame
	Err      error
	done     chan struct{}
}

// Result reports the outcome of the request once it settled
func (p PendingRequest) Result() contracts.Result {
	switch {
	case p.Response != nil:
		return p.Response.Result()
	case p.Err != nil:
		return contracts.FromException(p.Err)
	default:
		return contracts.Result{Code: contracts.ResultCodeGenericError, Description: contracts.Some("request still pending")}
	}
}

// RequestTracker correlates outbound requests with their responses by request id
type RequestTracker struct {
	requests  map[contracts.RequestID]*PendingRequest
	mu        sync.RWMutex
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time
}

// TrackerOption configures the RequestTracker
type TrackerOption func(*RequestTracker)

// WithTrackerLogger sets the logger
func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *RequestTracker) {
		t.logger = logger
	}
}

// WithRetention sets how long settled requests stay queryable
func WithRetention(retention time.Duration) TrackerOption {
	return func(t *RequestTracker) {
		t.retention = retention
	}
}

// WithClock replaces the tracker's time source
func WithClock(now func() time.Time) TrackerOption {
	return func(t *RequestTracker) {
		t.now = now
	}
}

// NewRequestTracker creates an in-memory request tracker
func NewRequestTracker(opts ...TrackerOption) *RequestTracker {
	t := &RequestTracker{
		requests:  make(map[contracts.RequestID]*PendingRequest),
		logger:    slog.Default(),
		retention: 5 * time.Minute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track starts tracking req. Request ids must be unique among tracked requests.
func (t *RequestTracker) Track(req *Request) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}
	if req.ID.IsZero() {
		return fmt.Errorf("request id cannot be empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.requests[req.ID]; exists {
		return fmt.Errorf("request already tracked: %s", req.ID)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	t.requests[req.ID] = &PendingRequest{
		ID:      req.ID,
		Action:  req.Action,
		SentAt:  t.now(),
		Timeout: timeout,
		Status:  RequestStatusPending,
		done:    make(chan struct{}),
	}
	return nil
}

// Complete settles the request a response frame answers
func (t *RequestTracker) Complete(frame *Frame) error {
	if frame == nil {
		return fmt.Errorf("frame cannot be nil")
	}
	if frame.Type == MessageTypeCall {
		return fmt.Errorf("cannot complete a request with a CALL frame")
	}

	status := RequestStatusCompleted
	if frame.Type == MessageTypeCallError {
		status = RequestStatusFailed
	}
	return t.settle(frame.ID, status, frame, nil)
}

// Fail settles a request that could not be delivered or answered
func (t *RequestTracker) Fail(id contracts.RequestID, err error) error {
	return t.settle(id, RequestStatusFailed, nil, err)
}

func (t *RequestTracker) settle(id contracts.RequestID, status RequestStatus, frame *Frame, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, exists := t.requests[id]
	if !exists {
		t.logger.Warn("response for unknown request", "requestId", id.String())
		return fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	if p.Status != RequestStatusPending {
		return fmt.Errorf("request %s already settled as %s", id, p.Status)
	}

	p.Status = status
	p.Response = frame
	p.Err = err
	close(p.done)
	return nil
}

// Wait blocks until the request settles, its timeout elapses or ctx is done
func (t *RequestTracker) Wait(ctx context.Context, id contracts.RequestID) (PendingRequest, error) {
	t.mu.RLock()
	p, exists := t.requests[id]
	t.mu.RUnlock()
	if !exists {
		return PendingRequest{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}

	remaining := p.SentAt.Add(p.Timeout).Sub(t.now())
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-ctx.Done():
		return PendingRequest{}, ctx.Err()
	case <-timer.C:
		if err := t.settle(id, RequestStatusTimeout, nil, ErrRequestTimeout); err == nil {
			t.logger.Warn("request timed out", "requestId", id.String(), "action", p.Action)
		}
		<-p.done
	}

	// fields are final once done is closed
	snapshot := *p
	if snapshot.Status == RequestStatusTimeout {
		return snapshot, ErrRequestTimeout
	}
	return snapshot, nil
}

// Get returns a snapshot of a tracked request
func (t *RequestTracker) Get(id contracts.RequestID) (PendingRequest, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, exists := t.requests[id]
	if !exists {
		return PendingRequest{}, false
	}
	return *p, true
}

// Active returns snapshots of all pending requests, oldest first
func (t *RequestTracker) Active() []PendingRequest {
	t.mu.RLock()
	defer t.mu.RUnlock()

	active := make([]PendingRequest, 0, len(t.requests))
	for _, p := range t.requests {
		if p.Status == RequestStatusPending {
			active = append(active, *p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].SentAt.Before(active[j].SentAt)
	})
	return active
}

// CleanupExpired times out overdue requests and forgets settled ones past retention.
// It returns the number of requests that timed out.
func (t *RequestTracker) CleanupExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	expired := 0

	for id, p := range t.requests {
		if p.Status == RequestStatusPending && now.Sub(p.SentAt) > p.Timeout {
			p.Status = RequestStatusTimeout
			p.Err = ErrRequestTimeout
			close(p.done)
			expired++
		}

		if p.Status != RequestStatusPending && now.Sub(p.SentAt) > t.retention {
			delete(t.requests, id)
		}
	}

	if expired > 0 {
		t.logger.Info("expired pending requests", "count", expired)
	}
	return expired
}
