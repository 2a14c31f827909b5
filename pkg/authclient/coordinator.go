package authclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gatewarden/gatewarden/pkg/idx"
)

// retryMarkerTTL bounds how long a request identity is remembered as
// already-retried. Expiry only needs an upper bound, not precision.
const retryMarkerTTL = 60 * time.Second

// RequestDescriptor is a guarded outbound request. The embedded Request is
// dispatched as-is; the descriptor fields drive the refresh-retry policy.
type RequestDescriptor struct {
	Request

	// ID identifies this logical request for retry bookkeeping. Assigned a
	// fresh ULID when empty, which makes every bare call retryable once.
	ID string

	// SkipRefresh returns 401 responses as-is instead of entering the
	// refresh path. Set on the auth endpoints themselves, where a 401 is
	// an answer rather than an expired-credential signal.
	SkipRefresh bool
}

// RefreshFunc exchanges the current refresh token for a new pair.
type RefreshFunc func(ctx context.Context) (TokenPair, error)

// AttachFunc attaches the current access credential to a request, per the
// configured transport convention (header or cookie).
type AttachFunc func(ctx context.Context, req *Request) error

// Coordinator wraps outbound requests with deduplicated credential refresh.
//
// Many simultaneous 401s trigger at most one refresh call: the first caller
// creates a Refresh Ticket and invokes the refresh, everyone else enqueues
// as a waiter on the same ticket and shares its outcome. Without this, N
// concurrent requests would race to rotate the refresh token and the first
// rotation would invalidate the token the other N-1 are holding.
//
// Each request is retried at most once after a refresh, enforced by retry
// markers keyed on the request identity.
type Coordinator struct {
	transport Transport
	attach    AttachFunc
	refreshFn RefreshFunc

	mu        sync.Mutex
	ticket    *refreshTicket
	markers   map[string]time.Time
	lastSweep time.Time
}

// refreshTicket is one in-flight refresh shared by all callers that arrive
// while it is outstanding. Result fields are written before done is closed
// and never after, so waiters may read them without the coordinator lock.
type refreshTicket struct {
	done    chan struct{}
	pair    TokenPair
	err     error
	settled bool
}

// NewCoordinator wires a coordinator. All three collaborators are required.
func NewCoordinator(transport Transport, attach AttachFunc, refreshFn RefreshFunc) *Coordinator {
	return &Coordinator{
		transport: transport,
		attach:    attach,
		refreshFn: refreshFn,
		markers:   make(map[string]time.Time),
		lastSweep: time.Now(),
	}
}

// Execute attaches credentials, dispatches the request and, on a 401,
// refreshes once and retries once.
//
// Transport failures (including timeouts) are returned as errors and never
// enter the refresh path. A 401 whose refresh fails returns the original
// 401 response with a nil error; the refresh failure surfaces through the
// implicit logout the refresh function performs.
func (c *Coordinator) Execute(ctx context.Context, desc *RequestDescriptor) (*Response, error) {
	if desc.ID == "" {
		desc.ID = idx.New().String()
	}

	if err := c.attach(ctx, &desc.Request); err != nil {
		return nil, err
	}
	resp, err := c.transport.Send(ctx, &desc.Request)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || desc.SkipRefresh || c.alreadyRetried(desc.ID) {
		return resp, nil
	}

	c.markRetried(desc.ID)

	if _, err := c.Refresh(ctx); err != nil {
		// The refresh error is not surfaced as a transport error; the
		// caller gets the 401 it would have gotten anyway.
		return resp, nil
	}

	if err := c.attach(ctx, &desc.Request); err != nil {
		return nil, err
	}
	retry, err := c.transport.Send(ctx, &desc.Request)
	if err != nil {
		return nil, err
	}
	return retry, nil
}

// Refresh obtains a fresh credential pair via the single-flight ticket.
// Concurrent callers share one underlying refresh call and receive the
// same pair or the same error.
func (c *Coordinator) Refresh(ctx context.Context) (TokenPair, error) {
	c.mu.Lock()
	if t := c.ticket; t != nil {
		c.mu.Unlock()
		return c.await(ctx, t)
	}

	t := &refreshTicket{done: make(chan struct{})}
	c.ticket = t
	c.mu.Unlock()

	pair, err := c.refreshFn(ctx)
	c.settle(t, pair, err)

	// Read the ticket's outcome rather than the local result: a Cancel
	// that won the race settled the ticket first, and the leader must
	// observe the same cancellation its waiters did.
	return c.await(ctx, t)
}

// Cancel rejects all current refresh waiters with a cancellation error and
// clears the ticket. Used on logout so a stale refresh cannot complete
// after session teardown. Idempotent; a no-op when nothing is outstanding.
// Only the current ticket is failed: the next Refresh starts clean.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	t := c.ticket
	c.mu.Unlock()

	if t == nil {
		return
	}
	c.settle(t, TokenPair{}, ErrCancelled)
}

func (c *Coordinator) settle(t *refreshTicket, pair TokenPair, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.settled {
		return
	}
	t.settled = true
	t.pair = pair
	t.err = err
	close(t.done)

	if c.ticket == t {
		c.ticket = nil
	}
}

func (c *Coordinator) await(ctx context.Context, t *refreshTicket) (TokenPair, error) {
	select {
	case <-t.done:
		return t.pair, t.err
	case <-ctx.Done():
		return TokenPair{}, classifyTransportError(ctx.Err())
	}
}

func (c *Coordinator) alreadyRetried(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.markers[id]
	return ok && time.Now().Before(expiry)
}

func (c *Coordinator) markRetried(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastSweep) > retryMarkerTTL {
		for key, expiry := range c.markers {
			if now.After(expiry) {
				delete(c.markers, key)
			}
		}
		c.lastSweep = now
	}

	c.markers[id] = now.Add(retryMarkerTTL)
}
