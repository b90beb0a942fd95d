// README: Response router; pairs allocation waiters with answers from driver sockets.
package ws

import (
	"context"
	"sync"

	"hailer/internal/modules/allocation"
	"hailer/internal/types"
)

type waiterKey struct {
	driverID  types.ID
	requestID types.ID
}

// ResponseRouter matches offer answers arriving on driver sockets to the
// allocation goroutine waiting for them. Keys are (driver, request)
// pairs; the orchestrator never offers the same request to a driver
// twice, so a key has at most one waiter.
type ResponseRouter struct {
	mu      sync.Mutex
	waiters map[waiterKey]chan allocation.Response
}

func NewResponseRouter() *ResponseRouter {
	return &ResponseRouter{waiters: make(map[waiterKey]chan allocation.Response)}
}

// AwaitResponse blocks until the driver answers this offer or ctx ends.
// A context expiry is reported as a timed-out response with the context
// error.
func (r *ResponseRouter) AwaitResponse(ctx context.Context, driverID, requestID types.ID) (allocation.Response, error) {
	key := waiterKey{driverID: driverID, requestID: requestID}
	ch := make(chan allocation.Response, 1)

	r.mu.Lock()
	r.waiters[key] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.waiters, key)
		r.mu.Unlock()
	}()

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return allocation.ResponseTimedOut, ctx.Err()
	}
}

// Deliver routes one answer to its waiter. False means nobody was
// waiting: the offer window already closed or the driver answered twice.
func (r *ResponseRouter) Deliver(driverID, requestID types.ID, accepted bool) bool {
	key := waiterKey{driverID: driverID, requestID: requestID}

	r.mu.Lock()
	ch, ok := r.waiters[key]
	if ok {
		delete(r.waiters, key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	resp := allocation.ResponseRejected
	if accepted {
		resp = allocation.ResponseAccepted
	}
	ch <- resp
	return true
}
