// README: Allocation orchestrator; progressive-radius search with bounded notify-and-race rounds.
package allocation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"hailer/internal/config"
	"hailer/internal/modules/ranking"
	"hailer/internal/modules/registry"
	"hailer/internal/types"
)

// completedRetention bounds how long terminal results stay queryable.
// Old entries are swept as new allocations finish, so memory stays
// proportional to recent traffic rather than lifetime traffic.
const completedRetention = time.Hour

type doneResult struct {
	res Result
	at  time.Time
}

type Service struct {
	pool       DriverPool
	ranker     *ranking.Ranker
	notifier   Notifier
	acceptance AcceptanceSource
	events     EventPublisher // optional
	cfg        config.AllocationConfig
	retention  time.Duration

	mu        sync.Mutex
	inflight  map[types.ID]*Handle
	completed map[types.ID]doneResult
}

func NewService(pool DriverPool, ranker *ranking.Ranker, notifier Notifier, acceptance AcceptanceSource, events EventPublisher, cfg config.AllocationConfig) *Service {
	return &Service{
		pool:       pool,
		ranker:     ranker,
		notifier:   notifier,
		acceptance: acceptance,
		events:     events,
		cfg:        cfg,
		retention:  completedRetention,
		inflight:   make(map[types.ID]*Handle),
		completed:  make(map[types.ID]doneResult),
	}
}

// Handle tracks one in-flight allocation. Done is closed on terminal
// resolution; Result is valid from that point on.
type Handle struct {
	RequestID types.ID

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result Result
}

func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Result() Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Cancel aborts the allocation. Safe to call at any point, including
// after resolution (no-op then).
func (h *Handle) Cancel() { h.cancel() }

func (h *Handle) complete(res Result) {
	h.mu.Lock()
	h.result = res
	h.mu.Unlock()
	close(h.done)
}

// Submit starts an allocation and returns immediately. The search keeps
// running after the submitting request's context ends; use Cancel (or
// the returned handle) to abort it.
func (s *Service) Submit(req Request) (*Handle, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = types.ID(uuid.NewString())
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		RequestID: req.ID,
		cancel:    cancel,
		done:      make(chan struct{}),
		result:    Result{RequestID: req.ID, Status: StatusSearching},
	}

	s.mu.Lock()
	s.inflight[req.ID] = h
	s.mu.Unlock()

	go func() {
		defer cancel()
		res := s.Allocate(ctx, req)
		h.complete(res)
		s.finish(res)
	}()

	return h, nil
}

// Cancel aborts an in-flight allocation by request ID.
func (s *Service) Cancel(requestID types.ID) error {
	s.mu.Lock()
	h, ok := s.inflight[requestID]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	h.Cancel()
	return nil
}

// Get returns the current result for a request: a searching snapshot
// while in flight, the terminal result afterwards.
func (s *Service) Get(requestID types.ID) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.inflight[requestID]; ok {
		return h.Result(), nil
	}
	if d, ok := s.completed[requestID]; ok {
		return d.res, nil
	}
	return Result{}, ErrNotFound
}

// Allocate runs the full state machine synchronously: progressive radius
// search, ranked fan-out, bounded race on acceptance, and terminal
// resolution. Drivers already notified for this request are excluded
// from every later round; the notified set only grows.
func (s *Service) Allocate(ctx context.Context, req Request) Result {
	started := time.Now()
	notified := make(map[types.ID]struct{})
	attempts := 0

	for radius := s.cfg.InitialRadiusKm; radius <= s.cfg.MaxRadiusKm; radius += s.cfg.RadiusIncrementKm {
		if ctx.Err() != nil {
			return s.terminal(req, StatusCancelled, "", radius, attempts, started)
		}
		attempts++

		candidates := s.pool.Query(req.Pickup, radius, req.Vehicle, notified)
		if len(candidates) == 0 {
			continue
		}

		ranked := s.ranker.Rank(candidates)
		if len(ranked) > s.cfg.MaxDriversToNotify {
			ranked = ranked[:s.cfg.MaxDriversToNotify]
		}

		winner, aborted := s.notifyAndRace(ctx, req, ranked, notified)
		if aborted {
			return s.terminal(req, StatusCancelled, "", radius, attempts, started)
		}
		if winner != "" {
			return s.terminal(req, StatusResolved, winner, radius, attempts, started)
		}
	}

	return s.terminal(req, StatusExhausted, "", s.cfg.MaxRadiusKm, attempts, started)
}

// notifyAndRace fans offers out to the ranked candidates and waits for
// the first acceptance that also wins the registry's SetBusy tie-break.
// It returns ("", true) when the caller cancelled, ("", false) when the
// response window closed without a winner. A rejection counts the same
// as silence: the window always runs its course.
func (s *Service) notifyAndRace(ctx context.Context, req Request, ranked []registry.Candidate, notified map[types.ID]struct{}) (types.ID, bool) {
	roundCtx, cancel := context.WithTimeout(ctx, s.cfg.ResponseTimeout)
	defer cancel()

	accepts := make(chan types.ID, len(ranked))
	expiresAt := time.Now().Add(s.cfg.ResponseTimeout)

	for _, c := range ranked {
		notified[c.DriverID] = struct{}{}
		offer := Offer{
			RequestID:          req.ID,
			Pickup:             req.Pickup,
			Drop:               req.Drop,
			EstimatedFare:      req.EstimatedFare,
			DistanceToPickupKm: c.DistanceKm,
			ExpiresAt:          expiresAt,
		}
		go func(driverID types.ID) {
			// One candidate's delivery failure is that candidate's problem
			// only; the race keeps going with the rest.
			if err := s.notifier.SendOffer(roundCtx, driverID, offer); err != nil {
				log.Printf("allocation %s: offer to %s: %v", req.ID, driverID, err)
				return
			}
			resp, err := s.acceptance.AwaitResponse(roundCtx, driverID, req.ID)
			if err != nil || resp != ResponseAccepted {
				return
			}
			accepts <- driverID
		}(c.DriverID)
	}

	for {
		select {
		case driverID := <-accepts:
			if s.pool.SetBusy(driverID, req.ID) {
				return driverID, false
			}
			// Raced by another request between ranking and acceptance;
			// treated like a rejection, keep waiting on the rest.
		case <-roundCtx.Done():
			return "", ctx.Err() != nil
		}
	}
}

func (s *Service) terminal(req Request, status Status, driverID types.ID, radiusKm float64, attempts int, started time.Time) Result {
	res := Result{
		RequestID: req.ID,
		Status:    status,
		DriverID:  driverID,
		RadiusKm:  radiusKm,
		Attempts:  attempts,
		Elapsed:   time.Since(started),
	}
	log.Printf("allocation %s: %s driver=%s radius=%.1fkm attempts=%d in %s",
		res.RequestID, res.Status, res.DriverID, res.RadiusKm, res.Attempts, res.Elapsed.Round(time.Millisecond))
	return res
}

func (s *Service) finish(res Result) {
	now := time.Now()
	s.mu.Lock()
	delete(s.inflight, res.RequestID)
	for id, d := range s.completed {
		if now.Sub(d.at) > s.retention {
			delete(s.completed, id)
		}
	}
	s.completed[res.RequestID] = doneResult{res: res, at: now}
	s.mu.Unlock()

	if s.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.PublishDecision(ctx, res); err != nil {
			log.Printf("allocation %s: publish decision: %v", res.RequestID, err)
		}
	}
}
