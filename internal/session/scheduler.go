// Package session schedules diff computations in the background.
//
// Every session (typically one open file) carries a generation counter. Submitting a request bumps the generation,
// cancels the session's computation in flight and drops its queued request, so at most one request per session waits
// in the queue. A result is delivered only if its generation is still current when it completes; anything older is
// discarded unpublished. A session has at most one computation running: a superseded computation is canceled, and its
// replacement waits until it has returned. Deliveries for one session are serialized, so they arrive in issuance order.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrQueueFull is returned by Submit when the bounded queue has no room.
	ErrQueueFull = errors.New("diff queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("scheduler is closed")
)

// ComputeFunc computes a model. It must honor ctx.
type ComputeFunc func(ctx context.Context, old, new diffmodel.Input, cfg config.Diff) (*diffmodel.Model, error)

// Request asks for the diff of one file pair.
type Request struct {
	Session string
	Old     diffmodel.Input
	New     diffmodel.Input
	Config  config.Diff
	Timeout time.Duration // overrides Options.Timeout when positive
}

// Ticket identifies an accepted request.
type Ticket struct {
	ID         uuid.UUID
	Session    string
	Generation uint64
}

// Result is a delivered computation.
type Result struct {
	Ticket  Ticket
	Model   *diffmodel.Model
	Err     error
	Elapsed time.Duration
}

// Options configure a Scheduler.
type Options struct {
	MaxConcurrent int
	QueueSize     int
	Timeout       time.Duration // per-computation deadline; 0 disables it
	Deliver       func(Result)  // called from worker goroutines
	Logger        *slog.Logger
	Compute       ComputeFunc // defaults to diffmodel.Compute
}

// OptionsFromConfig maps the [scheduler] settings onto Options.
func OptionsFromConfig(c config.Scheduler, deliver func(Result), logger *slog.Logger) Options {
	return Options{
		MaxConcurrent: c.MaxConcurrent,
		QueueSize:     c.QueueSize,
		Timeout:       c.Timeout(),
		Deliver:       deliver,
		Logger:        logger,
	}
}

type job struct {
	ticket Ticket
	req    Request
	queued time.Time
}

type state struct {
	gen      uint64
	inflight uint64
	running  bool
	cancel   context.CancelFunc // of the computation in flight, nil when idle or superseded
	deliver  sync.Mutex
}

// Scheduler runs computations on a bounded worker pool in FIFO order.
type Scheduler struct {
	opts Options
	log  *slog.Logger
	sem  *semaphore.Weighted

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*job
	sessions map[string]*state
	closed   bool

	wg sync.WaitGroup
}

// New starts a scheduler. Non-positive limits fall back to the config defaults.
func New(opts Options) *Scheduler {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = config.DefaultConcurrency
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = config.DefaultQueueSize
	}
	if opts.Compute == nil {
		opts.Compute = diffmodel.Compute
	}
	if opts.Deliver == nil {
		opts.Deliver = func(Result) {}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Scheduler{
		opts:     opts,
		log:      log.With("component", "scheduler"),
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		sessions: make(map[string]*state),
	}
	s.cond = sync.NewCond(&s.mu)
	s.wg.Add(1)
	go s.dispatch()
	return s
}

// Submit enqueues req, superseding any older request of the same session.
func (s *Scheduler) Submit(req Request) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Ticket{}, ErrClosed
	}
	idx := s.queuedIndex(req.Session)
	if idx < 0 && len(s.queue) >= s.opts.QueueSize {
		return Ticket{}, ErrQueueFull
	}
	if idx >= 0 {
		s.log.Debug("coalesced queued request", "session", req.Session, "generation", s.queue[idx].ticket.Generation)
		s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	}

	st := s.state(req.Session)
	st.gen++
	if st.cancel != nil {
		s.log.Debug("superseded computation", "session", req.Session, "generation", st.inflight)
		st.cancel()
		st.cancel = nil
	}
	t := Ticket{ID: uuid.New(), Session: req.Session, Generation: st.gen}
	s.queue = append(s.queue, &job{ticket: t, req: req, queued: time.Now()})
	s.cond.Broadcast()
	return t, nil
}

// Cancel supersedes every request of session without issuing a new one.
func (s *Scheduler) Cancel(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.queuedIndex(session); idx >= 0 {
		s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	}
	st, ok := s.sessions[session]
	if !ok {
		return
	}
	st.gen++
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
}

// Generation returns the current generation of session.
func (s *Scheduler) Generation(session string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[session]; ok {
		return st.gen
	}
	return 0
}

// Pending returns the number of queued requests.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close cancels all work and waits for the workers to exit. Nothing is delivered after Close returns.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	for _, st := range s.sessions {
		st.gen++
		if st.cancel != nil {
			st.cancel()
			st.cancel = nil
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) state(session string) *state {
	st, ok := s.sessions[session]
	if !ok {
		st = &state{}
		s.sessions[session] = st
	}
	return st
}

func (s *Scheduler) queuedIndex(session string) int {
	for i, j := range s.queue {
		if j.ticket.Session == session {
			return i
		}
	}
	return -1
}

// dispatch starts queued jobs in FIFO order whenever a worker slot is free. A job whose session is still running is
// skipped until that computation returns.
func (s *Scheduler) dispatch() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		var idx int
		for {
			if s.closed {
				s.mu.Unlock()
				return
			}
			if idx = s.runnableIndex(); idx >= 0 && s.sem.TryAcquire(1) {
				break
			}
			s.cond.Wait()
		}
		j := s.queue[idx]
		s.queue = append(s.queue[:idx], s.queue[idx+1:]...)

		ctx, cancel := context.WithCancel(context.Background())
		if d := s.timeout(j.req); d > 0 {
			var cancelTimeout context.CancelFunc
			ctx, cancelTimeout = context.WithTimeout(ctx, d)
			parent := cancel
			cancel = func() {
				cancelTimeout()
				parent()
			}
		}
		st := s.state(j.ticket.Session)
		st.cancel = cancel
		st.inflight = j.ticket.Generation
		st.running = true
		s.wg.Add(1)
		s.mu.Unlock()

		go s.run(ctx, cancel, j, st)
	}
}

// runnableIndex returns the first queued job whose session has nothing running, or -1.
func (s *Scheduler) runnableIndex() int {
	for i, j := range s.queue {
		if st, ok := s.sessions[j.ticket.Session]; !ok || !st.running {
			return i
		}
	}
	return -1
}

func (s *Scheduler) timeout(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return s.opts.Timeout
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, j *job, st *state) {
	defer s.wg.Done()
	start := time.Now()
	m, err := s.opts.Compute(ctx, j.req.Old, j.req.New, j.req.Config)
	res := Result{Ticket: j.ticket, Model: m, Err: err, Elapsed: time.Since(start)}
	s.sem.Release(1)
	cancel()

	s.mu.Lock()
	st.running = false
	st.cancel = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	st.deliver.Lock()
	defer st.deliver.Unlock()
	if !s.current(st, j.ticket.Generation) {
		s.log.Debug("discarded stale result", "session", j.ticket.Session, "generation", j.ticket.Generation, "id", j.ticket.ID)
		return
	}
	if err != nil {
		s.log.Warn("diff failed", "session", j.ticket.Session, "id", j.ticket.ID, "err", err)
	} else {
		s.log.Debug("diff done", "session", j.ticket.Session, "id", j.ticket.ID,
			"elapsed", res.Elapsed, "waited", start.Sub(j.queued), "approximate", m.Approximate)
	}
	s.opts.Deliver(res)
}

func (s *Scheduler) current(st *state, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && st.gen == gen
}
