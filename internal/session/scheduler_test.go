package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gated is a ComputeFunc that blocks until released or canceled.
type gated struct {
	started chan string
	release chan struct{}
}

func newGated() *gated {
	return &gated{started: make(chan string, 16), release: make(chan struct{})}
}

func (g *gated) compute(ctx context.Context, old, _ diffmodel.Input, _ config.Diff) (*diffmodel.Model, error) {
	g.started <- old.Path
	select {
	case <-g.release:
		return &diffmodel.Model{Old: diffmodel.Side{Path: old.Path}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type collector struct {
	mu  sync.Mutex
	got []Result
	ch  chan Result
}

func newCollector() *collector {
	return &collector{ch: make(chan Result, 16)}
}

func (c *collector) deliver(r Result) {
	c.mu.Lock()
	c.got = append(c.got, r)
	c.mu.Unlock()
	c.ch <- r
}

func (c *collector) next(t *testing.T) Result {
	t.Helper()
	select {
	case r := <-c.ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a result")
		return Result{}
	}
}

func (c *collector) none(t *testing.T) {
	t.Helper()
	select {
	case r := <-c.ch:
		t.Fatalf("unexpected delivery: %+v", r.Ticket)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitStarted(t *testing.T, g *gated) string {
	t.Helper()
	select {
	case p := <-g.started:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a computation to start")
		return ""
	}
}

func req(session, path string) Request {
	return Request{Session: session, Old: diffmodel.Input{Path: path}, New: diffmodel.Input{Path: path}, Config: config.DefaultDiff()}
}

func TestScheduler_DeliversRealModel(t *testing.T) {
	c := newCollector()
	s := New(Options{Deliver: c.deliver})
	defer s.Close()

	r := Request{
		Session: "main.go",
		Old:     diffmodel.Input{Path: "main.go", Content: []byte("a\nb\n")},
		New:     diffmodel.Input{Path: "main.go", Content: []byte("a\nc\n")},
		Config:  config.DefaultDiff(),
	}
	tk, err := s.Submit(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tk.Generation)

	res := c.next(t)
	require.NoError(t, res.Err)
	assert.Equal(t, tk, res.Ticket)
	assert.Equal(t, 1, res.Model.Stats.Hunks)
}

func TestScheduler_SupersedesInFlight(t *testing.T) {
	g := newGated()
	c := newCollector()
	s := New(Options{Deliver: c.deliver, Compute: g.compute})
	defer s.Close()

	_, err := s.Submit(req("f", "v1"))
	require.NoError(t, err)
	waitStarted(t, g)

	t2, err := s.Submit(req("f", "v2"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), t2.Generation)
	waitStarted(t, g)
	close(g.release)

	res := c.next(t)
	assert.Equal(t, t2, res.Ticket)
	assert.Equal(t, "v2", res.Model.Old.Path)
	c.none(t)
}

func TestScheduler_CoalescesQueued(t *testing.T) {
	g := newGated()
	c := newCollector()
	s := New(Options{MaxConcurrent: 1, Deliver: c.deliver, Compute: g.compute})
	defer s.Close()

	_, err := s.Submit(req("a", "a1"))
	require.NoError(t, err)
	waitStarted(t, g)

	_, err = s.Submit(req("b", "b1"))
	require.NoError(t, err)
	tb, err := s.Submit(req("b", "b2"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())

	close(g.release)
	first := c.next(t)
	assert.Equal(t, "a1", first.Model.Old.Path)
	second := c.next(t)
	assert.Equal(t, tb, second.Ticket)
	assert.Equal(t, "b2", second.Model.Old.Path)
	c.none(t)
}

func TestScheduler_QueueFull(t *testing.T) {
	g := newGated()
	s := New(Options{MaxConcurrent: 1, QueueSize: 1, Compute: g.compute})
	defer s.Close()

	_, err := s.Submit(req("a", "a"))
	require.NoError(t, err)
	waitStarted(t, g)

	_, err = s.Submit(req("b", "b"))
	require.NoError(t, err)
	_, err = s.Submit(req("c", "c"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, uint64(0), s.Generation("c"))

	// Replacing the queued request of the same session needs no extra room.
	_, err = s.Submit(req("b", "b2"))
	assert.NoError(t, err)
}

func TestScheduler_Cancel(t *testing.T) {
	g := newGated()
	c := newCollector()
	s := New(Options{Deliver: c.deliver, Compute: g.compute})
	defer s.Close()

	_, err := s.Submit(req("f", "v1"))
	require.NoError(t, err)
	waitStarted(t, g)
	s.Cancel("f")
	c.none(t)
	assert.Equal(t, uint64(2), s.Generation("f"))
}

func TestScheduler_TimeoutIsDelivered(t *testing.T) {
	g := newGated()
	c := newCollector()
	s := New(Options{Deliver: c.deliver, Compute: g.compute, Timeout: 10 * time.Millisecond})
	defer s.Close()

	_, err := s.Submit(req("f", "v1"))
	require.NoError(t, err)
	res := c.next(t)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestScheduler_Close(t *testing.T) {
	g := newGated()
	c := newCollector()
	s := New(Options{Deliver: c.deliver, Compute: g.compute})

	_, err := s.Submit(req("f", "v1"))
	require.NoError(t, err)
	waitStarted(t, g)
	s.Close()

	_, err = s.Submit(req("f", "v2"))
	assert.ErrorIs(t, err, ErrClosed)
	c.none(t)
	s.Close()
}

func TestScheduler_SessionsRunInParallel(t *testing.T) {
	g := newGated()
	c := newCollector()
	s := New(Options{MaxConcurrent: 2, Deliver: c.deliver, Compute: g.compute})
	defer s.Close()

	_, err := s.Submit(req("a", "a"))
	require.NoError(t, err)
	_, err = s.Submit(req("b", "b"))
	require.NoError(t, err)

	started := map[string]bool{waitStarted(t, g): true, waitStarted(t, g): true}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, started)
	close(g.release)
	c.next(t)
	c.next(t)
}

// slowCancel ignores ctx for a while before noticing it, like a pipeline stage that never checks.
type slowCancel struct {
	mu      sync.Mutex
	running map[string]int
	peak    map[string]int
}

func (sc *slowCancel) compute(ctx context.Context, old, _ diffmodel.Input, _ config.Diff) (*diffmodel.Model, error) {
	sc.mu.Lock()
	sc.running[old.Path]++
	sc.peak[old.Path] = max(sc.peak[old.Path], sc.running[old.Path])
	sc.mu.Unlock()
	defer func() {
		sc.mu.Lock()
		sc.running[old.Path]--
		sc.mu.Unlock()
	}()
	time.Sleep(50 * time.Millisecond)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &diffmodel.Model{Old: diffmodel.Side{Path: old.Path}}, nil
}

func TestScheduler_OneComputationPerSession(t *testing.T) {
	sc := &slowCancel{running: map[string]int{}, peak: map[string]int{}}
	c := newCollector()
	s := New(Options{MaxConcurrent: 4, Deliver: c.deliver, Compute: sc.compute})
	defer s.Close()

	var last Ticket
	for range 3 {
		tk, err := s.Submit(req("f", "f"))
		require.NoError(t, err)
		last = tk
		time.Sleep(5 * time.Millisecond)
	}
	res := c.next(t)
	assert.Equal(t, last, res.Ticket)
	c.none(t)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	assert.Equal(t, 1, sc.peak["f"], "computations of one session overlapped")
}

func TestScheduler_BusySessionDoesNotBlockOthers(t *testing.T) {
	started := make(chan string, 4)
	release := make(chan struct{})
	// Ignores ctx, so a superseded computation keeps its session busy until released.
	compute := func(_ context.Context, old, _ diffmodel.Input, _ config.Diff) (*diffmodel.Model, error) {
		started <- old.Path
		<-release
		return &diffmodel.Model{Old: diffmodel.Side{Path: old.Path}}, nil
	}
	c := newCollector()
	s := New(Options{MaxConcurrent: 2, Deliver: c.deliver, Compute: compute})
	defer s.Close()
	next := func() string {
		t.Helper()
		select {
		case p := <-started:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a computation to start")
			return ""
		}
	}

	_, err := s.Submit(req("a", "a1"))
	require.NoError(t, err)
	require.Equal(t, "a1", next())

	// a2 waits for a1 to return; b, queued behind it, takes the free slot.
	ta, err := s.Submit(req("a", "a2"))
	require.NoError(t, err)
	_, err = s.Submit(req("b", "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", next())

	close(release)
	assert.Equal(t, "a2", next())
	got := map[string]Ticket{}
	for range 2 {
		r := c.next(t)
		got[r.Model.Old.Path] = r.Ticket
	}
	assert.Equal(t, ta, got["a2"])
	assert.NotContains(t, got, "a1")
}
