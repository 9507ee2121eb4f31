package architect

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/council"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
)

type fakeHeart struct {
	started chan struct{}
}

func (f *fakeHeart) Run(ctx context.Context) error {
	close(f.started)
	<-ctx.Done()
	return nil
}

// fakeHarvester signals each refresh so tests can step the heartbeat
// deterministically.
type fakeHarvester struct {
	refreshed chan struct{}
}

func (f *fakeHarvester) Refresh(context.Context) {
	f.refreshed <- struct{}{}
}

type fakeCouncil struct {
	mu     sync.Mutex
	calls  int
	report memory.Execution
	err    error
	block  chan struct{}
}

func (f *fakeCouncil) Convene(ctx context.Context) (memory.Execution, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return f.report, f.err
}

func (f *fakeCouncil) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	arch      *Architect
	heart     *fakeHeart
	harvester *fakeHarvester
	council   *fakeCouncil
	events    chan Event
	ticks     chan struct{}

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		heart:     &fakeHeart{started: make(chan struct{})},
		harvester: &fakeHarvester{refreshed: make(chan struct{}, 8)},
		council:   &fakeCouncil{report: memory.Execution{Target: 3, Achieved: 2, TotalAttempted: 4}},
		events:    make(chan Event, 32),
		ticks:     make(chan struct{}),
		now:       time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	h.arch = New(Deps{
		Council:   h.council,
		Heart:     h.heart,
		Harvester: h.harvester,
		Events:    h.events,
	}, config.NewDefaults().Council)
	h.arch.now = h.clock
	h.arch.sleep = func(ctx context.Context, _ time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.ticks:
			return nil
		}
	}
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) setNow(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = t
}

// tick releases one heartbeat sleep and waits for the harvest refresh that
// follows it, so the beat's work is done when tick returns.
func (h *harness) tick(t *testing.T) {
	t.Helper()
	select {
	case h.ticks <- struct{}{}:
	case <-time.After(time.Second):
		t.Fatal("heartbeat never slept")
	}
	select {
	case <-h.harvester.refreshed:
	case <-time.After(time.Second):
		t.Fatal("heartbeat never refreshed the harvester")
	}
}

func kindsOf(ch chan Event) []EventKind {
	var out []EventKind
	for {
		select {
		case ev := <-ch:
			out = append(out, ev.Kind)
		default:
			return out
		}
	}
}

func TestRun_StopsCleanly(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.arch.Run(ctx) }()

	select {
	case <-h.heart.started:
	case <-time.After(time.Second):
		t.Fatal("watchdog never started")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("architect never stopped")
	}

	kinds := kindsOf(h.events)
	assert.Equal(t, []EventKind{EventStarted, EventStopped}, kinds)
}

func TestHeartbeat_RefreshesHarvestOffHours(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.arch.Run(ctx) }()

	h.tick(t)
	h.tick(t)

	assert.Zero(t, h.council.count())
}

func TestHeartbeat_ConvenesOncePerNight(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.arch.Run(ctx) }()

	// default council hour is 3
	h.setNow(time.Date(2025, 6, 10, 3, 5, 0, 0, time.UTC))
	h.tick(t)
	require.Eventually(t, func() bool { return h.council.count() == 1 }, time.Second, 5*time.Millisecond)

	// later the same night: the run already happened
	h.setNow(time.Date(2025, 6, 10, 3, 40, 0, 0, time.UTC))
	h.tick(t)
	h.tick(t)
	assert.Equal(t, 1, h.council.count())
	require.Eventually(t, func() bool {
		running, _ := h.arch.CouncilStatus()
		return !running
	}, time.Second, 5*time.Millisecond)

	// next night fires again
	h.setNow(time.Date(2025, 6, 11, 3, 2, 0, 0, time.UTC))
	h.tick(t)
	require.Eventually(t, func() bool { return h.council.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestTriggerCouncil_RunsInBackground(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	started, err := h.arch.TriggerCouncil()
	require.NoError(t, err)
	assert.Equal(t, h.clock(), started)

	require.Eventually(t, func() bool {
		running, _ := h.arch.CouncilStatus()
		return !running
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.council.count())

	kinds := kindsOf(h.events)
	assert.Equal(t, []EventKind{EventCouncilStarted, EventCouncilFinished}, kinds)
}

func TestTriggerCouncil_ConcurrentTriggerRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.council.block = make(chan struct{})

	started, err := h.arch.TriggerCouncil()
	require.NoError(t, err)

	running, since := h.arch.CouncilStatus()
	assert.True(t, running)
	assert.Equal(t, started, since)

	_, err = h.arch.TriggerCouncil()
	require.Error(t, err)
	assert.ErrorIs(t, err, council.ErrAlreadyRunning)

	close(h.council.block)
	require.Eventually(t, func() bool {
		running, _ := h.arch.CouncilStatus()
		return !running
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.council.count())
}

func TestTriggerCouncil_FailureEmitsEvent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.council.err = fmt.Errorf("gateway down")

	_, err := h.arch.TriggerCouncil()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		running, _ := h.arch.CouncilStatus()
		return !running
	}, time.Second, 5*time.Millisecond)

	kinds := kindsOf(h.events)
	assert.Equal(t, []EventKind{EventCouncilStarted, EventCouncilFailed}, kinds)
}
