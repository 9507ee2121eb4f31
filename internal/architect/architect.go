// Package architect is the long-running daemon. It keeps the watchdog
// beating, refreshes the harvest schedule, and convenes the council once a
// day at its configured hour. Manual triggers share the nightly run slot: a
// second trigger while one run is in flight is rejected.
package architect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/council"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
)

const (
	heartbeatTick = time.Minute
	dateLayout    = "2006-01-02"
)

// EventKind labels a daemon milestone.
type EventKind string

const (
	EventStarted         EventKind = "STARTED"
	EventStopped         EventKind = "STOPPED"
	EventCouncilStarted  EventKind = "COUNCIL_STARTED"
	EventCouncilFinished EventKind = "COUNCIL_FINISHED"
	EventCouncilFailed   EventKind = "COUNCIL_FAILED"
)

// Event is one observable daemon milestone, published to watchers.
type Event struct {
	Kind    EventKind
	Message string
	At      time.Time
}

// Council runs the nightly pipeline.
type Council interface {
	Convene(ctx context.Context) (memory.Execution, error)
}

// Heart is the watchdog loop.
type Heart interface {
	Run(ctx context.Context) error
}

// Harvester refreshes the suggestion cache.
type Harvester interface {
	Refresh(ctx context.Context)
}

// Logger is the minimal logging surface the architect needs.
type Logger interface {
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Deps are the collaborators an Architect needs. Events may be nil to
// disable emission; watchers that fall behind lose events rather than
// blocking the daemon.
type Deps struct {
	Council   Council
	Heart     Heart
	Harvester Harvester
	Events    chan<- Event
	Logger    Logger
}

// Architect owns the daemon's goroutines and the council run slot.
type Architect struct {
	council   Council
	heart     Heart
	harvester Harvester
	events    chan<- Event
	cfg       config.CouncilConfig
	logger    Logger

	mu        sync.Mutex
	runCtx    context.Context
	running   bool
	startedAt time.Time

	// lastNight is touched only by the heartbeat goroutine.
	lastNight string

	wg    sync.WaitGroup
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Architect.
func New(deps Deps, cfg config.CouncilConfig) *Architect {
	return &Architect{
		council:   deps.Council,
		heart:     deps.Heart,
		harvester: deps.Harvester,
		events:    deps.Events,
		cfg:       cfg,
		logger:    deps.Logger,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Run drives the daemon until ctx is cancelled. The watchdog and the
// heartbeat run concurrently; any in-flight council run is drained before
// Run returns.
func (a *Architect) Run(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	a.info("architect started", "council_hour", a.cfg.Hour)
	a.emit(EventStarted, "architect online")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.heart.Run(gctx) })
	g.Go(func() error { return a.heartbeat(gctx) })
	err := g.Wait()

	a.wg.Wait()
	a.emit(EventStopped, "architect stopped")
	a.info("architect stopped")
	return err
}

// heartbeat ticks once a minute: refresh the harvest schedule, then check
// whether tonight's council is due.
func (a *Architect) heartbeat(ctx context.Context) error {
	for {
		if err := a.sleep(ctx, heartbeatTick); err != nil {
			return nil
		}
		a.harvester.Refresh(ctx)
		a.maybeConvene()
	}
}

// maybeConvene fires the nightly run once per calendar day, during the
// configured hour.
func (a *Architect) maybeConvene() {
	now := a.now()
	night := now.Format(dateLayout)
	if now.Hour() != a.cfg.Hour || a.lastNight == night {
		return
	}
	a.lastNight = night
	if _, err := a.TriggerCouncil(); err != nil {
		a.warn("nightly council skipped", "error", err)
	}
}

// TriggerCouncil reserves the run slot and starts a council run in the
// background, returning when the slot is taken. The run uses the daemon's
// context rather than the caller's, so an HTTP trigger survives its
// request. The returned time is when the run started.
func (a *Architect) TriggerCouncil() (time.Time, error) {
	a.mu.Lock()
	if a.running {
		since := a.startedAt
		a.mu.Unlock()
		return since, fmt.Errorf("architect: %w since %s", council.ErrAlreadyRunning, since.Format(time.RFC3339))
	}
	ctx := a.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	a.running = true
	a.startedAt = a.now()
	started := a.startedAt
	a.mu.Unlock()

	a.info("council run starting")
	a.emit(EventCouncilStarted, "council convening")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.clearRunning()
		report, err := a.council.Convene(ctx)
		if err != nil {
			a.warn("council run failed", "error", err)
			a.emit(EventCouncilFailed, err.Error())
			return
		}
		a.emit(EventCouncilFinished, fmt.Sprintf(
			"achieved %d of %d in %d attempts", report.Achieved, report.Target, report.TotalAttempted))
	}()
	return started, nil
}

// CouncilStatus reports whether a run is in flight and when the current or
// most recent run started.
func (a *Architect) CouncilStatus() (bool, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running, a.startedAt
}

func (a *Architect) clearRunning() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// emit publishes an event without ever blocking the daemon.
func (a *Architect) emit(kind EventKind, message string) {
	if a.events == nil {
		return
	}
	select {
	case a.events <- Event{Kind: kind, Message: message, At: a.now()}:
	default:
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Architect) info(msg string, keyvals ...interface{}) {
	if a.logger != nil {
		a.logger.Info(msg, keyvals...)
	}
}

func (a *Architect) warn(msg string, keyvals ...interface{}) {
	if a.logger != nil {
		a.logger.Warn(msg, keyvals...)
	}
}
