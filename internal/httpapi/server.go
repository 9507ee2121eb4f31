// Package httpapi exposes the decision surface, the JSON API the morning
// review frontend uses to inspect staged work and rule on it.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

// shutdownGrace bounds how long in-flight requests may linger once the
// daemon context is cancelled.
const shutdownGrace = 5 * time.Second

// Staging is the slice of the staging store the API reads and decides on.
type Staging interface {
	List() ([]staging.Project, error)
	Get(id string) (staging.Project, error)
	Diff(id string) (string, error)
	Files(id string) ([]staging.FileStat, error)
	Rejected() ([]staging.Project, error)
	Accept(ctx context.Context, id string) (staging.Project, error)
	Reject(ctx context.Context, id, reason string) (staging.Project, error)
	SetPending(id string) (staging.Project, error)
}

// Memory is the slice of the memory store backing the read endpoints.
type Memory interface {
	ActiveSessions() ([]memory.ActiveSession, error)
	RemoveActiveSession(id string) error
	Brief() (*memory.Brief, error)
	LastExecution() (*memory.Execution, error)
	AppendMerge(rec memory.MergeRecord) error
	MergeHistory() ([]memory.MergeRecord, error)
	Outcomes() ([]memory.Outcome, error)
	Notify(n memory.Notification) (memory.Notification, error)
	Notifications() ([]memory.Notification, error)
}

// Architect exposes the daemon's council controls.
type Architect interface {
	TriggerCouncil() (time.Time, error)
	CouncilStatus() (bool, time.Time)
}

// Logger is the logging surface the server uses. A nil Logger silences it.
type Logger interface {
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Deps are the collaborators the server fronts.
type Deps struct {
	Staging   Staging
	Memory    Memory
	Architect Architect
	Logger    Logger
}

// Server is the gin front over the staging store, the memory store, and
// the architect daemon.
type Server struct {
	staging   Staging
	mem       Memory
	architect Architect
	cfg       config.HTTPConfig
	gate      config.GateConfig
	logger    Logger
}

// New wires the decision API. The gate config rides along so the review
// thresholds behind the numbers can be surfaced to the frontend.
func New(deps Deps, cfg config.HTTPConfig, gate config.GateConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		staging:   deps.Staging,
		mem:       deps.Memory,
		architect: deps.Architect,
		cfg:       cfg,
		gate:      gate,
		logger:    deps.Logger,
	}
}

// Router builds the route table. Exposed separately from Run so tests can
// drive handlers through httptest.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.health)
	r.GET("/status", s.status)
	r.GET("/morning-brief", s.morningBrief)
	r.GET("/staged-projects", s.stagedProjects)
	r.GET("/project/:id", s.project)
	r.GET("/project/:id/diff", s.projectDiff)
	r.GET("/project/:id/files", s.projectFiles)
	r.POST("/project/:id/decision", s.decide)
	r.GET("/rejected", s.rejectedProjects)
	r.GET("/stats", s.stats)
	r.GET("/council-stats", s.councilStats)
	r.GET("/history", s.history)
	r.GET("/notifications", s.listNotifications)
	r.POST("/notifications", s.pushNotification)
	r.POST("/council/start", s.startCouncil)
	r.GET("/council/status", s.councilStatus)

	return r
}

// Run serves the API until ctx is cancelled, then drains in-flight
// requests before returning.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen on %s: %w", s.cfg.Addr, err)
	}

	srv := &http.Server{Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.info("decision api listening", "addr", ln.Addr().String(), "pass_threshold", s.gate.PassThreshold)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("httpapi: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("httpapi: serve: %w", err)
	}
}

func (s *Server) info(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, keyvals...)
	}
}

func (s *Server) warn(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, keyvals...)
	}
}
