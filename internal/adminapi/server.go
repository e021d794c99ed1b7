// Package adminapi is the read-only HTTP surface the run-subsystem
// command exposes: GET /healthz and GET /status. Grounded on the
// teacher's src/core/restapi/server.go (gin.Engine construction,
// *http.Server wiring) and handlers/system_handler.go (handler struct
// holding the data it reports on, JSON response envelope), reduced to
// the two read-only endpoints this spec calls for — no auth, CORS, or
// rate-limit middleware, since this surface is operator-facing and not
// part of the timer protocol itself.
package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cezarmathe/horloge/internal/equeue"
	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/logger"
)

// Status reports the counters system_handler.go's GetSystemStatus
// analog would: how much work is tracked and how full the queues are.
type Status struct {
	TrackedTables int           `json:"tracked_tables"`
	PendingTimers int           `json:"pending_timers"`
	Trigger       equeue.Stats  `json:"trigger_queue"`
	Executor      equeue.Stats  `json:"executor_queue"`
	Uptime        time.Duration `json:"uptime_ns"`
}

// StatusSource is implemented by the timer subsystem to report its
// current counters without exposing its internal index.
type StatusSource interface {
	TrackedTableCount() int
	PendingTimerCount() int
}

// Server is the admin HTTP surface.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	source     StatusSource
	trigger    *equeue.Queue[events.TimerSubsystemEvent]
	executor   *equeue.Queue[events.ExecutorEvent]
	startedAt  time.Time
	log        logger.ComponentLogger
}

// New builds a Server bound to addr ("host:port"), reporting on
// source's counters and the two shared queues' depths.
func New(addr string, source StatusSource, trigger *equeue.Queue[events.TimerSubsystemEvent], executor *equeue.Queue[events.ExecutorEvent]) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		source:    source,
		trigger:   trigger,
		executor:  executor,
		startedAt: time.Now(),
		log:       logger.NewComponentLogger("adminapi"),
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/status", s.handleStatus)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, Status{
		TrackedTables: s.source.TrackedTableCount(),
		PendingTimers: s.source.PendingTimerCount(),
		Trigger:       s.trigger.Stats(),
		Executor:      s.executor.Stats(),
		Uptime:        time.Since(s.startedAt),
	})
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("admin API listening", logger.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("adminapi: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("adminapi: serve: %w", err)
	}
}
