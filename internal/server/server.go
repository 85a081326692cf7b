package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"eboto/config"
	"eboto/internal/handler"
	"eboto/internal/middleware"
	"eboto/internal/observability"
	"eboto/internal/redis"
	"eboto/internal/services"
	"eboto/internal/transport/httpdto"
	"eboto/internal/websocket"
	"eboto/pkg/database"
	"eboto/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Election *handler.ElectionHandler
	Ballot   *handler.BallotHandler
	Result   *handler.ResultHandler
	Manage   *handler.ManageHandler
	Cron     *handler.CronHandler
	Realtime *websocket.Handler
}

// Guards are the request gates shared by the routes. A nil Limiter turns
// rate limiting off.
type Guards struct {
	Auth      *services.AuthService
	Scheduler *services.SchedulerVerifier
	Limiter   *redis.RateLimiter
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, guards Guards) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	s.engine.GET("/metrics", gin.WrapH(observability.Handler()))

	requireAuth := middleware.AuthMiddleware(guards.Auth)
	optionalAuth := middleware.OptionalAuthMiddleware(guards.Auth)

	ballotGate := []gin.HandlerFunc{requireAuth}
	cronGate := []gin.HandlerFunc{}
	if guards.Limiter != nil {
		ballotGate = append(ballotGate, middleware.BallotRateLimitMiddleware(guards.Limiter))
		cronGate = append(cronGate, middleware.CronRateLimitMiddleware(guards.Limiter))
	}
	cronGate = append(cronGate, middleware.SchedulerSignatureMiddleware(guards.Scheduler))

	v1 := s.engine.Group("/v1")

	elections := v1.Group("/elections")
	{
		elections.POST("", requireAuth, handlers.Election.Create)
		elections.GET("/:slug", optionalAuth, handlers.Election.Get)
		elections.GET("/:slug/ballot", requireAuth, handlers.Ballot.Form)
		elections.POST("/:slug/ballot", append(ballotGate, handlers.Ballot.Cast)...)
		elections.GET("/:slug/realtime", optionalAuth, handlers.Result.Realtime)
		elections.GET("/:slug/realtime/ws", handlers.Realtime.Connect)
		elections.GET("/:slug/result", optionalAuth, handlers.Result.Result)
	}

	manage := v1.Group("/manage/elections/:id", requireAuth)
	{
		manage.PATCH("", handlers.Election.Update)
		manage.DELETE("", handlers.Election.Delete)

		manage.POST("/positions", handlers.Manage.AddPosition)
		manage.PATCH("/positions/:positionId", handlers.Manage.UpdatePosition)
		manage.DELETE("/positions/:positionId", handlers.Manage.DeletePosition)

		manage.GET("/partylists", handlers.Manage.ListPartylists)
		manage.POST("/partylists", handlers.Manage.AddPartylist)

		manage.POST("/candidates", handlers.Manage.AddCandidate)
		manage.PATCH("/candidates/:candidateId", handlers.Manage.UpdateCandidate)
		manage.DELETE("/candidates/:candidateId", handlers.Manage.DeleteCandidate)

		manage.GET("/voters", handlers.Manage.ListVoters)
		manage.POST("/voters", handlers.Manage.AddVoter)
		manage.DELETE("/voters/:voterId", handlers.Manage.RemoveVoter)
		manage.POST("/voter-fields", handlers.Manage.AddVoterField)

		manage.POST("/commissioners", handlers.Manage.AddCommissioner)
		manage.POST("/logo", handlers.Manage.PresignLogo)
		manage.POST("/export", handlers.Manage.Export)
	}

	v1.POST("/cron/hourly", append(cronGate, handlers.Cron.Hourly)...)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
