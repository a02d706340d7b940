package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/config"
	"github.com/aman-churiwal/quota-gate/internal/handler"
	"github.com/aman-churiwal/quota-gate/internal/metrics"
	"github.com/aman-churiwal/quota-gate/internal/middleware"
	"github.com/aman-churiwal/quota-gate/internal/ratelimit"
	"github.com/aman-churiwal/quota-gate/internal/repository"
	"github.com/aman-churiwal/quota-gate/internal/service"
	"github.com/aman-churiwal/quota-gate/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router           *gin.Engine
	config           *config.Config
	redis            *storage.RedisClient
	postgres         *storage.Postgres
	limiter          *ratelimit.Limiter
	planService      *service.PlanService
	authService      *service.AuthService
	analyticsService *service.AnalyticsService
	httpServer       *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres) (*Server, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	assignmentRepo := repository.NewAssignmentRepository(postgres)
	decisionRepo := repository.NewDecisionRepository(postgres)
	userRepo := repository.NewUserRepository(postgres)

	planService := service.NewPlanService(assignmentRepo)
	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.ExpiryHours)
	analyticsService := service.NewAnalyticsService(decisionRepo)

	lookup := func(ctx context.Context, token string) (string, error) {
		name, err := planService.Lookup(ctx, token)
		switch {
		case err != nil:
			metrics.PlanLookupsTotal.WithLabelValues("error").Inc()
		case name == "":
			metrics.PlanLookupsTotal.WithLabelValues("no_plan").Inc()
		default:
			metrics.PlanLookupsTotal.WithLabelValues("plan").Inc()
		}
		return name, err
	}

	limiter, err := ratelimit.New(redis, ratelimit.Options{
		Namespace:  cfg.RateLimit.Namespace,
		CacheTTL:   cfg.RateLimit.CacheTTL(),
		Plans:      cfg.RateLimit.Plans,
		PlanLookup: lookup,
		Logger:     slog.New(slog.NewTextHandler(os.Stderr, nil)),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit configuration: %w", err)
	}

	middleware.InitDecisionLogger(decisionRepo, 1000)

	s := &Server{
		router:           router,
		config:           cfg,
		redis:            redis,
		postgres:         postgres,
		limiter:          limiter,
		planService:      planService,
		authService:      authService,
		analyticsService: analyticsService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	checkHandler := handler.NewCheckHandler(s.limiter)
	s.router.POST("/v1/check", middleware.DecisionLogger(), checkHandler.Check)

	planNames := make([]string, 0, len(s.config.RateLimit.Plans))
	for name := range s.config.RateLimit.Plans {
		planNames = append(planNames, name)
	}
	assignmentHandler := handler.NewAssignmentHandler(s.planService, planNames)
	analyticsHandler := handler.NewAnalyticsHandler(s.analyticsService)
	authHandler := handler.NewAuthHandler(s.authService)

	s.router.POST("/admin/login", middleware.RateLimit(s.limiter), authHandler.Login)

	admin := s.router.Group("/admin", middleware.RequireAuth(s.authService))
	{
		admin.GET("/status", s.adminStatus)
		admin.POST("/assignments", assignmentHandler.Create)
		admin.GET("/assignments", assignmentHandler.List)
		admin.GET("/assignments/:id", assignmentHandler.Get)
		admin.PATCH("/assignments/:id", assignmentHandler.Update)
		admin.DELETE("/assignments/:id", assignmentHandler.Delete)
		admin.GET("/analytics/summary", analyticsHandler.Summary)
		admin.GET("/analytics/decisions", analyticsHandler.Decisions)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		log.Printf("Redis health check failed: %v", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "quota-gate",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	ctx := c.Request.Context()
	assignments, _ := s.planService.List(ctx)
	c.JSON(http.StatusOK, gin.H{
		"engine":      "running",
		"plans":       len(s.config.RateLimit.Plans),
		"assignments": len(assignments),
		"uptime":      time.Since(startTime).Seconds(),
		"timestamp":   time.Now().Unix(),
	})
}

// EnsureAdmin creates the bootstrap admin account if missing.
func (s *Server) EnsureAdmin(ctx context.Context, email, password string) error {
	return s.authService.EnsureAdmin(ctx, email, password)
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting quota-gate on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

var startTime = time.Now()
