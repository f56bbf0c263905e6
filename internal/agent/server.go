package agent

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/managectl/internal/auth"
	"github.com/danmuck/managectl/internal/config"
	"github.com/danmuck/managectl/internal/manage"
	"github.com/danmuck/managectl/internal/observability"
	"github.com/danmuck/managectl/internal/seeds"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

var (
	ErrSeedNotFound = errors.New("seed not found")
	ErrBadRequest   = errors.New("bad request body")
)

// Server exposes a seed registry over HTTP.
type Server struct {
	ID       string
	Addr     string
	Registry *seeds.Registry
	Appeared time.Time
	// Auth guards action routes when set.
	Auth auth.Validator

	router *gin.Engine
}

// New builds a server with logging, metrics and CORS middleware installed.
func New(id, addr string, corsOrigins []string, registry *seeds.Registry) *Server {
	observability.RegisterMetrics()
	if registry == nil {
		registry = seeds.NewRegistry()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(corsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", auth.HeaderAuthorization, observability.HeaderRequestID},
		ExposeHeaders: []string{observability.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       id,
		Addr:     addr,
		Registry: registry,
		Appeared: time.Now(),
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		ready := s.Registry.Len() > 0
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"seeds":   s.Registry.Len(),
			"service": s.ID,
			"version": Version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/seeds", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"seeds": s.Registry.List()})
	})

	s.router.GET("/seeds/:seed", func(c *gin.Context) {
		seed, ok := s.Registry.Resolve(c.Param("seed"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrSeedNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, seeds.SeedInfo{SeedMetadata: seed.Metadata(), Operations: seed.Operations()})
	})

	s.router.POST("/seeds/:seed/actions/:action", s.authorize, s.handleAction)
}

func (s *Server) authorize(c *gin.Context) {
	auth.Require(s.Auth)(c)
}

func (s *Server) handleAction(c *gin.Context) {
	seedID := c.Param("seed")
	action := c.Param("action")

	args, err := bindArgs(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.ExecuteAction(c.Request.Context(), seedID, action, args)
	body := gin.H{
		"seed":       seedID,
		"action":     action,
		"request_id": c.GetString(observability.ContextRequestID),
		"status":     res.Status,
		"exit_code":  res.ExitCode,
	}
	if res.Report != nil {
		body["report"] = res.Report
	}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(statusFor(err), body)
}

// ExecuteAction resolves seedID and runs action with args.
func (s *Server) ExecuteAction(ctx context.Context, seedID, action string, args map[string]string) (seeds.SeedResult, error) {
	seed, ok := s.Registry.Resolve(seedID)
	if !ok || seed == nil {
		return seeds.SeedResult{Status: "error", ExitCode: 64}, ErrSeedNotFound
	}

	res, err := seed.Execute(ctx, action, args)
	if err != nil {
		log.Error().
			Str("node", s.ID).
			Str("seed", seedID).
			Str("action", action).
			Int32("exit", res.ExitCode).
			Err(err).
			Msg("seed action failed")
		return res, err
	}

	log.Info().
		Str("node", s.ID).
		Str("seed", seedID).
		Str("action", action).
		Msg("seed action executed")
	return res, nil
}

// Serve listens on Addr until ctx ends, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("node", s.ID).Str("addr", s.Addr).Int("seeds", s.Registry.Len()).Msg("agent listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	log.Info().Str("node", s.ID).Msg("agent shutting down")
	return srv.Shutdown(shutdownCtx)
}

func bindArgs(c *gin.Context) (map[string]string, error) {
	doc := map[string]any{}
	if err := c.ShouldBindJSON(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrBadRequest, err)
	}
	args, err := config.FlattenArgs(doc)
	if err != nil {
		return nil, errors.Join(ErrBadRequest, err)
	}
	return args, nil
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrSeedNotFound), errors.Is(err, seeds.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, manage.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if o := strings.TrimSpace(origin); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
