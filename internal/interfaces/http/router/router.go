// Package router assembles the gin engine: the fixed middleware order, the
// route table and the HTTP server lifecycle.
package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/tokengate/internal/application/dto"
	appservice "github.com/turtacn/tokengate/internal/application/service"
	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/internal/infrastructure/monitoring"
	"github.com/turtacn/tokengate/internal/interfaces/http/handlers"
	"github.com/turtacn/tokengate/internal/interfaces/http/middleware"
	"github.com/turtacn/tokengate/pkg/constants"
	apperrors "github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

// Dependencies are the collaborators wired into the routes.
type Dependencies struct {
	Config      *config.Config
	Logger      logger.Logger
	Tokens      service.TokenService
	Users       service.UserLookup
	AuthService appservice.AuthAppService
	UserService appservice.UserAppService
	JWKS        *handlers.JWKSHandler
	Health      *handlers.HealthHandler
	Metrics     *monitoring.Metrics
	// MetricsHandler serves /metrics; defaults to the global prometheus registry.
	MetricsHandler http.Handler
	// RateLimiter throttles login and registration; nil disables throttling.
	RateLimiter service.RateLimiter
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	deps   Dependencies
	server *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoopLogger()
	}
	if deps.MetricsHandler == nil {
		deps.MetricsHandler = promhttp.Handler()
	}
	if deps.Health == nil {
		deps.Health = handlers.NewHealthHandler(nil, deps.Logger)
	}

	gin.SetMode(gin.ReleaseMode)
	r := &Router{engine: gin.New(), deps: deps}
	r.setupRoutes()
	return r
}

// setupRoutes 设置路由
//
// Global order: Recovery → RequestID → Tracing → Logging → CORS → Metrics →
// Authenticate. Authorization stages are attached per group, after Authenticate.
func (r *Router) setupRoutes() {
	cfg := r.deps.Config
	log := r.deps.Logger

	r.engine.Use(
		handlers.RecoveryMiddleware(log),
		middleware.RequestID(),
		handlers.TracingMiddleware(),
		handlers.LoggingMiddleware(log),
		handlers.CORSMiddleware(cfg.CORS),
	)
	if r.deps.Metrics != nil {
		r.engine.Use(handlers.MetricsMiddleware(r.deps.Metrics))
	}
	r.engine.Use(middleware.Authenticate(
		r.deps.Tokens,
		r.deps.Users,
		middleware.NewPathMatcher(cfg.Security.PublicPaths),
		log,
	))

	// 健康检查与监控路由（不需要认证）
	r.engine.GET("/health/live", r.deps.Health.LivenessCheck)
	r.engine.GET("/health/ready", r.deps.Health.ReadinessCheck)
	r.engine.GET("/metrics", gin.WrapH(r.deps.MetricsHandler))
	if r.deps.JWKS != nil {
		r.engine.GET("/.well-known/jwks.json", r.deps.JWKS.GetJWKS)
	}

	// Pprof 性能分析（仅在非生产环境）
	if cfg.Monitoring.PprofEnabled {
		pprof.Register(r.engine)
	}

	authHandler := handlers.NewAuthHandler(r.deps.AuthService)
	userHandler := handlers.NewUserHandler(r.deps.AuthService, r.deps.UserService)
	dto.SetDisposableEmailDomains(cfg.Security.DisposableEmailDomains)

	v1 := r.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.throttle(constants.RateLimitScopeLogin), authHandler.Login)
			auth.POST("/register", r.throttle(constants.RateLimitScopeIP), authHandler.Register)
			auth.POST("/refresh", authHandler.Refresh)
		}

		users := v1.Group("/users", middleware.RequireAuthenticated())
		{
			users.GET("/me", userHandler.Me)
			if r.deps.UserService != nil {
				users.PATCH("/me", userHandler.UpdateProfile)
				users.POST("/me/password", userHandler.ChangePassword)
				users.PATCH("/me/deactivate", userHandler.Deactivate)
				users.PATCH("/me/reactivate", userHandler.Reactivate)
			}
		}

		admin := v1.Group("/admin", middleware.RequireAuthority(constants.RoleAdmin))
		{
			admin.GET("/ping", userHandler.AdminPing)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    apperrors.ErrCodeNotFound,
				"message": "The requested resource was not found",
			},
		})
	})
}

func (r *Router) throttle(scope constants.RateLimitScope) gin.HandlerFunc {
	if r.deps.RateLimiter == nil || !r.deps.Config.RateLimit.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	var recorder middleware.RateLimitRecorder
	if r.deps.Metrics != nil {
		recorder = r.deps.Metrics
	}
	return middleware.RateLimit(r.deps.RateLimiter, scope, recorder, r.deps.Logger)
}

// Engine returns the underlying gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (r *Router) Run(ctx context.Context) error {
	srvCfg := r.deps.Config.Server
	r.server = &http.Server{
		Addr:              srvCfg.Addr(),
		Handler:           r.engine,
		ReadTimeout:       time.Duration(srvCfg.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(srvCfg.WriteTimeout) * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		r.deps.Logger.Info(ctx, "Starting HTTP server", logger.Fields{"address": srvCfg.Addr()})
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// 优雅关闭
	timeout := time.Duration(srvCfg.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	r.deps.Logger.Info(shutdownCtx, "Shutting down HTTP server...")
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		r.deps.Logger.Error(shutdownCtx, "Server forced to shutdown", err)
		return err
	}
	r.deps.Logger.Info(shutdownCtx, "HTTP server stopped")
	return nil
}
