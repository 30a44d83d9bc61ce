package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/http/handlers"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/observability"
)

// UserStore is what the router needs from persistence; both the
// postgres and the in-memory repos satisfy it.
type UserStore interface {
	handlers.UserStore
	handlers.AssigneeChecker
}

// Deps carries the swappable collaborators so tests can run the full
// route table against in-memory repos.
type Deps struct {
	Users UserStore
	Tasks handlers.TaskStore

	DBPing    func(ctx context.Context) error
	RedisPing func(ctx context.Context) error

	// optional middleware guarding /auth/register and /auth/login
	AuthLimiter gin.HandlerFunc

	Prom *observability.Prom
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("taskhub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())

	if len(cfg.CORSOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	}

	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})))
	}

	// health
	health := handlers.NewHealthHandler(deps.DBPing, deps.RedisPing)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())

	authHandler := handlers.NewAuthHandler(deps.Users, jwtManager, deps.Prom)
	tasksHandler := handlers.NewTasksHandler(deps.Tasks, deps.Users)

	authmw := middlewares.NewAuthMiddleware(jwtManager, deps.Users)

	// a global per-client limiter on top of the auth-specific one
	limiter := middlewares.NewRateLimiter(300, cfg.AuthRateWindow)
	r.Use(limiter.RateLimiterMiddleware(middlewares.KeyByIP))

	// credentials
	authGroup := r.Group("/auth")
	{
		if deps.AuthLimiter != nil {
			authGroup.POST("/register", deps.AuthLimiter, authHandler.Register)
			authGroup.POST("/login", deps.AuthLimiter, authHandler.Login)
		} else {
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		authGroup.GET("/me", authmw.RequireAuth(), authHandler.Me)
		authGroup.GET("/users/:id", authmw.RequireAuth(), authHandler.GetUser)
	}

	// tasks, all behind the session resolver
	api := r.Group("/api", authmw.RequireAuth())
	{
		api.POST("/tasks", tasksHandler.CreateTask)
		api.GET("/tasks", tasksHandler.ListTasks)
		api.GET("/tasks/my", tasksHandler.ListMyTasks)
		api.GET("/tasks/:id", tasksHandler.GetTask)
		api.PUT("/tasks/:id", tasksHandler.UpdateTask)
		api.PATCH("/tasks/:id/complete", tasksHandler.CompleteTask)
		api.DELETE("/tasks/:id", tasksHandler.DeleteTask)
	}

	return r
}
