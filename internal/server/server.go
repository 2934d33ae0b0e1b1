package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/emilythestrangee/subreddit/backend/internal/auth"
	"github.com/emilythestrangee/subreddit/backend/internal/config"
	"github.com/emilythestrangee/subreddit/backend/internal/handlers"
	"github.com/emilythestrangee/subreddit/backend/internal/media"
	"github.com/emilythestrangee/subreddit/backend/internal/middleware"
	"github.com/emilythestrangee/subreddit/backend/internal/service"
)

// HealthChecker reports the state of a backing store.
type HealthChecker interface {
	Health() map[string]string
}

// Deps are the collaborators the routes are built from.
type Deps struct {
	Services *service.Services
	Tokens   *auth.Tokens
	Uploader *media.Uploader
	// Limiter is optional; without it no route is rate limited.
	Limiter middleware.Limiter
	// DB is optional; without it /health only reports the process.
	DB     HealthChecker
	Logger *slog.Logger
}

type Server struct {
	cfg     config.Config
	deps    Deps
	handler *handlers.Handler
}

// NewServer creates and configures a new server
func NewServer(cfg config.Config, deps Deps) *http.Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	handlers.RegisterValidators()

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		handler: handlers.NewHandler(deps.Services, deps.Uploader),
	}

	return &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware("subreddit-api"),
		middleware.Logger(s.deps.Logger),
		middleware.Metrics(),
	)

	// CORS configuration
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.cfg.Media.Backend == "disk" {
		r.Static("/static", s.cfg.Media.Dir)
	}

	h := s.handler
	authed := middleware.Auth(s.deps.Tokens)
	limited := s.rateLimit()

	api := r.Group("/api")
	{
		authRoutes := api.Group("/auth")
		authRoutes.POST("/register", limited, h.Auth.Register)
		authRoutes.POST("/login", limited, h.Auth.Login)
		authRoutes.GET("/verify-email", h.Auth.VerifyEmail)
		authRoutes.GET("/me", authed, h.Auth.GetMe)

		communities := api.Group("/communities")
		communities.GET("", h.Community.List)
		communities.GET("/:id", h.Community.Get)
		communities.GET("/:id/members", h.Community.Members)
		communities.POST("", authed, limited, h.Community.Create)
		communities.PATCH("/:id", authed, limited, h.Community.Update)
		communities.DELETE("/:id", authed, limited, h.Community.Delete)
		communities.POST("/:id/join", authed, limited, h.Community.Join)
		communities.POST("/:id/leave", authed, limited, h.Community.Leave)
		communities.PUT("/:id/avatar", authed, limited, h.Community.SetAvatar)
		communities.DELETE("/:id/avatar", authed, limited, h.Community.RemoveAvatar)

		subreddit := api.Group("/r/:name")
		subreddit.GET("", h.Community.GetByName)
		subreddit.GET("/posts", h.Post.ListByCommunity)
		subreddit.GET("/posts/:slug", h.Post.GetBySlug)
		subreddit.POST("/posts", authed, limited, h.Post.Create)
		subreddit.PATCH("/posts/:slug", authed, limited, h.Post.Update)

		posts := api.Group("/posts")
		posts.GET("/:id", h.Post.GetPost)
		posts.DELETE("/:id", authed, limited, h.Post.DeletePost)
		posts.POST("/:id/upvote", authed, limited, h.Post.Upvote)
		posts.POST("/:id/downvote", authed, limited, h.Post.Downvote)

		users := api.Group("/users")
		users.PATCH("/me", authed, limited, h.User.UpdateMe)
		users.PUT("/me/avatar", authed, limited, h.User.SetAvatar)
		users.DELETE("/me/avatar", authed, limited, h.User.RemoveAvatar)
		users.GET("/me/upvoted", authed, h.User.Upvoted)
		users.GET("/me/downvoted", authed, h.User.Downvoted)
		users.GET("/:username", h.User.GetUserProfile)
		users.GET("/:username/communities", h.User.Communities)
		users.GET("/:username/joined", h.User.Joined)
		users.GET("/:username/posts", h.User.Posts)
	}

	return r
}

func (s *Server) rateLimit() gin.HandlerFunc {
	if s.deps.Limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(s.deps.Limiter, s.deps.Logger)
}

func (s *Server) health(c *gin.Context) {
	if s.deps.DB == nil {
		c.JSON(http.StatusOK, gin.H{"status": "up", "store": "memory"})
		return
	}
	stats := s.deps.DB.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
