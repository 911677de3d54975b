package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emilythestrangee/forum/backend/internal/auth"
	"github.com/emilythestrangee/forum/backend/internal/config"
	"github.com/emilythestrangee/forum/backend/internal/content"
	"github.com/emilythestrangee/forum/backend/internal/database"
	"github.com/emilythestrangee/forum/backend/internal/forum"
	"github.com/emilythestrangee/forum/backend/internal/handlers"
	"github.com/emilythestrangee/forum/backend/internal/middleware"
	"github.com/emilythestrangee/forum/backend/internal/notify"
	"github.com/emilythestrangee/forum/backend/internal/repository"
	"github.com/emilythestrangee/forum/backend/internal/voting"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	router  *notify.Router
	tokens  *auth.Service
	handler *handlers.Handler
	logger  *slog.Logger
}

// New opens the configured storage backend and wires the services.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("Using in-memory storage, data will not survive a restart")
		return NewWithStore(cfg, repository.NewMemoryStore(), nil, logger), nil
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return NewWithStore(cfg, repository.NewGormStore(db.DB()), db, logger), nil
}

// NewWithStore wires the services over an existing store. db may be nil when
// the store is not database backed.
func NewWithStore(cfg *config.Config, store *repository.Store, db database.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := notify.NewRouter(logger)
	tokens := auth.NewService(store.Users, cfg.JWTSecret, cfg.TokenTTL)

	handler := handlers.NewHandler(handlers.Services{
		Auth:    tokens,
		Forums:  forum.NewRegistry(store, router, forum.Policy{NotifySelfSubscribe: cfg.NotifySelfSubscribe}, logger),
		Content: content.NewService(store, router, logger),
		Votes:   voting.NewEngine(store, router, logger),
	})

	return &Server{
		cfg:     cfg,
		db:      db,
		router:  router,
		tokens:  tokens,
		handler: handler,
		logger:  logger,
	}
}

// HTTPServer builds the listener configuration around the gin engine.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Close releases the database connection, if any.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	origins := s.cfg.Origins()
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		// Credentials cannot be combined with a literal wildcard origin.
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = origins
	}
	r.Use(cors.New(corsConfig))

	// Health check endpoint
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live notifications
	r.GET("/ws", gin.WrapH(notify.NewHandler(s.router, s.checkOrigin, s.verifyToken, s.logger)))

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Public reads
		api.GET("/forums", s.handler.Forum.ListForums)
		api.GET("/forums/search", s.handler.Forum.SearchForums)
		api.GET("/forums/:forumId", s.handler.Forum.GetForum)
		api.GET("/forums/:forumId/subscribers", s.handler.Forum.Subscribers)
		api.GET("/posts/:id", s.handler.Post.GetPost)
		api.GET("/posts/:id/votes", s.handler.Post.GetVotes)
		api.GET("/posts/:id/comments", s.handler.Comment.GetComments)
		api.GET("/users/:id/subscriptions", s.handler.Forum.UserSubscriptions)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.tokens))
		{
			protected.GET("/me", s.handler.User.GetMe)

			// Forum protected routes
			protected.POST("/forums", s.handler.Forum.CreateForum)
			protected.POST("/forums/:forumId/subscription", s.handler.Forum.ToggleSubscription)
			protected.POST("/forums/:forumId/subscribe", s.handler.Forum.Subscribe)
			protected.DELETE("/forums/:forumId/unsubscribe", s.handler.Forum.Unsubscribe)

			// Post protected routes
			protected.POST("/forums/:forumId/posts", s.handler.Post.CreatePost)
			protected.PUT("/posts/:id", s.handler.Post.UpdatePost)
			protected.PATCH("/posts/:id", s.handler.Post.UpdatePost)
			protected.DELETE("/posts/:id", s.handler.Post.DeletePost)
			protected.POST("/posts/:id/upvote", s.handler.Post.UpvotePost)
			protected.POST("/posts/:id/downvote", s.handler.Post.DownvotePost)

			// Comment protected routes
			protected.POST("/posts/:id/comments", s.handler.Comment.CreateComment)
			protected.PUT("/comments/:commentId", s.handler.Comment.UpdateComment)
			protected.DELETE("/comments/:commentId", s.handler.Comment.DeleteComment)
			protected.POST("/comments/:commentId/upvote", s.handler.Comment.UpvoteComment)
			protected.POST("/comments/:commentId/downvote", s.handler.Comment.DownvoteComment)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	status := gin.H{"status": "ok", "connected_users": s.router.Len()}
	if s.db == nil {
		c.JSON(http.StatusOK, status)
		return
	}

	dbHealth := s.db.Health(c.Request.Context())
	status["database"] = dbHealth
	if !dbHealth.Up() {
		status["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// verifyToken authenticates websocket clients with the same JWTs the API uses.
func (s *Server) verifyToken(token string) (string, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// checkOrigin applies ALLOWED_ORIGINS to websocket upgrades.
func (s *Server) checkOrigin(r *http.Request) bool {
	origins := s.cfg.Origins()
	if slices.Contains(origins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(origins, origin)
}
