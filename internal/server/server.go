package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cbr-records/apiserver/config"
	"github.com/cbr-records/apiserver/internal/db"
	"github.com/cbr-records/apiserver/internal/handlers"
	"github.com/cbr-records/apiserver/internal/mq"
	"github.com/cbr-records/apiserver/internal/services"
	"github.com/cbr-records/apiserver/internal/storage"
	"github.com/cbr-records/apiserver/internal/store"
	"github.com/cbr-records/apiserver/internal/token"
	"github.com/cbr-records/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	log        *zap.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	events, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	objectStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		_ = events.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	if objectStorage != nil {
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			_ = events.Close()
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
	}

	userService := services.NewUserService(store.NewUserRepository(dbConn))
	settingsService := services.NewSettingsService(store.NewSettingsRepository(dbConn))

	resourceService := func(kind types.Kind) *services.ResourceService {
		schema := types.SchemaFor(kind)
		return services.NewResourceService(store.NewResourceRepository(dbConn, schema), schema, events, log)
	}

	projectService := resourceService(types.KindProject)
	portfolioService := resourceService(types.KindPortfolioItem)
	testimonialService := resourceService(types.KindTestimonial)
	blogPostService := resourceService(types.KindBlogPost)
	spotifyTrackService := resourceService(types.KindSpotifyTrack)
	downloadService := resourceService(types.KindDownloadableItem)
	youtubeVideoService := resourceService(types.KindYouTubeVideo)

	tokens := token.New(cfg.JWTSecret, cfg.TokenTTL)
	authMiddleware := handlers.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)

	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, userService, tokens)

	router.Route("/projects", func(r chi.Router) {
		handlers.ResourceRouter(r, projectService, "project", authMiddleware, handlers.RouteOptions{
			PublicGet: true,
		})
	})
	router.Route("/portfolio", func(r chi.Router) {
		handlers.ResourceRouter(r, portfolioService, "portfolio item", authMiddleware, handlers.RouteOptions{
			PublicGet: true,
		})
	})
	router.Route("/testimonials", func(r chi.Router) {
		handlers.ResourceRouter(r, testimonialService, "testimonial", authMiddleware, handlers.RouteOptions{
			PublicCreate: true,
		})
	})
	router.Route("/blog-posts", func(r chi.Router) {
		handlers.ResourceRouter(r, blogPostService, "blog post", authMiddleware, handlers.RouteOptions{
			PublicGet: true,
		})
	})
	router.Route("/spotify-tracks", func(r chi.Router) {
		handlers.ResourceRouter(r, spotifyTrackService, "spotify track", authMiddleware, handlers.RouteOptions{})
	})
	router.Route("/downloadable-items", func(r chi.Router) {
		handlers.ResourceRouter(r, downloadService, "downloadable item", authMiddleware, handlers.RouteOptions{
			PublicGet: true,
		})
		if objectStorage != nil {
			handlers.FileRouter(r, handlers.NewFileHandler(downloadService, objectStorage), authMiddleware)
		}
	})
	router.Route("/youtube-videos", func(r chi.Router) {
		handlers.ResourceRouter(r, youtubeVideoService, "youtube video", authMiddleware, handlers.RouteOptions{
			PublicGet: true,
		})
	})
	router.Route("/social-links", func(r chi.Router) {
		handlers.SocialLinksRouter(r, settingsService, authMiddleware)
	})
	router.Route("/studio-config", func(r chi.Router) {
		handlers.StudioConfigRouter(r, settingsService, authMiddleware)
	})
	if cfg.OpenAI.APIKey != "" {
		handlers.AIRouter(router, handlers.NewAIHandler(cfg.OpenAI))
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	_ = s.events.Close()
	return s.httpServer.Close()
}
