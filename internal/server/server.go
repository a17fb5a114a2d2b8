package server

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taiwoajasa245/streak-api/internal/auth"
	"github.com/taiwoajasa245/streak-api/internal/database"
	"github.com/taiwoajasa245/streak-api/internal/motivation"
	"github.com/taiwoajasa245/streak-api/internal/store"
	"github.com/taiwoajasa245/streak-api/internal/userdata"
	"github.com/taiwoajasa245/streak-api/pkg/config"
)

type Server struct {
	port    string
	cfg     *config.Config
	db      database.Service
	store   store.Store
	logger  *zap.Logger
	handler http.Handler

	authService       *auth.AuthService
	motivationService *motivation.Service
	userdataHandler   userdata.Handler
}

// NewServer constructs the app server with all dependencies injected. db is
// nil when users live in the JSON file, and generator is nil when no
// generator credential is configured.
func NewServer(cfg *config.Config, db database.Service, st store.Store, generator motivation.BatchGenerator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	if db != nil {
		stats := db.Health()
		if stats["status"] != "up" {
			logger.Warn("database is not healthy", zap.Any("stats", stats))
		} else {
			logger.Info("database connection successful", zap.String("driver", db.Driver()))
		}
	}

	manager := motivation.NewManager(motivation.DefaultPool(), generator, logger, time.Now)
	orchestrator := motivation.NewOrchestrator(manager, time.Now, time.Local)
	motivationService := motivation.NewService(motivation.NewRepository(st), manager, orchestrator, logger)

	seed := func() any { return motivationService.Initial() }
	authService := auth.NewAuthService(auth.NewRepository(st), cfg.JWTSecret, cfg.TokenTTL, seed, logger)

	s := &Server{
		port:              cfg.Port,
		cfg:               cfg,
		db:                db,
		store:             st,
		logger:            logger,
		authService:       authService,
		motivationService: motivationService,
		userdataHandler:   userdata.NewHandler(st, motivationService, logger),
	}

	s.handler = s.RegisterRoutes()
	return s
}

// HTTPServer returns the actual *http.Server instance.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", s.port),
		Handler: s.handler,
		// Batch generation can hold a request for the generator timeout.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.cfg.GeneratorTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     zap.NewStdLog(s.logger.Named("http")),
	}
}
