package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/taiwoajasa245/streak-api/docs"
	"github.com/taiwoajasa245/streak-api/internal/auth"
	"github.com/taiwoajasa245/streak-api/internal/motivation"
	"github.com/taiwoajasa245/streak-api/pkg/config"
	"github.com/taiwoajasa245/streak-api/pkg/response"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.HealthHandler)

	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Route("/api", func(r chi.Router) {
		s.loadAuthRoutes(r)
		s.loadMotivationRoutes(r)
		s.loadDataRoutes(r)
	})

	return r
}

type HealthResponse struct {
	Status              string            `json:"status"`
	Message             string            `json:"message"`
	Storage             string            `json:"storage"`
	GeneratorConfigured bool              `json:"generatorConfigured"`
	Timestamp           time.Time         `json:"timestamp"`
	Database            map[string]string `json:"database,omitempty"`
}

// HealthHandler godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.APIResponse{data=HealthResponse}
// @Router       / [get]
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:              "ok",
		Message:             "Streak api is running",
		Storage:             s.cfg.StorageDriver,
		GeneratorConfigured: s.motivationService.GeneratorConfigured(),
		Timestamp:           time.Now(),
	}
	if s.db != nil {
		resp.Database = s.db.Health()
		if resp.Database["status"] != "up" {
			resp.Status = "degraded"
		}
	} else if resp.Storage == "" {
		resp.Storage = config.StorageFile
	}
	response.Success(w, resp, "Success")
}

func (s *Server) loadAuthRoutes(router chi.Router) {
	authHandler := auth.NewHandler(s.authService)

	router.Post("/register", authHandler.RegisterHandler)
	router.Post("/login", authHandler.LoginHandler)
	router.Post("/logout", authHandler.LogoutHandler)

	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.authService))
		r.Get("/me", authHandler.GetUserDetailsHandler)
	})
}

func (s *Server) loadMotivationRoutes(router chi.Router) {
	motivationHandler := motivation.NewHandler(s.motivationService)

	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.authService))
		r.Get("/motivation", motivationHandler.GetMotivationHandler)
		r.Post("/motivation/refresh", motivationHandler.RefreshMotivationHandler)
		r.Post("/admin/generate-quotes", motivationHandler.GenerateQuotesHandler)
	})
}

func (s *Server) loadDataRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.authService))
		r.Get("/data", s.userdataHandler.GetDataHandler)
		r.Post("/data", s.userdataHandler.SaveDataHandler)
	})
}
