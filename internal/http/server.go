package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"profilekeeper/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/swaggest/swgui"
	"github.com/swaggest/swgui/v5emb"
)

//go:embed swagger/openapi.json
var swaggerAssets embed.FS

type Server struct {
	httpServer *http.Server
	handler    *Handler
	cfg        config.HTTPServer
	log        *slog.Logger
}

func NewServer(cfg config.HTTPServer, profileService Profile, log *slog.Logger) *Server {
	s := &Server{
		handler: NewHandler(profileService, cfg.MaxImportSize, log),
		cfg:     cfg,
		log:     log,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Routes builds the router: the profile API under /api/v1, health and the
// Swagger UI.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/profiles", s.handler.List)
		r.Post("/profiles", s.handler.Create)
		r.Get("/profiles/{id}", s.handler.Get)
		r.Put("/profiles/{id}", s.handler.Update)
		r.Delete("/profiles/{id}", s.handler.Delete)
		r.Post("/profiles/{id}/open", s.handler.Open)
		r.Get("/export", s.handler.Export)
		r.Post("/import", s.handler.Import)
	})

	r.Get("/health", Health())

	s.setupSwaggerUI(r)

	return r
}

// Run serves until Stop is called.
func (s *Server) Run() error {
	const op = "http.Server.Run"

	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("http server started", slog.String("op", op), slog.String("addr", l.Addr().String()))

	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) setupSwaggerUI(r chi.Router) {
	swaggerHandler := v5emb.NewHandlerWithConfig(swgui.Config{
		Title:       "profilekeeper API",
		SwaggerJSON: "/swagger/openapi.json",
		BasePath:    "/swagger/",
		ShowTopBar:  true,
	})

	r.Get("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		data, err := swaggerAssets.ReadFile("swagger/openapi.json")
		if err != nil {
			s.log.Error("swagger spec not found", slog.String("error", err.Error()))
			http.Error(w, "swagger spec not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})

	r.Handle("/swagger/*", swaggerHandler)
	r.Handle("/swagger", http.RedirectHandler("/swagger/", http.StatusFound))
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	}
}
