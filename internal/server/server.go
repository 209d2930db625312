// Package server provides the HTTP server and routing for the portfolio API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/goals"
	ledgerhandlers "github.com/ozank/portfoy/internal/modules/ledger/handlers"
	portfoliohandlers "github.com/ozank/portfoy/internal/modules/portfolio/handlers"
	"github.com/ozank/portfoy/internal/modules/watchlist"
	"github.com/ozank/portfoy/internal/session"
)

// Config holds server configuration.
type Config struct {
	Port              int
	DevMode           bool
	Log               zerolog.Logger
	Sessions          *session.Manager
	LedgerHandlers    *ledgerhandlers.Handler
	PortfolioHandlers *portfoliohandlers.Handler
	GoalRepo          *goals.Repository
	Watchlist         *watchlist.Service
}

// Server represents the HTTP server.
type Server struct {
	router          *chi.Mux
	server          *http.Server
	log             zerolog.Logger
	sessions        *session.Manager
	ledgerHandlers  *ledgerhandlers.Handler
	folioHandlers   *portfoliohandlers.Handler
	sessionHandlers *SessionHandlers
	goalHandlers    *GoalHandlers
	watchHandlers   *WatchlistHandlers
	systemHandlers  *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		log:             cfg.Log.With().Str("component", "server").Logger(),
		sessions:        cfg.Sessions,
		ledgerHandlers:  cfg.LedgerHandlers,
		folioHandlers:   cfg.PortfolioHandlers,
		sessionHandlers: NewSessionHandlers(cfg.Sessions, cfg.Log),
		goalHandlers:    NewGoalHandlers(cfg.GoalRepo, cfg.Log),
		watchHandlers:   NewWatchlistHandlers(cfg.Watchlist, cfg.Log),
		systemHandlers:  NewSystemHandlers(cfg.Log),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	corsOrigins := []string{"http://localhost:3000"}
	if cfg.DevMode {
		corsOrigins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	// Public: session lifecycle, system health, watchlist reference data.
	s.router.Post("/api/session", s.sessionHandlers.HandleLogin)
	s.router.Get("/api/system/health", s.systemHandlers.HandleHealth)
	s.router.Get("/api/watchlist", s.watchHandlers.HandleList)
	s.router.Get("/api/watchlist/quotes", s.watchHandlers.HandleQuotes)

	// Owner-scoped routes behind the session middleware.
	s.router.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Delete("/api/session", s.sessionHandlers.HandleLogout)

		r.Post("/api/transactions", s.ledgerHandlers.HandleRecord)
		r.Get("/api/transactions", s.ledgerHandlers.HandleHistory)
		r.Delete("/api/transactions/{id}", s.ledgerHandlers.HandleDelete)

		r.Get("/api/portfolio", s.folioHandlers.HandleGetPortfolio)
		r.Get("/api/portfolio/heatmap", s.folioHandlers.HandleHeatmap)
		r.Post("/api/portfolio/refresh", s.folioHandlers.HandleRefreshPrices)

		r.Get("/api/goal", s.goalHandlers.HandleGet)
		r.Put("/api/goal", s.goalHandlers.HandleSet)
	})
}

// sessionMiddleware resolves the session token and injects the owner into
// the request context. Requests without a live session are rejected.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Session-Token")
		if token == "" {
			http.Error(w, `{"error":"missing session token"}`, http.StatusUnauthorized)
			return
		}

		sess, err := s.sessions.Resolve(token)
		if err != nil {
			http.Error(w, `{"error":"invalid session token"}`, http.StatusUnauthorized)
			return
		}

		ctx := session.WithOwner(r.Context(), sess.Owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
