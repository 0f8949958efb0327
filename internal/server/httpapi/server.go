// Package httpapi exposes the token and user services over HTTP. Routing is
// chi, auth is a bearer access token checked by middleware, responses are
// JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mkuznecov/authkeeper/internal/logging"
	"github.com/mkuznecov/authkeeper/internal/server/auth"
	"github.com/mkuznecov/authkeeper/internal/server/models"
	"github.com/mkuznecov/authkeeper/internal/server/services"
)

type userSvc interface {
	Register(ctx context.Context, username, email, password, role string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, username, password string) (*models.User, *services.TokenPair, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id int64, email, role string) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type tokenSvc interface {
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type Server struct {
	address     string
	logger      logging.Logger
	users       userSvc
	tokens      tokenSvc
	issuer      *auth.Issuer
	corsOrigins []string
}

func NewServer(address string, logger logging.Logger, us *services.UserService, ts *services.TokenService, issuer *auth.Issuer, corsOrigins []string) *Server {
	return &Server{
		address:     address,
		logger:      logger.With("module", "http_server"),
		users:       us,
		tokens:      ts,
		issuer:      issuer,
		corsOrigins: corsOrigins,
	}
}

func (s *Server) router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Post("/refresh", s.refresh)
			r.Post("/revoke", s.revoke)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/me", s.me)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.listUsers)
				r.Get("/{id}", s.getUser)
				r.Put("/{id}", s.updateUser)
				r.Delete("/{id}", s.deleteUser)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{Addr: s.address, Handler: s.router()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "error shutting down HTTP server", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
