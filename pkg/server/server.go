// Package server exposes the recommendation gateway over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/explore-jakarta/recocache/pkg/models"
	"github.com/explore-jakarta/recocache/pkg/recommend"
)

const (
	headerCache       = "X-Recocache-Cache"
	headerInvalidated = "X-Recocache-Invalidated"
)

// Rater submits ratings to the remote API.
type Rater interface {
	RatePlace(ctx context.Context, token string, placeID int64, value int) (models.Rating, error)
}

// History exposes recorded lookups. It is optional.
type History interface {
	Summary(ctx context.Context, since time.Time) ([]models.LookupSummary, error)
	Recent(ctx context.Context, n int) ([]models.LookupRecord, error)
}

// Server is the recocache HTTP front.
type Server struct {
	listen  string
	gateway *recommend.Gateway
	rater   Rater
	history History
	log     *slog.Logger
	router  chi.Router
}

// New creates a Server. rater and history may be nil; the routes that need
// them then answer 501.
func New(listen string, gw *recommend.Gateway, rater Rater, history History, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		listen:  listen,
		gateway: gw,
		rater:   rater,
		history: history,
		log:     log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/recommend", func(r chi.Router) {
		r.Get("/by_place", s.handleByPlace)
		r.Get("/by_hybrid", s.handleByUser)
		r.Get("/by_category", s.handleByCategory)
		r.Get("/nearby", s.handleNearby)
	})

	r.Post("/places/{id}/rate", s.handleRate)

	r.Route("/debug", func(r chi.Router) {
		r.Get("/cache", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheClear)
		r.Delete("/cache/users/{id}", s.handleInvalidateUser)
		r.Get("/lookups", s.handleLookups)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("recocache listening", "addr", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
