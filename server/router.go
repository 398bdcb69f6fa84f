package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eueoeo/feedgen/algos"
	"github.com/eueoeo/feedgen/config"
	"github.com/eueoeo/feedgen/db"
	"github.com/eueoeo/feedgen/notifier"
)

type Server struct {
	cfg      *config.Config
	db       *db.DB
	algos    map[string]algos.Handler
	profiles *notifier.Queue
	logger   *slog.Logger
}

func New(cfg *config.Config, d *db.DB, profiles *notifier.Queue, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		db:       d,
		algos:    algos.All(),
		profiles: profiles,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("This is a bsky feed generator."))
	})

	r.Route("/xrpc", func(r chi.Router) {
		r.Get("/app.bsky.feed.getFeedSkeleton", s.GetFeedSkeleton)
		r.Get("/app.bsky.feed.describeFeedGenerator", s.DescribeFeedGenerator)
	})

	r.Get("/.well-known/did.json", s.WellKnownDid)

	// server-sent-events drain of the profile queue
	r.Get("/stream", s.Stream)

	return r
}
