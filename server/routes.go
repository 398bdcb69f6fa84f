package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/eueoeo/feedgen/algos"
	"github.com/eueoeo/feedgen/lexicon"
	xrpcerr "github.com/eueoeo/feedgen/xrpc/errors"
)

const defaultFeedLimit = 50

func (s *Server) GetFeedSkeleton(w http.ResponseWriter, r *http.Request) {
	l := s.logger.With("handler", "GetFeedSkeleton")
	q := r.URL.Query()

	feedUri, err := lexicon.ParseAtUri(q.Get("feed"))
	if err != nil {
		writeError(w, xrpcerr.InvalidRequestError("feed must be a valid at-uri"), http.StatusBadRequest)
		return
	}

	limit := defaultFeedLimit
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, xrpcerr.InvalidRequestError("limit must be an integer"), http.StatusBadRequest)
			return
		}
	}
	limit = min(max(limit, 1), 100)

	algo, ok := s.algos[feedUri.Rkey]
	if !ok ||
		feedUri.Authority != s.cfg.Server.PublisherDid ||
		feedUri.Collection != lexicon.FeedGeneratorNSID {
		writeError(w, xrpcerr.UnsupportedAlgorithmError, http.StatusBadRequest)
		return
	}

	skeleton, err := algo.Handle(r.Context(), algos.Context{Db: s.db, Config: s.cfg}, algos.QueryParams{
		Feed:   q.Get("feed"),
		Limit:  limit,
		Cursor: q.Get("cursor"),
	})
	if err != nil {
		if errors.Is(err, algos.ErrBadCursor) {
			writeError(w, xrpcerr.InvalidRequestError("malformed cursor"), http.StatusBadRequest)
			return
		}
		l.Error("failed to generate feed", "feed", feedUri.Rkey, "err", err)
		writeError(w, xrpcerr.InternalServerError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, skeleton)
}

func (s *Server) DescribeFeedGenerator(w http.ResponseWriter, r *http.Request) {
	type feedRef struct {
		Uri string `json:"uri"`
	}

	feeds := make([]feedRef, 0, len(s.algos))
	for name := range s.algos {
		uri := lexicon.AtUri{
			Authority:  s.cfg.Server.PublisherDid,
			Collection: lexicon.FeedGeneratorNSID,
			Rkey:       name,
		}
		feeds = append(feeds, feedRef{Uri: uri.String()})
	}

	writeJSON(w, map[string]any{
		"did":   s.cfg.Server.Did().String(),
		"feeds": feeds,
	})
}

func (s *Server) WellKnownDid(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"@context": []string{"https://www.w3.org/ns/did/v1"},
		"id":       s.cfg.Server.Did().String(),
		"service": []map[string]any{
			{
				"id":              "#bsky_fg",
				"type":            "BskyFeedGenerator",
				"serviceEndpoint": "https://" + s.cfg.Server.Hostname,
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, e xrpcerr.XrpcError, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(e)
}
