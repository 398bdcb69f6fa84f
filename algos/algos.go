package algos

import (
	"context"
	"errors"

	"github.com/eueoeo/feedgen/config"
	"github.com/eueoeo/feedgen/db"
)

// ErrBadCursor marks a pagination cursor the client sent that does not
// parse; routes map it to InvalidRequest.
var ErrBadCursor = errors.New("malformed cursor")

type Context struct {
	Db     *db.DB
	Config *config.Config
}

type QueryParams struct {
	Feed   string
	Limit  int
	Cursor string
}

type FeedItem struct {
	Post string `json:"post"`
}

type FeedSkeleton struct {
	Cursor *string    `json:"cursor,omitempty"`
	Feed   []FeedItem `json:"feed"`
}

type Handler interface {
	ShortName() string
	Handle(ctx context.Context, actx Context, params QueryParams) (*FeedSkeleton, error)
}

// All returns the registered feed algorithms keyed by short name.
// Registration is static; a new algorithm is added to this list.
func All() map[string]Handler {
	handlers := map[string]Handler{}
	for _, h := range []Handler{
		&Eueoeo{},
	} {
		handlers[h.ShortName()] = h
	}
	return handlers
}
