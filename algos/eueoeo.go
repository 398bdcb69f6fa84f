package algos

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eueoeo/feedgen/db"
)

// Eueoeo serves the trigger-post feed: every indexed post, newest first,
// paginated by an "<indexedAt-millis>::<cid>" keyset cursor.
type Eueoeo struct{}

func (*Eueoeo) ShortName() string {
	return "eueoeo"
}

func (*Eueoeo) Handle(ctx context.Context, actx Context, params QueryParams) (*FeedSkeleton, error) {
	var page *db.FeedPage
	if params.Cursor != "" {
		p, err := parseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		page = p
	}

	posts, err := actx.Db.GetFeedPosts(ctx, params.Limit, page)
	if err != nil {
		return nil, err
	}

	skeleton := &FeedSkeleton{Feed: make([]FeedItem, 0, len(posts))}
	for _, p := range posts {
		skeleton.Feed = append(skeleton.Feed, FeedItem{Post: p.Uri})
	}
	if len(posts) > 0 {
		c, err := encodeCursor(posts[len(posts)-1])
		if err != nil {
			return nil, err
		}
		skeleton.Cursor = &c
	}
	return skeleton, nil
}

func parseCursor(s string) (*db.FeedPage, error) {
	millis, cid, found := strings.Cut(s, "::")
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrBadCursor, s)
	}
	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad indexedAt part %q", ErrBadCursor, millis)
	}
	return &db.FeedPage{
		IndexedAt: time.UnixMilli(ms).UTC().Format(time.RFC3339),
		Cid:       cid,
	}, nil
}

func encodeCursor(p db.Post) (string, error) {
	t, err := time.Parse(time.RFC3339, p.IndexedAt)
	if err != nil {
		return "", fmt.Errorf("stored indexedAt %q does not parse: %w", p.IndexedAt, err)
	}
	return fmt.Sprintf("%d::%s", t.UnixMilli(), p.Cid), nil
}
