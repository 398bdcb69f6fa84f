package algos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eueoeo/feedgen/db"
)

func seededDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Make(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	for _, p := range []db.Post{
		{Uri: "at://did:plc:a/app.bsky.feed.post/1", Cid: "bafya", Author: "did:plc:a", IndexedAt: "2024-05-01T10:00:00Z"},
		{Uri: "at://did:plc:b/app.bsky.feed.post/2", Cid: "bafyb", Author: "did:plc:b", IndexedAt: "2024-05-01T10:01:00Z"},
		{Uri: "at://did:plc:c/app.bsky.feed.post/3", Cid: "bafyc", Author: "did:plc:c", IndexedAt: "2024-05-01T10:02:00Z"},
	} {
		require.NoError(t, d.AddPost(ctx, p))
	}
	return d
}

func TestEueoeoPagination(t *testing.T) {
	actx := Context{Db: seededDB(t)}
	algo := &Eueoeo{}
	ctx := context.Background()

	first, err := algo.Handle(ctx, actx, QueryParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Feed, 2)
	assert.Equal(t, "at://did:plc:c/app.bsky.feed.post/3", first.Feed[0].Post)
	assert.Equal(t, "at://did:plc:b/app.bsky.feed.post/2", first.Feed[1].Post)
	require.NotNil(t, first.Cursor)

	wantMillis, err := time.Parse(time.RFC3339, "2024-05-01T10:01:00Z")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d::bafyb", wantMillis.UnixMilli()), *first.Cursor)

	second, err := algo.Handle(ctx, actx, QueryParams{Limit: 2, Cursor: *first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Feed, 1)
	assert.Equal(t, "at://did:plc:a/app.bsky.feed.post/1", second.Feed[0].Post)
	for _, item := range second.Feed {
		assert.NotContains(t, []string{first.Feed[0].Post, first.Feed[1].Post}, item.Post)
	}
}

func TestEueoeoEmptyFeedHasNoCursor(t *testing.T) {
	d, err := db.Make(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	skeleton, err := (&Eueoeo{}).Handle(context.Background(), Context{Db: d}, QueryParams{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, skeleton.Feed)
	assert.Nil(t, skeleton.Cursor)
}

func TestEueoeoMalformedCursor(t *testing.T) {
	actx := Context{Db: seededDB(t)}
	algo := &Eueoeo{}
	ctx := context.Background()

	for _, cursor := range []string{"garbage", "abc::bafyb", "::"} {
		_, err := algo.Handle(ctx, actx, QueryParams{Limit: 2, Cursor: cursor})
		assert.ErrorIs(t, err, ErrBadCursor, "cursor %q", cursor)
	}
}
