package db

import (
	"context"
	"database/sql"
	"fmt"
)

type Post struct {
	Uri       string
	Cid       string
	Author    string
	IndexedAt string
}

// AddPost indexes a post. Replayed events may insert the same uri twice;
// the conflict clause makes that a no-op rather than an error.
func (d *DB) AddPost(ctx context.Context, post Post) error {
	_, err := d.ExecContext(
		ctx,
		`insert into post (uri, cid, author, indexedAt)
		values (?, ?, ?, ?)
		on conflict (uri) do nothing`,
		post.Uri,
		post.Cid,
		post.Author,
		post.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add post: %w", err)
	}
	return nil
}

// DeletePost removes a post by uri. Deleting a uri that was never indexed
// is not an error.
func (d *DB) DeletePost(ctx context.Context, uri string) error {
	_, err := d.ExecContext(ctx, `delete from post where uri = ?`, uri)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// FeedPage is a keyset position within the feed ordering; zero value means
// start from the newest post.
type FeedPage struct {
	IndexedAt string
	Cid       string
}

// GetFeedPosts returns up to limit posts ordered by (indexedAt desc, cid desc),
// starting strictly after the given page position.
func (d *DB) GetFeedPosts(ctx context.Context, limit int, page *FeedPage) ([]Post, error) {
	var err error
	var rows *sql.Rows
	if page != nil {
		rows, err = d.QueryContext(
			ctx,
			`select uri, cid, author, indexedAt from post
			where indexedAt < ? or (indexedAt = ? and cid < ?)
			order by indexedAt desc, cid desc
			limit ?`,
			page.IndexedAt,
			page.IndexedAt,
			page.Cid,
			limit,
		)
	} else {
		rows, err = d.QueryContext(
			ctx,
			`select uri, cid, author, indexedAt from post
			order by indexedAt desc, cid desc
			limit ?`,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.Uri, &p.Cid, &p.Author, &p.IndexedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}
