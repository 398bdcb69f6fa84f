package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eueoeo/feedgen/db"
	"github.com/eueoeo/feedgen/lexicon"
	"github.com/eueoeo/feedgen/log"
	"github.com/eueoeo/feedgen/notifier"
)

// Indexer applies decoded firehose events to the post index. Only the
// post lifecycle is indexed; every other event kind is observed and
// dropped.
type Indexer struct {
	db       *db.DB
	trigger  string
	profiles *notifier.Queue
	logger   *slog.Logger
}

func New(d *db.DB, trigger string, profiles *notifier.Queue, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = log.New("indexer")
	}
	return &Indexer{
		db:       d,
		trigger:  trigger,
		profiles: profiles,
		logger:   logger,
	}
}

func (ix *Indexer) HandleEvent(ctx context.Context, evt *lexicon.Event) error {
	commit := evt.Commit
	if commit == nil {
		return nil
	}
	if len(commit.Blocks) == 0 {
		// pure metadata commits carry no blocks
		ix.logger.Debug("dropping blockless commit", "seq", commit.Seq)
		return nil
	}

	blocks, err := lexicon.ReadBlockMap(commit.Blocks)
	if err != nil {
		return fmt.Errorf("failed to decode block archive: %w", err)
	}

	for _, op := range commit.Ops {
		switch op.Action {
		case lexicon.RepoOpCreate:
			if err := ix.indexCreate(ctx, commit.Repo, op, blocks); err != nil {
				return err
			}
		case lexicon.RepoOpUpdate:
			// updates never touch the index; posts are immutable once indexed
		case lexicon.RepoOpDelete:
			uri := lexicon.AtUriFromAuthPath(commit.Repo, op.Path).String()
			if err := ix.db.DeletePost(ctx, uri); err != nil {
				return err
			}
		default:
			ix.logger.Warn("unknown op action", "action", op.Action, "path", op.Path)
		}
	}

	return nil
}

func (ix *Indexer) indexCreate(ctx context.Context, author string, op lexicon.RepoOp, blocks map[string][]byte) error {
	if !op.Cid.Defined {
		return nil
	}
	cidStr := op.Cid.String()

	block, ok := blocks[cidStr]
	if !ok {
		ix.logger.Warn("op references a block missing from its archive",
			"cid", cidStr,
			"path", op.Path,
		)
		return nil
	}

	rec, err := lexicon.DecodeRecord(block)
	if err != nil {
		ix.logger.Warn("skipping undecodable record", "cid", cidStr, "path", op.Path, "err", err)
		return nil
	}

	if rec.Post == nil || rec.Post.Text != ix.trigger {
		return nil
	}

	uri := lexicon.AtUriFromAuthPath(author, op.Path).String()
	ix.logger.Debug("indexing post", "uri", uri, "author", author)

	err = ix.db.AddPost(ctx, db.Post{
		Uri:       uri,
		Cid:       cidStr,
		Author:    author,
		IndexedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if ix.profiles != nil {
		sent := ix.profiles.TrySend(notifier.UserProfile{
			Name:       author,
			LastCached: time.Now().Unix(),
		})
		if !sent {
			ix.logger.Debug("profile queue full, dropping notification", "author", author)
		}
	}
	return nil
}
