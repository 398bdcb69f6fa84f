package indexer

import (
	"bytes"
	"context"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eueoeo/feedgen/db"
	"github.com/eueoeo/feedgen/lexicon"
	"github.com/eueoeo/feedgen/notifier"
)

const trigger = "으어어"

func testDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Make(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func countPosts(t *testing.T, d *db.DB) int {
	t.Helper()
	var n int
	require.NoError(t, d.QueryRow(`select count(*) from post`).Scan(&n))
	return n
}

func makeRecord(t *testing.T, rec map[string]any) ([]byte, cid.Cid) {
	t.Helper()
	data, err := cbor.Marshal(rec)
	require.NoError(t, err)
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	require.NoError(t, err)
	return data, cid.NewCidV1(cid.DagCBOR, mh)
}

func buildCar(t *testing.T, blocks map[cid.Cid][]byte) []byte {
	t.Helper()

	var root cid.Cid
	for c := range blocks {
		root = c
		break
	}

	hdr, err := cbor.Marshal(map[string]any{
		"version": 1,
		"roots":   []lexicon.CidLink{{Cid: root}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(varint.ToUvarint(uint64(len(hdr))))
	buf.Write(hdr)
	for c, data := range blocks {
		entry := append(c.Bytes(), data...)
		buf.Write(varint.ToUvarint(uint64(len(entry))))
		buf.Write(entry)
	}
	return buf.Bytes()
}

func commitEvent(t *testing.T, repo string, ops []lexicon.RepoOp, blocks map[cid.Cid][]byte) *lexicon.Event {
	t.Helper()
	return &lexicon.Event{Commit: &lexicon.Commit{
		Seq:    1,
		Repo:   repo,
		Blocks: buildCar(t, blocks),
		Ops:    ops,
	}}
}

func createOp(path string, c cid.Cid) lexicon.RepoOp {
	return lexicon.RepoOp{
		Action: lexicon.RepoOpCreate,
		Path:   path,
		Cid:    lexicon.NullableCidLink{CidLink: lexicon.CidLink{Cid: c}, Defined: true},
	}
}

func TestCreateThenDelete(t *testing.T) {
	d := testDB(t)
	ix := New(d, trigger, nil, nil)
	ctx := context.Background()

	data, c := makeRecord(t, map[string]any{"$type": lexicon.PostNSID, "text": trigger})
	path := "app.bsky.feed.post/3k0001"

	err := ix.HandleEvent(ctx, commitEvent(t, "did:plc:alice",
		[]lexicon.RepoOp{createOp(path, c)},
		map[cid.Cid][]byte{c: data},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, countPosts(t, d))

	var author string
	uri := "at://did:plc:alice/" + path
	require.NoError(t, d.QueryRow(`select author from post where uri = ?`, uri).Scan(&author))
	assert.Equal(t, "did:plc:alice", author)

	// delete commits have no blocks for the removed record; reuse the
	// archive so the event still parses
	err = ix.HandleEvent(ctx, commitEvent(t, "did:plc:alice",
		[]lexicon.RepoOp{{Action: lexicon.RepoOpDelete, Path: path}},
		map[cid.Cid][]byte{c: data},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, countPosts(t, d))
}

func TestReplayedOpsAreIdempotent(t *testing.T) {
	d := testDB(t)
	ix := New(d, trigger, nil, nil)
	ctx := context.Background()

	data, c := makeRecord(t, map[string]any{"$type": lexicon.PostNSID, "text": trigger})
	path := "app.bsky.feed.post/3k0002"
	evt := commitEvent(t, "did:plc:bob",
		[]lexicon.RepoOp{createOp(path, c)},
		map[cid.Cid][]byte{c: data},
	)

	require.NoError(t, ix.HandleEvent(ctx, evt))
	require.NoError(t, ix.HandleEvent(ctx, evt))
	assert.Equal(t, 1, countPosts(t, d))

	del := commitEvent(t, "did:plc:bob",
		[]lexicon.RepoOp{{Action: lexicon.RepoOpDelete, Path: path}},
		map[cid.Cid][]byte{c: data},
	)
	require.NoError(t, ix.HandleEvent(ctx, del))
	require.NoError(t, ix.HandleEvent(ctx, del))
	assert.Equal(t, 0, countPosts(t, d))
}

func TestUpdateLeavesIndexedPostUntouched(t *testing.T) {
	d := testDB(t)
	ix := New(d, trigger, nil, nil)
	ctx := context.Background()

	data, c := makeRecord(t, map[string]any{"$type": lexicon.PostNSID, "text": trigger})
	path := "app.bsky.feed.post/3k0010"

	require.NoError(t, ix.HandleEvent(ctx, commitEvent(t, "did:plc:erin",
		[]lexicon.RepoOp{createOp(path, c)},
		map[cid.Cid][]byte{c: data},
	)))
	require.Equal(t, 1, countPosts(t, d))

	// an edit rewrites the record under the same path with a new cid;
	// indexed posts are immutable, so the row must keep the original cid
	edited, editedCid := makeRecord(t, map[string]any{"$type": lexicon.PostNSID, "text": "edited away"})
	require.NoError(t, ix.HandleEvent(ctx, commitEvent(t, "did:plc:erin",
		[]lexicon.RepoOp{{
			Action: lexicon.RepoOpUpdate,
			Path:   path,
			Cid:    lexicon.NullableCidLink{CidLink: lexicon.CidLink{Cid: editedCid}, Defined: true},
		}},
		map[cid.Cid][]byte{editedCid: edited},
	)))

	assert.Equal(t, 1, countPosts(t, d))
	var gotCid string
	uri := "at://did:plc:erin/" + path
	require.NoError(t, d.QueryRow(`select cid from post where uri = ?`, uri).Scan(&gotCid))
	assert.Equal(t, c.String(), gotCid)
}

func TestMissingBlockIsSkipped(t *testing.T) {
	d := testDB(t)
	ix := New(d, trigger, nil, nil)

	data, c := makeRecord(t, map[string]any{"$type": lexicon.PostNSID, "text": trigger})
	_, other := makeRecord(t, map[string]any{"$type": lexicon.PostNSID, "text": "elsewhere"})

	err := ix.HandleEvent(context.Background(), commitEvent(t, "did:plc:carol",
		[]lexicon.RepoOp{createOp("app.bsky.feed.post/3k0003", other)},
		map[cid.Cid][]byte{c: data},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, countPosts(t, d))
}

func TestBlocklessCommitIsDropped(t *testing.T) {
	d := testDB(t)
	ix := New(d, trigger, nil, nil)

	err := ix.HandleEvent(context.Background(), &lexicon.Event{Commit: &lexicon.Commit{
		Seq:  9,
		Repo: "did:plc:alice",
		Ops:  []lexicon.RepoOp{{Action: lexicon.RepoOpDelete, Path: "app.bsky.feed.post/x"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, countPosts(t, d))
}

func TestNonTriggerTextIsIgnored(t *testing.T) {
	d := testDB(t)
	ix := New(d, trigger, nil, nil)

	data, c := makeRecord(t, map[string]any{"$type": lexicon.PostNSID, "text": "hello world"})
	err := ix.HandleEvent(context.Background(), commitEvent(t, "did:plc:alice",
		[]lexicon.RepoOp{createOp("app.bsky.feed.post/3k0004", c)},
		map[cid.Cid][]byte{c: data},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, countPosts(t, d))
}

func TestNonPostRecordIsIgnored(t *testing.T) {
	d := testDB(t)
	ix := New(d, trigger, nil, nil)

	data, c := makeRecord(t, map[string]any{
		"$type":     lexicon.LikeNSID,
		"subject":   map[string]any{"uri": "at://did:plc:bob/app.bsky.feed.post/1", "cid": "x"},
		"createdAt": "2024-01-01T00:00:00Z",
	})
	err := ix.HandleEvent(context.Background(), commitEvent(t, "did:plc:alice",
		[]lexicon.RepoOp{createOp("app.bsky.feed.like/3k0005", c)},
		map[cid.Cid][]byte{c: data},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, countPosts(t, d))
}

func TestNonCommitEventsAreIgnored(t *testing.T) {
	ix := New(testDB(t), trigger, nil, nil)

	err := ix.HandleEvent(context.Background(), &lexicon.Event{
		Identity: &lexicon.Identity{Seq: 3, Did: "did:plc:alice"},
	})
	require.NoError(t, err)
}

func TestIndexedPostNotifiesProfileQueue(t *testing.T) {
	d := testDB(t)
	profiles := notifier.NewQueue(4)
	ix := New(d, trigger, profiles, nil)

	data, c := makeRecord(t, map[string]any{"$type": lexicon.PostNSID, "text": trigger})
	err := ix.HandleEvent(context.Background(), commitEvent(t, "did:plc:dan",
		[]lexicon.RepoOp{createOp("app.bsky.feed.post/3k0006", c)},
		map[cid.Cid][]byte{c: data},
	))
	require.NoError(t, err)

	select {
	case p := <-profiles.C():
		assert.Equal(t, "did:plc:dan", p.Name)
		assert.NotZero(t, p.LastCached)
	default:
		t.Fatal("expected a profile notification")
	}
}
