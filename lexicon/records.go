package lexicon

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	PostNSID          = "app.bsky.feed.post"
	RepostNSID        = "app.bsky.feed.repost"
	LikeNSID          = "app.bsky.feed.like"
	FollowNSID        = "app.bsky.graph.follow"
	FeedGeneratorNSID = "app.bsky.feed.generator"
)

// Record is the tagged union of record kinds this deployment understands;
// exactly one field is non-nil. Record kinds outside the union decode to
// the Unknown variant rather than an error, since repositories carry
// arbitrary collections.
type Record struct {
	Post    *Post
	Repost  *Repost
	Like    *Like
	Follow  *Follow
	Unknown *UnknownRecord
}

type Post struct {
	Text string `cbor:"text"`
}

type Repost struct {
	Subject   StrongRef `cbor:"subject"`
	CreatedAt string    `cbor:"createdAt"`
}

type Like struct {
	Subject   StrongRef `cbor:"subject"`
	CreatedAt string    `cbor:"createdAt"`
}

type Follow struct {
	Subject   string `cbor:"subject"`
	CreatedAt string `cbor:"createdAt"`
}

type UnknownRecord struct {
	Type string
}

// StrongRef points at a specific version of another record. A subject uri
// that does not parse yields Valid=false rather than a decode error, so
// callers can log and skip deliberately.
type StrongRef struct {
	Uri   AtUri
	Cid   string
	Valid bool
}

func (s *StrongRef) UnmarshalCBOR(data []byte) error {
	var raw struct {
		Uri string `cbor:"uri"`
		Cid string `cbor:"cid"`
	}
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("strong ref is not a map: %w", err)
	}

	uri, err := ParseAtUri(raw.Uri)
	if err != nil {
		*s = StrongRef{Cid: raw.Cid}
		return nil
	}
	*s = StrongRef{Uri: uri, Cid: raw.Cid, Valid: true}
	return nil
}

// WrongShapeError reports a block that is valid cbor but does not decode
// as its declared record type; Value carries the generic decoding for
// diagnostics.
type WrongShapeError struct {
	Type  string
	Value any
}

func (e *WrongShapeError) Error() string {
	return fmt.Sprintf("record of type %q has unexpected shape", e.Type)
}

// UndecodableError reports a block that is not valid cbor at all.
type UndecodableError struct {
	Raw []byte
}

func (e *UndecodableError) Error() string {
	return fmt.Sprintf("block does not decode as cbor (%d bytes)", len(e.Raw))
}

// DecodeRecord decodes a resolved block. Decoding is three-tier: the typed
// union first, then a generic map (WrongShapeError), then raw bytes
// (UndecodableError). A failure here is always a per-record condition, not
// a stream one.
func DecodeRecord(block []byte) (*Record, error) {
	var probe struct {
		Type string `cbor:"$type"`
	}
	if err := cbor.Unmarshal(block, &probe); err == nil && probe.Type != "" {
		if rec, err := decodeTypedRecord(probe.Type, block); err == nil {
			return rec, nil
		}
	}

	var generic any
	if err := cbor.Unmarshal(block, &generic); err == nil {
		return nil, &WrongShapeError{Type: probe.Type, Value: generic}
	}

	return nil, &UndecodableError{Raw: block}
}

func decodeTypedRecord(typ string, block []byte) (*Record, error) {
	var rec Record
	var err error

	switch typ {
	case PostNSID:
		var v Post
		err = cbor.Unmarshal(block, &v)
		rec.Post = &v
	case RepostNSID:
		var v Repost
		err = cbor.Unmarshal(block, &v)
		rec.Repost = &v
	case LikeNSID:
		var v Like
		err = cbor.Unmarshal(block, &v)
		rec.Like = &v
	case FollowNSID:
		var v Follow
		err = cbor.Unmarshal(block, &v)
		rec.Follow = &v
	default:
		rec.Unknown = &UnknownRecord{Type: typ}
	}

	if err != nil {
		return nil, err
	}
	return &rec, nil
}
