package lexicon

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
)

// CidLink is a content identifier as it appears in dag-cbor: tag 42 over
// the binary cid with an identity-multibase prefix byte.
type CidLink struct {
	cid.Cid
}

func (l *CidLink) UnmarshalCBOR(data []byte) error {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("cid link is not a cbor tag: %w", err)
	}
	if tag.Number != 42 {
		return fmt.Errorf("unexpected cbor tag %d for cid link", tag.Number)
	}

	var raw []byte
	if err := cbor.Unmarshal(tag.Content, &raw); err != nil {
		return fmt.Errorf("cid link content is not a byte string: %w", err)
	}
	if len(raw) > 0 && raw[0] == 0x00 {
		raw = raw[1:]
	}

	c, err := cid.Cast(raw)
	if err != nil {
		return fmt.Errorf("failed to cast cid bytes: %w", err)
	}
	l.Cid = c
	return nil
}

func (l CidLink) MarshalCBOR() ([]byte, error) {
	content, err := cbor.Marshal(append([]byte{0x00}, l.Bytes()...))
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(cbor.RawTag{Number: 42, Content: content})
}

// NullableCidLink tolerates null and malformed values; Defined reports
// whether a usable cid was present. The relay has emitted garbage in
// optional cid positions (notably commit prev) on historical ranges of
// the stream, and nothing downstream may fail on those.
type NullableCidLink struct {
	CidLink
	Defined bool
}

func (l *NullableCidLink) UnmarshalCBOR(data []byte) error {
	var inner CidLink
	if err := inner.UnmarshalCBOR(data); err != nil {
		*l = NullableCidLink{}
		return nil
	}
	l.CidLink = inner
	l.Defined = true
	return nil
}

func (l NullableCidLink) MarshalCBOR() ([]byte, error) {
	if !l.Defined {
		return cbor.Marshal(nil)
	}
	return l.CidLink.MarshalCBOR()
}
