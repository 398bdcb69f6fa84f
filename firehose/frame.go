package firehose

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/eueoeo/feedgen/lexicon"
)

const (
	frameOpMessage = 1
	frameOpError   = -1
)

// frameHeader is the first of the two dag-cbor values packed into one
// websocket frame.
type frameHeader struct {
	Op int8   `cbor:"op"`
	T  string `cbor:"t"`
}

// ErrorFrame is a stream-level error sent by the relay in place of an
// event, e.g. FutureCursor or ConsumerTooSlow.
type ErrorFrame struct {
	Kind    string
	Message string
}

func (e *ErrorFrame) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("error frame from relay - %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("error frame from relay - %s", e.Kind)
}

// DecodeFrame decodes one binary frame: a header value followed by a body
// value. The header decode must ignore the trailing body bytes; the byte
// offset where the header ends is where the body starts.
func DecodeFrame(data []byte) (*lexicon.Event, error) {
	dec := cbor.NewDecoder(bytes.NewReader(data))

	var hdr frameHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("failed to decode frame header: %w", err)
	}

	body := data[dec.NumBytesRead():]
	if len(body) == 0 {
		return nil, errors.New("frame has no body")
	}

	switch hdr.Op {
	case frameOpMessage:
		return lexicon.DecodeEventBody(hdr.T, body)
	case frameOpError:
		var ef struct {
			Error   string `cbor:"error"`
			Message string `cbor:"message"`
		}
		if err := cbor.Unmarshal(body, &ef); err != nil {
			return nil, fmt.Errorf("failed to decode error frame body: %w", err)
		}
		return nil, &ErrorFrame{Kind: ef.Error, Message: ef.Message}
	default:
		return nil, fmt.Errorf("unknown frame op %d", hdr.Op)
	}
}
