package lexicon

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	car "github.com/ipld/go-car/v2"
)

// ReadBlockMap decodes a commit's CAR-encoded block archive into a lookup
// from cid string to record bytes. The map is commit-scoped; it is built
// once, consulted for each op, and discarded.
func ReadBlockMap(data []byte) (map[string][]byte, error) {
	br, err := car.NewBlockReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open block archive: %w", err)
	}

	blocks := make(map[string][]byte)
	for {
		blk, err := br.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read block: %w", err)
		}
		blocks[blk.Cid().String()] = blk.RawData()
	}

	return blocks, nil
}
