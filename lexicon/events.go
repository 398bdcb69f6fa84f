package lexicon

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// SubscribeReposID is the xrpc method id of the firehose subscription.
const SubscribeReposID = "com.atproto.sync.subscribeRepos"

// Event is the tagged union of subscribeRepos message kinds; exactly one
// field is non-nil.
type Event struct {
	Commit    *Commit
	Identity  *Identity
	Account   *Account
	Handle    *Handle
	Migrate   *Migrate
	Tombstone *Tombstone
	Info      *Info
}

type Commit struct {
	Seq    int64           `cbor:"seq"`
	Time   string          `cbor:"time"`
	Rebase bool            `cbor:"rebase"`
	TooBig bool            `cbor:"tooBig"`
	Repo   string          `cbor:"repo"`
	Commit CidLink         `cbor:"commit"`
	Prev   NullableCidLink `cbor:"prev"`
	Rev    string          `cbor:"rev"`
	Since  string          `cbor:"since"`
	Blocks []byte          `cbor:"blocks"`
	Ops    []RepoOp        `cbor:"ops"`
	Blobs  []CidLink       `cbor:"blobs"`
}

type Identity struct {
	Seq    int64  `cbor:"seq"`
	Time   string `cbor:"time"`
	Did    string `cbor:"did"`
	Handle string `cbor:"handle"`
}

type Account struct {
	Seq    int64  `cbor:"seq"`
	Time   string `cbor:"time"`
	Did    string `cbor:"did"`
	Active bool   `cbor:"active"`
	Status string `cbor:"status"`
}

type Handle struct {
	Seq    int64  `cbor:"seq"`
	Time   string `cbor:"time"`
	Did    string `cbor:"did"`
	Handle string `cbor:"handle"`
}

type Migrate struct {
	Seq       int64  `cbor:"seq"`
	Time      string `cbor:"time"`
	Did       string `cbor:"did"`
	MigrateTo string `cbor:"migrateTo"`
}

type Tombstone struct {
	Seq  int64  `cbor:"seq"`
	Time string `cbor:"time"`
	Did  string `cbor:"did"`
}

type Info struct {
	Name    string `cbor:"name"`
	Message string `cbor:"message"`
}

type RepoOpAction string

const (
	RepoOpCreate RepoOpAction = "create"
	RepoOpUpdate RepoOpAction = "update"
	RepoOpDelete RepoOpAction = "delete"
)

type RepoOp struct {
	Action RepoOpAction    `cbor:"action"`
	Path   string          `cbor:"path"`
	Cid    NullableCidLink `cbor:"cid"`
}

// DecodeEventBody decodes the dag-cbor body of a frame into the event
// variant named by the header type tag.
func DecodeEventBody(tag string, body []byte) (*Event, error) {
	var evt Event
	var err error

	switch tag {
	case "#commit":
		var v Commit
		err = cbor.Unmarshal(body, &v)
		evt.Commit = &v
	case "#identity":
		var v Identity
		err = cbor.Unmarshal(body, &v)
		evt.Identity = &v
	case "#account":
		var v Account
		err = cbor.Unmarshal(body, &v)
		evt.Account = &v
	case "#handle":
		var v Handle
		err = cbor.Unmarshal(body, &v)
		evt.Handle = &v
	case "#migrate":
		var v Migrate
		err = cbor.Unmarshal(body, &v)
		evt.Migrate = &v
	case "#tombstone":
		var v Tombstone
		err = cbor.Unmarshal(body, &v)
		evt.Tombstone = &v
	case "#info":
		var v Info
		err = cbor.Unmarshal(body, &v)
		evt.Info = &v
	default:
		return nil, fmt.Errorf("unknown event tag - %s", tag)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", tag, err)
	}
	return &evt, nil
}
