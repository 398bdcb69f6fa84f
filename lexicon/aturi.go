package lexicon

import (
	"errors"
	"strings"
)

// ErrInvalidProtocolPrefix is returned for at-uri strings missing the
// literal "at://" scheme.
var ErrInvalidProtocolPrefix = errors.New("at-uri must start with at://")

// AtUri is the structured form of "at://<authority>[/<collection>[/<rkey>]]".
// Empty Collection or Rkey means the segment is absent.
type AtUri struct {
	Authority  string
	Collection string
	Rkey       string
}

func ParseAtUri(s string) (AtUri, error) {
	rest, ok := strings.CutPrefix(s, "at://")
	if !ok {
		return AtUri{}, ErrInvalidProtocolPrefix
	}

	var u AtUri
	var found bool
	u.Authority, rest, found = strings.Cut(rest, "/")
	if found {
		u.Collection, u.Rkey, _ = strings.Cut(rest, "/")
	}
	return u, nil
}

// AtUriFromAuthPath builds an AtUri from a repo authority and a
// "<collection>/<rkey>" op path. Equivalent to parsing
// "at://" + authority + "/" + path.
func AtUriFromAuthPath(authority, path string) AtUri {
	u := AtUri{Authority: authority}
	u.Collection, u.Rkey, _ = strings.Cut(path, "/")
	return u
}

func (u AtUri) String() string {
	var b strings.Builder
	b.WriteString("at://")
	b.WriteString(u.Authority)
	if u.Collection != "" {
		b.WriteString("/")
		b.WriteString(u.Collection)
		if u.Rkey != "" {
			b.WriteString("/")
			b.WriteString(u.Rkey)
		}
	}
	return b.String()
}
