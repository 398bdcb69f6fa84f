package config

import (
	"context"
	"fmt"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/sethvargo/go-envconfig"
)

type Server struct {
	ListenAddr   string `env:"LISTEN_ADDR, default=0.0.0.0:3000"`
	DBPath       string `env:"DB_PATH, default=feedgen.db"`
	Hostname     string `env:"HOSTNAME, default=localhost"`
	ServiceDid   string `env:"SERVICE_DID"`
	PublisherDid string `env:"PUBLISHER_DID, default=did:example:alice"`

	// Exact post text that gets a post into the feed index.
	TriggerText string `env:"TRIGGER_TEXT, default=으어어"`
}

// Did returns the service identity, falling back to a did:web derived
// from the configured hostname.
func (s Server) Did() syntax.DID {
	if s.ServiceDid != "" {
		return syntax.DID(s.ServiceDid)
	}
	return syntax.DID(fmt.Sprintf("did:web:%s", s.Hostname))
}

type Firehose struct {
	Endpoint           string        `env:"ENDPOINT, default=wss://bsky.network"`
	ReconnectDelay     time.Duration `env:"RECONNECT_DELAY, default=5s"`
	CheckpointInterval int64         `env:"CHECKPOINT_INTERVAL, default=20"`
}

type Stream struct {
	QueueSize int `env:"QUEUE_SIZE, default=30"`
}

type Config struct {
	Server   Server   `env:",prefix=FEEDGEN_"`
	Firehose Firehose `env:",prefix=FEEDGEN_FIREHOSE_"`
	Stream   Stream   `env:",prefix=FEEDGEN_STREAM_"`
}

func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}

	// a malformed identity would be served verbatim in did.json and
	// describeFeedGenerator, so it is rejected here instead
	if cfg.Server.ServiceDid != "" {
		if _, err := syntax.ParseDID(cfg.Server.ServiceDid); err != nil {
			return nil, fmt.Errorf("invalid service did %q: %w", cfg.Server.ServiceDid, err)
		}
	}
	if _, err := syntax.ParseDID(cfg.Server.PublisherDid); err != nil {
		return nil, fmt.Errorf("invalid publisher did %q: %w", cfg.Server.PublisherDid, err)
	}

	return &cfg, nil
}
