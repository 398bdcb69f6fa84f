package firehose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"

	"github.com/eueoeo/feedgen/lexicon"
	"github.com/eueoeo/feedgen/log"
)

// EventHandler consumes decoded events, one at a time, in arrival order.
type EventHandler interface {
	HandleEvent(ctx context.Context, evt *lexicon.Event) error
}

// CursorStore is the durable record of how far the stream has been
// processed; *db.DB satisfies it.
type CursorStore interface {
	GetCursor(ctx context.Context) (seq int64, ok bool, err error)
	SaveCursor(ctx context.Context, seq int64) error
}

type Config struct {
	// Endpoint is the relay base url, e.g. wss://bsky.network.
	Endpoint string
	Handler  EventHandler
	Cursors  CursorStore

	// ReconnectDelay is the fixed backoff between recoverable failures.
	ReconnectDelay time.Duration
	// CheckpointInterval saves the cursor on every commit whose seq is a
	// multiple of it, bounding replay distance after a crash.
	CheckpointInterval int64

	// Stop broadcasts process shutdown to co-running components; fired at
	// most once, on a fatal error.
	Stop   context.CancelFunc
	Logger *slog.Logger
}

// Subscription owns one logical connection to the firehose: it builds the
// resumable url from the stored cursor, feeds frames through the codec to
// the handler, and reconnects on recoverable failures.
type Subscription struct {
	cfg      Config
	dialer   *websocket.Dialer
	logger   *slog.Logger
	stopOnce sync.Once
}

func New(cfg Config) *Subscription {
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 20
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New("firehose")
	}
	return &Subscription{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		logger: cfg.Logger,
	}
}

// Run drives the session until the context is cancelled or a fatal error
// occurs. A fatal error fires the shared stop signal so the serving layer
// shuts down with the ingestion path.
func (s *Subscription) Run(ctx context.Context) error {
	err := retry.Do(
		func() error { return s.stream(ctx) },
		retry.Attempts(0),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(s.cfg.ReconnectDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !IsFatal(err) }),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Error("stream broken, reconnecting",
				"attempt", n+1,
				"delay", s.cfg.ReconnectDelay,
				"err", err,
			)
		}),
	)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	if IsFatal(err) {
		s.logger.Error("stopping process on fatal subscription error", "err", err)
		s.signalStop()
	}
	return err
}

// stream runs one connection cycle: resume from the stored cursor, read
// frames until the connection breaks or shutdown is requested. It returns
// nil only on a clean stop.
func (s *Subscription) stream(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	cur, haveCursor, err := s.cfg.Cursors.GetCursor(ctx)
	if err != nil {
		return fatal(fmt.Errorf("failed to load cursor: %w", err))
	}

	u, err := s.buildURL(cur, haveCursor)
	if err != nil {
		return fatal(err)
	}

	s.logger.Info("connecting to firehose", "url", u)
	conn, _, err := s.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return fatal(fmt.Errorf("failed to connect to %s: %w", u, err))
	}
	defer conn.Close()

	// a blocked read must still observe shutdown; closing the socket is
	// what unblocks it
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	s.logger.Info("streaming", "resumed", haveCursor, "cursor", cur)

	for {
		if ctx.Err() != nil {
			s.logger.Info("stop requested, ending stream")
			return nil
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("stop requested, ending stream")
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		evt, err := DecodeFrame(data)
		if err != nil {
			// a relay error frame (FutureCursor etc.) describes a condition
			// that will not clear by reconnecting with the same cursor
			var ef *ErrorFrame
			if errors.As(err, &ef) {
				return fatal(err)
			}
			return fmt.Errorf("failed to decode frame: %w", err)
		}

		checkpoint := int64(-1)
		if evt.Commit != nil && evt.Commit.Seq%s.cfg.CheckpointInterval == 0 {
			checkpoint = evt.Commit.Seq
		}

		if err := s.cfg.Handler.HandleEvent(ctx, evt); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}

		if checkpoint >= 0 {
			if err := s.cfg.Cursors.SaveCursor(ctx, checkpoint); err != nil {
				return fmt.Errorf("failed to checkpoint cursor: %w", err)
			}
			s.logger.Debug("cursor checkpointed", "seq", checkpoint)
		}
	}
}

func (s *Subscription) buildURL(cursor int64, haveCursor bool) (string, error) {
	u, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("malformed endpoint %q: %w", s.cfg.Endpoint, err)
	}
	u = u.JoinPath("xrpc", lexicon.SubscribeReposID)
	if haveCursor {
		q := url.Values{}
		q.Set("cursor", strconv.FormatInt(cursor, 10))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Subscription) signalStop() {
	s.stopOnce.Do(func() {
		if s.cfg.Stop != nil {
			s.cfg.Stop()
		}
	})
}
