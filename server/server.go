package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/eueoeo/feedgen/config"
	"github.com/eueoeo/feedgen/db"
	"github.com/eueoeo/feedgen/firehose"
	"github.com/eueoeo/feedgen/indexer"
	"github.com/eueoeo/feedgen/log"
	"github.com/eueoeo/feedgen/notifier"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:   "server",
		Usage:  "run the feed generator",
		Action: Run,
		Description: `
Environment variables:
	FEEDGEN_LISTEN_ADDR                  (default: 0.0.0.0:3000)
	FEEDGEN_DB_PATH                      (default: feedgen.db)
	FEEDGEN_HOSTNAME                     (default: localhost)
	FEEDGEN_SERVICE_DID                  (default: did:web:<hostname>)
	FEEDGEN_PUBLISHER_DID                (default: did:example:alice)
	FEEDGEN_TRIGGER_TEXT                 (default: 으어어)
	FEEDGEN_FIREHOSE_ENDPOINT            (default: wss://bsky.network)
	FEEDGEN_FIREHOSE_RECONNECT_DELAY     (default: 5s)
	FEEDGEN_FIREHOSE_CHECKPOINT_INTERVAL (default: 20)
	FEEDGEN_STREAM_QUEUE_SIZE            (default: 30)
`,
	}
}

func Run(ctx context.Context, cmd *cli.Command) error {
	logger := log.FromContext(ctx)

	c, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	d, err := db.Make(c.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer d.Close()

	// stop is the shared shutdown signal: fired by SIGINT/SIGTERM, or by
	// the subscription on a fatal error, so both halves go down together
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles := notifier.NewQueue(c.Stream.QueueSize)
	ix := indexer.New(d, c.Server.TriggerText, profiles, log.New("indexer"))

	sub := firehose.New(firehose.Config{
		Endpoint:           c.Firehose.Endpoint,
		Handler:            ix,
		Cursors:            d,
		ReconnectDelay:     c.Firehose.ReconnectDelay,
		CheckpointInterval: c.Firehose.CheckpointInterval,
		Stop:               stop,
		Logger:             log.New("firehose"),
	})

	var wg sync.WaitGroup
	var subErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		subErr = sub.Run(ctx)
	}()

	srv := &http.Server{
		Addr:    c.Server.ListenAddr,
		Handler: New(c, d, profiles, log.SubLogger(logger, "http")).Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "address", c.Server.ListenAddr, "did", c.Server.Did())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		wg.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	wg.Wait()
	if subErr != nil {
		return fmt.Errorf("subscription error: %w", subErr)
	}
	return nil
}
