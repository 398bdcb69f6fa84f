package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/eueoeo/feedgen/log"
	"github.com/eueoeo/feedgen/server"
)

func main() {
	cmd := &cli.Command{
		Name:  "feedgen",
		Usage: "bsky feed generator",
		Commands: []*cli.Command{
			server.Command(),
		},
	}

	ctx := context.Background()
	logger := log.New("feedgen")
	ctx = log.IntoContext(ctx, logger)

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}
}
