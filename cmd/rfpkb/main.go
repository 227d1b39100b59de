// Command rfpkb answers RFP questions from a curated knowledge base.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/rfpkb/internal/adapters/driving/cli"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

func init() {
	// A missing .env is normal.
	_ = godotenv.Load()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetBootstrap(bootstrap)
	err := cli.Execute(ctx)

	stop()
	_ = logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
