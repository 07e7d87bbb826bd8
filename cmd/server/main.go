package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/soluciones-gbh/demo-api/internal/platform/config"
	"github.com/soluciones-gbh/demo-api/internal/platform/logging"
	"github.com/soluciones-gbh/demo-api/internal/server"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	defer func() {
		// Syncing stdout returns EINVAL on some platforms; nothing to do about it.
		_ = logging.Sync()
	}()
	if err := logging.Err(); err != nil {
		logging.LogError(ctx, "logger init error", err)
	}

	cfg, warnings := config.Load()
	logging.SetLevel(cfg.LogLevel)
	for _, w := range warnings {
		logging.LogWarn(ctx, "config value ignored",
			zap.String("key", w.Key), zap.String("value", w.Value), zap.String("reason", w.Reason))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, server.NewRouter(Version))
	if err := server.Run(ctx, srv); err != nil {
		logging.LogError(ctx, "server failed", err, zap.String("addr", srv.Addr))
		return 1
	}
	return 0
}
