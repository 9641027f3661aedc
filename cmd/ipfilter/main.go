package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/xxxsen/common/logger"
	"go.uber.org/zap"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/config"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/pipeline"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// logger not initialised yet, fallback to stderr
		log.Fatalf("init config failed, err:%v", err)
	}
	logkit := logger.Init(cfg.Log.File, cfg.Log.Level, int(cfg.Log.FileCount),
		int(cfg.Log.FileSize), int(cfg.Log.KeepDays), cfg.Log.Console)
	defer logkit.Sync() //nolint:errcheck

	if cfg.Pprof.Enable {
		startPprofServer(cfg.Pprof.Bind, logkit)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		logkit.Fatal("build pipeline failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logkit.Fatal("blocklist build interrupted", zap.Error(err))
		}
		logkit.Fatal("blocklist build failed", zap.Error(err))
	}
	logkit.Info("blocklist build complete", zap.String("output", cfg.Output))
}
