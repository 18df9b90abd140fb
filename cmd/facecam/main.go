// facecam shows the camera feed with the largest face outlined and saves
// mirrored snapshots on demand.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/teslashibe/go-facecam/internal/config"
	"github.com/teslashibe/go-facecam/internal/httpc"
	"github.com/teslashibe/go-facecam/internal/log"
	"github.com/teslashibe/go-facecam/internal/modelfetch"
	"github.com/teslashibe/go-facecam/pkg/app"
	"github.com/teslashibe/go-facecam/pkg/detection"
	"github.com/teslashibe/go-facecam/pkg/display"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	var fetchModel bool
	cfg, err := config.Parse("facecam", os.Args[1:], func(fs *pflag.FlagSet) {
		fs.BoolVar(&fetchModel, "fetch-model", false, "Download the detector model when it is missing")
	})
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(exitOK)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "facecam: %v\n", err)
		os.Exit(exitConfig)
	}

	logger := log.Setup(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	code := exitOK
	display.MainWrapMaybe(func() {
		code = run(cfg, fetchModel)
	})
	logger.Debug("exiting", "code", code)
	os.Exit(code)
}

func run(cfg config.Config, fetchModel bool) int {
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if fetchModel && cfg.Detector.Backend != detection.BackendMock {
		fetcher := modelfetch.New(httpc.NewClient(0), log.Component("modelfetch"))
		if _, err := fetcher.Ensure(ctx, cfg.Detector.ModelPath, cfg.Detector.ModelURL); err != nil {
			logger.Error("model download failed", "error", err)
			return exitRuntime
		}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("configuration error", "error", err)
		return exitConfig
	}

	if err := a.Init(); err != nil {
		if errors.Is(err, detection.ErrModelMissing) {
			logger.Error("face model not found, run with --fetch-model or set detector.model_path",
				"path", cfg.Detector.ModelPath)
			return exitConfig
		}
		logger.Error("initialization failed", "error", err)
		return exitRuntime
	}
	defer func() {
		if err := a.Shutdown(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	if err := a.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
		return exitRuntime
	}
	return exitOK
}
