package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/talkincode/toughportal/config"
	"github.com/talkincode/toughportal/internal/app"
	"github.com/talkincode/toughportal/internal/portalapi"
	"github.com/talkincode/toughportal/internal/webserver"
	"go.uber.org/zap"
)

var (
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate the portal tables")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer application.Release()

	if *initdb {
		if err := application.InitDb(); err != nil {
			zap.L().Error("init database failed", zap.Error(err))
			return
		}
		zap.L().Info("database initialized")
		return
	}

	webserver.Init(cfg)
	portalapi.Init(application)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- webserver.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			zap.L().Error("portal web server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zap.L().Info("shutting down portal")
		if err := webserver.Shutdown(context.Background()); err != nil {
			zap.L().Error("web server shutdown error", zap.Error(err))
		}
	}
}
