// Command uaserver serves the address space over the HTTP gateway.
//
// Usage:
//
//	uaserver [-config uaspace.yaml]
//
// SIGHUP re-reads the configuration file and applies the log level.
// SIGINT and SIGTERM drain in-flight requests and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-uaspace/pkg/api"
	"github.com/dd0wney/cluso-uaspace/pkg/bootstrap"
	"github.com/dd0wney/cluso-uaspace/pkg/config"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration (defaults only when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "uaserver:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, "uaserver")
	logging.SetDefaultLogger(logger)

	rt, err := bootstrap.New(cfg, bootstrap.WithLogger(logger))
	if err != nil {
		return err
	}
	defer rt.Close()

	gateway, err := api.NewServer(rt)
	if err != nil {
		return err
	}
	srv := server.NewGracefulServer(cfg.Server, gateway, logger)
	srv.SetReloadFunc(func() error {
		next, err := config.Load(configPath)
		if err != nil {
			return err
		}
		rt.Reload(next)
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("uaserver starting",
		logging.String("addr", cfg.Server.Addr),
		logging.Bool("sample", cfg.AddressSpace.Sample),
		logging.Int("models", len(cfg.AddressSpace.Models)),
		logging.String("auth", cfg.Auth.Mode),
		logging.String("history", cfg.History.Provider),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return rt.Start(gctx) })
	g.Go(func() error {
		rt.Simulate(gctx)
		return nil
	})
	g.Go(func() error {
		srv.HandleReloads(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("uaserver stopped", logging.Error(err))
		return err
	}
	logger.Info("uaserver stopped")
	return nil
}
