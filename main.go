package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/api"
	"github.com/sinkhole-dns/sinkhole/cache"
	"github.com/sinkhole-dns/sinkhole/config"
	"github.com/sinkhole-dns/sinkhole/denylist"
	"github.com/sinkhole-dns/sinkhole/middleware"
	"github.com/sinkhole-dns/sinkhole/server"
	"github.com/sinkhole-dns/sinkhole/upstream"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/sinkhole-dns/sinkhole/middleware/accesslist"
	_ "github.com/sinkhole-dns/sinkhole/middleware/accesslog"
	_ "github.com/sinkhole-dns/sinkhole/middleware/blocklist"
	_ "github.com/sinkhole-dns/sinkhole/middleware/cache"
	_ "github.com/sinkhole-dns/sinkhole/middleware/forwarder"
	_ "github.com/sinkhole-dns/sinkhole/middleware/metrics"
	_ "github.com/sinkhole-dns/sinkhole/middleware/ratelimit"
	_ "github.com/sinkhole-dns/sinkhole/middleware/recovery"
)

var version = "0.1.0"

var cfgPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sinkhole",
		Short:         "Filtering, caching DNS forwarder",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	root.Flags().StringVarP(&cfgPath, "config", "c", "sinkhole.toml", "Location of config file, generated if it does not exist")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "sinkhole v"+version)
		},
	})

	return root
}

func setupLogger(level string) {
	logger := zlog.NewStructured()
	logger.SetWriter(zlog.StdoutTerminal())

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(zlog.LevelDebug)
	case "warn":
		logger.SetLevel(zlog.LevelWarn)
	case "error":
		logger.SetLevel(zlog.LevelError)
	default:
		logger.SetLevel(zlog.LevelInfo)
	}

	zlog.SetDefault(logger)
}

func run(ctx context.Context) error {
	setupLogger("info")

	cfg, err := config.Load(cfgPath, version)
	if err != nil {
		return err
	}

	setupLogger(cfg.LogLevel)

	zlog.Info("Starting sinkhole...", "version", version)

	store, err := denylist.Load(cfg.Denylist)
	if err != nil {
		return err
	}

	holder := denylist.NewHolder(store)

	client, err := upstream.New(cfg.Upstream, cfg.Timeout.Duration)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	qc := cache.New(cfg.CacheSize, clock)

	pipeline, err := middleware.Setup(&middleware.Resources{
		Config:   cfg,
		Denylist: holder,
		Cache:    qc,
		Upstream: client,
	})
	if err != nil {
		return err
	}

	var watcher *denylist.Watcher
	if cfg.WatchDenylist {
		if watcher, err = denylist.NewWatcher(cfg.Denylist, holder); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	srv := server.New(cfg, pipeline)
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	sweeper := cache.NewSweeper(qc, cfg.SweepInterval.Duration, clock)
	g.Go(func() error { return sweeper.Run(ctx) })

	if watcher != nil {
		g.Go(func() error { return watcher.Run(ctx) })
	}

	a := api.New(cfg.API, qc, holder)
	g.Go(func() error { return a.Run(ctx) })

	err = g.Wait()

	zlog.Info("Stopping sinkhole...")

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		zlog.Error("Sinkhole failed", "error", err.Error())
		os.Exit(1)
	}
}
