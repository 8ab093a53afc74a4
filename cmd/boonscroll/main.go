package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/boonscroll/pkg/adapter/reddit"
	"github.com/umputun/boonscroll/pkg/adapter/rss"
	"github.com/umputun/boonscroll/pkg/adapter/weather"
	"github.com/umputun/boonscroll/pkg/adapter/youtube"
	"github.com/umputun/boonscroll/pkg/config"
	"github.com/umputun/boonscroll/pkg/dismiss"
	"github.com/umputun/boonscroll/pkg/fetch"
	"github.com/umputun/boonscroll/pkg/readsync"
	"github.com/umputun/boonscroll/pkg/recipe"
	"github.com/umputun/boonscroll/pkg/scroll"
	"github.com/umputun/boonscroll/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug)

	log.Printf("[INFO] starting boonscroll version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] boonscroll failed: %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run loads the config, wires all collaborators together and serves until the
// context is canceled
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fetchCfg := cfg.GetFetchConfig()
	scrollCfg := cfg.GetScrollConfig()
	syncCfg := cfg.GetReadSyncConfig()

	// built-in source adapters; external ones plug in through the same registry
	registry := fetch.NewRegistry()
	registry.Register("rss", rss.New(rss.Config{Timeout: fetchCfg.Timeouts["rss"], UserAgent: fetchCfg.UserAgent}))
	registry.Register("reddit", reddit.New(reddit.Config{Timeout: fetchCfg.Timeouts["reddit"], UserAgent: fetchCfg.UserAgent}))
	registry.Register("youtube", youtube.New(youtube.Config{Timeout: fetchCfg.Timeouts["youtube"], UserAgent: fetchCfg.UserAgent}))
	registry.Register("weather", weather.New(weather.Config{Timeout: fetchCfg.Timeouts["weather"], UserAgent: fetchCfg.UserAgent}))

	orchestrator := fetch.NewOrchestrator(fetch.OrchestratorConfig{
		Registry:       registry,
		MaxConcurrency: fetchCfg.MaxConcurrency,
		DefaultTimeout: fetchCfg.DefaultTimeout,
		Timeouts:       fetchCfg.Timeouts,
	})

	queries := recipe.NewQueryStore(scrollCfg.QueriesDir)
	recipes := recipe.NewRecipeStore(scrollCfg.RecipesDir, scrollCfg.DefaultBatchSize)
	dismissed := dismiss.NewStore(scrollCfg.DismissedFile, scrollCfg.DismissedRetention)

	outbox, err := readsync.NewOutbox(ctx, registry, readsync.Config{
		DSN:           syncCfg.DSN,
		FlushInterval: syncCfg.FlushInterval,
		MaxAttempts:   syncCfg.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("open read-mark outbox: %w", err)
	}
	defer func() {
		if err := outbox.Close(); err != nil {
			log.Printf("[WARN] outbox close failed: %v", err)
		}
	}()
	go outbox.Run(ctx)

	manager := scroll.NewManager(orchestrator, queries, recipes, dismissed, registry, scroll.ManagerConfig{
		Marker:     outbox,
		SessionTTL: scrollCfg.SessionTTL,
	})

	srv := server.New(cfg, manager, revision, opts.Debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
