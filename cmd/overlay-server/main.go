package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/county-overlay/internal/api"
	"github.com/mohammed-shakir/county-overlay/internal/boundary"
	"github.com/mohammed-shakir/county-overlay/internal/cache/detailcache"
	"github.com/mohammed-shakir/county-overlay/internal/cache/redisstore"
	"github.com/mohammed-shakir/county-overlay/internal/colormap"
	"github.com/mohammed-shakir/county-overlay/internal/core/config"
	"github.com/mohammed-shakir/county-overlay/internal/core/health"
	"github.com/mohammed-shakir/county-overlay/internal/core/httpclient"
	"github.com/mohammed-shakir/county-overlay/internal/core/server"
	"github.com/mohammed-shakir/county-overlay/internal/geoid"
	"github.com/mohammed-shakir/county-overlay/internal/jointable"
	"github.com/mohammed-shakir/county-overlay/internal/logger"
	"github.com/mohammed-shakir/county-overlay/internal/metrics"
	"github.com/mohammed-shakir/county-overlay/internal/overlay"
	"github.com/mohammed-shakir/county-overlay/internal/refresh"
	"github.com/mohammed-shakir/county-overlay/internal/selectionevents"
	"github.com/mohammed-shakir/county-overlay/internal/session"
	"github.com/mohammed-shakir/county-overlay/internal/upstream"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("dotenv", "err", err)
		return 1
	}
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "county-overlay",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)
	slog.SetDefault(appLog)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", "err", err)
		return 1
	}
	mode, _ := colormap.ParseMode(cfg.DefaultMode)

	appLog.Info("starting overlay server",
		"addr", cfg.Addr,
		"version", Version,
		"boundaries", cfg.BoundarySource,
		"data_url", cfg.DataURL,
		"detail_url", cfg.DetailURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids := geoid.Normalizer{Prefix: cfg.IDPrefix, Width: cfg.IDWidth}
	httpClient := httpclient.NewOutbound(cfg.UpstreamTimeout)

	loader := boundary.NewLoader(cfg.BoundarySource, boundary.Options{IDs: ids, H3Res: cfg.H3Res}, httpClient, appLog)
	loader.Start(ctx)

	deps := session.Deps{
		Boundaries: loader,
		Join: jointable.Spec{
			IDField:       cfg.IDField,
			ValueField:    cfg.ValueField,
			ForecastField: cfg.ForecastField,
			IDs:           ids,
		},
		Panel:        overlay.Panel{Width: cfg.PanelWidth, Height: cfg.PanelHeight, Margin: cfg.PanelMargin},
		Log:          appLog,
		FetchTimeout: cfg.UpstreamTimeout,
	}
	deps.Mapper = colormap.Default()
	deps.Mapper.ClampValues = cfg.ColorClamp

	uopts := upstream.Options{Token: cfg.MapToken, RPS: cfg.UpstreamRPS, Client: httpClient, Log: appLog}
	if cfg.DataURL != "" {
		o := uopts
		o.BaseURL = cfg.DataURL
		dc, err := upstream.NewDataClient(o)
		if err != nil {
			appLog.Error("data client", "err", err)
			return 1
		}
		deps.Data = dc
	}

	var details *detailcache.Fetcher
	if cfg.DetailURL != "" {
		o := uopts
		o.BaseURL = cfg.DetailURL
		dc, err := upstream.NewDetailClient(o, cfg.DetailIDParam)
		if err != nil {
			appLog.Error("detail client", "err", err)
			return 1
		}
		deps.Detail = dc

		if cfg.DetailCacheEnabled {
			rc, err := redisstore.New(ctx, cfg.RedisAddr, redisstore.WithPoolSize(32))
			if err != nil {
				appLog.Error("redis init failed", "addr", cfg.RedisAddr, "err", err)
				return 1
			}
			defer func() { _ = rc.Close() }()
			details = detailcache.New(dc, rc, cfg.DetailURL, cfg.DetailCacheTTL, appLog)
			deps.Detail = details
			appLog.Info("detail cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.DetailCacheTTL)
		}
	}

	if cfg.SelectionEvents.Enabled {
		pub, err := selectionevents.NewPublisher(cfg.KafkaBrokers, cfg.SelectionEvents.Topic, 0, appLog)
		if err != nil {
			appLog.Error("selection events publisher", "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		deps.Events = pub
	}

	reg, err := session.NewRegistry(cfg.MaxSessions, deps)
	if err != nil {
		appLog.Error("session registry", "err", err)
		return 1
	}
	defer reg.Close()

	refreshOpts := refresh.Options{Logger: appLog.With("component", "refresh"), IDs: ids}
	if details != nil {
		refreshOpts.Details = details
	}
	runner := refresh.New(refresh.Config{
		Enabled: cfg.Refresh.Enabled,
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.Refresh.Topic,
		GroupID: cfg.Refresh.GroupID,
		Dataset: cfg.Refresh.Dataset,
	}, reg, refreshOpts)
	if err := runner.Start(ctx); err != nil {
		appLog.Error("refresh runner", "err", err)
		return 1
	}
	defer runner.Stop()

	var prov *metrics.Provider
	if cfg.MetricsEnabled {
		prov = metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.MetricsAddr,
			Path:    cfg.MetricsPath,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
	}

	handler := server.NewRouter(cfg, appLog, server.Routes{
		API: api.New(reg, mode, appLog),
		Ready: []health.Component{
			{Name: "boundaries", Reporter: health.LoadedFunc(loader.Loaded)},
			{Name: "refresh", Reporter: runner},
		},
		Metrics: prov,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, "api", cfg.Addr, handler, appLog)
	})
	if prov != nil && cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(prov.Path(), prov.Handler())
		g.Go(func() error {
			return server.Run(gctx, "metrics", cfg.MetricsAddr, mux, appLog)
		})
	}
	g.Go(func() error {
		reg.RunJanitor(gctx, cfg.SessionSweepEvery, cfg.SessionIdleTTL)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
