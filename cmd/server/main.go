package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesboard/internal/api"
	"salesboard/internal/chat"
	"salesboard/internal/config"
	"salesboard/internal/engine"
	"salesboard/internal/geo"
)

func main() {
	var (
		cfg        config.Config
		configFile string
	)
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfg.RegisterFlags(fs)
	fs.StringVar(&configFile, "config.file", "", "YAML configuration file. Its values take precedence over flags.")
	_ = fs.Parse(os.Args[1:])

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if configFile != "" {
		if err := config.Load(configFile, &cfg); err != nil {
			level.Error(logger).Log("msg", "error loading config", "err", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(1)
	}
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(cfg.LogLevel, level.InfoValue())))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	// 1. Shared state: one geocode cache and one dataset store per process.
	reg := prometheus.DefaultRegisterer
	store := engine.NewStore(cfg.Session.MaxDatasets, cfg.Session.TTL)
	geocache := geo.New(cfg.Geocode, geo.NewNominatim(cfg.Geocode), logger, reg)
	forecaster := engine.Holt{Alpha: cfg.Forecast.Alpha, Beta: cfg.Forecast.Beta}
	if cfg.Chat.APIKey == "" {
		level.Warn(logger).Log("msg", "no chat API key configured; the chat page will answer with an error")
	}

	// 2. HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(gommonlog.OFF)
	e.JSONSerializer = api.JSONSerializer{}
	e.HTTPErrorHandler = api.ErrorHandler(logger)

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l := level.Debug(logger)
			if v.Error != nil {
				l = level.Warn(logger)
			}
			l.Log("msg", "http request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "err", v.Error)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(bodyLimit(cfg.Server.MaxUploadBytes)))

	h := api.NewHandler(cfg, store, geocache, chat.NewClient(cfg.Chat), forecaster, logger, reg)
	h.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// 3. Serve until interrupted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		level.Info(logger).Log("msg", "server ready", "addr", cfg.Server.ListenAddress)
		if err := e.Start(cfg.Server.ListenAddress); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "shutdown failed", "err", err)
	}
}

// bodyLimit renders a byte count the way middleware.BodyLimit expects,
// leaving headroom for the multipart envelope.
func bodyLimit(maxUpload int64) string {
	const envelope = 1 << 20
	return strconv.FormatInt((maxUpload+envelope+1023)/1024, 10) + "K"
}
