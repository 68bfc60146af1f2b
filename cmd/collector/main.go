package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/airqmon/internal/airq"
	"github.com/hamed0406/airqmon/internal/alerting"
	"github.com/hamed0406/airqmon/internal/config"
	"github.com/hamed0406/airqmon/internal/httpapi"
	"github.com/hamed0406/airqmon/internal/logging"
	"github.com/hamed0406/airqmon/internal/metrics"
	"github.com/hamed0406/airqmon/internal/notify"
	"github.com/hamed0406/airqmon/internal/repo"
	"github.com/hamed0406/airqmon/internal/repo/memory"
	"github.com/hamed0406/airqmon/internal/repo/postgres"
	"github.com/hamed0406/airqmon/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	endpoints, err := cfg.Endpoints()
	if err != nil {
		logger.Fatal("load_sensors", zap.Error(err))
	}

	var store repo.MeasurementStore = memory.New()
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres_schema", zap.Error(err))
		}
		store = pg
	}

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	var notifiers notify.Multi
	if tg := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID); tg != nil {
		notifiers = append(notifiers, tg)
	}
	if cfg.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.SlackWebhook))
	}

	engine := alerting.NewEngine(alerting.Config{
		Threshold:      float64(cfg.HealthThreshold),
		MinConsecutive: cfg.MinConsecutivePolls,
		Cooldown:       cfg.AlertCooldown,
	})

	client := airq.NewClient(cfg.Scheme, cfg.FetchTimeout, cfg.InsecureTLS)
	sensors := make([]scheduler.Sensor, 0, len(endpoints))
	for _, ep := range endpoints {
		sensors = append(sensors, scheduler.Sensor{
			Endpoint: ep,
			Decoder:  airq.NewCrypto(ep.Secret),
		})
	}

	poller := scheduler.NewPoller(logger, client, store, engine, notifiers, rec,
		sensors, cfg.PollInterval, cfg.FetchTimeout, cfg.StoreTimeout, cfg.MaxConcurrentPolls)
	pollerDone := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(pollerDone)
	}()

	api := httpapi.NewServer(logger, store, engine, endpoints,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	api.RateLimitPerMin = cfg.APIRateLimit
	srv := &http.Server{Addr: cfg.APIAddr, Handler: api.Router()}

	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.APIAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api_serve", zap.Error(err))
			stop()
		}
	}()

	logger.Info("collector_started",
		zap.Int("sensors", len(sensors)),
		zap.Duration("interval", cfg.PollInterval),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Int("notifiers", len(notifiers)),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown", zap.Error(err))
	}
	// in-flight polls finish or hit their timeouts before we exit
	<-pollerDone
	logger.Info("collector_stopped")
}
