package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callrecovery/internal/accounts"
	"callrecovery/internal/auth"
	"callrecovery/internal/calls"
	"callrecovery/internal/config"
	"callrecovery/internal/dedupe"
	"callrecovery/internal/httpapi"
	"callrecovery/internal/metrics"
	"callrecovery/internal/normalize"
	"callrecovery/internal/notify"
	"callrecovery/internal/reporting"
	"callrecovery/internal/webhook"
	"callrecovery/pkg/logger"
	"callrecovery/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rules, err := loadHeuristics(cfg.Heuristics)
	if err != nil {
		log.Error("heuristics load failed", "file", cfg.Heuristics.File, "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()
	callRepo := calls.NewPostgresRepository(db)
	accountRepo := accounts.NewPostgresRepository(db)

	var sender notify.Sender = notify.LogSender{Log: log}
	if cfg.Notify.ResendAPIKey != "" {
		sender = notify.NewResendSender(cfg.Notify.ResendAPIKey)
	}
	dispatcher := &notify.Dispatcher{
		Sender:       sender,
		From:         cfg.Notify.From,
		DashboardURL: cfg.Notify.DashboardURL,
		Timeout:      cfg.Notify.Timeout,
		Metrics:      m,
	}

	vapiHandler := &webhook.VapiHandler{
		Accounts:   accountRepo,
		Calls:      callRepo,
		Normalizer: normalize.New(rules),
		Notifier:   dispatcher,
		Metrics:    m,
		Secret:     cfg.Vapi.WebhookSecret,
	}
	if cfg.Vapi.WebhookSecret == "" {
		log.Warn("VAPI_WEBHOOK_SECRET not set; webhook accepts unsigned deliveries")
	}

	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		vapiHandler.Guard = dedupe.NewRedisGuard(rdb, cfg.Redis.DedupeTTL)
	} else {
		log.Info("redis not configured; webhook redeliveries are not deduplicated")
	}

	var authManager *auth.Manager
	if cfg.AuthEnabled() {
		authManager, err = auth.NewManager(cfg.Auth)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, routeDeps{
		DB:      db,
		Webhook: vapiHandler,
		API: httpapi.Handlers{
			Accounts: accountRepo,
			Calls:    callRepo,
			Reports:  reporting.NewService(callRepo),
		},
		Auth:    authManager,
		Metrics: m,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           httpapi.CORS(cfg.CORS.AllowedOrigins)(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "dashboard_api", authManager != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn("pending notifications dropped", "err", err)
	}
}

func loadHeuristics(cfg config.HeuristicsConfig) (normalize.Heuristics, error) {
	h := normalize.DefaultHeuristics()
	if cfg.File != "" {
		var err error
		if h, err = normalize.LoadHeuristics(cfg.File); err != nil {
			return normalize.Heuristics{}, err
		}
	}
	return h, h.Validate()
}
