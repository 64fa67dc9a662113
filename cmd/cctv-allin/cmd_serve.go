package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/config"
	"github.com/Andylive5518/cctv-allin/internal/notify"
	"github.com/Andylive5518/cctv-allin/internal/server"
	"github.com/Andylive5518/cctv-allin/internal/store"
	"github.com/Andylive5518/cctv-allin/internal/version"
)

// runServe runs the Alertmanager webhook receiver until SIGINT or SIGTERM.
func runServe(args []string, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	addr := fs.String("addr", "", "listen address (overrides server.host and server.port)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e := bootstrap(*configPath, "serve", stderr)
	if e == nil {
		return 1
	}
	defer func() { _ = e.logger.Sync() }()
	logger := e.logger
	cfg := e.cfg

	logger.Info("starting cctv-allin receiver",
		zap.String("version", version.Short()),
		zap.String("default_platform", cfg.Notify.DefaultPlatform),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		gate   notify.Gate
		status *notify.StatusCache
		reader server.StatusReader
		ready  server.ReadinessChecker
	)
	if cfg.Redis.Enabled {
		rs := store.Dial(store.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
		})
		defer rs.Close()
		if err := rs.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup, deduplication fails open until it recovers",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
		}
		gate = notify.NewRedisGate(rs, cfg.Notify.DedupTTL)
		status = notify.NewStatusCache(rs, cfg.Notify.StatusTTL)
		reader = status
		ready = rs.Ping
	} else {
		logger.Info("redis disabled, using in-process deduplication")
		gate = notify.NewMemoryGate(cfg.Notify.DedupTTL)
	}

	notifiers := buildNotifiers(&cfg.Notify, logger)
	defaultPlatform, err := notify.ParsePlatform(cfg.Notify.DefaultPlatform)
	if err != nil {
		logger.Error("invalid default platform", zap.Error(err))
		return 1
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		DefaultPlatform: defaultPlatform,
		Title:           cfg.Notify.Title,
		Timeout:         cfg.Notify.Timeout,
	}, gate, status, logger.Named("notify"), notifiers...)
	if !dispatcher.Configured(defaultPlatform) {
		logger.Warn("default platform has no webhook configured",
			zap.String("platform", string(defaultPlatform)))
	}

	listen := cfg.Server.Addr()
	if *addr != "" {
		listen = *addr
	}
	srv := server.New(server.Options{
		Addr:      listen,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	}, dispatcher, reader, ready, logger.Named("server"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			return 1
		}
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}
	logger.Info("receiver stopped")
	return 0
}

// buildNotifiers returns a notifier for every platform with a webhook set.
func buildNotifiers(cfg *config.NotifyConfig, logger *zap.Logger) []notify.Notifier {
	var out []notify.Notifier
	if cfg.DingTalk.Webhook != "" {
		out = append(out, notify.NewDingTalkNotifier(notify.DingTalkConfig{
			Webhook:   cfg.DingTalk.Webhook,
			Secret:    cfg.DingTalk.Secret,
			AtMobiles: cfg.DingTalk.AtMobiles,
			AtAll:     cfg.DingTalk.AtAll,
			Timeout:   cfg.Timeout,
		}))
	}
	if cfg.WeChat.Webhook != "" {
		out = append(out, notify.NewWeChatNotifier(cfg.WeChat.Webhook, cfg.Timeout))
	}
	if cfg.Feishu.Webhook != "" {
		out = append(out, notify.NewFeishuNotifier(notify.FeishuConfig{
			Webhook: cfg.Feishu.Webhook,
			Secret:  cfg.Feishu.Secret,
			Timeout: cfg.Timeout,
		}))
	}
	for _, n := range out {
		logger.Info("notification platform configured", zap.String("platform", string(n.Platform())))
	}
	if len(out) == 0 {
		logger.Warn("no notification webhooks configured; every webhook call will fail")
	}
	return out
}
