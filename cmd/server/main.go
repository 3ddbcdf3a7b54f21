package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/k-negishi/team-scheduler/internal/config"
	"github.com/k-negishi/team-scheduler/internal/gateway"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
	"github.com/k-negishi/team-scheduler/internal/scheduler"
	"github.com/k-negishi/team-scheduler/internal/usecase"
	"github.com/k-negishi/team-scheduler/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		appLog.Error("設定の読み込みに失敗しました", err)
		os.Exit(1)
	}
	appLog.SetLevel(cfg.LogLevel)

	appLog.Info("effective config",
		"store", cfg.StoreBackend,
		"listen", cfg.ListenAddr,
		"timezone", cfg.Timezone,
		"digest_cron", cfg.DigestCron,
		"line", cfg.LineEnabled(),
	)

	// SIGINT/SIGTERM でキャンセルされるルートコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := gateway.OpenScheduleStore(ctx, cfg)
	if err != nil {
		appLog.Error("ストアの初期化に失敗しました", err)
		os.Exit(1)
	}

	location := cfg.Location()
	clock := func() time.Time { return time.Now().In(location) }

	if notifier := gateway.NewNotifierFromConfig(cfg); notifier != nil {
		digest, err := scheduler.NewDigestScheduler(usecase.NewNotifyScheduleUseCase(store, notifier), cfg.DigestCron, location, clock)
		if err != nil {
			appLog.Error("定期通知の設定に失敗しました", err)
			os.Exit(1)
		}
		digest.Start()
		defer func() {
			<-digest.Stop().Done()
		}()
	} else {
		appLog.Info("LINEの設定がないため定期通知は無効です")
	}

	server := web.NewServer(store, usecase.NewEditSessionUseCase(store, clock), clock)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTPサーバーが停止しました", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTPサーバーの停止に失敗しました", err)
	}
	appLog.Info("team-scheduler exiting")
}
