package gateway

import (
	"context"
	"fmt"

	"github.com/k-negishi/team-scheduler/internal/config"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
	"github.com/k-negishi/team-scheduler/internal/usecase"
)

// OpenScheduleStore 設定の STORE_BACKEND に応じたストアを作成
func OpenScheduleStore(ctx context.Context, cfg *config.Config) (usecase.ScheduleStore, error) {
	appLog.Info("ストアを初期化します", "backend", cfg.StoreBackend)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemoryScheduleStore(), nil
	case config.BackendSupabase:
		return NewSupabaseScheduleStore(cfg.SupabaseURL, cfg.SupabaseKey), nil
	case config.BackendPostgres:
		store, err := OpenPostgresScheduleStore(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendGoogle:
		creds, err := cfg.GetGoogleCredentialsJSON()
		if err != nil {
			return nil, err
		}
		store, err := NewGoogleCalendarScheduleStore(ctx, creds, cfg.CalendarID, cfg.Location())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("STORE_BACKENDの値が不正です: %q", cfg.StoreBackend)
	}
}

// NewNotifierFromConfig 設定からLINE通知クライアントを作成（未設定なら nil）
func NewNotifierFromConfig(cfg *config.Config) *LINENotifier {
	if !cfg.LineEnabled() {
		return nil
	}
	return NewLINENotifier(cfg.LineChannelAccessToken, cfg.LineRecipients(), cfg.Location())
}
