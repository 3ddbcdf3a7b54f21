package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/k-negishi/team-scheduler/internal/domain"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
	"github.com/k-negishi/team-scheduler/internal/view"
)

// ScheduleLister 全スケジュールを取得するポート
type ScheduleLister interface {
	ListAll(ctx context.Context) ([]domain.Schedule, error)
}

// Notifier 通知を送信するポート
type Notifier interface {
	SendScheduleNotification(ctx context.Context, todaySchedules, tomorrowSchedules []domain.Schedule) error
}

// NotifyScheduleUseCase 予定通知ユースケース
type NotifyScheduleUseCase struct {
	lister   ScheduleLister
	notifier Notifier
}

// NewNotifyScheduleUseCase ユースケースを生成
func NewNotifyScheduleUseCase(lister ScheduleLister, notifier Notifier) *NotifyScheduleUseCase {
	return &NotifyScheduleUseCase{
		lister:   lister,
		notifier: notifier,
	}
}

// Execute 今日と明日の予定を取得し、通知を送信する
func (uc *NotifyScheduleUseCase) Execute(ctx context.Context, today, tomorrow time.Time) (skipped bool, err error) {
	schedules, err := uc.lister.ListAll(ctx)
	if err != nil {
		appLog.Error("予定の取得に失敗しました", err)
		return false, fmt.Errorf("予定の取得に失敗しました: %w", err)
	}

	todaySchedules := view.ToDailyList(schedules, today)
	tomorrowSchedules := view.ToDailyList(schedules, tomorrow)

	// 予定が両日ともない場合はスキップ
	if len(todaySchedules) == 0 && len(tomorrowSchedules) == 0 {
		appLog.Info("予定なしのため通知をスキップします", "today", today.Format(domain.DateLayout))
		return true, nil
	}

	if err := uc.notifier.SendScheduleNotification(ctx, todaySchedules, tomorrowSchedules); err != nil {
		appLog.Error("通知の送信に失敗しました", err)
		return false, err
	}

	appLog.Info("通知を送信しました", "today_count", len(todaySchedules), "tomorrow_count", len(tomorrowSchedules))
	return false, nil
}
