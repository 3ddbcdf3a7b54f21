// Package scheduler LINE通知ダイジェストを定期実行する
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "github.com/k-negishi/team-scheduler/internal/log"
)

// runTimeout 1回の通知処理に許す時間
const runTimeout = time.Minute

// DigestRunner 本日・翌日分の通知を実行する
type DigestRunner interface {
	Execute(ctx context.Context, today, tomorrow time.Time) (skipped bool, err error)
}

// DigestScheduler cron式に従ってDigestRunnerを呼び出す
type DigestScheduler struct {
	runner   DigestRunner
	schedule cron.Schedule
	location *time.Location
	clock    func() time.Time
	cron     *cron.Cron
}

// NewDigestScheduler cron式（5フィールドまたは @daily 等）からスケジューラーを作成
func NewDigestScheduler(runner DigestRunner, spec string, location *time.Location, clock func() time.Time) (*DigestScheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("DIGEST_CRONの解析に失敗しました: %q: %w", spec, err)
	}
	if location == nil {
		location = time.Local
	}
	if clock == nil {
		clock = time.Now
	}

	logger := cronLogger{}
	s := &DigestScheduler{
		runner:   runner,
		schedule: schedule,
		location: location,
		clock:    clock,
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := s.RunOnce(ctx); err != nil {
			appLog.Error("定期通知に失敗しました", err)
		}
	}))
	return s, nil
}

// Start バックグラウンドで実行を開始
func (s *DigestScheduler) Start() {
	appLog.Info("定期通知を開始します", "next", s.Next(s.clock()).Format(time.RFC3339))
	s.cron.Start()
}

// Stop 停止する。返されたcontextは実行中のジョブが終わると完了する
func (s *DigestScheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next from 以降の次回実行時刻
func (s *DigestScheduler) Next(from time.Time) time.Time {
	return s.schedule.Next(from.In(s.location))
}

// RunOnce 現在日時を基準に本日・翌日分の通知を1回実行
func (s *DigestScheduler) RunOnce(ctx context.Context) error {
	today := s.clock().In(s.location)
	tomorrow := today.AddDate(0, 0, 1)

	skipped, err := s.runner.Execute(ctx, today, tomorrow)
	if err != nil {
		return fmt.Errorf("通知処理に失敗しました: %w", err)
	}
	if skipped {
		appLog.Info("本日・翌日の予定がないため通知をスキップしました", "date", today.Format("2006-01-02"))
		return nil
	}
	appLog.Info("予定を通知しました", "date", today.Format("2006-01-02"))
	return nil
}

// cronLogger cronのログをアプリケーションログに流す
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
