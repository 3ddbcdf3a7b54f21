package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/k-negishi/team-scheduler/internal/config"
	"github.com/k-negishi/team-scheduler/internal/gateway"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
	"github.com/k-negishi/team-scheduler/internal/usecase"
)

// LambdaEvent Lambda実行時のイベント構造体
type LambdaEvent struct {
	// EventBridge Schedulerからの実行なので特に使用しない
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// handler Lambda関数のメインハンドラー
func handler(ctx context.Context, _ LambdaEvent) (LambdaResponse, error) {
	// 設定を読み込み
	cfg, err := config.Load()
	if err != nil {
		return LambdaResponse{StatusCode: 500, Message: "設定読み込みエラー"}, err
	}
	appLog.SetLevel(cfg.LogLevel)

	store, err := gateway.OpenScheduleStore(ctx, cfg)
	if err != nil {
		appLog.Error("ストアの初期化に失敗しました", err)
		return LambdaResponse{StatusCode: 500, Message: "ストア初期化エラー"}, err
	}

	notifier := gateway.NewNotifierFromConfig(cfg)
	if notifier == nil {
		appLog.Info("LINEの設定がないため通知をスキップしました")
		return LambdaResponse{StatusCode: 200, Message: "LINE未設定のため通知スキップ"}, nil
	}

	// 設定したタイムゾーンで今日と明日を決める
	now := time.Now().In(cfg.Location())
	tomorrow := now.AddDate(0, 0, 1)

	skipped, err := usecase.NewNotifyScheduleUseCase(store, notifier).Execute(ctx, now, tomorrow)
	if err != nil {
		appLog.Error("予定の通知に失敗しました", err)
		return LambdaResponse{StatusCode: 500, Message: "通知処理エラー"}, err
	}

	// 予定が両日ともない場合はスキップ
	if skipped {
		return LambdaResponse{StatusCode: 200, Message: "予定なしのため通知スキップ"}, nil
	}

	return LambdaResponse{StatusCode: 200, Message: "通知送信完了"}, nil
}

func main() {
	lambda.Start(handler)
}
