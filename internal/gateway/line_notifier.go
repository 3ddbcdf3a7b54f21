package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/k-negishi/team-scheduler/internal/domain"
)

const (
	lineAPIBaseURL = "https://api.line.me/v2/bot/message"

	// lineMaxTextLength テキストメッセージの最大文字数
	lineMaxTextLength = 5000
	// lineMaxRecipients マルチキャストの宛先上限
	lineMaxRecipients = 500

	truncatedSuffix = "\n…(以下省略)"
)

// LINENotifier LINE Messaging APIを使用したNotifierの実装
//
// 宛先が1人ならプッシュ、複数ならマルチキャストで送る。
type LINENotifier struct {
	channelAccessToken string
	recipients         []string
	httpClient         *http.Client
	baseURL            string
	clock              func() time.Time
	location           *time.Location
	newRetryKey        func() string
}

type lineTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type linePushRequest struct {
	To       string            `json:"to"`
	Messages []lineTextMessage `json:"messages"`
}

type lineMulticastRequest struct {
	To       []string          `json:"to"`
	Messages []lineTextMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINENotifier LINE通知クライアントを作成
func NewLINENotifier(channelAccessToken string, recipients []string, location *time.Location) *LINENotifier {
	if location == nil {
		location = time.Local
	}
	return &LINENotifier{
		channelAccessToken: channelAccessToken,
		recipients:         recipients,
		httpClient:         &http.Client{Timeout: 30 * time.Second},
		baseURL:            lineAPIBaseURL,
		clock:              time.Now,
		location:           location,
		newRetryKey:        uuid.NewString,
	}
}

// SendScheduleNotification チームの予定をLINEで通知
func (n *LINENotifier) SendScheduleNotification(ctx context.Context, todaySchedules, tomorrowSchedules []domain.Schedule) error {
	if len(n.recipients) == 0 {
		return fmt.Errorf("LINEの通知先が設定されていません")
	}
	message := truncateText(n.buildScheduleMessage(todaySchedules, tomorrowSchedules), lineMaxTextLength)
	return n.send(ctx, message)
}

// buildScheduleMessage 予定通知用のメッセージを構築
func (n *LINENotifier) buildScheduleMessage(todaySchedules, tomorrowSchedules []domain.Schedule) string {
	var b strings.Builder
	today := n.clock().In(n.location)

	b.WriteString("📅 チームスケジューラー\n\n")
	writeDaySection(&b, "本日", today, todaySchedules)
	b.WriteString("\n")
	writeDaySection(&b, "翌日", today.AddDate(0, 0, 1), tomorrowSchedules)

	return strings.TrimRight(b.String(), "\n")
}

// writeDaySection 1日分の予定を書き出す（終日予定を先頭に、残りは保存順）
func writeDaySection(b *strings.Builder, heading string, day time.Time, schedules []domain.Schedule) {
	label := fmt.Sprintf("%s %s(%s)", heading, day.Format("1/2"), weekdayJapanese(day.Weekday()))
	if len(schedules) == 0 {
		fmt.Fprintf(b, "%s: 予定なし\n", label)
		return
	}

	fmt.Fprintf(b, "%s (%d件):\n", label, len(schedules))
	for _, s := range schedules {
		if s.AllDay() {
			writeScheduleLine(b, s)
		}
	}
	for _, s := range schedules {
		if !s.AllDay() {
			writeScheduleLine(b, s)
		}
	}
}

// writeScheduleLine 予定1件分（タイトル行と作成者行）
func writeScheduleLine(b *strings.Builder, s domain.Schedule) {
	if s.AllDay() {
		fmt.Fprintf(b, "🔸 %s (終日)\n", s.Title)
	} else {
		fmt.Fprintf(b, "🔸 %s〜%s %s\n", clockOf(s.Start), clockOf(s.End), s.Title)
	}
	fmt.Fprintf(b, "   👤 %s\n", s.Author)
}

// clockOf 保存形式の日時から HH:MM を取り出す
func clockOf(ts string) string {
	t, err := domain.ParseTimestamp(ts)
	if err != nil {
		return "--:--"
	}
	return t.Format("15:04")
}

// truncateText 文字数（rune）の上限を超える場合は末尾を省略する
func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	keep := limit - len([]rune(truncatedSuffix))
	return string(runes[:keep]) + truncatedSuffix
}

// send 宛先数に応じてプッシュまたはマルチキャストで送信
func (n *LINENotifier) send(ctx context.Context, text string) error {
	messages := []lineTextMessage{{Type: "text", Text: text}}

	if len(n.recipients) == 1 {
		return n.post(ctx, "/push", linePushRequest{To: n.recipients[0], Messages: messages})
	}

	for start := 0; start < len(n.recipients); start += lineMaxRecipients {
		end := min(start+lineMaxRecipients, len(n.recipients))
		if err := n.post(ctx, "/multicast", lineMulticastRequest{To: n.recipients[start:end], Messages: messages}); err != nil {
			return err
		}
	}
	return nil
}

// post LINE APIへJSONを送信
func (n *LINENotifier) post(ctx context.Context, path string, payload any) error {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.channelAccessToken)
	// 同じキーでの再送はLINE側で重複排除される
	req.Header.Set("X-Line-Retry-Key", n.newRetryKey())

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errorResponse lineErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
	}

	details := errorResponse.Message
	if len(errorResponse.Details) > 0 {
		details += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
	}
	return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, details)
}

var weekdaysJapanese = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// weekdayJapanese 曜日を日本語に変換
func weekdayJapanese(weekday time.Weekday) string {
	return weekdaysJapanese[weekday]
}
