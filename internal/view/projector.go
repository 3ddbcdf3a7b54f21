package view

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/k-negishi/team-scheduler/internal/domain"
)

// Palette 作成者ごとの表示色
var Palette = [8]string{"#FF4B4B", "#1C83E1", "#00C0F2", "#FFA421", "#BD6BFF", "#00D4BB", "#FF2B2B", "#21C354"}

// CalendarEvent 月間カレンダーに渡す表示用イベント
type CalendarEvent struct {
	ID       string          `json:"id"`
	Label    string          `json:"title"`
	Start    string          `json:"start"`
	End      string          `json:"end"`
	AllDay   bool            `json:"allDay"`
	Color    string          `json:"color"`
	Schedule domain.Schedule `json:"extendedProps"`
}

// ListEntry 日別リストの1行
type ListEntry struct {
	Schedule  domain.Schedule `json:"schedule"`
	Color     string          `json:"color"`
	TimeRange string          `json:"time_range"`
}

// ColorFor 作成者名から表示色を決める
//
// SHA-256 ダイジェストを整数とみなしてパレット数で割った余りを使う。
// パレット数が 256 の約数なので最後の1バイトだけで決まる。
func ColorFor(author string) string {
	sum := sha256.Sum256([]byte(author))
	return Palette[int(sum[len(sum)-1])%len(Palette)]
}

// Label カレンダー上の表示名
func Label(s domain.Schedule) string {
	return fmt.Sprintf("%s (%s)", s.Title, s.Author)
}

// ToCalendarEvents 全スケジュールをカレンダー表示用に変換
func ToCalendarEvents(schedules []domain.Schedule) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(schedules))
	for _, s := range schedules {
		events = append(events, CalendarEvent{
			ID:       s.ID,
			Label:    Label(s),
			Start:    s.Start,
			End:      s.End,
			AllDay:   s.AllDay(),
			Color:    ColorFor(s.Author),
			Schedule: s,
		})
	}
	return events
}

// ToDailyList 開始日が指定日のスケジュールを保存順のまま返す
func ToDailyList(schedules []domain.Schedule, date time.Time) []domain.Schedule {
	prefix := date.Format(domain.DateLayout)
	daily := make([]domain.Schedule, 0)
	for _, s := range schedules {
		if strings.HasPrefix(s.Start, prefix) {
			daily = append(daily, s)
		}
	}
	return daily
}

// ToListEntries 日別リストの表示行を作る
func ToListEntries(schedules []domain.Schedule, date time.Time) []ListEntry {
	daily := ToDailyList(schedules, date)
	entries := make([]ListEntry, 0, len(daily))
	for _, s := range daily {
		entries = append(entries, ListEntry{
			Schedule:  s,
			Color:     ColorFor(s.Author),
			TimeRange: clockOf(s.Start) + "~" + clockOf(s.End),
		})
	}
	return entries
}

// clockOf 保存形式から HH:MM を取り出す
func clockOf(ts string) string {
	if len(ts) < 16 {
		return "--:--"
	}
	return ts[11:16]
}
