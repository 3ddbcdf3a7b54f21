package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout ストアとの境界で使うタイムゾーンなしのローカル日時フォーマット
const TimestampLayout = "2006-01-02T15:04:05"

// DateLayout 日付のみのフォーマット
const DateLayout = "2006-01-02"

// Schedule チームスケジュールのドメインエンティティ
//
// Start / End はストアに保存された形式（YYYY-MM-DDTHH:MM:SS）のまま保持する。
// 終日かどうかは保存せず、AllDay() で時刻部分から復元する。
type Schedule struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Start  string `json:"start_time"`
	End    string `json:"end_time"`
}

// ScheduleFields 作成・更新時にストアへ渡す項目
type ScheduleFields struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Start  string `json:"start_time"`
	End    string `json:"end_time"`
}

// TimeOfDay 日付を持たない時刻
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

var (
	// AllDayStart 終日予定の開始時刻
	AllDayStart = TimeOfDay{0, 0, 0}
	// AllDayEnd 終日予定の終了時刻
	AllDayEnd = TimeOfDay{23, 59, 59}
)

// String HH:MM:SS 形式で返す
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay HH:MM:SS または HH:MM を解析する
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{t.Hour(), t.Minute(), t.Second()}, nil
		}
	}
	return TimeOfDay{}, &MalformedTimestampError{Value: s}
}

// timeOfDayOf 日時から時刻部分を取り出す
func timeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{t.Hour(), t.Minute(), t.Second()}
}

// on 日付 d の時刻 t を返す
func (t TimeOfDay) on(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, t.Second, 0, d.Location())
}

// ComposeSpan 入力された日付と時刻から開始・終了日時を組み立てる
//
// allDay の場合は入力された時刻を無視し、開始日の 00:00:00 から終了日の 23:59:59 に固定する。
func ComposeSpan(startDate, endDate time.Time, startTime, endTime TimeOfDay, allDay bool) (time.Time, time.Time) {
	if allDay {
		return AllDayStart.on(startDate), AllDayEnd.on(endDate)
	}
	return startTime.on(startDate), endTime.on(endDate)
}

// IsAllDay 開始が 00:00:00、終了が 23:59:59 のときだけ終日とみなす
func IsAllDay(start, end time.Time) bool {
	return timeOfDayOf(start) == AllDayStart && timeOfDayOf(end) == AllDayEnd
}

// Validate 必須項目（内容・作成者）を検証する
//
// 時間範囲（end < start）は検証しない。
func Validate(title, author string) error {
	var missing []string
	if strings.TrimSpace(title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(author) == "" {
		missing = append(missing, "author")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// FormatTimestamp ストア用の文字列に変換
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp ストアの文字列を解析する
//
// 返り値のロケーションは UTC だが、壁時計の値だけを意味する。
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, &MalformedTimestampError{Value: s, Err: err}
	}
	return t, nil
}

// AllDay 保存された時刻から終日予定かどうかを判定する
//
// どちらかの日時が解析できない場合は false を返す。
func (s Schedule) AllDay() bool {
	start, err := ParseTimestamp(s.Start)
	if err != nil {
		return false
	}
	end, err := ParseTimestamp(s.End)
	if err != nil {
		return false
	}
	return IsAllDay(start, end)
}

// Split 保存済みスケジュールを編集フォーム用の値に分解する
func (s Schedule) Split() (Staged, error) {
	start, err := ParseTimestamp(s.Start)
	if err != nil {
		return Staged{}, err
	}
	end, err := ParseTimestamp(s.End)
	if err != nil {
		return Staged{}, err
	}
	return Staged{
		Title:     s.Title,
		Author:    s.Author,
		AllDay:    IsAllDay(start, end),
		StartDate: dateOf(start),
		EndDate:   dateOf(end),
		StartTime: timeOfDayOf(start),
		EndTime:   timeOfDayOf(end),
	}, nil
}

// Staged 編集中のフォームの値
type Staged struct {
	Title     string
	Author    string
	AllDay    bool
	StartDate time.Time
	EndDate   time.Time
	StartTime TimeOfDay
	EndTime   TimeOfDay
}

// DefaultStaged 新規登録フォームの初期値（今日、09:00〜10:00）
func DefaultStaged(now time.Time) Staged {
	today := dateOf(now)
	return Staged{
		StartDate: today,
		EndDate:   today,
		StartTime: TimeOfDay{9, 0, 0},
		EndTime:   TimeOfDay{10, 0, 0},
	}
}

// Compose 検証したうえでストアに渡す項目を組み立てる
func (st Staged) Compose() (ScheduleFields, error) {
	if err := Validate(st.Title, st.Author); err != nil {
		return ScheduleFields{}, err
	}
	start, end := ComposeSpan(st.StartDate, st.EndDate, st.StartTime, st.EndTime, st.AllDay)
	return ScheduleFields{
		Title:  strings.TrimSpace(st.Title),
		Author: strings.TrimSpace(st.Author),
		Start:  FormatTimestamp(start),
		End:    FormatTimestamp(end),
	}, nil
}

// dateOf 時刻部分を落とした日付を返す
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
