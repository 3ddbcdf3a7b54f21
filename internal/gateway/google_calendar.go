package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/k-negishi/team-scheduler/internal/domain"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
)

// authorProperty 作成者を保存する拡張プロパティのキー
const authorProperty = "author"

// GoogleCalendarScheduleStore Google Calendar APIを使用したScheduleStoreの実装
//
// 作成者はイベントの非公開拡張プロパティに保存する。
// 終日予定は Google の終日イベント（終了日は翌日・排他的）として保存する。
type GoogleCalendarScheduleStore struct {
	service    *calendar.Service
	calendarID string
	timezone   *time.Location
}

// NewGoogleCalendarScheduleStore Google Calendarストアを作成
func NewGoogleCalendarScheduleStore(ctx context.Context, credentialsJSON []byte, calendarID string, timezone *time.Location) (*GoogleCalendarScheduleStore, error) {
	// サービスアカウント認証でCalendar APIクライアントを作成
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %w", err)
	}

	service, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %w", err)
	}

	return NewGoogleCalendarScheduleStoreWithService(service, calendarID, timezone), nil
}

// NewGoogleCalendarScheduleStoreWithService 作成済みのサービスからストアを作成
func NewGoogleCalendarScheduleStoreWithService(service *calendar.Service, calendarID string, timezone *time.Location) *GoogleCalendarScheduleStore {
	if timezone == nil {
		timezone = time.Local
	}
	return &GoogleCalendarScheduleStore{
		service:    service,
		calendarID: calendarID,
		timezone:   timezone,
	}
}

// Create イベントを登録
func (r *GoogleCalendarScheduleStore) Create(ctx context.Context, fields domain.ScheduleFields) (domain.Schedule, error) {
	event, err := r.convertToCalendarEvent(fields)
	if err != nil {
		return domain.Schedule{}, err
	}

	inserted, err := r.service.Events.Insert(r.calendarID, event).Context(ctx).Do()
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("カレンダーイベントの登録に失敗しました: %w", err)
	}
	return r.convertToSchedule(inserted)
}

// Update イベントを上書き
func (r *GoogleCalendarScheduleStore) Update(ctx context.Context, id string, fields domain.ScheduleFields) error {
	event, err := r.convertToCalendarEvent(fields)
	if err != nil {
		return err
	}

	if _, err := r.service.Events.Update(r.calendarID, id, event).Context(ctx).Do(); err != nil {
		return wrapGoogleError("カレンダーイベントの更新に失敗しました", id, err)
	}
	return nil
}

// Delete イベントを削除
func (r *GoogleCalendarScheduleStore) Delete(ctx context.Context, id string) error {
	if err := r.service.Events.Delete(r.calendarID, id).Context(ctx).Do(); err != nil {
		return wrapGoogleError("カレンダーイベントの削除に失敗しました", id, err)
	}
	return nil
}

// ListAll カレンダーの全イベントを取得
func (r *GoogleCalendarScheduleStore) ListAll(ctx context.Context) ([]domain.Schedule, error) {
	schedules := make([]domain.Schedule, 0)
	err := r.service.Events.List(r.calendarID).
		ShowDeleted(false).
		MaxResults(250).
		Pages(ctx, func(page *calendar.Events) error {
			for _, event := range page.Items {
				schedule, err := r.convertToSchedule(event)
				if err != nil {
					appLog.Error("イベントの変換をスキップしました", err, "id", event.Id)
					continue
				}
				schedules = append(schedules, schedule)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("カレンダーイベントの取得に失敗しました: %w", err)
	}
	return schedules, nil
}

// convertToCalendarEvent ストア項目をGoogle Calendarのイベントに変換
func (r *GoogleCalendarScheduleStore) convertToCalendarEvent(fields domain.ScheduleFields) (*calendar.Event, error) {
	start, err := domain.ParseTimestamp(fields.Start)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseTimestamp(fields.End)
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary: fields.Title,
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{authorProperty: fields.Author},
		},
	}

	if domain.IsAllDay(start, end) {
		// 終日イベントの終了日は排他的
		event.Start = &calendar.EventDateTime{Date: start.Format(domain.DateLayout)}
		event.End = &calendar.EventDateTime{Date: end.AddDate(0, 0, 1).Format(domain.DateLayout)}
		return event, nil
	}

	event.Start = &calendar.EventDateTime{DateTime: fields.Start, TimeZone: r.timezone.String()}
	event.End = &calendar.EventDateTime{DateTime: fields.End, TimeZone: r.timezone.String()}
	return event, nil
}

// convertToSchedule Google Calendar APIのイベントをドメインエンティティに変換
func (r *GoogleCalendarScheduleStore) convertToSchedule(event *calendar.Event) (domain.Schedule, error) {
	schedule := domain.Schedule{
		ID:     event.Id,
		Title:  event.Summary,
		Author: authorOf(event),
	}

	// タイトルが空の場合は「（無題）」に設定
	if schedule.Title == "" {
		schedule.Title = "（無題）"
	}

	if event.Start == nil || (event.Start.DateTime == "" && event.Start.Date == "") {
		return domain.Schedule{}, fmt.Errorf("開始時刻が設定されていません")
	}
	if event.End == nil || (event.End.DateTime == "" && event.End.Date == "") {
		return domain.Schedule{}, fmt.Errorf("終了時刻が設定されていません")
	}

	if event.Start.DateTime != "" {
		// 時刻指定ありのイベント
		startTime, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			return domain.Schedule{}, fmt.Errorf("開始時刻の解析に失敗しました: %w", err)
		}
		schedule.Start = domain.FormatTimestamp(startTime.In(r.timezone))
	} else {
		// 終日イベント
		startDate, err := time.Parse(domain.DateLayout, event.Start.Date)
		if err != nil {
			return domain.Schedule{}, fmt.Errorf("開始日の解析に失敗しました: %w", err)
		}
		start, _ := domain.ComposeSpan(startDate, startDate, domain.AllDayStart, domain.AllDayEnd, true)
		schedule.Start = domain.FormatTimestamp(start)
	}

	if event.End.DateTime != "" {
		endTime, err := time.Parse(time.RFC3339, event.End.DateTime)
		if err != nil {
			return domain.Schedule{}, fmt.Errorf("終了時刻の解析に失敗しました: %w", err)
		}
		schedule.End = domain.FormatTimestamp(endTime.In(r.timezone))
	} else {
		endDate, err := time.Parse(domain.DateLayout, event.End.Date)
		if err != nil {
			return domain.Schedule{}, fmt.Errorf("終了日の解析に失敗しました: %w", err)
		}
		// 排他的な終了日の前日 23:59:59 に置き換える
		lastDay := endDate.AddDate(0, 0, -1)
		_, end := domain.ComposeSpan(lastDay, lastDay, domain.AllDayStart, domain.AllDayEnd, true)
		schedule.End = domain.FormatTimestamp(end)
	}

	return schedule, nil
}

// authorOf 拡張プロパティ、作成者の表示名、メールアドレスの順に作成者を決める
func authorOf(event *calendar.Event) string {
	if event.ExtendedProperties != nil {
		if author := event.ExtendedProperties.Private[authorProperty]; author != "" {
			return author
		}
	}
	if event.Creator != nil {
		if event.Creator.DisplayName != "" {
			return event.Creator.DisplayName
		}
		if event.Creator.Email != "" {
			return event.Creator.Email
		}
	}
	return "不明"
}

// wrapGoogleError 404/410 を ErrNotFound として扱う
func wrapGoogleError(msg, id string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return fmt.Errorf("%s: id=%s: %w", msg, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
