package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/k-negishi/team-scheduler/internal/domain"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
)

// supabaseTable スケジュールを保存するテーブル名
const supabaseTable = "schedules"

// SupabaseScheduleStore Supabase (PostgREST) を使用したScheduleStoreの実装
type SupabaseScheduleStore struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// supabaseRow schedules テーブルの1行
type supabaseRow struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
}

// supabaseErrorResponse PostgRESTのエラーレスポンス
type supabaseErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// NewSupabaseScheduleStore Supabaseストアを作成
func NewSupabaseScheduleStore(projectURL, apiKey string) *SupabaseScheduleStore {
	return &SupabaseScheduleStore{
		endpoint: strings.TrimRight(projectURL, "/") + "/rest/v1/" + supabaseTable,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Create スケジュールを登録
func (s *SupabaseScheduleStore) Create(ctx context.Context, fields domain.ScheduleFields) (domain.Schedule, error) {
	var rows []supabaseRow
	if err := s.do(ctx, http.MethodPost, nil, rowFromFields(fields), &rows); err != nil {
		return domain.Schedule{}, err
	}
	if len(rows) == 0 {
		return domain.Schedule{}, fmt.Errorf("Supabaseから登録結果が返りませんでした")
	}
	return rows[0].toSchedule(), nil
}

// Update スケジュールを更新
func (s *SupabaseScheduleStore) Update(ctx context.Context, id string, fields domain.ScheduleFields) error {
	var rows []supabaseRow
	if err := s.do(ctx, http.MethodPatch, idFilter(id), rowFromFields(fields), &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete スケジュールを削除
func (s *SupabaseScheduleStore) Delete(ctx context.Context, id string) error {
	var rows []supabaseRow
	if err := s.do(ctx, http.MethodDelete, idFilter(id), nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListAll 全スケジュールを取得
func (s *SupabaseScheduleStore) ListAll(ctx context.Context) ([]domain.Schedule, error) {
	var rows []supabaseRow
	if err := s.do(ctx, http.MethodGet, url.Values{"select": {"*"}}, nil, &rows); err != nil {
		return nil, err
	}
	schedules := make([]domain.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, row.toSchedule())
	}
	return schedules, nil
}

// do PostgRESTにリクエストを送信し、レスポンスをoutにデコードする
func (s *SupabaseScheduleStore) do(ctx context.Context, method string, query url.Values, body any, out any) error {
	var reader io.Reader
	if body != nil {
		requestBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %w", err)
		}
		reader = bytes.NewReader(requestBody)
	}

	endpoint := s.endpoint
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Supabaseへのリクエスト送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorResponse supabaseErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("Supabase API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}
		errorDetails := errorResponse.Message
		if errorResponse.Details != "" {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details)
		}
		return fmt.Errorf("Supabase API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("Supabaseレスポンスの解析に失敗しました: %w", err)
	}
	return nil
}

func idFilter(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

func rowFromFields(fields domain.ScheduleFields) supabaseRow {
	return supabaseRow{
		Title:     fields.Title,
		Author:    fields.Author,
		StartTime: fields.Start,
		EndTime:   fields.End,
	}
}

// toSchedule 行をドメインエンティティに変換
func (r supabaseRow) toSchedule() domain.Schedule {
	return domain.Schedule{
		ID:     rawID(r.ID),
		Title:  r.Title,
		Author: r.Author,
		Start:  normalizeTimestamp(r.StartTime),
		End:    normalizeTimestamp(r.EndTime),
	}
}

// rawID 数値・文字列どちらのIDも文字列にそろえる
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// normalizeTimestamp 小数秒やオフセット付きの値を YYYY-MM-DDTHH:MM:SS にそろえる
//
// 先頭19文字が解析できない値はそのまま返し、判定は利用側に任せる。
func normalizeTimestamp(ts string) string {
	ts = strings.Replace(ts, " ", "T", 1)
	if len(ts) <= len(domain.TimestampLayout) {
		return ts
	}
	head := ts[:len(domain.TimestampLayout)]
	if _, err := domain.ParseTimestamp(head); err != nil {
		appLog.Debug("日時を正規化できません", "value", ts)
		return ts
	}
	return head
}
