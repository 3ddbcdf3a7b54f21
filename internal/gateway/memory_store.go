package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/k-negishi/team-scheduler/internal/domain"
)

// MemoryScheduleStore プロセス内メモリに保持するScheduleStoreの実装
//
// ローカル開発とテスト用。登録順を保持する。
type MemoryScheduleStore struct {
	mu        sync.RWMutex
	schedules []domain.Schedule
	newID     func() string
}

// NewMemoryScheduleStore メモリストアを作成
func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{
		newID: uuid.NewString,
	}
}

// Create スケジュールを登録
func (s *MemoryScheduleStore) Create(_ context.Context, fields domain.ScheduleFields) (domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := domain.Schedule{
		ID:     s.newID(),
		Title:  fields.Title,
		Author: fields.Author,
		Start:  fields.Start,
		End:    fields.End,
	}
	s.schedules = append(s.schedules, schedule)
	return schedule, nil
}

// Update スケジュールを上書き
func (s *MemoryScheduleStore) Update(_ context.Context, id string, fields domain.ScheduleFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("id=%s: %w", id, domain.ErrNotFound)
	}
	s.schedules[i] = domain.Schedule{
		ID:     id,
		Title:  fields.Title,
		Author: fields.Author,
		Start:  fields.Start,
		End:    fields.End,
	}
	return nil
}

// Delete スケジュールを削除
func (s *MemoryScheduleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("id=%s: %w", id, domain.ErrNotFound)
	}
	s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
	return nil
}

// ListAll 全スケジュールを登録順に返す
func (s *MemoryScheduleStore) ListAll(_ context.Context) ([]domain.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Schedule, len(s.schedules))
	copy(out, s.schedules)
	return out, nil
}

func (s *MemoryScheduleStore) indexOf(id string) int {
	for i, schedule := range s.schedules {
		if schedule.ID == id {
			return i
		}
	}
	return -1
}
