package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/team-scheduler/internal/domain"
)

// MockNotifier は Notifier のテスト用モック
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendScheduleNotification(ctx context.Context, todaySchedules, tomorrowSchedules []domain.Schedule) error {
	args := m.Called(ctx, todaySchedules, tomorrowSchedules)
	return args.Error(0)
}

var (
	digestToday    = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	digestTomorrow = time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
)

// --- Execute テスト ---

func TestExecute_Success(t *testing.T) {
	mockStore := new(MockScheduleStore)
	mockNotifier := new(MockNotifier)
	uc := NewNotifyScheduleUseCase(mockStore, mockNotifier)

	morning := domain.Schedule{ID: "1", Title: "朝会", Author: "Alice", Start: "2024-01-15T09:00:00", End: "2024-01-15T10:00:00"}
	allDay := domain.Schedule{ID: "2", Title: "終日イベント", Author: "Bob", Start: "2024-01-16T00:00:00", End: "2024-01-16T23:59:59"}
	later := domain.Schedule{ID: "3", Title: "来週の予定", Author: "Carol", Start: "2024-01-22T09:00:00", End: "2024-01-22T10:00:00"}

	mockStore.On("ListAll", mock.Anything).Return([]domain.Schedule{morning, allDay, later}, nil)
	mockNotifier.On("SendScheduleNotification", mock.Anything, []domain.Schedule{morning}, []domain.Schedule{allDay}).Return(nil)

	skipped, err := uc.Execute(context.Background(), digestToday, digestTomorrow)
	require.NoError(t, err)
	assert.False(t, skipped)
	mockStore.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestExecute_NoSchedules_Skipped(t *testing.T) {
	mockStore := new(MockScheduleStore)
	mockNotifier := new(MockNotifier)
	uc := NewNotifyScheduleUseCase(mockStore, mockNotifier)

	mockStore.On("ListAll", mock.Anything).Return([]domain.Schedule{}, nil)

	skipped, err := uc.Execute(context.Background(), digestToday, digestTomorrow)
	require.NoError(t, err)
	assert.True(t, skipped)
	// 予定なしの場合 SendScheduleNotification は呼ばれない
	mockNotifier.AssertNotCalled(t, "SendScheduleNotification")
}

func TestExecute_StoreError(t *testing.T) {
	mockStore := new(MockScheduleStore)
	mockNotifier := new(MockNotifier)
	uc := NewNotifyScheduleUseCase(mockStore, mockNotifier)

	mockStore.On("ListAll", mock.Anything).Return(nil, errors.New("supabase error"))

	_, err := uc.Execute(context.Background(), digestToday, digestTomorrow)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "supabase error")
	mockNotifier.AssertNotCalled(t, "SendScheduleNotification")
}

func TestExecute_NotifierError(t *testing.T) {
	mockStore := new(MockScheduleStore)
	mockNotifier := new(MockNotifier)
	uc := NewNotifyScheduleUseCase(mockStore, mockNotifier)

	s := domain.Schedule{ID: "1", Title: "テスト", Author: "Alice", Start: "2024-01-15T09:00:00", End: "2024-01-15T10:00:00"}
	mockStore.On("ListAll", mock.Anything).Return([]domain.Schedule{s}, nil)
	mockNotifier.On("SendScheduleNotification", mock.Anything, []domain.Schedule{s}, []domain.Schedule{}).Return(errors.New("LINE API error"))

	_, err := uc.Execute(context.Background(), digestToday, digestTomorrow)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LINE API error")
}
