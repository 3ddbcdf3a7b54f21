package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/k-negishi/team-scheduler/internal/domain"
)

// scheduleRecord schedules テーブルのGORMモデル
type scheduleRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Title     string    `gorm:"not null"`
	Author    string    `gorm:"not null;index"`
	StartTime string    `gorm:"size:19;not null;index"`
	EndTime   string    `gorm:"size:19;not null"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (scheduleRecord) TableName() string { return "schedules" }

// SQLScheduleStore GORMを使用したScheduleStoreの実装
type SQLScheduleStore struct {
	db *gorm.DB
}

// OpenPostgresScheduleStore PostgreSQLに接続してストアを作成
func OpenPostgresScheduleStore(dsn string) (*SQLScheduleStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗しました: %w", err)
	}
	return NewSQLScheduleStore(db)
}

// NewSQLScheduleStore 接続済みのDBからストアを作成し、テーブルを準備する
func NewSQLScheduleStore(db *gorm.DB) (*SQLScheduleStore, error) {
	if err := db.AutoMigrate(&scheduleRecord{}); err != nil {
		return nil, fmt.Errorf("schedulesテーブルのマイグレーションに失敗しました: %w", err)
	}
	return &SQLScheduleStore{db: db}, nil
}

// Create スケジュールを登録
func (s *SQLScheduleStore) Create(ctx context.Context, fields domain.ScheduleFields) (domain.Schedule, error) {
	record := scheduleRecord{
		ID:        uuid.NewString(),
		Title:     fields.Title,
		Author:    fields.Author,
		StartTime: fields.Start,
		EndTime:   fields.End,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.Schedule{}, fmt.Errorf("スケジュールのINSERTに失敗しました: %w", err)
	}
	return record.toSchedule(), nil
}

// Update スケジュールを更新
func (s *SQLScheduleStore) Update(ctx context.Context, id string, fields domain.ScheduleFields) error {
	result := s.db.WithContext(ctx).Model(&scheduleRecord{}).Where("id = ?", id).Updates(map[string]any{
		"title":      fields.Title,
		"author":     fields.Author,
		"start_time": fields.Start,
		"end_time":   fields.End,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("スケジュールのUPDATEに失敗しました: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete スケジュールを削除
func (s *SQLScheduleStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&scheduleRecord{})
	if result.Error != nil {
		return fmt.Errorf("スケジュールのDELETEに失敗しました: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListAll 全スケジュールを登録順に取得
func (s *SQLScheduleStore) ListAll(ctx context.Context) ([]domain.Schedule, error) {
	var records []scheduleRecord
	if err := s.db.WithContext(ctx).Order("created_at").Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("スケジュールのSELECTに失敗しました: %w", err)
	}
	schedules := make([]domain.Schedule, 0, len(records))
	for _, r := range records {
		schedules = append(schedules, r.toSchedule())
	}
	return schedules, nil
}

func (r scheduleRecord) toSchedule() domain.Schedule {
	return domain.Schedule{
		ID:     r.ID,
		Title:  r.Title,
		Author: r.Author,
		Start:  r.StartTime,
		End:    r.EndTime,
	}
}
