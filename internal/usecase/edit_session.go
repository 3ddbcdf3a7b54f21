package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/k-negishi/team-scheduler/internal/domain"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
)

// ScheduleStore スケジュールを永続化するポート
type ScheduleStore interface {
	Create(ctx context.Context, fields domain.ScheduleFields) (domain.Schedule, error)
	Update(ctx context.Context, id string, fields domain.ScheduleFields) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Schedule, error)
}

// Mode 編集セッションのモード
type Mode string

const (
	ModeCreating Mode = "CREATING"
	ModeEditing  Mode = "EDITING"
)

// EditSession 新規登録・編集フォームの状態
//
// TargetID は ModeEditing のときだけ設定される。
type EditSession struct {
	Mode     Mode
	TargetID string
	Staged   domain.Staged
}

// EditSessionUseCase 編集セッションの状態遷移ユースケース
type EditSessionUseCase struct {
	store ScheduleStore
	clock func() time.Time
}

// NewEditSessionUseCase ユースケースを生成
func NewEditSessionUseCase(store ScheduleStore, clock func() time.Time) *EditSessionUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &EditSessionUseCase{
		store: store,
		clock: clock,
	}
}

// New 初期値の新規登録セッションを返す
func (uc *EditSessionUseCase) New() EditSession {
	return EditSession{
		Mode:   ModeCreating,
		Staged: domain.DefaultStaged(uc.clock()),
	}
}

// SelectForEdit 既存のスケジュールを編集モードで開く
//
// 日時が解析できない場合はセッションを変更せずに MalformedTimestampError を返す。
func (uc *EditSessionUseCase) SelectForEdit(session EditSession, schedule domain.Schedule) (EditSession, error) {
	staged, err := schedule.Split()
	if err != nil {
		appLog.Error("編集対象の日時を解析できません", err, "id", schedule.ID)
		return session, err
	}
	return EditSession{
		Mode:     ModeEditing,
		TargetID: schedule.ID,
		Staged:   staged,
	}, nil
}

// SelectForEditByID ID で指定されたスケジュールを編集モードで開く
func (uc *EditSessionUseCase) SelectForEditByID(ctx context.Context, session EditSession, id string) (EditSession, error) {
	schedules, err := uc.store.ListAll(ctx)
	if err != nil {
		return session, &domain.StoreError{Op: "list", Err: err}
	}
	for _, s := range schedules {
		if s.ID == id {
			return uc.SelectForEdit(session, s)
		}
	}
	return session, &domain.StoreError{Op: "select", Err: fmt.Errorf("id=%s: %w", id, domain.ErrNotFound)}
}

// Submit フォームの内容を登録または更新する
//
// 成功すると新規登録セッションに戻る。失敗した場合は入力内容を保持したまま返す。
func (uc *EditSessionUseCase) Submit(ctx context.Context, session EditSession) (EditSession, error) {
	fields, err := session.Staged.Compose()
	if err != nil {
		return session, err
	}

	switch session.Mode {
	case ModeCreating:
		created, err := uc.store.Create(ctx, fields)
		if err != nil {
			appLog.Error("スケジュールの登録に失敗しました", err, "title", fields.Title)
			return session, &domain.StoreError{Op: "create", Err: err}
		}
		appLog.Info("スケジュールを登録しました", "id", created.ID, "title", created.Title)
	case ModeEditing:
		if err := uc.store.Update(ctx, session.TargetID, fields); err != nil {
			appLog.Error("スケジュールの更新に失敗しました", err, "id", session.TargetID)
			return session, &domain.StoreError{Op: "update", Err: err}
		}
		appLog.Info("スケジュールを更新しました", "id", session.TargetID)
	default:
		return session, fmt.Errorf("不明なモードです: %q: %w", session.Mode, domain.ErrInvalidTransition)
	}

	return uc.New(), nil
}

// Delete 編集中のスケジュールを削除する
func (uc *EditSessionUseCase) Delete(ctx context.Context, session EditSession) (EditSession, error) {
	if session.Mode != ModeEditing {
		return session, domain.ErrInvalidTransition
	}
	if err := uc.store.Delete(ctx, session.TargetID); err != nil {
		appLog.Error("スケジュールの削除に失敗しました", err, "id", session.TargetID)
		return session, &domain.StoreError{Op: "delete", Err: err}
	}
	appLog.Info("スケジュールを削除しました", "id", session.TargetID)
	return uc.New(), nil
}

// Cancel 編集をやめて新規登録セッションに戻る
func (uc *EditSessionUseCase) Cancel(session EditSession) (EditSession, error) {
	if session.Mode != ModeEditing {
		return session, domain.ErrInvalidTransition
	}
	return uc.New(), nil
}
