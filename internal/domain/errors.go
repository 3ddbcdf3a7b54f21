package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound 指定された ID のスケジュールが存在しない
	ErrNotFound = errors.New("スケジュールが見つかりません")

	// ErrInvalidTransition 現在のモードでは実行できない操作
	ErrInvalidTransition = errors.New("現在のモードではこの操作はできません")
)

// ValidationError 必須項目が未入力
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("内容と作成者を入力してください (未入力: %s)", strings.Join(e.Fields, ", "))
}

// StoreError ストア操作の失敗
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("スケジュールの%sに失敗しました: %v", opLabel(e.Op), e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MalformedTimestampError 保存された日時を解析できない
type MalformedTimestampError struct {
	Value string
	Err   error
}

func (e *MalformedTimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("日時の解析に失敗しました: %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("日時の解析に失敗しました: %q", e.Value)
}

func (e *MalformedTimestampError) Unwrap() error {
	return e.Err
}

func opLabel(op string) string {
	switch op {
	case "create":
		return "登録"
	case "update":
		return "更新"
	case "delete":
		return "削除"
	case "list":
		return "取得"
	case "select":
		return "選択"
	default:
		return op
	}
}
