package web

import (
	"fmt"
	"time"

	"github.com/k-negishi/team-scheduler/internal/domain"
	"github.com/k-negishi/team-scheduler/internal/usecase"
)

// sessionDTO 編集セッションのJSON表現
type sessionDTO struct {
	Mode      usecase.Mode `json:"mode"`
	TargetID  string       `json:"target_id,omitempty"`
	Title     string       `json:"title"`
	Author    string       `json:"author"`
	AllDay    bool         `json:"all_day"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
}

type sessionRequest struct {
	Session *sessionDTO `json:"session"`
	ID      string      `json:"id,omitempty"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
	Error   string     `json:"error,omitempty"`
	Warning string     `json:"warning,omitempty"`
}

func toSessionDTO(s usecase.EditSession) sessionDTO {
	return sessionDTO{
		Mode:      s.Mode,
		TargetID:  s.TargetID,
		Title:     s.Staged.Title,
		Author:    s.Staged.Author,
		AllDay:    s.Staged.AllDay,
		StartDate: s.Staged.StartDate.Format(domain.DateLayout),
		EndDate:   s.Staged.EndDate.Format(domain.DateLayout),
		StartTime: s.Staged.StartTime.String(),
		EndTime:   s.Staged.EndTime.String(),
	}
}

// toEditSession JSONからセッションを復元
//
// 終日の場合は時刻を無視してよいので、空の時刻も受け付ける。
func (d *sessionDTO) toEditSession() (usecase.EditSession, error) {
	switch d.Mode {
	case usecase.ModeCreating:
		if d.TargetID != "" {
			return usecase.EditSession{}, fmt.Errorf("新規登録モードではtarget_idを指定できません")
		}
	case usecase.ModeEditing:
		if d.TargetID == "" {
			return usecase.EditSession{}, fmt.Errorf("編集モードではtarget_idが必要です")
		}
	default:
		return usecase.EditSession{}, fmt.Errorf("不明なモードです: %q", d.Mode)
	}

	startDate, err := parseDate("start_date", d.StartDate)
	if err != nil {
		return usecase.EditSession{}, err
	}
	endDate, err := parseDate("end_date", d.EndDate)
	if err != nil {
		return usecase.EditSession{}, err
	}
	startTime, err := parseClock("start_time", d.StartTime, d.AllDay, domain.AllDayStart)
	if err != nil {
		return usecase.EditSession{}, err
	}
	endTime, err := parseClock("end_time", d.EndTime, d.AllDay, domain.AllDayEnd)
	if err != nil {
		return usecase.EditSession{}, err
	}

	return usecase.EditSession{
		Mode:     d.Mode,
		TargetID: d.TargetID,
		Staged: domain.Staged{
			Title:     d.Title,
			Author:    d.Author,
			AllDay:    d.AllDay,
			StartDate: startDate,
			EndDate:   endDate,
			StartTime: startTime,
			EndTime:   endTime,
		},
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%sの形式が不正です: %q", field, value)
	}
	return t, nil
}

func parseClock(field, value string, allDay bool, fallback domain.TimeOfDay) (domain.TimeOfDay, error) {
	if value == "" && allDay {
		return fallback, nil
	}
	t, err := domain.ParseTimeOfDay(value)
	if err != nil {
		return domain.TimeOfDay{}, fmt.Errorf("%sの形式が不正です: %q", field, value)
	}
	return t, nil
}
