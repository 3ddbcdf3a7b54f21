package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/k-negishi/team-scheduler/internal/domain"
	appLog "github.com/k-negishi/team-scheduler/internal/log"
	"github.com/k-negishi/team-scheduler/internal/view"
)

// ProductID iCalendar の PRODID
const ProductID = "-//k-negishi//Team Scheduler//JA"

const (
	floatingLayout = "20060102T150405"
	dateLayout     = "20060102"
)

// Export スケジュールを iCalendar 形式に変換する
//
// 終日予定は VALUE=DATE（DTEND は翌日・排他的）、それ以外はタイムゾーンなしの
// フローティング時刻で出力する。日時を解析できないスケジュールはスキップする。
func Export(schedules []domain.Schedule, calendarName string, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if calendarName != "" {
		cal.SetName(calendarName)
	}

	for _, s := range schedules {
		start, err := domain.ParseTimestamp(s.Start)
		if err != nil {
			appLog.Error("ICS出力をスキップしました", err, "id", s.ID)
			continue
		}
		end, err := domain.ParseTimestamp(s.End)
		if err != nil {
			appLog.Error("ICS出力をスキップしました", err, "id", s.ID)
			continue
		}

		event := cal.AddEvent(s.ID + "@team-scheduler")
		event.SetDtStampTime(now.UTC())
		event.SetSummary(view.Label(s))
		event.SetDescription("作成者: " + s.Author)
		event.SetProperty(ical.ComponentPropertyColor, view.ColorFor(s.Author))

		if domain.IsAllDay(start, end) {
			event.SetProperty(ical.ComponentPropertyDtStart, start.Format(dateLayout), ical.WithValue(string(ical.ValueDataTypeDate)))
			event.SetProperty(ical.ComponentPropertyDtEnd, end.AddDate(0, 0, 1).Format(dateLayout), ical.WithValue(string(ical.ValueDataTypeDate)))
			continue
		}
		event.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
		event.SetProperty(ical.ComponentPropertyDtEnd, end.Format(floatingLayout))
	}

	return cal.Serialize()
}
