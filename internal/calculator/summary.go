package calculator

import (
	"time"

	"wardboard/internal/calendar"
	"wardboard/internal/model"
)

// summaryLadder サマリー表に並べる期間の段
var summaryLadder = []struct {
	label string
	days  int
}{
	{"直近7日平均", 7},
	{"直近14日平均", 14},
	{"直近30日平均", 30},
	{"直近60日平均", 60},
	{"直近90日平均", 90},
}

// daySplit 全日・平日・休日それぞれの平均在院患者数
type daySplit struct {
	allSum   float64
	allDays  map[time.Time]bool
	weekSum  float64
	weekDays map[time.Time]bool
	holSum   float64
	holDays  map[time.Time]bool
}

func newDaySplit() *daySplit {
	return &daySplit{
		allDays:  make(map[time.Time]bool),
		weekDays: make(map[time.Time]bool),
		holDays:  make(map[time.Time]bool),
	}
}

func (s *daySplit) add(rec *model.CensusRecord) {
	s.allSum += rec.Census
	s.allDays[rec.Date] = true
	if rec.IsWeekday {
		s.weekSum += rec.Census
		s.weekDays[rec.Date] = true
	} else {
		s.holSum += rec.Census
		s.holDays[rec.Date] = true
	}
}

func avg(sum float64, days map[time.Time]bool) float64 {
	if len(days) == 0 {
		return 0
	}
	return sum / float64(len(days))
}

func splitForPeriod(records []model.CensusRecord, p model.Period) *daySplit {
	s := newDaySplit()
	for i := range records {
		if p.Contains(records[i].Date) {
			s.add(&records[i])
		}
	}
	return s
}

// PeriodSummaries 直近N日と今年度の全日・平日・休日平均の一覧を作る
// データの無い段は HasData=false で返す（表側で「-」表示にする）
func PeriodSummaries(records []model.CensusRecord, maxDate time.Time) []model.PeriodSummary {
	maxDate = calendar.Truncate(maxDate)
	var out []model.PeriodSummary

	for _, step := range summaryLadder {
		p := model.Period{Start: maxDate.AddDate(0, 0, -(step.days - 1)), End: maxDate, Label: step.label}
		s := splitForPeriod(records, p)
		out = append(out, model.PeriodSummary{
			Label:      step.label,
			AllDayAvg:  avg(s.allSum, s.allDays),
			WeekdayAvg: avg(s.weekSum, s.weekDays),
			HolidayAvg: avg(s.holSum, s.holDays),
			HasData:    len(s.allDays) > 0,
		})
	}

	fiscal := model.Period{Start: calendar.FiscalYearStart(maxDate), End: maxDate, Label: "年度平均"}
	s := splitForPeriod(records, fiscal)
	out = append(out, model.PeriodSummary{
		Label:      "年度平均",
		AllDayAvg:  avg(s.allSum, s.allDays),
		WeekdayAvg: avg(s.weekSum, s.weekDays),
		HolidayAvg: avg(s.holSum, s.holDays),
		HasData:    len(s.allDays) > 0,
	})

	// 前年度の同じ経過期間（4/1〜基準日の1年前）との比較用
	prev := model.Period{
		Start: calendar.FiscalYearStart(maxDate).AddDate(-1, 0, 0),
		End:   maxDate.AddDate(-1, 0, 0),
		Label: "前年度同期間",
	}
	ps := splitForPeriod(records, prev)
	out = append(out, model.PeriodSummary{
		Label:      "前年度同期間",
		AllDayAvg:  avg(ps.allSum, ps.allDays),
		WeekdayAvg: avg(ps.weekSum, ps.weekDays),
		HolidayAvg: avg(ps.holSum, ps.holDays),
		HasData:    len(ps.allDays) > 0,
	})

	return out
}

// BaselineProjection 平日・休日平均に基づく年度末までの延べ人日見込み
// 実績分 + 平日平均×残平日数 + 休日平均×残休日数
func BaselineProjection(records []model.CensusRecord, maxDate time.Time, baselineDays int) float64 {
	maxDate = calendar.Truncate(maxDate)

	base := model.Period{Start: maxDate.AddDate(0, 0, -(baselineDays - 1)), End: maxDate}
	s := splitForPeriod(records, base)
	weekdayAvg := avg(s.weekSum, s.weekDays)
	holidayAvg := avg(s.holSum, s.holDays)

	fiscal := model.Period{Start: calendar.FiscalYearStart(maxDate), End: maxDate}
	actual := splitForPeriod(records, fiscal)

	total := actual.allSum
	fyEnd := calendar.FiscalYearEnd(maxDate)
	for d := maxDate.AddDate(0, 0, 1); !d.After(fyEnd); d = d.AddDate(0, 0, 1) {
		if calendar.IsWeekday(d) {
			total += weekdayAvg
		} else {
			total += holidayAvg
		}
	}
	return total
}
