package calculator

import (
	"math"
	"testing"
	"time"

	"wardboard/internal/calendar"
	"wardboard/internal/model"
)

// weekSplitRows 平日は census=100、休日は census=60 のレコードを days 日分作る
func weekSplitRows(start time.Time, days int) []model.CensusRecord {
	var records []model.CensusRecord
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		census := 100.0
		if !calendar.IsWeekday(d) {
			census = 60.0
		}
		rec := model.CensusRecord{Date: d, WardCode: "02A", DepartmentName: "内科", Census: census}
		rec.Derive(calendar.IsWeekday)
		records = append(records, rec)
	}
	return records
}

func TestPeriodSummaries(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	records := weekSplitRows(start, 45)
	maxDate := start.AddDate(0, 0, 44) // 2025-06-14

	summaries := PeriodSummaries(records, maxDate)
	if len(summaries) != 7 {
		t.Fatalf("summaries = %d, want 7（直近5段 + 年度 + 前年度同期間）", len(summaries))
	}

	for _, s := range summaries[:6] {
		if !s.HasData {
			t.Fatalf("%s: データがあるのに HasData=false", s.Label)
		}
		if math.Abs(s.WeekdayAvg-100) > 1e-9 {
			t.Fatalf("%s: weekday avg = %v, want 100", s.Label, s.WeekdayAvg)
		}
		if math.Abs(s.HolidayAvg-60) > 1e-9 {
			t.Fatalf("%s: holiday avg = %v, want 60", s.Label, s.HolidayAvg)
		}
		if s.AllDayAvg < 60 || s.AllDayAvg > 100 {
			t.Fatalf("%s: all day avg = %v", s.Label, s.AllDayAvg)
		}
	}

	if summaries[5].Label != "年度平均" {
		t.Fatalf("labels[5] = %s, want 年度平均", summaries[5].Label)
	}
	if summaries[6].Label != "前年度同期間" {
		t.Fatalf("labels[6] = %s, want 前年度同期間", summaries[6].Label)
	}
	if summaries[6].HasData {
		t.Fatal("前年度のデータが無いのに HasData=true")
	}
}

func TestBaselineProjection_CoversFiscalYearWithoutGap(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	records := weekSplitRows(start, 75)
	maxDate := start.AddDate(0, 0, 74) // 2025-06-14

	total := BaselineProjection(records, maxDate, 30)

	// 実績分の下限（75日 × 最低60人日）より大きく、
	// 年度365日 × 最大100人日より小さいこと
	if total < 75*60 {
		t.Fatalf("projection = %v, 実績分より小さい", total)
	}
	if total > 366*100 {
		t.Fatalf("projection = %v, 上限を超えている", total)
	}
}

func TestProjectRevenue(t *testing.T) {
	t.Parallel()

	// 6月の15日分 各日100人日 → 月見込み 100×30
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var records []model.CensusRecord
	for i := 0; i < 15; i++ {
		records = append(records, model.CensusRecord{
			Date: start.AddDate(0, 0, i), WardCode: "02A", DepartmentName: "内科", Census: 100,
		})
	}

	proj, err := ProjectRevenue(records, start.AddDate(0, 0, 14), 55000, 3000)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	if proj.ElapsedDays != 15 {
		t.Fatalf("elapsed = %d, want 15", proj.ElapsedDays)
	}
	if math.Abs(proj.ProjectedDays-3000) > 1e-9 {
		t.Fatalf("projected days = %v, want 3000", proj.ProjectedDays)
	}
	if math.Abs(proj.ProjectedRevenue-3000*55000) > 1e-6 {
		t.Fatalf("revenue = %v", proj.ProjectedRevenue)
	}
	if math.Abs(proj.TargetAchievement-100) > 1e-9 {
		t.Fatalf("achievement = %v, want 100", proj.TargetAchievement)
	}
}

func TestProjectRevenue_NoData(t *testing.T) {
	t.Parallel()

	_, err := ProjectRevenue(nil, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 55000, 3000)
	if err == nil {
		t.Fatalf("expected error")
	}
}
