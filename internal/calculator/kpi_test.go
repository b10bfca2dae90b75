package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"wardboard/internal/model"
	"wardboard/internal/session"
)

func day(d int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
}

// identicalRows 同一値の日次レコードを days 日分作る
func identicalRows(days int, census, admissions, discharges float64) []model.CensusRecord {
	records := make([]model.CensusRecord, 0, days)
	for i := 1; i <= days; i++ {
		records = append(records, model.CensusRecord{
			Date:            day(i),
			WardCode:        "02A",
			DepartmentName:  "内科",
			Census:          census,
			Admissions:      admissions,
			Discharges:      discharges,
			TotalAdmissions: admissions,
			TotalDischarges: discharges,
		})
	}
	return records
}

func TestCompute_ReferenceScenario(t *testing.T) {
	t.Parallel()

	// 30日間 同一値: 在院100 入院10 退院10 病床120
	records := identicalRows(30, 100, 10, 10)
	agg := NewAggregator(120)

	kpi, err := agg.Compute(records, model.Period{Start: day(1), End: day(30)})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if kpi.PeriodDays != 30 {
		t.Fatalf("period days = %d, want 30", kpi.PeriodDays)
	}
	if kpi.AvgDailyCensus != 100 {
		t.Fatalf("avg daily census = %v, want 100", kpi.AvgDailyCensus)
	}
	if math.Abs(kpi.BedOccupancyRate-83.333) > 0.01 {
		t.Fatalf("occupancy = %v, want ≈83.3", kpi.BedOccupancyRate)
	}
	if kpi.ALOS != 10 {
		t.Fatalf("alos = %v, want 10", kpi.ALOS)
	}
	if kpi.AvgDailyAdmissions != 10 {
		t.Fatalf("avg daily admissions = %v, want 10", kpi.AvgDailyAdmissions)
	}
}

func TestCompute_PeriodDaysCountsDistinctDates(t *testing.T) {
	t.Parallel()

	// 3日分だが同日に2病棟 → 日数は3
	records := []model.CensusRecord{
		{Date: day(1), WardCode: "02A", DepartmentName: "内科", Census: 10},
		{Date: day(1), WardCode: "03B", DepartmentName: "外科", Census: 20},
		{Date: day(5), WardCode: "02A", DepartmentName: "内科", Census: 30},
		{Date: day(9), WardCode: "02A", DepartmentName: "内科", Census: 40},
	}
	agg := NewAggregator(100)

	kpi, err := agg.Compute(records, model.Period{Start: day(1), End: day(10)})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if kpi.PeriodDays != 3 {
		t.Fatalf("period days = %d, want 3（暦日数ではなくデータのある日数）", kpi.PeriodDays)
	}

	// avg × period_days = total_patient_days
	if math.Abs(kpi.AvgDailyCensus*float64(kpi.PeriodDays)-kpi.TotalPatientDays) > 1e-9 {
		t.Fatalf("avg %v × days %d != total %v", kpi.AvgDailyCensus, kpi.PeriodDays, kpi.TotalPatientDays)
	}
}

func TestCompute_NoDataIsDistinguishable(t *testing.T) {
	t.Parallel()

	records := identicalRows(5, 10, 1, 1)
	agg := NewAggregator(100)

	_, err := agg.Compute(records, model.Period{Start: day(20), End: day(25)})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	records := identicalRows(10, 33, 3, 2)
	agg := NewAggregator(50)
	p := model.Period{Start: day(1), End: day(10)}

	first, err := agg.Compute(records, p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := agg.Compute(records, p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first != second {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
}

func TestCompute_ZeroGuards(t *testing.T) {
	t.Parallel()

	// 入退院ゼロ・病床ゼロでも例外にせず 0 を返す
	records := identicalRows(3, 10, 0, 0)
	agg := NewAggregator(0)

	kpi, err := agg.Compute(records, model.Period{Start: day(1), End: day(3)})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if kpi.ALOS != 0 || kpi.BedOccupancyRate != 0 || kpi.EmergencyRate != 0 || kpi.MortalityRate != 0 {
		t.Fatalf("期待したガード値でない: %+v", kpi)
	}
}

func TestComputeWithTarget_Achievement(t *testing.T) {
	t.Parallel()

	records := identicalRows(10, 90, 5, 5)
	agg := NewAggregator(100)
	p := model.Period{Start: day(1), End: day(10)}

	lookup := func(key string, dayType model.DayType) (float64, bool) {
		if key == "全体" && dayType == model.DayTypeAll {
			return 100, true
		}
		return 0, false
	}

	kpi, err := agg.ComputeWithTarget(records, p, "全体", lookup)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if kpi.Achievement == nil || math.Abs(*kpi.Achievement-90) > 1e-9 {
		t.Fatalf("achievement = %v, want 90", kpi.Achievement)
	}

	// 目標が無い場合は nil（0% ではない）
	kpi, err = agg.ComputeWithTarget(records, p, "未設定", lookup)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if kpi.Achievement != nil {
		t.Fatalf("achievement = %v, want nil", *kpi.Achievement)
	}
}

func TestComputeGrouped_Ordering(t *testing.T) {
	t.Parallel()

	records := []model.CensusRecord{
		{Date: day(1), WardCode: "02A", DepartmentName: "内科", Census: 90},
		{Date: day(1), WardCode: "03B", DepartmentName: "外科", Census: 50},
		{Date: day(1), WardCode: "04C", DepartmentName: "小児科", Census: 30},
		{Date: day(1), WardCode: "04D", DepartmentName: "眼科", Census: 30},
	}
	agg := NewAggregator(100)
	p := model.Period{Start: day(1), End: day(1)}

	targets := map[string]float64{"02A": 100, "03B": 40}
	lookup := func(key string, dayType model.DayType) (float64, bool) {
		v, ok := targets[key]
		return v, ok
	}

	rows := agg.ComputeGrouped(records, p, model.EntityWard, lookup, nil)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}

	// 03B 達成率125 > 02A 達成率90 > 目標なしはキー昇順
	wantOrder := []string{"03B", "02A", "04C", "04D"}
	for i, want := range wantOrder {
		if rows[i].Key != want {
			t.Fatalf("rows[%d] = %s, want %s (order: %+v)", i, rows[i].Key, want, rows)
		}
	}
}

func TestResolvePeriod_ClampAndPresets(t *testing.T) {
	t.Parallel()

	// 10日分しかないデータに直近30日を適用 → 開始は最小日付へ切り詰め
	ds := session.NewDataset(identicalRows(10, 10, 1, 1), nil, nil, "")

	p, err := ResolvePeriod(ds, PresetLast30Days)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !p.Start.Equal(day(1)) || !p.End.Equal(day(10)) {
		t.Fatalf("period = [%v, %v], want [day1, day10]", p.Start, p.End)
	}

	if _, err := ResolvePeriod(ds, "知らない期間"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("err = %v, want ErrUnknownPreset", err)
	}
}

func TestResolvePeriod_FiscalYear(t *testing.T) {
	t.Parallel()

	mk := func(dates ...time.Time) *session.Dataset {
		var records []model.CensusRecord
		for _, d := range dates {
			records = append(records, model.CensusRecord{Date: d, WardCode: "02A", DepartmentName: "内科", Census: 1})
		}
		return session.NewDataset(records, nil, nil, "")
	}
	d := func(y int, m time.Month, dd int) time.Time {
		return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	}

	// 最大日付が 2025-03-15 → [2024-04-01, 2025-03-15]
	p, err := ResolvePeriod(mk(d(2024, 4, 1), d(2025, 3, 15)), PresetFiscalYear)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !p.Start.Equal(d(2024, 4, 1)) || !p.End.Equal(d(2025, 3, 15)) {
		t.Fatalf("period = [%v, %v]", p.Start, p.End)
	}

	// 最大日付が 2025-04-15 → [2025-04-01, 2025-04-15]
	p, err = ResolvePeriod(mk(d(2025, 4, 1), d(2025, 4, 15)), PresetFiscalYear)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !p.Start.Equal(d(2025, 4, 1)) || !p.End.Equal(d(2025, 4, 15)) {
		t.Fatalf("period = [%v, %v]", p.Start, p.End)
	}
}

func TestResolvePeriod_PriorMonth(t *testing.T) {
	t.Parallel()

	var records []model.CensusRecord
	for i := 1; i <= 75; i++ {
		records = append(records, model.CensusRecord{
			Date:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i-1),
			WardCode: "02A", DepartmentName: "内科", Census: 1,
		})
	}
	ds := session.NewDataset(records, nil, nil, "")

	// 最大日付 2025-06-14 → 前月完了分は 2025-05
	p, err := ResolvePeriod(ds, PresetPriorMonth)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Start.Format("2006-01-02") != "2025-05-01" || p.End.Format("2006-01-02") != "2025-05-31" {
		t.Fatalf("period = [%v, %v]", p.Start, p.End)
	}
}

func TestResolveCustomPeriod_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ResolveCustomPeriod(day(10), day(1))
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("err = %v, want ErrInvalidPeriod", err)
	}
}
