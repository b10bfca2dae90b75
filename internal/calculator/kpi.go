package calculator

import (
	"sort"
	"time"

	"wardboard/internal/model"
)

// TargetLookup 部門キーと区分から目標値を引く
// 見つからない場合は false（目標なしは 0% とは別物）
type TargetLookup func(key string, dayType model.DayType) (float64, bool)

// Aggregator 期間KPIの集計器
type Aggregator struct {
	TotalBeds int
}

// NewAggregator 集計器を作成
func NewAggregator(totalBeds int) *Aggregator {
	return &Aggregator{TotalBeds: totalBeds}
}

// sums 期間内の合計値
type sums struct {
	patientDays float64
	admissions  float64
	emergency   float64
	discharges  float64
	deaths      float64
	days        map[time.Time]bool
}

func accumulate(records []model.CensusRecord, p model.Period) sums {
	s := sums{days: make(map[time.Time]bool)}
	for _, rec := range records {
		if !p.Contains(rec.Date) {
			continue
		}
		s.patientDays += rec.Census
		s.admissions += rec.TotalAdmissions
		s.emergency += rec.EmergencyAdmissions
		s.discharges += rec.TotalDischarges
		s.deaths += rec.Deaths
		s.days[rec.Date] = true
	}
	return s
}

// kpiFromSums 合計値からKPIを組み立てる
// ゼロ除算は常にガードして 0 を返す
func (a *Aggregator) kpiFromSums(s sums) model.KPIResult {
	kpi := model.KPIResult{
		PeriodDays:       len(s.days),
		TotalPatientDays: s.patientDays,
		TotalAdmissions:  s.admissions,
		TotalEmergency:   s.emergency,
		TotalDischarges:  s.discharges,
		TotalDeaths:      s.deaths,
	}

	if kpi.PeriodDays > 0 {
		kpi.AvgDailyCensus = s.patientDays / float64(kpi.PeriodDays)
		kpi.AvgDailyAdmissions = s.admissions / float64(kpi.PeriodDays)
	}
	if a.TotalBeds > 0 {
		kpi.BedOccupancyRate = kpi.AvgDailyCensus / float64(a.TotalBeds) * 100
	}
	// 平均在院日数は (総入院 + 総退院) / 2 を分母とする方式で統一
	if denom := (s.admissions + s.discharges) / 2; denom > 0 {
		kpi.ALOS = s.patientDays / denom
	}
	if s.admissions > 0 {
		kpi.EmergencyRate = s.emergency / s.admissions * 100
	}
	if kpi.AvgDailyCensus > 0 {
		kpi.BedTurnoverRate = s.discharges / kpi.AvgDailyCensus
	}
	if s.discharges > 0 {
		kpi.MortalityRate = s.deaths / s.discharges * 100
	}

	return kpi
}

// Compute 期間内のKPIを算出する
// 期間内に1日もデータが無い場合は ErrNoData
func (a *Aggregator) Compute(records []model.CensusRecord, p model.Period) (model.KPIResult, error) {
	s := accumulate(records, p)
	if len(s.days) == 0 {
		return model.KPIResult{}, ErrNoData
	}
	return a.kpiFromSums(s), nil
}

// ComputeWithTarget 目標値との達成率付きでKPIを算出する
// 目標は平均在院患者数（全日区分）と比較する
func (a *Aggregator) ComputeWithTarget(records []model.CensusRecord, p model.Period, key string, lookup TargetLookup) (model.KPIResult, error) {
	kpi, err := a.Compute(records, p)
	if err != nil {
		return kpi, err
	}
	applyTarget(&kpi, key, lookup)
	return kpi, nil
}

func applyTarget(kpi *model.KPIResult, key string, lookup TargetLookup) {
	if lookup == nil {
		return
	}
	target, ok := lookup(key, model.DayTypeAll)
	if !ok || target <= 0 {
		return
	}
	achievement := kpi.AvgDailyCensus / target * 100
	kpi.Achievement = &achievement
}

// ComputeGrouped 病棟別または診療科別にKPIを算出する
// 並び順は 達成率の降順 → 目標ありの優先 → キーの昇順
func (a *Aggregator) ComputeGrouped(records []model.CensusRecord, p model.Period, groupBy model.EntityType, lookup TargetLookup, displayName func(string) string) []model.GroupKPIRow {
	groups := make(map[string][]model.CensusRecord)
	for _, rec := range records {
		var key string
		switch groupBy {
		case model.EntityWard:
			key = rec.WardCode
		case model.EntityDepartment:
			key = rec.DepartmentName
		default:
			key = ""
		}
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], rec)
	}

	rows := make([]model.GroupKPIRow, 0, len(groups))
	for key, recs := range groups {
		kpi, err := a.Compute(recs, p)
		if err != nil {
			continue
		}
		applyTarget(&kpi, key, lookup)

		name := key
		if displayName != nil {
			name = displayName(key)
		}
		rows = append(rows, model.GroupKPIRow{Key: key, DisplayName: name, KPI: kpi})
	}

	SortGroupRows(rows)
	return rows
}

// SortGroupRows 達成率の降順 → 目標ありの優先 → キーの昇順で並べ替える
func SortGroupRows(rows []model.GroupKPIRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		aHas, bHas := a.KPI.Achievement != nil, b.KPI.Achievement != nil
		if aHas && bHas && *a.KPI.Achievement != *b.KPI.Achievement {
			return *a.KPI.Achievement > *b.KPI.Achievement
		}
		if aHas != bHas {
			return aHas
		}
		return a.Key < b.Key
	})
}
