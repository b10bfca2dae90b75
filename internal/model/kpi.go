package model

import (
	"encoding/json"
	"math"
	"time"
)

// Period 解決済みの集計期間（両端含む）
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// Days 期間の暦日数
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// Contains 日付が期間内かどうか
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// KPIResult 期間集計の結果
// Achievement は目標が未設定の場合 nil（0% とは区別する）
type KPIResult struct {
	PeriodDays         int      `json:"period_days"`
	TotalPatientDays   float64  `json:"total_patient_days"`
	AvgDailyCensus     float64  `json:"avg_daily_census"`
	BedOccupancyRate   float64  `json:"bed_occupancy_rate"`
	ALOS               float64  `json:"alos"`
	AvgDailyAdmissions float64  `json:"avg_daily_admissions"`
	TotalAdmissions    float64  `json:"total_admissions"`
	TotalEmergency     float64  `json:"total_emergency"`
	TotalDischarges    float64  `json:"total_discharges"`
	TotalDeaths        float64  `json:"total_deaths"`
	EmergencyRate      float64  `json:"emergency_rate"`
	BedTurnoverRate    float64  `json:"bed_turnover_rate"`
	MortalityRate      float64  `json:"mortality_rate"`
	Achievement        *float64 `json:"achievement,omitempty"`
}

// GroupKPIRow グループ別集計の1行
type GroupKPIRow struct {
	Key         string    `json:"key"`
	DisplayName string    `json:"display_name"`
	KPI         KPIResult `json:"kpi"`
}

// ALOSPoint 移動平均系列の1点
// 窓内にデータが無い日の ALOS / AvgCensus は NaN
type ALOSPoint struct {
	Date      time.Time `json:"date"`
	ALOS      float64   `json:"alos"`
	AvgCensus float64   `json:"avg_census"`
}

// MarshalJSON NaN をそのまま出せないため null に変換する
func (p ALOSPoint) MarshalJSON() ([]byte, error) {
	out := struct {
		Date      time.Time `json:"date"`
		ALOS      *float64  `json:"alos"`
		AvgCensus *float64  `json:"avg_census"`
	}{Date: p.Date}
	if !math.IsNaN(p.ALOS) {
		out.ALOS = &p.ALOS
	}
	if !math.IsNaN(p.AvgCensus) {
		out.AvgCensus = &p.AvgCensus
	}
	return json.Marshal(out)
}

// PeriodSummary 全日・平日・休日の平均人日サマリー1行
type PeriodSummary struct {
	Label      string  `json:"label"`
	AllDayAvg  float64 `json:"all_day_avg"`
	WeekdayAvg float64 `json:"weekday_avg"`
	HolidayAvg float64 `json:"holiday_avg"`
	HasData    bool    `json:"has_data"`
}

// RevenueProjection 月次収益見込み
type RevenueProjection struct {
	Year              int     `json:"year"`
	Month             int     `json:"month"`
	ElapsedDays       int     `json:"elapsed_days"`
	PatientDaysToDate float64 `json:"patient_days_to_date"`
	ProjectedDays     float64 `json:"projected_patient_days"`
	ProjectedRevenue  float64 `json:"projected_revenue"`
	MonthlyTarget     float64 `json:"monthly_target"`
	TargetAchievement float64 `json:"target_achievement"`
}
