package model

import "time"

// DayType 日種別（全日・平日・休日）
type DayType string

const (
	DayTypeAll     DayType = "全日"
	DayTypeWeekday DayType = "平日"
	DayTypeHoliday DayType = "休日"
)

// CensusRecord 1日・1病棟・1診療科の在院実績
// TotalAdmissions / TotalDischarges は取り込み時に導出して固定する
type CensusRecord struct {
	Date                time.Time `json:"date"`
	WardCode            string    `json:"ward_code"`
	DepartmentName      string    `json:"department_name"`
	Census              float64   `json:"census"`
	Admissions          float64   `json:"admissions"`
	EmergencyAdmissions float64   `json:"emergency_admissions"`
	Discharges          float64   `json:"discharges"`
	Deaths              float64   `json:"deaths"`
	TotalAdmissions     float64   `json:"total_admissions"`
	TotalDischarges     float64   `json:"total_discharges"`
	IsWeekday           bool      `json:"is_weekday"`
}

// Derive 合計入退院数と平日フラグを算出して埋める
func (r *CensusRecord) Derive(isWeekday func(time.Time) bool) {
	r.TotalAdmissions = r.Admissions + r.EmergencyAdmissions
	r.TotalDischarges = r.Discharges + r.Deaths
	r.IsWeekday = isWeekday(r.Date)
}

// TargetRecord 部門別の目標値（目標CSVの1行）
type TargetRecord struct {
	DepartmentCode string  `json:"department_code"`
	DepartmentName string  `json:"department_name"`
	DayType        DayType `json:"day_type"`
	TargetValue    float64 `json:"target_value"`
}

// DatasetMeta 取り込み済みデータセットのメタ情報
type DatasetMeta struct {
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
	DateMin   time.Time `json:"date_min"`
	DateMax   time.Time `json:"date_max"`
	SavedAt   time.Time `json:"saved_at"`
	SourceTag string    `json:"source_tag"`
}
