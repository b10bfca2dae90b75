package calculator

import (
	"fmt"
	"time"

	"wardboard/internal/calendar"
	"wardboard/internal/model"
	"wardboard/internal/session"
)

// 期間プリセット名
const (
	PresetLast7Days  = "直近7日"
	PresetLast14Days = "直近14日"
	PresetLast30Days = "直近30日"
	PresetLast60Days = "直近60日"
	PresetLast90Days = "直近90日"
	PresetPriorMonth = "前月完了分"
	PresetFiscalYear = "今年度"
	PresetAllData    = "全期間"
)

// Presets 選択可能なプリセットの一覧（表示順）
func Presets() []string {
	return []string{
		PresetLast7Days,
		PresetLast14Days,
		PresetLast30Days,
		PresetLast60Days,
		PresetLast90Days,
		PresetPriorMonth,
		PresetFiscalYear,
		PresetAllData,
	}
}

var lastNDays = map[string]int{
	PresetLast7Days:  7,
	PresetLast14Days: 14,
	PresetLast30Days: 30,
	PresetLast60Days: 60,
	PresetLast90Days: 90,
}

// ResolvePeriod プリセット名をデータ範囲に基づく具体的な期間へ解決する
// データの範囲外に出る開始日は最小日付へ切り詰める
func ResolvePeriod(ds *session.Dataset, preset string) (model.Period, error) {
	minDate, maxDate, ok := ds.DateRange()
	if !ok {
		return model.Period{}, ErrNoData
	}

	var start, end time.Time
	switch {
	case lastNDays[preset] > 0:
		n := lastNDays[preset]
		end = maxDate
		start = end.AddDate(0, 0, -(n - 1))
		if start.Before(minDate) {
			start = minDate
		}
	case preset == PresetPriorMonth:
		start, end = calendar.PriorMonth(maxDate)
		if start.Before(minDate) {
			start = minDate
		}
	case preset == PresetFiscalYear:
		start = calendar.FiscalYearStart(maxDate)
		end = maxDate
		if start.Before(minDate) {
			start = minDate
		}
	case preset == PresetAllData:
		start, end = minDate, maxDate
	default:
		return model.Period{}, fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
	}

	if start.After(end) {
		return model.Period{}, fmt.Errorf("%w: %s〜%s", ErrInvalidPeriod,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	return model.Period{Start: start, End: end, Label: preset}, nil
}

// ResolveCustomPeriod 明示的な開始・終了日を検証して期間にする
func ResolveCustomPeriod(start, end time.Time) (model.Period, error) {
	start = calendar.Truncate(start)
	end = calendar.Truncate(end)
	if start.After(end) {
		return model.Period{}, fmt.Errorf("%w: %s〜%s", ErrInvalidPeriod,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return model.Period{Start: start, End: end, Label: "カスタム"}, nil
}
