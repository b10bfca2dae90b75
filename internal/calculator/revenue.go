package calculator

import (
	"time"

	"wardboard/internal/calendar"
	"wardboard/internal/model"
)

// ProjectRevenue 最新月の延べ人日から月末までの見込みと収益を算出する
// 月途中の実績は経過日数で月全体へ引き延ばす
func ProjectRevenue(records []model.CensusRecord, maxDate time.Time, revenuePerDay, monthlyTarget float64) (model.RevenueProjection, error) {
	maxDate = calendar.Truncate(maxDate)
	monthStart := time.Date(maxDate.Year(), maxDate.Month(), 1, 0, 0, 0, 0, maxDate.Location())
	monthEnd := monthStart.AddDate(0, 1, -1)

	p := model.Period{Start: monthStart, End: maxDate}
	days := make(map[time.Time]bool)
	var patientDays float64
	for _, rec := range records {
		if p.Contains(rec.Date) {
			patientDays += rec.Census
			days[rec.Date] = true
		}
	}
	if len(days) == 0 {
		return model.RevenueProjection{}, ErrNoData
	}

	elapsed := len(days)
	projected := patientDays / float64(elapsed) * float64(monthEnd.Day())

	proj := model.RevenueProjection{
		Year:              maxDate.Year(),
		Month:             int(maxDate.Month()),
		ElapsedDays:       elapsed,
		PatientDaysToDate: patientDays,
		ProjectedDays:     projected,
		ProjectedRevenue:  projected * revenuePerDay,
		MonthlyTarget:     monthlyTarget,
	}
	if monthlyTarget > 0 {
		proj.TargetAchievement = projected / monthlyTarget * 100
	}
	return proj, nil
}
