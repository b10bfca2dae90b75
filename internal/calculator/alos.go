package calculator

import (
	"math"
	"time"

	"wardboard/internal/calendar"
	"wardboard/internal/model"
)

// dayTotals 1日分の合計値
type dayTotals struct {
	patientDays float64
	admissions  float64
	discharges  float64
}

// RollingALOS 移動窓による平均在院日数と平均在院患者数の系列を作る
// 表示日 d ごとに窓 [d-window+1, d] で集計する
// 窓内にデータが無い日は NaN（グラフ側は欠損として描画する）
func RollingALOS(records []model.CensusRecord, windowDays int, endDate time.Time, daysToShow int) []model.ALOSPoint {
	if windowDays <= 0 || daysToShow <= 0 {
		return nil
	}

	endDate = calendar.Truncate(endDate)
	byDate := make(map[time.Time]*dayTotals)
	for _, rec := range records {
		d := calendar.Truncate(rec.Date)
		t, ok := byDate[d]
		if !ok {
			t = &dayTotals{}
			byDate[d] = t
		}
		t.patientDays += rec.Census
		t.admissions += rec.TotalAdmissions
		t.discharges += rec.TotalDischarges
	}

	points := make([]model.ALOSPoint, 0, daysToShow)
	for i := daysToShow - 1; i >= 0; i-- {
		display := endDate.AddDate(0, 0, -i)

		var patientDays, admissions, discharges float64
		dataDays := 0
		for w := 0; w < windowDays; w++ {
			d := display.AddDate(0, 0, -w)
			t, ok := byDate[d]
			if !ok {
				continue
			}
			dataDays++
			patientDays += t.patientDays
			admissions += t.admissions
			discharges += t.discharges
		}

		point := model.ALOSPoint{Date: display, ALOS: math.NaN(), AvgCensus: math.NaN()}
		if dataDays > 0 {
			// 窓内の実データ日数で割る（欠損日は分母に含めない）
			point.AvgCensus = patientDays / float64(dataDays)
			if denom := (admissions + discharges) / 2; denom > 0 {
				point.ALOS = patientDays / denom
			} else {
				point.ALOS = 0
			}
		}
		points = append(points, point)
	}

	return points
}
