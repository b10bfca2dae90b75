package forecast

import (
	"fmt"
	"sort"
	"time"

	"wardboard/internal/calendar"
	"wardboard/internal/model"
)

// Series 連続した日次の合計在院患者数
// Start から1日刻みで Values が並ぶ（欠損日は補間済み）
type Series struct {
	Start  time.Time
	Values []float64
}

// End 系列の最終日
func (s Series) End() time.Time {
	if len(s.Values) == 0 {
		return s.Start
	}
	return s.Start.AddDate(0, 0, len(s.Values)-1)
}

// DateAt i 番目の値に対応する日付
func (s Series) DateAt(i int) time.Time {
	return s.Start.AddDate(0, 0, i)
}

// BuildDailySeries レコードから日次合計の連続系列を作る
// 欠損日は前後の実測値から線形補間し、端は最寄りの実測値で埋める
func BuildDailySeries(records []model.CensusRecord) (Series, error) {
	if len(records) == 0 {
		return Series{}, fmt.Errorf("データがありません")
	}

	byDate := make(map[time.Time]float64)
	for _, rec := range records {
		d := calendar.Truncate(rec.Date)
		byDate[d] += rec.Census
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	start, end := dates[0], dates[len(dates)-1]
	n := int(end.Sub(start).Hours()/24) + 1

	values := make([]float64, n)
	known := make([]bool, n)
	for d, v := range byDate {
		i := int(d.Sub(start).Hours() / 24)
		values[i] = v
		known[i] = true
	}

	interpolateGaps(values, known)
	return Series{Start: start, Values: values}, nil
}

// interpolateGaps 既知点間を線形補間し、端は最寄り値を複製する
func interpolateGaps(values []float64, known []bool) {
	n := len(values)
	prev := -1
	for i := 0; i < n; i++ {
		if !known[i] {
			continue
		}
		if prev < 0 {
			// 先頭側の欠損は最初の実測値で埋める
			for j := 0; j < i; j++ {
				values[j] = values[i]
			}
		} else if i-prev > 1 {
			step := (values[i] - values[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				values[j] = values[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	if prev >= 0 {
		// 末尾側の欠損は最後の実測値で埋める
		for j := prev + 1; j < n; j++ {
			values[j] = values[prev]
		}
	}
}
