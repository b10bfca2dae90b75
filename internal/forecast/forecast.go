package forecast

import (
	"fmt"
	"log"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"wardboard/internal/calendar"
)

// FallbackWindow フォールバック時に平均を取る日数
const FallbackWindow = 30

// Point 予測系列の1点
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Result 1モデル分の予測結果
type Result struct {
	Model        string  `json:"model"`
	Points       []Point `json:"points"`
	UsedFallback bool    `json:"used_fallback"`
}

// Run モデルで予測を実行する
// 学習に失敗した場合は直近平均の複製にフォールバックし、その旨をログに残す
func Run(series Series, horizon int, m Model) Result {
	result := Result{Model: m.Name()}

	values, err := m.Forecast(series.Values, horizon)
	if err != nil {
		log.Printf("[forecast] %s の学習に失敗したため直近平均で代替します: %v", m.Name(), err)
		values = trailingMean(series.Values, horizon)
		result.UsedFallback = true
	}

	start := series.End().AddDate(0, 0, 1)
	result.Points = make([]Point, len(values))
	for i, v := range values {
		result.Points[i] = Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return result
}

// trailingMean 直近 FallbackWindow 日の平均を複製する
func trailingMean(history []float64, horizon int) []float64 {
	w := FallbackWindow
	if len(history) < w {
		w = len(history)
	}
	mean := 0.0
	if w > 0 {
		mean = stat.Mean(history[len(history)-w:], nil)
	}
	out := make([]float64, horizon)
	for i := range out {
		out[i] = mean
	}
	return out
}

// Comparison モデル比較の1行
type Comparison struct {
	Result
	RMSE float64 `json:"rmse"`
}

// DefaultModels 既定の3モデル
func DefaultModels(smaWindow, seasonalPeriod int) []Model {
	return []Model{
		SMA{Window: smaWindow},
		NewHoltWinters(seasonalPeriod),
		SeasonalAR{Period: seasonalPeriod},
	}
}

// Compare 各モデルで予測し、ホールドアウトの RMSE を添えて返す
// 個々のモデルの失敗は比較全体を止めない
func Compare(series Series, horizon, holdout int, models []Model) []Comparison {
	out := make([]Comparison, 0, len(models))
	for _, m := range models {
		r := Run(series, horizon, m)
		out = append(out, Comparison{Result: r, RMSE: Evaluate(series, holdout, m)})
	}
	return out
}

// Evaluate 末尾 holdout 日を隠して学習し、実測との RMSE を返す
// 評価できない場合は NaN
func Evaluate(series Series, holdout int, m Model) float64 {
	n := len(series.Values)
	if holdout <= 0 || n <= holdout {
		return math.NaN()
	}

	train := series.Values[:n-holdout]
	actual := series.Values[n-holdout:]

	predicted, err := m.Forecast(train, holdout)
	if err != nil {
		predicted = trailingMean(train, holdout)
	}

	sum := 0.0
	for i := range actual {
		diff := predicted[i] - actual[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(holdout))
}

// FiscalTotal 年度合計の内訳
// 実績窓と予測窓は重ならず、連結すると隙間なく年度末まで届く
type FiscalTotal struct {
	ActualStart    time.Time `json:"actual_start"`
	ActualEnd      time.Time `json:"actual_end"`
	PredictedStart time.Time `json:"predicted_start"`
	PredictedEnd   time.Time `json:"predicted_end"`
	ActualTotal    float64   `json:"actual_total"`
	PredictedTotal float64   `json:"predicted_total"`
	Total          float64   `json:"total"`
}

// FiscalYearTotal 年度開始から最終実測日までの実績と、その翌日から年度末までの予測を合算する
func FiscalYearTotal(series Series, m Model) (FiscalTotal, error) {
	if len(series.Values) == 0 {
		return FiscalTotal{}, fmt.Errorf("系列が空です")
	}

	last := series.End()
	fyStart := calendar.FiscalYearStart(last)
	fyEnd := calendar.FiscalYearEnd(last)

	total := FiscalTotal{
		ActualEnd:      last,
		PredictedStart: last.AddDate(0, 0, 1),
		PredictedEnd:   fyEnd,
	}

	// 実績: 年度開始（系列がそれより短ければ系列先頭）から最終実測日まで
	actualStart := fyStart
	if series.Start.After(fyStart) {
		actualStart = series.Start
	}
	total.ActualStart = actualStart
	for i, v := range series.Values {
		d := series.DateAt(i)
		if !d.Before(actualStart) && !d.After(last) {
			total.ActualTotal += v
		}
	}

	horizon := int(fyEnd.Sub(last).Hours() / 24)
	if horizon > 0 {
		r := Run(series, horizon, m)
		for _, pt := range r.Points {
			total.PredictedTotal += pt.Value
		}
	}

	total.Total = total.ActualTotal + total.PredictedTotal
	return total, nil
}
