package report

import (
	"fmt"
	"math"
	"time"

	"wardboard/internal/model"
)

// ForecastRow 予測サマリー表の1行
type ForecastRow struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartImage 描画済みグラフ
type ChartImage struct {
	Title string
	PNG   []byte
}

// Document 1集計単位分の帳票内容
// PDF と HTML のレンダラーが共用する
type Document struct {
	Title       string
	PeriodLabel string
	GeneratedAt time.Time
	KPI         model.KPIResult
	Summaries   []model.PeriodSummary
	Forecast    []ForecastRow
	Charts      []ChartImage
	Breakdown   []model.GroupKPIRow
	BreakdownBy string
}

// FileName 帳票ファイル名を組み立てる
// 例: 入院患者数予測_2階A病棟_20250614.pdf
func FileName(displayName string, date time.Time, ext string) string {
	return fmt.Sprintf("入院患者数予測_%s_%s.%s", displayName, date.Format("20060102"), ext)
}

// Round1 表示用に小数1桁へ丸める
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
