package report

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"wardboard/internal/forecast"
	"wardboard/internal/model"
)

// グラフの配色
var (
	colorPrimary = drawing.Color{R: 0x34, G: 0x98, B: 0xdb, A: 0xff}
	colorSuccess = drawing.Color{R: 0x27, G: 0xae, B: 0x60, A: 0xff}
	colorDanger  = drawing.Color{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff}
	colorWarning = drawing.Color{R: 0xf3, G: 0x9c, B: 0x12, A: 0xff}
)

const (
	chartWidth  = 900
	chartHeight = 400
)

// ChartRenderer 折れ線グラフのPNG描画器
// フォント未設定時は既定フォントで描画する（日本語ラベルは化ける）
type ChartRenderer struct {
	font *truetype.Font
}

// NewChartRenderer TTFフォントを読み込んで描画器を作る
// パスが空、または読み込みに失敗した場合は既定フォントで続行する
func NewChartRenderer(fontPath string) *ChartRenderer {
	r := &ChartRenderer{}
	if fontPath == "" {
		return r
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		log.Printf("[report] フォントの読み込みに失敗したため既定フォントを使います: %v", err)
		return r
	}
	font, err := truetype.Parse(data)
	if err != nil {
		log.Printf("[report] フォントの解析に失敗したため既定フォントを使います: %v", err)
		return r
	}
	r.font = font
	return r
}

// segment NaN で分割した連続区間
type segment struct {
	xs []time.Time
	ys []float64
}

// splitAtNaN NaN 点を欠損として系列を分割する
// グラフ側では欠損区間が途切れて描かれる
func splitAtNaN(xs []time.Time, ys []float64) []segment {
	var segs []segment
	var cur segment
	for i := range ys {
		if math.IsNaN(ys[i]) {
			if len(cur.xs) > 0 {
				segs = append(segs, cur)
				cur = segment{}
			}
			continue
		}
		cur.xs = append(cur.xs, xs[i])
		cur.ys = append(cur.ys, ys[i])
	}
	if len(cur.xs) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

func (r *ChartRenderer) render(c chart.Chart) ([]byte, error) {
	c.Width = chartWidth
	c.Height = chartHeight
	if r.font != nil {
		c.Font = r.font
	}

	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("グラフ描画に失敗: %w", err)
	}
	return buf.Bytes(), nil
}

// ALOSTrend 平均在院日数と平均在院患者数の二軸トレンド
func (r *ChartRenderer) ALOSTrend(points []model.ALOSPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("描画するデータがありません")
	}

	xs := make([]time.Time, len(points))
	alos := make([]float64, len(points))
	census := make([]float64, len(points))
	for i, pt := range points {
		xs[i] = pt.Date
		alos[i] = pt.ALOS
		census[i] = pt.AvgCensus
	}

	var series []chart.Series
	for _, seg := range splitAtNaN(xs, alos) {
		series = append(series, chart.TimeSeries{
			Name:    "平均在院日数",
			XValues: seg.xs,
			YValues: seg.ys,
			Style:   chart.Style{StrokeColor: colorPrimary, StrokeWidth: 2},
		})
	}
	for _, seg := range splitAtNaN(xs, census) {
		series = append(series, chart.TimeSeries{
			Name:    "平均在院患者数",
			XValues: seg.xs,
			YValues: seg.ys,
			YAxis:   chart.YAxisSecondary,
			Style:   chart.Style{StrokeColor: colorSuccess, StrokeWidth: 2},
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("描画できる点がありません")
	}

	return r.render(chart.Chart{
		XAxis:          chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:          chart.YAxis{Name: "日"},
		YAxisSecondary: chart.YAxis{Name: "人"},
		Series:         series,
	})
}

// CensusTrend 日次在院患者数のトレンド（目標線付き）
// target が 0 以下なら目標線は描かない
func (r *ChartRenderer) CensusTrend(series forecast.Series, target float64) ([]byte, error) {
	if len(series.Values) == 0 {
		return nil, fmt.Errorf("描画するデータがありません")
	}

	xs := make([]time.Time, len(series.Values))
	for i := range series.Values {
		xs[i] = series.DateAt(i)
	}

	chartSeries := []chart.Series{
		chart.TimeSeries{
			Name:    "在院患者数",
			XValues: xs,
			YValues: series.Values,
			Style:   chart.Style{StrokeColor: colorPrimary, StrokeWidth: 2},
		},
	}
	if target > 0 {
		targetYs := make([]float64, len(xs))
		for i := range targetYs {
			targetYs[i] = target
		}
		chartSeries = append(chartSeries, chart.TimeSeries{
			Name:    "目標",
			XValues: xs,
			YValues: targetYs,
			Style:   chart.Style{StrokeColor: colorDanger, StrokeWidth: 1.5, StrokeDashArray: []float64{5, 5}},
		})
	}

	return r.render(chart.Chart{
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:  chart.YAxis{Name: "人"},
		Series: chartSeries,
	})
}

// AdmissionDischargeTrend 入院数と退院数の二軸トレンド
func (r *ChartRenderer) AdmissionDischargeTrend(dates []time.Time, admissions, discharges []float64) ([]byte, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("描画するデータがありません")
	}

	return r.render(chart.Chart{
		XAxis: chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis: chart.YAxis{Name: "人"},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "総入院患者数",
				XValues: dates,
				YValues: admissions,
				Style:   chart.Style{StrokeColor: colorSuccess, StrokeWidth: 2},
			},
			chart.TimeSeries{
				Name:    "総退院患者数",
				XValues: dates,
				YValues: discharges,
				YAxis:   chart.YAxisSecondary,
				Style:   chart.Style{StrokeColor: colorWarning, StrokeWidth: 2},
			},
		},
	})
}
