package report

import (
	"fmt"
	"log"
	"sort"
	"time"

	"wardboard/internal/calculator"
	"wardboard/internal/forecast"
	"wardboard/internal/model"
	"wardboard/internal/session"
)

// WholePopulationName 全体集計の表示名
const WholePopulationName = "病院全体"

// Builder 集計単位ごとの帳票内容を組み立てる
type Builder struct {
	charts     *ChartRenderer
	aggregator *calculator.Aggregator
	model      forecast.Model
	alosWindow int
}

// NewBuilder 帳票ビルダーを作る
// model は年度見込みに使う予測モデル（nil なら基準平均のみ）
func NewBuilder(charts *ChartRenderer, totalBeds int, model forecast.Model) *Builder {
	return &Builder{
		charts:     charts,
		aggregator: calculator.NewAggregator(totalBeds),
		model:      model,
		alosWindow: 30,
	}
}

// Build 1集計単位分の帳票内容を組み立てる
// 対象データが空の場合はエラー（バッチ側で失敗として記録される）
func (b *Builder) Build(ds *session.Dataset, entity model.Entity, p model.Period) (*Document, error) {
	records := ds.FilterEntity(entity)
	if len(records) == 0 {
		return nil, fmt.Errorf("対象データが空です")
	}

	kpi, err := b.aggregator.ComputeWithTarget(records, p, entity.Key, ds.TargetFor)
	if err != nil {
		return nil, fmt.Errorf("期間内にデータがありません: %w", err)
	}

	name := entity.DisplayName
	if name == "" {
		name = WholePopulationName
	}

	doc := &Document{
		Title:       fmt.Sprintf("入退院分析レポート %s", name),
		PeriodLabel: fmt.Sprintf("%s（%s〜%s）", p.Label, p.Start.Format("2006-01-02"), p.End.Format("2006-01-02")),
		GeneratedAt: time.Now(),
		KPI:         kpi,
		Summaries:   calculator.PeriodSummaries(records, p.End),
	}

	b.addForecastRows(doc, records, p.End)
	b.addCharts(doc, records, entity, ds, p)
	b.addBreakdown(doc, records, entity, ds, p)

	return doc, nil
}

// addForecastRows 年度見込みの表を足す
// 設定された予測モデルがあればモデルによる年度末見込みの行も並べる
func (b *Builder) addForecastRows(doc *Document, records []model.CensusRecord, maxDate time.Time) {
	projected := calculator.BaselineProjection(records, maxDate, 30)
	doc.Forecast = []ForecastRow{
		{Label: "年度末までの延べ人日見込み", Value: projected},
		{Label: "年間平均人日換算", Value: projected / 365},
	}

	if b.model == nil {
		return
	}
	series, err := forecast.BuildDailySeries(records)
	if err != nil {
		return
	}
	total, err := forecast.FiscalYearTotal(series, b.model)
	if err != nil {
		log.Printf("[report] モデルによる年度見込みの算出に失敗: %v", err)
		return
	}
	doc.Forecast = append(doc.Forecast, ForecastRow{
		Label: fmt.Sprintf("年度末までの延べ人日見込み（%s）", b.model.Name()),
		Value: total.Total,
	})
}

// addCharts グラフを描画して足す
// 個々のグラフの失敗は帳票全体を止めず、ログに残して飛ばす
func (b *Builder) addCharts(doc *Document, records []model.CensusRecord, entity model.Entity, ds *session.Dataset, p model.Period) {
	daysToShow := p.Days()
	if daysToShow > 90 {
		daysToShow = 90
	}

	points := calculator.RollingALOS(records, b.alosWindow, p.End, daysToShow)
	if png, err := b.charts.ALOSTrend(points); err == nil {
		doc.Charts = append(doc.Charts, ChartImage{Title: "平均在院日数の推移（30日移動平均）", PNG: png})
	} else {
		log.Printf("[report] ALOSグラフの描画に失敗: %v", err)
	}

	inPeriod := periodRecords(records, p)
	if series, err := forecast.BuildDailySeries(inPeriod); err == nil {
		target, _ := ds.TargetFor(entity.Key, model.DayTypeAll)
		if png, err := b.charts.CensusTrend(series, target); err == nil {
			doc.Charts = append(doc.Charts, ChartImage{Title: "在院患者数の推移", PNG: png})
		} else {
			log.Printf("[report] 在院患者数グラフの描画に失敗: %v", err)
		}
	}

	dates, admissions, discharges := dailyMovement(inPeriod)
	if png, err := b.charts.AdmissionDischargeTrend(dates, admissions, discharges); err == nil {
		doc.Charts = append(doc.Charts, ChartImage{Title: "入退院患者数の推移", PNG: png})
	} else {
		log.Printf("[report] 入退院グラフの描画に失敗: %v", err)
	}
}

// addBreakdown 内訳表を足す
// 全体帳票は診療科別、病棟帳票は病棟内の診療科別
func (b *Builder) addBreakdown(doc *Document, records []model.CensusRecord, entity model.Entity, ds *session.Dataset, p model.Period) {
	if entity.Type == model.EntityDepartment {
		return
	}
	doc.BreakdownBy = "診療科"
	doc.Breakdown = b.aggregator.ComputeGrouped(records, p, model.EntityDepartment, ds.TargetFor, nil)
}

func periodRecords(records []model.CensusRecord, p model.Period) []model.CensusRecord {
	var out []model.CensusRecord
	for _, rec := range records {
		if p.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}

// dailyMovement 日次の総入院・総退院の系列を作る
func dailyMovement(records []model.CensusRecord) ([]time.Time, []float64, []float64) {
	type totals struct{ adm, dis float64 }
	byDate := make(map[time.Time]*totals)
	for _, rec := range records {
		t, ok := byDate[rec.Date]
		if !ok {
			t = &totals{}
			byDate[rec.Date] = t
		}
		t.adm += rec.TotalAdmissions
		t.dis += rec.TotalDischarges
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	admissions := make([]float64, len(dates))
	discharges := make([]float64, len(dates))
	for i, d := range dates {
		admissions[i] = byDate[d].adm
		discharges[i] = byDate[d].dis
	}
	return dates, admissions, discharges
}
