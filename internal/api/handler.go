package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"wardboard/internal/batch"
	"wardboard/internal/calculator"
	"wardboard/internal/config"
	"wardboard/internal/forecast"
	"wardboard/internal/importer"
	"wardboard/internal/report"
	"wardboard/internal/session"
)

// Handler REST API 処理器
type Handler struct {
	mu          sync.RWMutex
	cfg         *config.AppConfig
	session     *session.Session
	coordinator *importer.Coordinator
	downloads   *downloadStore

	charts     *report.ChartRenderer
	pdf        *report.PDFRenderer
	builder    *report.Builder
	aggregator *calculator.Aggregator
	runner     *batch.Runner
}

// forecastModelFromConfig 設定の既定モデル名からモデルを作る
func forecastModelFromConfig(cfg *config.AppConfig) forecast.Model {
	switch cfg.Forecast.DefaultModel {
	case "sma":
		return forecast.SMA{Window: cfg.Forecast.SMAWindow}
	case "seasonal_ar":
		return forecast.SeasonalAR{Period: cfg.Forecast.SeasonalPeriod}
	default:
		return forecast.NewHoltWinters(cfg.Forecast.SeasonalPeriod)
	}
}

// NewHandler API 処理器を作る
func NewHandler(cfg *config.AppConfig, sess *session.Session, coord *importer.Coordinator) *Handler {
	charts := report.NewChartRenderer(cfg.Report.FontPath)
	pdf := report.NewPDFRenderer(cfg.Report.FontPath, cfg.Report.FontName)
	builder := report.NewBuilder(charts, cfg.Hospital.TotalBeds, forecastModelFromConfig(cfg))

	return &Handler{
		cfg:         cfg,
		session:     sess,
		coordinator: coord,
		downloads:   newDownloadStore(),
		charts:      charts,
		pdf:         pdf,
		builder:     builder,
		aggregator:  calculator.NewAggregator(cfg.Hospital.TotalBeds),
		runner:      batch.NewRunner(builder, pdf),
	}
}

// RegisterRoutes ルートを登録する
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 状態
	router.GET("/status", h.GetStatus)
	router.GET("/presets", h.ListPresets)
	router.GET("/backups", h.ListBackups)

	// 設定
	router.GET("/config", h.GetConfig)
	router.PATCH("/config", h.UpdateConfig)

	// データ取り込み
	router.POST("/import", h.Import)
	router.POST("/targets", h.ImportTargets)
	router.POST("/clear", h.Clear)

	// 分析
	router.GET("/kpi", h.GetKPI)
	router.GET("/alos", h.GetALOS)
	router.GET("/summaries", h.GetSummaries)
	router.GET("/revenue", h.GetRevenue)
	router.GET("/forecast", h.GetForecast)

	// 出力
	router.GET("/export/csv", h.ExportCSV)
	router.GET("/export/html", h.ExportHTML)
	router.POST("/export/stream", h.ExportStream)
	router.GET("/export/download/:token", h.DownloadExport)
}

// analysisDataset 除外病棟を落とした分析用データセットを返す
func (h *Handler) analysisDataset() (*session.Dataset, bool) {
	ds, ok := h.session.Dataset()
	if !ok {
		return nil, false
	}
	excluded := h.excludedWards()
	if len(excluded) > 0 {
		ds = ds.ExcludeWards(excluded)
	}
	return ds, true
}

func (h *Handler) excludedWards() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.cfg.Hospital.ExcludedWards...)
}

// 設定更新で差し替わるため、使う直前にロック下で取り出す

func (h *Handler) currentAggregator() *calculator.Aggregator {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.aggregator
}

func (h *Handler) currentBuilder() *report.Builder {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.builder
}

func (h *Handler) currentRunner() *batch.Runner {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.runner
}

// parseDate YYYY-MM-DD のクエリ値を解釈する
// レコード側の日付は UTC の0時に正規化されているため、同じ基準で解釈する
func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}
