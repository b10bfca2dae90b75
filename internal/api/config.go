package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"wardboard/internal/batch"
	"wardboard/internal/calculator"
	"wardboard/internal/config"
	"wardboard/internal/report"
)

// ConfigResponse 設定の応答
type ConfigResponse struct {
	TotalBeds         int      `json:"totalBeds"`
	MonthlyTargetDays float64  `json:"monthlyTargetDays"`
	RevenuePerDay     float64  `json:"revenuePerDay"`
	ExcludedWards     []string `json:"excludedWards"`
	DefaultModel      string   `json:"defaultModel"`
	SeasonalPeriod    int      `json:"seasonalPeriod"`
	SMAWindow         int      `json:"smaWindow"`
	HorizonDays       int      `json:"horizonDays"`
	ExportWorkers     int      `json:"exportWorkers"`
	JobTimeoutSec     int      `json:"jobTimeoutSec"`
}

// UpdateConfigRequest 設定の部分更新要求
// nil のフィールドは変更しない
type UpdateConfigRequest struct {
	TotalBeds         *int      `json:"totalBeds"`
	MonthlyTargetDays *float64  `json:"monthlyTargetDays"`
	RevenuePerDay     *float64  `json:"revenuePerDay"`
	ExcludedWards     *[]string `json:"excludedWards"`
	DefaultModel      *string   `json:"defaultModel"`
	SeasonalPeriod    *int      `json:"seasonalPeriod"`
	SMAWindow         *int      `json:"smaWindow"`
	HorizonDays       *int      `json:"horizonDays"`
	ExportWorkers     *int      `json:"exportWorkers"`
	JobTimeoutSec     *int      `json:"jobTimeoutSec"`
}

// GetConfig 現在の設定を取得する
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c.JSON(http.StatusOK, ConfigResponse{
		TotalBeds:         h.cfg.Hospital.TotalBeds,
		MonthlyTargetDays: h.cfg.Hospital.MonthlyTargetDays,
		RevenuePerDay:     h.cfg.Hospital.RevenuePerDay,
		ExcludedWards:     h.cfg.Hospital.ExcludedWards,
		DefaultModel:      h.cfg.Forecast.DefaultModel,
		SeasonalPeriod:    h.cfg.Forecast.SeasonalPeriod,
		SMAWindow:         h.cfg.Forecast.SMAWindow,
		HorizonDays:       h.cfg.Forecast.HorizonDays,
		ExportWorkers:     h.cfg.Report.ExportWorkers,
		JobTimeoutSec:     h.cfg.Report.JobTimeoutSec,
	})
}

// UpdateConfig 設定を部分更新して config.toml へ保存する
// PATCH /api/config
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSONの形式が不正です"})
		return
	}

	if req.TotalBeds != nil && *req.TotalBeds < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totalBeds は1以上です"})
		return
	}
	if req.DefaultModel != nil {
		switch *req.DefaultModel {
		case "sma", "holt_winters", "seasonal_ar":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "defaultModel は sma / holt_winters / seasonal_ar のいずれかです"})
			return
		}
	}
	if req.SeasonalPeriod != nil && *req.SeasonalPeriod < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seasonalPeriod は2以上です"})
		return
	}
	if req.SMAWindow != nil && *req.SMAWindow < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "smaWindow は1以上です"})
		return
	}
	if req.HorizonDays != nil && (*req.HorizonDays < 1 || *req.HorizonDays > 366) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "horizonDays は 1〜366 です"})
		return
	}

	h.mu.Lock()
	if req.TotalBeds != nil {
		h.cfg.Hospital.TotalBeds = *req.TotalBeds
	}
	if req.MonthlyTargetDays != nil {
		h.cfg.Hospital.MonthlyTargetDays = *req.MonthlyTargetDays
	}
	if req.RevenuePerDay != nil {
		h.cfg.Hospital.RevenuePerDay = *req.RevenuePerDay
	}
	if req.ExcludedWards != nil {
		h.cfg.Hospital.ExcludedWards = *req.ExcludedWards
	}
	if req.DefaultModel != nil {
		h.cfg.Forecast.DefaultModel = *req.DefaultModel
	}
	if req.SeasonalPeriod != nil {
		h.cfg.Forecast.SeasonalPeriod = *req.SeasonalPeriod
	}
	if req.SMAWindow != nil {
		h.cfg.Forecast.SMAWindow = *req.SMAWindow
	}
	if req.HorizonDays != nil {
		h.cfg.Forecast.HorizonDays = *req.HorizonDays
	}
	if req.ExportWorkers != nil {
		h.cfg.Report.ExportWorkers = *req.ExportWorkers
	}
	if req.JobTimeoutSec != nil {
		h.cfg.Report.JobTimeoutSec = *req.JobTimeoutSec
	}

	// 集計・帳票系に効く項目が変わったら組み立て直す
	if req.TotalBeds != nil || req.DefaultModel != nil || req.SeasonalPeriod != nil || req.SMAWindow != nil {
		h.aggregator = calculator.NewAggregator(h.cfg.Hospital.TotalBeds)
		h.builder = report.NewBuilder(h.charts, h.cfg.Hospital.TotalBeds, forecastModelFromConfig(h.cfg))
		h.runner = batch.NewRunner(h.builder, h.pdf)
	}
	cfg := *h.cfg
	h.mu.Unlock()

	if err := config.SaveConfig(&cfg); err != nil {
		// 保存失敗でもメモリ上の設定は反映済み
		log.Printf("[api] 設定の保存に失敗: %v", err)
	}

	h.GetConfig(c)
}
