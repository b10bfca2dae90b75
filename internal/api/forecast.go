package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wardboard/internal/forecast"
)

// ForecastModelResponse 1モデル分の予測結果
// RMSE は評価できない場合 null
type ForecastModelResponse struct {
	Model        string                `json:"model"`
	Points       []forecast.Point      `json:"points"`
	RMSE         *float64              `json:"rmse"`
	UsedFallback bool                  `json:"usedFallback"`
	FiscalTotal  *forecast.FiscalTotal `json:"fiscalTotal,omitempty"`
}

// GetForecast 予測モデルの比較と年度見込みを取得する
// GET /api/forecast
func (h *Handler) GetForecast(c *gin.Context) {
	ds, ok := h.requireDataset(c)
	if !ok {
		return
	}
	entity, ok := resolveEntityQuery(c)
	if !ok {
		return
	}

	h.mu.RLock()
	horizon := h.cfg.Forecast.HorizonDays
	smaWindow := h.cfg.Forecast.SMAWindow
	seasonalPeriod := h.cfg.Forecast.SeasonalPeriod
	h.mu.RUnlock()

	if v := c.Query("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "horizon は 1〜366 の整数です"})
			return
		}
		horizon = n
	}

	records := ds.FilterEntity(entity)
	series, err := forecast.BuildDailySeries(records)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "予測に必要なデータがありません"})
		return
	}

	holdout := len(series.Values) / 5
	if holdout > 30 {
		holdout = 30
	}

	models := forecast.DefaultModels(smaWindow, seasonalPeriod)
	comparisons := forecast.Compare(series, horizon, holdout, models)

	out := make([]ForecastModelResponse, 0, len(comparisons))
	for i, cmp := range comparisons {
		resp := ForecastModelResponse{
			Model:        cmp.Result.Model,
			Points:       cmp.Result.Points,
			UsedFallback: cmp.Result.UsedFallback,
		}
		if rmse := cmp.RMSE; !math.IsNaN(rmse) {
			resp.RMSE = &rmse
		}
		if total, err := forecast.FiscalYearTotal(series, models[i]); err == nil {
			resp.FiscalTotal = &total
		}
		out = append(out, resp)
	}

	c.JSON(http.StatusOK, gin.H{
		"entity":      entity,
		"seriesStart": series.Start.Format("2006-01-02"),
		"seriesEnd":   series.End().Format("2006-01-02"),
		"horizon":     horizon,
		"models":      out,
	})
}
