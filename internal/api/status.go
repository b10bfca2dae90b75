package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wardboard/internal/calculator"
)

// StatusResponse システム状態の応答
type StatusResponse struct {
	Initialized bool     `json:"initialized"` // データ取り込み済みか
	Rows        int      `json:"rows"`        // レコード数
	DateMin     string   `json:"dateMin"`     // データの最小日付
	DateMax     string   `json:"dateMax"`     // データの最大日付
	SourceTag   string   `json:"sourceTag"`   // 取り込み元ファイル名
	HasTargets  bool     `json:"hasTargets"`  // 目標値の有無
	Wards       []string `json:"wards"`       // 病棟コード一覧（除外適用後）
	Departments []string `json:"departments"` // 診療科一覧（除外適用後）
}

// GetStatus システム状態を取得する
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ds, ok := h.analysisDataset()
	if !ok {
		c.JSON(http.StatusOK, StatusResponse{Initialized: false})
		return
	}

	resp := StatusResponse{
		Initialized: len(ds.Records) > 0,
		Rows:        len(ds.Records),
		SourceTag:   ds.Meta.SourceTag,
		HasTargets:  len(ds.Targets) > 0,
		Wards:       ds.Wards(),
		Departments: ds.Departments(),
	}
	if min, max, ok := ds.DateRange(); ok {
		resp.DateMin = min.Format("2006-01-02")
		resp.DateMax = max.Format("2006-01-02")
	}
	c.JSON(http.StatusOK, resp)
}

// ListPresets 選択可能な期間プリセットを返す
// GET /api/presets
func (h *Handler) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": calculator.Presets()})
}

// ListBackups 世代バックアップの一覧を返す
// GET /api/backups
func (h *Handler) ListBackups(c *gin.Context) {
	names, err := h.coordinator.Backups()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "バックアップ一覧の取得に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": names})
}
