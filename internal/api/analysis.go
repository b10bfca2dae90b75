package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wardboard/internal/calculator"
	"wardboard/internal/model"
	"wardboard/internal/parser"
	"wardboard/internal/session"
)

// resolvePeriodQuery クエリから分析期間を解決する
// preset を優先し、start/end があればカスタム期間にする
func resolvePeriodQuery(c *gin.Context, ds *session.Dataset) (model.Period, bool) {
	startStr := c.Query("start")
	endStr := c.Query("end")

	if startStr != "" || endStr != "" {
		start, err := parseDate(startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "開始日の形式が不正です（YYYY-MM-DD）"})
			return model.Period{}, false
		}
		end, err := parseDate(endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "終了日の形式が不正です（YYYY-MM-DD）"})
			return model.Period{}, false
		}
		p, err := calculator.ResolveCustomPeriod(start, end)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return model.Period{}, false
		}
		return p, true
	}

	preset := c.DefaultQuery("preset", calculator.PresetLast30Days)
	p, err := calculator.ResolvePeriod(ds, preset)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, calculator.ErrNoData) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return model.Period{}, false
	}
	return p, true
}

// resolveEntityQuery クエリから集計単位を解決する
func resolveEntityQuery(c *gin.Context) (model.Entity, bool) {
	entityType := c.DefaultQuery("entity_type", "all")
	key := c.Query("entity_key")

	switch model.EntityType(entityType) {
	case model.EntityAll:
		return model.Entity{Type: model.EntityAll, DisplayName: "病院全体"}, true
	case model.EntityWard:
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "entity_key に病棟コードを指定してください"})
			return model.Entity{}, false
		}
		return model.Entity{Type: model.EntityWard, Key: key, DisplayName: parser.WardDisplayName(key)}, true
	case model.EntityDepartment:
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "entity_key に診療科名を指定してください"})
			return model.Entity{}, false
		}
		return model.Entity{Type: model.EntityDepartment, Key: key, DisplayName: key}, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity_type は all/ward/department のいずれかです"})
		return model.Entity{}, false
	}
}

func (h *Handler) requireDataset(c *gin.Context) (*session.Dataset, bool) {
	ds, ok := h.analysisDataset()
	if !ok || len(ds.Records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "データが取り込まれていません"})
		return nil, false
	}
	return ds, true
}

// GetKPI 期間KPIを取得する
// group_by=ward|department のときは内訳表を返す
// GET /api/kpi
func (h *Handler) GetKPI(c *gin.Context) {
	ds, ok := h.requireDataset(c)
	if !ok {
		return
	}
	p, ok := resolvePeriodQuery(c, ds)
	if !ok {
		return
	}

	if groupBy := c.Query("group_by"); groupBy != "" {
		var groupType model.EntityType
		var displayName func(string) string
		switch groupBy {
		case "ward":
			groupType = model.EntityWard
			displayName = parser.WardDisplayName
		case "department":
			groupType = model.EntityDepartment
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "group_by は ward または department です"})
			return
		}
		rows := h.currentAggregator().ComputeGrouped(ds.FilterRange(p.Start, p.End), p, groupType, ds.TargetFor, displayName)
		c.JSON(http.StatusOK, gin.H{"period": p, "rows": rows})
		return
	}

	entity, ok := resolveEntityQuery(c)
	if !ok {
		return
	}
	records := ds.FilterEntity(entity)
	kpi, err := h.currentAggregator().ComputeWithTarget(records, p, entity.Key, ds.TargetFor)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "指定した条件に合致するデータがありません"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": p, "entity": entity, "kpi": kpi})
}

// GetALOS 平均在院日数の移動平均系列を取得する
// GET /api/alos
func (h *Handler) GetALOS(c *gin.Context) {
	ds, ok := h.requireDataset(c)
	if !ok {
		return
	}
	p, ok := resolvePeriodQuery(c, ds)
	if !ok {
		return
	}
	entity, ok := resolveEntityQuery(c)
	if !ok {
		return
	}

	window, err := strconv.Atoi(c.DefaultQuery("window", "30"))
	if err != nil || window < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window は1以上の整数です"})
		return
	}

	records := ds.FilterEntity(entity)
	points := calculator.RollingALOS(records, window, p.End, p.Days())
	c.JSON(http.StatusOK, gin.H{"period": p, "entity": entity, "points": points})
}

// GetSummaries 期間別の平均在院患者数サマリーを取得する
// GET /api/summaries
func (h *Handler) GetSummaries(c *gin.Context) {
	ds, ok := h.requireDataset(c)
	if !ok {
		return
	}
	entity, ok := resolveEntityQuery(c)
	if !ok {
		return
	}

	records := ds.FilterEntity(entity)
	_, maxDate, ok := ds.DateRange()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "データが取り込まれていません"})
		return
	}
	summaries := calculator.PeriodSummaries(records, maxDate)
	projected := calculator.BaselineProjection(records, maxDate, 30)
	c.JSON(http.StatusOK, gin.H{
		"entity":           entity,
		"summaries":        summaries,
		"fiscalProjection": projected,
		"fiscalDailyAvg":   projected / 365,
	})
}

// GetRevenue 当月の収益見込みを取得する
// GET /api/revenue
func (h *Handler) GetRevenue(c *gin.Context) {
	ds, ok := h.requireDataset(c)
	if !ok {
		return
	}
	_, maxDate, _ := ds.DateRange()

	h.mu.RLock()
	revenuePerDay := h.cfg.Hospital.RevenuePerDay
	monthlyTarget := h.cfg.Hospital.MonthlyTargetDays
	h.mu.RUnlock()

	projection, err := calculator.ProjectRevenue(ds.Records, maxDate, revenuePerDay, monthlyTarget)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "当月のデータがありません"})
		return
	}
	c.JSON(http.StatusOK, projection)
}
