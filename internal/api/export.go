package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"wardboard/internal/batch"
	"wardboard/internal/model"
	"wardboard/internal/parser"
	"wardboard/internal/report"
)

const downloadTTL = 10 * time.Minute

// ExportCSV グループ別KPI表をCSVでダウンロードする
// GET /api/export/csv?group_by=ward|department
func (h *Handler) ExportCSV(c *gin.Context) {
	ds, ok := h.requireDataset(c)
	if !ok {
		return
	}
	p, ok := resolvePeriodQuery(c, ds)
	if !ok {
		return
	}

	var groupType model.EntityType
	var displayName func(string) string
	switch c.DefaultQuery("group_by", "ward") {
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
	data, err := report.WriteKPICSV(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "CSVの生成に失敗しました"})
		return
	}

	fileName := report.FileName("KPI一覧", p.End, "csv")
	c.Header("Content-Disposition", contentDisposition(fileName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ExportHTML 1集計単位分の帳票をHTMLでダウンロードする
// GET /api/export/html
func (h *Handler) ExportHTML(c *gin.Context) {
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

	doc, err := h.currentBuilder().Build(ds, entity, p)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	data, err := report.RenderHTML(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "HTMLの生成に失敗しました"})
		return
	}

	name := entity.DisplayName
	if name == "" {
		name = report.WholePopulationName
	}
	fileName := report.FileName(name, p.End, "html")
	c.Header("Content-Disposition", contentDisposition(fileName))
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// ExportStream 一括帳票出力（SSE 進捗 + 完了後にダウンロードURLを返す）
// POST /api/export/stream
func (h *Handler) ExportStream(c *gin.Context) {
	ds, ok := h.requireDataset(c)
	if !ok {
		return
	}

	// 除外病棟はハンドラー側で適用済みなのでランナーへは渡さない
	p, ok := resolvePeriodQuery(c, ds)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ストリーム応答に対応していません"})
		return
	}

	send := func(event batch.ProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	h.mu.RLock()
	opts := batch.Options{
		Workers:    h.cfg.Report.ExportWorkers,
		JobTimeout: time.Duration(h.cfg.Report.JobTimeoutSec) * time.Second,
		Format:     c.DefaultQuery("format", "pdf"),
	}
	h.mu.RUnlock()

	for event := range h.currentRunner().Run(c.Request.Context(), ds, p, opts) {
		if event.Type != "done" {
			send(event)
			continue
		}

		summary, ok := event.Data.(*batch.Summary)
		if !ok {
			send(event)
			continue
		}
		token := h.downloads.put(summary.Archive, summary.FileName, "application/zip", downloadTTL)
		send(batch.ProgressEvent{
			Type:    "done",
			Message: event.Message,
			Data: map[string]interface{}{
				"succeeded":   summary.Succeeded,
				"failed":      summary.Failed,
				"downloadUrl": "/api/export/download/" + token,
				"fileName":    summary.FileName,
			},
			Timestamp: event.Timestamp,
		})
	}
}

// DownloadExport 生成済みファイルをダウンロードする（1回限り）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	entry, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "ダウンロードの有効期限が切れています"})
		return
	}
	h.downloads.delete(token)

	c.Header("Content-Disposition", contentDisposition(entry.fileName))
	c.Data(http.StatusOK, entry.contentType, entry.data)
}

// contentDisposition 日本語ファイル名をRFC 5987形式で添付指定する
func contentDisposition(fileName string) string {
	return fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(fileName))
}
