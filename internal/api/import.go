package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"wardboard/internal/importer"
)

// Import 在院患者数ファイルを取り込む（SSE で進捗を返す）
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "アップロードファイルが見つかりません"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルを開けませんでした"})
		return
	}
	defer f.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ストリーム応答に対応していません"})
		return
	}

	progressChan := h.coordinator.Import(importer.ImportOptions{
		FileName: fileHeader.Filename,
		Reader:   f,
	})

	for event := range progressChan {
		b, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}
}

// ImportTargets 目標値CSVを取り込む
// POST /api/targets
func (h *Handler) ImportTargets(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "アップロードファイルが見つかりません"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルを開けませんでした"})
		return
	}
	defer f.Close()

	n, err := h.coordinator.ImportTargets(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"targets": n})
}

// Clear 取り込み済みデータとスナップショットを破棄する
// POST /api/clear
func (h *Handler) Clear(c *gin.Context) {
	if err := h.coordinator.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "データの破棄に失敗しました: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
