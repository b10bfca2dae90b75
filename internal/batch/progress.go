package batch

import "time"

// ProgressEvent 一括出力の進捗イベント
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/entity_done/entity_failed/done/error
	Message   string      `json:"message"`   // イベントメッセージ
	Data      interface{} `json:"data"`      // 付加データ
	Timestamp time.Time   `json:"timestamp"` // 時刻
}

func sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// チャネルが満杯のときはイベントを捨てる
	}
}
