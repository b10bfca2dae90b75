package importer

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"wardboard/internal/model"
	"wardboard/internal/parser"
	"wardboard/internal/session"
	"wardboard/internal/store"
)

// Coordinator 取り込みの調整役
// 生レコードを保持し、目標値の有無に応じて診療科集約を適用した
// データセットをセッションへ差し替える
type Coordinator struct {
	mu         sync.Mutex
	session    *session.Session
	store      *store.Store
	backupDir  string
	maxBackups int

	raw     []model.CensusRecord
	targets []model.TargetRecord
	columns []string
	source  string
}

// NewCoordinator 取り込み調整役を作る
// store は nil でもよい（永続化なしで動く）
func NewCoordinator(sess *session.Session, st *store.Store, backupDir string, maxBackups int) *Coordinator {
	return &Coordinator{
		session:    sess,
		store:      st,
		backupDir:  backupDir,
		maxBackups: maxBackups,
	}
}

// ImportOptions 取り込みオプション
type ImportOptions struct {
	FileName string
	Reader   io.Reader
}

// ProgressEvent 進捗イベント
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/parsed/warning/saved/done/error
	Message   string      `json:"message"`   // イベントメッセージ
	Data      interface{} `json:"data"`      // 付加データ
	Timestamp time.Time   `json:"timestamp"` // 時刻
}

// ImportSummary 取り込み結果
type ImportSummary struct {
	Rows       int       `json:"rows"`
	Dropped    int       `json:"dropped"`
	Duplicates int       `json:"duplicates"`
	Warnings   []string  `json:"warnings"`
	DateMin    time.Time `json:"date_min"`
	DateMax    time.Time `json:"date_max"`
}

// Import 取り込みを開始し、進捗チャネルを返す
func (c *Coordinator) Import(opts ImportOptions) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 100)
	go func() {
		defer close(ch)
		c.doImport(opts, ch)
	}()
	return ch
}

func (c *Coordinator) doImport(opts ImportOptions, ch chan ProgressEvent) {
	c.sendProgress(ch, ProgressEvent{
		Type:      "start",
		Message:   "ファイルの取り込みを開始します",
		Data:      map[string]string{"filename": opts.FileName},
		Timestamp: time.Now(),
	})

	result, err := parser.ParseCensusFile(opts.Reader, opts.FileName)
	if err != nil {
		c.sendProgress(ch, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("ファイルの解析に失敗: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	c.sendProgress(ch, ProgressEvent{
		Type:    "parsed",
		Message: fmt.Sprintf("%d 行を読み込みました", len(result.Records)),
		Data: map[string]int{
			"rows":       len(result.Records),
			"dropped":    result.Dropped,
			"duplicates": result.Duplicates,
		},
		Timestamp: time.Now(),
	})
	for _, w := range result.Warnings {
		c.sendProgress(ch, ProgressEvent{Type: "warning", Message: w, Timestamp: time.Now()})
	}

	c.mu.Lock()
	c.raw = result.Records
	c.columns = result.Columns
	c.source = opts.FileName
	ds := c.assembleLocked()
	c.session.Replace(ds)
	persistErr := c.persistLocked()
	c.mu.Unlock()

	if persistErr != nil {
		// 永続化の失敗は取り込み自体を失敗にしない
		log.Printf("[importer] スナップショットの保存に失敗: %v", persistErr)
		c.sendProgress(ch, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("スナップショットの保存に失敗: %v", persistErr),
			Timestamp: time.Now(),
		})
	} else if c.store != nil {
		c.sendProgress(ch, ProgressEvent{Type: "saved", Message: "スナップショットを保存しました", Timestamp: time.Now()})
	}

	summary := ImportSummary{
		Rows:       len(result.Records),
		Dropped:    result.Dropped,
		Duplicates: result.Duplicates,
		Warnings:   result.Warnings,
		DateMin:    ds.Meta.DateMin,
		DateMax:    ds.Meta.DateMax,
	}
	c.sendProgress(ch, ProgressEvent{
		Type:      "done",
		Message:   "取り込みが完了しました",
		Data:      summary,
		Timestamp: time.Now(),
	})
}

// ImportTargets 目標値CSVを取り込み、診療科集約を適用し直す
// 在院患者数データが未取り込みの場合はエラー
func (c *Coordinator) ImportTargets(r io.Reader) (int, error) {
	targets, err := parser.ParseTargetCSV(r)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	if len(c.raw) == 0 {
		c.mu.Unlock()
		return 0, fmt.Errorf("先に在院患者数データを取り込んでください")
	}
	c.targets = targets
	ds := c.assembleLocked()
	c.session.Replace(ds)
	persistErr := c.persistLocked()
	c.mu.Unlock()

	if persistErr != nil {
		log.Printf("[importer] スナップショットの保存に失敗: %v", persistErr)
	}
	return len(targets), nil
}

// Restore 起動時に保存済みスナップショットからセッションを復元する
// スナップショットが無い場合は何もしない
func (c *Coordinator) Restore() (bool, error) {
	if c.store == nil {
		return false, nil
	}
	saved, err := c.store.LoadSnapshot()
	if err != nil {
		return false, fmt.Errorf("スナップショットの読み込みに失敗: %w", err)
	}
	if saved == nil {
		return false, nil
	}

	c.mu.Lock()
	c.raw = saved.Records
	c.targets = saved.Targets
	c.columns = saved.Meta.Columns
	c.source = saved.Meta.SourceTag
	ds := c.assembleLocked()
	c.session.Replace(ds)
	c.mu.Unlock()

	log.Printf("[importer] スナップショットを復元しました: %d 行 (%s)", len(saved.Records), saved.Meta.SourceTag)
	return true, nil
}

// Clear セッションと保存済みスナップショットを破棄する
func (c *Coordinator) Clear() error {
	c.mu.Lock()
	c.raw = nil
	c.targets = nil
	c.columns = nil
	c.source = ""
	c.mu.Unlock()

	c.session.Clear()
	if c.store == nil {
		return nil
	}
	return c.store.ClearSnapshot()
}

// Backups 世代バックアップのファイル名一覧（新しい順）
func (c *Coordinator) Backups() ([]string, error) {
	if c.store == nil {
		return nil, nil
	}
	return store.ListBackups(c.backupDir)
}

// assembleLocked 生レコードから分析用データセットを組み立てる
// 目標値があるときは主要診療科以外を「その他」へ集約する
// 呼び出し側が c.mu を保持していること
func (c *Coordinator) assembleLocked() *session.Dataset {
	records := c.raw
	if len(c.targets) > 0 {
		actual := distinctDepartments(records)
		allowed := parser.MajorDepartments(c.targets, actual)
		records = parser.CollapseDepartments(records, allowed)
	}
	return session.NewDataset(records, c.targets, c.columns, c.source)
}

// persistLocked 生レコードをスナップショットへ保存し、旧状態をバックアップする
// 状態の更新と同じロック区間で呼ぶこと。別の取り込みと保存内容が混ざるのを防ぐ
func (c *Coordinator) persistLocked() error {
	if c.store == nil {
		return nil
	}

	// 上書き前の状態を世代バックアップへ退避する
	if c.maxBackups > 0 {
		if _, err := c.store.Backup(c.backupDir, c.maxBackups); err != nil {
			log.Printf("[importer] バックアップの作成に失敗: %v", err)
		}
	}

	ds := session.NewDataset(c.raw, c.targets, c.columns, c.source)
	return c.store.SaveSnapshot(ds)
}

func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// チャネルが満杯のときはイベントを捨てる
	}
}

func distinctDepartments(records []model.CensusRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range records {
		if !seen[rec.DepartmentName] {
			seen[rec.DepartmentName] = true
			out = append(out, rec.DepartmentName)
		}
	}
	return out
}
