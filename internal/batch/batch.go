package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"runtime"
	"sort"
	"sync"
	"time"

	"wardboard/internal/model"
	"wardboard/internal/parser"
	"wardboard/internal/report"
	"wardboard/internal/session"
)

const (
	folderDepartments = "診療科別"
	folderWards       = "病棟別"
)

// Options 一括出力の設定
type Options struct {
	Workers       int           // 0 のときは既定値
	JobTimeout    time.Duration // 0 のときはタイムアウトなし
	ExcludedWards []string      // 集計から除外する病棟コード
	Format        string        // pdf / html
}

// Failure 失敗した集計単位とその理由
type Failure struct {
	Entity model.Entity `json:"entity"`
	Reason string       `json:"reason"`
}

// Summary 一括出力の結果
// 失敗があっても処理は最後まで走り、成功分だけで書庫を作る
type Summary struct {
	Succeeded int           `json:"succeeded"`
	Failed    []Failure     `json:"failed"`
	Archive   []byte        `json:"-"`
	FileName  string        `json:"file_name"`
	Elapsed   time.Duration `json:"-"`
}

// Runner 集計単位ごとの帳票を並列に組み立てて ZIP へまとめる
type Runner struct {
	builder *report.Builder
	pdf     *report.PDFRenderer
}

// NewRunner 一括出力ランナーを作る
func NewRunner(builder *report.Builder, pdf *report.PDFRenderer) *Runner {
	return &Runner{builder: builder, pdf: pdf}
}

// defaultWorkers 既定のワーカー数
// 描画はメモリを食うので CPU 数によらず上限 2 で抑える
func defaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n > 2 {
		n = 2
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Entities 出力対象の集計単位を列挙する
// 全体 → 診療科 → 病棟 の順
func Entities(ds *session.Dataset) []model.Entity {
	out := []model.Entity{{Type: model.EntityAll, DisplayName: report.WholePopulationName}}
	for _, dept := range ds.Departments() {
		out = append(out, model.Entity{Type: model.EntityDepartment, Key: dept, DisplayName: dept})
	}
	for _, ward := range ds.Wards() {
		out = append(out, model.Entity{
			Type:        model.EntityWard,
			Key:         ward,
			DisplayName: parser.WardDisplayName(ward),
		})
	}
	return out
}

type task struct {
	index  int
	entity model.Entity
}

type taskResult struct {
	index  int
	entity model.Entity
	name   string // 書庫内のパス
	data   []byte
	err    error
}

// Run 一括出力を開始し、進捗チャネルを返す
// 完了イベント（Type=done）の Data に *Summary が入る
func (r *Runner) Run(ctx context.Context, ds *session.Dataset, p model.Period, opts Options) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 100)
	go func() {
		defer close(ch)
		r.run(ctx, ds, p, opts, ch)
	}()
	return ch
}

// RunSync 一括出力を同期で実行する
func (r *Runner) RunSync(ctx context.Context, ds *session.Dataset, p model.Period, opts Options) (*Summary, error) {
	var summary *Summary
	for event := range r.Run(ctx, ds, p, opts) {
		switch event.Type {
		case "done":
			summary = event.Data.(*Summary)
		case "error":
			return nil, fmt.Errorf("%s", event.Message)
		}
	}
	if summary == nil {
		return nil, fmt.Errorf("一括出力が完了しませんでした")
	}
	return summary, nil
}

func (r *Runner) run(ctx context.Context, ds *session.Dataset, p model.Period, opts Options, ch chan ProgressEvent) {
	start := time.Now()

	// 除外病棟は入口で落とす
	if len(opts.ExcludedWards) > 0 {
		ds = ds.ExcludeWards(opts.ExcludedWards)
	}

	entities := Entities(ds)
	if len(entities) == 0 {
		sendProgress(ch, ProgressEvent{Type: "error", Message: "出力対象がありません", Timestamp: time.Now()})
		return
	}

	sendProgress(ch, ProgressEvent{
		Type:      "start",
		Message:   fmt.Sprintf("%d 件の帳票を生成します", len(entities)),
		Data:      map[string]interface{}{"total": len(entities)},
		Timestamp: time.Now(),
	})

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}

	tasks := make(chan task)
	results := make(chan taskResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				results <- r.renderOne(ctx, ds, t, p, opts)
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i, e := range entities {
			select {
			case tasks <- task{index: i, entity: e}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var done []taskResult
	var failed []Failure
	for res := range results {
		if res.err != nil {
			failed = append(failed, Failure{Entity: res.entity, Reason: res.err.Error()})
			log.Printf("[batch] %s の帳票生成に失敗: %v", res.entity.DisplayName, res.err)
			sendProgress(ch, ProgressEvent{
				Type:      "entity_failed",
				Message:   fmt.Sprintf("%s: %v", res.entity.DisplayName, res.err),
				Data:      map[string]interface{}{"entity": res.entity.DisplayName},
				Timestamp: time.Now(),
			})
			continue
		}
		done = append(done, res)
		sendProgress(ch, ProgressEvent{
			Type:      "entity_done",
			Message:   res.entity.DisplayName,
			Data:      map[string]interface{}{"entity": res.entity.DisplayName, "name": res.name},
			Timestamp: time.Now(),
		})
	}

	archive, err := buildArchive(done)
	if err != nil {
		sendProgress(ch, ProgressEvent{Type: "error", Message: "ZIPの作成に失敗: " + err.Error(), Timestamp: time.Now()})
		return
	}

	sort.Slice(failed, func(i, j int) bool { return failed[i].Entity.Key < failed[j].Entity.Key })

	summary := &Summary{
		Succeeded: len(done),
		Failed:    failed,
		Archive:   archive,
		FileName:  fmt.Sprintf("入院患者数予測_一括_%s.zip", p.End.Format("20060102")),
		Elapsed:   time.Since(start),
	}
	sendProgress(ch, ProgressEvent{
		Type:      "done",
		Message:   fmt.Sprintf("成功 %d 件 / 失敗 %d 件", summary.Succeeded, len(summary.Failed)),
		Data:      summary,
		Timestamp: time.Now(),
	})
}

// renderOne 1集計単位分の帳票を生成する
// タイムアウトは他の失敗と同じ扱いで後続を止めない
func (r *Runner) renderOne(ctx context.Context, ds *session.Dataset, t task, p model.Period, opts Options) taskResult {
	res := taskResult{index: t.index, entity: t.entity}

	jobCtx := ctx
	if opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, opts.JobTimeout)
		defer cancel()
	}

	type rendered struct {
		data []byte
		err  error
	}
	out := make(chan rendered, 1)
	go func() {
		doc, err := r.builder.Build(ds, t.entity, p)
		if err != nil {
			out <- rendered{nil, err}
			return
		}
		var data []byte
		if opts.Format == "html" {
			data, err = report.RenderHTML(doc)
		} else {
			data, err = r.pdf.Render(doc)
		}
		out <- rendered{data, err}
	}()

	select {
	case <-jobCtx.Done():
		res.err = fmt.Errorf("時間切れ: %w", jobCtx.Err())
	case o := <-out:
		res.data = o.data
		res.err = o.err
	}
	if res.err != nil {
		return res
	}

	res.name = archivePath(t.entity, p.End, opts.Format)
	return res
}

// archivePath 書庫内の格納パスを決める
func archivePath(entity model.Entity, date time.Time, format string) string {
	ext := "pdf"
	if format == "html" {
		ext = "html"
	}
	name := report.FileName(entity.DisplayName, date, ext)
	switch entity.Type {
	case model.EntityDepartment:
		return path.Join(folderDepartments, name)
	case model.EntityWard:
		return path.Join(folderWards, name)
	default:
		return name
	}
}

// buildArchive 成功分をまとめて ZIP を組み立てる
// 並び順を安定させるため投入順に書く
func buildArchive(results []taskResult) ([]byte, error) {
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, res := range results {
		w, err := zw.Create(res.name)
		if err != nil {
			return nil, fmt.Errorf("書庫エントリの作成に失敗 %s: %w", res.name, err)
		}
		if _, err := w.Write(res.data); err != nil {
			return nil, fmt.Errorf("書庫への書き込みに失敗 %s: %w", res.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("書庫のクローズに失敗: %w", err)
	}
	return buf.Bytes(), nil
}
