package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"wardboard/internal/model"
	"wardboard/internal/report"
	"wardboard/internal/session"
)

func day(offset int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local).AddDate(0, 0, offset)
}

// testDataset 診療科2つ・病棟2つのデータセット
// 外科 のレコードは分析期間の外にしか置かない
func testDataset() *session.Dataset {
	var records []model.CensusRecord
	for i := 0; i < 14; i++ {
		records = append(records, model.CensusRecord{
			Date:            day(i),
			WardCode:        "02A",
			DepartmentName:  "内科",
			Census:          40,
			Admissions:      3,
			Discharges:      3,
			TotalAdmissions: 3,
			TotalDischarges: 3,
		})
		records = append(records, model.CensusRecord{
			Date:            day(i),
			WardCode:        "03A",
			DepartmentName:  "内科",
			Census:          30,
			Admissions:      2,
			Discharges:      2,
			TotalAdmissions: 2,
			TotalDischarges: 2,
		})
	}
	// 期間外の古いレコードだけ持つ診療科
	records = append(records, model.CensusRecord{
		Date:            day(-100),
		WardCode:        "02A",
		DepartmentName:  "外科",
		Census:          10,
		TotalAdmissions: 1,
		TotalDischarges: 1,
	})
	return session.NewDataset(records, nil, nil, "test")
}

func newTestRunner() *Runner {
	builder := report.NewBuilder(report.NewChartRenderer(""), 100, nil)
	return NewRunner(builder, report.NewPDFRenderer("", "ipaexg"))
}

func TestRunSyncCompletesWithFailures(t *testing.T) {
	t.Parallel()

	ds := testDataset()
	p := model.Period{Start: day(0), End: day(13), Label: "直近14日"}

	summary, err := newTestRunner().RunSync(context.Background(), ds, p, Options{Format: "html"})
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	// 全体 + 内科 + 外科 + 02A + 03A の5件中、外科 だけ期間内データがなく失敗する
	if summary.Succeeded != 4 {
		t.Fatalf("Succeeded = %d, want 4", summary.Succeeded)
	}
	if len(summary.Failed) != 1 {
		t.Fatalf("Failed = %d, want 1", len(summary.Failed))
	}
	if summary.Failed[0].Entity.Key != "外科" {
		t.Fatalf("失敗した集計単位 = %q, want 外科", summary.Failed[0].Entity.Key)
	}
	if !strings.Contains(summary.Failed[0].Reason, "データ") {
		t.Fatalf("失敗理由にデータ起因が含まれていません: %q", summary.Failed[0].Reason)
	}

	zr, err := zip.NewReader(bytes.NewReader(summary.Archive), int64(len(summary.Archive)))
	if err != nil {
		t.Fatalf("ZIPの読込に失敗: %v", err)
	}
	if len(zr.File) != 4 {
		t.Fatalf("書庫内のファイル数 = %d, want 4", len(zr.File))
	}

	wantNames := map[string]bool{
		"入院患者数予測_病院全体_20250614.html":     false,
		"診療科別/入院患者数予測_内科_20250614.html":  false,
		"病棟別/入院患者数予測_2階A病棟_20250614.html": false,
		"病棟別/入院患者数予測_3階A病棟_20250614.html": false,
	}
	for _, f := range zr.File {
		if _, ok := wantNames[f.Name]; !ok {
			t.Fatalf("想定外の書庫エントリ: %q", f.Name)
		}
		wantNames[f.Name] = true
	}
	for name, seen := range wantNames {
		if !seen {
			t.Fatalf("書庫に %q がありません", name)
		}
	}
}

func TestRunEmitsProgressEvents(t *testing.T) {
	t.Parallel()

	ds := testDataset()
	p := model.Period{Start: day(0), End: day(13), Label: "直近14日"}

	var types []string
	for event := range newTestRunner().Run(context.Background(), ds, p, Options{Format: "html", Workers: 2}) {
		types = append(types, event.Type)
	}

	if len(types) == 0 || types[0] != "start" {
		t.Fatalf("最初のイベント = %v, want start", types)
	}
	if types[len(types)-1] != "done" {
		t.Fatalf("最後のイベント = %q, want done", types[len(types)-1])
	}

	var failedCount int
	for _, typ := range types {
		if typ == "entity_failed" {
			failedCount++
		}
	}
	if failedCount != 1 {
		t.Fatalf("entity_failed = %d, want 1", failedCount)
	}
}

func TestExcludedWardsSkipped(t *testing.T) {
	t.Parallel()

	var records []model.CensusRecord
	for i := 0; i < 14; i++ {
		for _, ward := range []string{"02A", "03B"} {
			records = append(records, model.CensusRecord{
				Date:            day(i),
				WardCode:        ward,
				DepartmentName:  "内科",
				Census:          20,
				TotalAdmissions: 1,
				TotalDischarges: 1,
			})
		}
	}
	ds := session.NewDataset(records, nil, nil, "test")
	p := model.Period{Start: day(0), End: day(13), Label: "直近14日"}

	summary, err := newTestRunner().RunSync(context.Background(), ds, p, Options{
		Format:        "html",
		ExcludedWards: []string{"03B"},
	})
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(summary.Archive), int64(len(summary.Archive)))
	if err != nil {
		t.Fatalf("ZIPの読込に失敗: %v", err)
	}
	for _, f := range zr.File {
		if strings.Contains(f.Name, "3階B病棟") {
			t.Fatalf("除外病棟の帳票が書庫に含まれています: %q", f.Name)
		}
	}
}

func TestJobTimeoutRecordedAsFailure(t *testing.T) {
	t.Parallel()

	ds := testDataset()
	p := model.Period{Start: day(0), End: day(13), Label: "直近14日"}

	summary, err := newTestRunner().RunSync(context.Background(), ds, p, Options{
		Format:     "html",
		JobTimeout: time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if summary.Succeeded != 0 {
		t.Fatalf("Succeeded = %d, want 0", summary.Succeeded)
	}
	if len(summary.Failed) != 5 {
		t.Fatalf("Failed = %d, want 5", len(summary.Failed))
	}
	for _, f := range summary.Failed {
		if !strings.Contains(f.Reason, "時間切れ") {
			t.Fatalf("理由 = %q, want 時間切れ", f.Reason)
		}
	}
}
