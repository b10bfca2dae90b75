package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wardboard/internal/model"
	"wardboard/internal/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "wardboard.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDataset() *session.Dataset {
	records := []model.CensusRecord{
		{
			Date:                time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			WardCode:            "02A",
			DepartmentName:      "内科",
			Census:              30,
			Admissions:          3,
			EmergencyAdmissions: 1,
			Discharges:          2,
			Deaths:              0,
			TotalAdmissions:     4,
			TotalDischarges:     2,
			IsWeekday:           true,
		},
		{
			Date:           time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
			WardCode:       "03B",
			DepartmentName: "外科",
			Census:         20,
		},
	}
	targets := []model.TargetRecord{
		{DepartmentCode: "内科", DepartmentName: "内科", DayType: model.DayTypeAll, TargetValue: 120},
	}
	return session.NewDataset(records, targets, []string{"日付", "病棟コード"}, "census.xlsx")
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ds := testDataset()

	if err := s.SaveSnapshot(ds); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatalf("expected snapshot")
	}

	if len(loaded.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(loaded.Records))
	}
	rec := loaded.Records[0]
	if rec.WardCode != "02A" || rec.Census != 30 || rec.TotalAdmissions != 4 || !rec.IsWeekday {
		t.Fatalf("record mismatch: %+v", rec)
	}
	if !rec.Date.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date mismatch: %v", rec.Date)
	}

	if len(loaded.Targets) != 1 || loaded.Targets[0].TargetValue != 120 {
		t.Fatalf("targets mismatch: %+v", loaded.Targets)
	}
	if loaded.Meta.Rows != 2 || len(loaded.Meta.Columns) != 2 {
		t.Fatalf("meta mismatch: %+v", loaded.Meta)
	}
}

func TestLoadSnapshot_Empty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("空ストアでスナップショットが返った: %+v", loaded)
	}
}

func TestSaveSnapshot_Overwrites(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.SaveSnapshot(testDataset()); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := session.NewDataset([]model.CensusRecord{
		{Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), WardCode: "04C", DepartmentName: "小児科", Census: 5},
	}, nil, nil, "second.xlsx")
	if err := s.SaveSnapshot(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Records) != 1 || loaded.Records[0].WardCode != "04C" {
		t.Fatalf("上書きされていない: %+v", loaded.Records)
	}
	if len(loaded.Targets) != 0 {
		t.Fatalf("旧目標が残っている: %+v", loaded.Targets)
	}
}

func TestClearSnapshot(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.SaveSnapshot(testDataset()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.ClearSnapshot(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("クリア後にスナップショットが残っている")
	}
}

func TestBackupRotation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.SaveSnapshot(testDataset()); err != nil {
		t.Fatalf("save: %v", err)
	}

	backupDir := filepath.Join(t.TempDir(), "backups")
	path, err := s.Backup(backupDir, 5)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	// 古い世代を直接作って世代管理だけを検証する
	for i := 0; i < 7; i++ {
		name := filepath.Join(backupDir, fmt.Sprintf("%s2020010%d_000000.db", backupPrefix, i))
		if err := os.WriteFile(name, []byte("old"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := pruneBackups(backupDir, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}

	names, err := ListBackups(backupDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 5 {
		t.Fatalf("backups = %d, want 5", len(names))
	}
	// 新しい世代（今回のバックアップ）が残っている
	if names[0] != filepath.Base(path) {
		t.Fatalf("newest = %s, want %s", names[0], filepath.Base(path))
	}
}
