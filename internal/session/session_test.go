package session

import (
	"testing"
	"time"

	"wardboard/internal/model"
)

func rec(day int, ward, dept string, census float64) model.CensusRecord {
	return model.CensusRecord{
		Date:           time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
		WardCode:       ward,
		DepartmentName: dept,
		Census:         census,
	}
}

func TestDatasetMetaAndRange(t *testing.T) {
	t.Parallel()

	ds := NewDataset([]model.CensusRecord{
		rec(3, "02A", "内科", 10),
		rec(1, "02A", "内科", 20),
		rec(5, "03B", "外科", 30),
	}, nil, []string{"日付"}, "test.xlsx")

	if ds.Meta.Rows != 3 {
		t.Fatalf("rows = %d, want 3", ds.Meta.Rows)
	}
	min, max, ok := ds.DateRange()
	if !ok {
		t.Fatalf("expected date range")
	}
	if min.Day() != 1 || max.Day() != 5 {
		t.Fatalf("range = [%v, %v]", min, max)
	}

	filtered := ds.FilterRange(
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
	)
	if len(filtered) != 1 || filtered[0].Date.Day() != 3 {
		t.Fatalf("filtered = %+v", filtered)
	}
}

func TestDatasetExcludeWards(t *testing.T) {
	t.Parallel()

	ds := NewDataset([]model.CensusRecord{
		rec(1, "02A", "内科", 10),
		rec(1, "03B", "内科", 20),
	}, nil, nil, "")

	out := ds.ExcludeWards([]string{"03B"})
	if len(out.Records) != 1 || out.Records[0].WardCode != "02A" {
		t.Fatalf("records = %+v", out.Records)
	}
	if out.Meta.Rows != 1 {
		t.Fatalf("meta rows = %d, want 1", out.Meta.Rows)
	}
	// 元のスナップショットは不変
	if len(ds.Records) != 2 {
		t.Fatalf("original mutated: %+v", ds.Records)
	}
}

func TestSessionReplaceAndClear(t *testing.T) {
	t.Parallel()

	s := New()
	if s.HasData() {
		t.Fatalf("empty session should not have data")
	}
	if _, ok := s.Dataset(); ok {
		t.Fatalf("expected no dataset")
	}

	s.Replace(NewDataset([]model.CensusRecord{rec(1, "02A", "内科", 10)}, []model.TargetRecord{
		{DepartmentCode: "内科", DayType: model.DayTypeAll, TargetValue: 15},
	}, nil, ""))
	if !s.HasData() {
		t.Fatalf("expected data after replace")
	}

	ds, _ := s.Dataset()
	if v, ok := ds.TargetFor("内科", model.DayTypeAll); !ok || v != 15 {
		t.Fatalf("target = %v %v", v, ok)
	}
	if _, ok := ds.TargetFor("内科", model.DayTypeHoliday); ok {
		t.Fatalf("目標なしが区別されていない")
	}

	s.Clear()
	if s.HasData() {
		t.Fatalf("expected no data after clear")
	}
}

func TestDatasetDistinct(t *testing.T) {
	t.Parallel()

	ds := NewDataset([]model.CensusRecord{
		rec(1, "03B", "外科", 1),
		rec(1, "02A", "内科", 1),
		rec(2, "02A", "内科", 1),
	}, nil, nil, "")

	wards := ds.Wards()
	if len(wards) != 2 || wards[0] != "02A" || wards[1] != "03B" {
		t.Fatalf("wards = %v", wards)
	}
	depts := ds.Departments()
	if len(depts) != 2 {
		t.Fatalf("depts = %v", depts)
	}
}
