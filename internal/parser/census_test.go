package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildCensusXLSX(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParseCensusFile_XLSX(t *testing.T) {
	t.Parallel()

	r := buildCensusXLSX(t, [][]any{
		{"日付", "病棟コード", "診療科名", "在院患者数", "入院患者数", "緊急入院患者数", "退院患者数", "死亡患者数"},
		{"2025-06-02", "02A", "内科", "30", "3", "1", "2", "0"},
		{"2025-06-02", "02A", "外科", "20", "2", "0", "1", "1"},
		{"", "02A", "内科", "10", "0", "0", "0", "0"},            // 日付欠落
		{"2025-06-03", "", "内科", "10", "0", "0", "0", "0"},     // 病棟欠落
		{"2025-06-02", "02A", "内科", "99", "9", "9", "9", "9"}, // 重複
	})

	result, err := ParseCensusFile(r, "census.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Records))
	}
	if result.Dropped != 2 {
		t.Fatalf("dropped = %d, want 2", result.Dropped)
	}
	if result.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", result.Duplicates)
	}

	rec := result.Records[0]
	if rec.DepartmentName != "内科" {
		t.Fatalf("unexpected sort order: %+v", rec)
	}
	if rec.TotalAdmissions != 4 {
		t.Fatalf("total admissions = %v, want 4", rec.TotalAdmissions)
	}
	if rec.TotalDischarges != 2 {
		t.Fatalf("total discharges = %v, want 2", rec.TotalDischarges)
	}
	// 2025-06-02 は月曜
	if !rec.IsWeekday {
		t.Fatalf("2025-06-02 should be a weekday")
	}
}

func TestParseCensusFile_AliasHeader(t *testing.T) {
	t.Parallel()

	r := buildCensusXLSX(t, [][]any{
		{"Date", "病棟", "診療科", "現在患者数", "Admissions", "救急入院", "Discharges", "Deaths"},
		{"2025/6/2", "03A", "小児科", "15", "1", "0", "2", "0"},
	})

	result, err := ParseCensusFile(r, "census.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(result.Records))
	}
	if result.Records[0].Census != 15 {
		t.Fatalf("census = %v, want 15", result.Records[0].Census)
	}
}

func TestParseCensusFile_MissingRequiredColumn(t *testing.T) {
	t.Parallel()

	r := buildCensusXLSX(t, [][]any{
		{"日付", "病棟コード", "入院患者数"},
		{"2025-06-02", "02A", "3"},
	})

	_, err := ParseCensusFile(r, "census.xlsx")
	if err == nil {
		t.Fatalf("expected error for missing required columns")
	}
	if !strings.Contains(err.Error(), "必須列") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseCensusFile_CSV(t *testing.T) {
	t.Parallel()

	csvText := "日付,病棟コード,診療科名,在院患者数,入院患者数,緊急入院患者数,退院患者数,死亡患者数\n" +
		"2025-06-02,02A,内科,30,3,1,2,0\n" +
		"2025-06-03,02A,内科,-5,NA,-,2,0\n"

	result, err := ParseCensusFile(strings.NewReader(csvText), "census.csv")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Records))
	}

	rec := result.Records[1]
	if rec.Census != 0 || rec.Admissions != 0 || rec.EmergencyAdmissions != 0 {
		t.Fatalf("非数値・負数が 0 に丸められていない: %+v", rec)
	}
}

func TestCollapseDepartments(t *testing.T) {
	t.Parallel()

	r := buildCensusXLSX(t, [][]any{
		{"日付", "病棟コード", "診療科名", "在院患者数"},
		{"2025-06-02", "02A", "内科", "30"},
		{"2025-06-02", "02A", "眼科", "5"},
	})
	result, err := ParseCensusFile(r, "census.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	collapsed := CollapseDepartments(result.Records, []string{"内科"})
	if collapsed[0].DepartmentName != "内科" {
		t.Fatalf("主要診療科が変更された: %+v", collapsed[0])
	}
	if collapsed[1].DepartmentName != OtherDepartment {
		t.Fatalf("collapse されていない: %+v", collapsed[1])
	}

	// 許可リストが空なら無変換
	same := CollapseDepartments(result.Records, nil)
	if same[1].DepartmentName != "眼科" {
		t.Fatalf("空リストで変換された: %+v", same[1])
	}
}
