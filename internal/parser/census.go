package parser

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"wardboard/internal/calendar"
	"wardboard/internal/model"
)

// OtherDepartment 主要診療科以外をまとめる区分名
const OtherDepartment = "その他"

// ParseResult 取り込み結果
type ParseResult struct {
	Records    []model.CensusRecord
	Columns    []string
	Dropped    int
	Duplicates int
	Warnings   []string
}

// ParseCensusFile 実績ファイル（xlsx / csv）を取り込んで正規化レコードを返す
// 列名は同義語テーブルで一度だけ解決し、以降の処理は型付きレコードのみを扱う
func ParseCensusFile(r io.Reader, filename string) (*ParseResult, error) {
	var rows [][]string
	var err error

	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		rows, err = readCSVRows(r)
	} else {
		rows, err = readExcelRows(r)
	}
	if err != nil {
		return nil, fmt.Errorf("ファイル読み込みに失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ファイルにデータ行がありません")
	}

	header := rows[0]
	cols, missing := NewColumnMapper().Resolve(header)
	if len(missing) > 0 {
		return nil, fmt.Errorf("必須列が見つかりません: %s", strings.Join(missing, ", "))
	}

	result := &ParseResult{Columns: canonicalColumns(cols)}
	seen := make(map[string]bool)

	for _, row := range rows[1:] {
		rec, ok := parseRow(row, cols)
		if !ok {
			result.Dropped++
			continue
		}

		key := rec.Date.Format("2006-01-02") + "|" + rec.WardCode + "|" + rec.DepartmentName
		if seen[key] {
			result.Duplicates++
			continue
		}
		seen[key] = true

		rec.Derive(calendar.IsWeekday)
		result.Records = append(result.Records, rec)
	}

	if len(result.Records) == 0 {
		return nil, fmt.Errorf("有効なデータ行がありません（%d 行を除外）", result.Dropped)
	}

	sort.Slice(result.Records, func(i, j int) bool {
		a, b := result.Records[i], result.Records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.WardCode != b.WardCode {
			return a.WardCode < b.WardCode
		}
		return a.DepartmentName < b.DepartmentName
	})

	result.Warnings = ValidateRecords(result.Records)
	if result.Dropped > 0 {
		log.Printf("[parser] 日付または病棟が欠落した %d 行を除外しました", result.Dropped)
	}
	if result.Duplicates > 0 {
		log.Printf("[parser] 重複した %d 行を除外しました", result.Duplicates)
	}

	return result, nil
}

// parseRow 1行を正規化レコードへ変換する
// 日付・病棟・診療科のいずれかが欠ける行は取り込まない
func parseRow(row []string, cols columnIndexes) (model.CensusRecord, bool) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	date, ok := ParseDate(get(cols.date))
	if !ok {
		return model.CensusRecord{}, false
	}

	ward := strings.TrimSpace(get(cols.ward))
	dept := strings.TrimSpace(get(cols.department))
	if ward == "" || dept == "" {
		return model.CensusRecord{}, false
	}

	return model.CensusRecord{
		Date:                date,
		WardCode:            ward,
		DepartmentName:      dept,
		Census:              CoerceCount(get(cols.census)),
		Admissions:          CoerceCount(get(cols.admissions)),
		EmergencyAdmissions: CoerceCount(get(cols.emergency)),
		Discharges:          CoerceCount(get(cols.discharges)),
		Deaths:              CoerceCount(get(cols.deaths)),
	}, true
}

// readExcelRows 先頭シートの全行を読み込む
func readExcelRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("シートがありません")
	}

	return f.GetRows(sheets[0])
}

// canonicalColumns 解決済みの列名一覧（メタ情報用）
func canonicalColumns(cols columnIndexes) []string {
	out := []string{ColDate, ColWard, ColDepartment, ColCensus}
	if cols.admissions >= 0 {
		out = append(out, ColAdmissions)
	}
	if cols.emergency >= 0 {
		out = append(out, ColEmergency)
	}
	if cols.discharges >= 0 {
		out = append(out, ColDischarges)
	}
	if cols.deaths >= 0 {
		out = append(out, ColDeaths)
	}
	return out
}

// CollapseDepartments 主要診療科以外を「その他」へ集約する
// allowed が空の場合は何もしない
func CollapseDepartments(records []model.CensusRecord, allowed []string) []model.CensusRecord {
	if len(allowed) == 0 {
		return records
	}
	allowSet := make(map[string]bool, len(allowed))
	for _, d := range allowed {
		allowSet[d] = true
	}

	out := make([]model.CensusRecord, len(records))
	for i, rec := range records {
		if !allowSet[rec.DepartmentName] {
			rec.DepartmentName = OtherDepartment
		}
		out[i] = rec
	}
	return out
}

// ValidateRecords 取り込み済みデータの妥当性を検査して警告一覧を返す
func ValidateRecords(records []model.CensusRecord) []string {
	var warnings []string
	if len(records) == 0 {
		return []string{"データがありません"}
	}

	minDate, maxDate := records[0].Date, records[0].Date
	var censusSum, censusMax float64
	for _, rec := range records {
		if rec.Date.Before(minDate) {
			minDate = rec.Date
		}
		if rec.Date.After(maxDate) {
			maxDate = rec.Date
		}
		censusSum += rec.Census
		if rec.Census > censusMax {
			censusMax = rec.Census
		}
	}

	span := int(maxDate.Sub(minDate).Hours()/24) + 1
	if span < 30 {
		warnings = append(warnings, fmt.Sprintf("データ期間が %d 日と短いため、移動平均や予測の精度が下がります", span))
	}

	mean := censusSum / float64(len(records))
	if mean > 0 && censusMax > mean*10 {
		warnings = append(warnings, fmt.Sprintf("在院患者数に外れ値の可能性があります（最大 %.0f、平均 %.1f）", censusMax, mean))
	}

	if maxDate.After(time.Now().AddDate(0, 0, 1)) {
		warnings = append(warnings, "未来日付のデータが含まれています")
	}

	return warnings
}
