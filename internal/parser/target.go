package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"wardboard/internal/model"
)

// 目標CSVの列名
const (
	targetColCode  = "部門コード"
	targetColName  = "部門名"
	targetColType  = "区分"
	targetColValue = "目標値"
)

// ParseTargetCSV 目標値CSVを取り込む
// 列は 部門コード・部門名・区分（全日/平日/休日）・目標値
// UTF-8 で読めない場合は Shift_JIS として再解釈する
func ParseTargetCSV(r io.Reader) ([]model.TargetRecord, error) {
	rows, err := readCSVRows(r)
	if err != nil {
		return nil, fmt.Errorf("目標CSVの読み込みに失敗: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("目標CSVにデータ行がありません")
	}

	idx := map[string]int{}
	for i, col := range rows[0] {
		idx[NormalizeColumnName(col)] = i
	}
	for _, col := range []string{targetColCode, targetColType, targetColValue} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("目標CSVに必須列がありません: %s", col)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []model.TargetRecord
	for _, row := range rows[1:] {
		code := get(row, targetColCode)
		if code == "" {
			continue
		}

		dayType, ok := parseDayType(get(row, targetColType))
		if !ok {
			continue
		}

		value, err := strconv.ParseFloat(strings.ReplaceAll(get(row, targetColValue), ",", ""), 64)
		if err != nil {
			continue
		}

		records = append(records, model.TargetRecord{
			DepartmentCode: code,
			DepartmentName: get(row, targetColName),
			DayType:        dayType,
			TargetValue:    value,
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("目標CSVに有効な行がありません")
	}
	return records, nil
}

func parseDayType(s string) (model.DayType, bool) {
	switch s {
	case string(model.DayTypeAll):
		return model.DayTypeAll, true
	case string(model.DayTypeWeekday):
		return model.DayTypeWeekday, true
	case string(model.DayTypeHoliday):
		return model.DayTypeHoliday, true
	}
	return "", false
}

// readCSVRows CSVを全行読み込む
// BOM を剥がし、UTF-8 として不正な場合は Shift_JIS として復号する
func readCSVRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if !utf8.Valid(data) {
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder()))
		if err != nil {
			return nil, fmt.Errorf("文字コードを判別できません: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// MajorDepartments 目標値レコードから主要診療科の一覧を作る
// 実績データに現れる名称を優先し、コードしか無い部門はコードをそのまま使う
func MajorDepartments(targets []model.TargetRecord, actualDepts []string) []string {
	actualSet := make(map[string]bool, len(actualDepts))
	for _, d := range actualDepts {
		actualSet[d] = true
	}

	seen := make(map[string]bool)
	var majors []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			majors = append(majors, name)
		}
	}

	for _, t := range targets {
		switch {
		case actualSet[t.DepartmentCode]:
			add(t.DepartmentCode)
		case actualSet[t.DepartmentName]:
			add(t.DepartmentName)
		default:
			add(t.DepartmentCode)
		}
	}
	return majors
}
