package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeColumnName 列名を正規化する
// 前後空白・改行・タブを除去し、全角英数を半角へ畳み込む
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\t", "")
	name = spaceRe.ReplaceAllString(name, "")
	return width.Fold.String(name)
}

// CoerceCount 患者数セルを非負の数値へ変換する
// "-" や空欄、"NA" 等の非数値トークンは 0、負数は 0 に丸める
func CoerceCount(raw string) float64 {
	s := strings.TrimSpace(width.Fold.String(raw))
	if s == "" || s == "-" {
		return 0
	}
	switch strings.ToUpper(s) {
	case "NA", "N/A", "NAN", "NULL":
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// 日付文字列として許容する書式
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006年1月2日",
	"2006-01-02 15:04:05",
	"01-02-06",
	"1/2/06 15:04",
}

// ParseDate 日付セルを日付へ変換する
// Excel のシリアル値と一般的な日付書式の双方を受け付ける
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(width.Fold.String(raw))
	if s == "" {
		return time.Time{}, false
	}

	// Excel シリアル値（1900年起点）
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 1 || serial > 200000 {
			return time.Time{}, false
		}
		epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
		d := epoch.AddDate(0, 0, int(serial))
		return d, true
	}

	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ContainsAny 文字列がいずれかのキーワードを含むか
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
