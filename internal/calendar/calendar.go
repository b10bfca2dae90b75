package calendar

import (
	"time"

	holiday_jp "github.com/holiday-jp/holiday_jp-go"
)

// FiscalStartMonth 年度の開始月（4月始まり）
const FiscalStartMonth = time.April

// IsHospitalHoliday 病院運用上の休日判定
// 土日・祝日に加えて年末（12/29〜31）と年始（1/1〜3）を休日扱いにする
func IsHospitalHoliday(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	if holiday_jp.IsHoliday(d) {
		return true
	}
	if d.Month() == time.December && d.Day() >= 29 {
		return true
	}
	if d.Month() == time.January && d.Day() <= 3 {
		return true
	}
	return false
}

// IsWeekday 平日判定
func IsWeekday(d time.Time) bool {
	return !IsHospitalHoliday(d)
}

// FiscalYearStart 日付が属する年度の開始日（4月1日）
func FiscalYearStart(d time.Time) time.Time {
	year := d.Year()
	if d.Month() < FiscalStartMonth {
		year--
	}
	return time.Date(year, FiscalStartMonth, 1, 0, 0, 0, 0, d.Location())
}

// FiscalYearEnd 日付が属する年度の末日（3月31日）
func FiscalYearEnd(d time.Time) time.Time {
	return FiscalYearStart(d).AddDate(1, 0, -1)
}

// PriorMonth 日付の前月の初日と末日
func PriorMonth(d time.Time) (time.Time, time.Time) {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	end := first.AddDate(0, 0, -1)
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, d.Location())
	return start, end
}

// Truncate 時刻情報を落として日付に丸める
func Truncate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
