package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsHospitalHoliday(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		d    time.Time
		want bool
	}{
		{"平日", date(2021, 6, 16), false},
		{"土曜", date(2021, 6, 19), true},
		{"日曜", date(2021, 6, 20), true},
		{"祝日（建国記念の日）", date(2021, 2, 11), true},
		{"年末", date(2021, 12, 30), true},
		{"年始", date(2022, 1, 3), true},
		{"年始明け", date(2022, 1, 4), false},
		{"12月28日は平日", date(2021, 12, 28), false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsHospitalHoliday(tc.d); got != tc.want {
				t.Fatalf("IsHospitalHoliday(%v) = %v, want %v", tc.d, got, tc.want)
			}
			if got := IsWeekday(tc.d); got == tc.want {
				t.Fatalf("IsWeekday(%v) = %v, want %v", tc.d, got, !tc.want)
			}
		})
	}
}

func TestFiscalYearStart(t *testing.T) {
	t.Parallel()

	if got := FiscalYearStart(date(2025, 3, 15)); !got.Equal(date(2024, 4, 1)) {
		t.Fatalf("FiscalYearStart(2025-03-15) = %v, want 2024-04-01", got)
	}
	if got := FiscalYearStart(date(2025, 4, 15)); !got.Equal(date(2025, 4, 1)) {
		t.Fatalf("FiscalYearStart(2025-04-15) = %v, want 2025-04-01", got)
	}
	if got := FiscalYearEnd(date(2025, 3, 15)); !got.Equal(date(2025, 3, 31)) {
		t.Fatalf("FiscalYearEnd(2025-03-15) = %v, want 2025-03-31", got)
	}
}

func TestPriorMonth(t *testing.T) {
	t.Parallel()

	start, end := PriorMonth(date(2025, 3, 15))
	if !start.Equal(date(2025, 2, 1)) || !end.Equal(date(2025, 2, 28)) {
		t.Fatalf("PriorMonth(2025-03-15) = [%v, %v], want [2025-02-01, 2025-02-28]", start, end)
	}

	start, end = PriorMonth(date(2025, 1, 10))
	if !start.Equal(date(2024, 12, 1)) || !end.Equal(date(2024, 12, 31)) {
		t.Fatalf("PriorMonth(2025-01-10) = [%v, %v], want [2024-12-01, 2024-12-31]", start, end)
	}
}
