package dates

import (
	"testing"
	"time"
)

func TestFormatZeroPads(t *testing.T) {
	d := time.Date(2024, time.March, 5, 15, 4, 0, 0, time.Local)
	if got := Format(d); got != "2024-03-05" {
		t.Fatalf("Format = %q, want 2024-03-05", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	start := time.Date(2023, time.December, 25, 0, 0, 0, 0, time.Local)
	for i := 0; i < 800; i++ {
		d := start.AddDate(0, 0, i)
		got, err := Parse(Format(d))
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(d) {
			t.Fatalf("Parse(Format(%v)) = %v", d, got)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{"", "2024-13-01", "2024-02-30", "yesterday", "2024/01/01"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		day  string
		n    int
		want string
	}{
		{"2024-06-03", -1, "2024-06-02"},
		{"2024-06-01", -1, "2024-05-31"},
		{"2024-01-01", -1, "2023-12-31"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2023-02-28", 1, "2023-03-01"},
		{"2024-12-31", 1, "2025-01-01"},
		{"2024-03-30", 2, "2024-04-01"},
		{"2024-06-15", 0, "2024-06-15"},
	}
	for _, tt := range tests {
		got, err := AddDays(tt.day, tt.n)
		if err != nil {
			t.Fatalf("AddDays(%q, %d): %v", tt.day, tt.n, err)
		}
		if got != tt.want {
			t.Errorf("AddDays(%q, %d) = %q, want %q", tt.day, tt.n, got, tt.want)
		}
	}

	if _, err := AddDays("not-a-date", 1); err == nil {
		t.Fatal("expected error for a malformed date")
	}
}

func TestMonthID(t *testing.T) {
	if got := MonthID(time.Date(2024, time.June, 30, 23, 0, 0, 0, time.Local)); got != "2024-06" {
		t.Fatalf("MonthID = %q", got)
	}
	if got := MonthOf("2024-06-30"); got != "2024-06" {
		t.Fatalf("MonthOf = %q", got)
	}
	if got := MonthOf("2024"); got != "" {
		t.Fatalf("MonthOf(2024) = %q, want empty", got)
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		month string
		n     int
		want  string
	}{
		{"2024-12", 1, "2025-01"},
		{"2025-01", -1, "2024-12"},
		{"2024-01", 13, "2025-02"},
		{"2024-05", -17, "2022-12"},
		{"2024-06", 0, "2024-06"},
	}
	for _, tt := range tests {
		got, err := AddMonths(tt.month, tt.n)
		if err != nil {
			t.Fatalf("AddMonths(%q, %d): %v", tt.month, tt.n, err)
		}
		if got != tt.want {
			t.Errorf("AddMonths(%q, %d) = %q, want %q", tt.month, tt.n, got, tt.want)
		}
	}
}

func TestAddMonthsInverse(t *testing.T) {
	months := []string{"2020-01", "2023-12", "2024-02", "1999-07"}
	for _, m := range months {
		for k := -30; k <= 30; k++ {
			fwd, err := AddMonths(m, k)
			if err != nil {
				t.Fatal(err)
			}
			back, err := AddMonths(fwd, -k)
			if err != nil {
				t.Fatal(err)
			}
			if back != m {
				t.Fatalf("AddMonths(AddMonths(%q, %d), %d) = %q", m, k, -k, back)
			}
		}
	}
}

func TestMonthRangeAndDaysInMonth(t *testing.T) {
	tests := []struct {
		month string
		days  int
	}{
		{"2024-02", 29},
		{"2023-02", 28},
		{"1900-02", 28},
		{"2000-02", 29},
		{"2024-04", 30},
		{"2024-12", 31},
	}
	for _, tt := range tests {
		n, err := DaysInMonth(tt.month)
		if err != nil {
			t.Fatal(err)
		}
		if n != tt.days {
			t.Errorf("DaysInMonth(%q) = %d, want %d", tt.month, n, tt.days)
		}

		first, last, err := MonthRange(tt.month)
		if err != nil {
			t.Fatal(err)
		}
		if first.Day() != 1 || last.Day() != tt.days {
			t.Errorf("MonthRange(%q) = day %d..%d", tt.month, first.Day(), last.Day())
		}
		if MonthID(first) != tt.month || MonthID(last) != tt.month {
			t.Errorf("MonthRange(%q) left the month: %v..%v", tt.month, first, last)
		}
	}

	if _, err := DaysInMonth("2024-13"); err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestToday(t *testing.T) {
	c := FixedClock(time.Date(2024, time.June, 3, 9, 30, 0, 0, time.Local))
	if got := Today(c); got != "2024-06-03" {
		t.Fatalf("Today = %q, want 2024-06-03", got)
	}
}
