package ingest

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		def  float64
		want float64
	}{
		{"plain", "123.45", 0, 123.45},
		{"currency and separators", "$1,234.56 USD", 0, 1234.56},
		{"negative", "-50.00", 0, -50},
		{"surrounding text", "fee: 12.5 (approx)", 0, 12.5},
		{"empty uses default", "", 1.0, 1.0},
		{"whitespace uses default", "   ", 1.0, 1.0},
		{"no digits uses default", "N/A", 2.5, 2.5},
		{"integer", "700", 0, 700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAmount(tt.in, tt.def); got != tt.want {
				t.Errorf("ParseAmount(%q, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-15 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"15.01.2024 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"15.01.2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"15/01/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		// Day 15 is out of range for the month position, so the US layout
		// picks this one up.
		{"01/15/2024 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"not-a-date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDayFirstBeatsMonthFirst(t *testing.T) {
	// 05/03 is ambiguous; day-first layouts are tried before US layouts.
	got, ok := ParseDate("05/03/2024")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate(\"05/03/2024\") = %v, want %v", got, want)
	}
}

func TestSubunitAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"5000 USC", 50},
		{"5000 usc", 50},
		{"50 USD", 50},
		{"50", 50},
		{"", 0},
	}
	for _, tt := range tests {
		if got := SubunitAmount(tt.in); got != tt.want {
			t.Errorf("SubunitAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsSubunit(t *testing.T) {
	if !IsSubunit("1000 USC") {
		t.Error("expected USC suffix to be detected")
	}
	if !IsSubunit("usc 1000") {
		t.Error("detection is case-insensitive and position-independent")
	}
	if IsSubunit("1000 USD") {
		t.Error("USD is not a subunit marker")
	}
}
