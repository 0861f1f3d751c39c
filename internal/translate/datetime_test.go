package translate

import (
	"testing"
	"time"
)

func TestParseCatalogTime(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectTime  time.Time
		expectError bool
	}{
		{
			name:       "sentinel name field",
			input:      "20240101T101421",
			expectTime: time.Date(2024, 1, 1, 10, 14, 21, 0, time.UTC),
		},
		{
			name:       "landsat date",
			input:      "20220103",
			expectTime: time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "m2m temporal coverage",
			input:      "2022-01-03 14:02:11-05",
			expectTime: time.Date(2022, 1, 3, 19, 2, 11, 0, time.UTC),
		},
		{
			name:       "RFC3339 with offset",
			input:      "2023-06-15T16:30:45+02:00",
			expectTime: time.Date(2023, 6, 15, 14, 30, 45, 0, time.UTC),
		},
		{
			name:       "surrounding whitespace",
			input:      "  2023-06-15  ",
			expectTime: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{name: "empty", input: "", expectError: true},
		{name: "garbage", input: "yesterday", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCatalogTime(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.expectTime) {
				t.Errorf("Expected %v, got %v", tt.expectTime, got)
			}
			if got.Location() != time.UTC {
				t.Errorf("Expected UTC location, got %v", got.Location())
			}
		})
	}
}

func TestFormatSTACTime(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	got := FormatSTACTime(time.Date(2024, 1, 1, 11, 0, 0, 0, cet))
	if got != "2024-01-01T10:00:00Z" {
		t.Errorf("Expected UTC conversion, got %s", got)
	}
}

func TestParseDateTimeInterval(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2023, 6, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name      string
		input     string
		wantStart *time.Time
		wantEnd   *time.Time
		wantErr   bool
	}{
		{name: "empty", input: ""},
		{name: "single datetime", input: "2023-06-15T00:00:00Z", wantStart: ptr(day(15)), wantEnd: ptr(day(15))},
		{name: "closed dates", input: "2023-06-01/2023-06-30", wantStart: ptr(day(1)), wantEnd: ptr(day(30))},
		{name: "open start", input: "../2023-06-30", wantEnd: ptr(day(30))},
		{name: "open end", input: "2023-06-01/..", wantStart: ptr(day(1))},
		{name: "empty end", input: "2023-06-01/", wantStart: ptr(day(1))},
		{name: "whitespace", input: " 2023-06-01 / 2023-06-30 ", wantStart: ptr(day(1)), wantEnd: ptr(day(30))},
		{name: "bad single", input: "June", wantErr: true},
		{name: "bad start", input: "x/2023-06-30", wantErr: true},
		{name: "bad end", input: "2023-06-01/y", wantErr: true},
		{name: "too many parts", input: "2023-06-01/2023-06-02/2023-06-03", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseDateTimeInterval(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			checkTime(t, "start", start, tt.wantStart)
			checkTime(t, "end", end, tt.wantEnd)
		})
	}
}

func TestSearchWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	start, end, err := SearchWindow("2024-01-10", now)
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) || !end.Equal(start.AddDate(0, 0, 1)) {
		t.Errorf("single date window = %v .. %v", start, end)
	}

	_, end, err = SearchWindow("2024-01-10/..", now)
	if err != nil || !end.Equal(now) {
		t.Errorf("open end should run to now, got %v, %v", end, err)
	}

	start, end, err = SearchWindow("2024-01-10T10:00:00Z", now)
	if err != nil || end.Sub(start) != time.Second {
		t.Errorf("instant window = %v .. %v, %v", start, end, err)
	}

	if _, _, err := SearchWindow("../2024-01-10", now); err == nil {
		t.Error("expected error without start")
	}
	if _, _, err := SearchWindow("2024-02-01/2024-01-01", now); err == nil {
		t.Error("expected error for reversed interval")
	}
}

func ptr(t time.Time) *time.Time { return &t }

func checkTime(t *testing.T, label string, got, want *time.Time) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("Expected nil %s, got %v", label, *got)
	case want != nil && got == nil:
		t.Errorf("Expected %s %v, got nil", label, *want)
	case want != nil && !got.Equal(*want):
		t.Errorf("Expected %s %v, got %v", label, *want, *got)
	}
}
