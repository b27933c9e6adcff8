package hours

import (
	"sort"
	"testing"
	"time"
)

func TestDateHourString(t *testing.T) {
	dh := DateHour{Date: "08/01/2023", Hour: 5}
	expected := "08/01/2023 05:00"
	if s := dh.String(); s != expected {
		t.Errorf("String() expected %q, got %q", expected, s)
	}

	dh = DateHour{Date: "08/01/2023", Hour: 95}
	expected = "08/01/2023 95:00"
	if s := dh.String(); s != expected {
		t.Errorf("String() expected %q, got %q", expected, s)
	}
}

func TestDateKey(t *testing.T) {
	tests := []struct {
		name     string
		end      time.Time
		expected string
	}{
		{
			name:     "period ending at utc midnight belongs to the day before",
			end:      time.Date(2023, 8, 2, 0, 0, 0, 0, time.UTC),
			expected: "08/01/2023",
		},
		{
			name:     "danish day ending at 22 utc",
			end:      time.Date(2023, 8, 1, 22, 0, 0, 0, time.UTC),
			expected: "08/01/2023",
		},
		{
			name:     "non utc end is converted",
			end:      time.Date(2023, 8, 2, 0, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
			expected: "08/01/2023",
		},
		{
			name:     "year boundary",
			end:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: "12/31/2023",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateKey(tt.end); got != tt.expected {
				t.Errorf("DateKey() expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFromPosition(t *testing.T) {
	end := time.Date(2023, 8, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		position string
		expected string
		wantErr  bool
	}{
		{position: "1", expected: "08/01/2023 00:00"},
		{position: "10", expected: "08/01/2023 09:00"},
		{position: "24", expected: "08/01/2023 23:00"},
		{position: "0", wantErr: true},
		{position: "-3", wantErr: true},
		{position: "x", wantErr: true},
		{position: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			dh, err := FromPosition(end, tt.position)
			if tt.wantErr {
				if err == nil {
					t.Errorf("FromPosition(%q) expected an error", tt.position)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromPosition(%q) unexpected error: %v", tt.position, err)
			}
			if dh.String() != tt.expected {
				t.Errorf("FromPosition(%q) expected %q, got %q", tt.position, tt.expected, dh.String())
			}
		})
	}
}

func TestDateHourCompareIsChronological(t *testing.T) {
	keys := []DateHour{
		{Date: "01/01/2024", Hour: 0},
		{Date: "12/31/2023", Hour: 23},
		{Date: "02/01/2023", Hour: 5},
		{Date: "12/31/2023", Hour: 1},
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })

	expected := []string{"02/01/2023 05:00", "12/31/2023 01:00", "12/31/2023 23:00", "01/01/2024 00:00"}
	for i, k := range keys {
		if k.String() != expected[i] {
			t.Errorf("position %d expected %q, got %q", i, expected[i], k.String())
		}
	}

	if c := (DateHour{Date: "08/01/2023", Hour: 3}).Compare(DateHour{Date: "08/01/2023", Hour: 3}); c != 0 {
		t.Errorf("Compare() of equal keys expected 0, got %d", c)
	}
}

func TestDateHourIsZero(t *testing.T) {
	var dh DateHour
	if !dh.IsZero() {
		t.Errorf("expected a zero value DateHour to be zero")
	}
	dh = DateHour{Date: "01/01/2025", Hour: 0}
	if dh.IsZero() {
		t.Errorf("expected a non-zero DateHour (non-empty Date) not to be zero")
	}
}

func TestFromTime(t *testing.T) {
	tm := time.Date(2025, time.January, 1, 15, 30, 0, 0, time.UTC)
	dh := FromTime(tm)
	expected := DateHour{Date: "01/01/2025", Hour: 15}
	if dh != expected {
		t.Errorf("FromTime() expected %+v, got %+v", expected, dh)
	}

	if !FromTime(time.Time{}).IsZero() {
		t.Errorf("FromTime() with zero time expected a zero DateHour")
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key      string
		expected DateHour
		wantErr  bool
	}{
		{key: "08/01/2023 07:00", expected: DateHour{Date: "08/01/2023", Hour: 7}},
		{key: "08/01/2023", expected: DateHour{Date: "08/01/2023"}},
		{key: "08/01/2023 95:00", expected: DateHour{Date: "08/01/2023", Hour: 95}},
		{key: "2023-08-01", wantErr: true},
		{key: "08/01/2023 07:30", wantErr: true},
		{key: "08/01/2023 xx:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			dh, err := ParseKey(tt.key)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseKey(%q) expected an error", tt.key)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey(%q) unexpected error: %v", tt.key, err)
			}
			if dh != tt.expected {
				t.Errorf("ParseKey(%q) expected %+v, got %+v", tt.key, tt.expected, dh)
			}
		})
	}
}

func TestFromIsoDate(t *testing.T) {
	got, err := FromIsoDate("2023-08-01")
	if err != nil {
		t.Fatalf("FromIsoDate() unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("FromIsoDate() got %v", got)
	}
	if IsoDate(got) != "2023-08-01" {
		t.Errorf("IsoDate() got %q", IsoDate(got))
	}

	if _, err := FromIsoDate("08/01/2023"); err == nil {
		t.Errorf("FromIsoDate() expected an error for a non iso date")
	}
}
