package date

import (
	"encoding/json"
	"testing"
	"time"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
		// tests also checks that the property remain true
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestOf(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("no tz database: %v", err)
	}
	// 23:30 UTC is already the next day in Paris.
	instant := time.Date(2024, time.March, 14, 23, 30, 0, 0, time.UTC)
	if got, want := Of(instant), New(2024, time.March, 14); got != want {
		t.Errorf("Of(utc) = %v, want %v", got, want)
	}
	if got, want := Of(instant.In(paris)), New(2024, time.March, 15); got != want {
		t.Errorf("Of(paris) = %v, want %v", got, want)
	}
}

func TestAddMonths(t *testing.T) {
	testCases := []struct {
		in   string
		n    int
		want string
	}{
		{"2024-01-15", 1, "2024-02-15"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-12-31", 2, "2025-02-28"},
		{"2024-03-31", -1, "2024-02-29"},
		{"2024-01-15", 12, "2025-01-15"},
	}
	for _, tc := range testCases {
		if got := MustParse(tc.in).AddMonths(tc.n); got != MustParse(tc.want) {
			t.Errorf("%s.AddMonths(%d) = %v, want %v", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestAddYears(t *testing.T) {
	testCases := []struct {
		in   string
		n    int
		want string
	}{
		{"2024-02-29", 1, "2025-02-28"},
		{"2024-02-29", 4, "2028-02-29"},
		{"2023-06-30", 1, "2024-06-30"},
	}
	for _, tc := range testCases {
		if got := MustParse(tc.in).AddYears(tc.n); got != MustParse(tc.want) {
			t.Errorf("%s.AddYears(%d) = %v, want %v", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestClamped(t *testing.T) {
	if got, want := Clamped(2024, 13, 31), New(2025, time.January, 31); got != want {
		t.Errorf("Clamped(2024, 13, 31) = %v, want %v", got, want)
	}
	if got, want := Clamped(2025, time.February, 30), New(2025, time.February, 28); got != want {
		t.Errorf("Clamped(2025, 2, 30) = %v, want %v", got, want)
	}
}

func TestParse(t *testing.T) {
	today := Today()
	testCases := []struct {
		in   string
		want Date
	}{
		{"2025-7-1", New(2025, time.July, 1)},
		{"2025-07-01", New(2025, time.July, 1)},
		{"2024-04-15T10:00:00Z", New(2024, time.April, 15)},
		{"0d", today},
		{"-1d", today.Add(-1)},
		{"+2w", today.Add(14)},
		{"-1m", today.AddMonths(-1)},
		{"-1y", today.AddYears(-1)},
	}
	for _, tc := range testCases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := Parse("not a date"); err == nil {
		t.Errorf("Parse(%q) expected an error", "not a date")
	}
}

func TestJSON(t *testing.T) {
	type doc struct {
		On   Date `json:"on"`
		Last Date `json:"last"`
	}
	in := doc{On: New(2024, time.February, 29)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got, want := string(data), `{"on":"2024-02-29","last":""}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
	var out doc
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("Unmarshal = %+v, want %+v", out, in)
	}
	if !out.Last.IsZero() {
		t.Errorf("Last.IsZero() = false, want true")
	}
}
