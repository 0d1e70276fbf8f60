package experience

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestParseValidYears(t *testing.T) {
	for year := 1901; year <= fixedNow.Year(); year++ {
		est := Parse(fmt.Sprintf("%04d", year), fixedNow)
		if est.Status != Computed {
			t.Fatalf("year %d: expected computed, got %s", year, est.Status)
		}
		if est.Years != fixedNow.Year()-year {
			t.Fatalf("year %d: expected %d years, got %d", year, fixedNow.Year()-year, est.Years)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		status    Status
		years     int
		annotated string
	}{
		{"month slash year", "05/2018", Computed, 7, "7 years (approx.)"},
		{"bare year", "2018", Computed, 7, "7 years (approx.)"},
		{"padded", "  2018 ", Computed, 7, "7 years (approx.)"},
		{"slash with spaces", "May / 2018", Computed, 7, "7 years (approx.)"},
		{"singular", "2024", Computed, 1, "1 year (approx.)"},
		{"current year", "2025", Computed, 0, "0 years (approx.)"},
		{"letters", "abcd", Unparseable, 0, "(Could not reliably calculate years of experience from input: 'abcd')"},
		{"future", "2030", Unparseable, 0, ""},
		{"too old", "1900", Unparseable, 0, ""},
		{"two slashes", "01/05/2018", Unparseable, 0, ""},
		{"short year", "05/18", Unparseable, 0, ""},
		{"five digits", "20180", Unparseable, 0, ""},
		{"signed", "+201", Unparseable, 0, ""},
		{"empty", "", NotProvided, 0, "Not applicable (no start date provided)."},
		{"whitespace", " \t\n", NotProvided, 0, "Not applicable (no start date provided)."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := Parse(tt.input, fixedNow)
			assert.Equal(t, tt.status, est.Status)
			assert.Equal(t, tt.input, est.Raw)
			if tt.status == Computed {
				assert.Equal(t, tt.years, est.Years)
			}
			if tt.annotated != "" {
				assert.Equal(t, tt.annotated, est.Annotation())
			}
		})
	}
}

func TestUnparseableEchoesRawInput(t *testing.T) {
	est := Parse("  sometime in 2019?? ", fixedNow)
	assert.Equal(t, Unparseable, est.Status)
	assert.Contains(t, est.Annotation(), "'  sometime in 2019?? '")
}

func TestContextLines(t *testing.T) {
	t.Run("not provided", func(t *testing.T) {
		got := Parse("   ", fixedNow).ContextLines()
		want := "*   **Career Start Date:** Not provided.\n" +
			"*   **Approximate Years of Experience:** Not applicable (no start date provided).\n"
		assert.Equal(t, want, got)
	})

	t.Run("computed", func(t *testing.T) {
		got := Parse(" 05/2018 ", fixedNow).ContextLines()
		want := "*   **Career Start Date Provided:** 05/2018\n" +
			"*   **Approximate Years of Experience:** 7 years (approx.)\n"
		assert.Equal(t, want, got)
	})

	t.Run("unparseable differs from not provided", func(t *testing.T) {
		got := Parse("abcd", fixedNow).ContextLines()
		assert.Contains(t, got, "Career Start Date Provided:** abcd")
		assert.NotContains(t, got, "Not provided.")
	})
}
