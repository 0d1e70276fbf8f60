// Package experience turns a free-form career start string into an
// approximate years-of-experience figure for prompt embedding.
package experience

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status tags the outcome of parsing a career start input.
type Status int

const (
	NotProvided Status = iota
	Computed
	Unparseable
)

func (s Status) String() string {
	switch s {
	case NotProvided:
		return "not_provided"
	case Computed:
		return "computed"
	case Unparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// minYear is exclusive.
const minYear = 1900

// Estimate is the result of Parse. Years is only meaningful when Status is
// Computed; Raw always holds the untouched input.
type Estimate struct {
	Status    Status
	Raw       string
	StartYear int
	Years     int
}

// Parse never fails: every input maps to one of the three statuses.
//
// Accepted shapes are "YYYY" and "<anything>/YYYY" (e.g. "05/2018"). The year
// must satisfy 1900 < year <= now.Year().
func Parse(input string, now time.Time) Estimate {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Estimate{Status: NotProvided, Raw: input}
	}

	candidate := trimmed
	if strings.Contains(trimmed, "/") {
		parts := strings.Split(trimmed, "/")
		if len(parts) != 2 {
			return unparseable(input)
		}
		candidate = strings.TrimSpace(parts[1])
	}

	year, ok := fourDigitYear(candidate)
	if !ok {
		return unparseable(input)
	}

	currentYear := now.Year()
	if year <= minYear || year > currentYear {
		return unparseable(input)
	}

	return Estimate{
		Status:    Computed,
		Raw:       input,
		StartYear: year,
		Years:     currentYear - year,
	}
}

func unparseable(raw string) Estimate {
	return Estimate{Status: Unparseable, Raw: raw}
}

func fourDigitYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return year, true
}

// Annotation renders the years-of-experience value for the prompt.
func (e Estimate) Annotation() string {
	switch e.Status {
	case Computed:
		unit := "years"
		if e.Years == 1 {
			unit = "year"
		}
		return fmt.Sprintf("%d %s (approx.)", e.Years, unit)
	case Unparseable:
		return fmt.Sprintf("(Could not reliably calculate years of experience from input: '%s')", e.Raw)
	default:
		return "Not applicable (no start date provided)."
	}
}

// ContextLines renders the two contextual information bullets of the
// tailoring prompt, each terminated by a newline.
func (e Estimate) ContextLines() string {
	var b strings.Builder
	if e.Status == NotProvided {
		b.WriteString("*   **Career Start Date:** Not provided.\n")
	} else {
		b.WriteString("*   **Career Start Date Provided:** ")
		b.WriteString(strings.TrimSpace(e.Raw))
		b.WriteString("\n")
	}
	b.WriteString("*   **Approximate Years of Experience:** ")
	b.WriteString(e.Annotation())
	b.WriteString("\n")
	return b.String()
}
