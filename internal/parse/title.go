package parse

import (
	"errors"
	"fmt"
	"strings"
)

// TitleSeparator joins the segments of an upstream section title.
const TitleSeparator = " - "

const titleSegments = 4

// ErrMalformedTitle is returned when a section title does not have four segments.
var ErrMalformedTitle = errors.New("malformed section title")

// ParsedTitle holds the structured data parsed from a section title such as
// "Intro to Systems - Lecture - CS301 - 002".
type ParsedTitle struct {
	CourseTitle   string
	CourseNumber  string
	SectionNumber string
}

// ParseTitle splits a raw section title into its course title, course number
// and section number. The second segment (schedule type) is discarded.
func ParseTitle(raw string) (ParsedTitle, error) {
	parts := strings.Split(raw, TitleSeparator)
	if len(parts) != titleSegments {
		return ParsedTitle{}, fmt.Errorf("%w: %q has %d segments, want %d", ErrMalformedTitle, raw, len(parts), titleSegments)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	parsed := ParsedTitle{
		CourseTitle:   parts[0],
		CourseNumber:  parts[2],
		SectionNumber: parts[3],
	}
	if parsed.CourseTitle == "" || parsed.CourseNumber == "" || parsed.SectionNumber == "" {
		return ParsedTitle{}, fmt.Errorf("%w: %q has an empty segment", ErrMalformedTitle, raw)
	}
	return parsed, nil
}
