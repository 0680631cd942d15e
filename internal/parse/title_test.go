package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTitle(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected ParsedTitle
	}{
		{
			name:     "Standard title",
			input:    "Intro to Systems - Lecture - CS301 - 002",
			expected: ParsedTitle{CourseTitle: "Intro to Systems", CourseNumber: "CS301", SectionNumber: "002"},
		},
		{
			name:     "Extra whitespace is trimmed",
			input:    "  Calculus I  - Lab -  MATH 151 -  L01 ",
			expected: ParsedTitle{CourseTitle: "Calculus I", CourseNumber: "MATH 151", SectionNumber: "L01"},
		},
		{
			name:     "Hyphen without spaces stays inside a segment",
			input:    "Pre-Calculus - Lecture - MATH-100 - 001",
			expected: ParsedTitle{CourseTitle: "Pre-Calculus", CourseNumber: "MATH-100", SectionNumber: "001"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseTitle(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, parsed)
		})
	}
}

func TestParseTitle_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"Intro to Systems",
		"Intro to Systems - Lecture - CS301",
		"A - B - C - D - E",
		"Intro - Lecture -  - 002",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTitle(input)
			assert.ErrorIs(t, err, ErrMalformedTitle)
		})
	}
}
