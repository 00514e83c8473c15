// internal/price/parser.go

// Package price turns the text of a price element into a number.
package price

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// ErrNoPrice is returned when the text holds no decimal digits at all.
var ErrNoPrice = stderrors.New("no numeric price found")

// numberPattern matches the first run of decimal digits of any script, with an
// optional fractional part. Superscripts and fractions are not decimal digits.
var numberPattern = regexp.MustCompile(`\p{Nd}+(?:\.\p{Nd}+)?`)

// Parse extracts the first number from raw. Whitespace is removed before matching so
// thousand separators written as spaces ("1 500") collapse into one number.
func Parse(raw string) (float64, error) {
	cleaned := Clean(raw)

	match := numberPattern.FindString(cleaned)
	if match == "" {
		return 0, errors.New(errors.KindParse, "parse price", fmt.Errorf("%w in %q", ErrNoPrice, truncate(raw, 80)))
	}

	value, err := strconv.ParseFloat(toASCII(match), 64)
	if err != nil {
		return 0, errors.New(errors.KindParse, "parse price", err)
	}
	return value, nil
}

// Clean drops every whitespace rune.
func Clean(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// toASCII rewrites decimal digits of any script ("١٢", "１２") as ASCII digits.
func toASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || !unicode.IsDigit(r) {
			return r
		}
		return '0' + digitValue(r)
	}, s)
}

// digitValue relies on every Nd block being a run of ten starting at zero.
func digitValue(r rune) rune {
	n := rune(0)
	for unicode.IsDigit(r - n - 1) {
		n++
	}
	return n % 10
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
