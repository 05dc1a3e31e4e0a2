package config

import (
	goerrors "errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	numeral       = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?$`)
	exponentPart  = regexp.MustCompile(`[eE][+-]?\d+$`)
	leadingZeros  = regexp.MustCompile(`^[+-]?0*`)
	trailingZeros = regexp.MustCompile(`0+$`)
	redundantFrac = regexp.MustCompile(`\.0*$`)
	bareFraction  = regexp.MustCompile(`^(-?)\.([^.]*)$`)
)

// DateLayouts lists the layouts CoerceDate accepts, tried in order.
var DateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateTime,
	time.DateOnly,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.RFC822,
	time.RFC822Z,
	time.ANSIC,
	time.UnixDate,
	time.RubyDate,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// Coerce converts s to a bool, float64 or time.Time when the conversion
// is lossless, trying them in that order. Anything else is returned as
// the original string.
func Coerce(s string) any {
	if b, ok := CoerceBool(s); ok {
		return b
	}
	if n, ok := CoerceNumber(s); ok {
		return n
	}
	if d, ok := CoerceDate(s); ok {
		return d
	}
	return s
}

// CoerceBool matches "true" and "false" in any letter case.
func CoerceBool(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return false, false
}

// CoerceNumber parses s as a float64 only when s is a clean numeral,
// meaning that printing the parsed value gives back the same digits.
// "3.0", "-0.50" and ".5" qualify, "007", " 3000 " and "1e400" do not.
func CoerceNumber(s string) (float64, bool) {
	if !numeral.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !goerrors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if f == 0 {
		return 0, true
	}
	if math.IsInf(f, 0) {
		return 0, false
	}

	if strings.ContainsAny(s, "eE") {
		if significantDigits(s) != significantDigits(formatNumber(f)) {
			return 0, false
		}
		return f, true
	}

	out := formatNumber(f)
	if strings.Contains(out, "e") {
		return f, true
	}
	if out != normalizeDecimal(s) {
		return 0, false
	}
	return f, true
}

// CoerceDate parses s with the first matching entry of DateLayouts.
func CoerceDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatNumber prints f the way a JSON document would carry it: plain
// notation between 1e-6 and 1e21, exponent notation outside.
func formatNumber(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func significantDigits(s string) string {
	s = exponentPart.ReplaceAllString(s, "")
	s = strings.Replace(s, ".", "", 1)
	s = trailingZeros.ReplaceAllString(s, "")
	return leadingZeros.ReplaceAllString(s, "")
}

// normalizeDecimal canonicalizes a plain numeral for comparison. Leading
// zeros in the integer part are kept on purpose so "007" never matches.
func normalizeDecimal(s string) string {
	s = strings.TrimPrefix(s, "+")
	s = redundantFrac.ReplaceAllString(s, "")
	s = bareFraction.ReplaceAllString(s, "${1}0.$2")
	if strings.Contains(s, ".") {
		s = trailingZeros.ReplaceAllString(s, "")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
