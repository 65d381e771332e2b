package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

// Vintage years are accepted in [1900, 2039].
var (
	vintageRe     = regexp.MustCompile(`\b(19\d{2}|20[0-3]\d)\b`)
	caseConfigRe  = regexp.MustCompile(`^\s*(\d+)\s*[xX×]`)
	spaceRe       = regexp.MustCompile(`\s{2,}`)
	emptyParensRe = regexp.MustCompile(`\(\s*\)`)
)

// ExtractVintage infers a 4-digit vintage from a product name when no
// vintage column is mapped. A year at the very start of the string wins;
// otherwise the last occurring year is taken. The year and its adjacent
// punctuation are stripped from the returned name. Names without a
// qualifying year ("Champagne NV") come back unchanged with a nil vintage.
func ExtractVintage(name string) (*string, string) {
	matches := vintageRe.FindAllStringIndex(name, -1)
	if len(matches) == 0 {
		return nil, name
	}

	loc := matches[len(matches)-1]
	if strings.TrimSpace(name[:matches[0][0]]) == "" {
		loc = matches[0]
	}

	vintage := name[loc[0]:loc[1]]
	cleaned := name[:loc[0]] + name[loc[1]:]
	cleaned = emptyParensRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(cleaned, " ,-–")
	cleaned = strings.TrimSuffix(cleaned, ",")
	cleaned = spaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	return &vintage, cleaned
}

// ParseCaseConfig reads the leading integer of a case-format cell such as
// "6x75cl" or "12 x 750ml". Unparseable input falls back to the session
// default.
func ParseCaseConfig(s string, fallback int) int {
	m := caseConfigRe.FindStringSubmatch(s)
	if m == nil {
		// A bare integer ("6") is also accepted.
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			return n
		}
		return fallback
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// ParsePrice reads a numeric cell, tolerating currency symbols, commas and
// surrounding whitespace. Returns false when no number survives.
func ParsePrice(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimLeft(cleaned, "£$€ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
