package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Currency tokens appear as "Rs. 1,00,000/-", "₹50,000", "1,020" and
// similar. Canonical form is the bare number: separators stripped,
// no symbol, no trailing "/-".
var (
	reCurrencyToken = regexp.MustCompile(`(?i)(?:Rs\.?\s*|₹\s*)?\b\d{1,3}(?:,\d{2,3})+(?:\.\d+)?(?:\s*/-)?`)
	reSymbolPrefix  = regexp.MustCompile(`(?i)^(?:Rs\.?|₹)\s*`)
	reBareSymbol    = regexp.MustCompile(`(?i)(?:Rs\.?|₹)\s*(\d)`)
	reTrailingDash  = regexp.MustCompile(`(\d)\s*/-`)
	reNonNumeric    = regexp.MustCompile(`[^\d.]`)
)

// NormalizeAmounts rewrites currency tokens on a line into bare
// numbers. Indian-style grouping (1,00,000) is handled the same as
// western grouping.
func NormalizeAmounts(s string) string {
	s = reCurrencyToken.ReplaceAllStringFunc(s, func(tok string) string {
		t := reSymbolPrefix.ReplaceAllString(strings.TrimSpace(tok), "")
		t = strings.ReplaceAll(t, ",", "")
		t = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "/-"))
		return t
	})
	s = reBareSymbol.ReplaceAllString(s, "$1")
	s = reTrailingDash.ReplaceAllString(s, "$1")
	return s
}

// ParseAmount converts a currency token to a float. Returns false for
// tokens with no usable digits.
func ParseAmount(raw string) (float64, bool) {
	text := strings.ToLower(raw)
	text = strings.ReplaceAll(text, "rs.", "")
	text = strings.ReplaceAll(text, "rs", "")
	text = strings.ReplaceAll(text, "₹", "")
	text = strings.ReplaceAll(text, ",", "")
	text = strings.ReplaceAll(text, "/-", "")
	clean := reNonNumeric.ReplaceAllString(text, "")
	if clean == "" || clean == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
