package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	askingPricePattern = regexp.MustCompile(`(?i)asking\s+price\s*\$?\s*([\d,]+)`)
	dollarPattern      = regexp.MustCompile(`\$\s*([\d,]+)`)
	bareNumberPattern  = regexp.MustCompile(`\b(\d{1,3}(?:,\d{3})+|\d{4,})\b`)
)

// ExtractAskingPrice parses a free-text price field like
// "Asking price $599,900" or "$599,900" into a numeric asking price.
// Three tiers are tried in order, first match wins:
//
//  1. a number following the phrase "asking price" (>= 1000)
//  2. the first $-prefixed number anywhere in the text (>= 1000)
//  3. the first standalone run of 4+ digits (>= 10000)
//
// Returns false when no tier yields a confident price.
func ExtractAskingPrice(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	if strings.Contains(strings.ToLower(text), "asking price") {
		if m := askingPricePattern.FindStringSubmatch(text); m != nil {
			if v, ok := parseAmount(m[1]); ok && v >= MinAskingPriceWithMarker {
				return v, true
			}
		}
	}

	if m := dollarPattern.FindStringSubmatch(text); m != nil {
		if v, ok := parseAmount(m[1]); ok && v >= MinAskingPriceWithMarker {
			return v, true
		}
	}

	if m := bareNumberPattern.FindStringSubmatch(text); m != nil {
		if v, ok := parseAmount(m[1]); ok && v >= MinAskingPriceBareNumber {
			return v, true
		}
	}

	return 0, false
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
