package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"nz_propper/models"
)

// Estimate-range patterns, tried in order. The labelled ones anchor on the
// valuation widget's heading; the generic one is a last resort and must not
// swallow the weekly rent range, which is extracted separately.
var estimatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)HomesEstimate[^$]*\$?\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)\s*-\s*\$?\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)`),
	regexp.MustCompile(`(?i)Property estimate[^$]*\$?\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)\s*-\s*\$?\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)`),
	regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)\s*-\s*\$\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)`),
}

var rentRangePattern = regexp.MustCompile(`\$?\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)\s*-\s*\$?\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)\s*/\s*week`)

var soldPricePattern = regexp.MustCompile(`(?i)\bsold\b[^$]{0,120}\$\s*([\d,]+(?:\.\d+)?)\s*([KMkm]?)`)

// ExtractPageText flattens a listing page into plain text for pattern
// matching. Script and style bodies are dropped first so inline JSON blobs
// don't read as price ranges.
func ExtractPageText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Find("body").Text(), nil
}

// ParseSnapshot extracts the market snapshot from a listing page's text:
// the valuation estimate range, comparable sold prices, and the weekly
// rent range. Anything it can't find is simply absent.
func ParseSnapshot(pageText string, now time.Time) *models.MarketSnapshot {
	snap := &models.MarketSnapshot{FetchedAt: now}

	// Rent first, so the generic estimate pattern can skip rent matches.
	var rentMatch []int
	if loc := rentRangePattern.FindStringSubmatchIndex(pageText); loc != nil {
		rentMatch = loc
		low, okLow := parseSuffixedAmount(group(pageText, loc, 1), group(pageText, loc, 2))
		high, okHigh := parseSuffixedAmount(group(pageText, loc, 3), group(pageText, loc, 4))
		if okLow && okHigh && low > 0 {
			snap.RentRange = orderedRange(low, high)
		}
	}

	snap.EstimateRange = findEstimateRange(pageText, rentMatch)
	snap.SoldPrices = findSoldPrices(pageText)

	return snap
}

func findEstimateRange(pageText string, rentMatch []int) *models.PriceRange {
	for i, pattern := range estimatePatterns {
		loc := pattern.FindStringSubmatchIndex(pageText)
		if loc == nil {
			continue
		}
		// The generic pattern may land on the rent range; skip that span.
		if i == len(estimatePatterns)-1 && rentMatch != nil && loc[0] >= rentMatch[0] && loc[0] < rentMatch[1] {
			continue
		}
		low, okLow := parseSuffixedAmount(group(pageText, loc, 1), group(pageText, loc, 2))
		high, okHigh := parseSuffixedAmount(group(pageText, loc, 3), group(pageText, loc, 4))
		if !okLow || !okHigh || low <= 0 {
			continue
		}
		return orderedRange(low, high)
	}
	return nil
}

// findSoldPrices collects comparable sold prices and de-duplicates them at
// the source, keeping first-seen order.
func findSoldPrices(pageText string) []float64 {
	matches := soldPricePattern.FindAllStringSubmatch(pageText, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[float64]bool, len(matches))
	var prices []float64
	for _, m := range matches {
		v, ok := parseSuffixedAmount(m[1], m[2])
		if !ok || v <= 0 {
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		prices = append(prices, v)
	}
	return prices
}

// parseSuffixedAmount parses "840" + "K" style values: K multiplies by a
// thousand, M by a million.
func parseSuffixedAmount(value, suffix string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(suffix) {
	case "K":
		v *= 1000
	case "M":
		v *= 1000000
	}
	return v, true
}

func orderedRange(a, b float64) *models.PriceRange {
	if b < a {
		a, b = b, a
	}
	return &models.PriceRange{Low: a, High: b}
}

func group(s string, loc []int, n int) string {
	start, end := loc[2*n], loc[2*n+1]
	if start < 0 {
		return ""
	}
	return s[start:end]
}
