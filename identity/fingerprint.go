package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"nz_propper/models"
)

var (
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"boulevard": "blvd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"crescent":  "cres",
		"terrace":   "ter",
		"highway":   "hwy",
		"parade":    "pde",
		"esplanade": "esp",
		"grove":     "gr",
		"rise":      "rise",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"apartment": "apt",
		"unit":      "unit",
		"flat":      "flat",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Fingerprint returns a stable identity for a listing row, used to drop
// duplicate rows from an upload. The property link is the strongest key
// when present; otherwise the normalized address plus title stands in.
func Fingerprint(record *models.ListingRecord) string {
	var input string
	if link := strings.TrimSpace(record.PropertyLink); link != "" {
		input = "link|" + strings.ToLower(link)
	} else {
		input = fmt.Sprintf("addr|%s|%s",
			NormalizeAddress(record.PropertyAddress),
			strings.ToLower(strings.TrimSpace(record.PropertyTitle)),
		)
	}
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeAddress lowercases, strips punctuation, and abbreviates common
// street words so trivially different spellings of the same address
// fingerprint identically.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	for full, abbrev := range streetReplacements {
		addr = strings.ReplaceAll(addr, full, abbrev)
	}
	addr = multiSpaceRegex.ReplaceAllString(addr, " ")
	return strings.TrimSpace(addr)
}
