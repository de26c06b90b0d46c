package ingest

import (
	"nz_propper/identity"
	"nz_propper/models"
)

// Dedupe drops rows that describe the same listing, keeping the first
// occurrence. Returns the surviving records and the number removed.
func Dedupe(records []models.ListingRecord) ([]models.ListingRecord, int) {
	seen := make(map[string]bool, len(records))
	kept := make([]models.ListingRecord, 0, len(records))

	for i := range records {
		fp := identity.Fingerprint(&records[i])
		if seen[fp] {
			continue
		}
		seen[fp] = true
		kept = append(kept, records[i])
	}

	return kept, len(records) - len(kept)
}
