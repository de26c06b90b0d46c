package identity

import (
	"testing"

	"nz_propper/models"
)

func TestFingerprint_LinkWins(t *testing.T) {
	a := &models.ListingRecord{
		PropertyLink:    "https://example.com/listing/1",
		PropertyAddress: "12 Example Street",
	}
	b := &models.ListingRecord{
		PropertyLink:    "https://example.com/listing/1",
		PropertyAddress: "totally different address",
	}
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("records with the same link should fingerprint identically")
	}

	c := &models.ListingRecord{PropertyLink: "https://example.com/listing/2"}
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatal("different links should fingerprint differently")
	}
}

func TestFingerprint_AddressFallback(t *testing.T) {
	a := &models.ListingRecord{
		PropertyAddress: "12 Example Street, Auckland",
		PropertyTitle:   "Sunny family home",
	}
	b := &models.ListingRecord{
		PropertyAddress: "12 example st auckland",
		PropertyTitle:   "SUNNY FAMILY HOME",
	}
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("normalized address variants should fingerprint identically")
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12 Example Street, Auckland", "12 example st auckland"},
		{"  5/20 Ocean Parade  ", "5 20 ocean pde"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeAddress(tt.in); got != tt.want {
			t.Fatalf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
