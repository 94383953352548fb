package identity

import (
	"testing"

	"rent_scrooper/models"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123 Main Street, Toronto", "123 main st toronto"},
		{"  45 North  Avenue ", "45 n ave"},
		{"9 Eastview Road", "9 eastview rd"},
	}
	for _, tt := range tests {
		if got := NormalizeAddress(tt.in); got != tt.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFingerprintIgnoresSpelling(t *testing.T) {
	a := models.ListingRecord{
		PropertyName:    "Maple Court",
		PropertyAddress: "12 Maple Street, Toronto",
		CityName:        "Toronto",
		BedType:         "1 Bed",
		Rent:            "$1,200",
	}
	b := a
	b.PropertyAddress = "12 maple st toronto"
	b.Rent = "$1200"

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("expected equal fingerprints for respelled record")
	}

	c := a
	c.BedType = "2 Bed"
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatal("different bed types must not collide")
	}
}

func TestNormalizeRentPlaceholder(t *testing.T) {
	if got := NormalizeRent("Call for Rent"); got != "call for rent" {
		t.Fatalf("NormalizeRent = %q", got)
	}
}
