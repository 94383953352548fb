package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"rent_scrooper/models"
)

var (
	streetReplacements = []struct{ full, abbrev string }{
		{"street", "st"},
		{"avenue", "ave"},
		{"drive", "dr"},
		{"road", "rd"},
		{"boulevard", "blvd"},
		{"lane", "ln"},
		{"court", "ct"},
		{"place", "pl"},
		{"circle", "cir"},
		{"crescent", "cres"},
		{"terrace", "ter"},
		{"highway", "hwy"},
		{"parkway", "pkwy"},
		{"square", "sq"},
		{"northeast", "ne"},
		{"northwest", "nw"},
		{"southeast", "se"},
		{"southwest", "sw"},
		{"north", "n"},
		{"south", "s"},
		{"east", "e"},
		{"west", "w"},
		{"apartment", "apt"},
		{"suite", "ste"},
		{"floor", "fl"},
		{"building", "bldg"},
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
	rentDigitsRegex = regexp.MustCompile(`[^0-9.]`)
)

// Fingerprint identifies a record across scrapes: the same property, city, bed type and
// rent always hash the same, however the address was spelled.
func Fingerprint(r models.ListingRecord) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s",
		NormalizeAddress(r.PropertyAddress),
		strings.ToLower(strings.TrimSpace(r.PropertyName)),
		strings.ToLower(strings.TrimSpace(r.CityName)),
		strings.ToLower(strings.TrimSpace(r.BedType)),
		NormalizeRent(r.Rent),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	words := strings.Fields(addr)
	for i, w := range words {
		for _, r := range streetReplacements {
			if w == r.full {
				words[i] = r.abbrev
				break
			}
		}
	}
	return multiSpaceRegex.ReplaceAllString(strings.Join(words, " "), " ")
}

// NormalizeRent reduces "$1,200" and "$1200" to the same key. Placeholders are lower-cased.
func NormalizeRent(rent string) string {
	digits := rentDigitsRegex.ReplaceAllString(rent, "")
	if digits == "" {
		return strings.ToLower(strings.TrimSpace(rent))
	}
	return digits
}
