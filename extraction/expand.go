package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"rent_scrooper/models"
)

type ValueKind int

const (
	BedValue ValueKind = iota
	PriceValue
)

var (
	bedRangeRe  = regexp.MustCompile(`(\d+)\s*[-–]\s*(\d+)`)
	bedSingleRe = regexp.MustCompile(`(?i)(\d+)\s*(?:beds?|bds?|bedrooms?)`)
	studioRe    = regexp.MustCompile(`(?i)studio|bachelor`)
)

// Expand turns one raw token into the concrete values it stands for.
// "1-3 Bed" becomes three bed values, "$1,200-$1,500" becomes two prices.
func Expand(token string, kind ValueKind) []string {
	token = strings.TrimSpace(token)
	if token == "" {
		if kind == BedValue {
			return []string{models.CallForDetails}
		}
		return []string{models.CallForPrice}
	}
	if isPlaceholder(token) {
		return []string{token}
	}
	if kind == BedValue {
		return expandBed(token)
	}
	return expandPrice(token)
}

func expandBed(token string) []string {
	if m := bedRangeRe.FindStringSubmatch(token); m != nil {
		lo, errLo := strconv.Atoi(m[1])
		hi, errHi := strconv.Atoi(m[2])
		if errLo == nil && errHi == nil {
			if lo > hi {
				lo, hi = hi, lo
			}
			out := make([]string, 0, hi-lo+1)
			for n := lo; n <= hi; n++ {
				out = append(out, strconv.Itoa(n)+" Bed")
			}
			return out
		}
	}
	if m := bedSingleRe.FindStringSubmatch(token); m != nil {
		return []string{m[1] + " Bed"}
	}
	if studioRe.MatchString(token) {
		return []string{"Studio"}
	}
	return []string{token}
}

func expandPrice(token string) []string {
	lits := PriceLiterals(token)
	if len(lits) == 0 {
		return []string{token}
	}
	out := make([]string, 0, len(lits))
	for _, l := range lits {
		out = append(out, "$"+l)
	}
	return out
}
