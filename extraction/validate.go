package extraction

import (
	"regexp"
	"strings"

	"rent_scrooper/models"
)

var placeholders = map[string]struct{}{
	models.CallForPrice:    {},
	models.CallForDetails:  {},
	models.NotAvailable:    {},
	models.ExtractionError: {},
}

var (
	// Stray single letters and bare numbers left behind by broken markup.
	noisePriceRes = []*regexp.Regexp{
		regexp.MustCompile(`^[A-Za-z]$`),
		regexp.MustCompile(`^\d+$`),
		regexp.MustCompile(`^[A-Za-z]\d*$`),
	}
	pricePrefixRes = []*regexp.Regexp{
		regexp.MustCompile(`^` + currencyMarker + `\s*\d`),
		regexp.MustCompile(`^\d`),
		regexp.MustCompile(`(?i)call for`),
	}
)

func isPlaceholder(v string) bool {
	_, ok := placeholders[v]
	return ok
}

// IsValidPrice reports whether a raw or expanded price value is acceptable in a record.
func IsValidPrice(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || isPlaceholder(v) {
		return true
	}
	for _, re := range noisePriceRes {
		if re.MatchString(v) {
			return false
		}
	}
	for _, re := range pricePrefixRes {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}
