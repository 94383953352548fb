package extraction

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	currencyMarker = `(?:CAD\s?\$?|C\$|US\$|\$)`
	priceAmount    = `(?:\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)`
	priceLiteral   = currencyMarker + `\s*` + priceAmount
	priceToken     = priceLiteral + `(?:\s*[-–]\s*` + priceLiteral + `)?`
	bedPhrase      = `\b\d{1,2}\s*(?:[-–]\s*\d{1,2}\s*)?(?i:beds?|bds?|bedrooms?)\b`
)

var (
	priceTokenRe   = regexp.MustCompile(priceToken)
	priceLiteralRe = regexp.MustCompile(currencyMarker + `\s*(` + priceAmount + `)`)
	// A "$" anywhere, or CAD as its own word ahead of an amount.
	currencyRe     = regexp.MustCompile(`\$|\bCAD\s*\d`)

	// Phrases that carry digits but are not rent; removed before looking for a price.
	priceNoiseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{1,2}\s*[-–]\s*\d{1,2}\s*(?:beds?|bds?|bedrooms?|baths?|bathrooms?|ba)\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:\.5)?\s*(?:beds?|bds?|bedrooms?|baths?|bathrooms?|ba)\b`),
		regexp.MustCompile(`(?i)\b(?:studio|bachelor)\b`),
	}
	pricePlaceholderRe = regexp.MustCompile(`(?i)\bcall for (?:rent|pricing|price)\b|\brent specials?\b`)

	pairRe       = regexp.MustCompile(`(` + bedPhrase + `)\s*[-–]\s*(` + priceToken + `)`)
	studioPairRe = regexp.MustCompile(`(?i)\b(studio|bachelor)\b\s*[-–]\s*(` + priceToken + `)`)
)

type bedRule struct {
	name    string
	pattern *regexp.Regexp
	format  func(m []string) string
}

// bedRules are tried in order; the first rule that matches anywhere in the text wins.
var bedRules = []bedRule{
	{
		name:    "studio",
		pattern: regexp.MustCompile(`(?i)\b(?:studio|bachelor)\b`),
		format:  func([]string) string { return "Studio" },
	},
	{
		name:    "range",
		pattern: regexp.MustCompile(`(?i)\b(\d{1,2})\s*[-–]\s*(\d{1,2})\s*(?:beds?|bds?|bedrooms?)\b`),
		format:  func(m []string) string { return fmt.Sprintf("%s-%s Bed", m[1], m[2]) },
	},
	{
		name:    "beds",
		pattern: regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:beds?|bds?)\b`),
		format:  func(m []string) string { return m[1] + " Bed" },
	},
	{
		name:    "bedrooms",
		pattern: regexp.MustCompile(`(?i)\b(\d{1,2})\s*bedrooms?\b`),
		format:  func(m []string) string { return m[1] + " Bedroom" },
	},
}

// ParseBed recognizes a canonical bed token in free text.
func ParseBed(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, rule := range bedRules {
		if m := rule.pattern.FindStringSubmatch(text); m != nil {
			return rule.format(m), true
		}
	}
	return "", false
}

// ParsePrice recognizes a price token in free text. Bed and bath phrases are stripped
// first so "2 Bed" is never read as $2. When no literal exists, a price placeholder
// phrase such as "Call for Rent" is returned instead.
func ParsePrice(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	cleaned := text
	for _, re := range priceNoiseRes {
		cleaned = re.ReplaceAllString(cleaned, " ")
	}
	if tok := priceTokenRe.FindString(cleaned); tok != "" {
		return strings.TrimSpace(tok), true
	}
	if ph := pricePlaceholderRe.FindString(cleaned); ph != "" {
		return ph, true
	}
	return "", false
}

// PriceLiterals returns the bare amounts of every currency literal in token, in order.
func PriceLiterals(token string) []string {
	matches := priceLiteralRe.FindAllStringSubmatch(token, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// ParsePairs finds inline "bed - price" and "studio - price" pairs in full text.
func ParsePairs(text string) []CandidatePair {
	var out []CandidatePair
	for _, m := range pairRe.FindAllStringSubmatch(text, -1) {
		out = append(out, fullTextPair(m[1], m[2]))
	}
	for _, m := range studioPairRe.FindAllStringSubmatch(text, -1) {
		out = append(out, fullTextPair("Studio", m[2]))
	}
	return out
}

func fullTextPair(bed, price string) CandidatePair {
	return CandidatePair{
		Bed:   FieldCandidate{Kind: KindBedToken, Raw: strings.TrimSpace(bed), Source: SourceFullTextScan},
		Price: FieldCandidate{Kind: KindPriceToken, Raw: strings.TrimSpace(price), Source: SourceFullTextScan},
	}
}

func hasCurrency(text string) bool {
	return currencyRe.MatchString(text)
}
