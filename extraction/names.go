package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	addressMinLength = 11
	nameMinLength    = 1
	nameLineMin      = 5
	nameLineMax      = 50
)

var (
	fullAddressRe   = regexp.MustCompile(`\b\d+[ \t]+[\w \t.'-]+?,[ \t]*[\w \t.'-]+?,?[ \t]*[A-Za-z]{2}[ \t]+(?:[A-Za-z]\d[A-Za-z][ \t]?\d[A-Za-z]\d|\d{5})\b`)
	streetAddressRe = regexp.MustCompile(`(?i)\b\d+[ \t]+(?:[\w.'-]+[ \t]+)+?(?:st|street|ave|avenue|rd|road|dr|drive|blvd|boulevard|ln|lane|way|cres|crescent|ct|court|pl|place)\b\.?`)

	addressShapeRes = []*regexp.Regexp{
		regexp.MustCompile(`\d+.*\d{5}`),
		regexp.MustCompile(`(?i)\d+.*\b(?:st|street|ave|avenue|rd|road|dr|drive|ln|lane|blvd|boulevard)\b`),
		regexp.MustCompile(`(?i)\bunit\s+\w+`),
		regexp.MustCompile(`(?i)\d+.*,\s*[\w ]+,\s*[a-z]{2}\s+(?:[a-z]\d[a-z]\s?\d[a-z]\d|\w{5,6})`),
	}

	unitTokenRe = regexp.MustCompile(`(?i)\bunit\s+\w+`)
	hashTokenRe = regexp.MustCompile(`#\w+`)
	idTokenRe   = regexp.MustCompile(`(?i)\bid\d+`)

	nameLineSkip = []string{"$", "bed", "bath", "contact", "sq ft", "sqft", "sq.", "call for"}
)

// LooksLikeAddress reports whether text is shaped like a street address rather than a
// property name.
func LooksLikeAddress(text string) bool {
	for _, re := range addressShapeRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// AddressFromText scans free text for a full civic address, then a bare street address.
func AddressFromText(text string) (string, bool) {
	if m := fullAddressRe.FindString(text); m != "" {
		return collapseSpaces(m), true
	}
	if m := streetAddressRe.FindString(text); m != "" {
		return collapseSpaces(m), true
	}
	return "", false
}

// NameFromAddress derives a display name from an address: unit and id tokens are
// dropped and only the part before the first comma is kept.
func NameFromAddress(address string) string {
	s := unitTokenRe.ReplaceAllString(address, "")
	s = hashTokenRe.ReplaceAllString(s, "")
	s = idTokenRe.ReplaceAllString(s, "")
	if i := strings.Index(s, ","); i >= 0 {
		s = s[:i]
	}
	s = collapseSpaces(s)
	if s == "" {
		return collapseSpaces(address)
	}
	return s
}

// NameFromText picks the first line of text that reads like a property name.
func NameFromText(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = collapseSpaces(line)
		if line == "" || hasCurrency(line) {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, nameLineSkip) {
			continue
		}
		n := utf8.RuneCountInString(line)
		if n < nameLineMin || n > nameLineMax {
			continue
		}
		if LooksLikeAddress(line) {
			continue
		}
		return line, true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
