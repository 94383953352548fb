package extraction

import (
	"reflect"
	"testing"
)

func TestParseBed(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Studio apartment", "Studio", true},
		{"BACHELOR suite", "Studio", true},
		{"Studio, 1-2 Beds", "Studio", true},
		{"1-2 Beds", "1-2 Bed", true},
		{"1 – 3 bedrooms", "1-3 Bed", true},
		{"2 Beds", "2 Bed", true},
		{"3bd", "3 Bed", true},
		{"2 Bedrooms", "2 Bedroom", true},
		{"Spacious suites downtown", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseBed(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseBed(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2 Bed $1,500", "$1,500", true},
		{"1-2 Beds C$1,800 - C$2,000", "C$1,800 - C$2,000", true},
		{"CAD 1,200 / month", "CAD 1,200", true},
		{"$1200.50", "$1200.50", true},
		{"US$950", "US$950", true},
		{"Call for Rent", "Call for Rent", true},
		{"2 Beds Rent Specials", "Rent Specials", true},
		{"2 Beds 1 Bath", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParsePrice(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePriceIgnoresBedDigits(t *testing.T) {
	if got, ok := ParsePrice("2 Bed"); ok {
		t.Fatalf("expected no price in a bed phrase, got %q", got)
	}
}

func TestPriceLiterals(t *testing.T) {
	got := PriceLiterals("C$1,800 - $2,000.50")
	want := []string{"1,800", "2,000.50"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PriceLiterals = %v, want %v", got, want)
	}
	if lits := PriceLiterals("Call for Rent"); len(lits) != 0 {
		t.Fatalf("expected no literals, got %v", lits)
	}
}

func TestParsePairs(t *testing.T) {
	text := "1 Bed - $1,200 2 Beds – $1,500-$1,700 Studio - $950"
	got := ParsePairs(text)

	want := [][2]string{
		{"1 Bed", "$1,200"},
		{"2 Beds", "$1,500-$1,700"},
		{"Studio", "$950"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d pairs, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Bed.Raw != w[0] || got[i].Price.Raw != w[1] {
			t.Errorf("pair %d = (%q, %q), want (%q, %q)", i, got[i].Bed.Raw, got[i].Price.Raw, w[0], w[1])
		}
		if got[i].Bed.Source != SourceFullTextScan {
			t.Errorf("pair %d source = %v", i, got[i].Bed.Source)
		}
	}
}

func TestParsePairsNoMatch(t *testing.T) {
	if got := ParsePairs("456 Oak Ave, Toronto, ON M1M1M1 1-2 Bed C$1,800-C$2,000"); len(got) != 0 {
		t.Fatalf("expected no inline pairs, got %+v", got)
	}
}
