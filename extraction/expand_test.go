package extraction

import (
	"reflect"
	"testing"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		token string
		kind  ValueKind
		want  []string
	}{
		{"bed range", "1-3 Bed", BedValue, []string{"1 Bed", "2 Bed", "3 Bed"}},
		{"reversed range", "3-1 Bed", BedValue, []string{"1 Bed", "2 Bed", "3 Bed"}},
		{"single bed", "2 Bed", BedValue, []string{"2 Bed"}},
		{"bedroom", "2 Bedroom", BedValue, []string{"2 Bed"}},
		{"studio", "Studio", BedValue, []string{"Studio"}},
		{"unknown bed", "Loft", BedValue, []string{"Loft"}},
		{"empty bed", "", BedValue, []string{"Call for Details"}},
		{"bed placeholder", "Call for Details", BedValue, []string{"Call for Details"}},
		{"price range", "$1,200-$1,500", PriceValue, []string{"$1,200", "$1,500"}},
		{"canadian range", "C$1,800 - C$2,000", PriceValue, []string{"$1,800", "$2,000"}},
		{"single price", "CAD 950", PriceValue, []string{"$950"}},
		{"empty price", "", PriceValue, []string{"Call for Price"}},
		{"price placeholder", "Call for Price", PriceValue, []string{"Call for Price"}},
		{"phrase", "Call for Rent", PriceValue, []string{"Call for Rent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.token, tt.kind)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Expand(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestIsValidPrice(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"$1,200", true},
		{"C$900", true},
		{"CAD 1,100", true},
		{"1,200", true},
		{"Call for Rent", true},
		{"Call for Price", true},
		{"Not available", true},
		{"Error", true},
		{"", true},
		{"1200", false},
		{"a", false},
		{"s", false},
		{"42", false},
		{"b12", false},
		{"Rent Specials", false},
		{"Contact us", false},
	}
	for _, tt := range tests {
		if got := IsValidPrice(tt.in); got != tt.want {
			t.Errorf("IsValidPrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
