package extraction

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rent_scrooper/models"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

func newTestEngine() *Engine {
	e := NewEngine(testSelectors(), zerolog.Nop())
	e.SetClock(func() time.Time { return fixedNow })
	return e
}

func pairsOf(records []models.ListingRecord) [][2]string {
	out := make([][2]string, 0, len(records))
	for _, r := range records {
		out = append(out, [2]string{r.BedType, r.Rent})
	}
	return out
}

func TestExtractFromPlainText(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		FullText: "456 Oak Ave, Toronto, ON M1M1M1 1-2 Bed C$1,800-C$2,000 Call for Details",
	}
	loc := models.Location{City: "Toronto", State: "ON"}

	records := e.ExtractListingRecords(context.Background(), nil, block, loc)

	want := [][2]string{
		{"1 Bed", "$1,800"},
		{"1 Bed", "$2,000"},
		{"2 Bed", "$1,800"},
		{"2 Bed", "$2,000"},
	}
	if got := pairsOf(records); !reflect.DeepEqual(got, want) {
		t.Fatalf("pairs = %v, want %v", got, want)
	}
	for _, r := range records {
		if r.PropertyName != "456 Oak Ave" {
			t.Errorf("name = %q", r.PropertyName)
		}
		if r.PropertyAddress != "456 Oak Ave, Toronto, ON M1M1M1" {
			t.Errorf("address = %q", r.PropertyAddress)
		}
		if r.CityName != "Toronto" || r.StateName != "ON" {
			t.Errorf("location = %q/%q", r.CityName, r.StateName)
		}
	}
}

func TestExtractNameContainingCAD(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{FullText: "CADENCE TOWERS\n2 Beds - $1,500"}

	records := e.ExtractListingRecords(context.Background(), nil, block, models.Location{City: "Ottawa", State: "ON"})
	if len(records) == 0 {
		t.Fatal("expected records for a named listing")
	}
	for _, r := range records {
		if r.PropertyName != "CADENCE TOWERS" {
			t.Errorf("name = %q", r.PropertyName)
		}
		if r.Rent != "$1,500" {
			t.Errorf("rent = %q", r.Rent)
		}
	}
}

func TestExtractStampsTime(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		Fragments: map[models.FragmentRole][]string{
			models.RoleName:    {"Maple Court"},
			models.RolePricing: {"2 Beds $1,650"},
		},
	}
	records := e.ExtractListingRecords(context.Background(), nil, block, models.Location{City: "Ottawa", State: "ON"})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.MonthUpdatedOn != "March" || r.Year != 2024 || r.Time != "14:07:09" {
		t.Fatalf("timestamp = %s %d %s", r.MonthUpdatedOn, r.Year, r.Time)
	}
	if r.PropertyAddress != models.AddressNotFound {
		t.Fatalf("address = %q", r.PropertyAddress)
	}
}

func TestExtractStructuredPricingRange(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		FullText: "Maple Court\n1-2 Bed $1,200-$1,500",
		Fragments: map[models.FragmentRole][]string{
			models.RoleName:    {"Maple Court"},
			models.RolePricing: {"1-2 Bed $1,200-$1,500"},
		},
	}
	records := e.ExtractListingRecords(context.Background(), nil, block, models.Location{})

	want := [][2]string{
		{"1 Bed", "$1,200"},
		{"1 Bed", "$1,500"},
		{"2 Bed", "$1,200"},
		{"2 Bed", "$1,500"},
	}
	if got := pairsOf(records); !reflect.DeepEqual(got, want) {
		t.Fatalf("pairs = %v, want %v", got, want)
	}
}

func TestExtractDeduplicatesAcrossMethods(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		FullText: "Maple Court\n2 Bed - $1,500",
		Fragments: map[models.FragmentRole][]string{
			models.RoleName:     {"Maple Court"},
			models.RolePricing:  {"2 Bed - $1,500"},
			models.RoleUnitType: {"2 Beds $1,500"},
		},
	}
	records := e.ExtractListingRecords(context.Background(), nil, block, models.Location{})
	if got := pairsOf(records); !reflect.DeepEqual(got, [][2]string{{"2 Bed", "$1,500"}}) {
		t.Fatalf("pairs = %v", got)
	}
}

func TestExtractWithoutNameOrAddressYieldsNothing(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{FullText: "2 Bed - $1,500"}
	if records := e.ExtractListingRecords(context.Background(), nil, block, models.Location{}); len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestExtractAddressOnlyYieldsNothing(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{FullText: "123 Main St"}

	if got := e.ResolveAddress(context.Background(), nil, block); got != "123 Main St" {
		t.Fatalf("address = %q", got)
	}
	if records := e.ExtractListingRecords(context.Background(), nil, block, models.Location{}); len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestExtractRejectsRentSpecials(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		Fragments: map[models.FragmentRole][]string{
			models.RoleName:    {"Harbour Tower"},
			models.RolePricing: {"2 Beds Rent Specials"},
		},
	}
	if records := e.ExtractListingRecords(context.Background(), nil, block, models.Location{}); len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestExtractKeepsCallForRent(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		Fragments: map[models.FragmentRole][]string{
			models.RoleName:    {"Harbour Tower"},
			models.RolePricing: {"Studio Call for Rent"},
		},
	}
	records := e.ExtractListingRecords(context.Background(), nil, block, models.Location{})
	if got := pairsOf(records); !reflect.DeepEqual(got, [][2]string{{"Studio", "Call for Rent"}}) {
		t.Fatalf("pairs = %v", got)
	}
}

func TestResolveNameRejectsAddressShapedName(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		Fragments: map[models.FragmentRole][]string{
			models.RoleName:    {"123 Main St, Toronto, ON M5V 2T6"},
			models.RoleAddress: {"123 Main St, Toronto, ON M5V 2T6"},
		},
	}
	address := e.ResolveAddress(context.Background(), nil, block)
	if got := e.ResolveName(context.Background(), nil, block, address); got != "123 Main St" {
		t.Fatalf("name = %q", got)
	}
}

func TestResolveAddressIgnoresShortFragments(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		FullText: "Call 10 Pine Rd, Austin, TX 73301 today",
		Fragments: map[models.FragmentRole][]string{
			models.RoleAddress: {"Austin"},
		},
	}
	if got := e.ResolveAddress(context.Background(), nil, block); got != "10 Pine Rd, Austin, TX 73301" {
		t.Fatalf("address = %q", got)
	}
}

func TestResolveNameFallsBackToText(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{FullText: "$1,200\nThe Summit Lofts\n2 Beds"}
	got := e.ResolveName(context.Background(), nil, block, models.AddressNotFound)
	if got != "The Summit Lofts" {
		t.Fatalf("name = %q", got)
	}
}

func TestExtractUsesLiveElements(t *testing.T) {
	acc := &fakeAccessor{
		all: map[string][]Handle{
			".name": {"title"},
			".addr": {"addr"},
			".unit": {"unit-1", "unit-2"},
		},
		text: map[Handle]string{
			"title":  "Lakeview Apartments",
			"addr":   "88 Shore Rd, Kingston, ON K7L 2A1",
			"unit-1": "1 Bed",
			"row-1":  "1 Bed from $1,350",
			"unit-2": "2 Beds",
			"row-2":  "Floor plans",
			"next-2": "$1,900",
		},
		parent:  map[Handle]Handle{"unit-1": "row-1", "unit-2": "row-2"},
		sibling: map[Handle]Handle{"unit-2": "next-2"},
	}
	e := newTestEngine()
	block := models.RawListingBlock{Ref: "card"}

	records := e.ExtractListingRecords(context.Background(), acc, block, models.Location{City: "Kingston", State: "ON"})

	want := [][2]string{{"1 Bed", "$1,350"}, {"2 Bed", "$1,900"}}
	if got := pairsOf(records); !reflect.DeepEqual(got, want) {
		t.Fatalf("pairs = %v, want %v", got, want)
	}
	if records[0].PropertyName != "Lakeview Apartments" {
		t.Fatalf("name = %q", records[0].PropertyName)
	}
	if records[0].PropertyAddress != "88 Shore Rd, Kingston, ON K7L 2A1" {
		t.Fatalf("address = %q", records[0].PropertyAddress)
	}
}

func TestExtractSurvivesAccessorErrors(t *testing.T) {
	acc := &fakeAccessor{err: errBroken}
	e := newTestEngine()
	block := models.RawListingBlock{
		FullText: "456 Oak Ave, Toronto, ON M1M1M1\n2 Beds - $1,750",
		Ref:      "card",
	}
	records := e.ExtractListingRecords(context.Background(), acc, block, models.Location{})
	if got := pairsOf(records); !reflect.DeepEqual(got, [][2]string{{"2 Bed", "$1,750"}}) {
		t.Fatalf("pairs = %v", got)
	}
}

func TestExtractRecoversFromPanics(t *testing.T) {
	acc := &fakeAccessor{panics: true}
	e := newTestEngine()
	block := models.RawListingBlock{FullText: "anything", Ref: "card"}
	if records := e.ExtractListingRecords(context.Background(), acc, block, models.Location{}); records != nil {
		t.Fatalf("expected nil records, got %+v", records)
	}
}

func TestExtractIsSafeForConcurrentUse(t *testing.T) {
	e := newTestEngine()
	block := models.RawListingBlock{
		FullText: "456 Oak Ave, Toronto, ON M1M1M1 1-2 Bed C$1,800-C$2,000",
	}
	want := e.ExtractListingRecords(context.Background(), nil, block, models.Location{})

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := e.ExtractListingRecords(context.Background(), nil, block, models.Location{})
			if !reflect.DeepEqual(got, want) {
				errs <- "concurrent result differs"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatal(msg)
	}
}

func TestAssembleDropsUnknownName(t *testing.T) {
	pairs := []ValidatedPair{{Bed: "1 Bed", Price: "$900"}}
	if got := Assemble(models.UnknownName, "1 King St", models.Location{}, pairs, fixedNow); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if got := Assemble("Tower", models.AddressNotFound, models.Location{}, pairs, fixedNow); len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
}
