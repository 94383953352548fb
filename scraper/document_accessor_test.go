package scraper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rent_scrooper/extraction"
	"rent_scrooper/models"
)

func TestVisibleText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"block tags break lines", `<div><h3>Maple Court</h3><p>12 Maple St</p></div>`, "Maple Court\n12 Maple St"},
		{"inline tags stay on the line", `<div><span>Studio</span> <span>$1,100</span></div>`, "Studio $1,100"},
		{"entities decoded", `<p>Rent &amp; utilities &ndash; $900</p>`, "Rent & utilities – $900"},
		{"scripts dropped", `<div>Oak<script>var x = 1;</script></div>`, "Oak"},
		{"spaces collapsed", "<p>  1   Bed  </p><br><p>$800</p>", "1 Bed\n$800"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VisibleText(tc.in); got != tc.want {
				t.Errorf("VisibleText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDocumentAccessorNavigation(t *testing.T) {
	ctx := context.Background()
	doc := loadDocument(t, "results_page1.html")
	acc := NewDocumentAccessor(doc.Selection)

	cards, err := acc.QueryAll(ctx, nil, "article.placard")
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}

	title, err := acc.QueryOne(ctx, cards[0], ".property-title")
	if err != nil || title == nil {
		t.Fatalf("QueryOne title = %v, %v", title, err)
	}
	if text, _ := acc.TextOf(ctx, title); text != "Maple Court" {
		t.Errorf("title text = %q", text)
	}

	missing, err := acc.QueryOne(ctx, cards[0], ".bed-range")
	if err != nil || missing != nil {
		t.Errorf("missing element = %v, %v; want nil, nil", missing, err)
	}

	bed, _ := acc.QueryOne(ctx, cards[1], ".bed-range")
	parent, err := acc.ParentOf(ctx, bed)
	if err != nil || parent == nil {
		t.Fatalf("ParentOf = %v, %v", parent, err)
	}
	if text, _ := acc.TextOf(ctx, parent); text != "Studio $1,100" {
		t.Errorf("parent text = %q", text)
	}
	sib, err := acc.NextSiblingOf(ctx, bed)
	if err != nil || sib == nil {
		t.Fatalf("NextSiblingOf = %v, %v", sib, err)
	}
	if text, _ := acc.TextOf(ctx, sib); text != "$1,100" {
		t.Errorf("sibling text = %q", text)
	}
	if last, _ := acc.NextSiblingOf(ctx, sib); last != nil {
		t.Errorf("expected no sibling after the rent span")
	}
}

func TestDocumentAccessorErrors(t *testing.T) {
	acc := NewDocumentAccessor(parseHTML(t, `<div class="a"></div>`).Selection)

	if _, err := acc.QueryAll(context.Background(), nil, "div[["); err == nil {
		t.Errorf("expected an error for an invalid selector")
	}
	if _, err := acc.TextOf(context.Background(), "not a handle"); err == nil {
		t.Errorf("expected an error for a foreign handle")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := acc.QueryOne(ctx, nil, "div"); err == nil {
		t.Errorf("expected an error for a cancelled context")
	}
}

func TestBuildBlocksDropsContainersAndDuplicates(t *testing.T) {
	ctx := context.Background()
	acc := NewDocumentAccessor(loadDocument(t, "results_page1.html").Selection)

	blocks := BuildBlocks(ctx, acc, nil, []string{"ul.results", "article.placard", ".results li"})
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	for i, want := range []string{"Maple Court", "Birch Towers", "Cedar House"} {
		if !strings.HasPrefix(blocks[i].FullText, want) {
			t.Errorf("block %d text = %q, want prefix %q", i, blocks[i].FullText, want)
		}
		if blocks[i].Ref == nil {
			t.Errorf("block %d has no element handle", i)
		}
	}
}

func TestBuildBlocksSkipsNearbyCards(t *testing.T) {
	doc := parseHTML(t, `
		<div class="card"><h3>Pine Lofts</h3><p>1 Bed $1,200</p></div>
		<div class="card"><h3>More rentals near Ottawa</h3><p>Kanata Place 2 Beds $1,900</p></div>`)
	acc := NewDocumentAccessor(doc.Selection)

	blocks := BuildBlocks(context.Background(), acc, nil, []string{".card"})
	if len(blocks) != 1 || !strings.HasPrefix(blocks[0].FullText, "Pine Lofts") {
		t.Fatalf("blocks = %+v", blocks)
	}
}

func TestBuildBlocksSkipsCardsAfterNearbyHeading(t *testing.T) {
	doc := parseHTML(t, `
		<ul><li class="card"><h3>Elm Gardens</h3><p>2 Beds $2,100</p></li></ul>
		<h2>More rentals near <b>Ottawa</b></h2>
		<ul><li class="card"><h3>Kanata Place</h3><p>2 Beds $1,900</p></li></ul>`)
	acc := NewDocumentAccessor(doc.Selection)

	blocks := BuildBlocks(context.Background(), acc, nil, []string{".card"})
	if len(blocks) != 1 || !strings.HasPrefix(blocks[0].FullText, "Elm Gardens") {
		t.Fatalf("blocks = %+v", blocks)
	}

	wrapped := extraction.WithCallTimeout(NewDocumentAccessor(doc.Selection), time.Second)
	if got := BuildBlocks(context.Background(), wrapped, nil, []string{".card"}); len(got) != 1 {
		t.Fatalf("wrapped accessor kept %d blocks, want 1", len(got))
	}
}

func TestBuildBlocksNearbyHeadingInScriptIgnored(t *testing.T) {
	doc := parseHTML(t, `
		<script>var label = "More rentals near";</script>
		<div class="card"><h3>Pine Lofts</h3><p>1 Bed $1,200</p></div>`)
	acc := NewDocumentAccessor(doc.Selection)

	if blocks := BuildBlocks(context.Background(), acc, nil, []string{".card"}); len(blocks) != 1 {
		t.Fatalf("blocks = %+v", blocks)
	}
}

func TestResultsPageDropsNearbyListings(t *testing.T) {
	site := testSite("http://127.0.0.1/{city}")
	acc := NewDocumentAccessor(loadDocument(t, "results_page2.html").Selection)

	blocks := BuildBlocks(context.Background(), acc, nil, site.Selectors.Listing)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	if strings.Contains(blocks[0].FullText, "Kanata") {
		t.Fatalf("nearby listing kept: %q", blocks[0].FullText)
	}
}

func TestNoResults(t *testing.T) {
	doc := loadDocument(t, "no_results.html")
	if !NoResults(doc.Text()) {
		t.Errorf("expected the no-results page to be recognized")
	}
	if NoResults(loadDocument(t, "results_page1.html").Text()) {
		t.Errorf("results page reported as empty")
	}
}

func TestExtractBlocksOverDocument(t *testing.T) {
	ctx := context.Background()
	site := testSite("")
	engine := extraction.NewEngine(site.Selectors.Selectors, zerolog.Nop())
	acc := NewDocumentAccessor(loadDocument(t, "results_page1.html").Selection)
	blocks := BuildBlocks(ctx, acc, nil, site.Selectors.Listing)
	loc := models.Location{City: "Ottawa", State: "ON"}

	records, empty := ExtractBlocks(ctx, engine, acc, blocks, loc, 3, zerolog.Nop())

	want := []struct{ name, address, bed, rent string }{
		{"Maple Court", "12 Maple St, Ottawa, ON K1A 0B1", "1 Bed", "$1,500"},
		{"Maple Court", "12 Maple St, Ottawa, ON K1A 0B1", "1 Bed", "$1,900"},
		{"Maple Court", "12 Maple St, Ottawa, ON K1A 0B1", "2 Bed", "$1,500"},
		{"Maple Court", "12 Maple St, Ottawa, ON K1A 0B1", "2 Bed", "$1,900"},
		{"Birch Towers", "88 Birch Rd, Ottawa, ON K2B 3C4", "Studio", "$1,100"},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(records), records)
	}
	for i, w := range want {
		r := records[i]
		if r.PropertyName != w.name || r.PropertyAddress != w.address || r.BedType != w.bed || r.Rent != w.rent {
			t.Errorf("record %d = %s | %s | %s | %s", i, r.PropertyName, r.PropertyAddress, r.BedType, r.Rent)
		}
		if r.CityName != "Ottawa" || r.StateName != "ON" {
			t.Errorf("record %d location = %s, %s", i, r.CityName, r.StateName)
		}
	}
	if empty != 1 {
		t.Errorf("empty = %d, want 1 (Cedar House has no bed/price pair)", empty)
	}
}
