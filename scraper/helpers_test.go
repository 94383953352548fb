package scraper

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"rent_scrooper/config"
	"rent_scrooper/extraction"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func loadDocument(t *testing.T, name string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(loadFixture(t, name)))
	if err != nil {
		t.Fatalf("failed to parse fixture %s: %v", name, err)
	}
	return doc
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(html))
	if err != nil {
		t.Fatalf("failed to parse html: %v", err)
	}
	return doc
}

func testSite(urlTemplate string) *config.SiteConfig {
	return &config.SiteConfig{
		ID:          "testsite",
		Name:        "Test Site",
		Handler:     "static",
		URLTemplate: urlTemplate,
		Selectors: config.SiteSelectors{
			Listing:  []string{"article.placard"},
			NextPage: []string{"a.next"},
			Selectors: extraction.Selectors{
				Name:    []string{".property-title"},
				Address: []string{".property-address"},
				Pricing: []string{".price-range"},
				Unit:    []string{".bed-range"},
				Beds:    []string{".bed-range"},
				Price:   []string{".price-range", ".rent"},
			},
		},
	}
}
