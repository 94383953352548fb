package extraction

// Selectors are the CSS selector lists the engine tries against a live listing element.
// Every list is ordered by preference.
type Selectors struct {
	Name    []string `yaml:"name"`
	Address []string `yaml:"address"`
	Pricing []string `yaml:"pricing"`
	Unit    []string `yaml:"unit"`
	Beds    []string `yaml:"beds"`
	Price   []string `yaml:"price"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Name: []string{
			`a[data-tracking-label="property-title"]`,
			"a.property-title",
			"h1", "h2", "h3", "h4",
			`[class*="title"]`,
			`[class*="name"]`,
		},
		Address: []string{
			".property-address",
			".address",
			`[class*="address"]`,
			`[data-tracking-label*="address"]`,
			`[itemprop="address"]`,
			".location",
			".property-location",
		},
		Pricing: []string{
			`[data-tracking-label="pricing"]`,
			".price-range",
			".price",
			".pricing",
			`[class*="price"]`,
		},
		Unit: []string{
			".unit-type",
			".bed-range",
			".beds",
			`[class*="bed"]`,
			`[class*="unit"]`,
		},
		Beds: []string{
			".bed-range",
			".beds",
			".bedrooms",
			".unit-type",
			`[class*="bed"]`,
			`[data-tracking-label*="bed"]`,
		},
		Price: []string{
			".price-range",
			".price",
			".pricing",
			".rent",
			`[class*="price"]`,
			`[class*="rent"]`,
			`[data-tracking-label="pricing"]`,
		},
	}
}

// Merge fills every empty list in s from fallback.
func (s Selectors) Merge(fallback Selectors) Selectors {
	pick := func(a, b []string) []string {
		if len(a) > 0 {
			return a
		}
		return b
	}
	return Selectors{
		Name:    pick(s.Name, fallback.Name),
		Address: pick(s.Address, fallback.Address),
		Pricing: pick(s.Pricing, fallback.Pricing),
		Unit:    pick(s.Unit, fallback.Unit),
		Beds:    pick(s.Beds, fallback.Beds),
		Price:   pick(s.Price, fallback.Price),
	}
}
