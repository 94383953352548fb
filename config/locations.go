package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rent_scrooper/models"
)

const defaultProvince = "on"

var provinceAbbreviations = map[string]string{
	"alberta":                   "ab",
	"british columbia":          "bc",
	"manitoba":                  "mb",
	"new brunswick":             "nb",
	"newfoundland and labrador": "nl",
	"nova scotia":               "ns",
	"ontario":                   "on",
	"prince edward island":      "pe",
	"quebec":                    "qc",
	"saskatchewan":              "sk",
	"northwest territories":     "nt",
	"nunavut":                   "nu",
	"yukon":                     "yt",

	"b.c.":  "bc",
	"b c":   "bc",
	"ont.":  "on",
	"ont":   "on",
	"queb.": "qc",
	"queb":  "qc",
	"alb.":  "ab",
	"alb":   "ab",
	"man.":  "mb",
	"man":   "mb",
	"sask.": "sk",
	"sask":  "sk",
}

// ProvinceAbbreviation maps a province name or common variant to its two-letter code.
// Two-letter codes pass through; anything unknown maps to "on".
func ProvinceAbbreviation(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if abbr, ok := provinceAbbreviations[key]; ok {
		return abbr
	}
	for _, abbr := range provinceAbbreviations {
		if key == abbr {
			return abbr
		}
	}
	return defaultProvince
}

// CitySlug lower-cases a city name for use in a URL path.
func CitySlug(city string) string {
	s := strings.ToLower(strings.TrimSpace(city))
	s = strings.NewReplacer(",", "", ".", "", "'", "").Replace(s)
	return strings.Join(strings.Fields(s), "-")
}

type locationsFile struct {
	Locations []models.Location `yaml:"locations"`
}

// Column headers of a location sheet.
const (
	cityColumn     = "City Name"
	provinceColumn = "Province"
)

// LoadLocations reads the list of cities to scrape, either a YAML list or a CSV sheet
// with "City Name" and "Province" columns. A missing file is not an error.
func LoadLocations(path string) ([]models.Location, error) {
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadLocationsCSV(path)
	case ".yaml", ".yml", "":
		return loadLocationsYAML(path)
	default:
		return nil, fmt.Errorf("unsupported locations file %s: use .csv or .yaml", path)
	}
}

func loadLocationsYAML(path string) ([]models.Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var f locationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := f.Locations[:0]
	for _, loc := range f.Locations {
		loc.City = strings.TrimSpace(loc.City)
		loc.State = strings.TrimSpace(loc.State)
		if loc.City == "" || loc.State == "" {
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

func loadLocationsCSV(path string) ([]models.Location, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cityIdx, provinceIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case cityColumn:
			cityIdx = i
		case provinceColumn:
			provinceIdx = i
		}
	}
	var missing []string
	if cityIdx < 0 {
		missing = append(missing, cityColumn)
	}
	if provinceIdx < 0 {
		missing = append(missing, provinceColumn)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s is missing columns: %s", path, strings.Join(missing, ", "))
	}

	var out []models.Location
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if cityIdx >= len(row) || provinceIdx >= len(row) {
			continue
		}
		city := strings.TrimSpace(row[cityIdx])
		province := strings.TrimSpace(row[provinceIdx])
		if city == "" || province == "" {
			continue
		}
		out = append(out, models.Location{City: city, State: province})
	}
	return out, nil
}
