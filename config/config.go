package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rent_scrooper/extraction"
	"rent_scrooper/models"
)

type Config struct {
	Env         string
	LogLevel    string
	LogFile     string
	DBPath      string
	CSVPath     string
	MetricsAddr string
	Postgres    PostgresConfig
	S3          S3Config
	Proxy       ProxyConfig
	Scheduler   SchedulerConfig
	Scraper     ScraperConfig
	Sites       map[string]*SiteConfig
	Locations   []models.Location
}

type PostgresConfig struct {
	URL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type ProxyConfig struct {
	URL string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	DelayMS         int
	Workers         int
	AccessorTimeout time.Duration
	MaxPages        int
	Headless        bool
}

type SiteConfig struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Handler     string        `yaml:"handler"`
	URLTemplate string        `yaml:"url_template"`
	RateLimitMS int           `yaml:"rate_limit_ms"`
	MaxPages    int           `yaml:"max_pages"`
	Selectors   SiteSelectors `yaml:"selectors"`
}

// SiteSelectors extends the engine's field selectors with page-level ones.
type SiteSelectors struct {
	Listing              []string `yaml:"listing"`
	NextPage             []string `yaml:"next_page"`
	extraction.Selectors `yaml:",inline"`
}

var (
	DefaultListingSelectors = []string{
		".placard",
		`[data-tracking-label="property-card"]`,
		".property-item",
		".placardContainer",
		".propertyListing",
		".listing-tile",
		".searchListing",
		"article.property",
		"div.property-card",
	}
	DefaultNextPageSelectors = []string{
		`a[data-tracking-label="pagination-next"]`,
		"a.next",
		`a[aria-label="Next Page"]`,
		`a[aria-label="Go to the next page"]`,
		".paging .next",
		`[rel="next"]`,
	}
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "prod"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", "scraper.log"),
		DBPath:      getEnv("DB_PATH", "scraper.db"),
		CSVPath:     getEnv("CSV_PATH", "rental_listings.csv"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		Postgres: PostgresConfig{
			URL: os.Getenv("POSTGRES_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Prefix:          getEnv("S3_PREFIX", "exports"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		Scheduler: SchedulerConfig{
			Cron:     os.Getenv("SCRAPE_CRON"),
			Interval: getEnvDuration("SCRAPE_INTERVAL", 0),
		},
		Scraper: ScraperConfig{
			DelayMS:         getEnvInt("SCRAPE_DELAY_MS", 2000),
			Workers:         getEnvInt("EXTRACT_WORKERS", 4),
			AccessorTimeout: getEnvDuration("ACCESSOR_TIMEOUT", 5*time.Second),
			MaxPages:        getEnvInt("MAX_PAGES", 0),
			Headless:        getEnv("HEADLESS", "true") == "true",
		},
		Sites: make(map[string]*SiteConfig),
	}

	if err := cfg.loadSiteConfigs(getEnv("SITES_DIR", "config/sites")); err != nil {
		return nil, err
	}

	locations, err := LoadLocations(getEnv("LOCATIONS_FILE", "config/locations.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Locations = locations

	return cfg, nil
}

func (c *Config) loadSiteConfigs(configDir string) error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		site, err := LoadSiteConfig(filepath.Join(configDir, entry.Name()))
		if err != nil {
			return err
		}
		c.Sites[site.ID] = site
	}

	return nil
}

// LoadSiteConfig reads one site file and fills unset selectors and limits with defaults.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var site SiteConfig
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if site.ID == "" {
		return nil, fmt.Errorf("parse %s: missing id", path)
	}
	if site.Handler == "" {
		site.Handler = "browser"
	}
	if len(site.Selectors.Listing) == 0 {
		site.Selectors.Listing = DefaultListingSelectors
	}
	if len(site.Selectors.NextPage) == 0 {
		site.Selectors.NextPage = DefaultNextPageSelectors
	}
	site.Selectors.Selectors = site.Selectors.Selectors.Merge(extraction.DefaultSelectors())
	return &site, nil
}

// SearchURL fills {city} and {province} in the site's url_template.
func (s *SiteConfig) SearchURL(loc models.Location) string {
	r := strings.NewReplacer(
		"{city}", CitySlug(loc.City),
		"{province}", ProvinceAbbreviation(loc.State),
	)
	return r.Replace(s.URLTemplate)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
