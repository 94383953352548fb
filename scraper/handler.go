package scraper

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rent_scrooper/config"
	"rent_scrooper/extraction"
	"rent_scrooper/httputil"
	"rent_scrooper/models"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageFunc receives the listing blocks of one results page together with the accessor
// that owns their handles. The handles are only valid until PageFunc returns.
type PageFunc func(ctx context.Context, acc extraction.TextAccessor, blocks []models.RawListingBlock) error

type Handler interface {
	ID() string
	// Scrape walks the result pages for loc and returns how many pages were handed to onPage.
	Scrape(ctx context.Context, loc models.Location, onPage PageFunc) (int, error)
	Close()
}

func NewHandler(site *config.SiteConfig, cfg *config.Config, clients *httputil.Clients, log zerolog.Logger) Handler {
	log = log.With().Str("site", site.ID).Logger()
	switch site.Handler {
	case "static":
		var client *http.Client
		if clients != nil {
			client = clients.Scraping
		}
		return NewStaticHandler(site, cfg.Scraper, client, log)
	default:
		return NewBrowserHandler(site, cfg.Scraper, cfg.Proxy, log)
	}
}

func maxPages(site *config.SiteConfig, sc config.ScraperConfig) int {
	if sc.MaxPages > 0 {
		return sc.MaxPages
	}
	return site.MaxPages
}

// pageLimiter paces page loads for one site: at most one per rate_limit_ms.
func pageLimiter(site *config.SiteConfig, sc config.ScraperConfig) *rate.Limiter {
	ms := site.RateLimitMS
	if ms <= 0 {
		ms = sc.DelayMS
	}
	if ms <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(ms)*time.Millisecond), 1)
}
