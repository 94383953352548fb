package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"rent_scrooper/config"
	"rent_scrooper/metrics"
	"rent_scrooper/models"
)

// StaticHandler fetches server-rendered result pages with colly and reads them
// through a DocumentAccessor.
type StaticHandler struct {
	site     *config.SiteConfig
	client   *http.Client
	maxPages int
	delay    time.Duration
	log      zerolog.Logger
}

func NewStaticHandler(site *config.SiteConfig, sc config.ScraperConfig, client *http.Client, log zerolog.Logger) *StaticHandler {
	ms := site.RateLimitMS
	if ms <= 0 {
		ms = sc.DelayMS
	}
	return &StaticHandler{
		site:     site,
		client:   client,
		maxPages: maxPages(site, sc),
		delay:    time.Duration(ms) * time.Millisecond,
		log:      log,
	}
}

func (h *StaticHandler) ID() string {
	return h.site.ID
}

func (h *StaticHandler) Close() {}

func (h *StaticHandler) Scrape(ctx context.Context, loc models.Location, onPage PageFunc) (int, error) {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
	)
	if h.client != nil {
		c.SetClient(h.client)
	}
	if h.delay > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: h.delay, RandomDelay: h.delay / 2}); err != nil {
			return 0, fmt.Errorf("limit rule: %w", err)
		}
	}

	var (
		pages     int
		scrapeErr error
	)
	nextSel := strings.Join(h.site.Selectors.NextPage, ", ")

	c.OnHTML("html", func(e *colly.HTMLElement) {
		if scrapeErr != nil || ctx.Err() != nil {
			return
		}
		start := time.Now()
		if NoResults(e.Text) {
			h.log.Info().Str("url", e.Request.URL.String()).Msg("no results")
			return
		}

		acc := NewDocumentAccessor(e.DOM)
		blocks := BuildBlocks(ctx, acc, nil, h.site.Selectors.Listing)
		if len(blocks) == 0 {
			h.log.Info().Str("url", e.Request.URL.String()).Msg("no listings on page, stopping")
			return
		}
		pages++
		h.log.Info().Int("page", pages).Int("listings", len(blocks)).Str("city", loc.City).Msg("page loaded")

		if err := onPage(ctx, acc, blocks); err != nil {
			scrapeErr = err
			return
		}
		metrics.ObservePage(h.site.ID, time.Since(start))

		if strings.Contains(strings.ToLower(e.Text), nearbyMarker) {
			return
		}
		if h.maxPages > 0 && pages >= h.maxPages {
			return
		}
		if nextSel == "" {
			return
		}
		href, ok := e.DOM.Find(nextSel).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if err := e.Request.Visit(e.Request.AbsoluteURL(href)); err != nil {
			var visited *colly.AlreadyVisitedError
			if !errors.As(err, &visited) {
				h.log.Warn().Err(err).Str("href", href).Msg("next page not followed")
			}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if scrapeErr == nil {
			scrapeErr = fmt.Errorf("fetch %s: %w (status %d)", r.Request.URL, err, r.StatusCode)
		}
	})

	searchURL := h.site.SearchURL(loc)
	h.log.Info().Str("url", searchURL).Str("city", loc.City).Msg("fetching")
	if err := c.Visit(searchURL); err != nil {
		if scrapeErr != nil {
			return pages, scrapeErr
		}
		return pages, fmt.Errorf("visit %s: %w", searchURL, err)
	}
	c.Wait()

	if scrapeErr == nil {
		scrapeErr = ctx.Err()
	}
	return pages, scrapeErr
}
