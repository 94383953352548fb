package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rent_scrooper/config"
	"rent_scrooper/extraction"
	"rent_scrooper/metrics"
	"rent_scrooper/models"
)

const stealthScript = `
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
`

type BrowserHandler struct {
	site            *config.SiteConfig
	headless        bool
	proxyURL        string
	accessorTimeout time.Duration
	maxPages        int
	limiter         *rate.Limiter
	log             zerolog.Logger

	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	initialized bool
}

func NewBrowserHandler(site *config.SiteConfig, sc config.ScraperConfig, proxy config.ProxyConfig, log zerolog.Logger) *BrowserHandler {
	return &BrowserHandler{
		site:            site,
		headless:        sc.Headless,
		proxyURL:        proxy.URL,
		accessorTimeout: sc.AccessorTimeout,
		maxPages:        maxPages(site, sc),
		limiter:         pageLimiter(site, sc),
		log:             log,
	}
}

func (h *BrowserHandler) ID() string {
	return h.site.ID
}

func (h *BrowserHandler) Scrape(ctx context.Context, loc models.Location, onPage PageFunc) (int, error) {
	if err := h.ensureBrowser(); err != nil {
		return 0, err
	}

	bctx, err := h.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return 0, fmt.Errorf("new browser context: %w", err)
	}
	defer bctx.Close()

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		h.log.Warn().Err(err).Msg("init script not installed")
	}

	page, err := bctx.NewPage()
	if err != nil {
		return 0, fmt.Errorf("failed to create page: %w", err)
	}

	searchURL := h.site.SearchURL(loc)
	h.log.Info().Str("url", searchURL).Str("city", loc.City).Msg("navigating")
	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return 0, fmt.Errorf("goto %s: %w", searchURL, err)
	}

	h.pause(ctx, 3000, 5000)
	h.simulateHumanBehavior(page)
	h.handleConsent(page)

	content, _ := page.Content()
	if trigger := detectBlock(content); trigger != "" {
		return 0, fmt.Errorf("blocked on %s: %s", searchURL, trigger)
	}
	if NoResults(content) {
		h.log.Info().Str("city", loc.City).Msg("no results")
		return 0, nil
	}

	acc := extraction.WithCallTimeout(NewPageAccessor(page), h.accessorTimeout)
	pages := 0
	for {
		if err := h.limiter.Wait(ctx); err != nil {
			return pages, err
		}
		start := time.Now()

		blocks := BuildBlocks(ctx, acc, nil, h.site.Selectors.Listing)
		if len(blocks) == 0 {
			h.log.Info().Int("page", pages+1).Msg("no listings on page, stopping")
			break
		}
		pages++
		h.log.Info().Int("page", pages).Int("listings", len(blocks)).Str("city", loc.City).Msg("page loaded")

		if err := onPage(ctx, acc, blocks); err != nil {
			return pages, err
		}
		metrics.ObservePage(h.site.ID, time.Since(start))

		content, _ := page.Content()
		if strings.Contains(strings.ToLower(content), nearbyMarker) {
			h.log.Info().Int("page", pages).Msg("reached nearby-city results, stopping")
			break
		}
		if h.maxPages > 0 && pages >= h.maxPages {
			break
		}
		if err := h.clickNextPage(page); err != nil {
			h.log.Info().Err(err).Int("page", pages).Msg("no further pages")
			break
		}
		h.pause(ctx, 2000, 4000)
	}

	return pages, ctx.Err()
}

func (h *BrowserHandler) ensureBrowser() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(h.headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if h.proxyURL != "" {
		opts.Proxy = &playwright.Proxy{Server: h.proxyURL}
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	h.pw = pw
	h.browser = browser
	h.initialized = true
	return nil
}

func (h *BrowserHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.browser != nil {
		h.browser.Close()
		h.browser = nil
	}
	if h.pw != nil {
		h.pw.Stop()
		h.pw = nil
	}
	h.initialized = false
}

func (h *BrowserHandler) clickNextPage(page playwright.Page) error {
	for _, sel := range h.site.Selectors.NextPage {
		btn := page.Locator(sel).First()
		if visible, _ := btn.IsVisible(); !visible {
			continue
		}
		if disabled, _ := btn.GetAttribute("aria-disabled"); disabled == "true" {
			continue
		}
		if err := btn.Click(); err != nil {
			continue
		}
		h.log.Debug().Str("selector", sel).Msg("clicked next page")
		page.WaitForTimeout(1500)
		return nil
	}
	return fmt.Errorf("could not find clickable next button")
}

func (h *BrowserHandler) simulateHumanBehavior(page playwright.Page) {
	page.Mouse().Move(float64(300+rand.Intn(400)), float64(200+rand.Intn(300)))
	page.WaitForTimeout(float64(200 + rand.Intn(300)))
	page.Mouse().Move(float64(400+rand.Intn(300)), float64(300+rand.Intn(200)))

	scrollAmount := 100 + rand.Intn(300)
	page.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d)`, scrollAmount))
}

func (h *BrowserHandler) pause(ctx context.Context, minMs, maxMs int) {
	delay := time.Duration(minMs+rand.Intn(maxMs-minMs)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func (h *BrowserHandler) handleConsent(page playwright.Page) {
	consentSelectors := []string{
		"button:has-text('Consent')",
		"button[id*='accept']",
		"button[class*='accept']",
		"button[class*='consent']",
		"#onetrust-accept-btn-handler",
		"#didomi-notice-agree-button",
		"button:has-text('Accept All')",
		"button:has-text('Accept')",
		"button:has-text('I Accept')",
		"button:has-text('Agree')",
	}

	for _, selector := range consentSelectors {
		btn := page.Locator(selector).First()
		if visible, _ := btn.IsVisible(); visible {
			h.log.Debug().Str("selector", selector).Msg("clicking consent button")
			btn.Click()
			page.WaitForTimeout(2000)
			break
		}
	}
}

// detectBlock returns the bot-wall phrase found in page content, if any.
func detectBlock(content string) string {
	triggers := []string{
		"Request unsuccessful. Incapsula",
		"Incapsula incident ID",
		"Access Denied",
		"This request was blocked",
		"Press & Hold to confirm you are",
	}
	for _, t := range triggers {
		if strings.Contains(content, t) {
			return t
		}
	}
	return ""
}
