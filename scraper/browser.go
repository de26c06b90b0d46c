package scraper

import (
	"context"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"nz_propper/config"
	"nz_propper/models"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BrowserGateway fetches listing pages with a real browser. The valuation
// widget renders client-side, so a plain HTTP GET sees none of it.
//
// Failure handling follows the Gateway contract: whatever goes wrong, the
// caller gets an empty snapshot, never an error.
type BrowserGateway struct {
	cfg *config.ScraperConfig

	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	initialized bool
	lastFetch   time.Time
}

func NewBrowserGateway(cfg *config.ScraperConfig) *BrowserGateway {
	return &BrowserGateway{cfg: cfg}
}

// Fetch loads the listing page and extracts its market snapshot. One retry
// on failure, then give up and return an empty snapshot.
func (g *BrowserGateway) Fetch(ctx context.Context, listingURL string) *models.MarketSnapshot {
	if listingURL == "" {
		return &models.MarketSnapshot{FetchedAt: time.Now()}
	}

	g.rateLimit(ctx)

	const maxAttempts = 2
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		snap, err := g.fetchOnce(ctx, listingURL)
		if err == nil {
			return snap
		}
		log.Printf("[scraper] attempt %d/%d failed for %s: %v", attempt, maxAttempts, listingURL, err)

		if attempt < maxAttempts {
			select {
			case <-time.After(g.retryDelay()):
			case <-ctx.Done():
				return &models.MarketSnapshot{FetchedAt: time.Now()}
			}
		}
	}

	return &models.MarketSnapshot{FetchedAt: time.Now()}
}

func (g *BrowserGateway) fetchOnce(ctx context.Context, listingURL string) (*models.MarketSnapshot, error) {
	browser, err := g.ensureBrowser()
	if err != nil {
		return nil, err
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return nil, err
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, err
	}

	// Prefer the load event; fall back to domcontentloaded, which the
	// target site reaches even when a straggling tracker never loads.
	_, err = page.Goto(listingURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(g.cfg.NavTimeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		_, err = page.Goto(listingURL, playwright.PageGotoOptions{
			Timeout:   playwright.Float(float64(g.cfg.NavTimeout.Milliseconds() / 2)),
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		})
		if err != nil {
			return nil, err
		}
	}

	page.WaitForTimeout(2000)
	g.slowScroll(page)

	html, err := page.Content()
	if err != nil {
		return nil, err
	}

	text, err := ExtractPageText(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	snap := ParseSnapshot(text, time.Now())
	if snap.EstimateRange != nil {
		log.Printf("[scraper] %s: estimate $%.0f - $%.0f, %d sold comparables",
			listingURL, snap.EstimateRange.Low, snap.EstimateRange.High, len(snap.SoldPrices))
	} else {
		log.Printf("[scraper] %s: no estimate found (%d sold comparables)", listingURL, len(snap.SoldPrices))
	}
	return snap, nil
}

func (g *BrowserGateway) ensureBrowser() (playwright.Browser, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return g.browser, nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(g.cfg.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, err
	}

	g.pw = pw
	g.browser = browser
	g.initialized = true
	return browser, nil
}

// slowScroll nudges the page down in steps so lazily rendered sections
// (the valuation widget, sold comparables) make it into the DOM.
func (g *BrowserGateway) slowScroll(page playwright.Page) {
	const step = 300

	heightVal, err := page.Evaluate(`document.body.scrollHeight`)
	if err != nil {
		return
	}
	height, _ := heightVal.(int)

	for pos := 0; pos < height; pos += step {
		page.Evaluate(`window.scrollTo(0, ` + strconv.Itoa(pos) + `)`)
		page.WaitForTimeout(300)

		if newVal, err := page.Evaluate(`document.body.scrollHeight`); err == nil {
			if newHeight, ok := newVal.(int); ok && newHeight > height {
				height = newHeight
			}
		}
	}
	page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`)
	page.WaitForTimeout(1000)
}

// rateLimit enforces a randomized gap between page fetches.
func (g *BrowserGateway) rateLimit(ctx context.Context) {
	g.mu.Lock()
	last := g.lastFetch
	g.lastFetch = time.Now()
	g.mu.Unlock()

	if last.IsZero() {
		return
	}

	min, max := g.cfg.MinDelay, g.cfg.MaxDelay
	delay := min + time.Duration(rand.Int63n(int64(max-min)+1))
	if elapsed := time.Since(last); elapsed < delay {
		select {
		case <-time.After(delay - elapsed):
		case <-ctx.Done():
		}
	}
}

func (g *BrowserGateway) retryDelay() time.Duration {
	return 2*time.Second + time.Duration(rand.Int63n(int64(2*time.Second)))
}

// Close shuts the browser down. Safe to call when never started.
func (g *BrowserGateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.browser != nil {
		g.browser.Close()
		g.browser = nil
	}
	if g.pw != nil {
		g.pw.Stop()
		g.pw = nil
	}
	g.initialized = false
}
