package renderwatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// RodConfig configures a browser-backed render source.
type RodConfig struct {
	// SectionSelector matches the rendered section elements, in document
	// order. Default: ".markdown-preview-section > div".
	SectionSelector string
	// ParsingClass marks a section the renderer is still working on.
	// Default: "is-loading".
	ParsingClass string
	// NavigateTimeout bounds page load. Default: 30s.
	NavigateTimeout time.Duration
}

func (c *RodConfig) defaults() {
	if c.SectionSelector == "" {
		c.SectionSelector = ".markdown-preview-section > div"
	}
	if c.ParsingClass == "" {
		c.ParsingClass = "is-loading"
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
}

// RodSource adapts a live Rod page into a Source. Each Sections call reads
// the current DOM state; the page is never mutated.
type RodSource struct {
	page *rod.Page
	cfg  RodConfig
}

// NewRodSource wraps an already navigated page.
func NewRodSource(page *rod.Page, cfg RodConfig) *RodSource {
	cfg.defaults()
	return &RodSource{page: page, cfg: cfg}
}

// Sections reads the current rendered sections off the page.
func (s *RodSource) Sections(ctx context.Context) ([]Section, error) {
	els, err := s.page.Context(ctx).Elements(s.cfg.SectionSelector)
	if err != nil {
		return nil, fmt.Errorf("renderwatch: query sections: %w", err)
	}

	sections := make([]Section, 0, len(els))
	for _, el := range els {
		outer, err := el.HTML()
		if err != nil {
			return nil, fmt.Errorf("renderwatch: section html: %w", err)
		}
		text, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("renderwatch: section text: %w", err)
		}

		parsing := false
		if class, err := el.Attribute("class"); err == nil && class != nil {
			for _, c := range strings.Fields(*class) {
				if c == s.cfg.ParsingClass {
					parsing = true
					break
				}
			}
		}

		sections = append(sections, Section{HTML: outer, Parsing: parsing, Text: text})
	}
	return sections, nil
}

// OpenPage launches (or connects to) a browser and navigates to pageURL with
// stealth applied, returning the page ready for a RodSource. remoteURL empty
// launches a local headless browser.
func OpenPage(ctx context.Context, remoteURL, pageURL string, cfg RodConfig) (*rod.Page, func(), error) {
	cfg.defaults()

	var browser *rod.Browser
	var cleanupLauncher func()

	if remoteURL != "" {
		browser = rod.New().ControlURL(remoteURL)
	} else {
		l := launcher.New().Headless(true)
		wsURL, err := l.Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("renderwatch: launch browser: %w", err)
		}
		browser = rod.New().ControlURL(wsURL)
		cleanupLauncher = l.Cleanup
	}

	if err := browser.Context(ctx).Connect(); err != nil {
		if cleanupLauncher != nil {
			cleanupLauncher()
		}
		return nil, nil, fmt.Errorf("renderwatch: connect browser: %w", err)
	}

	cleanup := func() {
		browser.Close()
		if cleanupLauncher != nil {
			cleanupLauncher()
		}
	}

	page, err := stealth.Page(browser)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("renderwatch: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("renderwatch: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// Load timeouts are survivable; the detector copes with partial state.
		return page, cleanup, nil
	}

	return page, cleanup, nil
}
