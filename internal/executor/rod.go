package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/crawler"
)

// RodDriver drives a crawler.Browser.
type RodDriver struct {
	browser *crawler.Browser
	timeout time.Duration
}

// NewRodDriver wraps b. timeout bounds each element lookup.
func NewRodDriver(b *crawler.Browser, timeout time.Duration) *RodDriver {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &RodDriver{browser: b, timeout: timeout}
}

func (d *RodDriver) page(ctx context.Context) *rod.Page {
	return d.browser.Page().Context(ctx).Timeout(d.timeout)
}

// Click clicks the element matching selector.
func (d *RodDriver) Click(ctx context.Context, selector string) error {
	el, err := findElement(d.page(ctx), selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Type focuses the element and types text into it.
func (d *RodDriver) Type(ctx context.Context, selector, text string) error {
	el, err := findElement(d.page(ctx), selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

// Hover moves the mouse over the element.
func (d *RodDriver) Hover(ctx context.Context, selector string) error {
	el, err := findElement(d.page(ctx), selector)
	if err != nil {
		return err
	}
	return el.Hover()
}

// Scroll scrolls the element into view, or the page by (x, y).
func (d *RodDriver) Scroll(ctx context.Context, selector string, x, y int) error {
	page := d.page(ctx)
	if selector != "" {
		el, err := findElement(page, selector)
		if err != nil {
			return err
		}
		return el.ScrollIntoView()
	}
	return page.Mouse.Scroll(float64(x), float64(y), 5)
}

// Navigate loads url and waits for the load event.
func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	page := d.browser.Page().Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// Capture extracts the current page state.
func (d *RodDriver) Capture(ctx context.Context) (*crawler.PageMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.browser.Capture()
}

// impliedRoles maps roles to the native elements that carry them implicitly.
var impliedRoles = map[string]string{
	"button":     "button",
	"link":       "a[href]",
	"textbox":    `input:not([type]), input[type="text"], input[type="email"], input[type="password"], textarea`,
	"navigation": "nav",
	"heading":    "h1, h2, h3, h4, h5, h6",
	"form":       "form",
	"img":        "img",
}

// findElement resolves the selector forms tests use: text=..., role=... or CSS.
func findElement(page *rod.Page, selector string) (*rod.Element, error) {
	var (
		el  *rod.Element
		err error
	)
	switch {
	case strings.HasPrefix(selector, "text="):
		el, err = page.ElementX(textXPath(unquote(strings.TrimPrefix(selector, "text="))))
	case strings.HasPrefix(selector, "role="):
		el, err = page.Element(roleCSS(strings.TrimPrefix(selector, "role=")))
	default:
		el, err = page.Element(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el, nil
}

func roleCSS(role string) string {
	if i := strings.IndexAny(role, "[ "); i >= 0 {
		role = role[:i]
	}
	css := fmt.Sprintf(`[role="%s"]`, role)
	if native, ok := impliedRoles[role]; ok {
		css += ", " + native
	}
	return css
}

// textXPath selects the innermost element whose text contains text.
func textXPath(text string) string {
	lit := xpathLiteral(text)
	return fmt.Sprintf(`//body//*[contains(normalize-space(.), %s)][not(.//*[contains(normalize-space(.), %s)])]`, lit, lit)
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
