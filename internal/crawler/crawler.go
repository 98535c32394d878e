package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// Options configures the crawler behavior
type Options struct {
	Width      int
	Height     int
	Timeout    time.Duration
	Source     string // SourceAria or SourceDOM
	Headful    bool
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions
}

// Browser wraps the Rod browser and page for reuse
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	opts    Options
}

// Close cleans up browser resources
func (b *Browser) Close() {
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
}

// Page returns the underlying Rod page
func (b *Browser) Page() *rod.Page {
	return b.page
}

// Open launches Chromium and loads url.
func Open(ctx context.Context, url string, opts Options) (*Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if opts.Source == "" {
		opts.Source = SourceAria
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(!opts.Headful)

	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		b := &Browser{browser: browser, page: page}
		b.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return &Browser{browser: browser, page: page, opts: opts}, nil
}

// Capture waits for the page to settle and extracts its elements.
func (b *Browser) Capture() (*PageMap, error) {
	page := b.page.Timeout(b.opts.Timeout)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page did not finish loading: %w", err)
	}

	// Don't hang on persistent connections (WebSockets, polling)
	b.page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	// SPAs need time to hydrate before interactive elements exist
	waitForInteractiveElements(b.page, 5*time.Second)

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read page info: %w", err)
	}

	pm := &PageMap{URL: info.URL, Title: info.Title, Source: b.opts.Source}
	switch b.opts.Source {
	case SourceDOM:
		elements, err := extractElements(page)
		if err != nil {
			return nil, err
		}
		pm.Elements = elements
	default:
		text, err := ariaSnapshot(page)
		if err != nil {
			return nil, err
		}
		pm.Snapshot = text
		pm.Elements = snapshot.Parse(text)
	}
	return pm, nil
}

func ariaSnapshot(page *rod.Page) (string, error) {
	if err := (proto.AccessibilityEnable{}).Call(page); err != nil {
		return "", fmt.Errorf("failed to enable accessibility domain: %w", err)
	}
	tree, err := proto.AccessibilityGetFullAXTree{}.Call(page)
	if err != nil {
		return "", fmt.Errorf("failed to read accessibility tree: %w", err)
	}
	return FormatAXTree(tree.Nodes), nil
}

// waitForInteractiveElements polls until interactive elements appear or timeout
func waitForInteractiveElements(page *rod.Page, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	checkInterval := 200 * time.Millisecond

	for time.Now().Before(deadline) {
		res, err := page.Eval(`() => document.querySelectorAll(
			'button, [role="button"], input:not([type="hidden"]), textarea, select, a[href]').length`)
		if err != nil {
			return
		}
		if res.Value.Int() > 0 {
			time.Sleep(300 * time.Millisecond)
			return
		}
		time.Sleep(checkInterval)
	}
}

// extractElements walks the live DOM and returns tracked elements linked to
// their nearest tracked ancestor.
func extractElements(page *rod.Page) ([]*snapshot.ElementRecord, error) {
	result, err := page.Eval(`() => {
		const tracked = 'button, a[href], input:not([type="hidden"]), textarea, select, nav, form, ' +
			'h1, h2, h3, h4, h5, h6, main, header, footer, aside, section, article, dialog, img, summary, label, [role]';
		const nodes = Array.from(document.querySelectorAll(tracked));
		const index = new Map(nodes.map((el, i) => [el, i]));

		function parentIndex(el) {
			for (let p = el.parentElement; p; p = p.parentElement) {
				if (index.has(p)) return index.get(p);
			}
			return -1;
		}

		function visible(el) {
			const style = window.getComputedStyle(el);
			if (style.display === 'none' || style.visibility === 'hidden') return false;
			return el.getClientRects().length > 0;
		}

		return nodes.map(el => {
			const tag = el.tagName.toLowerCase();
			let text = '';
			if (tag === 'img') text = el.getAttribute('alt') || '';
			else if (tag === 'input') text = ['submit', 'button', 'reset'].includes(el.type) ? el.value : '';
			else if (/^(button|a|summary|label|h[1-6])$/.test(tag) || el.getAttribute('role')) text = el.innerText || '';
			if (!text) text = el.getAttribute('aria-label') || '';
			return {
				tag: tag,
				id: el.id || '',
				className: typeof el.className === 'string' ? el.className.trim().split(/\s+/).join(' ') : '',
				role: el.getAttribute('role') || '',
				ariaLabel: el.getAttribute('aria-label') || '',
				placeholder: el.getAttribute('placeholder') || '',
				href: el.getAttribute('href') || '',
				text: text.replace(/\s+/g, ' ').trim(),
				visible: visible(el),
				parent: parentIndex(el),
			};
		});
	}`)
	if err != nil {
		return nil, fmt.Errorf("failed to extract DOM elements: %w", err)
	}

	var elements []*snapshot.ElementRecord
	for _, v := range result.Value.Arr() {
		tag := v.Get("tag").String()
		role := v.Get("role").String()
		typ := snapshot.ParseElementType(tag)
		if role != "" {
			typ = snapshot.ParseElementType(role)
		}

		el := snapshot.NewElement(typ, v.Get("text").String())
		el.TagName = tag
		el.ID = v.Get("id").String()
		el.ClassName = v.Get("className").String()
		el.Role = role
		el.AriaLabel = v.Get("ariaLabel").String()
		el.Placeholder = v.Get("placeholder").String()
		el.Href = v.Get("href").String()
		el.Visible = v.Get("visible").Bool()

		// Parents always precede children in document order.
		if p := v.Get("parent").Int(); p >= 0 && p < len(elements) {
			elements[p].AddChild(el)
		} else {
			el.Derive()
		}
		elements = append(elements, el)
	}
	return elements, nil
}
