// Package sitescan takes a best-effort snapshot of a business's web
// presence. It never returns errors to callers: fetch or parse failures
// degrade to an empty snapshot with a status string, because an audit must
// complete even when the site is down.
package sitescan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"ekkoscope/internal/logger"
)

const (
	maxPages       = 3
	maxHeadings    = 10
	maxTitleLen    = 200
	maxMetaLen     = 300
	maxExcerptLen  = 2000
	maxBodyBytes   = 2 << 20
	defaultTimeout = 5 * time.Second

	userAgent = "Mozilla/5.0 (compatible; EkkoScope/1.0; +https://ekkoscope.ai)"
)

// Page is the extracted content of one fetched page.
type Page struct {
	URL             string   `json:"url"`
	Status          int      `json:"status"`
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	Headings        []string `json:"headings"`
	TextExcerpt     string   `json:"text_excerpt"`
}

// Snapshot holds the fetched pages and an overall fetch status:
// "success", "no_urls_configured", or "all_fetches_failed".
type Snapshot struct {
	Pages       []Page `json:"pages"`
	FetchStatus string `json:"fetch_status"`
}

// Used reports whether the snapshot contributed any content.
func (s Snapshot) Used() bool { return len(s.Pages) > 0 }

// Scanner fetches pages with a short timeout and redirect following.
type Scanner struct {
	client *http.Client
}

// NewScanner builds a scanner. A zero timeout uses the default.
func NewScanner(timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Scanner{client: &http.Client{Timeout: timeout}}
}

// FetchSnapshot fetches up to three key pages from the given domains
// (homepage first, then any important paths).
func (s *Scanner) FetchSnapshot(ctx context.Context, domains, importantPaths []string) Snapshot {
	snapshot := Snapshot{Pages: []Page{}, FetchStatus: "success"}

	urls := candidateURLs(domains, importantPaths)
	if len(urls) == 0 {
		snapshot.FetchStatus = "no_urls_configured"
		return snapshot
	}
	if len(urls) > maxPages {
		urls = urls[:maxPages]
	}

	for _, pageURL := range urls {
		page, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			logger.Get().Debugw("site scan page fetch failed", "url", pageURL, "error", err)
			continue
		}
		snapshot.Pages = append(snapshot.Pages, *page)
	}

	if len(snapshot.Pages) == 0 {
		snapshot.FetchStatus = "all_fetches_failed"
	}
	return snapshot
}

// candidateURLs normalizes domains into fetchable URLs, homepage first.
// Placeholder entries left over from onboarding templates are skipped.
func candidateURLs(domains, importantPaths []string) []string {
	var urls []string
	for _, domain := range domains {
		if domain == "" || strings.HasPrefix(domain, "AD_") || strings.Contains(domain, "_SITE_URL") {
			continue
		}

		base := domain
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			base = "https://" + base
		}
		base = strings.TrimRight(base, "/")

		urls = append(urls, base)
		for _, path := range importantPaths {
			if strings.HasPrefix(path, "/") {
				urls = append(urls, base+path)
			} else {
				urls = append(urls, base+"/"+path)
			}
		}
	}
	return urls
}

func (s *Scanner) fetchPage(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	page := &Page{URL: pageURL, Status: resp.StatusCode, Headings: []string{}}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	extractStructure(doc, page)

	if parsed, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil {
			page.TextExcerpt = truncate(collapseWhitespace(article.TextContent), maxExcerptLen)
			if page.Title == "" {
				page.Title = truncate(article.Title, maxTitleLen)
			}
		}
	}

	return page, nil
}

// extractStructure walks the parse tree collecting title, meta description,
// and the first h1-h3 headings.
func extractStructure(n *html.Node, page *Page) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if page.Title == "" {
				page.Title = truncate(collapseWhitespace(nodeText(n)), maxTitleLen)
			}
		case "meta":
			if page.MetaDescription == "" && attr(n, "name") == "description" {
				page.MetaDescription = truncate(attr(n, "content"), maxMetaLen)
			}
		case "h1", "h2", "h3":
			if len(page.Headings) < maxHeadings {
				if text := collapseWhitespace(nodeText(n)); text != "" {
					page.Headings = append(page.Headings, n.Data+": "+text)
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractStructure(c, page)
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// SummarizeContent renders a snapshot as plain text for inclusion in an LLM
// prompt.
func SummarizeContent(snapshot Snapshot) string {
	if len(snapshot.Pages) == 0 {
		return "Site content could not be retrieved for analysis."
	}

	parts := make([]string, 0, len(snapshot.Pages))
	for _, page := range snapshot.Pages {
		var sb strings.Builder
		fmt.Fprintf(&sb, "URL: %s\n", page.URL)
		fmt.Fprintf(&sb, "Title: %s\n", orDefault(page.Title, "No title"))
		if page.MetaDescription != "" {
			fmt.Fprintf(&sb, "Meta Description: %s\n", page.MetaDescription)
		}
		if len(page.Headings) > 0 {
			headings := page.Headings
			if len(headings) > 5 {
				headings = headings[:5]
			}
			fmt.Fprintf(&sb, "Headings: %s\n", strings.Join(headings, ", "))
		}
		if page.TextExcerpt != "" {
			fmt.Fprintf(&sb, "Content Preview: %s...\n", truncate(page.TextExcerpt, 800))
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n---\n")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
