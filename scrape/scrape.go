// Package scrape fetches a web page and extracts its main article text,
// standing in for the readability pass the vectorize endpoint needs when a
// caller hands it a URL instead of raw text.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	minContentLength = 50
	userAgent        = "Mozilla/5.0 (compatible; mindmapforge/1.0)"
)

// tagsToSkip are elements whose text content is never part of an article
// body.
var tagsToSkip = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true,
	"footer": true, "aside": true, "form": true, "noscript": true,
	"svg": true, "iframe": true, "button": true,
}

// Scraper fetches and extracts article text from arbitrary URLs.
type Scraper struct {
	client *http.Client
}

// New builds a Scraper with sane timeouts and a limited redirect policy.
func New() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
	}
}

// Fetch downloads url and returns its extracted article text.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("scrape: url must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("scrape: failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	slog.Info("scrape: fetching url", "url", url)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape: failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("scrape: url returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("scrape: failed to read response body: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("scrape: failed to parse HTML: %w", err)
	}

	text := extractText(doc)
	if len(text) < minContentLength {
		return "", fmt.Errorf("scrape: extracted content is too short, the page may require JavaScript to render")
	}

	slog.Info("scrape: extracted article", "url", url, "chars", len(text))
	return text, nil
}

// extractText walks the parsed document collecting block-level text,
// skipping navigation/script/style noise.
func extractText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && tagsToSkip[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				sb.WriteString(trimmed)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlockElement(n.Data) {
			sb.WriteString("\n")
		}
	}
	walk(doc)

	lines := strings.Split(sb.String(), "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "br", "tr", "section", "article", "blockquote":
		return true
	}
	return false
}
