package crawler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

// discoverSitemapURLs collects page URLs from the site's sitemaps. It
// reads Sitemap directives from robots.txt first, falling back to
// /sitemap.xml, and resolves sitemap indexes recursively.
func (c *Crawler) discoverSitemapURLs(ctx context.Context) ([]string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	sitemaps := c.sitemapsFromRobots(ctx, base)
	if len(sitemaps) == 0 {
		sitemaps = []string{base.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()}
	}

	seen := make(map[string]bool)
	var pages []string
	pageSeen := make(map[string]bool)
	for _, sitemapURL := range sitemaps {
		urls, err := c.walkSitemap(ctx, sitemapURL, seen)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			if !pageSeen[u] {
				pageSeen[u] = true
				pages = append(pages, u)
			}
		}
	}
	return pages, nil
}

func (c *Crawler) sitemapsFromRobots(ctx context.Context, base *url.URL) []string {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	body, err := c.fetch(ctx, robotsURL)
	if err != nil {
		return nil
	}
	defer body.Close()

	var sitemaps []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			if sitemapURL := strings.TrimSpace(line[len("sitemap:"):]); sitemapURL != "" {
				sitemaps = append(sitemaps, sitemapURL)
			}
		}
	}
	return sitemaps
}

func (c *Crawler) walkSitemap(ctx context.Context, sitemapURL string, seen map[string]bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	body, err := c.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, nil
	}
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil
	}

	switch root.Tag {
	case "urlset":
		var urls []string
		for _, el := range root.SelectElements("url") {
			if loc := el.SelectElement("loc"); loc != nil {
				if u := strings.TrimSpace(loc.Text()); u != "" {
					urls = append(urls, u)
				}
			}
		}
		return urls, nil
	case "sitemapindex":
		var urls []string
		for _, el := range root.SelectElements("sitemap") {
			loc := el.SelectElement("loc")
			if loc == nil {
				continue
			}
			nested, err := c.walkSitemap(ctx, strings.TrimSpace(loc.Text()), seen)
			if err != nil {
				return nil, err
			}
			urls = append(urls, nested...)
		}
		return urls, nil
	default:
		return nil, nil
	}
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}
