// Package crawler walks a documentation site and extracts page text for
// indexing.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
	"github.com/kirillkom/docs-assistant/internal/core/ports"
)

const maxBodyBytes = 10 << 20

// AttachmentExtractor turns a binary attachment into indexable text.
type AttachmentExtractor interface {
	Extract(r io.Reader) (string, error)
}

type Config struct {
	BaseURL     string
	MaxPages    int
	Concurrency int
	RPS         float64
}

type Crawler struct {
	baseURL     string
	maxPages    int
	concurrency int

	httpClient *http.Client
	limiter    *rate.Limiter
	converter  *converter.Converter

	snapshots   ports.SnapshotStorage
	attachments map[string]AttachmentExtractor
	logger      *slog.Logger
}

// New builds a crawler. The attachments map is keyed by lowercased file
// extension including the dot, e.g. ".pdf".
func New(cfg Config, snapshots ports.SnapshotStorage, attachments map[string]AttachmentExtractor, logger *slog.Logger) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	return &Crawler{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		maxPages:    cfg.MaxPages,
		concurrency: cfg.Concurrency,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		converter:   newMarkdownConverter(),
		snapshots:   snapshots,
		attachments: attachments,
		logger:      logger,
	}
}

// Crawl walks the site. Sitemap URLs are preferred; when the site has no
// usable sitemap the crawler falls back to a breadth-first walk over
// same-host outlinks from the base URL.
func (c *Crawler) Crawl(ctx context.Context) ([]domain.CrawledPage, error) {
	urls, err := c.discoverSitemapURLs(ctx)
	if err != nil {
		c.logger.Warn("sitemap discovery failed, falling back to link walk", "error", err)
	}
	if len(urls) > 0 {
		return c.crawlList(ctx, urls)
	}
	return c.crawlWalk(ctx)
}

// crawlList fetches a known URL list concurrently.
func (c *Crawler) crawlList(ctx context.Context, urls []string) ([]domain.CrawledPage, error) {
	if len(urls) > c.maxPages {
		urls = urls[:c.maxPages]
	}

	seen := bloom.NewWithEstimates(uint(c.maxPages)*4, 0.01)
	var mu sync.Mutex
	var pages []domain.CrawledPage

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, pageURL := range urls {
		mu.Lock()
		duplicate := seen.TestString(pageURL)
		if !duplicate {
			seen.AddString(pageURL)
		}
		mu.Unlock()
		if duplicate {
			continue
		}

		g.Go(func() error {
			page, err := c.fetchPage(gctx, pageURL)
			if err != nil {
				c.logger.Warn("page fetch failed", "url", pageURL, "error", err)
				return nil
			}
			if page == nil {
				return nil
			}
			mu.Lock()
			pages = append(pages, *page)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// crawlWalk is the sitemap-less fallback: a breadth-first walk over
// outlinks starting at the base URL.
func (c *Crawler) crawlWalk(ctx context.Context) ([]domain.CrawledPage, error) {
	seen := bloom.NewWithEstimates(uint(c.maxPages)*4, 0.01)
	frontier := []string{c.baseURL + "/"}
	seen.AddString(frontier[0])

	var pages []domain.CrawledPage
	for len(frontier) > 0 && len(pages) < c.maxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := frontier[0]
		frontier = frontier[1:]

		page, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			c.logger.Warn("page fetch failed", "url", pageURL, "error", err)
			continue
		}
		if page == nil {
			continue
		}
		pages = append(pages, *page)

		for _, link := range page.Outlinks {
			if seen.TestString(link) {
				continue
			}
			seen.AddString(link)
			frontier = append(frontier, link)
		}
	}
	return pages, nil
}

// fetchPage downloads one URL and extracts its text. Attachments go
// through the matching extractor; unknown binary content is skipped with
// a nil page.
func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*domain.CrawledPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, contentType, err := c.fetchWithType(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	c.saveSnapshot(ctx, pageURL, body)

	if extractor := c.attachmentFor(pageURL); extractor != nil {
		text, err := extractor.Extract(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, nil
		}
		return &domain.CrawledPage{
			URL:   pageURL,
			Title: path.Base(pageURL),
			Text:  text,
		}, nil
	}

	if !strings.Contains(contentType, "html") {
		return nil, nil
	}

	parsed, err := c.parseHTMLPage(pageURL, bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	if parsed.Text == "" {
		return nil, nil
	}
	return &domain.CrawledPage{
		URL:      pageURL,
		Title:    parsed.Title,
		Text:     parsed.Text,
		Outlinks: parsed.Outlinks,
	}, nil
}

func (c *Crawler) fetchWithType(ctx context.Context, pageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %s", pageURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

func (c *Crawler) saveSnapshot(ctx context.Context, pageURL string, body []byte) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Save(ctx, pageURL, bytes.NewReader(body)); err != nil {
		c.logger.Warn("snapshot save failed", "url", pageURL, "error", err)
	}
}

func (c *Crawler) attachmentFor(pageURL string) AttachmentExtractor {
	if len(c.attachments) == 0 {
		return nil
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return c.attachments[ext]
}
