package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// parsedPage is the intermediate extraction result for one HTML page.
type parsedPage struct {
	Title    string
	Text     string
	Outlinks []string
}

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// parseHTMLPage extracts title, main content as markdown and same-host
// outlinks from an HTML body. Non-UTF-8 encodings are transcoded from
// the Content-Type charset declaration.
func (c *Crawler) parseHTMLPage(pageURL string, body io.Reader, contentType string) (*parsedPage, error) {
	decoded, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode page charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}

	rawHTML, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("serialize page content: %w", err)
	}

	text := ""
	if strings.TrimSpace(rawHTML) != "" {
		markdown, err := c.converter.ConvertString(rawHTML)
		if err != nil {
			// Keep the page with a plain-text fallback rather than
			// losing it.
			text = strings.TrimSpace(content.Text())
		} else {
			text = strings.TrimSpace(markdown)
		}
	}

	return &parsedPage{
		Title:    title,
		Text:     text,
		Outlinks: c.collectOutlinks(pageURL, doc),
	}, nil
}

// collectOutlinks returns absolute same-host links in document order,
// deduplicated and with fragments stripped.
func (c *Crawler) collectOutlinks(pageURL string, doc *goquery.Document) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var outlinks []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if resolved.Host != base.Host {
			return
		}
		resolved.Fragment = ""
		link := resolved.String()
		if link == pageURL || seen[link] {
			return
		}
		seen[link] = true
		outlinks = append(outlinks, link)
	})
	return outlinks
}
