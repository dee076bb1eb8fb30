// Package neo4j keeps the documentation link graph: pages and the
// LINKS_TO edges between them, used for related-page lookups.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

type LinkGraph struct {
	driver neo4j.DriverWithContext
}

func New(ctx context.Context, uri, username, password string) (*LinkGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &LinkGraph{driver: driver}, nil
}

func (g *LinkGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// SaveOutlinks upserts the page node and replaces its outgoing edges
// with the current outlink set.
func (g *LinkGraph) SaveOutlinks(ctx context.Context, pageURL, title string, outlinks []string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
MERGE (p:Page {url: $url})
SET p.title = $title
WITH p
OPTIONAL MATCH (p)-[r:LINKS_TO]->()
DELETE r
`, map[string]any{"url": pageURL, "title": title}); err != nil {
			return nil, err
		}

		if len(outlinks) == 0 {
			return nil, nil
		}
		_, err := tx.Run(ctx, `
MATCH (p:Page {url: $url})
UNWIND $outlinks AS target
MERGE (t:Page {url: target})
MERGE (p)-[:LINKS_TO]->(t)
`, map[string]any{"url": pageURL, "outlinks": outlinks})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("save outlinks for %s: %w", pageURL, err)
	}
	return nil
}

// RelatedPages returns direct graph neighbours of a page in either
// direction, most-connected first.
func (g *LinkGraph) RelatedPages(ctx context.Context, pageURL string, limit int) ([]domain.RelatedPage, error) {
	if limit <= 0 {
		limit = 5
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
MATCH (p:Page {url: $url})-[:LINKS_TO]-(related:Page)
WHERE related.url <> $url
WITH related, count(*) AS links
ORDER BY links DESC, related.url
LIMIT $limit
RETURN related.url AS url, coalesce(related.title, '') AS title
`, map[string]any{"url": pageURL, "limit": limit})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("query related pages for %s: %w", pageURL, err)
	}

	rows, ok := records.([]*neo4j.Record)
	if !ok {
		return nil, nil
	}

	pages := make([]domain.RelatedPage, 0, len(rows))
	for _, record := range rows {
		url, _ := record.Get("url")
		title, _ := record.Get("title")
		page := domain.RelatedPage{}
		if s, ok := url.(string); ok {
			page.URL = s
		}
		if s, ok := title.(string); ok {
			page.Title = s
		}
		if page.URL != "" {
			pages = append(pages, page)
		}
	}
	return pages, nil
}
