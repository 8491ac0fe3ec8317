package urlqueue

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
)

// maxSitemapDepth bounds how many sitemap indexes are followed.
const maxSitemapDepth = 3

type sitemapDoc struct {
	XMLName  xml.Name
	Sitemaps []SitemapEntry `xml:"sitemap"`
	URLs     []SitemapEntry `xml:"url"`
}

type SitemapEntry struct {
	Loc string `xml:"loc"`
}

// ParseSitemap returns the page URLs listed by a sitemap. Sitemap indexes
// are followed; a nested sitemap that fails to load is skipped.
func ParseSitemap(ctx context.Context, client *http.Client, sitemapURL string) ([]string, error) {
	return parseSitemap(ctx, client, sitemapURL, 0)
}

func parseSitemap(ctx context.Context, client *http.Client, sitemapURL string, depth int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap %s: HTTP %d", sitemapURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var doc sitemapDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("sitemap %s: %w", sitemapURL, err)
	}

	var urls []string
	for _, u := range doc.URLs {
		if u.Loc != "" {
			urls = append(urls, u.Loc)
		}
	}

	if len(doc.Sitemaps) > 0 && depth < maxSitemapDepth {
		log.Printf("Found %d nested sitemaps in %s", len(doc.Sitemaps), sitemapURL)
		for _, s := range doc.Sitemaps {
			nested, err := parseSitemap(ctx, client, s.Loc, depth+1)
			if err != nil {
				log.Printf("Skipping sitemap %s: %v", s.Loc, err)
				continue
			}
			urls = append(urls, nested...)
		}
	}

	return urls, nil
}
