// File: internal/listing/sitemap.go
package listing

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap renders the frontend home, every unsold shoe and every seller
// profile as a sitemaps.org urlset.
func (s *ServiceImplementation) Sitemap(ctx context.Context) ([]byte, error) {
	base := strings.TrimRight(s.cfg.FrontendURL, "/")

	shoes, err := s.repo.ListUnsold(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shoes for sitemap: %w", err)
	}
	usernames, err := s.users.ListUsernames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers for sitemap: %w", err)
	}

	set := urlSet{Xmlns: sitemapNamespace}
	set.URLs = append(set.URLs, sitemapURL{Loc: base + "/", ChangeFreq: "daily", Priority: "1.0"})
	for _, shoe := range shoes {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/shoes/%s", base, shoe.ID),
			LastMod:    shoe.UpdatedAt.UTC().Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	for _, username := range usernames {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/seller/%s", base, url.PathEscape(username)),
			ChangeFreq: "weekly",
			Priority:   "0.5",
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
