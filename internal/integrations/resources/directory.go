// Package resources reads community resource listings from a directory page.
package resources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/oasis-app/oasis-service/internal/config"
	"github.com/oasis-app/oasis-service/internal/models"
)

// Directory scrapes a configured HTML listing into CommunityResources.
type Directory struct {
	cfg    config.DirectoryConfig
	client *http.Client
	log    *logrus.Logger
}

// NewDirectory builds a directory reader. A nil client uses a 15s timeout.
func NewDirectory(cfg config.DirectoryConfig, client *http.Client, log *logrus.Logger) *Directory {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Directory{cfg: cfg, client: client, log: log}
}

// List fetches the directory and returns resources, optionally filtered by a
// case-insensitive category.
func (d *Directory) List(ctx context.Context, category string) ([]models.CommunityResource, error) {
	if d.cfg.URL == "" {
		return nil, fmt.Errorf("resource directory URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "OasisResourceBot/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse directory page: %w", err)
	}

	base, _ := url.Parse(d.cfg.URL)
	all := d.parse(doc, base)
	d.log.Debugf("Parsed %d resources from %s", len(all), d.cfg.URL)

	return filterCategory(all, category), nil
}

func (d *Directory) parse(doc *goquery.Document, base *url.URL) []models.CommunityResource {
	out := make([]models.CommunityResource, 0)
	doc.Find(d.cfg.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		name := cleanText(item.Find(d.cfg.NameSelector).First().Text())
		if name == "" {
			return
		}
		res := models.CommunityResource{
			Name:     name,
			Category: strings.ToLower(cleanText(item.Find(d.cfg.CategorySelector).First().Text())),
			Address:  cleanText(item.Find(d.cfg.AddressSelector).First().Text()),
			Phone:    cleanText(item.Find(d.cfg.PhoneSelector).First().Text()),
		}
		if href, ok := item.Find("a[href]").First().Attr("href"); ok {
			res.URL = resolve(base, href)
		}
		out = append(out, res)
	})
	return out
}

func filterCategory(all []models.CommunityResource, category string) []models.CommunityResource {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return all
	}
	out := make([]models.CommunityResource, 0, len(all))
	for _, r := range all {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
