package directlinks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fitfind/fitfind/internal/results"
)

// productRef points at one product inside a []results.ClothingItem.
type productRef struct {
	item, product int
}

// Enricher fills CleanedProduct.DirectLinks for products whose URL points at
// an aggregator page.
type Enricher struct {
	scraper *Scraper
	now     func() time.Time
}

func NewEnricher(scraper *Scraper) *Enricher {
	return &Enricher{scraper: scraper, now: time.Now}
}

// Enrich returns a copy of items where every product has a non-nil
// DirectLinks slice. Each distinct aggregator URL is scraped once and its
// retailer links are shared by all products that point at it.
func (e *Enricher) Enrich(ctx context.Context, items []results.ClothingItem) ([]results.ClothingItem, Stats) {
	out := make([]results.ClothingItem, len(items))
	byURL := map[string][]productRef{}
	var urls []string

	for i, item := range items {
		out[i] = item
		out[i].Products = make([]results.CleanedProduct, len(item.Products))
		for j, p := range item.Products {
			p.DirectLinks = []results.DirectLink{}
			out[i].Products[j] = p
			if !IsAggregatorURL(p.ProductURL) {
				continue
			}
			if _, ok := byURL[p.ProductURL]; !ok {
				urls = append(urls, p.ProductURL)
			}
			byURL[p.ProductURL] = append(byURL[p.ProductURL], productRef{i, j})
		}
	}

	if len(urls) == 0 {
		log.Info().Msg("no aggregator urls to scrape")
		return out, Stats{StartedAt: e.now(), FinishedAt: e.now()}
	}

	log.Info().Int("urls", len(urls)).Int("products", countRefs(byURL)).Msg("extracting direct links")
	scraped, stats := e.scraper.ScrapeAll(ctx, urls)

	createdAt := e.now().UTC()
	for _, r := range scraped {
		if !r.Success {
			continue
		}
		for _, ref := range byURL[r.URL] {
			out[ref.item].Products[ref.product].DirectLinks = buildLinks(r.RetailerURLs, createdAt)
		}
	}

	return out, stats
}

func buildLinks(retailerURLs []string, createdAt time.Time) []results.DirectLink {
	links := make([]results.DirectLink, 0, len(retailerURLs))
	for i, u := range retailerURLs {
		links = append(links, results.DirectLink{
			ID:             fmt.Sprintf("dl_live_%d", i),
			RetailerURL:    u,
			RetailerName:   RetailerName(u),
			RetailerDomain: RetailerDomain(u),
			IsActive:       true,
			CreatedAt:      createdAt,
		})
	}
	return links
}

func countRefs(m map[string][]productRef) int {
	n := 0
	for _, refs := range m {
		n += len(refs)
	}
	return n
}

// ClearLinks returns a copy of items with an empty DirectLinks slice on every
// product.
func ClearLinks(items []results.ClothingItem) []results.ClothingItem {
	out := make([]results.ClothingItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Products = make([]results.CleanedProduct, len(item.Products))
		for j, p := range item.Products {
			p.DirectLinks = []results.DirectLink{}
			out[i].Products[j] = p
		}
	}
	return out
}
