package directlinks

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// AggregatorMarker identifies product URLs that point at a comparison page.
	AggregatorMarker = "google.com/shopping"

	retailerContainerSelector = "div.UAVKwf"
	retailerLinkSelector      = "a.UxuaJe"
)

// IsAggregatorURL reports whether a product URL needs direct-link extraction.
func IsAggregatorURL(productURL string) bool {
	return strings.Contains(productURL, AggregatorMarker)
}

// ParseRetailerURLs returns the distinct retailer URLs linked from an
// aggregator page, in page order.
func ParseRetailerURLs(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse aggregator page: %w", err)
	}

	var urls []string
	seen := map[string]bool{}
	doc.Find(retailerContainerSelector).Each(func(_ int, container *goquery.Selection) {
		href, ok := container.Find(retailerLinkSelector).First().Attr("href")
		if !ok || href == "" {
			return
		}
		actual, ok := ActualURL(href)
		if !ok || seen[actual] {
			return
		}
		seen[actual] = true
		urls = append(urls, actual)
	})

	return urls, nil
}

// ActualURL extracts the destination from a redirect link such as
// "/url?q=https://shop.example.com/p%3Fid%3D1&sa=U".
func ActualURL(redirect string) (string, bool) {
	parsed, err := url.Parse(redirect)
	if err != nil {
		return "", false
	}
	target := parsed.Query().Get("q")
	if target == "" {
		return "", false
	}
	if unescaped, err := url.QueryUnescape(target); err == nil {
		target = unescaped
	}
	return target, true
}

// RetailerDomain is the URL host without a leading "www.".
func RetailerDomain(retailerURL string) string {
	parsed, err := url.Parse(retailerURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

// RetailerName is the first label of the retailer domain, capitalized.
func RetailerName(retailerURL string) string {
	domain := strings.ToLower(RetailerDomain(retailerURL))
	if domain == "" {
		return "Unknown"
	}
	label, _, _ := strings.Cut(domain, ".")
	if label == "" {
		return "Unknown"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
