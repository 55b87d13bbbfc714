package results

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fitfind/fitfind/internal/shopping"
)

const (
	maxTitleLen      = 100
	untitledProduct  = "Untitled Product"
	unknownSource    = "Unknown"
	unknownProductID = "unknown"
	noResultsError   = "No shopping results found"
)

var (
	percentRe = regexp.MustCompile(`(\d+)%`)
	numberRe  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// Clean turns raw result sets into clothing items plus a summary. Failed or
// empty result sets are recorded as error items and produce no clothing item.
func Clean(sets []shopping.RawResultSet) CleanedData {
	data := CleanedData{
		ClothingItems: []ClothingItem{},
		Summary:       Summary{ErrorItems: []ErrorItem{}},
	}

	for _, set := range sets {
		if set.Failed() {
			msg := set.Error
			if msg == "" {
				msg = noResultsError
			}
			data.Summary.ErrorItems = append(data.Summary.ErrorItems, ErrorItem{Query: set.Query, Error: msg})
			continue
		}

		item := ClothingItem{
			Query:    set.Query,
			ItemType: ExtractItemType(set.Query),
			Products: make([]CleanedProduct, 0, len(set.Products)),
		}
		for _, raw := range set.Products {
			item.Products = append(item.Products, CleanProduct(raw))
		}
		item.TotalProducts = len(item.Products)
		item.PriceRange = priceRange(item.Products)

		data.ClothingItems = append(data.ClothingItems, item)
		data.Summary.TotalProducts += item.TotalProducts
	}

	data.Summary.TotalItems = len(data.ClothingItems)
	data.Summary.HasErrors = len(data.Summary.ErrorItems) > 0
	return data
}

// CleanProduct normalizes one raw shopping result.
func CleanProduct(raw shopping.RawProduct) CleanedProduct {
	p := CleanedProduct{
		ID:           productID(raw),
		Title:        cleanTitle(raw.Title),
		Price:        strings.TrimSpace(raw.Price),
		OldPrice:     stripWasLabel(raw.OldPrice),
		ImageURL:     firstNonEmpty(raw.Thumbnail, first(raw.Thumbnails), first(raw.SerpAPIThumbnails)),
		ProductURL:   firstNonEmpty(raw.ProductLink, raw.Link),
		Source:       firstNonEmpty(strings.TrimSpace(raw.Source), unknownSource),
		SourceIcon:   raw.SourceIcon,
		DeliveryInfo: firstNonEmpty(raw.Delivery, raw.Shipping),
		Tags:         collectTags(raw.Tag, raw.Extensions),
	}

	p.PriceNumeric = resolvePrice(raw.ExtractedPrice, p.Price)
	p.OldPriceNumeric = resolvePrice(raw.ExtractedOldPrice, p.OldPrice)
	p.DiscountPercentage = discount(p.Tags, p.PriceNumeric, p.OldPriceNumeric)
	p.Rating = cleanRating(raw.Rating)
	p.ReviewCount = cleanReviews(raw.Reviews)

	return p
}

func productID(raw shopping.RawProduct) string {
	if raw.ProductID != "" {
		return raw.ProductID
	}
	if raw.Position > 0 {
		return strconv.Itoa(raw.Position)
	}
	return unknownProductID
}

func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return untitledProduct
	}
	runes := []rune(title)
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen-3]) + "..."
	}
	return title
}

func stripWasLabel(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "was ") {
		s = strings.TrimSpace(s[4:])
	}
	return s
}

// resolvePrice prefers the API's extracted number and falls back to parsing
// the display string. Non-positive prices are treated as unknown.
func resolvePrice(extracted shopping.Number, display string) *float64 {
	if v, ok := extracted.Float64(); ok && v > 0 {
		return &v
	}
	m := numberRe.FindString(display)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func discount(tags []string, price, oldPrice *float64) string {
	for _, tag := range tags {
		if !strings.Contains(tag, "%") || !strings.Contains(strings.ToUpper(tag), "OFF") {
			continue
		}
		if m := percentRe.FindStringSubmatch(tag); m != nil {
			return m[1] + "% OFF"
		}
	}
	if price != nil && oldPrice != nil && *oldPrice > *price {
		pct := math.Round((*oldPrice - *price) / *oldPrice * 100)
		return fmt.Sprintf("%d%% OFF", int(pct))
	}
	return ""
}

func cleanRating(n shopping.Number) *float64 {
	v, ok := n.Float64()
	if !ok || math.IsNaN(v) || v < 0 || v > 5 {
		return nil
	}
	v = math.Round(v*10) / 10
	return &v
}

func cleanReviews(n shopping.Number) *int {
	s := strings.ReplaceAll(string(n), ",", "")
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 {
			return nil
		}
		return &v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := int(f)
	return &v
}

func collectTags(tag string, extensions []string) []string {
	tags := []string{}
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		tags = append(tags, s)
	}
	add(tag)
	for _, ext := range extensions {
		add(ext)
	}
	return tags
}

func priceRange(products []CleanedProduct) *PriceRange {
	var (
		count  int
		sum    float64
		lo, hi float64
	)
	for _, p := range products {
		if p.PriceNumeric == nil {
			continue
		}
		v := *p.PriceNumeric
		if count == 0 || v < lo {
			lo = v
		}
		if count == 0 || v > hi {
			hi = v
		}
		sum += v
		count++
	}
	if count == 0 {
		return nil
	}
	return &PriceRange{
		Min:     round2(lo),
		Max:     round2(hi),
		Average: round2(sum / float64(count)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
