package results

import "time"

// CleanedData is the frontend-facing result structure produced by Clean.
type CleanedData struct {
	ClothingItems []ClothingItem `json:"clothing_items"`
	Summary       Summary        `json:"summary"`
}

// ClothingItem groups the cleaned products found for one search query.
type ClothingItem struct {
	Query         string           `json:"query"`
	ItemType      string           `json:"item_type"`
	Products      []CleanedProduct `json:"products"`
	TotalProducts int              `json:"total_products"`
	PriceRange    *PriceRange      `json:"price_range"`
}

// PriceRange holds price statistics over the products that have a numeric price.
type PriceRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// CleanedProduct is a normalized shopping result.
type CleanedProduct struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title"`
	Price              string       `json:"price,omitempty"`
	PriceNumeric       *float64     `json:"price_numeric"`
	OldPrice           string       `json:"old_price,omitempty"`
	OldPriceNumeric    *float64     `json:"old_price_numeric"`
	DiscountPercentage string       `json:"discount_percentage,omitempty"`
	ImageURL           string       `json:"image_url,omitempty"`
	ProductURL         string       `json:"product_url,omitempty"`
	Source             string       `json:"source"`
	SourceIcon         string       `json:"source_icon,omitempty"`
	Rating             *float64     `json:"rating"`
	ReviewCount        *int         `json:"review_count"`
	DeliveryInfo       string       `json:"delivery_info,omitempty"`
	Tags               []string     `json:"tags"`
	DirectLinks        []DirectLink `json:"direct_links"`
}

// DirectLink is a retailer URL recovered from an aggregator page.
type DirectLink struct {
	ID             string    `json:"id"`
	RetailerURL    string    `json:"retailer_url"`
	RetailerName   string    `json:"retailer_name"`
	RetailerDomain string    `json:"retailer_domain"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary aggregates counts over all clothing items.
type Summary struct {
	TotalItems    int         `json:"total_items"`
	TotalProducts int         `json:"total_products"`
	HasErrors     bool        `json:"has_errors"`
	ErrorItems    []ErrorItem `json:"error_items"`
}

// ErrorItem records a query that produced no usable products.
type ErrorItem struct {
	Query string `json:"query"`
	Error string `json:"error"`
}
