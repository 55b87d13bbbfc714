package results

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitfind/fitfind/internal/shopping"
)

func TestCleanProductDiscountFromPrices(t *testing.T) {
	p := CleanProduct(shopping.RawProduct{
		Title:             "Wool Coat",
		ExtractedPrice:    "80",
		ExtractedOldPrice: "100",
	})
	require.NotNil(t, p.PriceNumeric)
	require.NotNil(t, p.OldPriceNumeric)
	assert.Equal(t, 80.0, *p.PriceNumeric)
	assert.Equal(t, 100.0, *p.OldPriceNumeric)
	assert.Equal(t, "20% OFF", p.DiscountPercentage)
}

func TestCleanProductDiscountFromTag(t *testing.T) {
	p := CleanProduct(shopping.RawProduct{
		ExtractedPrice:    "80",
		ExtractedOldPrice: "100",
		Extensions:        []string{"Free delivery", "35% off"},
	})
	assert.Equal(t, "35% OFF", p.DiscountPercentage)
}

func TestCleanProductNoDiscountWhenOldPriceLower(t *testing.T) {
	p := CleanProduct(shopping.RawProduct{ExtractedPrice: "100", ExtractedOldPrice: "80"})
	assert.Empty(t, p.DiscountPercentage)
}

func TestCleanProductPrices(t *testing.T) {
	p := CleanProduct(shopping.RawProduct{
		Price:    "$1,249.50",
		OldPrice: "Was $1,500.00",
	})
	require.NotNil(t, p.PriceNumeric)
	assert.Equal(t, 1249.5, *p.PriceNumeric)
	assert.Equal(t, "$1,500.00", p.OldPrice)
	require.NotNil(t, p.OldPriceNumeric)
	assert.Equal(t, 1500.0, *p.OldPriceNumeric)

	free := CleanProduct(shopping.RawProduct{Price: "$0.00", ExtractedPrice: "0"})
	assert.Nil(t, free.PriceNumeric)
}

func TestCleanProductRatingAndReviews(t *testing.T) {
	tests := []struct {
		name        string
		rating      shopping.Number
		reviews     shopping.Number
		wantRating  *float64
		wantReviews *int
	}{
		{"valid", "4.66", "1200", ptr(4.7), ptr(1200)},
		{"string with comma", "5", "1,234", ptr(5.0), ptr(1234)},
		{"float reviews", "0", "12.0", ptr(0.0), ptr(12)},
		{"out of range", "7.2", "-3", nil, nil},
		{"negative rating", "-1", "", nil, nil},
		{"garbage", "great", "many", nil, nil},
		{"missing", "", "", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CleanProduct(shopping.RawProduct{Rating: tt.rating, Reviews: tt.reviews})
			assert.Equal(t, tt.wantRating, p.Rating)
			assert.Equal(t, tt.wantReviews, p.ReviewCount)
			if p.Rating != nil {
				assert.True(t, *p.Rating >= 0 && *p.Rating <= 5)
			}
			if p.ReviewCount != nil {
				assert.GreaterOrEqual(t, *p.ReviewCount, 0)
			}
		})
	}
}

func TestCleanProductFallbacks(t *testing.T) {
	p := CleanProduct(shopping.RawProduct{
		Position:          3,
		Link:              "https://shop.example.com/p/1",
		SerpAPIThumbnails: []string{"https://img.example.com/s.jpg"},
		Shipping:          "Free shipping",
		Tag:               "Sale",
		Extensions:        []string{"Sale", "Eco"},
	})
	assert.Equal(t, "3", p.ID)
	assert.Equal(t, "Untitled Product", p.Title)
	assert.Equal(t, "Unknown", p.Source)
	assert.Equal(t, "https://shop.example.com/p/1", p.ProductURL)
	assert.Equal(t, "https://img.example.com/s.jpg", p.ImageURL)
	assert.Equal(t, "Free shipping", p.DeliveryInfo)
	assert.Equal(t, []string{"Sale", "Eco"}, p.Tags)

	p = CleanProduct(shopping.RawProduct{
		ProductID:   "abc",
		ProductLink: "https://www.google.com/shopping/product/1",
		Link:        "https://shop.example.com/p/1",
		Thumbnail:   "https://img.example.com/t.jpg",
		Thumbnails:  []string{"https://img.example.com/x.jpg"},
	})
	assert.Equal(t, "abc", p.ID)
	assert.Equal(t, "https://www.google.com/shopping/product/1", p.ProductURL)
	assert.Equal(t, "https://img.example.com/t.jpg", p.ImageURL)

	assert.Equal(t, "unknown", CleanProduct(shopping.RawProduct{}).ID)
}

func TestCleanProductTruncatesTitle(t *testing.T) {
	p := CleanProduct(shopping.RawProduct{Title: strings.Repeat("a", 150)})
	assert.Len(t, p.Title, 100)
	assert.True(t, strings.HasSuffix(p.Title, "..."))

	exact := strings.Repeat("b", 100)
	assert.Equal(t, exact, CleanProduct(shopping.RawProduct{Title: exact}).Title)
}

func TestClean(t *testing.T) {
	sets := []shopping.RawResultSet{
		{
			Query: "women's black leather bomber jacket",
			Products: []shopping.RawProduct{
				{Title: "Bomber A", ExtractedPrice: "100"},
				{Title: "Bomber B", ExtractedPrice: "50.5"},
				{Title: "Bomber C"},
			},
		},
		{Query: "red wool scarf", Error: "connection reset"},
		{Query: "white linen shirt", Products: []shopping.RawProduct{{Title: "No price"}}},
		{Query: "gold sandals"},
	}

	data := Clean(sets)

	require.Len(t, data.ClothingItems, 2)
	jacket := data.ClothingItems[0]
	assert.Equal(t, "bomber_jacket", jacket.ItemType)
	assert.Equal(t, 3, jacket.TotalProducts)
	assert.Len(t, jacket.Products, jacket.TotalProducts)
	require.NotNil(t, jacket.PriceRange)
	assert.Equal(t, 50.5, jacket.PriceRange.Min)
	assert.Equal(t, 100.0, jacket.PriceRange.Max)
	assert.Equal(t, 75.25, jacket.PriceRange.Average)

	shirt := data.ClothingItems[1]
	assert.Nil(t, shirt.PriceRange)
	assert.Equal(t, 1, shirt.TotalProducts)

	assert.Equal(t, 2, data.Summary.TotalItems)
	assert.Equal(t, 4, data.Summary.TotalProducts)
	assert.True(t, data.Summary.HasErrors)
	assert.Equal(t, []ErrorItem{
		{Query: "red wool scarf", Error: "connection reset"},
		{Query: "gold sandals", Error: "No shopping results found"},
	}, data.Summary.ErrorItems)
}

func TestCleanPartialFailureFromSearcher(t *testing.T) {
	queries := []string{"navy chinos", "brown suede loafers", "white oxford shirt"}
	sets := []shopping.RawResultSet{
		{Query: queries[0], Products: []shopping.RawProduct{{Title: "Chinos"}}},
		{Query: queries[1], Error: "search failed"},
		{Query: queries[2], Products: []shopping.RawProduct{{Title: "Oxford"}}},
	}

	data := Clean(sets)
	require.Len(t, data.Summary.ErrorItems, 1)
	assert.Equal(t, queries[1], data.Summary.ErrorItems[0].Query)
	for _, item := range data.ClothingItems {
		assert.NotEqual(t, queries[1], item.Query)
	}
}

func TestCleanEmpty(t *testing.T) {
	data := Clean(nil)
	assert.NotNil(t, data.ClothingItems)
	assert.NotNil(t, data.Summary.ErrorItems)
	assert.False(t, data.Summary.HasErrors)
}

func ptr[T any](v T) *T {
	return &v
}
