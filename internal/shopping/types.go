package shopping

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Locale selects the market a shopping search runs against.
type Locale struct {
	Country  string // gl, e.g. "us"
	Language string // hl, e.g. "en"
}

// DefaultLocale is used when the caller leaves the locale empty.
var DefaultLocale = Locale{Country: "us", Language: "en"}

func (l Locale) withDefaults() Locale {
	if l.Country == "" {
		l.Country = DefaultLocale.Country
	}
	if l.Language == "" {
		l.Language = DefaultLocale.Language
	}
	return l
}

// Number holds a JSON scalar the API sends either as a number or a string.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*n = ""
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(str))
		return nil
	}
	*n = Number(s)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(n), 64); err == nil {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

// Float64 returns the numeric value, ignoring thousands separators.
func (n Number) Float64() (float64, bool) {
	s := strings.ReplaceAll(string(n), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// RawProduct is one entry of the shopping_results array.
type RawProduct struct {
	Position           int      `json:"position,omitempty"`
	ProductID          string   `json:"product_id,omitempty"`
	Title              string   `json:"title,omitempty"`
	Link               string   `json:"link,omitempty"`
	ProductLink        string   `json:"product_link,omitempty"`
	Source             string   `json:"source,omitempty"`
	SourceIcon         string   `json:"source_icon,omitempty"`
	Price              string   `json:"price,omitempty"`
	ExtractedPrice     Number   `json:"extracted_price,omitempty"`
	OldPrice           string   `json:"old_price,omitempty"`
	ExtractedOldPrice  Number   `json:"extracted_old_price,omitempty"`
	Rating             Number   `json:"rating,omitempty"`
	Reviews            Number   `json:"reviews,omitempty"`
	Thumbnail          string   `json:"thumbnail,omitempty"`
	Thumbnails         []string `json:"thumbnails,omitempty"`
	SerpAPIThumbnails  []string `json:"serpapi_thumbnails,omitempty"`
	Delivery           string   `json:"delivery,omitempty"`
	Shipping           string   `json:"shipping,omitempty"`
	Tag                string   `json:"tag,omitempty"`
	Extensions         []string `json:"extensions,omitempty"`
	SerpAPIProductLink string   `json:"serpapi_product_api,omitempty"`
}

// response is the subset of the SerpAPI payload the searcher reads.
type response struct {
	ShoppingResults []RawProduct `json:"shopping_results"`
	Error           string       `json:"error"`
}

// RawResultSet is the outcome of one shopping search. It is always tagged
// with the query that produced it, also when Error is set.
type RawResultSet struct {
	Query    string
	Products []RawProduct
	Error    string
	// Raw is the untouched API payload, kept for the raw artifact.
	Raw json.RawMessage
}

// Failed reports whether the search produced nothing usable.
func (r RawResultSet) Failed() bool {
	return r.Error != "" || len(r.Products) == 0
}

// MarshalJSON writes the API payload with original_query (and error, if any)
// merged in, so the raw artifact stays traceable per query.
func (r RawResultSet) MarshalJSON() ([]byte, error) {
	obj := map[string]json.RawMessage{}
	if len(r.Raw) > 0 {
		if err := json.Unmarshal(r.Raw, &obj); err != nil {
			obj = map[string]json.RawMessage{}
		}
	}
	if _, ok := obj["shopping_results"]; !ok && len(r.Products) > 0 {
		products, err := json.Marshal(r.Products)
		if err != nil {
			return nil, err
		}
		obj["shopping_results"] = products
	}
	query, err := json.Marshal(r.Query)
	if err != nil {
		return nil, err
	}
	obj["original_query"] = query
	if r.Error != "" {
		msg, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		obj["error"] = msg
	}
	return json.Marshal(obj)
}

// UnmarshalJSON is the inverse of MarshalJSON, used when reloading a raw
// artifact.
func (r *RawResultSet) UnmarshalJSON(b []byte) error {
	var body struct {
		response
		OriginalQuery string `json:"original_query"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return err
	}
	r.Query = body.OriginalQuery
	r.Products = body.ShoppingResults
	r.Error = body.Error
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}
