package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fitfind/fitfind/internal/results"
	"github.com/fitfind/fitfind/internal/shopping"
)

// Artifacts are the files written by a run. Empty paths were not written.
type Artifacts struct {
	RawPath     string `json:"raw_results_saved_to,omitempty"`
	CleanedPath string `json:"cleaned_results_saved_to,omitempty"`
	CSVPath     string `json:"results_saved_to,omitempty"`
}

// ArtifactPaths derives the artifact file names from one base path. Any
// extension on base is dropped first, so "out/look.csv" and "out/look"
// give the same paths.
func ArtifactPaths(base string) (raw, cleaned, csvPath string) {
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_raw.json", base + "_cleaned.json", base + ".csv"
}

var csvHeader = []string{
	"query", "error", "title", "link", "price", "extracted_price", "source",
	"rating", "reviews", "thumbnail", "product_id", "shipping", "tag",
}

func writeRawJSON(path string, sets []shopping.RawResultSet) error {
	if len(sets) == 0 {
		return errors.New("no search results to save")
	}
	return writeJSONFile(path, sets)
}

func writeCleanedJSON(path string, data results.CleanedData) error {
	return writeJSONFile(path, data)
}

func writeJSONFile(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, b, 0644)
}

// writeCSV writes one row per raw product and one error row per failed query.
func writeCSV(path string, sets []shopping.RawResultSet) error {
	rows := csvRows(sets)
	if len(rows) == 0 {
		return errors.New("no items to save")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func csvRows(sets []shopping.RawResultSet) [][]string {
	var rows [][]string
	for _, set := range sets {
		query := set.Query
		if query == "" {
			query = "Unknown query"
		}
		if set.Error != "" || len(set.Products) == 0 {
			msg := set.Error
			if msg == "" {
				msg = "No shopping results found"
			}
			row := make([]string, len(csvHeader))
			row[0], row[1] = query, msg
			rows = append(rows, row)
			continue
		}
		for _, p := range set.Products {
			rows = append(rows, []string{
				query,
				"",
				p.Title,
				p.Link,
				p.Price,
				string(p.ExtractedPrice),
				p.Source,
				string(p.Rating),
				string(p.Reviews),
				p.Thumbnail,
				p.ProductID,
				p.Shipping,
				p.Tag,
			})
		}
	}
	return rows
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
