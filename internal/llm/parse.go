package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSONArray returns the outermost [...] span of text. Models often
// wrap the array in prose or markdown fences.
func extractJSONArray(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return text[start : end+1], nil
}

func parseQueries(text string) ([]string, error) {
	jsonStr, err := extractJSONArray(text)
	if err != nil {
		return nil, err
	}

	var raw []string
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}

	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return queries, nil
}
