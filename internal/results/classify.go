package results

import (
	"regexp"
	"strings"
)

const (
	genericItemType = "clothing"
	unknownItemType = "unknown"
)

var (
	nonWordRe = regexp.MustCompile(`[^\w\s-]`)

	vocabularySet      = toSet(vocabulary)
	genderMarkerSet    = toSet(append(cleanTokens(genderMarkers), genderMarkers...))
	genderModifierSet  = toSet(genderModifiers)
	singularPhrasePats = singularizePhrases(phrasePatterns)
)

// ExtractItemType classifies a free-text shopping query into one item type
// token. Rules apply in a fixed precedence: multi-word phrases, then single
// vocabulary tokens, then vocabulary substrings, then the word following a
// gender marker. Anything else is generic clothing.
func ExtractItemType(query string) string {
	text := strings.ToLower(strings.TrimSpace(query))
	if text == "" {
		return unknownItemType
	}

	tokens := tokenize(text)
	joined := strings.Join(tokens, " ")

	if t, ok := matchPhrase(text, joined, tokens); ok {
		return t
	}

	for _, tok := range tokens {
		if t, ok := vocabularyToken(tok); ok {
			return t
		}
	}

	for _, item := range vocabulary {
		if strings.Contains(text, item) {
			return item
		}
	}

	if t, ok := afterGenderMarker(tokens); ok {
		return t
	}

	// Generic words like "outfit" and unmatched queries both land here.
	return genericItemType
}

func isItemType(t string) bool {
	return t == genericItemType || vocabularySet[t]
}

// matchPhrase checks the phrase table against the raw text and against the
// singularised token stream, so "running shoe" and "running shoes" agree.
func matchPhrase(text, joined string, tokens []string) (string, bool) {
	singular := singularizeAll(tokens)
	for i, p := range phrasePatterns {
		if strings.Contains(text, p.Phrase) || strings.Contains(joined, p.Phrase) {
			return p.ItemType, true
		}
		if strings.Contains(singular, singularPhrasePats[i]) {
			return p.ItemType, true
		}
	}
	return "", false
}

// vocabularyToken resolves a token to its vocabulary spelling, accepting
// regular and irregular plurals and singular forms of plural-only entries.
func vocabularyToken(tok string) (string, bool) {
	if tok == "" {
		return "", false
	}
	if vocabularySet[tok] {
		return tok, true
	}
	if base, ok := irregularPlurals[tok]; ok && isItemType(base) {
		return base, true
	}
	if vocabularySet[tok+"s"] {
		return tok + "s", true
	}
	if strings.HasSuffix(tok, "s") {
		if base := strings.TrimSuffix(tok, "s"); vocabularySet[base] {
			return base, true
		}
		if base := strings.TrimSuffix(tok, "es"); strings.HasSuffix(tok, "es") && vocabularySet[base] {
			return base, true
		}
	}
	return "", false
}

func afterGenderMarker(tokens []string) (string, bool) {
	for i, tok := range tokens {
		if !genderMarkerSet[tok] {
			continue
		}
		for _, next := range tokens[i+1:] {
			if genderModifierSet[next] {
				continue
			}
			if t, ok := vocabularyToken(next); ok {
				return t, true
			}
			break
		}
	}
	return "", false
}

func tokenize(text string) []string {
	return strings.Fields(nonWordRe.ReplaceAllString(text, ""))
}

func cleanTokens(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, nonWordRe.ReplaceAllString(w, ""))
	}
	return out
}

// singular strips a plural suffix from one word. It is only used to compare
// phrases, never to produce an item type.
func singular(word string) string {
	if base, ok := irregularPlurals[word]; ok {
		return base
	}
	switch {
	case len(word) <= 3:
		return word
	case strings.HasSuffix(word, "sses"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"):
		return word
	case strings.HasSuffix(word, "s"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}

func singularizeAll(tokens []string) string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = singular(t)
	}
	return strings.Join(out, " ")
}

func singularizePhrases(patterns []phrasePattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = singularizeAll(tokenize(p.Phrase))
	}
	return out
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// NormalizeItemType coarsens a specific item type into a display bucket, for
// example "ankle_boots" into "boots". Unknown types pass through unchanged.
func NormalizeItemType(itemType string) string {
	if n, ok := normalizations[itemType]; ok {
		return n
	}
	return itemType
}
