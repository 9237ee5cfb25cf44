package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// TokenSet is a set of lowercase comparable keyword tokens
type TokenSet map[string]struct{}

// Range is a numeric filter interval; nil bounds mean unbounded/unset
type Range struct {
	Min *float64
	Max *float64
}

// Tokenize extracts comparable keyword tokens from a platform filter
// document. Keyword-bearing fields (hashtags, bio phrase, search keywords)
// contribute whitespace-split lowercase words; interest category fields
// contribute their full lowercase string as a single token. Empty tokens
// are discarded.
func Tokenize(filters map[string]any, platform string) TokenSet {
	tokens := TokenSet{}

	// Instagram hashtags: either {"name": "..."} objects or plain strings
	for _, h := range anyList(filters["hashtags"]) {
		name := ""
		switch v := h.(type) {
		case map[string]any:
			name, _ = v["name"].(string)
		case string:
			name = v
		}
		for _, word := range strings.Fields(strings.ToLower(name)) {
			tokens.add(strings.TrimSpace(strings.Trim(word, "#")))
		}
	}

	// Instagram bio phrase
	if bio, _ := filters["bio_phrase"].(string); bio != "" {
		for _, word := range strings.Fields(strings.ToLower(bio)) {
			tokens.add(strings.TrimSpace(word))
		}
	}

	// Patreon search keywords
	for _, kw := range stringList(filters["search_keywords"]) {
		for _, word := range strings.Fields(strings.ToLower(kw)) {
			tokens.add(strings.TrimSpace(word))
		}
	}

	// Facebook keywords
	for _, kw := range stringList(filters["keywords"]) {
		for _, word := range strings.Fields(strings.ToLower(kw)) {
			tokens.add(strings.TrimSpace(word))
		}
	}

	// Interest categories, present regardless of platform
	for _, key := range []string{"creator_interests", "audience_interests"} {
		for _, interest := range stringList(filters[key]) {
			tokens.add(strings.ToLower(interest))
		}
	}

	delete(tokens, "")
	return tokens
}

// ExtractRanges pulls the platform size-metric intervals out of a filter
// document. An entry is present only when at least one bound is set.
func ExtractRanges(filters map[string]any, platform string) map[string]Range {
	ranges := map[string]Range{}

	// Instagram follower count: {"min": ..., "max": ...}
	if fc, ok := filters["follower_count"].(map[string]any); ok {
		r := Range{Min: numValue(fc["min"]), Max: numValue(fc["max"])}
		if r.Min != nil || r.Max != nil {
			ranges["followers"] = r
		}
	}

	// Patreon patron count
	if r := (Range{Min: numValue(filters["min_patrons"]), Max: numValue(filters["max_patrons"])}); r.Min != nil || r.Max != nil {
		ranges["patrons"] = r
	}

	// Facebook group member count
	if r := (Range{Min: numValue(filters["min_members"]), Max: numValue(filters["max_members"])}); r.Min != nil || r.Max != nil {
		ranges["members"] = r
	}

	return ranges
}

// Fingerprint returns a stable hash of a filter document, used to key
// filter history rows. json.Marshal sorts map keys, so equal documents hash
// equal regardless of construction order.
func Fingerprint(filters map[string]any) string {
	data, err := json.Marshal(filters)
	if err != nil {
		data = []byte("{}")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (t TokenSet) add(token string) {
	if token != "" {
		t[token] = struct{}{}
	}
}

func anyList(v any) []any {
	list, _ := v.([]any)
	return list
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func numValue(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	}
	return nil
}
