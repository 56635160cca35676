package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/tunedeck/internal/shared"
)

// Rule classifies an item when Match returns true. Rules are evaluated in order.
type Rule struct {
	Name  string
	Match func(map[string]any) bool
	Kind  Kind
}

// DefaultRules are the structural fallbacks used when an item carries no type marker.
var DefaultRules = []Rule{
	{Name: "playable", Kind: Track, Match: hasAny("videoId", "duration", "duration_seconds")},
	{Name: "album browse id", Kind: Album, Match: func(m map[string]any) bool {
		return strings.HasPrefix(stringField(m, "browseId"), "MPRE")
	}},
	{Name: "has artists", Kind: Artist, Match: hasAny("artists", "artist")},
}

var (
	bucketKeys = []struct {
		kind Kind
		keys []string
	}{
		{Artist, []string{"artists", "artist"}},
		{Album, []string{"albums", "album"}},
		{Track, []string{"tracks", "track", "songs"}},
	}
	markerKeys = []string{"resultType", "type", "result_type"}
	markers    = map[string]Kind{
		"artist": Artist,
		"album":  Album,
		"song":   Track,
		"track":  Track,
	}
)

// Normalizer sorts raw results using an ordered rule list.
type Normalizer struct {
	Rules []Rule
}

var defaultNormalizer = &Normalizer{Rules: DefaultRules}

// Normalize sorts raw with [DefaultRules].
func Normalize(raw any) ResultSet {
	return defaultNormalizer.Normalize(raw)
}

// NormalizeJSON decodes data and normalizes it.
func NormalizeJSON(data []byte) (ResultSet, error) {
	return defaultNormalizer.NormalizeJSON(data)
}

// Classify assigns a kind to a single item with [DefaultRules].
func Classify(item map[string]any) (Kind, bool) {
	return defaultNormalizer.Classify(item)
}

// NormalizeJSON decodes data and normalizes it.
func (n *Normalizer) NormalizeJSON(data []byte) (ResultSet, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return ResultSet{}, fmt.Errorf("%w: search results: %v", shared.ErrInvalidInput, err)
	}
	return n.Normalize(raw), nil
}

// Normalize accepts grouped buckets or a flat list.
//
// Grouped input is returned as found. A flat list is classified item by item; items
// nothing matches are dropped. Anything else yields an empty set.
func (n *Normalizer) Normalize(raw any) ResultSet {
	if obj, ok := raw.(map[string]any); ok {
		if set, grouped := fromBuckets(obj); grouped {
			return set
		}
		return ResultSet{}
	}

	list, ok := raw.([]any)
	if !ok {
		return ResultSet{}
	}

	var set ResultSet
	for _, v := range list {
		item, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if kind, ok := n.Classify(item); ok {
			set.add(Item{Kind: kind, Fields: item})
		}
	}
	return set
}

// Classify checks the explicit type marker first, then the rules in order.
func (n *Normalizer) Classify(item map[string]any) (Kind, bool) {
	if kind, ok := markerKind(item); ok {
		return kind, true
	}
	for _, rule := range n.Rules {
		if rule.Match != nil && rule.Match(item) {
			return rule.Kind, true
		}
	}
	return 0, false
}

func fromBuckets(obj map[string]any) (ResultSet, bool) {
	var set ResultSet
	grouped := false

	for _, b := range bucketKeys {
		for _, key := range b.keys {
			list, ok := obj[key].([]any)
			if !ok {
				continue
			}
			grouped = true
			items := make([]Item, 0, len(list))
			for _, v := range list {
				if m, ok := v.(map[string]any); ok {
					items = append(items, Item{Kind: b.kind, Fields: m})
				}
			}
			switch b.kind {
			case Artist:
				set.Artists = items
			case Album:
				set.Albums = items
			case Track:
				set.Tracks = items
			}
			break
		}
	}
	return set, grouped
}

// markerKind reads the first non-empty marker, looking inside "raw" after the top level.
// An unrecognised marker falls through to the rules.
func markerKind(item map[string]any) (Kind, bool) {
	marker := firstString(item, markerKeys)
	if marker == "" {
		if raw, ok := item["raw"].(map[string]any); ok {
			marker = firstString(raw, markerKeys)
		}
	}
	kind, ok := markers[strings.ToLower(marker)]
	return kind, ok
}

func firstString(m map[string]any, keys []string) string {
	for _, key := range keys {
		if s := stringField(m, key); s != "" {
			return s
		}
	}
	return ""
}

// hasAny matches when one of keys holds a non-null, non-empty-string value.
func hasAny(keys ...string) func(map[string]any) bool {
	return func(m map[string]any) bool {
		for _, key := range keys {
			v, ok := m[key]
			if !ok || v == nil {
				continue
			}
			if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return true
		}
		return false
	}
}
