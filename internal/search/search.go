// Package search queries the backend catalogue and sorts whatever comes back into
// artist, album and track buckets.
//
// The backend answers either with grouped buckets or with a flat list of loosely typed
// items. [Normalize] accepts both shapes.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/tunedeck/internal/client"
	"github.com/desertthunder/tunedeck/internal/shared"
)

// Kind tags a result item.
type Kind int

const (
	Artist Kind = iota
	Album
	Track
)

func (k Kind) String() string {
	switch k {
	case Artist:
		return "artist"
	case Album:
		return "album"
	case Track:
		return "track"
	default:
		return "unknown"
	}
}

// Item is a classified search result. Fields holds the object exactly as the backend sent it.
type Item struct {
	Kind   Kind
	Fields map[string]any
}

// MarshalJSON emits the original fields.
func (i Item) MarshalJSON() ([]byte, error) {
	if i.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(i.Fields)
}

// ID returns the first identifier the item carries.
func (i Item) ID() string {
	for _, key := range []string{"videoId", "browseId", "id", "channelId"} {
		if s := stringField(i.Fields, key); s != "" {
			return s
		}
	}
	return ""
}

// Title returns the display name of the item.
func (i Item) Title() string {
	for _, key := range []string{"title", "name"} {
		if s := stringField(i.Fields, key); s != "" {
			return s
		}
	}
	if i.Kind == Artist {
		return stringField(i.Fields, "artist")
	}
	return ""
}

// ArtistNames collects names from "artists" (objects or strings) or a single "artist".
func (i Item) ArtistNames() []string {
	var names []string
	if list, ok := i.Fields["artists"].([]any); ok {
		for _, v := range list {
			if name := nameOf(v); name != "" {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		if name := nameOf(i.Fields["artist"]); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Year returns the release year as text, if any.
func (i Item) Year() string {
	switch v := i.Fields["year"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.Itoa(int(v))
	case json.Number:
		return v.String()
	}
	return ""
}

// DurationSeconds prefers "duration_seconds" and falls back to parsing a "m:ss" or "h:mm:ss"
// "duration". Zero means unknown.
func (i Item) DurationSeconds() int {
	if n, ok := numberField(i.Fields, "duration_seconds"); ok {
		return int(n)
	}
	switch v := i.Fields["duration"].(type) {
	case float64:
		return int(v)
	case string:
		return parseClock(v)
	}
	return 0
}

// Thumbnail returns the last (largest) entry of "thumbnails" or a plain "thumbnail" URL.
func (i Item) Thumbnail() string {
	if list, ok := i.Fields["thumbnails"].([]any); ok {
		for j := len(list) - 1; j >= 0; j-- {
			switch t := list[j].(type) {
			case map[string]any:
				if s := stringField(t, "url"); s != "" {
					return s
				}
			case string:
				if t != "" {
					return t
				}
			}
		}
	}
	return stringField(i.Fields, "thumbnail")
}

// ResultSet holds normalized results in discovery order.
type ResultSet struct {
	Artists []Item `json:"artists"`
	Albums  []Item `json:"albums"`
	Tracks  []Item `json:"tracks"`
}

// MarshalJSON encodes empty buckets as [] rather than null.
func (r ResultSet) MarshalJSON() ([]byte, error) {
	type buckets ResultSet
	out := buckets(r)
	if out.Artists == nil {
		out.Artists = []Item{}
	}
	if out.Albums == nil {
		out.Albums = []Item{}
	}
	if out.Tracks == nil {
		out.Tracks = []Item{}
	}
	return json.Marshal(out)
}

// Len is the number of items across all buckets.
func (r ResultSet) Len() int {
	return len(r.Artists) + len(r.Albums) + len(r.Tracks)
}

// Bucket returns the items of one kind.
func (r ResultSet) Bucket(k Kind) []Item {
	switch k {
	case Artist:
		return r.Artists
	case Album:
		return r.Albums
	case Track:
		return r.Tracks
	}
	return nil
}

func (r *ResultSet) add(item Item) {
	switch item.Kind {
	case Artist:
		r.Artists = append(r.Artists, item)
	case Album:
		r.Albums = append(r.Albums, item)
	case Track:
		r.Tracks = append(r.Tracks, item)
	}
}

// Search runs GET /search and normalizes the response. A non-positive limit is left to the backend.
func Search(ctx context.Context, r client.Requester, query string, limit int) (ResultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ResultSet{}, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := r.Request(ctx, "/search", &client.RequestOptions{Method: http.MethodGet, Query: params})
	if err != nil {
		return ResultSet{}, err
	}
	return Normalize(resp.Data), nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func nameOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return stringField(t, "name")
	}
	return ""
}

func parseClock(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}
