package stac

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Cursor points into a stored result set.
type Cursor struct {
	Token  string `json:"t"`
	Offset int    `json:"o"`
}

// EncodeCursor encodes a cursor to a URL-safe string. It returns an empty
// string for a nil cursor.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor decodes a cursor produced by EncodeCursor.
func DecodeCursor(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	if c.Token == "" || c.Offset < 0 {
		return nil, fmt.Errorf("invalid cursor: missing token or negative offset")
	}
	return &c, nil
}

// PageInfo holds what is needed to build paging links over a stored set.
type PageInfo struct {
	BaseURL string
	Token   string
	Offset  int
	Limit   int
	Total   int
	// QueryParams are the original search parameters. Cursor and limit are
	// replaced.
	QueryParams url.Values
}

// Page returns the slice of items for offset and limit.
func Page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// BuildPaginationLinks returns the prev and next links of a page.
func BuildPaginationLinks(info PageInfo) []*Link {
	links := make([]*Link, 0, 2)
	if info.Token == "" || info.Limit <= 0 {
		return links
	}

	if info.Offset > 0 {
		prev := max(info.Offset-info.Limit, 0)
		links = append(links, &Link{
			Rel:  "prev",
			Href: buildCursorURL(info, prev),
			Type: "application/geo+json",
		})
	}
	if info.Offset+info.Limit < info.Total {
		links = append(links, &Link{
			Rel:  "next",
			Href: buildCursorURL(info, info.Offset+info.Limit),
			Type: "application/geo+json",
		})
	}
	return links
}

func buildCursorURL(info PageInfo, offset int) string {
	params := url.Values{}
	for key, values := range info.QueryParams {
		if key == "cursor" || key == "limit" {
			continue
		}
		for _, v := range values {
			params.Add(key, v)
		}
	}
	params.Set("cursor", EncodeCursor(&Cursor{Token: info.Token, Offset: offset}))
	params.Set("limit", strconv.Itoa(info.Limit))
	return info.BaseURL + "?" + params.Encode()
}
