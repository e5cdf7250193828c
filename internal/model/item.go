package model

import (
	"net/url"
	"path"
	"slices"
	"strings"
	"time"
)

// Item is an immutable bookmark snapshot. Updates replace the whole value;
// callers must not modify Tags in place.
type Item struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewItemParams holds parameters for creating a new Item.
type NewItemParams struct {
	URL   string
	Title string
	Tags  []string
}

// NewItem creates an Item with a generated UUID and creation time.
func NewItem(params NewItemParams) Item {
	tags := slices.Clone(params.Tags)
	if tags == nil {
		tags = []string{}
	}

	return Item{
		ID:        GenerateUUID(),
		URL:       params.URL,
		Title:     params.Title,
		Tags:      tags,
		CreatedAt: time.Now(),
	}
}

// HasTag reports whether the item carries tag. The comparison is case-sensitive.
func (i Item) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}

// DisplayTitle returns the title, falling back to the last URL path
// component, then the host, then "Unknown".
func (i Item) DisplayTitle() string {
	if strings.TrimSpace(i.Title) != "" {
		return i.Title
	}

	u, err := url.Parse(i.URL)
	if err != nil {
		return "Unknown"
	}

	if p := strings.TrimRight(u.Path, "/"); p != "" {
		if base := path.Base(p); base != "" && base != "." && base != "/" {
			return base
		}
	}
	if u.Host != "" {
		return u.Host
	}
	return "Unknown"
}

// clone returns a copy whose tag slice is not shared with the original.
func (i Item) clone() Item {
	i.Tags = slices.Clone(i.Tags)
	if i.Tags == nil {
		i.Tags = []string{}
	}
	return i
}
