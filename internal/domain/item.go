package domain

import (
	"strings"
	"time"
)

// Item is one fetched unit of content (news article, paper, post).
// Items are immutable once a fetch stage has written them.
type Item struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Abstract    string `json:"abstract,omitempty"`
	Body        string `json:"body,omitempty"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
	Published   string `json:"published,omitempty"`
	Topic       string `json:"topic,omitempty"`
	FetchedAt   string `json:"fetched_at,omitempty"`
}

// Key returns the join key used to merge analyses of the same item across models:
// the id when present, the title otherwise. It is compared by exact equality.
func (i Item) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return i.Title
}

// Text returns the first non-empty free-text field.
func (i Item) Text() string {
	for _, v := range []string{i.Description, i.Abstract, i.Body} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Timestamp formats t the way every artifact records instants.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
