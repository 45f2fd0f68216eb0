// AngelaMos | 2026
// entity.go

package content

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/mediahub/internal/policy"
	"github.com/carterperez-dev/mediahub/internal/user"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

var Statuses = []Status{StatusDraft, StatusScheduled, StatusPublished}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished:
		return true
	}
	return false
}

// Elevated reports whether setting s needs the set-status capability.
func (s Status) Elevated() bool {
	return s == StatusScheduled || s == StatusPublished
}

type Content struct {
	ID          string     `db:"id"           json:"id"`
	Title       string     `db:"title"        json:"title"`
	Body        string     `db:"body"         json:"body"`
	Status      Status     `db:"status"       json:"status"`
	AuthorID    string     `db:"author_id"    json:"author_id"`
	PublishDate *time.Time `db:"publish_date" json:"publish_date,omitempty"`
	Tags        Tags       `db:"tags"         json:"tags"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`

	// Version increments on every write and guards concurrent updates.
	Version int64 `db:"version" json:"-"`
}

func (c *Content) Resource() *policy.Resource {
	return &policy.Resource{OwnerID: c.AuthorID}
}

// ContentWithAuthor is the read-side join of a content row and its author.
// Author is zero-valued when the author row is missing.
type ContentWithAuthor struct {
	Content
	Author user.Summary `db:"author" json:"author"`
}

// Tags is an ordered, de-duplicated tag list persisted as a JSON array.
type Tags []string

// NormalizeTags trims every tag, drops empties and keeps the first
// occurrence of each duplicate.
func NormalizeTags(in []string) Tags {
	out := make(Tags, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(t))
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

func (t *Tags) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("scan tags: unsupported source type")
	}

	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	*t = Tags(out)
	return nil
}
