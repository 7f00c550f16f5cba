package models

import (
	"strings"
	"time"
)

// UserRef points at a user inside one platform. Email is only set when the platform exposed it.
type UserRef struct {
	ID    string
	Name  string
	Email string
}

// ContentItem is one message or record under evaluation. It is never persisted.
type ContentItem struct {
	SourceID    string
	Kind        SourceKind
	ID          string // message ts or page id
	AuthorID    string
	Text        string
	Fields      []Field
	Attachments []Attachment
	CreatedAt   time.Time

	// record source
	CreatedBy    *UserRef
	LastEditedBy *UserRef

	// message source
	ChannelID string
	Permalink string
}

// RenderFields renders every known, non-empty field as a "name: value" line
func (c ContentItem) RenderFields() []string {
	lines := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if line, ok := f.Render(); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// AssembleText joins the primary text and rendered fields
func (c ContentItem) AssembleText() string {
	parts := make([]string, 0, len(c.Fields)+1)
	if t := strings.TrimSpace(c.Text); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, c.RenderFields()...)
	return strings.Join(parts, "\n")
}
