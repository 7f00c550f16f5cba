package models

import (
	"path"
	"strings"
)

// AttachmentKind selects how an attachment is classified
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
	AttachmentOther    AttachmentKind = "other"
)

// Attachment references binary content attached to an item
type Attachment struct {
	Name      string
	URL       string
	MediaType string
	Kind      AttachmentKind
}

// NewAttachment builds an attachment and derives its kind from the declared type and name
func NewAttachment(name, url, mediaType string) Attachment {
	return Attachment{
		Name:      name,
		URL:       url,
		MediaType: mediaType,
		Kind:      KindForMediaType(mediaType, name),
	}
}

// KindForMediaType maps a media type (falling back to the file extension) to an attachment kind
func KindForMediaType(mediaType, name string) AttachmentKind {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return AttachmentImage
	case mt == "application/pdf", strings.HasPrefix(mt, "text/"):
		return AttachmentDocument
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return AttachmentImage
	case ".pdf", ".txt", ".md", ".csv":
		return AttachmentDocument
	}
	return AttachmentOther
}
