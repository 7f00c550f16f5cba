// Package sources adapts each monitored platform to a common item interface.
package sources

import (
	"context"
	"time"

	"github.com/aleister1102/piiwatch/internal/attachments"
	"github.com/aleister1102/piiwatch/internal/models"
)

// Adapter lists, removes and attributes content items of one source kind
type Adapter interface {
	attachments.Fetcher

	Kind() models.SourceKind
	// ListNew returns items created or edited at or after since, in processing order
	ListNew(ctx context.Context, source models.MonitoredSource, since time.Time) ([]models.ContentItem, error)
	// Remove deletes or archives the item on its platform
	Remove(ctx context.Context, item models.ContentItem) error
	// ResolveAuthorEmail finds the best available address for the item's author
	ResolveAuthorEmail(ctx context.Context, item models.ContentItem) (models.AuthorEmail, error)
}
