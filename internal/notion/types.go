package notion

import (
	"time"

	"github.com/aleister1102/piiwatch/internal/models"
)

// Record is a database page with its properties decoded into typed fields
type Record struct {
	ID             string
	URL            string
	CreatedTime    time.Time
	LastEditedTime time.Time
	Archived       bool
	CreatedBy      models.UserRef
	LastEditedBy   models.UserRef
	Fields         []models.Field
}

// Block is one child block of a page, reduced to its plain text or file reference
type Block struct {
	ID          string
	Type        string
	Text        string
	HasChildren bool
	// File is set for image, pdf and file blocks
	File *models.FileRef
}

type queryPage struct {
	records    []Record
	hasMore    bool
	nextCursor string
}
