// Package attachments downloads item attachments into scoped temp files and turns them into
// classifiable content.
package attachments

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/metrics"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// Content is an attachment ready for classification. Data is set for images, Text for documents.
type Content struct {
	Kind      models.AttachmentKind
	MediaType string
	Data      []byte
	Text      string
}

// Extractor materializes attachments. Every download lives in its own temp file that is removed
// before Extract returns, whatever the outcome.
type Extractor struct {
	tempDir   string
	textLimit int
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewExtractor creates an extractor. An empty tempDir uses os.TempDir; textLimit caps the
// characters pulled out of documents (0 means no cap).
func NewExtractor(tempDir string, textLimit int, m *metrics.Metrics, logger zerolog.Logger) *Extractor {
	return &Extractor{
		tempDir:   tempDir,
		textLimit: textLimit,
		metrics:   m,
		logger:    logger.With().Str("component", "AttachmentExtractor").Logger(),
	}
}

// Extract downloads att through fetch and returns its classifiable content.
// The returned Kind may differ from att.Kind once the real media type is known; content
// that is neither an image nor a readable document comes back as AttachmentOther.
func (e *Extractor) Extract(ctx context.Context, fetch Fetcher, att models.Attachment) (Content, error) {
	data, servedType, err := fetch.Fetch(ctx, att.URL)
	if err != nil {
		return Content{}, err
	}

	path, err := e.writeTemp(data)
	if err != nil {
		return Content{}, err
	}
	defer e.removeTemp(path)

	mediaType := e.mediaType(att, servedType, path)
	content := Content{
		Kind:      models.KindForMediaType(mediaType, att.Name),
		MediaType: mediaType,
	}

	switch content.Kind {
	case models.AttachmentImage:
		content.Data = data
	case models.AttachmentDocument:
		text, err := e.documentText(path, mediaType, data)
		if err != nil {
			e.logger.Warn().Err(err).Str("attachment", att.Name).Str("media_type", mediaType).Msg("Could not read document, treating it by name")
			content.Kind = models.AttachmentOther
			return content, nil
		}
		content.Text = text
	}
	return content, nil
}

func (e *Extractor) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(e.tempDir, "piiwatch-attachment-*")
	if err != nil {
		return "", common.WrapError(err, "create attachment temp file")
	}
	path := f.Name()

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		e.removeTemp(path)
		if writeErr == nil {
			writeErr = closeErr
		}
		return "", common.WrapError(writeErr, "write attachment temp file")
	}
	return path, nil
}

// removeTemp never fails the caller; a leftover file is only logged and counted
func (e *Extractor) removeTemp(path string) {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		e.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove attachment temp file")
		e.metrics.ObserveCleanup(false)
		return
	}
	e.metrics.ObserveCleanup(true)
}

// mediaType trusts the declared type unless it is missing or generic, then the served
// Content-Type, and finally sniffs the bytes
func (e *Extractor) mediaType(att models.Attachment, servedType, path string) string {
	for _, candidate := range []string{att.MediaType, servedType} {
		if !isGeneric(candidate) {
			return candidate
		}
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		e.logger.Debug().Err(err).Str("attachment", att.Name).Msg("Media type detection failed")
		return att.MediaType
	}
	return detected.String()
}

func isGeneric(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "", "application/octet-stream", "binary/octet-stream", "application/binary":
		return true
	}
	return false
}

func (e *Extractor) documentText(path, mediaType string, data []byte) (string, error) {
	if strings.HasPrefix(strings.ToLower(mediaType), "application/pdf") {
		return e.pdfText(path)
	}
	if !utf8.Valid(data) {
		return "", common.WrapError(common.ErrUnsupported, "document is not valid UTF-8 text")
	}
	return e.limit(string(data)), nil
}

// pdfText reads page text until the configured limit is reached
func (e *Extractor) pdfText(path string) (text string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", common.WrapError(err, "open pdf")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", common.WrapError(err, "stat pdf")
	}

	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			text, err = "", common.WrapError(common.ErrUnsupported, fmt.Sprintf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", common.WrapError(err, "parse pdf")
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Debug().Err(err).Int("page", i).Msg("Skipping unreadable pdf page")
			continue
		}
		sb.WriteString(pageText)
		if e.textLimit > 0 && utf8.RuneCountInString(sb.String()) >= e.textLimit {
			break
		}
	}
	return e.limit(sb.String()), nil
}

func (e *Extractor) limit(s string) string {
	if e.textLimit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= e.textLimit {
		return s
	}
	return string(runes[:e.textLimit])
}

// NeedsDownload reports whether att has to be fetched before it can be classified.
// Attachments with a generic declared type are fetched so their real type can be sniffed.
func NeedsDownload(att models.Attachment) bool {
	if att.URL == "" {
		return false
	}
	return att.Kind != models.AttachmentOther || isGeneric(att.MediaType)
}
