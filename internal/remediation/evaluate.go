package remediation

import (
	"context"
	"fmt"

	"github.com/aleister1102/piiwatch/internal/attachments"
	"github.com/aleister1102/piiwatch/internal/models"
)

// Evaluate classifies the item's assembled text and each attachment. The verdict is the OR of
// every call and stops at the first positive. A failed call counts as negative.
func (e *Engine) Evaluate(ctx context.Context, item models.ContentItem, fetch attachments.Fetcher) models.Verdict {
	var verdict models.Verdict

	call := func(what string, classify func() (bool, error)) bool {
		verdict.Calls++
		positive, err := classify()
		if err != nil {
			verdict.FailedCalls++
			e.logger.Warn().Err(err).Str("item_id", item.ID).Str("part", what).Msg("Classification failed, treating part as clean")
			return false
		}
		verdict.ContainsPII = positive
		return positive
	}

	if text := item.AssembleText(); text != "" {
		if call("text", func() (bool, error) { return e.classifier.ClassifyText(ctx, text) }) {
			return verdict
		}
	}

	for _, att := range item.Attachments {
		if e.evaluateAttachment(ctx, fetch, att, call) {
			return verdict
		}
	}
	return verdict
}

func (e *Engine) evaluateAttachment(ctx context.Context, fetch attachments.Fetcher, att models.Attachment, call func(string, func() (bool, error)) bool) bool {
	content := attachments.Content{Kind: models.AttachmentOther, MediaType: att.MediaType}

	if attachments.NeedsDownload(att) && fetch != nil {
		extracted, err := e.extractor.Extract(ctx, fetch, att)
		if err != nil {
			e.logger.Warn().Err(err).Str("attachment", att.Name).Msg("Attachment unavailable, classifying it by name")
		} else {
			content = extracted
		}
	}

	switch content.Kind {
	case models.AttachmentImage:
		return call("image:"+att.Name, func() (bool, error) {
			return e.classifier.ClassifyImage(ctx, content.Data, content.MediaType)
		})
	case models.AttachmentDocument:
		if content.Text != "" {
			return call("document:"+att.Name, func() (bool, error) {
				return e.classifier.ClassifyDocument(ctx, content.Text)
			})
		}
	}

	if att.Name == "" {
		return false
	}
	return call("filename:"+att.Name, func() (bool, error) {
		return e.classifier.ClassifyText(ctx, fmt.Sprintf("Attached file name: %s", att.Name))
	})
}
