package remediation

import (
	"fmt"
	"strings"

	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/aleister1102/piiwatch/internal/sources"
)

// BuildNotice renders the private message sent to an author whose content was removed.
// The original content is quoted, capped at maxQuoted characters.
func BuildNotice(item models.ContentItem, maxQuoted int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Your %s was removed because it appears to contain personal information (PII).\n\n", describe(item))

	if original := quote(item.AssembleText(), maxQuoted); original != "" {
		sb.WriteString("Original content:\n")
		sb.WriteString(original)
		sb.WriteString("\n\n")
	}

	if len(item.Attachments) > 0 {
		names := make([]string, 0, len(item.Attachments))
		for _, att := range item.Attachments {
			if att.Name != "" {
				names = append(names, att.Name)
			}
		}
		if len(names) > 0 {
			fmt.Fprintf(&sb, "Attachments: %s\n\n", strings.Join(names, ", "))
		}
	}

	sb.WriteString("Please submit it again without the personal information.")
	return sb.String()
}

func describe(item models.ContentItem) string {
	switch item.Kind {
	case models.SourceKindMessageChannel:
		return fmt.Sprintf("message in #%s", sources.NormalizeChannelName(item.SourceID))
	case models.SourceKindRecordDatabase:
		for _, f := range item.Fields {
			if f.Kind == models.FieldTitle && strings.TrimSpace(f.Text) != "" {
				return fmt.Sprintf("record %q", strings.TrimSpace(f.Text))
			}
		}
		return "record"
	default:
		return "content"
	}
}

// quote prefixes each line with "> " after capping the text
func quote(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if maxChars > 0 && len(runes) > maxChars {
		text = string(runes[:maxChars]) + "…"
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}
