package notion

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/tidwall/gjson"
)

// textBlockTypes carry their content in <type>.rich_text
var textBlockTypes = map[string]bool{
	"paragraph":          true,
	"heading_1":          true,
	"heading_2":          true,
	"heading_3":          true,
	"bulleted_list_item": true,
	"numbered_list_item": true,
	"to_do":              true,
	"toggle":             true,
	"quote":              true,
	"callout":            true,
	"code":               true,
}

// fileBlockTypes become attachments
var fileBlockTypes = map[string]bool{
	"image": true,
	"pdf":   true,
	"file":  true,
}

func parseQueryPage(body []byte) queryPage {
	root := gjson.ParseBytes(body)
	page := queryPage{
		hasMore:    root.Get("has_more").Bool(),
		nextCursor: root.Get("next_cursor").String(),
	}
	root.Get("results").ForEach(func(_, value gjson.Result) bool {
		page.records = append(page.records, parseRecord(value))
		return true
	})
	return page
}

func parseRecord(page gjson.Result) Record {
	record := Record{
		ID:             page.Get("id").String(),
		URL:            page.Get("url").String(),
		CreatedTime:    parseTime(page.Get("created_time").String()),
		LastEditedTime: parseTime(page.Get("last_edited_time").String()),
		Archived:       page.Get("archived").Bool(),
		CreatedBy:      parseUser(page.Get("created_by")),
		LastEditedBy:   parseUser(page.Get("last_edited_by")),
	}

	// ForEach walks the properties object in document order
	page.Get("properties").ForEach(func(name, prop gjson.Result) bool {
		record.Fields = append(record.Fields, parseProperty(name.String(), prop))
		return true
	})
	return record
}

func parseProperty(name string, prop gjson.Result) models.Field {
	rawType := prop.Get("type").String()
	field := models.Field{Name: name, Kind: models.FieldKind(rawType)}
	value := prop.Get(rawType)

	switch field.Kind {
	case models.FieldTitle, models.FieldRichText:
		field.Text = plainText(value)
	case models.FieldNumber:
		if value.Type == gjson.Number {
			n := value.Float()
			field.Number = &n
		}
	case models.FieldSelect:
		field.Text = value.Get("name").String()
	case models.FieldMultiSelect:
		value.ForEach(func(_, option gjson.Result) bool {
			field.Options = append(field.Options, option.Get("name").String())
			return true
		})
	case models.FieldDate:
		if value.IsObject() {
			field.Date = &models.DateRange{
				Start: value.Get("start").String(),
				End:   value.Get("end").String(),
			}
		}
	case models.FieldPeople:
		value.ForEach(func(_, person gjson.Result) bool {
			field.People = append(field.People, parseUser(person))
			return true
		})
	case models.FieldCreatedBy, models.FieldLastEditedBy:
		if value.IsObject() {
			field.People = []models.UserRef{parseUser(value)}
		}
	case models.FieldCheckbox:
		field.Checked = value.Bool()
	case models.FieldURL, models.FieldEmail, models.FieldPhoneNumber:
		field.Text = value.String()
	case models.FieldFiles:
		value.ForEach(func(_, file gjson.Result) bool {
			field.Files = append(field.Files, parseFile(file))
			return true
		})
	default:
		field.Kind = models.FieldUnknown
		field.RawType = rawType
	}
	return field
}

func parseUser(user gjson.Result) models.UserRef {
	return models.UserRef{
		ID:    user.Get("id").String(),
		Name:  user.Get("name").String(),
		Email: user.Get("person.email").String(),
	}
}

// parseFile reads a hosted ("file") or linked ("external") file object
func parseFile(file gjson.Result) models.FileRef {
	ref := models.FileRef{Name: file.Get("name").String()}
	switch file.Get("type").String() {
	case "external":
		ref.URL = file.Get("external.url").String()
	default:
		ref.URL = file.Get("file.url").String()
	}
	if ref.Name == "" {
		ref.Name = fileNameFromURL(ref.URL)
	}
	return ref
}

func parseBlocksPage(body []byte) ([]Block, bool, string) {
	root := gjson.ParseBytes(body)
	var blocks []Block
	root.Get("results").ForEach(func(_, value gjson.Result) bool {
		blocks = append(blocks, parseBlock(value))
		return true
	})
	return blocks, root.Get("has_more").Bool(), root.Get("next_cursor").String()
}

func parseBlock(value gjson.Result) Block {
	blockType := value.Get("type").String()
	block := Block{
		ID:          value.Get("id").String(),
		Type:        blockType,
		HasChildren: value.Get("has_children").Bool(),
	}
	content := value.Get(blockType)

	switch {
	case textBlockTypes[blockType]:
		block.Text = plainText(content.Get("rich_text"))
	case fileBlockTypes[blockType]:
		file := parseFile(content)
		block.File = &file
		block.Text = plainText(content.Get("caption"))
	}
	return block
}

// plainText concatenates the plain_text of a rich text array
func plainText(richText gjson.Result) string {
	var sb strings.Builder
	for _, part := range richText.Get("#.plain_text").Array() {
		sb.WriteString(part.String())
	}
	return sb.String()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func fileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	name := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "/" || name == "." {
		return ""
	}
	return name
}
