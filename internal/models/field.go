package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldKind enumerates the record property types the pipeline understands
type FieldKind string

const (
	FieldTitle        FieldKind = "title"
	FieldRichText     FieldKind = "rich_text"
	FieldNumber       FieldKind = "number"
	FieldSelect       FieldKind = "select"
	FieldMultiSelect  FieldKind = "multi_select"
	FieldDate         FieldKind = "date"
	FieldPeople       FieldKind = "people"
	FieldCheckbox     FieldKind = "checkbox"
	FieldURL          FieldKind = "url"
	FieldEmail        FieldKind = "email"
	FieldPhoneNumber  FieldKind = "phone_number"
	FieldFiles        FieldKind = "files"
	FieldCreatedBy    FieldKind = "created_by"
	FieldLastEditedBy FieldKind = "last_edited_by"
	FieldUnknown      FieldKind = "unknown"
)

// DateRange is a date property; End is empty for single dates
type DateRange struct {
	Start string
	End   string
}

// FileRef is an entry of a files property
type FileRef struct {
	Name string
	URL  string
}

// Field is a tagged union over record property kinds. Only the member matching Kind is set.
type Field struct {
	Name string
	Kind FieldKind

	Text    string     // title, rich_text, select, url, email, phone_number
	Number  *float64   // number
	Options []string   // multi_select
	Date    *DateRange // date
	People  []UserRef  // people, created_by, last_edited_by
	Checked bool       // checkbox
	Files   []FileRef  // files

	// RawType keeps the platform type name of unknown fields for logging
	RawType string
}

// Render formats the field as "name: value". Unknown and empty fields are skipped.
// People render by name only; their directory emails are not content.
func (f Field) Render() (string, bool) {
	value := f.value()
	if value == "" {
		return "", false
	}
	return fmt.Sprintf("%s: %s", f.Name, value), true
}

func (f Field) value() string {
	switch f.Kind {
	case FieldTitle, FieldRichText, FieldSelect, FieldURL, FieldEmail, FieldPhoneNumber:
		return strings.TrimSpace(f.Text)
	case FieldNumber:
		if f.Number == nil {
			return ""
		}
		return strconv.FormatFloat(*f.Number, 'f', -1, 64)
	case FieldMultiSelect:
		return strings.Join(f.Options, ", ")
	case FieldDate:
		if f.Date == nil || f.Date.Start == "" {
			return ""
		}
		if f.Date.End != "" {
			return f.Date.Start + " - " + f.Date.End
		}
		return f.Date.Start
	case FieldPeople, FieldCreatedBy, FieldLastEditedBy:
		names := make([]string, 0, len(f.People))
		for _, p := range f.People {
			if p.Name != "" {
				names = append(names, p.Name)
			}
		}
		return strings.Join(names, ", ")
	case FieldCheckbox:
		return strconv.FormatBool(f.Checked)
	case FieldFiles:
		names := make([]string, 0, len(f.Files))
		for _, file := range f.Files {
			if file.Name != "" {
				names = append(names, file.Name)
			}
		}
		return strings.Join(names, ", ")
	default:
		return ""
	}
}

// FirstPerson returns the first person carried by a people-like field
func (f Field) FirstPerson() (UserRef, bool) {
	switch f.Kind {
	case FieldPeople, FieldCreatedBy, FieldLastEditedBy:
		if len(f.People) > 0 {
			return f.People[0], true
		}
	}
	return UserRef{}, false
}
