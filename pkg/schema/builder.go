package schema

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// NewForm creates a blank form with the authoring defaults the builder
// starts from.
func NewForm(title string) *Form {
	return &Form{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(title),
		Ministries:    []string{},
		DefaultLocale: DefaultAuthoringLocale,
		Locales:       []string{},
		FormWidth:     DefaultFormWidth,
		Fields:        []Field{},
	}
}

// NewField creates a field of the given kind with a fresh id and a
// machine name derived from the label, made unique within the form.
func NewField(form *Form, kind Kind, label string) Field {
	field := Field{
		ID:    uuid.NewString(),
		Kind:  kind,
		Label: strings.TrimSpace(label),
		Width: WidthFull,
	}
	if kind.Interactive() {
		field.Name = uniqueName(form, machineName(field.Label, string(kind)))
	}
	switch kind {
	case KindDate:
		field.DateMode = DateSingle
	case KindStatic:
		field.Style = &StaticStyle{Tag: "p"}
	}
	return field
}

// AppendField adds the field to the form and keeps the price field's amount
// synchronised with the pricelabel line items.
func AppendField(form *Form, field Field) {
	if form == nil {
		return
	}
	form.Fields = append(form.Fields, field)
	SyncPriceAmount(form)
}

// RemoveField deletes the field with the given id, preserving order, and
// re-synchronises the price total.
func RemoveField(form *Form, fieldID string) bool {
	if form == nil {
		return false
	}
	for i := range form.Fields {
		if form.Fields[i].ID == fieldID {
			form.Fields = append(form.Fields[:i], form.Fields[i+1:]...)
			SyncPriceAmount(form)
			return true
		}
	}
	return false
}

// SyncPriceAmount keeps the price field's amount equal to the sum of all
// pricelabel amounts whenever any pricelabels exist. The price field is the
// single source of truth for the payable total; the builder calls this after
// every mutation that can touch a pricelabel.
func SyncPriceAmount(form *Form) {
	if form == nil {
		return
	}
	price := form.PriceField()
	if price == nil || !form.HasPriceLabels() {
		return
	}
	var sum float64
	for i := range form.Fields {
		if form.Fields[i].Kind == KindPriceLabel {
			sum += form.Fields[i].Amount
		}
	}
	price.Amount = sum
}

// Snapshot serialises the form to its canonical persisted JSON. The builder
// keeps the last-saved snapshot to compute the dirty bit.
func Snapshot(form *Form) ([]byte, error) {
	return EncodeJSON(form)
}

// Dirty reports whether the form differs from a previously taken snapshot.
func Dirty(form *Form, snapshot []byte) bool {
	current, err := EncodeJSON(form)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, bytes.TrimSpace(snapshot))
}

func machineName(label, fallback string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return fallback
	}
	return name
}

func uniqueName(form *Form, base string) string {
	if form == nil || form.FieldByName(base) == nil {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if form.FieldByName(candidate) == nil {
			return candidate
		}
	}
}
