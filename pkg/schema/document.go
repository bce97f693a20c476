package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// formDocument mirrors Form for decoding and additionally accepts the legacy
// underscore width key older persisted documents carry.
type formDocument struct {
	Form            `yaml:",inline"`
	LegacyFormWidth string `json:"form_width,omitempty" yaml:"form_width,omitempty"`
}

// DecodeJSON parses a persisted form document. Legacy width tokens and the
// legacy form_width key are normalised onto the canonical percentage codes.
func DecodeJSON(raw []byte) (*Form, error) {
	var doc formDocument
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: decode form document: %w", err)
	}
	return normalizeDecoded(&doc)
}

// DecodeYAML parses a YAML form document, applying the same normalisation
// as DecodeJSON.
func DecodeYAML(raw []byte) (*Form, error) {
	var doc formDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: decode form document: %w", err)
	}
	return normalizeDecoded(&doc)
}

// Decode sniffs the payload and dispatches to the JSON or YAML decoder.
func Decode(raw []byte) (*Form, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return DecodeJSON(raw)
	}
	return DecodeYAML(raw)
}

// EncodeJSON serialises the canonical wire form. Width codes are normalised
// on the way out so round trips converge on the canonical vocabulary.
func EncodeJSON(form *Form) ([]byte, error) {
	if form == nil {
		return nil, fmt.Errorf("schema: encode nil form")
	}
	clone := *form
	clone.FormWidth = NormalizeFormWidth(string(clone.FormWidth))
	if clone.Ministries == nil {
		clone.Ministries = []string{}
	}
	if clone.Locales == nil {
		clone.Locales = []string{}
	}
	if clone.Fields == nil {
		clone.Fields = []Field{}
	}
	out, err := json.Marshal(&clone)
	if err != nil {
		return nil, fmt.Errorf("schema: encode form document: %w", err)
	}
	return out, nil
}

func normalizeDecoded(doc *formDocument) (*Form, error) {
	form := doc.Form

	width := string(form.FormWidth)
	if strings.TrimSpace(width) == "" {
		width = doc.LegacyFormWidth
	}
	form.FormWidth = NormalizeFormWidth(width)

	if strings.TrimSpace(form.DefaultLocale) == "" {
		form.DefaultLocale = DefaultAuthoringLocale
	}
	for i := range form.Fields {
		if !form.Fields[i].Kind.Known() {
			return nil, fmt.Errorf("schema: field %q has unknown kind %q", form.Fields[i].Name, form.Fields[i].Kind)
		}
	}
	return &form, nil
}
