// Package openapi imports OpenAPI component schemas as form drafts, giving
// authors a head start when a registration shape already exists as an API
// contract.
package openapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/parishkit/formengine/pkg/schema"
)

// ImportForm loads an OpenAPI document and converts the named component
// schema into a form draft. Only object schemas can be imported; properties
// map onto field kinds and everything unmappable is skipped.
func ImportForm(ctx context.Context, document []byte, component string) (*schema.Form, error) {
	if len(document) == 0 {
		return nil, fmt.Errorf("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	if spec.Components == nil {
		return nil, fmt.Errorf("openapi: document has no components")
	}
	ref, ok := spec.Components.Schemas[component]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("openapi: component schema %q not found", component)
	}
	source := ref.Value
	if source.Type != nil && !source.Type.Is("object") {
		return nil, fmt.Errorf("openapi: component schema %q is not an object", component)
	}

	title := strings.TrimSpace(source.Title)
	if title == "" {
		title = component
	}
	form := schema.NewForm(title)
	form.Description = strings.TrimSpace(source.Description)

	required := make(map[string]struct{}, len(source.Required))
	for _, name := range source.Required {
		required[name] = struct{}{}
	}

	// property maps are unordered; import in name order so repeated runs
	// produce the same draft
	names := make([]string, 0, len(source.Properties))
	for name := range source.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		property := source.Properties[name]
		if property == nil || property.Value == nil {
			continue
		}
		field, ok := importField(form, name, property.Value)
		if !ok {
			continue
		}
		if _, req := required[name]; req {
			field.Required = true
		}
		schema.AppendField(form, field)
	}

	if len(form.Fields) == 0 {
		return nil, fmt.Errorf("openapi: component schema %q has no importable properties", component)
	}
	return form, nil
}

func importField(form *schema.Form, name string, src *openapi3.Schema) (schema.Field, bool) {
	label := strings.TrimSpace(src.Title)
	if label == "" {
		label = humanize(name)
	}

	kind, ok := fieldKind(src)
	if !ok {
		return schema.Field{}, false
	}

	field := schema.NewField(form, kind, label)
	field.Name = name
	field.HelpText = strings.TrimSpace(src.Description)

	switch kind {
	case schema.KindSelect:
		for _, entry := range src.Enum {
			value, ok := enumValue(entry)
			if !ok {
				continue
			}
			field.Options = append(field.Options, schema.Option{
				Label: humanize(value),
				Value: value,
			})
		}
		if len(field.Options) == 0 {
			return schema.Field{}, false
		}
	case schema.KindNumber:
		if src.Min != nil {
			min := *src.Min
			field.Min = &min
		}
		if src.Max != nil {
			max := *src.Max
			field.Max = &max
		}
	case schema.KindText, schema.KindTextarea:
		if src.MinLength > 0 {
			minLen := int(src.MinLength)
			field.MinLength = &minLen
		}
		if src.MaxLength != nil {
			maxLen := int(*src.MaxLength)
			field.MaxLength = &maxLen
		}
		field.Pattern = src.Pattern
	}

	return field, true
}

// fieldKind maps an OpenAPI property onto the closed kind set.
func fieldKind(src *openapi3.Schema) (schema.Kind, bool) {
	if len(src.Enum) > 0 {
		return schema.KindSelect, true
	}

	switch {
	case src.Type.Is("string"):
		switch src.Format {
		case "email":
			return schema.KindEmail, true
		case "uri", "url":
			return schema.KindURL, true
		case "date":
			return schema.KindDate, true
		case "password":
			return schema.KindPassword, true
		}
		if src.MaxLength != nil && *src.MaxLength > 255 {
			return schema.KindTextarea, true
		}
		return schema.KindText, true
	case src.Type.Is("number"), src.Type.Is("integer"):
		return schema.KindNumber, true
	case src.Type.Is("boolean"):
		return schema.KindCheckbox, true
	}
	return "", false
}

func enumValue(entry any) (string, bool) {
	switch v := entry.(type) {
	case string:
		return v, v != ""
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

// humanize turns a machine name into a display label: "first_name" becomes
// "First name".
func humanize(name string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(name))
	if cleaned == "" {
		return name
	}
	runes := []rune(cleaned)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
