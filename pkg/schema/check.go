package schema

import (
	"fmt"
	"strings"
)

// Issue is a structural problem found while checking a form. These are
// authoring errors: the builder refuses to save or preview while any exist.
type Issue struct {
	FieldID   string `json:"fieldId,omitempty"`
	FieldName string `json:"fieldName,omitempty"`
	Message   string `json:"message"`
}

// Check verifies the structural invariants of a form: unique field names,
// at most one price field, and non-empty option values on choice fields.
// Bounds consistency (min/max pairs) is the validator compiler's job.
func Check(form *Form) []Issue {
	if form == nil {
		return []Issue{{Message: "form is nil"}}
	}

	var issues []Issue
	seen := make(map[string]string, len(form.Fields))
	priceFields := 0

	for i := range form.Fields {
		field := &form.Fields[i]

		name := strings.TrimSpace(field.Name)
		if name == "" && field.Kind.Interactive() {
			issues = append(issues, Issue{
				FieldID: field.ID,
				Message: fmt.Sprintf("field %d has no name", i),
			})
			continue
		}
		if name != "" {
			if otherID, dup := seen[name]; dup {
				issues = append(issues, Issue{
					FieldID:   field.ID,
					FieldName: name,
					Message:   fmt.Sprintf("duplicate field name %q (also used by field %s)", name, otherID),
				})
			} else {
				seen[name] = field.ID
			}
		}

		switch field.Kind {
		case KindPrice:
			priceFields++
			if priceFields > 1 {
				issues = append(issues, Issue{
					FieldID:   field.ID,
					FieldName: name,
					Message:   "a form may carry only one price field",
				})
			}
		case KindSelect, KindRadio:
			for j, option := range field.Options {
				if strings.TrimSpace(option.Value) == "" {
					issues = append(issues, Issue{
						FieldID:   field.ID,
						FieldName: name,
						Message:   fmt.Sprintf("option %d of %q has an empty value", j, name),
					})
				}
			}
		}
	}

	return issues
}
