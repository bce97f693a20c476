// Package validate compiles a form schema into a value-map validator.
//
// A compiled validator applies two logical layers: format and bounds checks
// that run whenever a value is present, and required-presence checks that are
// suppressed for fields whose visibility rule evaluates false against the
// current response map. Presence issues for hidden fields are still reported
// separately so a UI can show them, but they never block submission.
package validate

import (
	"strings"

	"github.com/parishkit/formengine/pkg/schema"
	"github.com/parishkit/formengine/pkg/visibility"
	"github.com/parishkit/formengine/pkg/visibility/expr"
)

// Issue is one field-level validation failure. Messages are produced in
// English; callers localize them on render.
type Issue struct {
	FieldID   string `json:"fieldId,omitempty"`
	FieldName string `json:"fieldName"`
	Message   string `json:"message"`
}

// Result is the outcome of a validation pass. Values holds the coerced value
// map when validation succeeds (and the coerced subset otherwise). Hidden
// collects required-presence issues for fields that are currently invisible;
// they are informational and never block submission.
type Result struct {
	Values map[string]any `json:"values,omitempty"`
	Issues []Issue        `json:"issues,omitempty"`
	Hidden []Issue        `json:"hidden,omitempty"`
}

// OK reports whether the pass produced no blocking issues.
func (r Result) OK() bool { return len(r.Issues) == 0 }

// Option configures the compiler.
type Option func(*Validator)

// WithEvaluator overrides the visibility evaluator used to gate
// required-presence checks.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(v *Validator) {
		if eval != nil {
			v.eval = eval
		}
	}
}

// Validator is a schema compiled into per-field checks. Compile once per
// schema; Validate and Trigger are safe for repeated use.
type Validator struct {
	form   *schema.Form
	eval   visibility.Evaluator
	checks []fieldCheck
}

type fieldCheck struct {
	field *schema.Field
	label string
	check checkFunc
}

// checkFunc coerces a raw response value. present reports whether a value is
// effectively there after preprocessing (trimming etc.); msgs carries format
// and bounds failures, which only ever fire when present.
type checkFunc func(raw any) (coerced any, present bool, msgs []string)

// Compile builds a validator for the form. Each field's constraint set is
// resolved once; invalid authoring artefacts such as broken regex patterns
// are skipped rather than turned into runtime failures.
func Compile(form *schema.Form, opts ...Option) *Validator {
	v := &Validator{
		form: form,
		eval: expr.New(),
	}
	for _, opt := range opts {
		opt(v)
	}

	if form == nil {
		return v
	}
	for i := range form.Fields {
		field := &form.Fields[i]
		if !field.Kind.Interactive() {
			continue
		}
		v.checks = append(v.checks, fieldCheck{
			field: field,
			label: fieldLabel(field),
			check: compileCheck(field),
		})
	}
	return v
}

// Validate runs every compiled check against the value map.
func (v *Validator) Validate(values map[string]any) Result {
	return v.run(values, nil)
}

// Trigger validates only the named fields; with no names it behaves like
// Validate. The runtime uses it to gate payment redirection on a subset.
func (v *Validator) Trigger(values map[string]any, names ...string) Result {
	if len(names) == 0 {
		return v.run(values, nil)
	}
	subset := make(map[string]struct{}, len(names))
	for _, name := range names {
		subset[name] = struct{}{}
	}
	return v.run(values, subset)
}

func (v *Validator) run(values map[string]any, subset map[string]struct{}) Result {
	result := Result{Values: make(map[string]any)}
	if values == nil {
		values = map[string]any{}
	}

	for _, fc := range v.checks {
		if subset != nil {
			if _, ok := subset[fc.field.Name]; !ok {
				continue
			}
		}

		visible := v.eval.Eval(fc.field.VisibleIf, visibility.Context{Values: values})
		coerced, present, msgs := fc.check(values[fc.field.Name])

		if present {
			result.Values[fc.field.Name] = coerced
			for _, msg := range msgs {
				result.Issues = append(result.Issues, Issue{
					FieldID:   fc.field.ID,
					FieldName: fc.field.Name,
					Message:   msg,
				})
			}
		}

		if missing := requiredMessage(fc.field, fc.label, coerced, present); missing != "" {
			issue := Issue{FieldID: fc.field.ID, FieldName: fc.field.Name, Message: missing}
			if visible {
				result.Issues = append(result.Issues, issue)
			} else {
				result.Hidden = append(result.Hidden, issue)
			}
		}
	}

	if len(result.Values) == 0 {
		result.Values = nil
	}
	return result
}

// requiredMessage returns the presence failure for a required field, or "".
func requiredMessage(field *schema.Field, label string, coerced any, present bool) string {
	if !field.Required {
		return ""
	}

	switch field.Kind {
	case schema.KindCheckbox, schema.KindSwitch:
		if b, ok := coerced.(bool); !present || !ok || !b {
			return label + " must be checked"
		}
		return ""
	case schema.KindSelect:
		if field.Multiple {
			list, _ := coerced.([]string)
			if !present || len(list) == 0 {
				return label + " is required"
			}
			return ""
		}
	case schema.KindDate:
		if field.DateMode == schema.DateRange {
			span, ok := coerced.(schema.DateSpan)
			if !present || !ok || span.From == "" || span.To == "" {
				return label + " is required"
			}
			return ""
		}
	}

	if !present {
		return label + " is required"
	}
	if s, ok := coerced.(string); ok && strings.TrimSpace(s) == "" {
		return label + " is required"
	}
	return ""
}

func fieldLabel(field *schema.Field) string {
	if label := strings.TrimSpace(field.Label); label != "" {
		return label
	}
	return field.Name
}
