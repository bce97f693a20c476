package validate

import (
	"fmt"

	"github.com/parishkit/formengine/pkg/schema"
)

// BoundsIssue is an authoring-time inconsistency between a field's min and
// max constraints. Any non-empty result disables preview and save in the
// builder; it is distinct from runtime validation.
type BoundsIssue struct {
	FieldID    string `json:"fieldId"`
	FieldName  string `json:"fieldName"`
	FieldLabel string `json:"fieldLabel"`
	Type       string `json:"type"` // number, length, time, date
	Message    string `json:"message"`
}

// BoundsIssues checks every field's min/max pairs once per schema edit.
// A violating field surfaces exactly one issue.
func BoundsIssues(form *schema.Form) []BoundsIssue {
	if form == nil {
		return nil
	}

	var issues []BoundsIssue
	for i := range form.Fields {
		field := &form.Fields[i]
		if issue := boundsIssue(field); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues
}

func boundsIssue(field *schema.Field) *BoundsIssue {
	label := fieldLabel(field)

	switch field.Kind {
	case schema.KindNumber:
		if field.Min != nil && field.Max != nil && *field.Max <= *field.Min {
			return &BoundsIssue{
				FieldID: field.ID, FieldName: field.Name, FieldLabel: label,
				Type:    "number",
				Message: fmt.Sprintf("%s: max (%v) must be greater than min (%v)", label, *field.Max, *field.Min),
			}
		}
	case schema.KindText, schema.KindTextarea, schema.KindPassword:
		if field.MinLength != nil && field.MaxLength != nil && *field.MaxLength <= *field.MinLength {
			return &BoundsIssue{
				FieldID: field.ID, FieldName: field.Name, FieldLabel: label,
				Type:    "length",
				Message: fmt.Sprintf("%s: max length (%d) must be greater than min length (%d)", label, *field.MaxLength, *field.MinLength),
			}
		}
	case schema.KindTime:
		minMinutes, hasMin := parseClock(field.MinTime)
		maxMinutes, hasMax := parseClock(field.MaxTime)
		if hasMin && hasMax && maxMinutes <= minMinutes {
			return &BoundsIssue{
				FieldID: field.ID, FieldName: field.Name, FieldLabel: label,
				Type:    "time",
				Message: fmt.Sprintf("%s: max time (%s) must be after min time (%s)", label, field.MaxTime, field.MinTime),
			}
		}
	case schema.KindDate:
		minDate := parseDay(field.MinDate)
		maxDate := parseDay(field.MaxDate)
		if minDate != nil && maxDate != nil && !maxDate.After(*minDate) {
			return &BoundsIssue{
				FieldID: field.ID, FieldName: field.Name, FieldLabel: label,
				Type:    "date",
				Message: fmt.Sprintf("%s: max date (%s) must be after min date (%s)", label, field.MaxDate, field.MinDate),
			}
		}
	}
	return nil
}
