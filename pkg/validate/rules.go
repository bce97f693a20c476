package validate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/parishkit/formengine/pkg/schema"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	timePattern  = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)
	colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	digitPattern = regexp.MustCompile(`\D+`)
)

const isoDay = "2006-01-02"

// compileCheck resolves a field's constraint set into a single closure.
// The switch is exhaustive over the interactive kinds.
func compileCheck(field *schema.Field) checkFunc {
	label := fieldLabel(field)

	switch field.Kind {
	case schema.KindText, schema.KindTextarea:
		return textCheck(field, label)
	case schema.KindEmail:
		return emailCheck(label)
	case schema.KindPassword:
		return passwordCheck(field, label)
	case schema.KindURL:
		return urlCheck(label)
	case schema.KindTel:
		return telCheck(label)
	case schema.KindNumber:
		return numberCheck(field, label)
	case schema.KindCheckbox, schema.KindSwitch:
		return boolCheck()
	case schema.KindSelect:
		if field.Multiple {
			return multiSelectCheck()
		}
		return stringCheck()
	case schema.KindRadio:
		return stringCheck()
	case schema.KindDate:
		if field.DateMode == schema.DateRange {
			return dateRangeCheck(field, label)
		}
		return dateCheck(field, label)
	case schema.KindTime:
		return timeCheck(field, label)
	case schema.KindColor:
		return colorCheck(label)
	}

	// static, price and pricelabel fields never reach the compiler
	return func(raw any) (any, bool, []string) { return raw, raw != nil, nil }
}

func textCheck(field *schema.Field, label string) checkFunc {
	var pattern *regexp.Regexp
	if field.Pattern != "" {
		if compiled, err := regexp.Compile(field.Pattern); err == nil {
			pattern = compiled
		}
	}
	minLen, maxLen := field.MinLength, field.MaxLength

	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok {
			return nil, false, nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, false, nil
		}

		var msgs []string
		if minLen != nil && len([]rune(text)) < *minLen {
			msgs = append(msgs, fmt.Sprintf("%s must be at least %d characters", label, *minLen))
		}
		if maxLen != nil && len([]rune(text)) > *maxLen {
			msgs = append(msgs, fmt.Sprintf("%s must be at most %d characters", label, *maxLen))
		}
		if pattern != nil && !pattern.MatchString(text) {
			msgs = append(msgs, fmt.Sprintf("%s has an invalid format", label))
		}
		return text, true, msgs
	}
}

func emailCheck(label string) checkFunc {
	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok {
			return nil, false, nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, false, nil
		}
		if !emailPattern.MatchString(text) {
			return text, true, []string{fmt.Sprintf("%s must be a valid email address", label)}
		}
		return text, true, nil
	}
}

func passwordCheck(field *schema.Field, label string) checkFunc {
	minLen, maxLen := field.MinLength, field.MaxLength

	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok || text == "" {
			return nil, false, nil
		}

		var msgs []string
		if minLen != nil && len(text) < *minLen {
			msgs = append(msgs, fmt.Sprintf("%s must be at least %d characters", label, *minLen))
		}
		if maxLen != nil && len(text) > *maxLen {
			msgs = append(msgs, fmt.Sprintf("%s must be at most %d characters", label, *maxLen))
		}
		if field.RequireUpper && !strings.ContainsFunc(text, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
			msgs = append(msgs, fmt.Sprintf("%s must contain an uppercase letter", label))
		}
		if field.RequireLower && !strings.ContainsFunc(text, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
			msgs = append(msgs, fmt.Sprintf("%s must contain a lowercase letter", label))
		}
		if field.RequireDigit && !strings.ContainsAny(text, "0123456789") {
			msgs = append(msgs, fmt.Sprintf("%s must contain a digit", label))
		}
		if field.RequireSpecial && !strings.ContainsFunc(text, func(r rune) bool {
			return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
		}) {
			msgs = append(msgs, fmt.Sprintf("%s must contain a special character", label))
		}
		return text, true, msgs
	}
}

func urlCheck(label string) checkFunc {
	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok {
			return nil, false, nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, false, nil
		}

		parsed, err := url.Parse(text)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return text, true, []string{fmt.Sprintf("%s must be an absolute http or https URL", label)}
		}
		return text, true, nil
	}
}

// telCheck strips every non-digit and keeps the first ten digits, matching
// the normalisation the public renderer applies while typing.
func telCheck(label string) checkFunc {
	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok {
			return nil, false, nil
		}
		digits := digitPattern.ReplaceAllString(text, "")
		if digits == "" {
			return nil, false, nil
		}
		if len(digits) > 10 {
			digits = digits[:10]
		}
		if len(digits) < 10 {
			return digits, true, []string{fmt.Sprintf("%s must be a valid mobile number", label)}
		}
		return digits, true, nil
	}
}

func numberCheck(field *schema.Field, label string) checkFunc {
	allowed := parseAllowedValues(field.AllowedValues)

	return func(raw any) (any, bool, []string) {
		num, present, ok := numberValue(raw)
		if !present {
			return nil, false, nil
		}
		if !ok {
			return nil, true, []string{fmt.Sprintf("%s must be a number", label)}
		}

		var msgs []string
		if field.Min != nil && num < *field.Min {
			msgs = append(msgs, fmt.Sprintf("%s must be at least %v", label, *field.Min))
		}
		if field.Max != nil && num > *field.Max {
			msgs = append(msgs, fmt.Sprintf("%s must be at most %v", label, *field.Max))
		}
		if len(allowed) > 0 && !containsFloat(allowed, num) {
			msgs = append(msgs, fmt.Sprintf("%s must be one of the allowed values", label))
		}
		return num, true, msgs
	}
}

func boolCheck() checkFunc {
	return func(raw any) (any, bool, []string) {
		switch v := raw.(type) {
		case nil:
			return nil, false, nil
		case bool:
			return v, true, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return false, true, nil
			}
			return parsed, true, nil
		default:
			return false, true, nil
		}
	}
}

func stringCheck() checkFunc {
	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok || strings.TrimSpace(text) == "" {
			return nil, false, nil
		}
		return text, true, nil
	}
}

func multiSelectCheck() checkFunc {
	return func(raw any) (any, bool, []string) {
		switch v := raw.(type) {
		case nil:
			return []string{}, false, nil
		case []string:
			return v, len(v) > 0, nil
		case []any:
			out := make([]string, 0, len(v))
			for _, entry := range v {
				if s, ok := stringValue(entry); ok && s != "" {
					out = append(out, s)
				}
			}
			return out, len(out) > 0, nil
		default:
			return []string{}, false, nil
		}
	}
}

func dateCheck(field *schema.Field, label string) checkFunc {
	minDate := parseDay(field.MinDate)
	maxDate := parseDay(field.MaxDate)

	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok || strings.TrimSpace(text) == "" {
			return nil, false, nil
		}

		day, err := parseDayValue(text)
		if err != nil {
			return text, true, []string{fmt.Sprintf("%s must be a valid date", label)}
		}

		var msgs []string
		if minDate != nil && day.Before(*minDate) {
			msgs = append(msgs, fmt.Sprintf("%s must be on or after %s", label, field.MinDate))
		}
		if maxDate != nil && day.After(*maxDate) {
			msgs = append(msgs, fmt.Sprintf("%s must be on or before %s", label, field.MaxDate))
		}
		return day.Format(isoDay), true, msgs
	}
}

func dateRangeCheck(field *schema.Field, label string) checkFunc {
	minDate := parseDay(field.MinDate)
	maxDate := parseDay(field.MaxDate)

	return func(raw any) (any, bool, []string) {
		span, present := spanValue(raw)
		if !present {
			return schema.DateSpan{}, false, nil
		}

		var msgs []string
		from, errFrom := parseDayValue(span.From)
		to, errTo := parseDayValue(span.To)
		if errFrom != nil || errTo != nil {
			return span, true, []string{fmt.Sprintf("%s must be a valid date range", label)}
		}

		if to.Before(from) {
			msgs = append(msgs, fmt.Sprintf("%s end date must not be before the start date", label))
		}
		if minDate != nil && from.Before(*minDate) {
			msgs = append(msgs, fmt.Sprintf("%s must start on or after %s", label, field.MinDate))
		}
		if maxDate != nil && to.After(*maxDate) {
			msgs = append(msgs, fmt.Sprintf("%s must end on or before %s", label, field.MaxDate))
		}

		coerced := schema.DateSpan{From: from.Format(isoDay), To: to.Format(isoDay)}
		return coerced, true, msgs
	}
}

func timeCheck(field *schema.Field, label string) checkFunc {
	minMinutes, hasMin := parseClock(field.MinTime)
	maxMinutes, hasMax := parseClock(field.MaxTime)

	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok || strings.TrimSpace(text) == "" {
			return nil, false, nil
		}
		text = strings.TrimSpace(text)

		if !timePattern.MatchString(text) {
			return text, true, []string{fmt.Sprintf("%s must be a time in HH:MM format", label)}
		}
		minutes, _ := parseClock(text)

		var msgs []string
		if hasMin && minutes < minMinutes {
			msgs = append(msgs, fmt.Sprintf("%s must be at or after %s", label, field.MinTime))
		}
		if hasMax && minutes > maxMinutes {
			msgs = append(msgs, fmt.Sprintf("%s must be at or before %s", label, field.MaxTime))
		}
		return text, true, msgs
	}
}

func colorCheck(label string) checkFunc {
	return func(raw any) (any, bool, []string) {
		text, ok := stringValue(raw)
		if !ok || strings.TrimSpace(text) == "" {
			return nil, false, nil
		}
		text = strings.TrimSpace(text)
		if !colorPattern.MatchString(text) {
			return text, true, []string{fmt.Sprintf("%s must be a hex color like #RGB or #RRGGBB", label)}
		}
		return text, true, nil
	}
}

func stringValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// numberValue coerces a raw value. present distinguishes "no input" from
// "input that is not a number".
func numberValue(raw any) (num float64, present, ok bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false, false
	case float64:
		return v, true, true
	case float32:
		return float64(v), true, true
	case int:
		return float64(v), true, true
	case int64:
		return float64(v), true, true
	case json.Number:
		f, err := v.Float64()
		return f, true, err == nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, true, err == nil
	default:
		return 0, true, false
	}
}

func spanValue(raw any) (schema.DateSpan, bool) {
	switch v := raw.(type) {
	case nil:
		return schema.DateSpan{}, false
	case schema.DateSpan:
		return v, v.From != "" || v.To != ""
	case map[string]any:
		from, _ := stringValue(v["from"])
		to, _ := stringValue(v["to"])
		span := schema.DateSpan{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
		return span, span.From != "" || span.To != ""
	case map[string]string:
		span := schema.DateSpan{From: strings.TrimSpace(v["from"]), To: strings.TrimSpace(v["to"])}
		return span, span.From != "" || span.To != ""
	default:
		return schema.DateSpan{}, false
	}
}

// parseDayValue accepts ISO days as well as longer timestamps, comparing at
// day precision.
func parseDayValue(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if len(text) > len(isoDay) {
		text = text[:len(isoDay)]
	}
	return time.Parse(isoDay, text)
}

func parseDay(text string) *time.Time {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	day, err := parseDayValue(text)
	if err != nil {
		return nil
	}
	return &day
}

func parseClock(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if !timePattern.MatchString(text) {
		return 0, false
	}
	parts := strings.SplitN(text, ":", 2)
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	return hours*60 + minutes, true
}

func parseAllowedValues(raw string) []float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if f, err := strconv.ParseFloat(part, 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

func containsFloat(list []float64, target float64) bool {
	for _, entry := range list {
		if entry == target {
			return true
		}
	}
	return false
}
