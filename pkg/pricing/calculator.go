// Package pricing computes the running payable total of a form from its
// currently visible fields.
package pricing

import (
	"math"
	"strings"
	"time"

	"github.com/parishkit/formengine/pkg/schema"
	"github.com/parishkit/formengine/pkg/visibility"
	"github.com/parishkit/formengine/pkg/visibility/expr"
)

const isoDay = "2006-01-02"

// Calculator walks a form in declaration order and sums the prices of
// visible fields. The zero value is not usable; construct with New.
type Calculator struct {
	eval visibility.Evaluator
}

// New returns a calculator using the default expression evaluator.
func New() *Calculator {
	return &Calculator{eval: expr.New()}
}

// NewWithEvaluator returns a calculator using a custom visibility evaluator.
func NewWithEvaluator(eval visibility.Evaluator) *Calculator {
	if eval == nil {
		return New()
	}
	return &Calculator{eval: eval}
}

// Total computes the payable total for the current response values. Hidden
// fields contribute nothing. Pricelabel line items are the source of truth
// when any exist; the price field's stored amount counts only on legacy
// forms without line items.
func (c *Calculator) Total(form *schema.Form, values map[string]any) float64 {
	if form == nil {
		return 0
	}

	hasLabels := form.HasPriceLabels()

	var total float64
	for i := range form.Fields {
		field := &form.Fields[i]
		if !c.eval.Eval(field.VisibleIf, visibility.Context{Values: values}) {
			continue
		}

		switch field.Kind {
		case schema.KindPriceLabel:
			total += field.Amount
		case schema.KindPrice:
			// line items already contribute; only legacy forms carry the
			// amount on the price field itself
			if !hasLabels {
				total += field.Amount
			}
		case schema.KindCheckbox, schema.KindSwitch:
			if field.Price != nil && truthy(values[field.Name]) {
				total += *field.Price
			}
		case schema.KindRadio:
			total += optionPrice(field, values[field.Name])
		case schema.KindSelect:
			if field.Multiple {
				for _, selected := range stringList(values[field.Name]) {
					total += optionPrice(field, selected)
				}
			} else {
				total += optionPrice(field, values[field.Name])
			}
		case schema.KindDate:
			total += c.datePrice(field, values[field.Name])
		}
	}

	if total < 0 {
		return 0
	}
	return total
}

// Round quantizes a total to two decimals for display.
func Round(total float64) float64 {
	return math.Round(total*100) / 100
}

// Methods reports which payment methods the visible price field allows.
// When the field sets neither flag both methods are offered, matching forms
// saved before the flags existed.
func (c *Calculator) Methods(form *schema.Form, values map[string]any) (payPal, inPerson bool) {
	price := form.PriceField()
	if price == nil {
		return false, false
	}
	if !c.eval.Eval(price.VisibleIf, visibility.Context{Values: values}) {
		return false, false
	}
	if !price.AllowPayPal && !price.AllowInPerson {
		return true, true
	}
	return price.AllowPayPal, price.AllowInPerson
}

// SelectedMethod resolves the payment method for the current values: the
// companion key when both methods are offered, otherwise the single allowed
// method. An empty string means no payment applies.
func (c *Calculator) SelectedMethod(form *schema.Form, values map[string]any) string {
	payPal, inPerson := c.Methods(form, values)
	switch {
	case payPal && inPerson:
		price := form.PriceField()
		if raw, ok := values[schema.PaymentMethodKey(price.Name)]; ok {
			if method, _ := raw.(string); method == schema.MethodInPerson {
				return schema.MethodInPerson
			}
		}
		return schema.MethodPayPal
	case payPal:
		return schema.MethodPayPal
	case inPerson:
		return schema.MethodInPerson
	}
	return ""
}

// datePrice sums the per-day price over the selected day or inclusive range.
// Precedence per day: specific-date override, then weekday override, then
// the base rate.
func (c *Calculator) datePrice(field *schema.Field, raw any) float64 {
	pricing := field.Pricing
	if pricing == nil || !pricing.Enabled {
		return 0
	}

	from, to, ok := selectedSpan(field, raw)
	if !ok {
		return 0
	}

	var total float64
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		total += dayPrice(pricing, day)
	}
	return total
}

func dayPrice(pricing *schema.DatePricing, day time.Time) float64 {
	if price, ok := pricing.Dates[day.Format(isoDay)]; ok {
		return price
	}
	if price, ok := pricing.Weekdays[int(day.Weekday())]; ok {
		return price
	}
	return pricing.BasePerDay
}

func selectedSpan(field *schema.Field, raw any) (from, to time.Time, ok bool) {
	if field.DateMode == schema.DateRange {
		span, present := spanValue(raw)
		if !present {
			return time.Time{}, time.Time{}, false
		}
		from, errFrom := parseDay(span.From)
		to, errTo := parseDay(span.To)
		if errFrom != nil || errTo != nil || to.Before(from) {
			return time.Time{}, time.Time{}, false
		}
		return from, to, true
	}

	text, ok := stringOf(raw)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	day, err := parseDay(text)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return day, day, true
}

func optionPrice(field *schema.Field, raw any) float64 {
	selected, ok := stringOf(raw)
	if !ok || selected == "" {
		return 0
	}
	for _, option := range field.Options {
		if option.Value == selected {
			return option.Price
		}
	}
	return 0
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

func stringOf(raw any) (string, bool) {
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func stringList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func spanValue(raw any) (schema.DateSpan, bool) {
	switch v := raw.(type) {
	case schema.DateSpan:
		return v, v.From != "" && v.To != ""
	case map[string]any:
		from, _ := v["from"].(string)
		to, _ := v["to"].(string)
		span := schema.DateSpan{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
		return span, span.From != "" && span.To != ""
	case map[string]string:
		span := schema.DateSpan{From: strings.TrimSpace(v["from"]), To: strings.TrimSpace(v["to"])}
		return span, span.From != "" && span.To != ""
	default:
		return schema.DateSpan{}, false
	}
}

func parseDay(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if len(text) > len(isoDay) {
		text = text[:len(isoDay)]
	}
	return time.Parse(isoDay, text)
}
