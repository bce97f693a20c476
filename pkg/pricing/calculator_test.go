package pricing

import (
	"testing"

	"github.com/parishkit/formengine/pkg/schema"
)

func floatPtr(v float64) *float64 { return &v }

func campForm() *schema.Form {
	return &schema.Form{Fields: []schema.Field{
		{ID: "l1", Kind: schema.KindPriceLabel, Label: "Lodging", Amount: 10},
		{ID: "l2", Kind: schema.KindPriceLabel, Label: "Meals", Amount: 5},
		{ID: "c", Name: "tshirt", Kind: schema.KindCheckbox, Label: "T-shirt", Price: floatPtr(2)},
		{ID: "p", Name: "total", Kind: schema.KindPrice, Label: "Payment Method", Amount: 0},
	}}
}

func TestTotalWithPriceLabels(t *testing.T) {
	t.Parallel()

	calc := New()
	form := campForm()

	// price field derives from the pricelabels regardless of its stored amount
	if got := calc.Total(form, map[string]any{}); got != 15 {
		t.Fatalf("total unchecked = %v, want 15", got)
	}
	if got := calc.Total(form, map[string]any{"tshirt": true}); got != 17 {
		t.Fatalf("total checked = %v, want 17", got)
	}
}

func TestTotalMonotonicOnOptions(t *testing.T) {
	t.Parallel()

	calc := New()
	form := &schema.Form{Fields: []schema.Field{
		{
			ID: "r", Name: "meal", Kind: schema.KindRadio, Label: "Meal",
			Options: []schema.Option{
				{Label: "None", Value: "none"},
				{Label: "Lunch", Value: "lunch", Price: 7.5},
			},
		},
		{
			ID: "s", Name: "extras", Kind: schema.KindSelect, Label: "Extras", Multiple: true,
			Options: []schema.Option{
				{Label: "Photo", Value: "photo", Price: 3},
				{Label: "Badge", Value: "badge", Price: 1.25},
			},
		},
	}}

	base := calc.Total(form, map[string]any{})
	if base != 0 {
		t.Fatalf("base total = %v, want 0", base)
	}

	withLunch := calc.Total(form, map[string]any{"meal": "lunch"})
	if withLunch-base != 7.5 {
		t.Fatalf("lunch delta = %v, want 7.5", withLunch-base)
	}

	withExtras := calc.Total(form, map[string]any{"meal": "lunch", "extras": []string{"photo", "badge"}})
	if diff := withExtras - withLunch; diff != 4.25 {
		t.Fatalf("extras delta = %v, want 4.25", diff)
	}

	backOff := calc.Total(form, map[string]any{"meal": "none", "extras": []string{"photo", "badge"}})
	if withExtras-backOff != 7.5 {
		t.Fatalf("deselect delta = %v, want 7.5", withExtras-backOff)
	}
}

func TestTotalRespectsVisibility(t *testing.T) {
	t.Parallel()

	calc := New()
	form := &schema.Form{Fields: []schema.Field{
		{ID: "c", Name: "member", Kind: schema.KindCheckbox, Label: "Member"},
		{ID: "l", Kind: schema.KindPriceLabel, Label: "Member fee", Amount: 20, VisibleIf: "member == true"},
	}}

	if got := calc.Total(form, map[string]any{}); got != 0 {
		t.Fatalf("hidden pricelabel contributed: %v", got)
	}
	if got := calc.Total(form, map[string]any{"member": true}); got != 20 {
		t.Fatalf("visible pricelabel total = %v, want 20", got)
	}
}

func TestDateRangePricing(t *testing.T) {
	t.Parallel()

	calc := New()
	form := &schema.Form{Fields: []schema.Field{
		{
			ID: "d", Name: "days", Kind: schema.KindDate, Label: "Days", DateMode: schema.DateRange,
			Pricing: &schema.DatePricing{
				Enabled:    true,
				BasePerDay: 10,
				Weekdays:   map[int]float64{0: 0, 6: 0}, // weekend free
			},
		},
	}}

	// 2026-07-03 is a Friday; Fri=10, Sat=0, Sun=0, Mon=10
	values := map[string]any{"days": schema.DateSpan{From: "2026-07-03", To: "2026-07-06"}}
	if got := calc.Total(form, values); got != 20 {
		t.Fatalf("weekend-free range total = %v, want 20", got)
	}

	// specific-date override beats the weekday override
	form.Fields[0].Pricing.Dates = map[string]float64{"2026-07-04": 50}
	if got := calc.Total(form, values); got != 70 {
		t.Fatalf("override range total = %v, want 70", got)
	}

	// single mode charges the one selected day
	form.Fields[0].DateMode = schema.DateSingle
	if got := calc.Total(form, map[string]any{"days": "2026-07-03"}); got != 10 {
		t.Fatalf("single day total = %v, want 10", got)
	}
}

func TestMethods(t *testing.T) {
	t.Parallel()

	calc := New()

	form := &schema.Form{Fields: []schema.Field{
		{ID: "p", Name: "total", Kind: schema.KindPrice, Label: "Payment Method"},
	}}

	payPal, inPerson := calc.Methods(form, nil)
	if !payPal || !inPerson {
		t.Fatalf("flagless price field must offer both methods, got paypal=%v inperson=%v", payPal, inPerson)
	}
	if got := calc.SelectedMethod(form, nil); got != schema.MethodPayPal {
		t.Fatalf("default method = %q, want paypal", got)
	}

	choice := map[string]any{schema.PaymentMethodKey("total"): schema.MethodInPerson}
	if got := calc.SelectedMethod(form, choice); got != schema.MethodInPerson {
		t.Fatalf("selected method = %q, want in-person", got)
	}

	form.Fields[0].AllowInPerson = true
	payPal, inPerson = calc.Methods(form, nil)
	if payPal || !inPerson {
		t.Fatalf("in-person only expected, got paypal=%v inperson=%v", payPal, inPerson)
	}
	if got := calc.SelectedMethod(form, nil); got != schema.MethodInPerson {
		t.Fatalf("single method = %q, want in-person", got)
	}

	if p, i := calc.Methods(&schema.Form{}, nil); p || i {
		t.Fatalf("form without price field offers no methods")
	}
}

func TestRound(t *testing.T) {
	t.Parallel()

	if got := Round(10.006); got != 10.01 {
		t.Fatalf("Round(10.006) = %v", got)
	}
	if got := Round(2.675000001); got != 2.68 {
		t.Fatalf("Round(2.675000001) = %v", got)
	}
}
