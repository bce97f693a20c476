package i18n

import (
	"sort"
	"testing"

	"github.com/parishkit/formengine/pkg/schema"
)

func mealField() *schema.Field {
	return &schema.Field{
		ID:          "f1",
		Name:        "meal",
		Kind:        schema.KindSelect,
		Label:       "Meal preference",
		Placeholder: "Pick one",
		HelpText:    "Served on Saturday",
		Options: []schema.Option{
			{Label: "Chicken", Value: "chicken"},
			{Label: "Vegetarian", Value: "veg", Labels: map[string]string{"es": "Vegetariano"}},
		},
	}
}

func TestResolveFallsBackToAuthoringValue(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	catalog.Set("f1", "es", PropLabel, "Preferencia de comida")

	r := NewResolver("en", catalog)
	field := mealField()

	if got := r.Resolve(field, PropLabel, "es"); got != "Preferencia de comida" {
		t.Fatalf("translated label = %q", got)
	}
	// no catalog entry for the placeholder, fall back to the authoring text
	if got := r.Resolve(field, PropPlaceholder, "es"); got != "Pick one" {
		t.Fatalf("placeholder fallback = %q", got)
	}
	if got := r.Resolve(field, PropHelpText, "fr"); got != "Served on Saturday" {
		t.Fatalf("untranslated locale fallback = %q", got)
	}
}

func TestResolveAuthoringLocaleIgnoresCatalog(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	catalog.Set("f1", "en", PropLabel, "Stale translation")

	r := NewResolver("en", catalog)
	field := mealField()

	if got := r.Resolve(field, PropLabel, "en"); got != "Meal preference" {
		t.Fatalf("authoring locale must read the field record, got %q", got)
	}
	if got := r.Resolve(field, PropLabel, ""); got != "Meal preference" {
		t.Fatalf("empty locale must read the field record, got %q", got)
	}
}

func TestOptionLabelPrecedence(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	catalog.Set("f1", "es", OptionProperty(0), "Pollo")

	r := NewResolver("en", catalog)
	field := mealField()

	if got := r.OptionLabel(field, 0, "es"); got != "Pollo" {
		t.Fatalf("catalog option label = %q", got)
	}
	// no catalog entry for option 1 but the option carries its own override
	if got := r.OptionLabel(field, 1, "es"); got != "Vegetariano" {
		t.Fatalf("option override label = %q", got)
	}
	if got := r.OptionLabel(field, 1, "fr"); got != "Vegetarian" {
		t.Fatalf("option fallback label = %q", got)
	}
	if got := r.OptionLabel(field, 5, "es"); got != "" {
		t.Fatalf("out-of-range option label = %q", got)
	}
}

func TestResolveOptionViaProperty(t *testing.T) {
	t.Parallel()

	r := NewResolver("en", nil)
	field := mealField()

	if got := r.Resolve(field, OptionProperty(1), "es"); got != "Vegetarian" {
		t.Fatalf("option property fallback = %q", got)
	}
	if got := r.Resolve(field, "option_notanumber", "es"); got != "" {
		t.Fatalf("malformed option property = %q", got)
	}
}

func TestPaymentVocabulary(t *testing.T) {
	t.Parallel()

	price := &schema.Field{ID: "p1", Name: "total", Kind: schema.KindPrice, Label: "Payment"}

	catalog := NewCatalog()
	catalog.Set("p1", "es", PayPalOption, "PayPal (ES)")

	r := NewResolver("en", catalog)

	if got := r.PaymentText(price, PayPalOption, "es"); got != "PayPal (ES)" {
		t.Fatalf("translated payment text = %q", got)
	}
	if got := r.PaymentText(price, ChooseMethod, "es"); got != "Choose a payment method" {
		t.Fatalf("payment fallback = %q", got)
	}
	if got := r.PaymentText(price, InPersonOption, "en"); got != "Pay in person" {
		t.Fatalf("authoring payment text = %q", got)
	}
	if got := r.PaymentText(price, "unknown_key", "es"); got != "" {
		t.Fatalf("unknown vocabulary key = %q", got)
	}
}

func TestCatalogSetEmptyRemoves(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	catalog.Set("f1", "es", PropLabel, "Hola")
	catalog.Set("f1", "es", PropLabel, "  ")

	if _, ok := catalog.Get("f1", "es", PropLabel); ok {
		t.Fatal("blank Set must remove the entry")
	}
}

func TestCatalogLocalesAndRemoveField(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	catalog.Set("f1", "es", PropLabel, "Hola")
	catalog.Set("f2", "fr", PropLabel, "Bonjour")

	locales := catalog.Locales()
	sort.Strings(locales)
	if len(locales) != 2 || locales[0] != "es" || locales[1] != "fr" {
		t.Fatalf("locales = %v", locales)
	}

	catalog.RemoveField("f1")
	if _, ok := catalog.Get("f1", "es", PropLabel); ok {
		t.Fatal("removed field still resolves")
	}
	if _, ok := catalog.Get("f2", "fr", PropLabel); !ok {
		t.Fatal("unrelated field lost its translations")
	}
}
