// Package i18n resolves display strings for form fields per locale.
//
// The authoring locale reads straight from the field record; every other
// locale reads through a catalog keyed by (field id, locale, property) and
// falls back to the authoring value when an entry is missing or empty.
package i18n

import (
	"fmt"
	"strings"
	"sync"

	"github.com/parishkit/formengine/pkg/schema"
)

// Display properties a field can localize. Option labels use OptionProperty.
const (
	PropLabel       = "label"
	PropPlaceholder = "placeholder"
	PropHelpText    = "helpText"
	PropContent     = "content"
)

// OptionProperty returns the catalog property key for the option at the
// given zero-based index.
func OptionProperty(index int) string {
	return fmt.Sprintf("option_%d", index)
}

// Built-in payment-method string keys carried by price fields.
const (
	PayPalRequired      = "paypal_required"
	PayPalDescription   = "paypal_description"
	PayPalOption        = "paypal_option"
	PayPalHint          = "paypal_hint"
	InPersonRequired    = "inperson_required"
	InPersonDescription = "inperson_description"
	InPersonOption      = "inperson_option"
	InPersonHint        = "inperson_hint"
	ChooseMethod        = "choose_method"
	NoMethods           = "no_methods"
)

var paymentVocabulary = map[string]string{
	PayPalRequired:      "Payment via PayPal is required to complete this registration",
	PayPalDescription:   "You will be redirected to PayPal to complete your payment",
	PayPalOption:        "PayPal",
	PayPalHint:          "Pay securely online with PayPal",
	InPersonRequired:    "Payment is collected in person",
	InPersonDescription: "Please bring your payment with you",
	InPersonOption:      "Pay in person",
	InPersonHint:        "Pay at the door when you arrive",
	ChooseMethod:        "Choose a payment method",
	NoMethods:           "No payment methods are available",
}

// Catalog stores translated strings keyed by field id, locale and property.
// It is safe for concurrent readers and writers.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]map[string]map[string]string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]map[string]map[string]string)}
}

// Set stores a translation. Empty text removes the entry so fallback kicks
// back in.
func (c *Catalog) Set(fieldID, locale, property, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		if locales, ok := c.entries[fieldID]; ok {
			delete(locales[locale], property)
		}
		return
	}

	locales, ok := c.entries[fieldID]
	if !ok {
		locales = make(map[string]map[string]string)
		c.entries[fieldID] = locales
	}
	props, ok := locales[locale]
	if !ok {
		props = make(map[string]string)
		locales[locale] = props
	}
	props[property] = text
}

// Get returns the stored translation, if any.
func (c *Catalog) Get(fieldID, locale, property string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	text, ok := c.entries[fieldID][locale][property]
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// Locales returns every locale that has at least one entry in the catalog.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, locales := range c.entries {
		for locale := range locales {
			seen[locale] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for locale := range seen {
		out = append(out, locale)
	}
	return out
}

// RemoveField drops every translation for a field, typically after the
// field is deleted in the builder.
func (c *Catalog) RemoveField(fieldID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fieldID)
}

// Resolver resolves display strings for one form against a catalog.
type Resolver struct {
	defaultLocale string
	catalog       *Catalog
}

// NewResolver builds a resolver. A nil catalog resolves everything to the
// authoring values.
func NewResolver(defaultLocale string, catalog *Catalog) *Resolver {
	locale := strings.TrimSpace(defaultLocale)
	if locale == "" {
		locale = schema.DefaultAuthoringLocale
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Resolver{defaultLocale: locale, catalog: catalog}
}

// Resolve returns the localized string for a field display property,
// falling back to the authoring value when no translation exists.
func (r *Resolver) Resolve(field *schema.Field, property, locale string) string {
	if field == nil {
		return ""
	}
	authored := authoringValue(field, property)
	if locale == "" || locale == r.defaultLocale {
		return authored
	}
	if text, ok := r.catalog.Get(field.ID, locale, property); ok {
		return text
	}
	return authored
}

// OptionLabel localizes the label of the option at the given index. The
// catalog wins, then the option's own per-locale overrides, then the
// authoring label.
func (r *Resolver) OptionLabel(field *schema.Field, index int, locale string) string {
	if field == nil || index < 0 || index >= len(field.Options) {
		return ""
	}
	option := field.Options[index]
	if locale == "" || locale == r.defaultLocale {
		return option.Label
	}
	if text, ok := r.catalog.Get(field.ID, locale, OptionProperty(index)); ok {
		return text
	}
	if text := strings.TrimSpace(option.Labels[locale]); text != "" {
		return text
	}
	return option.Label
}

// PaymentText localizes one of the built-in payment-method strings of a
// price field against the fixed vocabulary.
func (r *Resolver) PaymentText(field *schema.Field, key, locale string) string {
	fallback, known := paymentVocabulary[key]
	if !known {
		return ""
	}
	if field != nil && locale != "" && locale != r.defaultLocale {
		if text, ok := r.catalog.Get(field.ID, locale, key); ok {
			return text
		}
	}
	return fallback
}

func authoringValue(field *schema.Field, property string) string {
	switch property {
	case PropLabel:
		return field.Label
	case PropPlaceholder:
		return field.Placeholder
	case PropHelpText:
		return field.HelpText
	case PropContent:
		return field.Content
	}
	if index, ok := optionIndex(property); ok && index < len(field.Options) {
		return field.Options[index].Label
	}
	return ""
}

func optionIndex(property string) (int, bool) {
	const prefix = "option_"
	if !strings.HasPrefix(property, prefix) {
		return 0, false
	}
	var index int
	if _, err := fmt.Sscanf(property[len(prefix):], "%d", &index); err != nil || index < 0 {
		return 0, false
	}
	return index, true
}
