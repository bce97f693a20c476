package schema

import (
	"strings"
	"time"
)

// Kind discriminates the runtime shape of a field. The set is closed; every
// compiler and calculator in this module switches exhaustively over it.
type Kind string

const (
	KindText       Kind = "text"
	KindTextarea   Kind = "textarea"
	KindNumber     Kind = "number"
	KindEmail      Kind = "email"
	KindPassword   Kind = "password"
	KindURL        Kind = "url"
	KindTel        Kind = "tel"
	KindCheckbox   Kind = "checkbox"
	KindSwitch     Kind = "switch"
	KindSelect     Kind = "select"
	KindRadio      Kind = "radio"
	KindDate       Kind = "date"
	KindTime       Kind = "time"
	KindColor      Kind = "color"
	KindStatic     Kind = "static"
	KindPrice      Kind = "price"
	KindPriceLabel Kind = "pricelabel"
)

// Kinds lists every known field kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindText, KindTextarea, KindNumber, KindEmail, KindPassword,
		KindURL, KindTel, KindCheckbox, KindSwitch, KindSelect, KindRadio,
		KindDate, KindTime, KindColor, KindStatic, KindPrice, KindPriceLabel,
	}
}

// Known reports whether k is one of the closed kind set.
func (k Kind) Known() bool {
	switch k {
	case KindText, KindTextarea, KindNumber, KindEmail, KindPassword,
		KindURL, KindTel, KindCheckbox, KindSwitch, KindSelect, KindRadio,
		KindDate, KindTime, KindColor, KindStatic, KindPrice, KindPriceLabel:
		return true
	}
	return false
}

// Interactive reports whether the kind accepts user input. Static, price and
// pricelabel fields are presentational and never carry a response value
// themselves (the price field's companion method key is handled separately).
func (k Kind) Interactive() bool {
	switch k {
	case KindStatic, KindPrice, KindPriceLabel:
		return false
	}
	return true
}

// Width is the per-field fraction of the form row a field occupies.
type Width string

const (
	WidthFull    Width = "full"
	WidthHalf    Width = "half"
	WidthThird   Width = "third"
	WidthQuarter Width = "quarter"
)

// DateMode selects between a single-day picker and an inclusive range.
type DateMode string

const (
	DateSingle DateMode = "single"
	DateRange  DateMode = "range"
)

// Option is one entry of a select or radio field. Labels carries per-locale
// overrides keyed by locale code; the zero map means only the authoring
// label exists.
type Option struct {
	Label  string            `json:"label" yaml:"label"`
	Value  string            `json:"value" yaml:"value"`
	Price  float64           `json:"price,omitempty" yaml:"price,omitempty"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// DatePricing prices each selected day of a date field. Specific-date
// overrides (ISO yyyy-mm-dd keys) win over weekday overrides (0=Sunday ..
// 6=Saturday), which win over BasePerDay.
type DatePricing struct {
	Enabled    bool               `json:"enabled" yaml:"enabled"`
	BasePerDay float64            `json:"basePerDay" yaml:"basePerDay"`
	Weekdays   map[int]float64    `json:"weekdays,omitempty" yaml:"weekdays,omitempty"`
	Dates      map[string]float64 `json:"dates,omitempty" yaml:"dates,omitempty"`
}

// StaticStyle holds the presentational attributes of a static field.
type StaticStyle struct {
	Tag       string `json:"tag,omitempty" yaml:"tag,omitempty"` // h1..h4, p, small
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
	Bold      bool   `json:"bold,omitempty" yaml:"bold,omitempty"`
	Underline bool   `json:"underline,omitempty" yaml:"underline,omitempty"`
}

// Field is the tagged record at the heart of the engine. Kind decides which
// of the optional attribute groups are meaningful; the codec keeps unused
// groups empty rather than modelling a union per kind.
type Field struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Kind        Kind   `json:"kind" yaml:"kind"`
	Label       string `json:"label" yaml:"label"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText    string `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Width       Width  `json:"width,omitempty" yaml:"width,omitempty"`
	VisibleIf   string `json:"visibleIf,omitempty" yaml:"visibleIf,omitempty"`

	// text, textarea, password
	MinLength *int   `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// password complexity
	RequireUpper   bool `json:"requireUpper,omitempty" yaml:"requireUpper,omitempty"`
	RequireLower   bool `json:"requireLower,omitempty" yaml:"requireLower,omitempty"`
	RequireDigit   bool `json:"requireDigit,omitempty" yaml:"requireDigit,omitempty"`
	RequireSpecial bool `json:"requireSpecial,omitempty" yaml:"requireSpecial,omitempty"`

	// number
	Min           *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step          *float64 `json:"step,omitempty" yaml:"step,omitempty"`
	AllowedValues string   `json:"allowedValues,omitempty" yaml:"allowedValues,omitempty"` // comma-separated

	// select, radio
	Options  []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Multiple bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`

	// date
	DateMode DateMode     `json:"dateMode,omitempty" yaml:"dateMode,omitempty"`
	MinDate  string       `json:"minDate,omitempty" yaml:"minDate,omitempty"` // yyyy-mm-dd
	MaxDate  string       `json:"maxDate,omitempty" yaml:"maxDate,omitempty"`
	Pricing  *DatePricing `json:"pricing,omitempty" yaml:"pricing,omitempty"`

	// time
	MinTime string `json:"minTime,omitempty" yaml:"minTime,omitempty"` // HH:MM
	MaxTime string `json:"maxTime,omitempty" yaml:"maxTime,omitempty"`

	// static
	Content string       `json:"content,omitempty" yaml:"content,omitempty"`
	Style   *StaticStyle `json:"style,omitempty" yaml:"style,omitempty"`

	// checkbox / switch add-on price
	Price *float64 `json:"price,omitempty" yaml:"price,omitempty"`

	// price / pricelabel
	Amount        float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	AllowPayPal   bool    `json:"allowPayPal,omitempty" yaml:"allowPayPal,omitempty"`
	AllowInPerson bool    `json:"allowInPerson,omitempty" yaml:"allowInPerson,omitempty"`
}

// Form is an ordered sequence of fields plus authoring metadata. Fields keep
// declaration order; it is significant for rendering and pricing alike.
type Form struct {
	ID            string     `json:"id,omitempty" yaml:"id,omitempty"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Ministries    []string   `json:"ministries" yaml:"ministries"`
	DefaultLocale string     `json:"defaultLocale" yaml:"defaultLocale"`
	Locales       []string   `json:"locales" yaml:"locales"`
	FormWidth     FormWidth  `json:"formWidth" yaml:"formWidth"`
	ExpiresAt     *time.Time `json:"expires_at" yaml:"expires_at"`
	Fields        []Field    `json:"data" yaml:"data"`
}

// DefaultAuthoringLocale is assumed when a form does not name one.
const DefaultAuthoringLocale = "en"

// AuthoringLocale returns the form's default locale, falling back to "en".
func (f *Form) AuthoringLocale() string {
	if f == nil {
		return DefaultAuthoringLocale
	}
	if locale := strings.TrimSpace(f.DefaultLocale); locale != "" {
		return locale
	}
	return DefaultAuthoringLocale
}

// PriceField returns the form's single price field, or nil.
func (f *Form) PriceField() *Field {
	if f == nil {
		return nil
	}
	for i := range f.Fields {
		if f.Fields[i].Kind == KindPrice {
			return &f.Fields[i]
		}
	}
	return nil
}

// HasPriceLabels reports whether any pricelabel line items exist.
func (f *Form) HasPriceLabels() bool {
	if f == nil {
		return false
	}
	for i := range f.Fields {
		if f.Fields[i].Kind == KindPriceLabel {
			return true
		}
	}
	return false
}

// FieldByName returns the field with the given response-map key, or nil.
func (f *Form) FieldByName(name string) *Field {
	if f == nil {
		return nil
	}
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i]
		}
	}
	return nil
}

// FieldByID returns the field with the given authoring id, or nil.
func (f *Form) FieldByID(id string) *Field {
	if f == nil {
		return nil
	}
	for i := range f.Fields {
		if f.Fields[i].ID == id {
			return &f.Fields[i]
		}
	}
	return nil
}

// Expired reports whether the form's expiration timestamp has passed.
func (f *Form) Expired(now time.Time) bool {
	if f == nil || f.ExpiresAt == nil {
		return false
	}
	return now.After(*f.ExpiresAt)
}

// PaymentMethodKey is the response-map key holding the companion payment
// method selection for a price field.
func PaymentMethodKey(priceFieldName string) string {
	return priceFieldName + "_payment_method"
}

// Payment method values stored under PaymentMethodKey.
const (
	MethodPayPal   = "paypal"
	MethodInPerson = "in-person"
)

// DateSpan is the coerced value of a date field in range mode. From and To
// are ISO days (yyyy-mm-dd), inclusive of both endpoints.
type DateSpan struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}
