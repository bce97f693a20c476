// Package tui fills a form interactively in the terminal, driving the
// runtime controller with the collected values.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/parishkit/formengine/pkg/i18n"
	"github.com/parishkit/formengine/pkg/runtime"
	"github.com/parishkit/formengine/pkg/schema"
	"github.com/parishkit/formengine/pkg/visibility/expr"
)

// invalid answers per field before moving on and letting the final
// submission surface the issue
const maxAttempts = 3

// Option configures a Filler.
type Option func(*Filler)

// WithPromptDriver overrides the prompt driver, typically with a fake in
// tests.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithLocale selects the display locale for labels and options.
func WithLocale(locale string) Option {
	return func(f *Filler) { f.locale = locale }
}

// Filler walks a form field by field, prompting for each currently visible
// one in declaration order.
type Filler struct {
	driver PromptDriver
	locale string
}

// NewFiller builds a filler using the terminal driver by default.
func NewFiller(opts ...Option) *Filler {
	f := &Filler{driver: NewSurveyDriver()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run prompts for every visible field, resolves the payment method when one
// applies, and submits through the controller. A returned approval URL is
// printed for the user to follow.
func (f *Filler) Run(ctx context.Context, c *runtime.Controller) error {
	form := c.Form()
	resolver := c.Resolver()

	if form.Title != "" {
		if err := f.driver.Info(ctx, form.Title); err != nil {
			return err
		}
	}

	for i := range form.Fields {
		field := &form.Fields[i]
		if !expr.Evaluate(field.VisibleIf, c.Values()) {
			continue
		}
		if err := f.fillField(ctx, c, field, resolver); err != nil {
			return err
		}
	}

	if err := f.resolvePayment(ctx, c, resolver); err != nil {
		return err
	}

	ok, err := f.driver.Confirm(ctx, ConfirmConfig{Message: "Submit your response?", Default: true})
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}

	approvalURL, err := c.Submit(ctx)
	if err != nil {
		return err
	}
	if approvalURL != "" {
		return f.driver.Info(ctx, "Approve your payment at: "+approvalURL)
	}
	return f.driver.Info(ctx, "Response submitted.")
}

func (f *Filler) fillField(ctx context.Context, c *runtime.Controller, field *schema.Field, resolver *i18n.Resolver) error {
	label := resolver.Resolve(field, i18n.PropLabel, f.locale)
	help := resolver.Resolve(field, i18n.PropHelpText, f.locale)

	switch field.Kind {
	case schema.KindStatic:
		content := resolver.Resolve(field, i18n.PropContent, f.locale)
		if content == "" {
			return nil
		}
		return f.driver.Info(ctx, content)
	case schema.KindPriceLabel:
		return f.driver.Info(ctx, fmt.Sprintf("%s: %.2f", field.Label, field.Amount))
	case schema.KindPrice:
		// handled after the walk, once the total is known
		return nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		value, err := f.prompt(ctx, field, label, help, resolver)
		if err != nil {
			return err
		}
		c.SetField(field.Name, value)

		result := c.TriggerValidation(field.Name)
		if result.OK() {
			return nil
		}
		if err := f.driver.Info(ctx, result.Issues[0].Message); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) prompt(ctx context.Context, field *schema.Field, label, help string, resolver *i18n.Resolver) (any, error) {
	switch field.Kind {
	case schema.KindTextarea:
		return f.driver.TextArea(ctx, TextAreaConfig{Message: label, Help: help})
	case schema.KindPassword:
		return f.driver.Password(ctx, InputConfig{Message: label, Help: help})
	case schema.KindCheckbox, schema.KindSwitch:
		return f.driver.Confirm(ctx, ConfirmConfig{Message: label, Help: help})
	case schema.KindNumber:
		raw, err := f.driver.Input(ctx, InputConfig{Message: label, Help: help})
		if err != nil {
			return nil, err
		}
		if number, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return number, nil
		}
		return raw, nil
	case schema.KindSelect, schema.KindRadio:
		return f.promptOptions(ctx, field, label, help, resolver)
	case schema.KindDate:
		if field.DateMode == schema.DateRange {
			from, err := f.driver.Input(ctx, InputConfig{Message: label + " (from)", Help: "YYYY-MM-DD"})
			if err != nil {
				return nil, err
			}
			to, err := f.driver.Input(ctx, InputConfig{Message: label + " (to)", Help: "YYYY-MM-DD"})
			if err != nil {
				return nil, err
			}
			return schema.DateSpan{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}, nil
		}
		return f.driver.Input(ctx, InputConfig{Message: label, Help: "YYYY-MM-DD"})
	case schema.KindTime:
		return f.driver.Input(ctx, InputConfig{Message: label, Help: "HH:MM"})
	case schema.KindColor:
		return f.driver.Input(ctx, InputConfig{Message: label, Help: "#RRGGBB"})
	default:
		return f.driver.Input(ctx, InputConfig{Message: label, Help: help})
	}
}

func (f *Filler) promptOptions(ctx context.Context, field *schema.Field, label, help string, resolver *i18n.Resolver) (any, error) {
	labels := make([]string, len(field.Options))
	for i := range field.Options {
		labels[i] = resolver.OptionLabel(field, i, f.locale)
	}

	if field.Kind == schema.KindSelect && field.Multiple {
		picked, err := f.driver.MultiSelect(ctx, SelectConfig{Message: label, Options: labels, Help: help})
		if err != nil {
			return nil, err
		}
		values := make([]string, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(field.Options) {
				values = append(values, field.Options[idx].Value)
			}
		}
		return values, nil
	}

	idx, err := f.driver.Select(ctx, SelectConfig{Message: label, Options: labels, Help: help})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(field.Options) {
		return "", nil
	}
	return field.Options[idx].Value, nil
}

// resolvePayment shows the running total and asks for a payment method when
// the form carries a visible price field offering a choice.
func (f *Filler) resolvePayment(ctx context.Context, c *runtime.Controller, resolver *i18n.Resolver) error {
	form := c.Form()
	price := form.PriceField()
	if price == nil || !expr.Evaluate(price.VisibleIf, c.Values()) {
		return nil
	}

	total := c.ComputeTotal()
	if total <= 0 {
		return nil
	}
	if err := f.driver.Info(ctx, fmt.Sprintf("Total due: %.2f", total)); err != nil {
		return err
	}

	payPal, inPerson := price.AllowPayPal, price.AllowInPerson
	if !payPal && !inPerson {
		payPal, inPerson = true, true
	}

	switch {
	case payPal && inPerson:
		options := []string{
			resolver.PaymentText(price, i18n.PayPalOption, f.locale),
			resolver.PaymentText(price, i18n.InPersonOption, f.locale),
		}
		idx, err := f.driver.Select(ctx, SelectConfig{
			Message: resolver.PaymentText(price, i18n.ChooseMethod, f.locale),
			Options: options,
		})
		if err != nil {
			return err
		}
		method := schema.MethodPayPal
		if idx == 1 {
			method = schema.MethodInPerson
		}
		c.SetField(schema.PaymentMethodKey(price.Name), method)
	case inPerson:
		return f.driver.Info(ctx, resolver.PaymentText(price, i18n.InPersonRequired, f.locale))
	default:
		return f.driver.Info(ctx, resolver.PaymentText(price, i18n.PayPalRequired, f.locale))
	}
	return nil
}
