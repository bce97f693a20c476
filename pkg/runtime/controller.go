// Package runtime owns the mutable response state of a rendered form and
// orchestrates validation, pricing, localization and submission against the
// external collaborators.
package runtime

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/parishkit/formengine/pkg/i18n"
	"github.com/parishkit/formengine/pkg/pricing"
	"github.com/parishkit/formengine/pkg/schema"
	"github.com/parishkit/formengine/pkg/validate"
	"github.com/parishkit/formengine/pkg/visibility"
)

// State is the submission state machine position.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Option configures a controller.
type Option func(*Controller)

// WithResponseService sets the submission collaborator.
func WithResponseService(svc ResponseService) Option {
	return func(c *Controller) { c.responses = svc }
}

// WithPaymentService sets the payment-order collaborator.
func WithPaymentService(svc PaymentService) Option {
	return func(c *Controller) { c.payments = svc }
}

// WithTranslationService sets the translation collaborator.
func WithTranslationService(svc TranslationService) Option {
	return func(c *Controller) { c.translator = svc }
}

// WithAuthProvider sets the session collaborator. Without one, submission
// is not auth-gated.
func WithAuthProvider(auth AuthProvider) Option {
	return func(c *Controller) { c.auth = auth }
}

// WithDraftStore sets the client-local draft persistence.
func WithDraftStore(store DraftStore) Option {
	return func(c *Controller) {
		if store != nil {
			c.drafts = store
		}
	}
}

// WithClock overrides the time source used for draft stamps.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the structured logger. The default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithEvaluator overrides the visibility evaluator shared by the compiled
// validator and the price calculator.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(c *Controller) {
		if eval != nil {
			c.validator = validate.Compile(c.form, validate.WithEvaluator(eval))
			c.calc = pricing.NewWithEvaluator(eval)
		}
	}
}

// WithCatalog sets the translation catalog used for localized display and
// field translation bookkeeping.
func WithCatalog(catalog *i18n.Catalog) Option {
	return func(c *Controller) {
		if catalog != nil {
			c.catalog = catalog
			c.resolver = i18n.NewResolver(c.form.AuthoringLocale(), catalog)
		}
	}
}

// Controller binds one form schema to one response-in-progress. All methods
// are safe for concurrent use; collaborator calls happen outside the lock.
type Controller struct {
	form      *schema.Form
	slug      string
	validator *validate.Validator
	calc      *pricing.Calculator
	resolver  *i18n.Resolver
	catalog   *i18n.Catalog
	dirty     *i18n.DirtySet

	responses  ResponseService
	payments   PaymentService
	translator TranslationService
	auth       AuthProvider
	drafts     DraftStore
	clock      Clock
	log        *zap.Logger

	mu       sync.Mutex
	values   map[string]any
	state    State
	lastErr  *SubmitError
	watchers map[chan map[string]any]struct{}
}

// New builds a controller for a form. The slug identifies the form on the
// public endpoints and in the draft namespace.
func New(form *schema.Form, slug string, opts ...Option) *Controller {
	c := &Controller{
		form:      form,
		slug:      slug,
		validator: validate.Compile(form),
		calc:      pricing.New(),
		catalog:   i18n.NewCatalog(),
		dirty:     i18n.NewDirtySet(),
		drafts:    NewMemoryDraftStore(),
		clock:     systemClock{},
		log:       zap.NewNop(),
		values:    make(map[string]any),
		watchers:  make(map[chan map[string]any]struct{}),
	}
	c.resolver = i18n.NewResolver(form.AuthoringLocale(), c.catalog)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Form returns the schema this controller renders.
func (c *Controller) Form() *schema.Form { return c.form }

// Slug returns the form slug.
func (c *Controller) Slug() string { return c.slug }

// Resolver returns the localization resolver bound to this controller.
func (c *Controller) Resolver() *i18n.Resolver { return c.resolver }

// SetField writes one response value and notifies watchers. A nil value
// removes the key.
func (c *Controller) SetField(name string, value any) {
	if name == "" {
		return
	}
	c.mu.Lock()
	if value == nil {
		delete(c.values, name)
	} else {
		c.values[name] = value
	}
	c.publishLocked()
	c.mu.Unlock()
}

// Values returns a snapshot of the current response map.
func (c *Controller) Values() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Value returns one response value.
func (c *Controller) Value(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[name]
	return v, ok
}

// Watch returns a channel of value-map snapshots and a stop function. Each
// snapshot reflects all writes completed before it was produced; slow
// consumers observe the latest snapshot, not every intermediate one.
func (c *Controller) Watch() (<-chan map[string]any, func()) {
	ch := make(chan map[string]any, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	stop := func() {
		c.mu.Lock()
		delete(c.watchers, ch)
		c.mu.Unlock()
	}
	return ch, stop
}

func (c *Controller) publishLocked() {
	if len(c.watchers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Controller) snapshotLocked() map[string]any {
	snap := make(map[string]any, len(c.values))
	for k, v := range c.values {
		snap[k] = v
	}
	return snap
}

// TriggerValidation validates the current map, or only the named fields.
func (c *Controller) TriggerValidation(names ...string) validate.Result {
	return c.validator.Trigger(c.Values(), names...)
}

// ComputeTotal returns the current payable total, rounded for display.
func (c *Controller) ComputeTotal() float64 {
	return pricing.Round(c.calc.Total(c.form, c.Values()))
}

// State returns the submission state machine position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submitting reports whether a submission is in flight. The host UI must
// consult it to disable the submit control.
func (c *Controller) Submitting() bool {
	return c.State() == StateSubmitting
}

// LastError returns the error of the most recent failed submission.
func (c *Controller) LastError() *SubmitError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Acknowledge returns the state machine to idle after the user has seen a
// success or error surface.
func (c *Controller) Acknowledge() {
	c.mu.Lock()
	if c.state == StateSuccess || c.state == StateError {
		c.state = StateIdle
		c.lastErr = nil
	}
	c.mu.Unlock()
}

// Submit runs the submission state machine. A non-empty approval URL means
// the host must redirect the user to the payment provider; the controller
// does not mutate state after returning it. A nil error with an empty URL
// means the response was accepted. Overlapping submissions are dropped.
func (c *Controller) Submit(ctx context.Context) (approvalURL string, err error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		c.log.Debug("submit dropped, already submitting", zap.String("slug", c.slug))
		return "", nil
	}

	if c.auth != nil && c.slug != "" {
		session, authenticated := c.auth.Session()
		if session == SessionLoading {
			c.mu.Unlock()
			return "", ErrSessionLoading
		}
		if !authenticated {
			c.mu.Unlock()
			return "", c.fail(&SubmitError{Kind: KindAuthRequired, Message: "sign in to submit this form"})
		}
	}

	c.state = StateSubmitting
	c.lastErr = nil
	values := c.snapshotLocked()
	c.mu.Unlock()

	result := c.validator.Validate(values)
	if !result.OK() {
		c.setState(StateIdle)
		first := result.Issues[0]
		return "", &SubmitError{Kind: KindValidation, Message: first.Message, Issues: result.Issues}
	}

	payload := c.buildResponse(values, result.Values)
	total := pricing.Round(c.calc.Total(c.form, values))
	method := c.calc.SelectedMethod(c.form, values)
	price := c.form.PriceField()

	if price == nil || total <= 0 || method == "" {
		return "", c.post(ctx, SubmissionPayload{Response: payload})
	}

	switch method {
	case schema.MethodInPerson:
		return "", c.post(ctx, SubmissionPayload{
			Response: payload,
			PaymentInfo: &PaymentInfo{
				Amount:          total,
				Status:          StatusPendingDoorPayment,
				PaymentMethod:   schema.MethodInPerson,
				PriceFieldID:    price.ID,
				PriceFieldValue: total,
			},
		})
	case schema.MethodPayPal:
		return c.createOrder(ctx, payload, total, price)
	}
	return "", c.post(ctx, SubmissionPayload{Response: payload})
}

// post submits the payload and resolves the state machine.
func (c *Controller) post(ctx context.Context, payload SubmissionPayload) error {
	err := c.responses.SubmitResponse(ctx, c.slug, payload)
	if err == nil {
		c.setState(StateSuccess)
		c.log.Info("response submitted", zap.String("slug", c.slug))
		return nil
	}
	if canceled(err) {
		c.setState(StateIdle)
		return err
	}
	return c.fail(mapSubmissionError(err))
}

// createOrder persists the draft and asks the payment collaborator for an
// approval URL. The state machine stays in submitting on success; redirect
// is the last observable action of the attempt.
func (c *Controller) createOrder(ctx context.Context, payload map[string]any, total float64, price *schema.Field) (string, error) {
	if err := saveDraft(c.drafts, c.clock, c.slug, payload); err != nil {
		c.log.Warn("draft persist failed", zap.String("slug", c.slug), zap.Error(err))
	}

	approvalURL, err := c.payments.CreateOrder(ctx, c.slug, OrderRequest{
		Amount:        total,
		Response:      payload,
		PaymentMethod: schema.MethodPayPal,
		FormSchema:    priceProjection(c.form),
		PriceFieldInfo: PriceFieldInfo{
			ID:     price.ID,
			Name:   price.Name,
			Amount: total,
		},
	})
	if err != nil {
		if canceled(err) {
			c.setState(StateIdle)
			return "", err
		}
		return "", c.fail(&SubmitError{Kind: KindPaymentInit, Message: "payment provider refused the order", Err: err})
	}

	c.log.Info("payment order created", zap.String("slug", c.slug), zap.Float64("amount", total))
	return approvalURL, nil
}

// Return is a provider approval callback parsed from the mount URL.
type Return struct {
	Token   string
	PayerID string
}

// ReturnFromQuery extracts the provider approval parameters; ok is false
// when the mount is not a payment return.
func ReturnFromQuery(query url.Values) (Return, bool) {
	ret := Return{Token: query.Get("token"), PayerID: query.Get("PayerID")}
	return ret, ret.Token != "" && ret.PayerID != ""
}

// HandleReturn consumes a provider approval on mount: the draft is restored
// into the controller when younger than one hour (purged otherwise), the
// order is finalized server-side, and the draft namespace is cleared.
func (c *Controller) HandleReturn(ctx context.Context, ret Return) error {
	if values, ok := restoreDraft(c.drafts, c.clock, c.slug); ok {
		c.mu.Lock()
		c.values = values
		c.publishLocked()
		c.mu.Unlock()
	}

	c.setState(StateSubmitting)
	err := c.responses.FinalizeOrder(ctx, c.slug, ret.Token, ret.PayerID)
	if err != nil {
		if canceled(err) {
			c.setState(StateIdle)
			return err
		}
		return c.fail(mapSubmissionError(err))
	}

	clearDraft(c.drafts, c.slug)
	c.setState(StateSuccess)
	c.log.Info("payment order finalized", zap.String("slug", c.slug))
	return nil
}

// RestoreDraft restores a fresh draft into the controller outside the
// payment-return path, reporting whether one was applied.
func (c *Controller) RestoreDraft() bool {
	values, ok := restoreDraft(c.drafts, c.clock, c.slug)
	if !ok {
		return false
	}
	c.mu.Lock()
	c.values = values
	c.publishLocked()
	c.mu.Unlock()
	return true
}

// TranslateField translates a field's authoring strings into the given
// locales, stores the results in the catalog, and clears the field's dirty
// flag. texts maps catalog property → authoring string.
func (c *Controller) TranslateField(ctx context.Context, fieldID string, texts map[string]string, locales []string) error {
	if c.translator == nil {
		return &SubmitError{Kind: KindTranslation, Message: "no translation service configured"}
	}

	sources := make([]string, 0, len(texts))
	byText := make(map[string]string, len(texts))
	for property, text := range texts {
		if text == "" {
			continue
		}
		sources = append(sources, text)
		byText[text] = property
	}
	if len(sources) == 0 {
		return nil
	}

	translations, err := c.translator.TranslateMulti(ctx, sources, locales)
	if err != nil {
		if canceled(err) {
			return err
		}
		return &SubmitError{Kind: KindTranslation, Message: "translation failed", Err: err}
	}

	for text, perLocale := range translations {
		property, ok := byText[text]
		if !ok {
			continue
		}
		for locale, translated := range perLocale {
			c.catalog.Set(fieldID, locale, property, translated)
		}
	}
	c.dirty.Clear(fieldID)
	return nil
}

// MarkDirty flags a field whose authoring text changed after translation.
func (c *Controller) MarkDirty(fieldID string) { c.dirty.Mark(fieldID) }

// DirtyFields returns the fields flagged for retranslation.
func (c *Controller) DirtyFields() []string { return c.dirty.IDs() }

// buildResponse merges the coerced validator output over the raw snapshot
// and fills in the companion payment-method key when both methods apply.
func (c *Controller) buildResponse(raw, coerced map[string]any) map[string]any {
	out := make(map[string]any, len(coerced)+1)
	for k, v := range coerced {
		out[k] = v
	}

	price := c.form.PriceField()
	if price == nil {
		return out
	}
	payPal, inPerson := c.calc.Methods(c.form, raw)
	if payPal && inPerson {
		out[schema.PaymentMethodKey(price.Name)] = c.calc.SelectedMethod(c.form, raw)
	}
	return out
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) fail(err *SubmitError) *SubmitError {
	c.mu.Lock()
	c.state = StateError
	c.lastErr = err
	c.mu.Unlock()
	c.log.Warn("submission failed", zap.String("slug", c.slug), zap.String("kind", err.Kind.String()), zap.Error(err))
	return err
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// mapSubmissionError folds collaborator failures into the taxonomy. Errors
// already carrying a kind pass through unchanged.
func mapSubmissionError(err error) *SubmitError {
	if se, ok := AsSubmitError(err); ok {
		return se
	}
	return &SubmitError{Kind: KindSubmission, Reason: ReasonGeneric, Err: err}
}

// priceProjection returns just the payment-bearing fields, the shape the
// payment collaborator expects under form_schema.
func priceProjection(form *schema.Form) []schema.Field {
	var out []schema.Field
	for _, field := range form.Fields {
		if field.Kind == schema.KindPrice || field.Kind == schema.KindPriceLabel {
			out = append(out, field)
		}
	}
	return out
}
