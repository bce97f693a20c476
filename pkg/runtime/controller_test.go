package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/parishkit/formengine/pkg/schema"
)

func floatPtr(v float64) *float64 { return &v }

type fakeResponses struct {
	mu        sync.Mutex
	submitted []SubmissionPayload
	finalized [][2]string
	err       error
	block     chan struct{} // when set, SubmitResponse waits for it
	entered   chan struct{}
}

func (f *fakeResponses) SubmitResponse(ctx context.Context, slug string, payload SubmissionPayload) error {
	if f.entered != nil {
		close(f.entered)
		f.entered = nil
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, payload)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return ctx.Err()
}

func (f *fakeResponses) FinalizeOrder(ctx context.Context, slug, token, payerID string) error {
	f.mu.Lock()
	f.finalized = append(f.finalized, [2]string{token, payerID})
	f.mu.Unlock()
	return f.err
}

func (f *fakeResponses) PaymentConfig(ctx context.Context, slug string) (PaymentConfig, error) {
	return PaymentConfig{}, nil
}

func (f *fakeResponses) lastPayload(t *testing.T) SubmissionPayload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitted) == 0 {
		t.Fatal("nothing submitted")
	}
	return f.submitted[len(f.submitted)-1]
}

type fakePayments struct {
	approvalURL string
	err         error
	requests    []OrderRequest
}

func (f *fakePayments) CreateOrder(ctx context.Context, slug string, req OrderRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.approvalURL, nil
}

type fakeAuth struct {
	state  SessionState
	authed bool
}

func (f fakeAuth) Session() (SessionState, bool) { return f.state, f.authed }

func consentForm() *schema.Form {
	return &schema.Form{Fields: []schema.Field{
		{ID: "a", Name: "age", Kind: schema.KindNumber, Label: "Age", Required: true},
		{ID: "c", Name: "consent", Kind: schema.KindCheckbox, Label: "Consent", Required: true, VisibleIf: "age >= 18"},
	}}
}

func paidForm(allowPayPal, allowInPerson bool) *schema.Form {
	return &schema.Form{Fields: []schema.Field{
		{ID: "l1", Kind: schema.KindPriceLabel, Label: "Lodging", Amount: 10},
		{ID: "l2", Kind: schema.KindPriceLabel, Label: "Meals", Amount: 5},
		{ID: "p", Name: "total", Kind: schema.KindPrice, Label: "Payment Method",
			AllowPayPal: allowPayPal, AllowInPerson: allowInPerson},
	}}
}

func TestSubmitRespectsVisibility(t *testing.T) {
	t.Parallel()

	responses := &fakeResponses{}
	c := New(consentForm(), "camp", WithResponseService(responses))

	c.SetField("age", 17)
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("minor submission failed: %v", err)
	}
	if c.State() != StateSuccess {
		t.Fatalf("state = %v, want success", c.State())
	}
	if _, ok := responses.lastPayload(t).Response["consent"]; ok {
		t.Fatal("hidden consent leaked into the payload")
	}

	c.Acknowledge()
	c.SetField("age", 18)
	_, err := c.Submit(context.Background())
	se, ok := AsSubmitError(err)
	if !ok || se.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if se.Message != "Consent must be checked" {
		t.Fatalf("message = %q", se.Message)
	}
	if c.State() != StateIdle {
		t.Fatalf("validation failure must return to idle, got %v", c.State())
	}
}

func TestSubmitInPerson(t *testing.T) {
	t.Parallel()

	responses := &fakeResponses{}
	c := New(paidForm(true, true), "camp", WithResponseService(responses))
	c.SetField(schema.PaymentMethodKey("total"), schema.MethodInPerson)

	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	payload := responses.lastPayload(t)
	info := payload.PaymentInfo
	if info == nil {
		t.Fatal("payment_info missing")
	}
	if info.Amount != 15 || info.Status != StatusPendingDoorPayment || info.PaymentMethod != schema.MethodInPerson {
		t.Fatalf("payment_info = %+v", info)
	}
	if info.PriceFieldID != "p" || info.PriceFieldValue != 15 {
		t.Fatalf("price field info = %+v", info)
	}
	if got := payload.Response[schema.PaymentMethodKey("total")]; got != schema.MethodInPerson {
		t.Fatalf("companion method = %v", got)
	}
	if c.State() != StateSuccess {
		t.Fatalf("state = %v, want success", c.State())
	}
}

func TestSubmitPayPalRedirect(t *testing.T) {
	t.Parallel()

	responses := &fakeResponses{}
	payments := &fakePayments{approvalURL: "https://paypal.example/approve/123"}
	drafts := NewMemoryDraftStore()
	c := New(paidForm(true, true), "camp",
		WithResponseService(responses),
		WithPaymentService(payments),
		WithDraftStore(drafts),
	)

	approvalURL, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if approvalURL != payments.approvalURL {
		t.Fatalf("approval url = %q", approvalURL)
	}

	// redirect is the last observable action: no POST, state untouched
	if len(responses.submitted) != 0 {
		t.Fatal("paypal branch must not POST the response")
	}
	if c.State() != StateSubmitting {
		t.Fatalf("state = %v, want submitting", c.State())
	}

	if _, ok := drafts.Get(draftKey("camp")); !ok {
		t.Fatal("draft not persisted before order creation")
	}

	req := payments.requests[0]
	if req.Amount != 15 || req.PaymentMethod != schema.MethodPayPal {
		t.Fatalf("order request = %+v", req)
	}
	if req.PriceFieldInfo.ID != "p" || req.PriceFieldInfo.Amount != 15 {
		t.Fatalf("price field info = %+v", req.PriceFieldInfo)
	}
	if len(req.FormSchema) != 3 {
		t.Fatalf("form schema projection = %d fields, want 3", len(req.FormSchema))
	}
}

func TestSubmitPaymentInitFailure(t *testing.T) {
	t.Parallel()

	payments := &fakePayments{err: errors.New("provider down")}
	c := New(paidForm(true, false), "camp",
		WithResponseService(&fakeResponses{}),
		WithPaymentService(payments),
	)

	_, err := c.Submit(context.Background())
	se, ok := AsSubmitError(err)
	if !ok || se.Kind != KindPaymentInit {
		t.Fatalf("expected payment init failure, got %v", err)
	}
	if !se.Retryable() {
		t.Fatal("payment init failures are retryable")
	}
	if c.State() != StateError {
		t.Fatalf("state = %v, want error", c.State())
	}
}

func TestSubmitDropsOverlap(t *testing.T) {
	t.Parallel()

	responses := &fakeResponses{
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	entered := responses.entered
	c := New(&schema.Form{Fields: []schema.Field{
		{ID: "n", Name: "nick", Kind: schema.KindText, Label: "Nickname"},
	}}, "camp", WithResponseService(responses))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-entered

	if !c.Submitting() {
		t.Fatal("Submitting() must report the in-flight attempt")
	}
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("overlapping submit must be dropped silently, got %v", err)
	}

	close(responses.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if len(responses.submitted) != 1 {
		t.Fatalf("service called %d times, want 1", len(responses.submitted))
	}
}

func TestSubmitCancellation(t *testing.T) {
	t.Parallel()

	responses := &fakeResponses{}
	c := New(&schema.Form{Fields: []schema.Field{
		{ID: "n", Name: "nick", Kind: schema.KindText, Label: "Nickname"},
	}}, "camp", WithResponseService(responses))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Submit(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := AsSubmitError(err); ok {
		t.Fatal("cancellation must not be classified as a submission failure")
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle after cancellation", c.State())
	}
}

func TestAuthGate(t *testing.T) {
	t.Parallel()

	c := New(consentForm(), "camp",
		WithResponseService(&fakeResponses{}),
		WithAuthProvider(fakeAuth{state: SessionLoading}),
	)
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrSessionLoading) {
		t.Fatalf("expected session loading, got %v", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("loading gate must not move the state machine, got %v", c.State())
	}

	c = New(consentForm(), "camp",
		WithResponseService(&fakeResponses{}),
		WithAuthProvider(fakeAuth{state: SessionReady, authed: false}),
	)
	_, err := c.Submit(context.Background())
	se, ok := AsSubmitError(err)
	if !ok || se.Kind != KindAuthRequired {
		t.Fatalf("expected auth required, got %v", err)
	}
}

func putDraft(t *testing.T, store DraftStore, slug string, values map[string]any, stampedAt time.Time) {
	t.Helper()
	draft := make(map[string]any, len(values)+1)
	for name, value := range values {
		draft[name] = value
	}
	draft[draftTimestampKey] = stampedAt.UnixMilli()
	encoded, err := json.Marshal(draft)
	if err != nil {
		t.Fatal(err)
	}
	store.Put(draftKey(slug), string(encoded))
}

func TestHandleReturnRestoresFreshDraft(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	responses := &fakeResponses{}
	drafts := NewMemoryDraftStore()
	putDraft(t, drafts, "camp", map[string]any{"nick": "sam"}, now.Add(-30*time.Minute))

	c := New(paidForm(true, true), "camp",
		WithResponseService(responses),
		WithDraftStore(drafts),
		WithClock(ClockFunc(func() time.Time { return now })),
	)

	ret, ok := ReturnFromQuery(url.Values{"token": {"X"}, "PayerID": {"Y"}})
	if !ok {
		t.Fatal("return query not recognized")
	}
	if err := c.HandleReturn(context.Background(), ret); err != nil {
		t.Fatalf("handle return failed: %v", err)
	}

	if got, _ := c.Value("nick"); got != "sam" {
		t.Fatalf("draft value not restored, got %v", got)
	}
	if len(responses.finalized) != 1 || responses.finalized[0] != [2]string{"X", "Y"} {
		t.Fatalf("finalize calls = %+v", responses.finalized)
	}
	if keys := drafts.Keys(); len(keys) != 0 {
		t.Fatalf("draft namespace not cleared: %v", keys)
	}
	if c.State() != StateSuccess {
		t.Fatalf("state = %v, want success", c.State())
	}
}

func TestHandleReturnPurgesStaleDraft(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	drafts := NewMemoryDraftStore()
	putDraft(t, drafts, "camp", map[string]any{"nick": "sam"}, now.Add(-90*time.Minute))

	c := New(paidForm(true, true), "camp",
		WithResponseService(&fakeResponses{}),
		WithDraftStore(drafts),
		WithClock(ClockFunc(func() time.Time { return now })),
	)

	ret, _ := ReturnFromQuery(url.Values{"token": {"X"}, "PayerID": {"Y"}})
	if err := c.HandleReturn(context.Background(), ret); err != nil {
		t.Fatalf("handle return failed: %v", err)
	}

	if len(c.Values()) != 0 {
		t.Fatalf("stale draft must be discarded, got %v", c.Values())
	}
	if keys := drafts.Keys(); len(keys) != 0 {
		t.Fatalf("stale draft not purged: %v", keys)
	}
}

func TestDraftWindowBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"just inside", time.Hour - time.Millisecond, true},
		{"exactly one hour", time.Hour, false},
		{"well past", 26 * time.Hour, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			drafts := NewMemoryDraftStore()
			putDraft(t, drafts, "camp", map[string]any{"nick": "sam"}, now.Add(-tc.age))

			c := New(&schema.Form{}, "camp",
				WithDraftStore(drafts),
				WithClock(ClockFunc(func() time.Time { return now })),
			)
			if got := c.RestoreDraft(); got != tc.want {
				t.Fatalf("RestoreDraft() = %v, want %v", got, tc.want)
			}
			if !tc.want {
				if keys := drafts.Keys(); len(keys) != 0 {
					t.Fatalf("stale draft not purged: %v", keys)
				}
			}
		})
	}
}

func TestDraftTimestampStoredInline(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	drafts := NewMemoryDraftStore()
	clock := ClockFunc(func() time.Time { return now })

	if err := saveDraft(drafts, clock, "camp", map[string]any{"nick": "sam"}); err != nil {
		t.Fatal(err)
	}

	if keys := drafts.Keys(); len(keys) != 1 || keys[0] != draftKey("camp") {
		t.Fatalf("draft keys = %v, want just %q", keys, draftKey("camp"))
	}
	raw, _ := drafts.Get(draftKey("camp"))
	var stored map[string]any
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatal(err)
	}
	if stamp, ok := stored[draftTimestampKey].(float64); !ok || int64(stamp) != now.UnixMilli() {
		t.Fatalf("stored timestamp = %v, want %d", stored[draftTimestampKey], now.UnixMilli())
	}

	values, ok := restoreDraft(drafts, clock, "camp")
	if !ok {
		t.Fatal("fresh draft not restored")
	}
	if _, leaked := values[draftTimestampKey]; leaked {
		t.Fatalf("timestamp leaked into restored values: %v", values)
	}
	if values["nick"] != "sam" {
		t.Fatalf("restored values = %v", values)
	}
}

func TestWatchDeliversSnapshots(t *testing.T) {
	t.Parallel()

	c := New(&schema.Form{}, "camp")
	ch, stop := c.Watch()
	defer stop()

	if snap := <-ch; len(snap) != 0 {
		t.Fatalf("initial snapshot = %v, want empty", snap)
	}

	c.SetField("nick", "sam")
	c.SetField("age", 30)

	snap := <-ch
	if snap["age"] != 30 {
		t.Fatalf("snapshot missed the last write: %v", snap)
	}
	// each snapshot reflects completed writes: "nick" was written first
	if snap["nick"] != "sam" {
		t.Fatalf("snapshot missed an earlier write: %v", snap)
	}
}

type fakeTranslator struct {
	translations map[string]map[string]string
	err          error
}

func (f fakeTranslator) TranslateMulti(ctx context.Context, texts, locales []string) (map[string]map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.translations, nil
}

func (f fakeTranslator) Languages(ctx context.Context) ([]Language, error) {
	return []Language{{Code: "es", Name: "Spanish"}}, nil
}

func TestTranslateField(t *testing.T) {
	t.Parallel()

	form := &schema.Form{Fields: []schema.Field{
		{ID: "f1", Name: "meal", Kind: schema.KindText, Label: "Meal preference"},
	}}
	translator := fakeTranslator{translations: map[string]map[string]string{
		"Meal preference": {"es": "Preferencia de comida"},
	}}

	c := New(form, "camp", WithTranslationService(translator))
	c.MarkDirty("f1")

	err := c.TranslateField(context.Background(), "f1",
		map[string]string{"label": "Meal preference"}, []string{"es"})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}

	if got := c.Resolver().Resolve(&form.Fields[0], "label", "es"); got != "Preferencia de comida" {
		t.Fatalf("translated label = %q", got)
	}
	if dirty := c.DirtyFields(); len(dirty) != 0 {
		t.Fatalf("dirty flag not cleared: %v", dirty)
	}

	failing := New(form, "camp", WithTranslationService(fakeTranslator{err: errors.New("boom")}))
	err = failing.TranslateField(context.Background(), "f1",
		map[string]string{"label": "Meal preference"}, []string{"es"})
	se, ok := AsSubmitError(err)
	if !ok || se.Kind != KindTranslation {
		t.Fatalf("expected translation failure, got %v", err)
	}
}
