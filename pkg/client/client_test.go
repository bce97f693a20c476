package client

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/parishkit/formengine/internal/httpapi"
	"github.com/parishkit/formengine/pkg/runtime"
	"github.com/parishkit/formengine/pkg/schema"
)

func newServer(t *testing.T, store *httpapi.Store) *Client {
	t.Helper()
	handler := httpapi.NewHandler(httpapi.Config{Store: store})
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return New(server.URL, WithHTTPClient(server.Client()))
}

func campForm(title string) schema.Form {
	return schema.Form{
		Title:         title,
		DefaultLocale: "en",
		Fields: []schema.Field{
			{ID: "l1", Kind: schema.KindPriceLabel, Label: "Lodging", Amount: 10},
			{ID: "l2", Kind: schema.KindPriceLabel, Label: "Meals", Amount: 5},
			{ID: "p", Name: "total", Kind: schema.KindPrice, Label: "Payment Method", Amount: 15},
		},
	}
}

func TestFormLifecycle(t *testing.T) {
	t.Parallel()

	store := httpapi.NewStore()
	c := newServer(t, store)
	ctx := context.Background()

	form := campForm("Summer Camp")
	id, err := c.CreateForm(ctx, &form)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// duplicate title surfaces the existing id for the override prompt
	_, err = c.CreateForm(ctx, &form)
	se, ok := runtime.AsSubmitError(err)
	if !ok || se.Kind != runtime.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if se.ExistingID != id {
		t.Fatalf("existing id = %q, want %q", se.ExistingID, id)
	}

	fetched, err := c.Form(ctx, id)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if fetched.Title != "Summer Camp" || len(fetched.Fields) != 3 {
		t.Fatalf("fetched form = %+v", fetched)
	}

	fetched.Title = "Winter Camp"
	if err := c.UpdateForm(ctx, id, fetched); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	updated, err := c.Form(ctx, id)
	if err != nil || updated.Title != "Winter Camp" {
		t.Fatalf("update not visible: %+v, %v", updated, err)
	}
}

func TestSubmissionErrorMapping(t *testing.T) {
	t.Parallel()

	store := httpapi.NewStore()
	c := newServer(t, store)
	ctx := context.Background()
	payload := runtime.SubmissionPayload{Response: map[string]any{"nick": "sam"}}

	err := c.SubmitResponse(ctx, "no-such-form", payload)
	se, ok := runtime.AsSubmitError(err)
	if !ok || se.Reason != runtime.ReasonNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	if se.Retryable() {
		t.Fatal("not_found must not be retryable")
	}

	past := time.Now().Add(-time.Hour)
	expired := campForm("Expired Camp")
	expired.ExpiresAt = &past
	if _, err := c.CreateForm(ctx, &expired); err != nil {
		t.Fatal(err)
	}
	err = c.SubmitResponse(ctx, "expired-camp", payload)
	if se, ok = runtime.AsSubmitError(err); !ok || se.Reason != runtime.ReasonExpired {
		t.Fatalf("expected expired, got %v", err)
	}

	hidden := campForm("Hidden Camp")
	stored, err := store.CreateForm(hidden)
	if err != nil {
		t.Fatal(err)
	}
	stored.Hidden = true
	err = c.SubmitResponse(ctx, "hidden-camp", payload)
	if se, ok = runtime.AsSubmitError(err); !ok || se.Reason != runtime.ReasonNotAvailable {
		t.Fatalf("expected not_available, got %v", err)
	}
}

func TestPaymentConfig(t *testing.T) {
	t.Parallel()

	store := httpapi.NewStore()
	c := newServer(t, store)
	ctx := context.Background()

	if _, err := store.CreateForm(campForm("Summer Camp")); err != nil {
		t.Fatal(err)
	}

	cfg, err := c.PaymentConfig(ctx, "summer-camp")
	if err != nil {
		t.Fatalf("payment config failed: %v", err)
	}
	if !cfg.RequiresPayment || !cfg.AllowPayPal || !cfg.AllowInPerson {
		t.Fatalf("config = %+v", cfg)
	}

	free := schema.Form{Title: "Free Event", Fields: []schema.Field{
		{ID: "n", Name: "nick", Kind: schema.KindText, Label: "Nickname"},
	}}
	if _, err := store.CreateForm(free); err != nil {
		t.Fatal(err)
	}
	cfg, err = c.PaymentConfig(ctx, "free-event")
	if err != nil || cfg.RequiresPayment {
		t.Fatalf("free form config = %+v, %v", cfg, err)
	}
}

func TestTranslator(t *testing.T) {
	t.Parallel()

	c := newServer(t, httpapi.NewStore())
	ctx := context.Background()

	translations, err := c.TranslateMulti(ctx, []string{"Hello"}, []string{"es", "fr"})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if got := translations["Hello"]["es"]; got != "[es] Hello" {
		t.Fatalf("translation = %q", got)
	}

	langs, err := c.Languages(ctx)
	if err != nil || len(langs) == 0 {
		t.Fatalf("languages = %v, %v", langs, err)
	}
}

// Full paypal round trip: submit through the controller, follow the
// approval token back, capture server-side.
func TestPayPalRoundTrip(t *testing.T) {
	t.Parallel()

	store := httpapi.NewStore()
	c := newServer(t, store)
	ctx := context.Background()

	form := campForm("Summer Camp")
	if _, err := store.CreateForm(form); err != nil {
		t.Fatal(err)
	}

	controller := runtime.New(&form, "summer-camp",
		runtime.WithResponseService(c),
		runtime.WithPaymentService(c),
	)

	approvalURL, err := controller.Submit(ctx)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	parsed, err := url.Parse(approvalURL)
	if err != nil {
		t.Fatal(err)
	}
	token := parsed.Query().Get("token")
	if token == "" {
		t.Fatalf("approval url carries no token: %q", approvalURL)
	}

	ret, ok := runtime.ReturnFromQuery(url.Values{"token": {token}, "PayerID": {"PAYER1"}})
	if !ok {
		t.Fatal("return query not recognized")
	}
	if err := controller.HandleReturn(ctx, ret); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	responses := store.Responses("summer-camp")
	if len(responses) != 1 {
		t.Fatalf("got %d stored responses, want 1", len(responses))
	}
	info := responses[0].PaymentInfo
	if info == nil || info.Amount != 15 || info.PaymentMethod != schema.MethodPayPal {
		t.Fatalf("captured payment info = %+v", info)
	}

	// capturing the same token twice must fail
	err = c.FinalizeOrder(ctx, "summer-camp", token, "PAYER1")
	if se, ok := runtime.AsSubmitError(err); !ok || se.Reason != runtime.ReasonNotFound {
		t.Fatalf("expected not_found on double capture, got %v", err)
	}
}
