// Package client talks to the form service over HTTP and implements the
// collaborator interfaces the runtime controller consumes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parishkit/formengine/pkg/runtime"
	"github.com/parishkit/formengine/pkg/schema"
)

// Client is a thin JSON client for the form service. It implements
// runtime.ResponseService, runtime.PaymentService and
// runtime.TranslationService.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithLogger sets the structured logger. The default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorBody is the service's error envelope.
type errorBody struct {
	Error      string `json:"error"`
	ExistingID string `json:"existing_id"`
}

// Form fetches a form record by id.
func (c *Client) Form(ctx context.Context, id string) (*schema.Form, error) {
	var stored struct {
		ID   string      `json:"id"`
		Slug string      `json:"slug"`
		Form schema.Form `json:"form"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/forms/"+id, nil, &stored); err != nil {
		return nil, err
	}
	return &stored.Form, nil
}

// CreateForm stores a new form and returns its id. A title conflict maps to
// KindConflict carrying the existing form's id for the override prompt.
func (c *Client) CreateForm(ctx context.Context, form *schema.Form) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/forms/", form, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UpdateForm replaces a stored form.
func (c *Client) UpdateForm(ctx context.Context, id string, form *schema.Form) error {
	return c.do(ctx, http.MethodPut, "/v1/forms/"+id, form, nil)
}

// PaymentConfig fetches the public payment configuration of a form.
func (c *Client) PaymentConfig(ctx context.Context, slug string) (runtime.PaymentConfig, error) {
	var cfg runtime.PaymentConfig
	err := c.do(ctx, http.MethodGet, "/v1/forms/slug/"+slug+"/payment-config", nil, &cfg)
	return cfg, err
}

// SubmitResponse POSTs a submission for the form at slug.
func (c *Client) SubmitResponse(ctx context.Context, slug string, payload runtime.SubmissionPayload) error {
	return c.do(ctx, http.MethodPost, "/v1/forms/slug/"+slug+"/responses", payload, nil)
}

// CreateOrder asks the service to create a payment order, returning the
// provider approval URL.
func (c *Client) CreateOrder(ctx context.Context, slug string, req runtime.OrderRequest) (string, error) {
	var created struct {
		Success     bool   `json:"success"`
		ApprovalURL string `json:"approval_url"`
		Error       string `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/forms/slug/"+slug+"/payment/paypal/orders", req, &created); err != nil {
		return "", err
	}
	if !created.Success || created.ApprovalURL == "" {
		return "", &runtime.SubmitError{Kind: runtime.KindPaymentInit, Message: created.Error}
	}
	return created.ApprovalURL, nil
}

// FinalizeOrder captures a provider-approved order after the return
// redirect.
func (c *Client) FinalizeOrder(ctx context.Context, slug, token, payerID string) error {
	body := map[string]string{"token": token, "payer_id": payerID}
	return c.do(ctx, http.MethodPost, "/v1/forms/slug/"+slug+"/payment/paypal/capture", body, nil)
}

// TranslateMulti translates each text into each locale.
func (c *Client) TranslateMulti(ctx context.Context, texts, locales []string) (map[string]map[string]string, error) {
	req := map[string]any{"texts": texts, "locales": locales}
	var resp struct {
		Translations map[string]map[string]string `json:"translations"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/translator/translate-multi", req, &resp); err != nil {
		return nil, &runtime.SubmitError{Kind: runtime.KindTranslation, Message: "translation request failed", Err: err}
	}
	return resp.Translations, nil
}

// Languages lists the translator's supported languages.
func (c *Client) Languages(ctx context.Context) ([]runtime.Language, error) {
	var langs []runtime.Language
	if err := c.do(ctx, http.MethodGet, "/v1/translator/languages", nil, &langs); err != nil {
		return nil, err
	}
	return langs, nil
}

// do runs one JSON round trip and maps non-2xx statuses to the submission
// error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(method, path, resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// statusError folds an error response into the taxonomy the runtime
// controller surfaces.
func (c *Client) statusError(method, path string, resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)
	c.log.Warn("request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("error", body.Error))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &runtime.SubmitError{Kind: runtime.KindSubmission, Reason: runtime.ReasonNotFound, Message: body.Error}
	case http.StatusGone:
		return &runtime.SubmitError{Kind: runtime.KindSubmission, Reason: runtime.ReasonExpired, Message: body.Error}
	case http.StatusForbidden:
		return &runtime.SubmitError{Kind: runtime.KindSubmission, Reason: runtime.ReasonNotAvailable, Message: body.Error}
	case http.StatusConflict:
		return &runtime.SubmitError{Kind: runtime.KindConflict, Message: body.Error, ExistingID: body.ExistingID}
	default:
		return &runtime.SubmitError{
			Kind:    runtime.KindSubmission,
			Reason:  runtime.ReasonGeneric,
			Message: body.Error,
			Err:     fmt.Errorf("client: %s %s: status %d", method, path, resp.StatusCode),
		}
	}
}
