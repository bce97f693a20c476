package httpapi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parishkit/formengine/pkg/runtime"
	"github.com/parishkit/formengine/pkg/schema"
)

// ErrTitleConflict signals a create against an already-used title.
type ErrTitleConflict struct {
	ExistingID string
}

func (e *ErrTitleConflict) Error() string {
	return fmt.Sprintf("httpapi: form title already in use by %s", e.ExistingID)
}

// ErrNotFound is returned for unknown form ids, slugs and order tokens.
var ErrNotFound = errors.New("httpapi: not found")

// StoredForm is one persisted form record.
type StoredForm struct {
	ID     string      `json:"id"`
	Slug   string      `json:"slug"`
	Hidden bool        `json:"hidden,omitempty"`
	Form   schema.Form `json:"form"`
}

// StoredResponse is one accepted submission.
type StoredResponse struct {
	ID          string               `json:"id"`
	Slug        string               `json:"slug"`
	Response    map[string]any       `json:"response"`
	PaymentInfo *runtime.PaymentInfo `json:"payment_info,omitempty"`
	ReceivedAt  time.Time            `json:"received_at"`
}

type order struct {
	slug     string
	request  runtime.OrderRequest
	captured bool
}

// Store is the in-memory persistence behind the reference server.
type Store struct {
	mu        sync.RWMutex
	forms     map[string]*StoredForm
	bySlug    map[string]string
	responses []StoredResponse
	orders    map[string]*order
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		forms:  make(map[string]*StoredForm),
		bySlug: make(map[string]string),
		orders: make(map[string]*order),
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the public slug from a form title.
func Slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	return strings.Trim(slug, "-")
}

// CreateForm stores a new form, rejecting duplicate titles so the builder
// can offer an override.
func (s *Store) CreateForm(form schema.Form) (*StoredForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.forms {
		if strings.EqualFold(existing.Form.Title, form.Title) {
			return nil, &ErrTitleConflict{ExistingID: existing.ID}
		}
	}

	stored := &StoredForm{
		ID:   uuid.NewString(),
		Slug: Slugify(form.Title),
		Form: form,
	}
	s.forms[stored.ID] = stored
	s.bySlug[stored.Slug] = stored.ID
	return stored, nil
}

// UpdateForm replaces an existing form record.
func (s *Store) UpdateForm(id string, form schema.Form) (*StoredForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.forms[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.bySlug, stored.Slug)
	stored.Form = form
	stored.Slug = Slugify(form.Title)
	s.bySlug[stored.Slug] = id
	return stored, nil
}

// Form returns a form by id.
func (s *Store) Form(id string) (*StoredForm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.forms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return stored, nil
}

// FormBySlug returns a form by its public slug.
func (s *Store) FormBySlug(slug string) (*StoredForm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return s.forms[id], nil
}

// AddResponse records an accepted submission.
func (s *Store) AddResponse(slug string, payload runtime.SubmissionPayload, now time.Time) StoredResponse {
	stored := StoredResponse{
		ID:          uuid.NewString(),
		Slug:        slug,
		Response:    payload.Response,
		PaymentInfo: payload.PaymentInfo,
		ReceivedAt:  now,
	}
	s.mu.Lock()
	s.responses = append(s.responses, stored)
	s.mu.Unlock()
	return stored
}

// Responses returns the submissions received for a slug.
func (s *Store) Responses(slug string) []StoredResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []StoredResponse
	for _, r := range s.responses {
		if r.Slug == slug {
			out = append(out, r)
		}
	}
	return out
}

// CreateOrder records a pending payment order and returns its token.
func (s *Store) CreateOrder(slug string, req runtime.OrderRequest) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.orders[token] = &order{slug: slug, request: req}
	s.mu.Unlock()
	return token
}

// CaptureOrder marks an order captured and files its draft response as a
// submission.
func (s *Store) CaptureOrder(slug, token string, now time.Time) (StoredResponse, error) {
	s.mu.Lock()
	pending, ok := s.orders[token]
	if !ok || pending.slug != slug || pending.captured {
		s.mu.Unlock()
		return StoredResponse{}, ErrNotFound
	}
	pending.captured = true
	s.mu.Unlock()

	return s.AddResponse(slug, runtime.SubmissionPayload{
		Response: pending.request.Response,
		PaymentInfo: &runtime.PaymentInfo{
			Amount:          pending.request.Amount,
			Status:          "completed",
			PaymentMethod:   pending.request.PaymentMethod,
			PriceFieldID:    pending.request.PriceFieldInfo.ID,
			PriceFieldValue: pending.request.PriceFieldInfo.Amount,
		},
	}, now), nil
}
