package runtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/parishkit/formengine/pkg/schema"
)

// SubmissionPayload is the body POSTed to the responses endpoint.
type SubmissionPayload struct {
	Response    map[string]any `json:"response"`
	PaymentInfo *PaymentInfo   `json:"payment_info,omitempty"`
}

// PaymentInfo rides along with in-person submissions. The server stamps the
// payment time; the client only declares intent.
type PaymentInfo struct {
	Amount          float64 `json:"amount"`
	Status          string  `json:"status"`
	PaymentMethod   string  `json:"payment_method"`
	PriceFieldID    string  `json:"price_field_id"`
	PriceFieldValue float64 `json:"price_field_value"`
}

// StatusPendingDoorPayment marks an in-person submission awaiting payment
// at the door.
const StatusPendingDoorPayment = "pending_door_payment"

// PaymentConfig is the public payment configuration of a form.
type PaymentConfig struct {
	RequiresPayment bool    `json:"requires_payment"`
	Amount          float64 `json:"amount,omitempty"`
	AllowPayPal     bool    `json:"allow_paypal,omitempty"`
	AllowInPerson   bool    `json:"allow_in_person,omitempty"`
}

// ResponseService submits responses and finalizes provider-approved orders.
type ResponseService interface {
	SubmitResponse(ctx context.Context, slug string, payload SubmissionPayload) error
	FinalizeOrder(ctx context.Context, slug, token, payerID string) error
	PaymentConfig(ctx context.Context, slug string) (PaymentConfig, error)
}

// OrderRequest asks the payment collaborator to create a provider order.
type OrderRequest struct {
	Amount         float64        `json:"amount"`
	Response       map[string]any `json:"response"`
	PaymentMethod  string         `json:"payment_method"`
	FormSchema     []schema.Field `json:"form_schema"`
	PriceFieldInfo PriceFieldInfo `json:"price_field_info"`
}

// PriceFieldInfo identifies the winning price field and its computed value.
type PriceFieldInfo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// PaymentService creates provider orders. The returned approval URL is where
// the host UI redirects the user.
type PaymentService interface {
	CreateOrder(ctx context.Context, slug string, req OrderRequest) (approvalURL string, err error)
}

// Language is one entry of the translator's supported-language list.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TranslationService translates authoring strings into the form's extra
// locales. TranslateMulti returns text → locale → translation.
type TranslationService interface {
	TranslateMulti(ctx context.Context, texts, locales []string) (map[string]map[string]string, error)
	Languages(ctx context.Context) ([]Language, error)
}

// SessionState is the auth collaborator's resolution state.
type SessionState int

const (
	SessionLoading SessionState = iota
	SessionReady
)

// AuthProvider reports the current session. The bool is meaningful only once
// the state is SessionReady.
type AuthProvider interface {
	Session() (SessionState, bool)
}

// DraftStore is string-keyed client-local persistence for response drafts.
// Implementations must be safe for concurrent use; the freshness window
// lives in the controller, not here.
type DraftStore interface {
	Get(key string) (string, bool)
	Put(key, value string)
	Delete(key string)
	Keys() []string
}

// MemoryDraftStore is the in-process DraftStore used by tests and the CLI.
type MemoryDraftStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryDraftStore returns an empty store.
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{data: make(map[string]string)}
}

func (s *MemoryDraftStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok
}

func (s *MemoryDraftStore) Put(key, value string) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

func (s *MemoryDraftStore) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

func (s *MemoryDraftStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clock abstracts time for draft stamping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
