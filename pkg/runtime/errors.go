package runtime

import (
	"errors"
	"fmt"

	"github.com/parishkit/formengine/pkg/validate"
)

// ErrorKind classifies a submission failure for the host UI. Validation and
// bounds results stay return values inside the engine; kinds exist so the UI
// can pick a recovery path without string matching.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindBounds
	KindAuthRequired
	KindPaymentInit
	KindSubmission
	KindTranslation
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBounds:
		return "bounds"
	case KindAuthRequired:
		return "auth_required"
	case KindPaymentInit:
		return "payment_init"
	case KindSubmission:
		return "submission"
	case KindTranslation:
		return "translation"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// SubmissionReason refines KindSubmission failures.
type SubmissionReason string

const (
	ReasonExpired      SubmissionReason = "expired"
	ReasonNotAvailable SubmissionReason = "not_available"
	ReasonNotFound     SubmissionReason = "not_found"
	ReasonGeneric      SubmissionReason = "generic"
)

// SubmitError is the single error type crossing the controller boundary.
type SubmitError struct {
	Kind       ErrorKind
	Reason     SubmissionReason
	Message    string
	ExistingID string
	Issues     []validate.Issue
	Err        error
}

func (e *SubmitError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "submission failed"
	}
	if e.Reason != "" {
		return fmt.Sprintf("runtime: %s (%s): %s", e.Kind, e.Reason, msg)
	}
	return fmt.Sprintf("runtime: %s: %s", e.Kind, msg)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Retryable reports whether the failure may be retried without the user
// changing anything first.
func (e *SubmitError) Retryable() bool {
	switch e.Kind {
	case KindPaymentInit:
		return true
	case KindSubmission:
		return e.Reason == ReasonGeneric || e.Reason == ""
	}
	return false
}

// AsSubmitError unwraps err into a *SubmitError when one is in the chain.
func AsSubmitError(err error) (*SubmitError, bool) {
	var se *SubmitError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrSessionLoading is returned by Submit while the auth collaborator is
// still resolving the session. The host shows a loading state and retries;
// it is not a submission failure.
var ErrSessionLoading = errors.New("runtime: session is still loading")
