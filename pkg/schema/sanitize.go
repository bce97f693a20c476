package schema

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	staticPolicyOnce sync.Once
	staticPolicy     *bluemonday.Policy
)

// SanitizeStaticContent strips unsafe markup from a static field's content
// before it is persisted. Static blocks allow basic formatting and links but
// never scripts or event handlers.
func SanitizeStaticContent(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(staticSanitizer().Sanitize(trimmed))
}

func staticSanitizer() *bluemonday.Policy {
	staticPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").OnElements("p", "span", "small", "h1", "h2", "h3", "h4")
		staticPolicy = policy
	})
	return staticPolicy
}
