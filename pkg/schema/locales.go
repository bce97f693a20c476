package schema

import (
	"sort"
	"strings"
)

// CollectAvailableLocales returns the union of the form's authoring locale,
// its declared extra locales and any locale keys found on option label
// overrides, sorted with the authoring locale first.
func CollectAvailableLocales(form *Form) []string {
	if form == nil {
		return []string{DefaultAuthoringLocale}
	}

	authoring := form.AuthoringLocale()
	seen := map[string]struct{}{authoring: {}}

	add := func(locale string) {
		locale = strings.TrimSpace(locale)
		if locale == "" {
			return
		}
		seen[locale] = struct{}{}
	}

	for _, locale := range form.Locales {
		add(locale)
	}
	for i := range form.Fields {
		for _, option := range form.Fields[i].Options {
			for locale := range option.Labels {
				add(locale)
			}
		}
	}

	rest := make([]string, 0, len(seen)-1)
	for locale := range seen {
		if locale == authoring {
			continue
		}
		rest = append(rest, locale)
	}
	sort.Strings(rest)

	return append([]string{authoring}, rest...)
}
