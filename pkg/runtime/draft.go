package runtime

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	draftKeyPrefix    = "form_data_"
	draftTimestampKey = "_timestamp"

	// drafts older than this are purged instead of restored
	draftMaxAge = time.Hour
)

func draftKey(slug string) string {
	return draftKeyPrefix + slug
}

// saveDraft persists the value map under the form's draft key with a
// millisecond timestamp stored alongside the values.
func saveDraft(store DraftStore, clock Clock, slug string, values map[string]any) error {
	draft := make(map[string]any, len(values)+1)
	for name, value := range values {
		draft[name] = value
	}
	draft[draftTimestampKey] = clock.Now().UnixMilli()

	encoded, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	store.Put(draftKey(slug), string(encoded))
	return nil
}

// restoreDraft returns the persisted value map when a draft exists and is
// younger than one hour. Stale or unreadable drafts are purged on sight.
func restoreDraft(store DraftStore, clock Clock, slug string) (map[string]any, bool) {
	raw, ok := store.Get(draftKey(slug))
	if !ok {
		return nil, false
	}

	var draft map[string]any
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		clearDraft(store, slug)
		return nil, false
	}
	stamp, ok := draft[draftTimestampKey].(float64)
	if !ok {
		clearDraft(store, slug)
		return nil, false
	}
	if clock.Now().Sub(time.UnixMilli(int64(stamp))) >= draftMaxAge {
		clearDraft(store, slug)
		return nil, false
	}

	delete(draft, draftTimestampKey)
	return draft, true
}

// clearDraft removes every key in the form's draft namespace.
func clearDraft(store DraftStore, slug string) {
	prefix := draftKey(slug)
	for _, key := range store.Keys() {
		if strings.HasPrefix(key, prefix) {
			store.Delete(key)
		}
	}
}
