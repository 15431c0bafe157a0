package router

import "sync"

// FormPrefill caches form field values across view transitions, so the
// email typed on signin survives a hop to signup. It lives for one page
// session and is never persisted.
type FormPrefill struct {
	mu     sync.RWMutex
	fields map[string]string
}

func NewFormPrefill() *FormPrefill {
	return &FormPrefill{fields: make(map[string]string)}
}

func (f *FormPrefill) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[field] = value
}

func (f *FormPrefill) Get(field string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fields[field]
}

// Clear wipes the cache; called on sign-out.
func (f *FormPrefill) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = make(map[string]string)
}
