package relier

import "context"

// SyncRelier represents a page load on behalf of Firefox Sync. The service
// is forced to Sync regardless of what the URL says, and Sync may ask for
// the customize-sync checkbox.
type SyncRelier struct {
	Relier

	CustomizeSync bool
}

// NewSync builds a Sync relier over the page-load query.
func NewSync(query map[string][]string) *SyncRelier {
	return &SyncRelier{
		Relier: *New(query),
	}
}

func (r *SyncRelier) Fetch(ctx context.Context) error {
	if err := r.Relier.Fetch(ctx); err != nil {
		return err
	}
	r.Service = ServiceSync
	r.CustomizeSync = r.query.Get("customizeSync") == "true"
	return nil
}

// Sync never uses cached credentials; the browser always asks for the
// password so it can derive Sync keys.
func (r *SyncRelier) WantsKeys() bool {
	return true
}
