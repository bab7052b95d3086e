// Package tabstore provides the volatile key-value store scoped to a single
// browser tab. It backs the access-token mirror and the OAuth dedup markers.
// Contents survive page reloads within the tab but are discarded when the tab
// session ends; nothing stored here is ever treated as an authority.
package tabstore

import "context"

// Repo is a tab-scoped key-value store.
// Implementations must be safe for concurrent use.
type Repo interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, overwriting any prior value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key in the tab's namespace.
	Clear(ctx context.Context) error
}
