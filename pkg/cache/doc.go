/*
Package cache provides a builder-configured in-memory cache with striped
locking, size- and weight-based LRU eviction, time-based expiry,
asynchronous refresh, removal notifications, and statistics.

	sessions, err := cache.NewBuilder[string, *Session]().
		MaximumSize(10_000).
		ExpireAfterAccess(30 * time.Minute).
		RecordStats().
		Build()

	s, err := sessions.Get(id, func() (*Session, error) {
		return loadSession(id)
	})

A loading cache fixes the loader at build time and supports refreshing:

	users, err := cache.NewBuilder[string, *User]().
		MaximumSize(1_000).
		RefreshAfterWrite(time.Minute).
		BuildLoading(fetchUser)

	u, err := users.GetLoaded("alice")

Loads are single-flight per key: concurrent getters of one key share one
loader call. Refreshes run asynchronously and keep serving the stale value
until the reload lands; a failed reload keeps the old value.

Eviction is least-recently-used per lock stripe, with the configured
maximum split across ConcurrencyLevel stripes. Expired entries are
reclaimed as reads and writes touch them, by CleanUp, or on a schedule via
CleanupJanitor.
*/
package cache
