package kb

import (
	"context"
	"sync/atomic"
)

// Snapshot is an immutable view of the active entry set. Matchers read a
// snapshot for the whole request; writers build a new one and swap it in.
type Snapshot struct {
	Version uint64
	Entries []Entry
}

// Cache holds the process-wide active-entry snapshot. Reads never block
// behind reloads; a reload builds the slice first and publishes it with a
// single pointer swap.
type Cache struct {
	repo    *Repo
	version atomic.Uint64
	current atomic.Pointer[Snapshot]
}

func NewCache(repo *Repo) *Cache {
	c := &Cache{repo: repo}
	c.current.Store(&Snapshot{})
	return c
}

// Snapshot returns the current view. The returned slice must not be mutated.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Reload fetches the active set and atomically replaces the snapshot.
// Ingestion and deactivation call this as their invalidation hook.
func (c *Cache) Reload(ctx context.Context) (*Snapshot, error) {
	entries, err := c.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Version: c.version.Add(1),
		Entries: entries,
	}
	c.current.Store(snap)
	return snap, nil
}
