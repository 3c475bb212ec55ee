package querycache

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Account is the raw fetched content of one ledger account.
type Account struct {
	ID    string
	Owner solana.PublicKey
	Data  []byte
}

// Fetcher reads account contents in one batched round trip. The result is
// index-aligned with the request: a nil element means the account does not
// exist, which is a normal state.
type Fetcher interface {
	GetAccounts(ctx context.Context, ids []string) ([]*Account, error)
}

// EntryState tracks the lifecycle of a cached key set.
type EntryState int

const (
	StateAbsent EntryState = iota
	StateLoading
	StateFresh
	StateStale
)

func (s EntryState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "absent"
	}
}

type entry struct {
	ids       []string
	state     EntryState
	data      map[string]*Account
	err       error
	fetchedAt time.Time

	// Monotonic fetch sequencing. A resolution whose sequence number is
	// not newer than the last delivered one is discarded, so an earlier
	// fetch can never overwrite a later one.
	seq       uint64
	delivered uint64

	inflight  chan struct{}
	observers int

	// Set when an invalidation lands while a fetch is in flight: the
	// response that fetch delivers predates the invalidation, so it must
	// land stale and observed entries must refetch once more.
	dirty bool
}

// Cache is a keyed asynchronous read cache over ledger accounts. It is the
// only writer of its entries; mutation flows signal invalidation through
// Invalidate instead of touching entries directly.
type Cache struct {
	mu      sync.Mutex
	fetcher Fetcher
	entries map[string]*entry
	ctx     context.Context
}

// New creates a cache backed by the given fetcher. ctx bounds background
// refetches triggered by invalidation.
func New(ctx context.Context, fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		entries: make(map[string]*entry),
		ctx:     ctx,
	}
}

// Key returns the canonical cache key for a set of account IDs. Order of
// the input does not matter.
func Key(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func (c *Cache) ensure(ids []string) (string, *entry) {
	k := Key(ids)
	e, ok := c.entries[k]
	if !ok {
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		e = &entry{ids: sorted, state: StateAbsent}
		c.entries[k] = e
	}
	return k, e
}

func snapshot(e *entry) map[string]*Account {
	out := make(map[string]*Account, len(e.ids))
	for _, id := range e.ids {
		out[id] = e.data[id]
	}
	return out
}

// FetchMany returns the current contents of the given key set, fetching
// them in a single batched round trip when the entry is not fresh.
// Concurrent callers with an identical key set share one in-flight fetch.
// On fetch failure the last-known data is returned alongside the error and
// the entry is left stale rather than blanked.
func (c *Cache) FetchMany(ctx context.Context, ids []string) (map[string]*Account, error) {
	if len(ids) == 0 {
		return map[string]*Account{}, nil
	}

	c.mu.Lock()
	_, e := c.ensure(ids)

	if e.state == StateFresh {
		res := snapshot(e)
		c.mu.Unlock()
		return res, nil
	}

	// Coalesce with an in-flight fetch for the same key set.
	if e.inflight != nil {
		ch := e.inflight
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.mu.Lock()
		res, err := snapshot(e), e.err
		c.mu.Unlock()
		return res, err
	}

	e.seq++
	seq := e.seq
	e.state = StateLoading
	ch := make(chan struct{})
	e.inflight = ch
	fetchIDs := e.ids
	c.mu.Unlock()

	accts, fetchErr := c.fetcher.GetAccounts(ctx, fetchIDs)

	c.mu.Lock()
	if seq > e.delivered {
		e.delivered = seq
		if fetchErr != nil {
			// Keep last-known values visible until the next successful
			// refresh (stale-while-revalidate).
			e.err = fmt.Errorf("failed to fetch accounts: %w", fetchErr)
			e.state = StateStale
		} else {
			data := make(map[string]*Account, len(fetchIDs))
			for i, id := range fetchIDs {
				if i < len(accts) && accts[i] != nil {
					data[id] = accts[i]
				}
			}
			e.data = data
			e.err = nil
			e.state = StateFresh
			e.fetchedAt = time.Now()
		}
	}
	if e.inflight == ch {
		e.inflight = nil
	}
	var refetch []string
	if e.dirty {
		e.dirty = false
		if e.state == StateFresh {
			e.state = StateStale
		}
		if e.observers > 0 {
			refetch = e.ids
		}
	}
	close(ch)
	res, err := snapshot(e), e.err
	c.mu.Unlock()

	if refetch != nil {
		go c.refresh(refetch)
	}
	return res, err
}

// Peek returns the last-known data for a key set without fetching.
func (c *Cache) Peek(ids []string) (map[string]*Account, EntryState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[Key(ids)]
	if !ok {
		return nil, StateAbsent
	}
	return snapshot(e), e.state
}

// State reports the lifecycle state of a key set.
func (c *Cache) State(ids []string) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[Key(ids)]
	if !ok {
		return StateAbsent
	}
	return e.state
}

// Subscribe registers interest in a key set. Invalidations refetch only
// subscribed key sets; everything else just goes stale until the next
// explicit FetchMany.
func (c *Cache) Subscribe(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, e := c.ensure(ids)
	e.observers++
}

// Unsubscribe drops a registration made with Subscribe.
func (c *Cache) Unsubscribe(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[Key(ids)]
	if ok && e.observers > 0 {
		e.observers--
	}
}

// Invalidate marks every entry whose key set matches the predicate as
// stale and schedules a refetch for the subscribed ones. Returns the number
// of entries invalidated.
func (c *Cache) Invalidate(pred func(ids []string) bool) int {
	c.mu.Lock()
	invalidated := 0
	var refetch [][]string
	for _, e := range c.entries {
		if !pred(e.ids) {
			continue
		}
		invalidated++
		if e.state == StateFresh {
			e.state = StateStale
		}
		if e.inflight != nil {
			// The in-flight response predates this invalidation; let the
			// completing fetch land stale and schedule its own refetch.
			e.dirty = true
			continue
		}
		if e.observers > 0 {
			refetch = append(refetch, e.ids)
		}
	}
	c.mu.Unlock()

	for _, ids := range refetch {
		go c.refresh(ids)
	}
	return invalidated
}

// InvalidateKeys marks stale every entry whose key set contains at least
// one of the given account IDs.
func (c *Cache) InvalidateKeys(ids ...string) int {
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	return c.Invalidate(func(entryIDs []string) bool {
		for _, id := range entryIDs {
			if member[id] {
				return true
			}
		}
		return false
	})
}

func (c *Cache) refresh(ids []string) {
	if _, err := c.FetchMany(c.ctx, ids); err != nil {
		log.Printf("cache refresh failed for %s: %v", Key(ids), err)
	}
}

// Stats returns cache statistics for diagnostics.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh, stale := 0, 0
	for _, e := range c.entries {
		switch e.state {
		case StateFresh:
			fresh++
		case StateStale:
			stale++
		}
	}
	return map[string]interface{}{
		"entries": len(c.entries),
		"fresh":   fresh,
		"stale":   stale,
	}
}
