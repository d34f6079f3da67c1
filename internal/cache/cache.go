package cache

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a fetched result is served without a network call
const DefaultStaleTime = 30 * time.Second

// Status is the lifecycle of one cached query
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is what a consumer needs to render loading/error status for a key
type State struct {
	Status    Status
	Err       error
	UpdatedAt time.Time
	Fetching  bool
	Stale     bool
}

type entry struct {
	key       Key
	value     any
	hasValue  bool
	fetchedAt time.Time
	invalid   bool
	err       error
	fetching  int
}

// Cache holds query results keyed by Key.
// At most one fetch runs per key at a time. A fetch only stores its result
// if no Set/Remove/Invalidate happened to the key since it began; otherwise
// the same flight fetches again so its waiters get post-mutation data.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	tags    map[string]map[string]struct{}
	gens    map[string]uint64

	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	logger    *log.Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithStaleTime sets the freshness window
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithLogger sets where background refresh failures are logged
func WithLogger(logger *log.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   map[string]*entry{},
		tags:      map[string]map[string]struct{}{},
		gens:      map[string]uint64{},
		staleTime: DefaultStaleTime,
		now:       time.Now,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key, calling fn when there is none.
//   - fresh value: returned, no call
//   - value older than the stale time: returned at once, refreshed in the background
//   - missing or invalidated: fn is called and the caller waits
//
// Concurrent callers for the same key share one call to fn. A caller whose
// ctx ends stops waiting; the shared fetch still completes and is cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()

	c.mu.Lock()
	if e, ok := c.entries[k]; ok && e.hasValue && !e.invalid {
		if v, ok := e.value.(T); ok {
			stale := c.now().Sub(e.fetchedAt) >= c.staleTime
			c.mu.Unlock()
			if stale {
				ch := start(ctx, c, key, k, fn)
				go c.logRefresh(k, ch)
			}
			return v, nil
		}
	}
	c.entryLocked(key, k)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-start(ctx, c, key, k, fn):
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

// Peek returns the cached value for key without fetching
func Peek[T any](c *Cache, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key.String()]
	if !ok || !e.hasValue {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

func start[T any](ctx context.Context, c *Cache, key Key, k string, fn func(context.Context) (T, error)) <-chan singleflight.Result {
	return c.group.DoChan(k, func() (any, error) {
		for {
			gen := c.beginFetch(key, k)
			v, err := fn(context.WithoutCancel(ctx))
			if cur, done, curErr := c.finishFetch(key, k, gen, v, err); done {
				return cur, curErr
			}
			c.logger.Printf("cache fetch superseded key=%s gen=%d, fetching again", k, gen)
		}
	})
}

func (c *Cache) logRefresh(k string, ch <-chan singleflight.Result) {
	res := <-ch
	if res.Err != nil {
		c.logger.Printf("cache refresh failed key=%s err=%v", k, res.Err)
	}
}

// beginFetch records a fetch in flight and returns the generation it reads
func (c *Cache) beginFetch(key Key, k string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entryLocked(key, k).fetching++
	return c.gens[k]
}

// finishFetch stores the result of a fetch begun at gen. done is false when
// the key was invalidated or removed meanwhile and the result is unusable;
// when a Set replaced it, the set value is handed to the waiters instead.
func (c *Cache) finishFetch(key Key, k string, gen uint64, v any, err error) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if ok && e.fetching > 0 {
		e.fetching--
	}
	if c.gens[k] != gen {
		// superseded by a mutation while in flight
		if ok && e.hasValue && !e.invalid {
			return e.value, true, nil
		}
		return nil, false, nil
	}
	if !ok {
		e = c.entryLocked(key, k)
	}
	if err != nil {
		e.err = err
		return nil, true, err
	}
	e.value = v
	e.hasValue = true
	e.fetchedAt = c.now()
	e.invalid = false
	e.err = nil
	return v, true, nil
}

// entryLocked returns the entry for k, creating and tagging it if needed
func (c *Cache) entryLocked(key Key, k string) *entry {
	if e, ok := c.entries[k]; ok {
		return e
	}
	e := &entry{key: key}
	c.entries[k] = e
	for _, tag := range key.prefixes() {
		set, ok := c.tags[tag]
		if !ok {
			set = map[string]struct{}{}
			c.tags[tag] = set
		}
		set[k] = struct{}{}
	}
	return e
}

// Set stores v for key as a fresh result, discarding any in-flight fetch for it
func (c *Cache) Set(key Key, v any) {
	k := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[k]++
	e := c.entryLocked(key, k)
	e.value = v
	e.hasValue = true
	e.fetchedAt = c.now()
	e.invalid = false
	e.err = nil
}

// Remove drops key from the cache
func (c *Cache) Remove(key Key) {
	k := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[k]++
	if _, ok := c.entries[k]; !ok {
		return
	}
	delete(c.entries, k)
	for _, tag := range key.prefixes() {
		if set, ok := c.tags[tag]; ok {
			delete(set, k)
			if len(set) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}

// Invalidate marks key and every key it prefixes as needing a refetch.
// The next Fetch of an invalidated key waits for fresh data. Returns the
// number of entries affected.
func (c *Cache) Invalidate(prefix Key) int {
	p := prefix.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.tags[p])+1)
	if _, ok := c.entries[p]; ok {
		keys = append(keys, p)
	}
	for k := range c.tags[p] {
		keys = append(keys, k)
	}
	for _, k := range keys {
		c.entries[k].invalid = true
		c.gens[k]++
	}
	return len(keys)
}

// State reports the status of key for display
func (c *Cache) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return State{Status: StatusIdle}
	}

	st := State{
		Err:       e.err,
		UpdatedAt: e.fetchedAt,
		Fetching:  e.fetching > 0,
		Stale:     e.invalid || (e.hasValue && c.now().Sub(e.fetchedAt) >= c.staleTime),
	}
	switch {
	case e.err != nil:
		st.Status = StatusError
	case e.hasValue:
		st.Status = StatusSuccess
	case e.fetching > 0:
		st.Status = StatusLoading
	default:
		st.Status = StatusIdle
	}
	return st
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
