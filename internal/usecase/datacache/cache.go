// Package datacache keeps the last known response body per resource key and
// revalidates it in the background.
//
// Readers of one key share a single in-flight fetch. Mutate starts a new
// fetch that supersedes any older one, so a write followed by Mutate never
// ends with a pre-write body in the cache. There is no retry, no timeout and
// no optimistic update: a failed fetch is reported through State.Err until
// the next successful fetch of the same key.
package datacache

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"issuetracker/internal/bootstrap/logging"
	"issuetracker/internal/ports"
)

// DefaultDedupeInterval is how long a fetch result counts as fresh for Get.
const DefaultDedupeInterval = 2 * time.Second

// Fetcher loads the body for key. It is called from a background goroutine
// with the cache's own context.
type Fetcher func(ctx context.Context, key string) ([]byte, error)

type State struct {
	Data      []byte
	Err       error
	IsLoading bool
}

func (s State) HasData() bool {
	return s.Data != nil
}

type Option func(*Cache)

// WithDedupeInterval sets how long after a fetch Get skips revalidation.
// Zero makes every Get revalidate unless a fetch is already running.
func WithDedupeInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.dedupe = d
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

type Cache struct {
	ctx    context.Context
	cancel context.CancelFunc
	fetch  Fetcher
	dedupe time.Duration
	now    func() time.Time

	// storeCtx outlives Close so cached bodies stay readable.
	storeCtx context.Context
	store    ports.Cache

	mu      sync.Mutex
	entries map[string]*entry
	nextSub uint64
}

type entry struct {
	err         error
	stale       bool
	attempted   bool
	lastAttempt time.Time
	inflight    *call
	subs        map[uint64]chan State
}

type call struct {
	done chan struct{}
}

// New creates a cache whose fetches run under ctx until Close.
func New(ctx context.Context, store ports.Cache, fetch Fetcher, opts ...Option) (*Cache, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if fetch == nil {
		return nil, errors.New("fetcher is required")
	}

	ctx = logging.WithAttrs(ctx, slog.String("component", "datacache"))
	cctx, cancel := context.WithCancel(ctx)
	c := &Cache{
		ctx:      cctx,
		cancel:   cancel,
		storeCtx: context.WithoutCancel(ctx),
		store:    store,
		fetch:    fetch,
		dedupe:   DefaultDedupeInterval,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close cancels in-flight fetches. Cached values stay readable.
func (c *Cache) Close() {
	c.cancel()
}

// Get returns the current state of key and starts a background fetch when
// the key is new, invalidated or older than the dedupe interval. An empty
// key is suspended: it returns the zero State and fetches nothing.
func (c *Cache) Get(key string) State {
	if key == "" {
		return State{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	if e.inflight == nil && c.needsFetchLocked(e) {
		c.startLocked(key, e)
	}
	return c.snapshotLocked(key, e)
}

// Load is Get followed by waiting until no fetch for key is running.
// The returned error is State.Err, or ctx's error if ctx ends first.
func (c *Cache) Load(ctx context.Context, key string) (State, error) {
	if key == "" {
		return State{}, nil
	}

	c.mu.Lock()
	e := c.entryLocked(key)
	if e.inflight == nil && c.needsFetchLocked(e) {
		c.startLocked(key, e)
	}
	c.mu.Unlock()

	return c.wait(ctx, key)
}

// Mutate forces a refetch of key, superseding any running fetch, and waits
// for it to finish.
func (c *Cache) Mutate(ctx context.Context, key string) (State, error) {
	if key == "" {
		return State{}, nil
	}

	c.mu.Lock()
	e := c.entryLocked(key)
	c.startLocked(key, e)
	c.mu.Unlock()

	return c.wait(ctx, key)
}

// Invalidate marks key stale so the next Get refetches. The cached body is
// kept and still served until then.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// Reset drops the cached body and error for key and abandons any running
// fetch. Subscribers stay registered and receive the empty state.
func (c *Cache) Reset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	_ = c.store.Delete(c.storeCtx, key)
	e.err = nil
	e.stale = false
	e.attempted = false
	if e.inflight != nil {
		close(e.inflight.done)
		e.inflight = nil
	}
	c.notifyLocked(key, e)
}

// Set stores body for key as a successful fetch result.
func (c *Cache) Set(key string, body []byte) error {
	if key == "" {
		return errors.New("key is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(c.storeCtx, key, string(body), 0); err != nil {
		return err
	}
	e := c.entryLocked(key)
	e.err = nil
	e.stale = false
	e.attempted = true
	e.lastAttempt = c.now()
	c.notifyLocked(key, e)
	return nil
}

// Keys returns the known keys starting with prefix, sorted.
func (c *Cache) Keys(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Subscribe returns a channel receiving the latest state of key after every
// change. Slow readers only see the most recent state. The returned func
// unsubscribes and closes the channel.
func (c *Cache) Subscribe(key string) (<-chan State, func()) {
	ch := make(chan State, 1)
	if key == "" {
		close(ch)
		return ch, func() {}
	}

	c.mu.Lock()
	e := c.entryLocked(key)
	c.nextSub++
	id := c.nextSub
	e.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

func (c *Cache) wait(ctx context.Context, key string) (State, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	e := c.entryLocked(key)
	for e.inflight != nil {
		done := e.inflight.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			c.mu.Lock()
			st := c.snapshotLocked(key, e)
			c.mu.Unlock()
			return st, ctx.Err()
		}

		c.mu.Lock()
	}
	st := c.snapshotLocked(key, e)
	c.mu.Unlock()
	return st, st.Err
}

func (c *Cache) entryLocked(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{subs: make(map[uint64]chan State)}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) needsFetchLocked(e *entry) bool {
	if e.stale || !e.attempted {
		return true
	}
	return c.now().Sub(e.lastAttempt) >= c.dedupe
}

func (c *Cache) startLocked(key string, e *entry) {
	cl := &call{done: make(chan struct{})}
	if e.inflight != nil {
		// The older fetch keeps running but its result is discarded.
		close(e.inflight.done)
	}
	e.inflight = cl
	e.stale = false
	e.attempted = true
	e.lastAttempt = c.now()
	c.notifyLocked(key, e)

	go c.run(key, e, cl)
}

func (c *Cache) run(key string, e *entry, cl *call) {
	body, err := c.fetch(c.ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e.inflight != cl {
		logging.Debug(c.ctx, "discard superseded fetch", slog.String("key", key))
		return
	}

	if err == nil {
		err = c.store.Set(c.storeCtx, key, string(body), 0)
	}
	if err != nil {
		logging.Debug(c.ctx, "fetch failed", slog.String("key", key), slog.String("err", err.Error()))
	}
	e.err = err
	e.inflight = nil
	close(cl.done)
	c.notifyLocked(key, e)
}

func (c *Cache) snapshotLocked(key string, e *entry) State {
	st := State{
		Err:       e.err,
		IsLoading: e.inflight != nil,
	}
	if value, found, err := c.store.Get(c.storeCtx, key); err == nil && found {
		st.Data = []byte(value)
	}
	return st
}

func (c *Cache) notifyLocked(key string, e *entry) {
	if len(e.subs) == 0 {
		return
	}

	st := c.snapshotLocked(key, e)
	for _, ch := range e.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}
