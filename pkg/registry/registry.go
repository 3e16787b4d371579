package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/psantana5/chrono/pkg/clock"
	"github.com/psantana5/chrono/pkg/stopwatch"
)

var (
	ErrNotFound    = errors.New("stopwatch not found")
	ErrExists      = errors.New("stopwatch name already in use")
	ErrInvalidName = errors.New("stopwatch name must not be empty")
)

// Entry is a point-in-time snapshot of a registered stopwatch
type Entry struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Running      bool          `json:"running" yaml:"running"`
	ElapsedTicks int64         `json:"elapsed_ticks" yaml:"elapsed_ticks"`
	Elapsed      time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
	ElapsedMS    int64         `json:"elapsed_ms" yaml:"elapsed_ms"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
}

type item struct {
	id      string
	name    string
	watch   *stopwatch.Stopwatch
	created time.Time
}

// Registry holds named stopwatches and serializes every access to them.
// It is safe for concurrent use.
type Registry struct {
	src   clock.Source
	opts  []stopwatch.Option
	items map[string]*item
	names map[string]string // name -> id
	mu    sync.RWMutex
}

// New creates an empty registry whose stopwatches read from src
func New(src clock.Source, opts ...stopwatch.Option) *Registry {
	if src == nil {
		src = clock.System()
	}
	return &Registry{
		src:   src,
		opts:  opts,
		items: make(map[string]*item),
		names: make(map[string]string),
	}
}

// Create registers a new stopped stopwatch, started right away if start is set
func (r *Registry) Create(name string, start bool) (Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[name]; ok {
		return Entry{}, ErrExists
	}

	it := &item{
		id:      uuid.New().String(),
		name:    name,
		watch:   stopwatch.New(r.src, r.opts...),
		created: time.Now(),
	}
	if start {
		it.watch.Start()
	}
	r.items[it.id] = it
	r.names[name] = it.id
	return it.snapshot(), nil
}

// Get returns a snapshot of one stopwatch
func (r *Registry) Get(id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return it.snapshot(), nil
}

// Lookup finds a stopwatch by name
func (r *Registry) Lookup(name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.names[name]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return r.items[id].snapshot(), nil
}

// List returns snapshots of all stopwatches ordered by name
func (r *Registry) List() []Entry {
	entries := make([]Entry, 0)
	r.Each(func(e Entry) {
		entries = append(entries, e)
	})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Each calls fn with a snapshot of every stopwatch while holding a read lock.
// fn must not call back into the registry.
func (r *Registry) Each(fn func(Entry)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		fn(it.snapshot())
	}
}

// Len returns the number of registered stopwatches
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) Start(id string) (Entry, error) {
	return r.apply(id, (*stopwatch.Stopwatch).Start)
}

func (r *Registry) Stop(id string) (Entry, error) {
	return r.apply(id, (*stopwatch.Stopwatch).Stop)
}

func (r *Registry) Reset(id string) (Entry, error) {
	return r.apply(id, (*stopwatch.Stopwatch).Reset)
}

func (r *Registry) Restart(id string) (Entry, error) {
	return r.apply(id, (*stopwatch.Stopwatch).Restart)
}

// Delete removes a stopwatch
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	delete(r.names, it.name)
	return nil
}

func (r *Registry) apply(id string, op func(*stopwatch.Stopwatch)) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	op(it.watch)
	return it.snapshot(), nil
}

func (it *item) snapshot() Entry {
	ticks := it.watch.ElapsedTicks()
	elapsed := clock.ToDuration(ticks, it.watch.Frequency())
	return Entry{
		ID:           it.id,
		Name:         it.name,
		Running:      it.watch.IsRunning(),
		ElapsedTicks: ticks,
		Elapsed:      elapsed,
		ElapsedMS:    elapsed.Milliseconds(),
		CreatedAt:    it.created,
	}
}
