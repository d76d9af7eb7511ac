// Package registry implements the category-bucketed configuration store
// owned by a module scope. Entries are deduplicated on every Add with a
// category-specific policy: interface-bound service entries by their
// derived unique key, everything else by id or field equality.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/confkit/confkit/pkg/config"
	cerrors "github.com/confkit/confkit/pkg/errors"
	"github.com/confkit/confkit/pkg/logging"
)

// Registry is a thread-safe store of configuration entries, bucketed by
// category with insertion order preserved per bucket.
type Registry struct {
	mu      sync.RWMutex
	buckets map[config.Category]*bucket

	// serviceIndex maps unique service keys to their first registered
	// entry. Used only for duplicate detection, never for lookup, and
	// cleared in lockstep with the buckets.
	serviceIndex map[string]config.UniqueKeyed

	// warned tracks new instances a duplicate warning was already
	// emitted for, so each one warns at most once.
	warned map[config.Config]struct{}

	seq map[config.Category]int

	ignoreDuplicatedInterface bool
	inited                    atomic.Bool

	log zerolog.Logger
}

// bucket holds one category's entries keyed by id, with insertion order
// preserved for first-default-wins resolution.
type bucket struct {
	order []string
	byID  map[string]config.Config
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		buckets:      make(map[config.Category]*bucket),
		serviceIndex: make(map[string]config.UniqueKeyed),
		warned:       make(map[config.Config]struct{}),
		seq:          make(map[config.Category]int),
		log:          logging.GetLogger("registry"),
	}
}

// Add registers cfg. When an equivalent entry is already present, the
// existing entry is returned with wasDuplicate=true and the store is
// left untouched; the first registration for a given identity always
// wins. A genuine conflict between non-equal interface-bound entries
// sharing a unique key fails with ErrConfigConflict unless duplicate
// tolerance was enabled at initialization.
func (r *Registry) Add(cfg config.Config) (config.Config, bool, error) {
	if cfg == nil {
		return nil, false, cerrors.New(cerrors.ErrInvalidInput, "config must not be nil")
	}
	cat := cfg.Tag()
	if !cat.Valid() {
		return nil, false, cerrors.Newf(cerrors.ErrInvalidCategory, "unrecognized config category %q", cat)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.findDuplicate(cfg)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	b := r.bucket(cat)
	if cfg.ID() == "" {
		cfg.AssignID(r.nextID(cat, b))
	}
	id := cfg.ID()
	if _, taken := b.byID[id]; taken {
		return nil, false, cerrors.Newf(cerrors.ErrAlreadyExists,
			"config id %q is already in use for category %s", id, cat)
	}

	b.byID[id] = cfg
	b.order = append(b.order, id)
	if keyed, ok := cfg.(config.UniqueKeyed); ok && cat == config.CategoryService {
		r.serviceIndex[keyed.UniqueKey()] = keyed
	}
	return cfg, false, nil
}

// AddAll registers every entry in turn, stopping at the first error.
func (r *Registry) AddAll(cfgs ...config.Config) error {
	for _, cfg := range cfgs {
		if _, _, err := r.Add(cfg); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the entry registered under (category, id).
func (r *Registry) Get(cat config.Category, id string) (config.Config, error) {
	if !cat.Valid() {
		return nil, cerrors.Newf(cerrors.ErrInvalidCategory, "unrecognized config category %q", cat)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.buckets[cat]; ok {
		if cfg, ok := b.byID[id]; ok {
			return cfg, nil
		}
	}
	return nil, cerrors.Newf(cerrors.ErrNotFound, "no %s config with id %q", cat, id)
}

// GetAll returns the category's entries in insertion order. An
// unpopulated category yields an empty slice.
func (r *Registry) GetAll(cat config.Category) ([]config.Config, error) {
	if !cat.Valid() {
		return nil, cerrors.Newf(cerrors.ErrInvalidCategory, "unrecognized config category %q", cat)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buckets[cat]
	if !ok {
		return nil, nil
	}
	out := make([]config.Config, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.byID[id])
	}
	return out, nil
}

// GetDefault returns the first inserted default-eligible entry of a
// single-default category. The second return reports whether one exists.
// Calling it on a multi-instance category is a programmer error.
func (r *Registry) GetDefault(cat config.Category) (config.Config, bool, error) {
	if !cat.Valid() {
		return nil, false, cerrors.Newf(cerrors.ErrInvalidCategory, "unrecognized config category %q", cat)
	}
	if !cat.SingleDefault() {
		return nil, false, cerrors.Newf(cerrors.ErrInvalidCategory,
			"category %s is multi-instance and has no default entry", cat)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.buckets[cat]; ok {
		for _, id := range b.order {
			if cfg := b.byID[id]; cfg.IsDefault() {
				return cfg, true, nil
			}
		}
	}
	return nil, false, nil
}

// RefreshAll re-reads every stored entry from the property source:
// providers and consumers first, then references, then services.
func (r *Registry) RefreshAll(src config.PropertySource) error {
	var errs []error
	for _, cat := range []config.Category{
		config.CategoryProvider,
		config.CategoryConsumer,
		config.CategoryReference,
		config.CategoryService,
	} {
		cfgs, err := r.GetAll(cat)
		if err != nil {
			return err
		}
		for _, cfg := range cfgs {
			if err := cfg.Refresh(src); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Clear atomically empties every bucket and the service index. The
// registry stays usable afterwards; the initialization gate is not
// re-armed.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buckets = make(map[config.Category]*bucket)
	r.serviceIndex = make(map[string]config.UniqueKeyed)
	r.warned = make(map[config.Config]struct{})
	r.seq = make(map[config.Category]int)
}

func (r *Registry) bucket(cat config.Category) *bucket {
	b, ok := r.buckets[cat]
	if !ok {
		b = &bucket{byID: make(map[string]config.Config)}
		r.buckets[cat] = b
	}
	return b
}

// nextID assigns a deterministic fallback id from the category and a
// per-category counter, skipping ids already taken by explicit entries.
func (r *Registry) nextID(cat config.Category, b *bucket) string {
	for {
		r.seq[cat]++
		id := fmt.Sprintf("%s#%d", cat, r.seq[cat])
		if _, taken := b.byID[id]; !taken {
			return id
		}
	}
}
