// Package extension provides the scope-chained directory used to
// resolve named implementations of a capability. A module-scoped
// director checks its local bindings first and falls back to its
// parent, application-scoped director.
package extension

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/confkit/confkit/pkg/errors"
	"github.com/confkit/confkit/pkg/logging"
)

// Scope names the level of the hierarchy a director belongs to.
type Scope string

const (
	ScopeApplication Scope = "application"
	ScopeModule      Scope = "module"
)

// Factory constructs a new extension instance.
type Factory func() interface{}

// PostProcessor is applied to every instance a director creates, before
// it is cached. It may return a replacement instance.
type PostProcessor interface {
	PostProcess(instance interface{}, name string) interface{}
}

// Director is a thread-safe, scope-chained extension directory.
// Instances are singletons per director: a factory runs at most once.
type Director struct {
	parent *Director
	scope  Scope

	mu        sync.RWMutex
	factories map[string]map[string]Factory
	order     map[string][]string
	instances map[string]map[string]interface{}
	post      []PostProcessor

	log zerolog.Logger
}

// NewDirector creates a director for the given scope, chained to parent.
// The application-level director passes a nil parent.
func NewDirector(parent *Director, scope Scope) *Director {
	return &Director{
		parent:    parent,
		scope:     scope,
		factories: make(map[string]map[string]Factory),
		order:     make(map[string][]string),
		instances: make(map[string]map[string]interface{}),
		log:       logging.GetLogger("extension"),
	}
}

// Scope returns the director's level in the hierarchy.
func (d *Director) Scope() Scope {
	return d.scope
}

// AddPostProcessor registers a post-processor for future instantiations.
func (d *Director) AddPostProcessor(p PostProcessor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.post = append(d.post, p)
}

// Register binds a named factory under a capability. Registering the
// same name twice in one director is an error; shadowing a parent
// binding is allowed.
func (d *Director) Register(capability, name string, factory Factory) error {
	if capability == "" || name == "" {
		return errors.New(errors.ErrInvalidInput, "capability and name must not be empty")
	}
	if factory == nil {
		return errors.New(errors.ErrInvalidInput, "factory must not be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	byName, ok := d.factories[capability]
	if !ok {
		byName = make(map[string]Factory)
		d.factories[capability] = byName
	}
	if _, exists := byName[name]; exists {
		return errors.Newf(errors.ErrAlreadyExists,
			"extension %q is already registered for capability %q", name, capability)
	}
	byName[name] = factory
	d.order[capability] = append(d.order[capability], name)
	return nil
}

// Resolve returns the named extension instance, instantiating it on
// first use. Lookup checks local bindings, then the parent chain.
func (d *Director) Resolve(capability, name string) (interface{}, error) {
	d.mu.Lock()
	if cached, ok := d.instances[capability][name]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	factory, ok := d.factories[capability][name]
	if !ok {
		d.mu.Unlock()
		if d.parent != nil {
			return d.parent.Resolve(capability, name)
		}
		return nil, errors.Newf(errors.ErrExtensionNotFound,
			"no extension %q registered for capability %q", name, capability)
	}

	instance := factory()
	for _, p := range d.post {
		instance = p.PostProcess(instance, name)
	}
	byName, ok := d.instances[capability]
	if !ok {
		byName = make(map[string]interface{})
		d.instances[capability] = byName
	}
	byName[name] = instance
	d.mu.Unlock()

	d.log.Debug().Str("capability", capability).Str("name", name).
		Str("scope", string(d.scope)).Msg("extension instantiated")
	return instance, nil
}

// Names returns the names bound under a capability across the whole
// chain: parent bindings first, then local ones, shadowed names listed
// once.
func (d *Director) Names(capability string) []string {
	var inherited []string
	if d.parent != nil {
		inherited = d.parent.Names(capability)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{}, len(inherited))
	out := make([]string, 0, len(inherited)+len(d.order[capability]))
	for _, name := range inherited {
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range d.order[capability] {
		if _, dup := seen[name]; !dup {
			out = append(out, name)
		}
	}
	return out
}

// ResolveAll resolves every binding of a capability across the chain,
// in the order reported by Names.
func (d *Director) ResolveAll(capability string) ([]interface{}, error) {
	names := d.Names(capability)
	out := make([]interface{}, 0, len(names))
	for _, name := range names {
		instance, err := d.Resolve(capability, name)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}
