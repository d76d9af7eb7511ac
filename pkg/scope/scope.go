// Package scope models the lifetime hierarchy the registry lives under:
// module-level scopes nested inside one application-level scope. A
// module scope owns one config registry and one module-scoped extension
// director, and notifies deploy listeners as it starts and stops.
package scope

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/confkit/confkit/pkg/extension"
	"github.com/confkit/confkit/pkg/logging"
	"github.com/confkit/confkit/pkg/props"
)

// State is a module scope's position in its lifecycle.
type State int32

const (
	StateCreated State = iota
	StateInitializing
	StateActive
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CapabilityDeployListener is the extension capability under which
// deploy listeners are discovered when a module starts.
const CapabilityDeployListener = "deploy.listener"

// DeployListener observes module deploy transitions. Listeners are
// invoked synchronously, in registration order, on the goroutine
// driving the transition; a panicking listener is logged and does not
// prevent later listeners from running.
type DeployListener interface {
	OnModuleStarted(m *Module)
	OnModuleStopped(m *Module)
}

// ModuleAware extensions receive their owning module scope when they
// are instantiated through a module's extension director.
type ModuleAware interface {
	SetModule(m *Module)
}

// Application is the application-level context owning the property
// environment, the root extension director and any number of module
// scopes.
type Application struct {
	env      *props.Accessor
	director *extension.Director

	mu      sync.Mutex
	modules []*Module

	log zerolog.Logger
}

// NewApplication creates an application scope over the given property
// environment. A nil environment means every property lookup misses.
func NewApplication(env *props.Accessor) *Application {
	if env == nil {
		env = props.New()
	}
	return &Application{
		env:      env,
		director: extension.NewDirector(nil, extension.ScopeApplication),
		log:      logging.GetLogger("scope"),
	}
}

// Environment returns the application's property accessor.
func (a *Application) Environment() *props.Accessor {
	return a.env
}

// Director returns the application-level extension director.
func (a *Application) Director() *extension.Director {
	return a.director
}

// NewModule establishes a new module scope under this application.
func (a *Application) NewModule() *Module {
	m := newModule(a)

	a.mu.Lock()
	a.modules = append(a.modules, m)
	a.mu.Unlock()

	return m
}

// Modules returns every module scope created under this application,
// including stopped ones.
func (a *Application) Modules() []*Module {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Module, len(a.modules))
	copy(out, a.modules)
	return out
}
