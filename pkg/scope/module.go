package scope

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/confkit/confkit/pkg/errors"
	"github.com/confkit/confkit/pkg/extension"
	"github.com/confkit/confkit/pkg/logging"
	"github.com/confkit/confkit/pkg/registry"
)

// Module is a module-level scope. It holds a non-owning back-reference
// to its application, a module-scoped extension director chained to the
// application's, and the module's config registry.
type Module struct {
	app      *Application
	director *extension.Director
	reg      *registry.Registry

	state atomic.Int32

	mu        sync.Mutex
	listeners []DeployListener

	log zerolog.Logger
}

func newModule(app *Application) *Module {
	m := &Module{
		app: app,
		reg: registry.New(),
		log: logging.GetLogger("module"),
	}
	m.director = extension.NewDirector(app.Director(), extension.ScopeModule)
	m.director.AddPostProcessor(moduleWiring{m})
	return m
}

// moduleWiring hands extensions created in this scope their owning module.
type moduleWiring struct {
	m *Module
}

func (w moduleWiring) PostProcess(instance interface{}, name string) interface{} {
	if aware, ok := instance.(ModuleAware); ok {
		aware.SetModule(w.m)
	}
	return instance
}

// Application returns the owning application scope.
func (m *Module) Application() *Application {
	return m.app
}

// Director returns the module-scoped extension director.
func (m *Module) Director() *extension.Director {
	return m.director
}

// Registry returns the module's config registry.
func (m *Module) Registry() *registry.Registry {
	return m.reg
}

// State returns the module's current lifecycle state.
func (m *Module) State() State {
	return State(m.state.Load())
}

// AddDeployListener registers a listener for this module's deploy
// transitions. Listeners fire in registration order.
func (m *Module) AddDeployListener(l DeployListener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Start brings the module up: it initializes the registry's policy
// settings from the application environment, discovers deploy listeners
// bound in the extension directory, enters the active state and fires
// OnModuleStarted. Starting a module that is not freshly created fails.
func (m *Module) Start() error {
	if !m.state.CompareAndSwap(int32(StateCreated), int32(StateInitializing)) {
		return errors.Newf(errors.ErrScopeTransition,
			"cannot start module in state %s", m.State())
	}

	m.reg.Initialize(m.app.Environment())
	m.discoverListeners()

	m.state.Store(int32(StateActive))
	m.log.Info().Msg("module started")
	m.dispatch(func(l DeployListener) { l.OnModuleStarted(m) })
	return nil
}

// Stop tears the module down: it fires OnModuleStopped, enters the
// terminal stopped state and clears the registry. A stopped module
// accepts no further registrations.
func (m *Module) Stop() error {
	if !m.state.CompareAndSwap(int32(StateActive), int32(StateStopping)) {
		return errors.Newf(errors.ErrScopeTransition,
			"cannot stop module in state %s", m.State())
	}

	m.dispatch(func(l DeployListener) { l.OnModuleStopped(m) })
	m.state.Store(int32(StateStopped))
	m.reg.Clear()
	m.log.Info().Msg("module stopped")
	return nil
}

// discoverListeners appends listeners bound under the deploy-listener
// capability, after any directly registered ones.
func (m *Module) discoverListeners() {
	found, err := m.director.ResolveAll(CapabilityDeployListener)
	if err != nil {
		m.log.Warn().Err(err).Msg("deploy listener discovery failed")
		return
	}
	for _, instance := range found {
		if l, ok := instance.(DeployListener); ok {
			m.AddDeployListener(l)
		}
	}
}

// dispatch fans an event out to every listener in order. A failing
// listener is isolated: its panic is logged and the loop continues.
func (m *Module) dispatch(event func(DeployListener)) {
	m.mu.Lock()
	listeners := make([]DeployListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for i, l := range listeners {
		m.notify(i, l, event)
	}
}

func (m *Module) notify(i int, l DeployListener, event func(DeployListener)) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error().Int("listener", i).Interface("panic", rec).
				Msg("deploy listener failed")
		}
	}()
	event(l)
}
