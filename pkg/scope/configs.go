package scope

import (
	"strings"

	"github.com/confkit/confkit/pkg/config"
	"github.com/confkit/confkit/pkg/errors"
	"github.com/confkit/confkit/pkg/props"
)

// guard rejects registrations on a torn-down scope. The registry itself
// carries no stopped flag; the scope enforces that contract.
func (m *Module) guard() error {
	if m.State() == StateStopped {
		return errors.New(errors.ErrScopeStopped,
			"module scope is stopped and accepts no further registrations")
	}
	return nil
}

// AddService registers a service export.
func (m *Module) AddService(sc *config.ServiceConfig) (*config.ServiceConfig, bool, error) {
	if err := m.guard(); err != nil {
		return nil, false, err
	}
	accepted, dup, err := m.reg.Add(sc)
	if err != nil {
		return nil, false, err
	}
	return accepted.(*config.ServiceConfig), dup, nil
}

// AddServices registers service exports in order, stopping at the first error.
func (m *Module) AddServices(scs ...*config.ServiceConfig) error {
	for _, sc := range scs {
		if _, _, err := m.AddService(sc); err != nil {
			return err
		}
	}
	return nil
}

// GetService returns the service export registered under id.
func (m *Module) GetService(id string) (*config.ServiceConfig, error) {
	cfg, err := m.reg.Get(config.CategoryService, id)
	if err != nil {
		return nil, err
	}
	return cfg.(*config.ServiceConfig), nil
}

// Services returns every service export in insertion order.
func (m *Module) Services() []*config.ServiceConfig {
	cfgs, _ := m.reg.GetAll(config.CategoryService)
	out := make([]*config.ServiceConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, cfg.(*config.ServiceConfig))
	}
	return out
}

// AddReference registers a service reference.
func (m *Module) AddReference(rc *config.ReferenceConfig) (*config.ReferenceConfig, bool, error) {
	if err := m.guard(); err != nil {
		return nil, false, err
	}
	accepted, dup, err := m.reg.Add(rc)
	if err != nil {
		return nil, false, err
	}
	return accepted.(*config.ReferenceConfig), dup, nil
}

// AddReferences registers service references in order, stopping at the first error.
func (m *Module) AddReferences(rcs ...*config.ReferenceConfig) error {
	for _, rc := range rcs {
		if _, _, err := m.AddReference(rc); err != nil {
			return err
		}
	}
	return nil
}

// GetReference returns the service reference registered under id.
func (m *Module) GetReference(id string) (*config.ReferenceConfig, error) {
	cfg, err := m.reg.Get(config.CategoryReference, id)
	if err != nil {
		return nil, err
	}
	return cfg.(*config.ReferenceConfig), nil
}

// References returns every service reference in insertion order.
func (m *Module) References() []*config.ReferenceConfig {
	cfgs, _ := m.reg.GetAll(config.CategoryReference)
	out := make([]*config.ReferenceConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, cfg.(*config.ReferenceConfig))
	}
	return out
}

// AddProvider registers provider defaults.
func (m *Module) AddProvider(pc *config.ProviderConfig) (*config.ProviderConfig, bool, error) {
	if err := m.guard(); err != nil {
		return nil, false, err
	}
	accepted, dup, err := m.reg.Add(pc)
	if err != nil {
		return nil, false, err
	}
	return accepted.(*config.ProviderConfig), dup, nil
}

// AddProviders registers provider defaults in order, stopping at the first error.
func (m *Module) AddProviders(pcs ...*config.ProviderConfig) error {
	for _, pc := range pcs {
		if _, _, err := m.AddProvider(pc); err != nil {
			return err
		}
	}
	return nil
}

// GetProvider returns the provider config registered under id.
func (m *Module) GetProvider(id string) (*config.ProviderConfig, error) {
	cfg, err := m.reg.Get(config.CategoryProvider, id)
	if err != nil {
		return nil, err
	}
	return cfg.(*config.ProviderConfig), nil
}

// Providers returns every provider config in insertion order.
func (m *Module) Providers() []*config.ProviderConfig {
	cfgs, _ := m.reg.GetAll(config.CategoryProvider)
	out := make([]*config.ProviderConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, cfg.(*config.ProviderConfig))
	}
	return out
}

// GetDefaultProvider returns the first default-eligible provider config.
func (m *Module) GetDefaultProvider() (*config.ProviderConfig, bool) {
	cfg, ok, err := m.reg.GetDefault(config.CategoryProvider)
	if err != nil || !ok {
		return nil, false
	}
	return cfg.(*config.ProviderConfig), true
}

// AddConsumer registers consumer defaults.
func (m *Module) AddConsumer(cc *config.ConsumerConfig) (*config.ConsumerConfig, bool, error) {
	if err := m.guard(); err != nil {
		return nil, false, err
	}
	accepted, dup, err := m.reg.Add(cc)
	if err != nil {
		return nil, false, err
	}
	return accepted.(*config.ConsumerConfig), dup, nil
}

// AddConsumers registers consumer defaults in order, stopping at the first error.
func (m *Module) AddConsumers(ccs ...*config.ConsumerConfig) error {
	for _, cc := range ccs {
		if _, _, err := m.AddConsumer(cc); err != nil {
			return err
		}
	}
	return nil
}

// GetConsumer returns the consumer config registered under id.
func (m *Module) GetConsumer(id string) (*config.ConsumerConfig, error) {
	cfg, err := m.reg.Get(config.CategoryConsumer, id)
	if err != nil {
		return nil, err
	}
	return cfg.(*config.ConsumerConfig), nil
}

// Consumers returns every consumer config in insertion order.
func (m *Module) Consumers() []*config.ConsumerConfig {
	cfgs, _ := m.reg.GetAll(config.CategoryConsumer)
	out := make([]*config.ConsumerConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, cfg.(*config.ConsumerConfig))
	}
	return out
}

// GetDefaultConsumer returns the first default-eligible consumer config.
func (m *Module) GetDefaultConsumer() (*config.ConsumerConfig, bool) {
	cfg, ok, err := m.reg.GetDefault(config.CategoryConsumer)
	if err != nil || !ok {
		return nil, false
	}
	return cfg.(*config.ConsumerConfig), true
}

// RefreshAll re-reads every registered config from the application
// environment.
func (m *Module) RefreshAll() error {
	return m.reg.RefreshAll(m.app.Environment())
}

// LoadConfigs registers the provider and consumer entries declared in
// the application environment under confkit.providers.<id>.* and
// confkit.consumers.<id>.*, refreshing their fields from the same
// properties. Entries already registered under a declared id are left
// alone.
func (m *Module) LoadConfigs() error {
	env := m.app.Environment()

	for _, id := range declaredIDs(env, "confkit.providers.") {
		pc := &config.ProviderConfig{}
		pc.SetID(id)
		accepted, _, err := m.AddProvider(pc)
		if err != nil {
			return err
		}
		if err := accepted.Refresh(env); err != nil {
			return err
		}
	}

	for _, id := range declaredIDs(env, "confkit.consumers.") {
		cc := &config.ConsumerConfig{}
		cc.SetID(id)
		accepted, _, err := m.AddConsumer(cc)
		if err != nil {
			return err
		}
		if err := accepted.Refresh(env); err != nil {
			return err
		}
	}
	return nil
}

// declaredIDs extracts the distinct <id> segments of keys shaped
// <prefix><id>.<field>, in the order keys are reported.
func declaredIDs(env *props.Accessor, prefix string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, key := range env.Keys() {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		id, _, ok := strings.Cut(rest, ".")
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
