// Package config defines the typed configuration entries stored in a
// module registry: service exports, service references, provider
// defaults and consumer defaults.
package config

// PropertySource is a flat string-keyed property lookup, the external
// configuration accessor entries refresh from.
type PropertySource interface {
	Property(key string) (string, bool)
}

// Config is a configuration entry belonging to exactly one category.
type Config interface {
	// Tag returns the entry's category.
	Tag() Category

	// ID returns the entry's identifier, empty until one is set or assigned.
	ID() string

	// SetID sets a user-supplied identifier. An entry with a
	// user-supplied id is not eligible to be its category's default.
	SetID(id string)

	// AssignID sets a registry-generated fallback identifier. The entry
	// stays eligible to be its category's default.
	AssignID(id string)

	// IsDefault reports whether the entry is eligible to be the default
	// entry for its category.
	IsDefault() bool

	// Refresh re-reads overridable fields from the property source.
	Refresh(src PropertySource) error

	// Equal reports field-for-field equality with another entry.
	// Identifiers are excluded: two entries describing the same thing
	// under different ids are still equal.
	Equal(other Config) bool
}

// UniqueKeyed is implemented by interface-bound entries that carry a
// derived duplicate-detection key.
type UniqueKeyed interface {
	Config
	UniqueKey() string
}

// baseConfig carries the identity fields shared by every entry.
type baseConfig struct {
	id        string
	generated bool
}

func (b *baseConfig) ID() string { return b.id }

func (b *baseConfig) SetID(id string) {
	b.id = id
	b.generated = false
}

func (b *baseConfig) AssignID(id string) {
	b.id = id
	b.generated = true
}

func (b *baseConfig) IsDefault() bool {
	return b.id == "" || b.generated
}

// propKey builds the flat property key for a per-entry field override,
// e.g. "confkit.providers.p1.timeout".
func propKey(cat Category, id, field string) string {
	return "confkit." + string(cat) + "s." + id + "." + field
}
