// Package props provides the flat key-value property source consumed by
// scopes and registries. Properties are layered: programmatic defaults,
// then an optional TOML or YAML property file, then environment variable
// overrides. Lookup is by dot-delimited key, e.g.
// "confkit.config.ignore-duplicated-interface".
package props

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/confkit/confkit/pkg/errors"
)

// EnvPrefix is the prefix for environment variable overrides.
// CONFKIT_CONFIG_FOO maps to the key "config.foo".
const EnvPrefix = "CONFKIT_"

// Accessor is an immutable view over layered flat properties.
type Accessor struct {
	k *koanf.Koanf
}

// Options controls which layers are loaded into an Accessor.
type Options struct {
	// Defaults are programmatic defaults, loaded first.
	Defaults map[string]interface{}
	// File is an optional path to a .toml, .yaml or .yml property file.
	File string
	// Env enables environment variable overrides with EnvPrefix.
	Env bool
}

// Load builds an Accessor from the configured layers. Later layers
// override earlier ones key by key.
func Load(opts Options) (*Accessor, error) {
	k := koanf.New(".")

	if opts.Defaults != nil {
		if err := k.Load(confmap.Provider(opts.Defaults, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrPropsLoad, "failed to load default properties")
		}
	}

	if opts.File != "" {
		parser, err := parserFor(opts.File)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(opts.File), parser); err != nil {
			return nil, errors.Wrapf(err, errors.ErrPropsLoad, "failed to load properties from %s", opts.File)
		}
	}

	if opts.Env {
		err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
			return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
		}), nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrPropsLoad, "failed to load environment properties")
		}
	}

	return &Accessor{k: k}, nil
}

// New returns an Accessor with no properties. Every lookup misses.
func New() *Accessor {
	return &Accessor{k: koanf.New(".")}
}

// FromMap returns an Accessor backed by the given flat map.
func FromMap(values map[string]interface{}) (*Accessor, error) {
	return Load(Options{Defaults: values})
}

// Property returns the string value for key, and whether key is set.
func (a *Accessor) Property(key string) (string, bool) {
	if !a.k.Exists(key) {
		return "", false
	}
	return a.k.String(key), true
}

// Bool returns the boolean value for key, or fallback when the key is
// unset or not parseable as a bool.
func (a *Accessor) Bool(key string, fallback bool) bool {
	raw, ok := a.Property(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// Keys returns all property keys currently set.
func (a *Accessor) Keys() []string {
	return a.k.Keys()
}

// ExportTOML renders the effective properties as a TOML document,
// useful for debugging which layers won.
func (a *Accessor) ExportTOML() ([]byte, error) {
	out, err := gotoml.Marshal(a.k.Raw())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPropsParse, "failed to render properties as TOML")
	}
	return out, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch filepath.Ext(path) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, errors.Newf(errors.ErrPropsParse, "unsupported property file format: %s", path)
	}
}
