package props

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confkit/confkit/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	a, err := Load(Options{Defaults: map[string]interface{}{
		"config.ignore-duplicated-interface": "true",
		"provider.timeout":                   "3000",
	}})
	require.NoError(t, err)

	v, ok := a.Property("config.ignore-duplicated-interface")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok = a.Property("missing.key")
	assert.False(t, ok)
}

func TestLoadTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "confkit.toml")
	content := "[config]\nignore-duplicated-interface = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	a, err := Load(Options{File: path})
	require.NoError(t, err)

	v, ok := a.Property("config.ignore-duplicated-interface")
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "confkit.yaml")
	content := "provider:\n  timeout: 5000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	a, err := Load(Options{File: path})
	require.NoError(t, err)

	v, ok := a.Property("provider.timeout")
	assert.True(t, ok)
	assert.Equal(t, "5000", v)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(Options{File: "confkit.json"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrPropsParse))
}

func TestFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "confkit.toml")
	require.NoError(t, os.WriteFile(path, []byte("[provider]\ntimeout = 9000\n"), 0644))

	a, err := Load(Options{
		Defaults: map[string]interface{}{"provider.timeout": "3000"},
		File:     path,
	})
	require.NoError(t, err)

	v, _ := a.Property("provider.timeout")
	assert.Equal(t, "9000", v)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONFKIT_CONFIG_IGNORE-DUPLICATED-INTERFACE", "true")

	a, err := Load(Options{
		Defaults: map[string]interface{}{"config.ignore-duplicated-interface": "false"},
		Env:      true,
	})
	require.NoError(t, err)

	assert.True(t, a.Bool("config.ignore-duplicated-interface", false))
}

func TestBool(t *testing.T) {
	a, err := FromMap(map[string]interface{}{
		"flag.on":      "true",
		"flag.off":     "false",
		"flag.garbage": "not-a-bool",
	})
	require.NoError(t, err)

	assert.True(t, a.Bool("flag.on", false))
	assert.False(t, a.Bool("flag.off", true))
	assert.True(t, a.Bool("flag.garbage", true), "unparseable value falls back")
	assert.True(t, a.Bool("flag.unset", true), "unset key falls back")
}

func TestExportTOML(t *testing.T) {
	a, err := FromMap(map[string]interface{}{"config.scope": "module"})
	require.NoError(t, err)

	out, err := a.ExportTOML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "scope")
}

func TestNewIsEmpty(t *testing.T) {
	a := New()
	_, ok := a.Property("anything")
	assert.False(t, ok)
	assert.Empty(t, a.Keys())
}
