package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confkit/confkit/pkg/config"
	cerrors "github.com/confkit/confkit/pkg/errors"
)

// mapSource is a config.PropertySource backed by a plain map.
type mapSource map[string]string

func (m mapSource) Property(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func newService(group, iface, version, ref string) *config.ServiceConfig {
	return &config.ServiceConfig{
		InterfaceConfig: config.InterfaceConfig{Group: group, Interface: iface, Version: version},
		Ref:             ref,
	}
}

func newReference(group, iface, version string) *config.ReferenceConfig {
	return &config.ReferenceConfig{
		InterfaceConfig: config.InterfaceConfig{Group: group, Interface: iface, Version: version},
	}
}

func TestAddAssignsDeterministicIDs(t *testing.T) {
	r := New()

	p1 := &config.ProviderConfig{Timeout: 100}
	accepted, dup, err := r.Add(p1)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Same(t, p1, accepted)
	assert.Equal(t, "provider#1", p1.ID())

	p2 := &config.ProviderConfig{Timeout: 200}
	_, _, err = r.Add(p2)
	require.NoError(t, err)
	assert.Equal(t, "provider#2", p2.ID())

	got, err := r.Get(config.CategoryProvider, "provider#1")
	require.NoError(t, err)
	assert.Same(t, p1, got)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	r := New()

	_, _, err := r.Add(nil)
	assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrInvalidInput))
}

func TestIdempotentIdentityRegistration(t *testing.T) {
	r := New()
	svc := newService("g", "com.acme.Pay", "1.0", "payImpl")

	first, dup, err := r.Add(svc)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Same(t, svc, first)

	second, dup, err := r.Add(svc)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Same(t, svc, second)

	all, err := r.GetAll(config.CategoryService)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGet(t *testing.T) {
	r := New()
	p := &config.ProviderConfig{}
	p.SetID("p1")
	_, _, err := r.Add(p)
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		got, err := r.Get(config.CategoryProvider, "p1")
		require.NoError(t, err)
		assert.Same(t, p, got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := r.Get(config.CategoryProvider, "nope")
		assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrNotFound))
	})

	t.Run("invalid category", func(t *testing.T) {
		_, err := r.Get(config.Category("route"), "p1")
		assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrInvalidCategory))
	})
}

func TestGetAllPreservesInsertionOrder(t *testing.T) {
	r := New()
	var want []config.Config
	for i := 0; i < 5; i++ {
		c := &config.ConsumerConfig{Retries: i}
		c.SetID(fmt.Sprintf("c%d", i))
		_, _, err := r.Add(c)
		require.NoError(t, err)
		want = append(want, c)
	}

	got, err := r.GetAll(config.CategoryConsumer)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetAllEmptyCategory(t *testing.T) {
	r := New()
	got, err := r.GetAll(config.CategoryService)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDefaultResolutionOrder(t *testing.T) {
	r := New()
	p1 := &config.ProviderConfig{Timeout: 1}
	p2 := &config.ProviderConfig{Timeout: 2}
	p3 := &config.ProviderConfig{Timeout: 3}
	require.NoError(t, r.AddAll(p1, p2, p3))

	got, ok, err := r.GetDefault(config.CategoryProvider)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, p1, got)
}

func TestDefaultSkipsExplicitIDs(t *testing.T) {
	r := New()
	explicit := &config.ConsumerConfig{Retries: 1}
	explicit.SetID("mine")
	eligible := &config.ConsumerConfig{Retries: 2}
	require.NoError(t, r.AddAll(explicit, eligible))

	got, ok, err := r.GetDefault(config.CategoryConsumer)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, eligible, got)
}

func TestDefaultAbsent(t *testing.T) {
	r := New()
	explicit := &config.ProviderConfig{}
	explicit.SetID("p1")
	_, _, err := r.Add(explicit)
	require.NoError(t, err)

	_, ok, err := r.GetDefault(config.CategoryProvider)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultOnMultiInstanceCategory(t *testing.T) {
	r := New()
	_, _, err := r.GetDefault(config.CategoryService)
	assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrInvalidCategory))
}

func TestCategoryIsolation(t *testing.T) {
	r := New()
	svc := newService("g", "com.acme.Pay", "1.0", "payImpl")
	ref := newReference("g", "com.acme.Pay", "1.0")
	require.NoError(t, r.AddAll(svc, ref))

	services, err := r.GetAll(config.CategoryService)
	require.NoError(t, err)
	references, err := r.GetAll(config.CategoryReference)
	require.NoError(t, err)

	assert.Equal(t, []config.Config{svc}, services)
	assert.Equal(t, []config.Config{ref}, references)
}

func TestClearResetsState(t *testing.T) {
	r := New()
	svc := newService("g", "com.acme.Pay", "1.0", "payImpl")
	_, _, err := r.Add(svc)
	require.NoError(t, err)

	r.Clear()

	all, err := r.GetAll(config.CategoryService)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Same unique key as the pre-clear entry registers without conflict.
	again := newService("g", "com.acme.Pay", "1.0", "otherImpl")
	_, dup, err := r.Add(again)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestClearDoesNotRearmGate(t *testing.T) {
	r := New()
	r.Initialize(mapSource{})
	r.Clear()
	assert.True(t, r.Initialized())
}

func TestRefreshAll(t *testing.T) {
	r := New()
	p := &config.ProviderConfig{Timeout: 100}
	p.SetID("p1")
	s := newService("", "com.acme.Pay", "", "payImpl")
	s.SetID("pay")
	require.NoError(t, r.AddAll(p, s))

	src := mapSource{
		"confkit.providers.p1.timeout": "700",
		"confkit.services.pay.weight":  "3",
	}
	require.NoError(t, r.RefreshAll(src))

	assert.Equal(t, 700, p.Timeout)
	assert.Equal(t, 3, s.Weight)
}

func TestRefreshAllCollectsErrors(t *testing.T) {
	r := New()
	p := &config.ProviderConfig{}
	p.SetID("p1")
	c := &config.ConsumerConfig{Timeout: 5}
	c.SetID("c1")
	require.NoError(t, r.AddAll(p, c))

	err := r.RefreshAll(mapSource{
		"confkit.providers.p1.timeout": "nope",
		"confkit.consumers.c1.timeout": "42",
	})
	assert.Error(t, err)
	assert.Equal(t, 42, c.Timeout, "good entries still refresh")
}

func TestConcurrentAddsDistinctKeys(t *testing.T) {
	r := New()
	const n = 64

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc := newService("g", fmt.Sprintf("com.acme.Svc%d", i), "1.0", "impl")
			_, _, errs[i] = r.Add(svc)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "add %d", i)
	}
	all, err := r.GetAll(config.CategoryService)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestConcurrentAddsSameKeyOneWinner(t *testing.T) {
	r := New()
	const n = 32

	// All entries are field-equal, so every loser must receive the
	// winner back instead of an error.
	var wg sync.WaitGroup
	results := make([]config.Config, n)
	dups := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc := newService("g", "com.acme.Pay", "1.0", "payImpl")
			results[i], dups[i], errs[i] = r.Add(svc)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "add %d", i)
		if !dups[i] {
			winners++
		}
		assert.Same(t, results[0], results[i], "every call returns the single winner")
	}
	assert.Equal(t, 1, winners)

	all, err := r.GetAll(config.CategoryService)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
