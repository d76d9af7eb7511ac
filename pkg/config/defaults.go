package config

import (
	"strconv"

	"github.com/confkit/confkit/pkg/errors"
)

// ProviderConfig carries module-wide defaults applied to every service
// export that does not override them.
type ProviderConfig struct {
	baseConfig

	// Timeout is the default invocation timeout in milliseconds.
	Timeout int
	// Threads is the size of the provider-side worker pool.
	Threads int
}

func (c *ProviderConfig) Tag() Category { return CategoryProvider }

func (c *ProviderConfig) Refresh(src PropertySource) error {
	if c.id == "" {
		return nil
	}
	if err := refreshInt(src, propKey(CategoryProvider, c.id, "timeout"), &c.Timeout); err != nil {
		return err
	}
	return refreshInt(src, propKey(CategoryProvider, c.id, "threads"), &c.Threads)
}

func (c *ProviderConfig) Equal(other Config) bool {
	o, ok := other.(*ProviderConfig)
	if !ok {
		return false
	}
	return c.Timeout == o.Timeout && c.Threads == o.Threads
}

func (c *ProviderConfig) String() string {
	return "<provider id=" + c.id + ">"
}

// ConsumerConfig carries module-wide defaults applied to every service
// reference that does not override them.
type ConsumerConfig struct {
	baseConfig

	// Timeout is the default invocation timeout in milliseconds.
	Timeout int
	// Retries is the default retry count for failed invocations.
	Retries int
}

func (c *ConsumerConfig) Tag() Category { return CategoryConsumer }

func (c *ConsumerConfig) Refresh(src PropertySource) error {
	if c.id == "" {
		return nil
	}
	if err := refreshInt(src, propKey(CategoryConsumer, c.id, "timeout"), &c.Timeout); err != nil {
		return err
	}
	return refreshInt(src, propKey(CategoryConsumer, c.id, "retries"), &c.Retries)
}

func (c *ConsumerConfig) Equal(other Config) bool {
	o, ok := other.(*ConsumerConfig)
	if !ok {
		return false
	}
	return c.Timeout == o.Timeout && c.Retries == o.Retries
}

func (c *ConsumerConfig) String() string {
	return "<consumer id=" + c.id + ">"
}

// refreshInt overwrites dst with the integer value at key, when set.
func refreshInt(src PropertySource, key string, dst *int) error {
	raw, ok := src.Property(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigRefresh, "property %s is not an integer", key)
	}
	*dst = v
	return nil
}
