package config

// keyPlaceholder stands in for an empty group or version inside a
// unique key, so "svc" with no group and no version keys as "-/svc:-".
const keyPlaceholder = "-"

// InterfaceConfig carries the fields shared by interface-bound entries
// (service exports and service references).
type InterfaceConfig struct {
	baseConfig

	// Group partitions multiple registrations of the same interface.
	Group string
	// Interface is the fully qualified name of the target interface.
	Interface string
	// Version distinguishes incompatible revisions of the interface.
	Version string
}

// UniqueKey derives the duplicate-detection key for the entry:
// group/interface:version, with empty parts normalized to "-".
func (c *InterfaceConfig) UniqueKey() string {
	group := c.Group
	if group == "" {
		group = keyPlaceholder
	}
	version := c.Version
	if version == "" {
		version = keyPlaceholder
	}
	return group + "/" + c.Interface + ":" + version
}

func (c *InterfaceConfig) refreshInterface(cat Category, src PropertySource) {
	if c.id == "" {
		return
	}
	if v, ok := src.Property(propKey(cat, c.id, "group")); ok {
		c.Group = v
	}
	if v, ok := src.Property(propKey(cat, c.id, "version")); ok {
		c.Version = v
	}
}

func (c *InterfaceConfig) equalInterface(o *InterfaceConfig) bool {
	return c.Group == o.Group && c.Interface == o.Interface && c.Version == o.Version
}

// ServiceConfig describes a service exported by the module.
type ServiceConfig struct {
	InterfaceConfig

	// Ref names the implementation backing the export.
	Ref string
	// Weight is the routing weight advertised for the export.
	Weight int
	// Delay is the export delay in milliseconds.
	Delay int
}

func (c *ServiceConfig) Tag() Category { return CategoryService }

func (c *ServiceConfig) Refresh(src PropertySource) error {
	c.refreshInterface(CategoryService, src)
	if c.id == "" {
		return nil
	}
	if err := refreshInt(src, propKey(CategoryService, c.id, "weight"), &c.Weight); err != nil {
		return err
	}
	return refreshInt(src, propKey(CategoryService, c.id, "delay"), &c.Delay)
}

func (c *ServiceConfig) Equal(other Config) bool {
	o, ok := other.(*ServiceConfig)
	if !ok {
		return false
	}
	return c.equalInterface(&o.InterfaceConfig) &&
		c.Ref == o.Ref && c.Weight == o.Weight && c.Delay == o.Delay
}

func (c *ServiceConfig) String() string {
	return "<service id=" + c.id + " key=" + c.UniqueKey() + " ref=" + c.Ref + ">"
}

// ReferenceConfig describes a remote service consumed by the module.
type ReferenceConfig struct {
	InterfaceConfig

	// Check requires the target to be available at reference time.
	Check bool
	// Timeout is the invocation timeout in milliseconds.
	Timeout int
}

func (c *ReferenceConfig) Tag() Category { return CategoryReference }

func (c *ReferenceConfig) Refresh(src PropertySource) error {
	c.refreshInterface(CategoryReference, src)
	if c.id == "" {
		return nil
	}
	if v, ok := src.Property(propKey(CategoryReference, c.id, "check")); ok {
		c.Check = v == "true"
	}
	return refreshInt(src, propKey(CategoryReference, c.id, "timeout"), &c.Timeout)
}

func (c *ReferenceConfig) Equal(other Config) bool {
	o, ok := other.(*ReferenceConfig)
	if !ok {
		return false
	}
	return c.equalInterface(&o.InterfaceConfig) &&
		c.Check == o.Check && c.Timeout == o.Timeout
}

func (c *ReferenceConfig) String() string {
	return "<reference id=" + c.id + " key=" + c.UniqueKey() + ">"
}
