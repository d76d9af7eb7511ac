package config

// Category is the kind of a configuration entry. It determines which
// duplicate policy and default-resolution rules apply in the registry.
type Category string

const (
	CategoryService   Category = "service"
	CategoryReference Category = "reference"
	CategoryProvider  Category = "provider"
	CategoryConsumer  Category = "consumer"
)

// Categories lists every supported category in a stable order.
func Categories() []Category {
	return []Category{CategoryService, CategoryReference, CategoryProvider, CategoryConsumer}
}

// Valid reports whether c is a supported category.
func (c Category) Valid() bool {
	switch c {
	case CategoryService, CategoryReference, CategoryProvider, CategoryConsumer:
		return true
	}
	return false
}

// InterfaceBound reports whether entries of this category target an
// interface and carry a derived unique key.
func (c Category) InterfaceBound() bool {
	return c == CategoryService || c == CategoryReference
}

// SingleDefault reports whether this category exposes a single default
// entry. Multi-instance categories (service, reference) do not.
func (c Category) SingleDefault() bool {
	return c == CategoryProvider || c == CategoryConsumer
}

func (c Category) String() string {
	return string(c)
}
