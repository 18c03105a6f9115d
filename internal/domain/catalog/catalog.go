package catalog

import "fmt"

// Catalog is the read-only product table. Items keep their load order.
type Catalog struct {
	items []Item
}

// NewCatalog builds a catalog. Duplicate ids are rejected.
func NewCatalog(items []Item) (*Catalog, error) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.id]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", it.id)
		}
		seen[it.id] = struct{}{}
	}
	return &Catalog{items: append([]Item(nil), items...)}, nil
}

// Items returns every item. The slice must not be modified.
func (c *Catalog) Items() []Item { return c.items }

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }
