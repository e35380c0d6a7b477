package pool

// Intner is the subset of a random source needed to pick from a Catalog.
type Intner interface {
	Intn(n int) int
}

// Catalog is a fixed set of identifiers filled once during setup.
// Picks do not remove entries, so it needs no locking.
type Catalog struct {
	ids []string
}

// NewCatalog copies ids into a Catalog, skipping empty entries.
func NewCatalog(ids []string) *Catalog {
	c := &Catalog{ids: make([]string, 0, len(ids))}
	for _, id := range ids {
		if id != "" {
			c.ids = append(c.ids, id)
		}
	}
	return c
}

// Pick returns a uniformly chosen identifier, or false if the catalog is empty.
func (c *Catalog) Pick(rnd Intner) (string, bool) {
	if c == nil || len(c.ids) == 0 {
		return "", false
	}
	if len(c.ids) == 1 || rnd == nil {
		return c.ids[0], true
	}
	return c.ids[rnd.Intn(len(c.ids))], true
}

// Len returns the number of identifiers in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// IDs returns a copy of the catalog contents.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.ids...)
}
