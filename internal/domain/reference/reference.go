package reference

import (
	"fmt"
	"sort"
)

// ShapeKind describes how the reference object projects in a photo.
type ShapeKind string

const (
	// Cylinder objects (cans) expose height and diameter.
	Cylinder ShapeKind = "cylinder"
	// Flat objects (paper, cards) expose height and width.
	Flat ShapeKind = "flat"
)

// IsValid checks if the shape kind is supported.
func (s ShapeKind) IsValid() bool {
	return s == Cylinder || s == Flat
}

// Object is a real-world item of known physical size (immutable value object).
type Object struct {
	id          string
	displayName string
	heightCm    float64
	widthCm     float64
	shape       ShapeKind
}

// New validates and creates a reference object.
func New(id, displayName string, heightCm, widthCm float64, shape ShapeKind) (Object, error) {
	if id == "" {
		return Object{}, fmt.Errorf("reference id is required")
	}
	if heightCm <= 0 || widthCm <= 0 {
		return Object{}, fmt.Errorf("reference %q: dimensions must be positive", id)
	}
	if !shape.IsValid() {
		return Object{}, fmt.Errorf("reference %q: invalid shape kind %q", id, shape)
	}
	if displayName == "" {
		displayName = id
	}
	return Object{
		id:          id,
		displayName: displayName,
		heightCm:    heightCm,
		widthCm:     widthCm,
		shape:       shape,
	}, nil
}

// ID returns the catalog key.
func (o Object) ID() string { return o.id }

// DisplayName returns the human-readable name.
func (o Object) DisplayName() string { return o.displayName }

// HeightCm returns the physical height.
func (o Object) HeightCm() float64 { return o.heightCm }

// WidthCm returns the physical width (diameter for cylinders).
func (o Object) WidthCm() float64 { return o.widthCm }

// Shape returns the shape kind.
func (o Object) Shape() ShapeKind { return o.shape }

// Catalog is the read-only reference-object table. Safe for concurrent readers.
type Catalog struct {
	byID map[string]Object
	ids  []string
}

// NewCatalog builds a catalog. Duplicate ids are rejected.
func NewCatalog(objects []Object) (*Catalog, error) {
	byID := make(map[string]Object, len(objects))
	ids := make([]string, 0, len(objects))
	for _, o := range objects {
		if _, dup := byID[o.id]; dup {
			return nil, fmt.Errorf("duplicate reference id %q", o.id)
		}
		byID[o.id] = o
		ids = append(ids, o.id)
	}
	sort.Strings(ids)
	return &Catalog{byID: byID, ids: ids}, nil
}

// Get looks up a reference object by id.
func (c *Catalog) Get(id string) (Object, bool) {
	o, ok := c.byID[id]
	return o, ok
}

// List returns all objects ordered by id.
func (c *Catalog) List() []Object {
	out := make([]Object, len(c.ids))
	for i, id := range c.ids {
		out[i] = c.byID[id]
	}
	return out
}
