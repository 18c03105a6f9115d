package concept

import (
	"fmt"

	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
)

// FurnitureSpec describes one piece of furniture a concept asks for.
type FurnitureSpec struct {
	name          string
	size          dimension.Size
	styleKeywords []string
	materialTags  []string
	position      string
}

// NewFurnitureSpec validates and creates a FurnitureSpec.
// Size may be zero when the provider gave no estimate.
func NewFurnitureSpec(name string, size dimension.Size, styleKeywords, materialTags []string, position string) (FurnitureSpec, error) {
	if name == "" {
		return FurnitureSpec{}, fmt.Errorf("furniture name is required")
	}
	if !size.IsZero() && !size.Valid() {
		return FurnitureSpec{}, fmt.Errorf("furniture %q: estimated dimensions must be positive", name)
	}
	return FurnitureSpec{
		name:          name,
		size:          size,
		styleKeywords: append([]string(nil), styleKeywords...),
		materialTags:  append([]string(nil), materialTags...),
		position:      position,
	}, nil
}

// Name returns the furniture name, used as the catalog category.
func (f FurnitureSpec) Name() string { return f.name }

// Size returns the estimated dimensions (zero when unknown).
func (f FurnitureSpec) Size() dimension.Size { return f.size }

// StyleKeywords returns the style vocabulary.
func (f FurnitureSpec) StyleKeywords() []string { return f.styleKeywords }

// MaterialTags returns the material vocabulary.
func (f FurnitureSpec) MaterialTags() []string { return f.materialTags }

// Position returns where the item goes in the room.
func (f FurnitureSpec) Position() string { return f.position }

// Keywords returns style keywords followed by material tags.
func (f FurnitureSpec) Keywords() []string {
	out := make([]string, 0, len(f.styleKeywords)+len(f.materialTags))
	out = append(out, f.styleKeywords...)
	return append(out, f.materialTags...)
}

// Concept is one proposed replacement design.
type Concept struct {
	id              string
	name            string
	description     string
	editInstruction string
	targetItems     []FurnitureSpec
}

// New validates and creates a Concept.
func New(id, name, description, editInstruction string, targetItems []FurnitureSpec) (Concept, error) {
	if id == "" {
		return Concept{}, fmt.Errorf("concept id is required")
	}
	if name == "" {
		return Concept{}, fmt.Errorf("concept %q: name is required", id)
	}
	if editInstruction == "" {
		return Concept{}, fmt.Errorf("concept %q: edit instruction is required", id)
	}
	return Concept{
		id:              id,
		name:            name,
		description:     description,
		editInstruction: editInstruction,
		targetItems:     append([]FurnitureSpec(nil), targetItems...),
	}, nil
}

// ID returns the concept identifier.
func (c Concept) ID() string { return c.id }

// Name returns the concept theme name.
func (c Concept) Name() string { return c.name }

// Description returns the concept description.
func (c Concept) Description() string { return c.description }

// EditInstruction returns the image-edit instruction for rendering.
func (c Concept) EditInstruction() string { return c.editInstruction }

// TargetItems returns the furniture the concept asks for.
func (c Concept) TargetItems() []FurnitureSpec { return c.targetItems }
