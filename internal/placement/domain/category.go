package domain

import "sort"

// CategoryKind decides which metadata variant an item carries and whether
// the category is slotted or count-managed.
type CategoryKind string

const (
	KindGeneral CategoryKind = "general"
	KindCoil    CategoryKind = "coil"
	KindPallet  CategoryKind = "pallet"
	KindKanban  CategoryKind = "kanban"
)

// Category describes how goods of one kind are stored.
type Category struct {
	Code           string       `json:"code" mapstructure:"code"`
	Name           string       `json:"name" mapstructure:"name"`
	Kind           CategoryKind `json:"kind" mapstructure:"kind"`
	GroundRequired bool         `json:"ground_required" mapstructure:"ground_required"`
	// MaxQuantity is the bin capacity of kanban categories.
	MaxQuantity int `json:"max_quantity,omitempty" mapstructure:"max_quantity"`
}

// CountManaged reports whether stock is tracked by a counter instead of slots.
func (c Category) CountManaged() bool {
	return c.Kind == KindKanban
}

// CategoryRegistry is the static set of categories known to the service.
type CategoryRegistry struct {
	byCode map[string]Category
}

// NewCategoryRegistry builds a registry. Later duplicates win.
func NewCategoryRegistry(categories ...Category) *CategoryRegistry {
	r := &CategoryRegistry{byCode: make(map[string]Category, len(categories))}
	for _, c := range categories {
		r.byCode[c.Code] = c
	}
	return r
}

// DefaultCategories is the registry used when none is configured.
func DefaultCategories() *CategoryRegistry {
	return NewCategoryRegistry(
		Category{Code: "general", Name: "General goods", Kind: KindGeneral},
		Category{Code: "steel-coil", Name: "Steel coil", Kind: KindCoil, GroundRequired: true},
		Category{Code: "pallet", Name: "Palletised goods", Kind: KindPallet, GroundRequired: true},
		Category{Code: "fasteners", Name: "Fasteners", Kind: KindKanban, MaxQuantity: 500},
		Category{Code: "consumables", Name: "Shop-floor consumables", Kind: KindKanban, MaxQuantity: 200},
	)
}

// Lookup returns the category or a validation error.
func (r *CategoryRegistry) Lookup(code string) (Category, error) {
	c, ok := r.byCode[code]
	if !ok {
		return Category{}, CategoryNotFound(code)
	}
	return c, nil
}

// All returns the categories ordered by code.
func (r *CategoryRegistry) All() []Category {
	out := make([]Category, 0, len(r.byCode))
	for _, c := range r.byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CountManaged returns the kanban categories ordered by code.
func (r *CategoryRegistry) CountManaged() []Category {
	var out []Category
	for _, c := range r.All() {
		if c.CountManaged() {
			out = append(out, c)
		}
	}
	return out
}
