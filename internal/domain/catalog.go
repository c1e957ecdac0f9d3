package domain

// CatalogItem is the view of a product the pricing and targeting paths
// need. Variants carry their parent's ID so membership tests run against
// the canonical product.
type CatalogItem struct {
	ID          int64   `json:"id"`
	ParentID    int64   `json:"parent_id,omitempty"`
	CategoryIDs []int64 `json:"category_ids,omitempty"`
	TagIDs      []int64 `json:"tag_ids,omitempty"`
	OnSale      bool    `json:"on_sale"`
}

// CanonicalID returns the parent ID for variants, the item's own ID
// otherwise.
func (i CatalogItem) CanonicalID() int64 {
	if i.ParentID > 0 {
		return i.ParentID
	}
	return i.ID
}

// Viewer describes who is requesting a price, for condition evaluation.
type Viewer struct {
	IsAnonymous bool     `json:"is_anonymous"`
	Roles       []string `json:"roles,omitempty"`
}

// HasRole reports whether the viewer holds the given role.
func (v Viewer) HasRole(role string) bool {
	for _, r := range v.Roles {
		if r == role {
			return true
		}
	}
	return false
}
