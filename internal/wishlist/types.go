package wishlist

import (
	"github.com/google/uuid"

	products "github.com/angelmondragon/wishlist-backend/internal/products"
)

// Outcome is the closed result of a wishlist mutation. Add yields Added,
// AlreadyPresent, Denied or ProductNotFound; remove yields Removed, NotPresent
// or Denied.
type Outcome int

const (
	Added Outcome = iota + 1
	AlreadyPresent
	Removed
	NotPresent
	Denied
	ProductNotFound
)

var outcomeNames = map[Outcome]struct{ name, label string }{
	Added:           {"added", "ADDED TO WISHLIST"},
	AlreadyPresent:  {"already_present", "ALREADY IN WISHLIST"},
	Removed:         {"removed", "DELETED"},
	NotPresent:      {"not_present", "NOT IN WISHLIST"},
	Denied:          {"denied", "ACCESS DENIED"},
	ProductNotFound: {"product_not_found", "PRODUCT NOT FOUND"},
}

func (o Outcome) String() string {
	if n, ok := outcomeNames[o]; ok {
		return n.name
	}
	return "unknown"
}

// Label is the short UI text shown for the outcome.
func (o Outcome) Label() string {
	if n, ok := outcomeNames[o]; ok {
		return n.label
	}
	return "ERROR"
}

// WishlistView is the public wishlist of one login, in insertion order.
type WishlistView struct {
	Login      string      `json:"login"`
	Access     bool        `json:"access"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// WishlistProductsPage is one page of product cards from a wishlist.
type WishlistProductsPage struct {
	Login      string                    `json:"login"`
	Products   []products.ProductSummary `json:"products"`
	NextCursor string                    `json:"next_cursor,omitempty"`
}
