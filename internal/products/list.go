package product

// ListProductsInput captures the catalog browse request.
type ListProductsInput struct {
	CategorySlug string
	Query        string
	Filters      []Filter
	Cursor       string
	Limit        int
}
