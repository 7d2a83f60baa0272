package product

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FilterKind tags the variant held by a Filter.
type FilterKind int

const (
	ColorEquals FilterKind = iota + 1
	PriceMin
	PriceMax
	HasSize
)

// Filter is one catalog constraint. Only the field matching Kind is meaningful.
type Filter struct {
	Kind  FilterKind
	Color string
	Price decimal.Decimal
	Size  string
}

// filterParams lists the query parameters in the order filters are applied.
var filterParams = []struct {
	name  string
	parse func(string) (Filter, bool)
}{
	{"color", func(v string) (Filter, bool) { return Filter{Kind: ColorEquals, Color: v}, true }},
	{"min_price", func(v string) (Filter, bool) { return parsePriceFilter(PriceMin, v) }},
	{"max_price", func(v string) (Filter, bool) { return parsePriceFilter(PriceMax, v) }},
	{"size", func(v string) (Filter, bool) { return Filter{Kind: HasSize, Size: v}, true }},
}

// ParseFilters reads color, min_price, max_price and size from the query.
// Empty or unparsable values are skipped.
func ParseFilters(values url.Values) []Filter {
	var filters []Filter
	for _, param := range filterParams {
		raw := strings.TrimSpace(values.Get(param.name))
		if raw == "" {
			continue
		}
		if f, ok := param.parse(raw); ok {
			filters = append(filters, f)
		}
	}
	return filters
}

func parsePriceFilter(kind FilterKind, raw string) (Filter, bool) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return Filter{}, false
	}
	return Filter{Kind: kind, Price: price}, true
}

// applyFilters narrows a query over "products p".
func applyFilters(qb *gorm.DB, filters []Filter) *gorm.DB {
	for _, f := range filters {
		switch f.Kind {
		case ColorEquals:
			qb = qb.Where("LOWER(p.color) = LOWER(?)", f.Color)
		case PriceMin:
			qb = qb.Where("p.price >= ?", f.Price)
		case PriceMax:
			qb = qb.Where("p.price <= ?", f.Price)
		case HasSize:
			qb = qb.Where(
				"EXISTS (SELECT 1 FROM product_sizes ps JOIN sizes s ON s.id = ps.size_id WHERE ps.product_id = p.id AND s.name = ?)",
				f.Size,
			)
		}
	}
	return qb
}
