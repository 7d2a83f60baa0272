package product

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	values := url.Values{}
	values.Set("size", "42")
	values.Set("color", " Black ")
	values.Set("min_price", "10")
	values.Set("max_price", "abc")

	filters := ParseFilters(values)
	require.Len(t, filters, 3)
	assert.Equal(t, ColorEquals, filters[0].Kind)
	assert.Equal(t, "Black", filters[0].Color)
	assert.Equal(t, PriceMin, filters[1].Kind)
	assert.Equal(t, "10", filters[1].Price.String())
	assert.Equal(t, HasSize, filters[2].Kind)
	assert.Equal(t, "42", filters[2].Size)
}

func TestParseFiltersEmpty(t *testing.T) {
	assert.Empty(t, ParseFilters(url.Values{"color": {""}, "other": {"x"}}))
}
