package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter such as a page
// limit or a recommendation count. A missing value yields def; anything else
// must fall within [lo, hi]. Failures carry the same field-keyed details as
// body validation, e.g. {"limit": "must be between 1 and 100"}.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be a whole number")
	}
	if n < lo || n > hi {
		return 0, queryError(key, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return n, nil
}

func queryError(key, problem string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").
		WithDetails(map[string]string{key: problem})
}
