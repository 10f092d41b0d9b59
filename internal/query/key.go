package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Class selects the TTL bucket a cached result belongs to.
type Class string

const (
	// ClassDictionary covers distinct-value lookups (case types, tones,
	// languages); these change rarely.
	ClassDictionary Class = "dict"
	// ClassListing covers paginated row listings.
	ClassListing Class = "rows"
	// ClassAggregate covers aggregate/statistics queries.
	ClassAggregate Class = "agg"
)

// Key identifies one logical query for caching: table, selected columns,
// canonicalized filters, order and pagination. Set-equal filter lists hash
// identically regardless of the order widgets added them.
type Key struct {
	Table   string
	Columns []string
	Filters []FilterSpec
	OrderBy []string
	Limit   uint64
	Offset  uint64
	Class   Class
}

// Fingerprint returns "<table>:<class>:<sha256>". The table prefix is what
// write-triggered invalidation matches on.
func (k Key) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "cols=%s\n", strings.Join(k.Columns, ","))
	for _, f := range Canonicalize(k.Filters) {
		fmt.Fprintf(h, "f=%s\n", f.canonical())
	}
	fmt.Fprintf(h, "order=%s\n", strings.Join(k.OrderBy, ","))
	fmt.Fprintf(h, "page=%d:%d\n", k.Limit, k.Offset)
	return fmt.Sprintf("%s:%s:%s", k.Table, k.Class, hex.EncodeToString(h.Sum(nil)))
}

// WithoutPagination strips the row-shaped parts of the key so counts cache
// independently of the page being viewed.
func (k Key) WithoutPagination() Key {
	k.Columns = nil
	k.OrderBy = nil
	k.Limit = 0
	k.Offset = 0
	return k
}
