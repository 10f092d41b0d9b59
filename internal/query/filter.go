// Package query turns UI filter state into safe, canonical store queries:
// filter compilation, cache-keyed execution and pagination arithmetic.
package query

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
)

// Op identifies one filter operator.
type Op string

const (
	OpEquality   Op = "eq"
	OpNotEqual   Op = "neq"
	OpMembership Op = "in"
	OpRange      Op = "range"
	OpTextSearch Op = "search"
	OpNullCheck  Op = "null"
)

// FilterSpec is one typed filtering condition, rebuilt per request from UI
// state. Distinct fields combine with AND; values of a Membership are OR;
// a Range is AND(gte, lte).
type FilterSpec struct {
	Field    string
	Op       Op
	Value    any      // Equality / NotEqual operand
	Values   []string // Membership set
	Low      any      // Range lower bound (inclusive), nil for open
	High     any      // Range upper bound, nil for open
	HighExcl bool     // Range: high bound is exclusive (<, not <=)
	Text     string   // TextSearch substring
	Fields   []string // TextSearch target columns (OR across them)
	Present  bool     // NullCheck: true = IS NOT NULL
}

func Equality(field string, value any) FilterSpec {
	return FilterSpec{Field: field, Op: OpEquality, Value: value}
}

// NotEqual mirrors the portal's "neq" predicate, used to exclude empty
// strings alongside a NullCheck.
func NotEqual(field string, value any) FilterSpec {
	return FilterSpec{Field: field, Op: OpNotEqual, Value: value}
}

func Membership(field string, values []string) FilterSpec {
	return FilterSpec{Field: field, Op: OpMembership, Values: values}
}

func Range(field string, low, high any) FilterSpec {
	return FilterSpec{Field: field, Op: OpRange, Low: low, High: high}
}

// HalfOpenRange matches low <= field < high. Adjacent time windows built
// this way never count a boundary row twice.
func HalfOpenRange(field string, low, high any) FilterSpec {
	return FilterSpec{Field: field, Op: OpRange, Low: low, High: high, HighExcl: true}
}

// QualityRange clamps both bounds to the score scale [0,100] before
// building the range.
func QualityRange(low, high int) FilterSpec {
	return Range("quality_score", clampScore(low), clampScore(high))
}

func TextSearch(text string, fields ...string) FilterSpec {
	return FilterSpec{Op: OpTextSearch, Text: text, Fields: fields}
}

func NullCheck(field string, present bool) FilterSpec {
	return FilterSpec{Field: field, Op: OpNullCheck, Present: present}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// likeEscaper escapes every character that PostgreSQL pattern matching (or
// the PostgREST or-filter syntax the portal historically spoke) would treat
// specially, so a user-supplied substring matches only itself.
var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
	`(`, `\(`,
	`)`, `\)`,
	`.`, `\.`,
	`,`, `\,`,
)

// EscapeSearchTerm makes a user substring literal inside a LIKE/ILIKE
// pattern. "100% (approved)" must never wildcard-match "1000xapproved".
func EscapeSearchTerm(term string) string {
	return likeEscaper.Replace(term)
}

// Canonicalize returns a copy of specs sorted into a construction-order
// independent form, so set-equal filter lists fingerprint identically.
func Canonicalize(specs []FilterSpec) []FilterSpec {
	out := make([]FilterSpec, len(specs))
	copy(out, specs)
	for i := range out {
		if out[i].Op == OpMembership {
			vals := make([]string, len(out[i].Values))
			copy(vals, out[i].Values)
			sort.Strings(vals)
			out[i].Values = vals
		}
		if out[i].Op == OpTextSearch {
			fields := make([]string, len(out[i].Fields))
			copy(fields, out[i].Fields)
			sort.Strings(fields)
			out[i].Fields = fields
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		if out[i].Op != out[j].Op {
			return out[i].Op < out[j].Op
		}
		return out[i].canonical() < out[j].canonical()
	})
	return out
}

// canonical is the stable encoding of one spec, used for sorting and for
// cache-key hashing.
func (f FilterSpec) canonical() string {
	var b strings.Builder
	b.WriteString(f.Field)
	b.WriteByte('|')
	b.WriteString(string(f.Op))
	b.WriteByte('|')
	switch f.Op {
	case OpEquality, OpNotEqual:
		fmt.Fprintf(&b, "%v", f.Value)
	case OpMembership:
		b.WriteString(strings.Join(f.Values, ","))
	case OpRange:
		closing := "]"
		if f.HighExcl {
			closing = ")"
		}
		fmt.Fprintf(&b, "%v..%v%s", f.Low, f.High, closing)
	case OpTextSearch:
		b.WriteString(strings.Join(f.Fields, ","))
		b.WriteByte('|')
		b.WriteString(f.Text)
	case OpNullCheck:
		fmt.Fprintf(&b, "%t", f.Present)
	}
	return b.String()
}

// Validate is the strict entry point used at the request boundary: it
// rejects explicitly empty multiselects and inverted ranges before any
// query is attempted.
func Validate(specs []FilterSpec) error {
	for _, f := range specs {
		switch f.Op {
		case OpMembership:
			if len(f.Values) == 0 {
				return fmt.Errorf("%s: %w", f.Field, models.ErrEmptyMembership)
			}
		case OpRange:
			if err := checkRange(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// Compile turns a filter set into concrete predicates for the store. An
// empty Membership compiles to match-nothing, never match-everything; an
// inverted Range fails with ErrFilterOutOfRange.
func Compile(specs []FilterSpec) ([]sq.Sqlizer, error) {
	predicates := make([]sq.Sqlizer, 0, len(specs))
	for _, f := range Canonicalize(specs) {
		pred, err := f.compile()
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, pred...)
	}
	return predicates, nil
}

func (f FilterSpec) compile() ([]sq.Sqlizer, error) {
	switch f.Op {
	case OpEquality:
		return []sq.Sqlizer{sq.Eq{f.Field: f.Value}}, nil

	case OpNotEqual:
		return []sq.Sqlizer{sq.NotEq{f.Field: f.Value}}, nil

	case OpMembership:
		if len(f.Values) == 0 {
			// An empty multiselect matches nothing rather than
			// silently matching everything.
			return []sq.Sqlizer{sq.Expr("1 = 0")}, nil
		}
		return []sq.Sqlizer{sq.Eq{f.Field: f.Values}}, nil

	case OpRange:
		if err := checkRange(f); err != nil {
			return nil, err
		}
		preds := make([]sq.Sqlizer, 0, 2)
		if f.Low != nil {
			preds = append(preds, sq.GtOrEq{f.Field: f.Low})
		}
		if f.High != nil {
			if f.HighExcl {
				preds = append(preds, sq.Lt{f.Field: f.High})
			} else {
				preds = append(preds, sq.LtOrEq{f.Field: f.High})
			}
		}
		return preds, nil

	case OpTextSearch:
		if f.Text == "" || len(f.Fields) == 0 {
			return nil, nil
		}
		pattern := "%" + EscapeSearchTerm(f.Text) + "%"
		or := make(sq.Or, 0, len(f.Fields))
		for _, field := range f.Fields {
			or = append(or, sq.ILike{field: pattern})
		}
		return []sq.Sqlizer{or}, nil

	case OpNullCheck:
		if f.Present {
			return []sq.Sqlizer{sq.NotEq{f.Field: nil}}, nil
		}
		return []sq.Sqlizer{sq.Eq{f.Field: nil}}, nil

	default:
		return nil, fmt.Errorf("%w: unknown operator %q", models.ErrBadFilter, f.Op)
	}
}

func checkRange(f FilterSpec) error {
	if f.Low == nil || f.High == nil {
		return nil
	}
	low, lowOK := toFloat(f.Low)
	high, highOK := toFloat(f.High)
	if lowOK && highOK {
		if low > high {
			return fmt.Errorf("%s: %w", f.Field, models.ErrFilterOutOfRange)
		}
		return nil
	}
	// Non-numeric bounds (ISO dates) compare lexicographically.
	ls, lok := f.Low.(string)
	hs, hok := f.High.(string)
	if lok && hok && ls > hs {
		return fmt.Errorf("%s: %w", f.Field, models.ErrFilterOutOfRange)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
