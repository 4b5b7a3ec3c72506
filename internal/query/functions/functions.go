// Package functions implements the aggregate/scalar function library
// callable from a query: count, avg/mean, min, max, median, mode, int,
// div, the date-part extractors, and the microsecond/millisecond scalers.
//
// The calling convention is fn(ctx, group, args...): every function
// receives the query's cancellation context, the full slice of records in
// its group, and its remaining arguments as plain strings (field names,
// mostly). Aggregate functions reduce the
// group to one Value; scalar functions resolve their argument against the
// group's first record and operate on that single value.
//
// Aggregate arithmetic (avg, min, max) folds each chunk to a partial via
// the parallel executor's reduce stage, then combines the partials,
// rather than looping the whole group in one goroutine.
package functions

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/mimecast/logrok/internal/errs"
	"github.com/mimecast/logrok/internal/pool"
	"github.com/mimecast/logrok/internal/record"
	"github.com/mimecast/logrok/internal/value"
)

// Spec describes one registered function: its arity and whether it is
// aggregate (reduces a group to a scalar) or scalar (operates on one row).
type Spec struct {
	Name      string
	Aggregate bool
	MinArgs   int
	MaxArgs   int // -1 means unbounded
	Call      func(ctx context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error)
}

var registry = map[string]*Spec{}

func register(s *Spec) {
	registry[s.Name] = s
}

// Lookup returns the Spec for a function name, or false if unregistered.
func Lookup(name string) (*Spec, bool) {
	s, ok := registry[name]
	return s, ok
}

// IsAggregate reports whether a registered function reduces its group to
// a scalar. Unregistered names report false; callers must check Lookup
// first.
func IsAggregate(name string) bool {
	s, ok := registry[name]
	return ok && s.Aggregate
}

func init() {
	register(&Spec{Name: "count", Aggregate: true, MinArgs: 0, MaxArgs: 1, Call: callCount})
	register(&Spec{Name: "avg", Aggregate: true, MinArgs: 1, MaxArgs: 1, Call: callAvg})
	register(&Spec{Name: "mean", Aggregate: true, MinArgs: 1, MaxArgs: 1, Call: callAvg})
	register(&Spec{Name: "min", Aggregate: true, MinArgs: 1, MaxArgs: 1, Call: callMin})
	register(&Spec{Name: "max", Aggregate: true, MinArgs: 1, MaxArgs: 1, Call: callMax})
	register(&Spec{Name: "median", Aggregate: true, MinArgs: 1, MaxArgs: 1, Call: callMedian})
	register(&Spec{Name: "mode", Aggregate: true, MinArgs: 1, MaxArgs: 2, Call: callMode})

	register(&Spec{Name: "int", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: callInt})
	register(&Spec{Name: "div", Aggregate: false, MinArgs: 2, MaxArgs: 2, Call: callDiv})
	register(&Spec{Name: "year", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: dateParter(0, 4)})
	register(&Spec{Name: "month", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: dateParter(4, 2)})
	register(&Spec{Name: "day", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: dateParter(6, 2)})
	register(&Spec{Name: "hour", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: dateParter(8, 2)})
	register(&Spec{Name: "minute", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: dateParter(10, 2)})
	register(&Spec{Name: "second", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: dateParter(12, 2)})
	register(&Spec{Name: "us_to_ms", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: scaler(1000.0)})
	register(&Spec{Name: "ms_to_s", Aggregate: false, MinArgs: 1, MaxArgs: 1, Call: scaler(1000.0)})
}

// resolveArg resolves one function argument against a single record: if it
// names a schema field, its value is looked up on rec; otherwise the
// argument text is parsed as an integer literal, falling back to a raw
// string value. This covers both the common case (a field name) and a
// literal passed positionally (e.g. a k parameter).
func resolveArg(rec record.Record, schema *record.Schema, arg string) (value.Value, error) {
	if _, ok := schema.IndexOf(arg); ok {
		return rec.MustGet(arg), nil
	}
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return value.OfInt(n), nil
	}
	return value.OfString(arg), nil
}

func columnValues(group []record.Record, schema *record.Schema, column string) ([]int64, error) {
	if _, ok := schema.IndexOf(column); !ok {
		return nil, errs.NewSemanticError(column, "unknown column")
	}
	vals := make([]int64, 0, len(group))
	for _, rec := range group {
		v := rec.MustGet(column)
		n, ok := v.Int64()
		if !ok {
			return nil, errs.NewSemanticError(column, fmt.Sprintf("value %q is not integer-coercible", v.String()))
		}
		vals = append(vals, n)
	}
	return vals, nil
}

func callCount(_ context.Context, group []record.Record, _ *record.Schema, _ []string) (value.Value, error) {
	return value.OfInt(int64(len(group))), nil
}

// callAvg computes the integer-coerced arithmetic mean via a reduce
// stage that folds each chunk to a (sum, n) pair, then divides the total
// sum by the total count, using truncating integer division.
func callAvg(ctx context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
	vals, err := columnValues(group, schema, args[0])
	if err != nil {
		return value.Value{}, err
	}
	if len(vals) == 0 {
		return value.OfInt(0), nil
	}

	type sumCount struct {
		sum int64
		n   int64
	}
	partials, err := pool.Reduce(ctx, vals, func(chunk []int64) sumCount {
		var sc sumCount
		for _, v := range chunk {
			sc.sum += v
			sc.n++
		}
		return sc
	}, pool.Options{})
	if err != nil {
		// The pool already classified the failure (cancel vs worker).
		return value.Value{}, err
	}

	var totalSum, totalN int64
	for _, p := range partials {
		totalSum += p.sum
		totalN += p.n
	}
	return value.OfInt(totalSum / totalN), nil
}

func callMin(ctx context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
	return extremum(ctx, group, schema, args[0], func(a, b int64) bool { return a < b })
}

func callMax(ctx context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
	return extremum(ctx, group, schema, args[0], func(a, b int64) bool { return a > b })
}

func extremum(ctx context.Context, group []record.Record, schema *record.Schema, column string, better func(a, b int64) bool) (value.Value, error) {
	vals, err := columnValues(group, schema, column)
	if err != nil {
		return value.Value{}, err
	}
	if len(vals) == 0 {
		return value.OfInt(0), nil
	}
	partials, err := pool.Reduce(ctx, vals, func(chunk []int64) int64 {
		best := chunk[0]
		for _, v := range chunk[1:] {
			if better(v, best) {
				best = v
			}
		}
		return best
	}, pool.Options{})
	if err != nil {
		return value.Value{}, err
	}
	best := partials[0]
	for _, v := range partials[1:] {
		if better(v, best) {
			best = v
		}
	}
	return value.OfInt(best), nil
}

// callMedian returns the lower-middle element of a sorted copy of the
// group's values; no averaging for even n.
func callMedian(_ context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
	vals, err := columnValues(group, schema, args[0])
	if err != nil {
		return value.Value{}, err
	}
	if len(vals) == 0 {
		return value.OfInt(0), nil
	}
	sorted := append([]int64(nil), vals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return value.OfInt(sorted[(len(sorted)-1)/2]), nil
}

// callMode returns the (k+1)-th most common value of the column, ranked
// by occurrence count and, for ties, by first appearance.
func callMode(_ context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
	if _, ok := schema.IndexOf(args[0]); !ok {
		return value.Value{}, errs.NewSemanticError(args[0], "unknown column")
	}
	k := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return value.Value{}, errs.NewSemanticError(args[0], "mode's k argument must be an integer")
		}
		k = n
	}

	type count struct {
		value string
		n     int
		first int
	}
	counts := map[string]*count{}
	var order []string
	for i, rec := range group {
		v := rec.MustGet(args[0])
		c, ok := counts[v.String()]
		if !ok {
			c = &count{value: v.String(), first: i}
			counts[v.String()] = c
			order = append(order, v.String())
		}
		c.n++
	}

	ranked := make([]*count, 0, len(order))
	for _, k := range order {
		ranked = append(ranked, counts[k])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].first < ranked[j].first
	})

	if k < 0 || k >= len(ranked) {
		return value.Value{}, errs.NewSemanticError(args[0], fmt.Sprintf("mode rank %d out of range for %d distinct values", k, len(ranked)))
	}
	return value.OfString(ranked[k].value), nil
}

func callInt(_ context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
	v, err := resolveArg(group[0], schema, args[0])
	if err != nil {
		return value.Value{}, err
	}
	n, ok := v.Int64()
	if !ok {
		return value.Value{}, errs.NewSemanticError(args[0], fmt.Sprintf("value %q is not integer-coercible", v.String()))
	}
	return value.OfInt(n), nil
}

// callDiv divides a by b: integer division if both are integral, else
// float.
func callDiv(_ context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
	a, err := resolveArg(group[0], schema, args[0])
	if err != nil {
		return value.Value{}, err
	}
	b, err := resolveArg(group[0], schema, args[1])
	if err != nil {
		return value.Value{}, err
	}
	ai, aok := a.Int64()
	bi, bok := b.Int64()
	if aok && bok {
		if bi == 0 {
			return value.Value{}, errs.NewSemanticError(args[1], "division by zero")
		}
		return value.OfInt(ai / bi), nil
	}
	af, aok := a.Float64()
	bf, bok := b.Float64()
	if !aok || !bok {
		return value.Value{}, errs.NewSemanticError(args[0], "div requires numeric operands")
	}
	if bf == 0 {
		return value.Value{}, errs.NewSemanticError(args[1], "division by zero")
	}
	return value.OfFloat(af / bf), nil
}

// dateParter extracts a fixed-width slice from a 14-char timestamp string
// (YYYYMMDDHHMMSS), coerced to integer.
func dateParter(offset, width int) func(context.Context, []record.Record, *record.Schema, []string) (value.Value, error) {
	return func(_ context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
		v, err := resolveArg(group[0], schema, args[0])
		if err != nil {
			return value.Value{}, err
		}
		s := v.String()
		if offset+width > len(s) {
			return value.Value{}, errs.NewSemanticError(args[0], fmt.Sprintf("value %q is too short for a 14-char timestamp", s))
		}
		n, parseErr := strconv.ParseInt(s[offset:offset+width], 10, 64)
		if parseErr != nil {
			return value.Value{}, errs.NewSemanticError(args[0], fmt.Sprintf("value %q is not a numeric timestamp part", s))
		}
		return value.OfInt(n), nil
	}
}

// scaler divides the resolved argument by a constant, producing a float
// value (e.g. microseconds to milliseconds).
func scaler(divisor float64) func(context.Context, []record.Record, *record.Schema, []string) (value.Value, error) {
	return func(_ context.Context, group []record.Record, schema *record.Schema, args []string) (value.Value, error) {
		v, err := resolveArg(group[0], schema, args[0])
		if err != nil {
			return value.Value{}, err
		}
		f, ok := v.Float64()
		if !ok {
			return value.Value{}, errs.NewSemanticError(args[0], fmt.Sprintf("value %q is not numeric", v.String()))
		}
		return value.OfFloat(f / divisor), nil
	}
}
