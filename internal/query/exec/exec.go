// Package exec implements the query executor: it walks the typed query
// tree from package ast directly against a record.Dataset, in the stage
// order where -> group -> order -> project -> limit.
//
// The predicate tree is interpreted directly by a tree-walking evaluator
// over ast.Predicate/ast.Projection; no host code is ever compiled or
// evaluated against a row. The filter stage is itself map/reduced
// through package pool, same as the aggregate functions it calls into.
package exec

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mimecast/logrok/internal/errs"
	"github.com/mimecast/logrok/internal/pool"
	"github.com/mimecast/logrok/internal/query/ast"
	"github.com/mimecast/logrok/internal/query/functions"
	"github.com/mimecast/logrok/internal/record"
	"github.com/mimecast/logrok/internal/value"
)

// ExecCtx threads per-query execution state through the pipeline: a debug
// flag plus a trace ID for correlating log lines, and a memo cache so an
// aggregate referenced more than once within a statement (e.g. selected
// twice) is computed only once per group. It is constructed fresh per
// query rather than held as shared state.
type ExecCtx struct {
	Debug   bool
	TraceID string
	Log     *logrus.Entry
	// Workers overrides the pool's automatic worker count for the filter
	// stage (-j/--processes). Zero or negative means automatic.
	Workers int

	memo map[string]value.Value
}

// NewExecCtx builds a fresh per-query execution context. log may be nil,
// in which case debug tracing is silently skipped.
func NewExecCtx(debug bool, log *logrus.Logger) *ExecCtx {
	id := uuid.NewString()
	ectx := &ExecCtx{
		Debug:   debug,
		TraceID: id,
		memo:    make(map[string]value.Value),
	}
	if log != nil {
		ectx.Log = log.WithField("trace_id", id)
	}
	return ectx
}

// Row is one output row: one value per output column, in Result.Columns
// order.
type Row struct {
	Values []value.Value
}

// Result is the executor's output: a column header list plus the rows
// shaped by it.
type Result struct {
	Columns []string
	Rows    []Row
}

// Execute runs stmt against ds and returns the shaped result.
func Execute(ctx context.Context, ds *record.Dataset, stmt *ast.Statement, ectx *ExecCtx) (*Result, error) {
	if ectx == nil {
		ectx = &ExecCtx{memo: make(map[string]value.Value)}
	}
	if ectx.memo == nil {
		ectx.memo = make(map[string]value.Value)
	}

	if ectx.Debug && ectx.Log != nil {
		ectx.Log.Debugf("executing statement: %s", stmt.RawQuery)
	}

	rows := ds.Records
	if stmt.Where != nil {
		filtered, err := filterRows(ctx, rows, stmt.Where, ectx.Workers)
		if err != nil {
			return nil, err
		}
		rows = filtered
	}

	hasAgg := hasAggregateProjection(stmt.Fields)
	selectStar := len(stmt.Fields) == 1 && stmt.Fields[0].Kind == ast.ProjStar

	if selectStar && (hasAgg || len(stmt.GroupBy) > 0) {
		return nil, errs.NewSemanticError("*", "select * cannot be combined with an aggregate or group by")
	}

	// A non-aggregate field mixed into an aggregate projection must be a
	// grouping key; with no GROUP BY at all there is no key for it to be.
	if hasAgg || len(stmt.GroupBy) > 0 {
		if err := validateGroupByProjection(stmt.Fields, stmt.GroupBy); err != nil {
			return nil, err
		}
	}

	groups, err := buildGroups(ds.Schema, rows, stmt.GroupBy, hasAgg)
	if err != nil {
		return nil, err
	}

	if stmt.OrderBy != nil {
		if err := sortGroups(groups, stmt.OrderBy); err != nil {
			return nil, err
		}
	}

	result, err := project(ctx, ds.Schema, groups, stmt.Fields, ectx)
	if err != nil {
		return nil, err
	}

	if stmt.Limit != nil {
		result.Rows = applyLimit(result.Rows, *stmt.Limit)
	}

	return result, nil
}

// filterRows runs the where-predicate over every row through the pool,
// the same way the aggregate functions fold their groups. A predicate error (e.g.
// an unknown field) aborts the whole filter rather than dropping just the
// offending row: a query either returns a complete table or an error,
// never a partial result silently missing rows that failed to evaluate.
func filterRows(ctx context.Context, rows []record.Record, where ast.Predicate, workers int) ([]record.Record, error) {
	var mu sync.Mutex
	var firstErr error
	out, err := pool.Map(ctx, rows, func(chunk []record.Record) []record.Record {
		var matched []record.Record
		for _, rec := range chunk {
			ok, evalErr := evalPredicate(rec, where)
			if evalErr != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = evalErr
				}
				mu.Unlock()
				continue
			}
			if ok {
				matched = append(matched, rec)
			}
		}
		return matched
	}, pool.Options{Workers: workers})
	if err != nil {
		// The pool already classified the failure (cancel vs worker).
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func evalPredicate(rec record.Record, p ast.Predicate) (bool, error) {
	switch pr := p.(type) {
	case ast.Compare:
		left, err := resolveOperand(rec, pr.Left)
		if err != nil {
			return false, err
		}
		right, err := resolveOperand(rec, pr.Right)
		if err != nil {
			return false, err
		}
		return compareValues(left, right, pr.Op)
	case ast.Between:
		val, err := resolveOperand(rec, pr.Val)
		if err != nil {
			return false, err
		}
		lo, err := resolveOperand(rec, pr.Lo)
		if err != nil {
			return false, err
		}
		hi, err := resolveOperand(rec, pr.Hi)
		if err != nil {
			return false, err
		}
		ge, err := compareValues(val, lo, ast.OpGe)
		if err != nil {
			return false, err
		}
		le, err := compareValues(val, hi, ast.OpLe)
		if err != nil {
			return false, err
		}
		return ge && le, nil
	case ast.In:
		val, err := resolveOperand(rec, pr.Val)
		if err != nil {
			return false, err
		}
		for _, item := range pr.Items {
			itemVal, err := resolveOperand(rec, item)
			if err != nil {
				return false, err
			}
			eq, err := compareValues(val, itemVal, ast.OpEq)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	case ast.And:
		left, err := evalPredicate(rec, pr.Left)
		if err != nil {
			return false, err
		}
		if !left {
			return false, nil
		}
		return evalPredicate(rec, pr.Right)
	case ast.Or:
		left, err := evalPredicate(rec, pr.Left)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return evalPredicate(rec, pr.Right)
	default:
		return false, errs.NewSemanticError("", fmt.Sprintf("unhandled predicate type %T", p))
	}
}

func resolveOperand(rec record.Record, op ast.Operand) (value.Value, error) {
	switch op.Kind {
	case ast.OperandField:
		v, ok := rec.Get(op.Field)
		if !ok {
			return value.Value{}, errs.NewSemanticError(op.Field, "unknown field")
		}
		return v, nil
	case ast.OperandInt:
		return value.OfInt(op.IntVal), nil
	case ast.OperandStr:
		return value.OfString(op.StrVal), nil
	default:
		return value.Value{}, errs.NewSemanticError("", "unknown operand kind")
	}
}

// compareValues compares two values: numerically if both coerce to a
// number, lexically otherwise.
func compareValues(left, right value.Value, op ast.CompareOp) (bool, error) {
	li, lok := left.Int64()
	ri, rok := right.Int64()
	if lok && rok {
		return compareOrdered(li, ri, op), nil
	}
	return compareOrdered(left.String(), right.String(), op), nil
}

func compareOrdered[T int64 | string](a, b T, op ast.CompareOp) bool {
	switch op {
	case ast.OpEq:
		return a == b
	case ast.OpNe:
		return a != b
	case ast.OpLt:
		return a < b
	case ast.OpGt:
		return a > b
	case ast.OpLe:
		return a <= b
	case ast.OpGe:
		return a >= b
	default:
		return false
	}
}

// hasAggregateProjection reports whether any top-level projection item is
// a registered aggregate function call.
func hasAggregateProjection(fields []ast.Projection) bool {
	for _, f := range fields {
		if f.Kind == ast.ProjFunc && functions.IsAggregate(f.FuncName) {
			return true
		}
	}
	return false
}

// validateGroupByProjection enforces the mixing rule: a non-aggregate
// projection field alongside GROUP BY must itself be a grouping key.
func validateGroupByProjection(fields []ast.Projection, groupBy []string) error {
	keys := make(map[string]bool, len(groupBy))
	for _, g := range groupBy {
		keys[g] = true
	}
	for _, f := range fields {
		if f.Kind == ast.ProjField && !keys[f.Field] {
			return errs.NewSemanticError(f.Field, "non-aggregate field must appear in group by")
		}
	}
	return nil
}

// group is one bucket of records sharing a grouping key (or the whole
// dataset, or a single record in per-row mode).
type group struct {
	key     string
	records []record.Record
}

// buildGroups partitions rows: explicit GROUP BY groups by key; an
// aggregate with no GROUP BY collapses to one whole-table group;
// otherwise every record is its own group of one, preserving
// "select *"'s one-row-per-record behavior.
func buildGroups(schema *record.Schema, rows []record.Record, groupBy []string, hasAgg bool) ([]group, error) {
	if len(groupBy) > 0 {
		for _, g := range groupBy {
			if _, ok := schema.IndexOf(g); !ok {
				return nil, errs.NewSemanticError(g, "unknown group by field")
			}
		}
		var order []string
		buckets := map[string][]record.Record{}
		for _, rec := range rows {
			key := groupKey(rec, groupBy)
			if _, seen := buckets[key]; !seen {
				order = append(order, key)
			}
			buckets[key] = append(buckets[key], rec)
		}
		groups := make([]group, 0, len(order))
		for _, key := range order {
			groups = append(groups, group{key: key, records: buckets[key]})
		}
		return groups, nil
	}

	if hasAgg {
		return []group{{records: rows}}, nil
	}

	groups := make([]group, len(rows))
	for i, rec := range rows {
		groups[i] = group{records: []record.Record{rec}}
	}
	return groups, nil
}

func groupKey(rec record.Record, fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = rec.MustGet(f).String()
	}
	return strings.Join(parts, "\x1f")
}

// sortGroups orders groups by the representative (first) record's field
// values, ahead of projection, so ORDER BY can reference fields that
// aren't themselves selected.
func sortGroups(groups []group, ob *ast.OrderBy) error {
	for _, f := range ob.Fields {
		if len(groups) > 0 {
			if _, ok := groups[0].records[0].Get(f); !ok {
				return errs.NewSemanticError(f, "unknown order by field")
			}
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		for _, f := range ob.Fields {
			vi := groups[i].records[0].MustGet(f)
			vj := groups[j].records[0].MustGet(f)
			cmp := compareCell(vi, vj)
			if cmp != 0 {
				if ob.Direction == ast.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
	return nil
}

func compareCell(a, b value.Value) int {
	ai, aok := a.Int64()
	bi, bok := b.Int64()
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}

// project evaluates every projection item against each group, producing
// the final Result.
func project(ctx context.Context, schema *record.Schema, groups []group, fields []ast.Projection, ectx *ExecCtx) (*Result, error) {
	if len(fields) == 1 && fields[0].Kind == ast.ProjStar {
		return &Result{
			Columns: schema.Names(),
			Rows:    projectStar(groups),
		}, nil
	}

	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.ColumnName()
	}

	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		vals := make([]value.Value, len(fields))
		for i, f := range fields {
			v, err := evalProjection(ctx, schema, g, f, ectx)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		rows = append(rows, Row{Values: vals})
	}
	return &Result{Columns: columns, Rows: rows}, nil
}

func projectStar(groups []group) []Row {
	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		rec := g.records[0]
		rows = append(rows, Row{Values: append([]value.Value(nil), rec.Values...)})
	}
	return rows
}

func evalProjection(ctx context.Context, schema *record.Schema, g group, f ast.Projection, ectx *ExecCtx) (value.Value, error) {
	switch f.Kind {
	case ast.ProjStar:
		return value.Value{}, errs.NewSemanticError("*", "'*' cannot be mixed with other projections")
	case ast.ProjIntLit:
		return value.OfInt(f.IntVal), nil
	case ast.ProjStrLit:
		return value.OfString(f.StrVal), nil
	case ast.ProjField:
		v, ok := g.records[0].Get(f.Field)
		if !ok {
			return value.Value{}, errs.NewSemanticError(f.Field, "unknown field")
		}
		return v, nil
	case ast.ProjFunc:
		return evalFunc(ctx, schema, g, f, ectx)
	default:
		return value.Value{}, errs.NewSemanticError("", "unknown projection kind")
	}
}

func evalFunc(ctx context.Context, schema *record.Schema, g group, f ast.Projection, ectx *ExecCtx) (value.Value, error) {
	spec, ok := functions.Lookup(f.FuncName)
	if !ok {
		return value.Value{}, errs.NewSemanticError(f.FuncName, "unknown function")
	}
	if len(f.Args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(f.Args) > spec.MaxArgs) {
		return value.Value{}, errs.NewSemanticError(f.FuncName, fmt.Sprintf("wrong number of arguments to %s", f.FuncName))
	}

	if !spec.Aggregate && len(g.records) == 0 {
		return value.Value{}, errs.NewSemanticError(f.FuncName, "no rows to evaluate scalar function against")
	}

	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.ColumnName()
	}

	memoKey := g.key + "\x1e" + f.ColumnName()
	if spec.Aggregate {
		if v, ok := ectx.memo[memoKey]; ok {
			return v, nil
		}
	}

	v, err := spec.Call(ctx, g.records, schema, args)
	if err != nil {
		return value.Value{}, err
	}
	if spec.Aggregate {
		ectx.memo[memoKey] = v
	}
	return v, nil
}

func applyLimit(rows []Row, lim ast.Limit) []Row {
	if lim.Offset >= len(rows) {
		return nil
	}
	end := lim.Offset + lim.Count
	if end > len(rows) {
		end = len(rows)
	}
	return rows[lim.Offset:end]
}
