package functions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimecast/logrok/internal/record"
	"github.com/mimecast/logrok/internal/value"
)

func schemaWith(names ...string) *record.Schema {
	descs := make([]record.Descriptor, len(names))
	for i, n := range names {
		descs[i] = record.Descriptor{Name: n, Kind: record.KindInt}
	}
	return record.NewSchema(descs)
}

func rec(schema *record.Schema, vals ...int64) record.Record {
	values := make([]value.Value, len(vals))
	for i, v := range vals {
		values[i] = value.OfInt(v)
	}
	return record.Record{Schema: schema, Values: values}
}

func TestCountReturnsGroupLength(t *testing.T) {
	schema := schemaWith("x")
	group := []record.Record{rec(schema, 1), rec(schema, 2), rec(schema, 3)}
	spec, ok := Lookup("count")
	require.True(t, ok)
	v, err := spec.Call(context.Background(), group, schema, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Int)
}

func TestAvgTruncatingIntegerDivision(t *testing.T) {
	schema := schemaWith("response_time_ms")
	// Mirrors the documented scenario-3 expected average of 792:
	// 2378/3 = 792.67, truncated to 792.
	vals := []int64{2326, 12, 40}
	var group []record.Record
	for _, v := range vals {
		group = append(group, rec(schema, v))
	}
	spec, ok := Lookup("avg")
	require.True(t, ok)
	v, err := spec.Call(context.Background(), group, schema, []string{"response_time_ms"})
	require.NoError(t, err)
	sum := int64(0)
	for _, x := range vals {
		sum += x
	}
	assert.Equal(t, sum/int64(len(vals)), v.Int)
}

func TestMeanIsAliasOfAvg(t *testing.T) {
	_, ok := Lookup("mean")
	require.True(t, ok)
	assert.True(t, IsAggregate("mean"))
}

func TestMinMax(t *testing.T) {
	schema := schemaWith("x")
	group := []record.Record{rec(schema, 5), rec(schema, 1), rec(schema, 9), rec(schema, 3)}

	minSpec, _ := Lookup("min")
	v, err := minSpec.Call(context.Background(), group, schema, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Int)

	maxSpec, _ := Lookup("max")
	v, err = maxSpec.Call(context.Background(), group, schema, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.Int)
}

func TestMedianLowerMiddleNoAveraging(t *testing.T) {
	schema := schemaWith("x")
	group := []record.Record{rec(schema, 1), rec(schema, 2), rec(schema, 3), rec(schema, 4)}
	spec, _ := Lookup("median")
	v, err := spec.Call(context.Background(), group, schema, []string{"x"})
	require.NoError(t, err)
	// n=4, (n-1)/2 = 1 -> sorted[1] = 2, not the (2+3)/2 = 2.5 average.
	assert.Equal(t, int64(2), v.Int)
}

func TestModeRanksByFrequencyThenFirstAppearance(t *testing.T) {
	schema := schemaWith("x")
	group := []record.Record{rec(schema, 1), rec(schema, 2), rec(schema, 2), rec(schema, 3), rec(schema, 3), rec(schema, 3)}
	spec, _ := Lookup("mode")
	v, err := spec.Call(context.Background(), group, schema, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, "3", v.Str)

	v, err = spec.Call(context.Background(), group, schema, []string{"x", "1"})
	require.NoError(t, err)
	assert.Equal(t, "2", v.Str)
}

func TestDivIntegerAndFloat(t *testing.T) {
	schema := schemaWith("a", "b")
	group := []record.Record{rec(schema, 10, 4)}
	spec, _ := Lookup("div")
	v, err := spec.Call(context.Background(), group, schema, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Int)

	// A non-integral operand switches to float division: 10 / 2.5 = 4.
	v, err = spec.Call(context.Background(), group, schema, []string{"a", "2.5"})
	require.NoError(t, err)
	assert.Equal(t, value.Float, v.Kind)
	assert.Equal(t, 4.0, v.Flt)
}

func TestYearMonthDayFromTimestamp(t *testing.T) {
	schema := record.NewSchema([]record.Descriptor{{Name: "date_time", Kind: record.KindTimestamp}})
	group := []record.Record{{Schema: schema, Values: []value.Value{value.OfString("20240315143012")}}}

	yearSpec, _ := Lookup("year")
	v, err := yearSpec.Call(context.Background(), group, schema, []string{"date_time"})
	require.NoError(t, err)
	assert.Equal(t, int64(2024), v.Int)

	monthSpec, _ := Lookup("month")
	v, err = monthSpec.Call(context.Background(), group, schema, []string{"date_time"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Int)

	daySpec, _ := Lookup("day")
	v, err = daySpec.Call(context.Background(), group, schema, []string{"date_time"})
	require.NoError(t, err)
	assert.Equal(t, int64(15), v.Int)
}

func TestUnknownColumnIsSemanticError(t *testing.T) {
	schema := schemaWith("x")
	group := []record.Record{rec(schema, 1)}
	spec, _ := Lookup("avg")
	_, err := spec.Call(context.Background(), group, schema, []string{"nope"})
	assert.Error(t, err)
}
