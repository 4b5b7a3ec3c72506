package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimecast/logrok/internal/query/ast"
	"github.com/mimecast/logrok/internal/query/parser"
	"github.com/mimecast/logrok/internal/record"
	"github.com/mimecast/logrok/internal/value"
)

func testSchema() *record.Schema {
	return record.NewSchema([]record.Descriptor{
		{Name: "remote_host", Kind: record.KindString},
		{Name: "status_code", Kind: record.KindInt},
		{Name: "response_time_ms", Kind: record.KindInt},
	})
}

func testDataset() *record.Dataset {
	schema := testSchema()
	rows := []struct {
		host string
		code int64
		rt   int64
	}{
		{"10.0.0.1", 200, 500},
		{"10.0.0.2", 200, 600},
		{"10.0.0.1", 404, 700},
		{"10.0.0.3", 200, 800},
		{"10.0.0.2", 500, 900},
		{"10.0.0.1", 200, 1000},
		{"10.0.0.4", 200, 1100},
	}
	var records []record.Record
	for _, r := range rows {
		records = append(records, record.Record{
			Schema: schema,
			Values: []value.Value{value.OfString(r.host), value.OfInt(r.code), value.OfInt(r.rt)},
		})
	}
	return &record.Dataset{Schema: schema, Records: records}
}

func run(t *testing.T, query string) *Result {
	t.Helper()
	stmt, err := parser.Parse(query)
	require.NoError(t, err)
	res, err := Execute(context.Background(), testDataset(), stmt, nil)
	require.NoError(t, err)
	return res
}

func TestSelectStarYieldsOneRowPerRecord(t *testing.T) {
	res := run(t, "select *;")
	assert.Equal(t, []string{"remote_host", "status_code", "response_time_ms"}, res.Columns)
	assert.Len(t, res.Rows, 7)
}

func TestWhereFiltersRows(t *testing.T) {
	res := run(t, "select remote_host where status_code = 200;")
	assert.Len(t, res.Rows, 5)
}

func TestGroupByCountPerStatus(t *testing.T) {
	res := run(t, "select status_code, count(*) group by status_code;")
	require.Len(t, res.Rows, 3)

	counts := map[int64]int64{}
	for _, row := range res.Rows {
		code, _ := row.Values[0].Int64()
		n, _ := row.Values[1].Int64()
		counts[code] = n
	}
	assert.Equal(t, int64(5), counts[200])
	assert.Equal(t, int64(1), counts[404])
	assert.Equal(t, int64(1), counts[500])
}

func TestWholeTableAggregateCollapsesToOneRow(t *testing.T) {
	res := run(t, "select avg(response_time_ms);")
	require.Len(t, res.Rows, 1)
	sum := int64(500 + 600 + 700 + 800 + 900 + 1000 + 1100)
	assert.Equal(t, sum/7, res.Rows[0].Values[0].Int)
}

func TestOrderByDescSortsGroups(t *testing.T) {
	res := run(t, "select status_code, count(*) group by status_code order by status_code desc;")
	require.Len(t, res.Rows, 3)
	var codes []int64
	for _, row := range res.Rows {
		c, _ := row.Values[0].Int64()
		codes = append(codes, c)
	}
	assert.Equal(t, []int64{500, 404, 200}, codes)
}

func TestLimitOffsetAndCount(t *testing.T) {
	res := run(t, "select status_code order by status_code limit 2, 2;")
	require.Len(t, res.Rows, 2)
}

func TestNonAggregateFieldNotInGroupByIsSemanticError(t *testing.T) {
	stmt, err := parser.Parse("select remote_host, count(*) group by status_code;")
	require.NoError(t, err)
	_, err = Execute(context.Background(), testDataset(), stmt, nil)
	assert.Error(t, err)
}

func TestAggregateMixedWithBareFieldNoGroupByIsSemanticError(t *testing.T) {
	stmt, err := parser.Parse("select remote_host, count(*);")
	require.NoError(t, err)
	_, err = Execute(context.Background(), testDataset(), stmt, nil)
	assert.Error(t, err)
}

func TestBetweenEquivalentToCompoundComparison(t *testing.T) {
	between := run(t, "select remote_host where response_time_ms between 600 and 900;")
	compound := run(t, "select remote_host where response_time_ms >= 600 and response_time_ms <= 900;")
	assert.Equal(t, compound.Rows, between.Rows)
}

func TestSelectStarWithGroupByIsSemanticError(t *testing.T) {
	stmt := &ast.Statement{
		Fields:  []ast.Projection{{Kind: ast.ProjStar}},
		GroupBy: []string{"status_code"},
	}
	_, err := Execute(context.Background(), testDataset(), stmt, nil)
	assert.Error(t, err)
}

func TestUnknownFieldIsSemanticError(t *testing.T) {
	res, err := parser.Parse("select bogus_field;")
	require.NoError(t, err)
	_, err = Execute(context.Background(), testDataset(), res, nil)
	assert.Error(t, err)
}
