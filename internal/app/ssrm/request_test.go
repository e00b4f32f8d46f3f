package ssrm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ParseRequest: defaults and window
// =============================================================================

func TestParseRequest_Defaults(t *testing.T) {
	req, err := ParseRequest([]byte(`{}`), 100)
	require.NoError(t, err)

	assert.Equal(t, 0, req.StartRow)
	assert.Equal(t, 100, req.EndRow)
	assert.Empty(t, req.RowGroupCols)
	assert.Empty(t, req.ValueCols)
	assert.Empty(t, req.PivotCols)
	assert.NotNil(t, req.GroupKeys)
	assert.Empty(t, req.GroupKeys)
	assert.Empty(t, req.SortModel)
	assert.Nil(t, req.FilterModel)
	assert.False(t, req.PivotMode)
	assert.True(t, req.IsLeaf())
}

func TestParseRequest_DefaultPageSizeWhenUnset(t *testing.T) {
	req, err := ParseRequest([]byte(`{"startRow": 5}`), 0)
	require.NoError(t, err)

	assert.Equal(t, 5, req.StartRow)
	assert.Equal(t, 5+DefaultMaxPageSize, req.EndRow)
}

func TestParseRequest_ClampsWindow(t *testing.T) {
	req, err := ParseRequest([]byte(`{"startRow": 10, "endRow": 5000}`), 100)
	require.NoError(t, err)

	assert.Equal(t, 10, req.StartRow)
	assert.Equal(t, 110, req.EndRow)
	assert.Equal(t, 100, req.PageSize())
}

func TestParseRequest_EmptyWindowAllowed(t *testing.T) {
	req, err := ParseRequest([]byte(`{"startRow": 7, "endRow": 7}`), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, req.PageSize())
}

// =============================================================================
// ParseRequest: validation failures
// =============================================================================

func TestParseRequest_MalformedJSON(t *testing.T) {
	_, err := ParseRequest([]byte(`{"startRow": `), 100)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "failed to parse request body")
}

func TestParseRequest_EmptyBody(t *testing.T) {
	_, err := ParseRequest(nil, 100)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "failed to parse request body")
}

func TestParseRequest_NotAnObject(t *testing.T) {
	for _, body := range []string{`[1, 2]`, `"text"`, `42`, `null`} {
		_, err := ParseRequest([]byte(body), 100)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, body)
		assert.Contains(t, vErr.Error(), "JSON object", body)
	}
}

func TestParseRequest_ArrayFieldsMustBeArrays(t *testing.T) {
	for _, key := range []string{"rowGroupCols", "valueCols", "pivotCols", "sortModel", "groupKeys"} {
		body := `{"` + key + `": {"id": "region"}}`
		_, err := ParseRequest([]byte(body), 100)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, key)
		assert.Contains(t, vErr.Error(), key+" must be an array")
	}
}

func TestParseRequest_NullArraysAreAbsent(t *testing.T) {
	req, err := ParseRequest([]byte(`{"rowGroupCols": null, "sortModel": null, "filterModel": null}`), 100)
	require.NoError(t, err)
	assert.Empty(t, req.RowGroupCols)
	assert.Empty(t, req.SortModel)
	assert.Nil(t, req.FilterModel)
}

func TestParseRequest_InvalidRowBounds(t *testing.T) {
	cases := map[string]string{
		"negative start":   `{"startRow": -1, "endRow": 10}`,
		"fractional end":   `{"startRow": 0, "endRow": 1.5}`,
		"string start":     `{"startRow": "0", "endRow": 10}`,
		"boolean end":      `{"startRow": 0, "endRow": true}`,
		"end before start": `{"startRow": 20, "endRow": 10}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRequest([]byte(body), 100)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestParseRequest_TooManyGroupKeys(t *testing.T) {
	body := `{"rowGroupCols": [{"id": "region"}], "groupKeys": ["North", "open"]}`
	_, err := ParseRequest([]byte(body), 100)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "groupKeys")
}

func TestParseRequest_ColumnWithoutIDOrField(t *testing.T) {
	_, err := ParseRequest([]byte(`{"rowGroupCols": [{"displayName": "Region"}]}`), 100)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "rowGroupCols[0]")
}

func TestParseRequest_InvalidSortDirection(t *testing.T) {
	_, err := ParseRequest([]byte(`{"sortModel": [{"colId": "amount", "sort": "sideways"}]}`), 100)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "sortModel[0].sort")
}

func TestParseRequest_SortWithoutColumn(t *testing.T) {
	_, err := ParseRequest([]byte(`{"sortModel": [{"sort": "asc"}]}`), 100)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "colId")
}

func TestParseRequest_PivotModeMustBeBoolean(t *testing.T) {
	_, err := ParseRequest([]byte(`{"pivotMode": "yes"}`), 100)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

// =============================================================================
// ParseRequest: columns, aggregation functions, overrides
// =============================================================================

func TestParseRequest_Columns(t *testing.T) {
	body := `{
		"rowGroupCols": [{"id": "region", "displayName": "Region", "field": "region"}],
		"valueCols": [
			{"id": "amount"},
			{"id": "qty", "field": "quantity", "aggFunc": "AVG"}
		],
		"pivotCols": [{"field": "status"}],
		"pivotMode": true,
		"sortModel": [{"colId": "amount", "sort": "DESC"}]
	}`
	req, err := ParseRequest([]byte(body), 100)
	require.NoError(t, err)

	require.Len(t, req.RowGroupCols, 1)
	assert.Equal(t, "Region", req.RowGroupCols[0].DisplayName)

	require.Len(t, req.ValueCols, 2)
	assert.Equal(t, "amount", req.ValueCols[0].Field)
	assert.Equal(t, AggSum, req.ValueCols[0].AggFunc)
	assert.Equal(t, "quantity", req.ValueCols[1].Field)
	assert.Equal(t, AggAvg, req.ValueCols[1].AggFunc)

	require.Len(t, req.PivotCols, 1)
	assert.Equal(t, "status", req.PivotCols[0].ID)
	assert.True(t, req.PivotActive())

	require.Len(t, req.SortModel, 1)
	assert.Equal(t, SortDesc, req.SortModel[0].Sort)

	assert.Equal(t, "quantity", req.FieldFor("qty"))
	assert.Equal(t, "unknown", req.FieldFor("unknown"))
}

func TestParseRequest_UnsupportedAggFunc(t *testing.T) {
	_, err := ParseRequest([]byte(`{"valueCols": [{"id": "amount", "aggFunc": "median"}]}`), 100)

	var uErr *UnsupportedFeatureError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, "aggregation function", uErr.Feature)
	assert.Equal(t, "median", uErr.Value)
}

func TestParseRequest_MalformedRequestWinsOverAggFunc(t *testing.T) {
	bodies := map[string]string{
		"sortModel not an array": `{"valueCols": [{"id": "amount", "aggFunc": "median"}], "sortModel": {"colId": "x"}}`,
		"bad filter":             `{"valueCols": [{"id": "amount", "aggFunc": "median"}], "filterModel": {"amount": {"filterType": "number", "type": "equals", "filter": "abc"}}}`,
		"negative startRow":      `{"valueCols": [{"id": "amount", "aggFunc": "median"}], "startRow": -1}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRequest([]byte(body), 100)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			var uErr *UnsupportedFeatureError
			assert.False(t, errors.As(err, &uErr))
		})
	}
}

func TestParseRequest_PivotModeWithoutPivotCols(t *testing.T) {
	req, err := ParseRequest([]byte(`{"pivotMode": true}`), 100)
	require.NoError(t, err)
	assert.True(t, req.PivotMode)
	assert.False(t, req.PivotActive())
}

func TestParseRequest_DatabaseOverrides(t *testing.T) {
	req, err := ParseRequest([]byte(`{"database": " sales ", "collection": "orders"}`), 100)
	require.NoError(t, err)
	assert.Equal(t, "sales", req.Database)
	assert.Equal(t, "orders", req.Collection)

	_, err = ParseRequest([]byte(`{"database": 5}`), 100)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestParseAggFunc(t *testing.T) {
	cases := map[string]AggFunc{
		"":      AggSum,
		"sum":   AggSum,
		"Avg":   AggAvg,
		"min":   AggMin,
		"MAX":   AggMax,
		"count": AggCount,
	}
	for in, want := range cases {
		got, err := ParseAggFunc(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAggFunc("first")
	var uErr *UnsupportedFeatureError
	assert.ErrorAs(t, err, &uErr)
}

func TestColumnSpec_String(t *testing.T) {
	assert.Equal(t, "avg(amount)", ColumnSpec{Field: "amount", AggFunc: AggAvg}.String())
	assert.Equal(t, "region", ColumnSpec{Field: "region"}.String())
}
