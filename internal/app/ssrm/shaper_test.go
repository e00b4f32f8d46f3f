package ssrm

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func facetDoc(rows bson.A, total bson.A) []bson.M {
	return []bson.M{{facetRows: rows, facetTotal: total}}
}

func TestShapeResult_GroupRows(t *testing.T) {
	plan := &Plan{
		GroupField: "region",
		ValueCols: []ColumnSpec{
			{ID: "amount", Field: "amount", AggFunc: AggSum},
			{ID: "qty", Field: "stats.quantity", AggFunc: AggSum},
		},
		PageSize: 100,
	}
	docs := facetDoc(
		bson.A{
			bson.M{"_id": "North", "childCount": int32(3), "v0": 405.0, "v1": int32(14)},
			bson.M{"_id": "South", "childCount": int64(2), "v0": 240.0, "v1": int32(6)},
		},
		bson.A{bson.M{"count": int32(2)}},
	)

	res := ShapeResult(plan, docs, nil)

	assert.Equal(t, 2, res.LastRow)
	assert.Equal(t, []string{}, res.PivotKeys)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, GridRow{
		"region":     "North",
		"group":      true,
		"childCount": 3,
		"amount":     405.0,
		"stats":      map[string]interface{}{"quantity": int32(14)},
	}, res.Rows[0])
	assert.Equal(t, 2, res.Rows[1]["childCount"])
}

func TestShapeResult_NestedGroupField(t *testing.T) {
	plan := &Plan{GroupField: "customer.region", PageSize: 10}
	docs := facetDoc(bson.A{bson.M{"_id": "East", "childCount": int32(1)}}, bson.A{bson.M{"count": int32(1)}})

	res := ShapeResult(plan, docs, nil)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, map[string]interface{}{"region": "East"}, res.Rows[0]["customer"])
}

func TestShapeResult_LastRow(t *testing.T) {
	plan := &Plan{Leaf: true, PageSize: 10}

	res := ShapeResult(plan, nil, nil)
	assert.Equal(t, -1, res.LastRow)
	assert.Equal(t, []GridRow{}, res.Rows)

	res = ShapeResult(plan, facetDoc(bson.A{}, bson.A{}), nil)
	assert.Equal(t, 0, res.LastRow)

	res = ShapeResult(plan, []bson.M{{facetRows: bson.A{}}}, nil)
	assert.Equal(t, -1, res.LastRow)

	res = ShapeResult(plan, facetDoc(bson.A{}, bson.A{bson.M{"count": "many"}}), nil)
	assert.Equal(t, -1, res.LastRow)

	res = ShapeResult(plan, facetDoc(bson.A{}, bson.A{bson.M{"count": int64(42)}}), nil)
	assert.Equal(t, 42, res.LastRow)
}

func TestShapeResult_TruncatesToPageSize(t *testing.T) {
	plan := &Plan{Leaf: true, PageSize: 0}
	docs := facetDoc(bson.A{bson.M{"_id": 1}}, bson.A{bson.M{"count": int32(7)}})

	res := ShapeResult(plan, docs, nil)

	assert.Empty(t, res.Rows)
	assert.Equal(t, 7, res.LastRow)
}

func TestShapeResult_LeafRowsAreNormalized(t *testing.T) {
	plan := &Plan{Leaf: true, PageSize: 10}
	docs := facetDoc(
		bson.A{bson.M{
			"_id":    "o1",
			"amount": 120.0,
			"tags":   bson.A{"a", bson.D{{Key: "x", Value: 1}}},
			"meta":   bson.D{{Key: "source", Value: "web"}},
		}},
		bson.A{bson.M{"count": int32(1)}},
	)

	res := ShapeResult(plan, docs, nil)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, []interface{}{"a", map[string]interface{}{"x": 1}}, row["tags"])
	assert.Equal(t, map[string]interface{}{"source": "web"}, row["meta"])
	assert.NotContains(t, row, "group")
}

func TestShapeResult_PivotFillsMissingCombinations(t *testing.T) {
	plan := &Plan{
		GroupField: "region",
		Pivot:      true,
		ValueCols: []ColumnSpec{
			{ID: "amount", Field: "amount", AggFunc: AggSum},
			{ID: "best", Field: "top", AggFunc: AggMax},
		},
		PageSize: 10,
	}

	docs := facetDoc(
		bson.A{bson.M{
			"_id":        "North",
			"childCount": int32(3),
			"slices": bson.A{
				bson.M{"k": "open", "v": bson.M{"n": int32(2), "v0": 330.0, "v1": 200.0}},
				bson.M{"k": "archived", "v": bson.M{"n": int32(1), "v0": 5.0, "v1": 5.0}},
			},
		}},
		bson.A{bson.M{"count": int32(1)}},
	)

	res := ShapeResult(plan, docs, []string{"closed", "open"})

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, true, row["group"])
	assert.Equal(t, 3, row["childCount"])

	pivot, ok := row["pivot"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, pivot, 2)
	assert.NotContains(t, pivot, "archived")
	assert.Equal(t, map[string]interface{}{"amount": 330.0, "top": 200.0}, pivot["open"])
	assert.Equal(t, map[string]interface{}{"amount": 0, "top": nil}, pivot["closed"])
}

func TestNeutralValue(t *testing.T) {
	assert.Equal(t, 0, neutralValue(AggSum))
	assert.Equal(t, 0, neutralValue(AggCount))
	assert.Nil(t, neutralValue(AggAvg))
	assert.Nil(t, neutralValue(AggMin))
	assert.Nil(t, neutralValue(AggMax))
}

// ключ группы, отданный клиенту, должен снова находить свои документы на следующем уровне
func TestGroupKeyRoundTrip(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	id := bson.NewObjectID()

	tests := []struct {
		name  string
		field string
		key   interface{}
		want  interface{}
	}{
		{name: "date", field: "day", key: bson.NewDateTimeFromTime(day), want: day},
		{name: "object id", field: "customer", key: id, want: id},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &Plan{GroupField: tt.field, PageSize: 10}
			res := ShapeResult(plan, facetDoc(
				bson.A{bson.M{"_id": tt.key, "childCount": int32(1)}},
				bson.A{bson.M{"count": int32(1)}},
			), nil)
			require.Len(t, res.Rows, 1)

			encoded, err := json.Marshal(res.Rows[0])
			require.NoError(t, err)
			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(encoded, &decoded))
			raw, ok := decoded[tt.field].(string)
			require.True(t, ok)

			body, err := json.Marshal(map[string]interface{}{
				"rowGroupCols": []map[string]string{{"id": tt.field}, {"id": "status"}},
				"groupKeys":    []string{raw},
			})
			require.NoError(t, err)
			next, err := BuildPipeline(mustParse(t, string(body)), nil)
			require.NoError(t, err)

			assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{{Key: tt.field, Value: bson.D{
				{Key: "$in", Value: bson.A{raw, tt.want}},
			}}}}}, next.Pipeline[0])
		})
	}
}
