package ssrm

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	// PivotKeyDelimiter соединяет значения pivot-колонок в один ключ
	PivotKeyDelimiter = "_"

	childCountField = "childCount"
	slicesField     = "slices"
	facetRows       = "rows"
	facetTotal      = "total"
	countField      = "count"
)

// Plan - собранный пайплайн и все, что нужно для разбора его результата
type Plan struct {
	Pipeline   mongo.Pipeline
	Leaf       bool
	Pivot      bool
	GroupField string
	ValueCols  []ColumnSpec
	PageSize   int
}

// valueAlias - имя результата агрегации в $group; точки в пути поля там недопустимы
func valueAlias(i int) string {
	return "v" + strconv.Itoa(i)
}

// BuildPipeline собирает пайплайн для уровня группировки len(groupKeys).
// base всегда идет первым и ограничивает видимые документы.
func BuildPipeline(req *Request, base mongo.Pipeline) (*Plan, error) {
	plan := &Plan{
		Leaf:      req.IsLeaf(),
		ValueCols: req.ValueCols,
		PageSize:  req.PageSize(),
	}

	pipeline := make(mongo.Pipeline, 0, len(base)+len(req.GroupKeys)+4)
	pipeline = append(pipeline, base...)
	pipeline = append(pipeline, groupKeyMatches(req)...)

	match, err := filterMatch(req)
	if err != nil {
		return nil, err
	}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	var rows mongo.Pipeline
	if plan.Leaf {
		rows = append(rows, sortStage(leafSort(req)))
		rows = append(rows, windowStages(req)...)
		if len(req.Fields) > 0 {
			rows = append(rows, projectStage(req.Fields))
		}
	} else {
		plan.GroupField = req.RowGroupCols[req.Depth()].Field
		plan.Pivot = req.PivotActive()

		var stages mongo.Pipeline
		if plan.Pivot {
			stages, err = pivotGroupStages(req, plan.GroupField)
		} else {
			stages, err = groupStages(req, plan.GroupField)
		}
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, stages...)

		rows = append(rows, sortStage(groupSort(req, plan)))
		rows = append(rows, windowStages(req)...)
	}

	pipeline = append(pipeline, facetStage(rows))
	plan.Pipeline = pipeline
	return plan, nil
}

// groupKeyMatches привязывает уже выбранные значения групп к полям rowGroupCols
func groupKeyMatches(req *Request) mongo.Pipeline {
	stages := make(mongo.Pipeline, 0, len(req.GroupKeys))
	for i, key := range req.GroupKeys {
		stages = append(stages, bson.D{{Key: "$match", Value: bson.D{{Key: req.RowGroupCols[i].Field, Value: groupKeyValue(key)}}}})
	}
	return stages
}

// groupKeyValue восстанавливает типы, которые теряются в JSON: дата приходит строкой RFC 3339,
// ObjectID - 24 hex-символами. Исходная строка остается среди вариантов.
func groupKeyValue(key interface{}) interface{} {
	s, ok := key.(string)
	if !ok {
		return key
	}
	candidates := bson.A{s}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		candidates = append(candidates, t.UTC())
	}
	if len(s) == 24 {
		if id, err := bson.ObjectIDFromHex(s); err == nil {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 1 {
		return s
	}
	return bson.D{{Key: "$in", Value: candidates}}
}

// accumulator переводит функцию агрегации в аккумулятор $group.
// sum/avg/min/max видят только числовые значения, count считает документы.
func accumulator(col ColumnSpec) (bson.D, error) {
	ref := "$" + col.Field
	numeric := bson.D{{Key: "$cond", Value: bson.A{bson.D{{Key: "$isNumber", Value: ref}}, ref, nil}}}

	switch col.AggFunc {
	case AggSum:
		return bson.D{{Key: "$sum", Value: numeric}}, nil
	case AggAvg:
		return bson.D{{Key: "$avg", Value: numeric}}, nil
	case AggMin:
		return bson.D{{Key: "$min", Value: numeric}}, nil
	case AggMax:
		return bson.D{{Key: "$max", Value: numeric}}, nil
	case AggCount:
		return bson.D{{Key: "$sum", Value: 1}}, nil
	default:
		return nil, &UnsupportedFeatureError{Feature: "aggregation function", Value: string(col.AggFunc)}
	}
}

func groupStages(req *Request, groupField string) (mongo.Pipeline, error) {
	group := bson.D{
		{Key: "_id", Value: "$" + groupField},
		{Key: childCountField, Value: bson.D{{Key: "$sum", Value: 1}}},
	}
	for i, col := range req.ValueCols {
		acc, err := accumulator(col)
		if err != nil {
			return nil, err
		}
		group = append(group, bson.E{Key: valueAlias(i), Value: acc})
	}
	return mongo.Pipeline{{{Key: "$group", Value: group}}}, nil
}

// pivotGroupStages группирует по (поле группы, строковый pivot-ключ), затем сворачивает
// срезы в один документ на значение группы: {_id, childCount, slices: [{k, v}]}.
// Ключ строится уже в первом $group, поэтому наборы значений с одинаковым ключом сливаются в один срез.
func pivotGroupStages(req *Request, groupField string) (mongo.Pipeline, error) {
	first := bson.D{
		{Key: "_id", Value: bson.D{
			{Key: "g", Value: "$" + groupField},
			{Key: "k", Value: pivotKeyExpression(pivotFieldRefs(req))},
		}},
		{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
	}
	sliceValues := bson.D{{Key: "n", Value: "$n"}}
	for i, col := range req.ValueCols {
		acc, err := accumulator(col)
		if err != nil {
			return nil, err
		}
		first = append(first, bson.E{Key: valueAlias(i), Value: acc})
		sliceValues = append(sliceValues, bson.E{Key: valueAlias(i), Value: "$" + valueAlias(i)})
	}

	second := bson.D{
		{Key: "_id", Value: "$_id.g"},
		{Key: childCountField, Value: bson.D{{Key: "$sum", Value: "$n"}}},
		{Key: slicesField, Value: bson.D{{Key: "$push", Value: bson.D{
			{Key: "k", Value: "$_id.k"},
			{Key: "v", Value: sliceValues},
		}}}},
	}

	return mongo.Pipeline{
		{{Key: "$group", Value: first}},
		{{Key: "$group", Value: second}},
	}, nil
}

func pivotFieldRefs(req *Request) []string {
	refs := make([]string, 0, len(req.PivotCols))
	for _, col := range req.PivotCols {
		refs = append(refs, "$"+col.Field)
	}
	return refs
}

// pivotKeyExpression строит строковый ключ из значений pivot-полей.
// null и отсутствующие значения дают пустую строку.
func pivotKeyExpression(refs []string) bson.D {
	parts := make(bson.A, 0, 2*len(refs))
	for i, ref := range refs {
		if i > 0 {
			parts = append(parts, PivotKeyDelimiter)
		}
		parts = append(parts, bson.D{{Key: "$ifNull", Value: bson.A{
			bson.D{{Key: "$toString", Value: ref}},
			"",
		}}})
	}
	return bson.D{{Key: "$concat", Value: parts}}
}

func direction(s SortDirection) int {
	if s == SortDesc {
		return -1
	}
	return 1
}

// groupSort переводит sortModel в поля сгруппированного документа.
// Колонки, которых нет на этом уровне, пропускаются; _id замыкает сортировку.
func groupSort(req *Request, plan *Plan) bson.D {
	groupCol := req.RowGroupCols[req.Depth()]
	keys := bson.D{}
	seen := map[string]bool{}
	add := func(key string, dir int) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keys = append(keys, bson.E{Key: key, Value: dir})
	}

	for _, s := range req.SortModel {
		var key string
		switch {
		case s.ColID == groupCol.ID || s.ColID == groupCol.Field:
			key = "_id"
		case s.ColID == childCountField:
			key = childCountField
		case !plan.Pivot:
			for i, col := range req.ValueCols {
				if s.ColID == col.ID || s.ColID == col.Field {
					key = valueAlias(i)
					break
				}
			}
		}
		add(key, direction(s.Sort))
	}
	add("_id", 1)
	return keys
}

func leafSort(req *Request) bson.D {
	keys := bson.D{}
	seen := map[string]bool{}
	for _, s := range req.SortModel {
		field := req.FieldFor(s.ColID)
		if seen[field] {
			continue
		}
		seen[field] = true
		keys = append(keys, bson.E{Key: field, Value: direction(s.Sort)})
	}
	if !seen["_id"] {
		keys = append(keys, bson.E{Key: "_id", Value: 1})
	}
	return keys
}

func sortStage(keys bson.D) bson.D {
	return bson.D{{Key: "$sort", Value: keys}}
}

// windowStages - skip/limit окна [startRow, endRow). $limit не может быть 0,
// пустое окно дорезается при разборе результата.
func windowStages(req *Request) mongo.Pipeline {
	limit := req.PageSize()
	if limit < 1 {
		limit = 1
	}
	return mongo.Pipeline{
		{{Key: "$skip", Value: int64(req.StartRow)}},
		{{Key: "$limit", Value: int64(limit)}},
	}
}

func projectStage(fields []string) bson.D {
	projection := bson.D{}
	seen := map[string]bool{}
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		projection = append(projection, bson.E{Key: f, Value: 1})
	}
	return bson.D{{Key: "$project", Value: projection}}
}

// facetStage считает страницу и общее число элементов уровня одной командой
func facetStage(rows mongo.Pipeline) bson.D {
	return bson.D{{Key: "$facet", Value: bson.D{
		{Key: facetRows, Value: rows},
		{Key: facetTotal, Value: mongo.Pipeline{{{Key: "$count", Value: countField}}}},
	}}}
}
