package ssrm

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// GridRow - строка грида; набор полей зависит от уровня группировки
type GridRow map[string]interface{}

type Result struct {
	Rows      []GridRow `json:"rows"`
	LastRow   int       `json:"lastRow"`
	PivotKeys []string  `json:"pivotKeys"`
}

// ShapeResult разбирает документ $facet в строки грида.
// В pivot-режиме каждая строка получает все ключи из pivotKeys.
func ShapeResult(plan *Plan, docs []bson.M, pivotKeys []string) *Result {
	if pivotKeys == nil {
		pivotKeys = []string{}
	}
	res := &Result{
		Rows:      []GridRow{},
		LastRow:   -1,
		PivotKeys: pivotKeys,
	}
	if len(docs) == 0 {
		return res
	}

	facet := docs[0]
	res.LastRow = totalCount(facet[facetTotal])

	for _, raw := range asArray(facet[facetRows]) {
		if len(res.Rows) >= plan.PageSize {
			break
		}
		doc := asMap(raw)
		if doc == nil {
			continue
		}
		switch {
		case plan.Leaf:
			res.Rows = append(res.Rows, GridRow(doc))
		case plan.Pivot:
			res.Rows = append(res.Rows, pivotRow(plan, doc, pivotKeys))
		default:
			res.Rows = append(res.Rows, groupRow(plan, doc))
		}
	}
	return res
}

// totalCount читает ветку total; пустая ветка значит ноль элементов
func totalCount(v interface{}) int {
	if v == nil {
		return -1
	}
	items := asArray(v)
	if items == nil {
		return -1
	}
	if len(items) == 0 {
		return 0
	}
	doc := asMap(items[0])
	if doc == nil {
		return -1
	}
	n, ok := toInt(doc[countField])
	if !ok {
		return -1
	}
	return n
}

func groupHeader(plan *Plan, doc map[string]interface{}) GridRow {
	row := GridRow{}
	setPath(row, plan.GroupField, normalize(doc["_id"]))
	row["group"] = true
	count, ok := toInt(doc[childCountField])
	if !ok {
		count = 0
	}
	row[childCountField] = count
	return row
}

func groupRow(plan *Plan, doc map[string]interface{}) GridRow {
	row := groupHeader(plan, doc)
	for i, col := range plan.ValueCols {
		setPath(row, col.Field, doc[valueAlias(i)])
	}
	return row
}

func pivotRow(plan *Plan, doc map[string]interface{}, pivotKeys []string) GridRow {
	row := groupHeader(plan, doc)

	slices := map[string]map[string]interface{}{}
	for _, raw := range asArray(doc[slicesField]) {
		slice := asMap(raw)
		if slice == nil {
			continue
		}
		k, ok := slice["k"].(string)
		if !ok {
			continue
		}
		slices[k] = asMap(slice["v"])
	}

	pivot := make(map[string]interface{}, len(pivotKeys))
	for _, key := range pivotKeys {
		values, found := slices[key]
		entry := map[string]interface{}{}
		for i, col := range plan.ValueCols {
			if found && values != nil {
				if v, ok := values[valueAlias(i)]; ok {
					setPath(entry, col.Field, v)
					continue
				}
			}
			setPath(entry, col.Field, neutralValue(col.AggFunc))
		}
		pivot[key] = entry
	}
	row["pivot"] = pivot
	return row
}

// hasUnknownPivotKeys сообщает, есть ли на странице срез с ключом не из keys
func hasUnknownPivotKeys(docs []bson.M, keys []string) bool {
	if len(docs) == 0 {
		return false
	}
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	for _, raw := range asArray(docs[0][facetRows]) {
		doc := asMap(raw)
		if doc == nil {
			continue
		}
		for _, s := range asArray(doc[slicesField]) {
			slice := asMap(s)
			if slice == nil {
				continue
			}
			if k, ok := slice["k"].(string); ok && !known[k] {
				return true
			}
		}
	}
	return false
}

// neutralValue - значение для отсутствующей комбинации pivot-ключей
func neutralValue(agg AggFunc) interface{} {
	switch agg {
	case AggSum, AggCount:
		return 0
	default:
		return nil
	}
}

// setPath раскладывает путь с точками во вложенные объекты
func setPath(row map[string]interface{}, path string, value interface{}) {
	parts := strings.Split(path, ".")
	cur := row
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func asArray(v interface{}) []interface{} {
	switch arr := v.(type) {
	case bson.A:
		return []interface{}(arr)
	case []interface{}:
		return arr
	default:
		return nil
	}
}

func asMap(v interface{}) map[string]interface{} {
	switch m := normalize(v).(type) {
	case map[string]interface{}:
		return m
	default:
		return nil
	}
}

// normalize приводит значения драйвера (bson.M, bson.D, bson.A) к обычным map/slice для JSON.
// Даты отдаются как time.Time в UTC, чтобы ключ группы возвращался в строке RFC 3339.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return normalizeMap(val)
	case map[string]interface{}:
		return normalizeMap(val)
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		return normalizeSlice(val)
	case []interface{}:
		return normalizeSlice(val)
	case bson.DateTime:
		return val.Time().UTC()
	default:
		return v
	}
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalizeSlice(s []interface{}) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = normalize(v)
	}
	return out
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
