package ssrm

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type FilterType string

const (
	FilterText   FilterType = "text"
	FilterNumber FilterType = "number"
	FilterDate   FilterType = "date"
	FilterSet    FilterType = "set"
)

type FilterOperator string

const (
	OpEquals             FilterOperator = "equals"
	OpNotEqual           FilterOperator = "notEqual"
	OpContains           FilterOperator = "contains"
	OpNotContains        FilterOperator = "notContains"
	OpStartsWith         FilterOperator = "startsWith"
	OpEndsWith           FilterOperator = "endsWith"
	OpLessThan           FilterOperator = "lessThan"
	OpLessThanOrEqual    FilterOperator = "lessThanOrEqual"
	OpGreaterThan        FilterOperator = "greaterThan"
	OpGreaterThanOrEqual FilterOperator = "greaterThanOrEqual"
	OpInRange            FilterOperator = "inRange"
	OpBlank              FilterOperator = "blank"
	OpNotBlank           FilterOperator = "notBlank"
)

// допустимые операторы для каждого типа фильтра
var operatorsByType = map[FilterType][]FilterOperator{
	FilterText: {OpEquals, OpNotEqual, OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpBlank, OpNotBlank},
	FilterNumber: {OpEquals, OpNotEqual, OpLessThan, OpLessThanOrEqual, OpGreaterThan, OpGreaterThanOrEqual,
		OpInRange, OpBlank, OpNotBlank},
	FilterDate: {OpEquals, OpNotEqual, OpLessThan, OpGreaterThan, OpInRange, OpBlank, OpNotBlank},
}

type JoinOperator string

const (
	JoinAnd JoinOperator = "AND"
	JoinOr  JoinOperator = "OR"
)

// dateLayouts - форматы дат, которые присылает грид
var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02", time.RFC3339}

// Filter - условие фильтра по одной колонке
type Filter interface {
	Type() FilterType
}

type TextCondition struct {
	Op    FilterOperator
	Value string
}

type NumberCondition struct {
	Op    FilterOperator
	Value float64
	To    float64
}

type DateCondition struct {
	Op   FilterOperator
	From time.Time
	To   time.Time
}

type SetCondition struct {
	Values []interface{}
}

type CompositeCondition struct {
	FilterType FilterType
	Join       JoinOperator
	Conditions []Filter
}

func (TextCondition) Type() FilterType        { return FilterText }
func (NumberCondition) Type() FilterType      { return FilterNumber }
func (DateCondition) Type() FilterType        { return FilterDate }
func (SetCondition) Type() FilterType         { return FilterSet }
func (c CompositeCondition) Type() FilterType { return c.FilterType }

type rawFilter struct {
	FilterType string            `json:"filterType"`
	Type       string            `json:"type"`
	Filter     json.RawMessage   `json:"filter"`
	FilterTo   json.RawMessage   `json:"filterTo"`
	DateFrom   *string           `json:"dateFrom"`
	DateTo     *string           `json:"dateTo"`
	Values     []interface{}     `json:"values"`
	Operator   string            `json:"operator"`
	Conditions []json.RawMessage `json:"conditions"`
	Condition1 json.RawMessage   `json:"condition1"`
	Condition2 json.RawMessage   `json:"condition2"`
}

func parseFilterModel(raw json.RawMessage) (map[string]Filter, error) {
	if raw[0] != '{' {
		return nil, validationf("filterModel must be an object")
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, validationf("invalid filterModel: %v", err)
	}
	model := make(map[string]Filter, len(entries))
	for colID, entry := range entries {
		f, err := parseFilter(colID, entry, "")
		if err != nil {
			return nil, err
		}
		if f != nil {
			model[colID] = f
		}
	}
	return model, nil
}

func parseFilter(colID string, raw json.RawMessage, inherited FilterType) (Filter, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	var rf rawFilter
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, validationf("invalid filter for column %q: %v", colID, err)
	}

	ft := FilterType(rf.FilterType)
	if ft == "" {
		ft = inherited
	}
	if ft == "" {
		ft = FilterText
	}

	if rf.Operator != "" || len(rf.Conditions) > 0 || !isNullJSON(rf.Condition1) {
		return parseComposite(colID, ft, rf)
	}

	switch ft {
	case FilterText:
		op, err := parseOperator(ft, rf.Type)
		if err != nil {
			return nil, err
		}
		cond := TextCondition{Op: op}
		if op != OpBlank && op != OpNotBlank {
			if cond.Value, err = textOperand(colID, rf.Filter); err != nil {
				return nil, err
			}
		}
		return cond, nil
	case FilterNumber:
		op, err := parseOperator(ft, rf.Type)
		if err != nil {
			return nil, err
		}
		cond := NumberCondition{Op: op}
		if op == OpBlank || op == OpNotBlank {
			return cond, nil
		}
		if cond.Value, err = numberOperand(colID, "filter", rf.Filter); err != nil {
			return nil, err
		}
		if op == OpInRange {
			if cond.To, err = numberOperand(colID, "filterTo", rf.FilterTo); err != nil {
				return nil, err
			}
		}
		return cond, nil
	case FilterDate:
		op, err := parseOperator(ft, rf.Type)
		if err != nil {
			return nil, err
		}
		cond := DateCondition{Op: op}
		if op == OpBlank || op == OpNotBlank {
			return cond, nil
		}
		if cond.From, err = dateOperand(colID, "dateFrom", rf.DateFrom); err != nil {
			return nil, err
		}
		if op == OpInRange {
			if cond.To, err = dateOperand(colID, "dateTo", rf.DateTo); err != nil {
				return nil, err
			}
		}
		return cond, nil
	case FilterSet:
		values := rf.Values
		if values == nil {
			values = []interface{}{}
		}
		return SetCondition{Values: values}, nil
	default:
		return nil, &UnsupportedFeatureError{Feature: "filter type", Value: string(ft)}
	}
}

func parseComposite(colID string, ft FilterType, rf rawFilter) (Filter, error) {
	join := JoinOperator(strings.ToUpper(rf.Operator))
	if join == "" {
		join = JoinAnd
	}
	if join != JoinAnd && join != JoinOr {
		return nil, &UnsupportedFeatureError{Feature: "filter join operator", Value: rf.Operator}
	}

	raws := rf.Conditions
	if len(raws) == 0 {
		raws = []json.RawMessage{rf.Condition1, rf.Condition2}
	}

	comp := CompositeCondition{FilterType: ft, Join: join}
	for _, r := range raws {
		cond, err := parseFilter(colID, r, ft)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			comp.Conditions = append(comp.Conditions, cond)
		}
	}
	if len(comp.Conditions) == 0 {
		return nil, validationf("composite filter for column %q has no conditions", colID)
	}
	return comp, nil
}

func parseOperator(ft FilterType, name string) (FilterOperator, error) {
	if name == "" {
		return "", validationf("%s filter requires an operator in \"type\"", ft)
	}
	op := FilterOperator(name)
	for _, allowed := range operatorsByType[ft] {
		if op == allowed {
			return op, nil
		}
	}
	return "", &UnsupportedFeatureError{Feature: string(ft) + " filter operator", Value: name}
}

func textOperand(colID string, raw json.RawMessage) (string, error) {
	if isNullJSON(raw) {
		return "", validationf("text filter for column %q requires a filter value", colID)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", validationf("invalid text filter value for column %q", colID)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", validationf("text filter value for column %q must be a string", colID)
	}
}

func numberOperand(colID, name string, raw json.RawMessage) (float64, error) {
	if isNullJSON(raw) {
		return 0, validationf("number filter for column %q requires %s", colID, name)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, validationf("invalid %s for column %q", name, colID)
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, validationf("%s for column %q must be numeric", name, colID)
		}
		return f, nil
	default:
		return 0, validationf("%s for column %q must be numeric", name, colID)
	}
}

func dateOperand(colID, name string, raw *string) (time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return time.Time{}, validationf("date filter for column %q requires %s", colID, name)
	}
	s := strings.TrimSpace(*raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, validationf("%s for column %q is not a recognised date: %q", name, colID, s)
}

func isNullJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// filterMatch строит условие $match для всей модели фильтров.
// Колонки обходятся в отсортированном порядке, чтобы одна и та же модель давала один и тот же документ.
func filterMatch(req *Request) (bson.D, error) {
	if len(req.FilterModel) == 0 {
		return nil, nil
	}
	colIDs := make([]string, 0, len(req.FilterModel))
	for colID := range req.FilterModel {
		colIDs = append(colIDs, colID)
	}
	sort.Strings(colIDs)

	preds := make(bson.A, 0, len(colIDs))
	for _, colID := range colIDs {
		pred, err := predicate(req.FieldFor(colID), req.FilterModel[colID])
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	if len(preds) == 1 {
		return preds[0].(bson.D), nil
	}
	return bson.D{{Key: "$and", Value: preds}}, nil
}

func predicate(field string, f Filter) (bson.D, error) {
	switch cond := f.(type) {
	case TextCondition:
		return textPredicate(field, cond)
	case NumberCondition:
		return numberPredicate(field, cond)
	case DateCondition:
		return datePredicate(field, cond)
	case SetCondition:
		return bson.D{{Key: field, Value: bson.D{{Key: "$in", Value: cond.Values}}}}, nil
	case CompositeCondition:
		parts := make(bson.A, 0, len(cond.Conditions))
		for _, c := range cond.Conditions {
			p, err := predicate(field, c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		switch cond.Join {
		case JoinAnd:
			return bson.D{{Key: "$and", Value: parts}}, nil
		case JoinOr:
			return bson.D{{Key: "$or", Value: parts}}, nil
		default:
			return nil, &UnsupportedFeatureError{Feature: "filter join operator", Value: string(cond.Join)}
		}
	default:
		return nil, &UnsupportedFeatureError{Feature: "filter type", Value: string(f.Type())}
	}
}

func textPredicate(field string, c TextCondition) (bson.D, error) {
	quoted := regexp.QuoteMeta(c.Value)
	re := func(pattern string) bson.Regex {
		return bson.Regex{Pattern: pattern, Options: "i"}
	}
	switch c.Op {
	case OpEquals:
		return bson.D{{Key: field, Value: re("^" + quoted + "$")}}, nil
	case OpNotEqual:
		return bson.D{{Key: field, Value: bson.D{{Key: "$not", Value: re("^" + quoted + "$")}}}}, nil
	case OpContains:
		return bson.D{{Key: field, Value: re(quoted)}}, nil
	case OpNotContains:
		return bson.D{{Key: field, Value: bson.D{{Key: "$not", Value: re(quoted)}}}}, nil
	case OpStartsWith:
		return bson.D{{Key: field, Value: re("^" + quoted)}}, nil
	case OpEndsWith:
		return bson.D{{Key: field, Value: re(quoted + "$")}}, nil
	case OpBlank:
		return bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: field, Value: nil}},
			bson.D{{Key: field, Value: ""}},
		}}}, nil
	case OpNotBlank:
		return bson.D{{Key: field, Value: bson.D{{Key: "$nin", Value: bson.A{nil, ""}}}}}, nil
	default:
		return nil, &UnsupportedFeatureError{Feature: "text filter operator", Value: string(c.Op)}
	}
}

func numberPredicate(field string, c NumberCondition) (bson.D, error) {
	cmp := func(op string, v interface{}) bson.D {
		return bson.D{{Key: field, Value: bson.D{{Key: op, Value: v}}}}
	}
	switch c.Op {
	case OpEquals:
		return bson.D{{Key: field, Value: c.Value}}, nil
	case OpNotEqual:
		return cmp("$ne", c.Value), nil
	case OpLessThan:
		return cmp("$lt", c.Value), nil
	case OpLessThanOrEqual:
		return cmp("$lte", c.Value), nil
	case OpGreaterThan:
		return cmp("$gt", c.Value), nil
	case OpGreaterThanOrEqual:
		return cmp("$gte", c.Value), nil
	case OpInRange:
		return bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: c.Value}, {Key: "$lte", Value: c.To}}}}, nil
	case OpBlank:
		return bson.D{{Key: field, Value: nil}}, nil
	case OpNotBlank:
		return cmp("$ne", nil), nil
	default:
		return nil, &UnsupportedFeatureError{Feature: "number filter operator", Value: string(c.Op)}
	}
}

func datePredicate(field string, c DateCondition) (bson.D, error) {
	cmp := func(op string, v interface{}) bson.D {
		return bson.D{{Key: field, Value: bson.D{{Key: op, Value: v}}}}
	}
	from := c.From.UTC()
	dayStart := startOfDay(from)
	sameDay := bson.D{{Key: "$gte", Value: dayStart}, {Key: "$lt", Value: dayStart.AddDate(0, 0, 1)}}

	switch c.Op {
	case OpEquals:
		return bson.D{{Key: field, Value: sameDay}}, nil
	case OpNotEqual:
		return cmp("$not", sameDay), nil
	case OpLessThan:
		return cmp("$lt", from), nil
	case OpGreaterThan:
		return cmp("$gt", from), nil
	case OpInRange:
		to := c.To.UTC()
		// дата без времени включает весь последний день
		upper := bson.E{Key: "$lte", Value: to}
		if to.Equal(startOfDay(to)) {
			upper = bson.E{Key: "$lt", Value: to.AddDate(0, 0, 1)}
		}
		return bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: from}, upper}}}, nil
	case OpBlank:
		return bson.D{{Key: field, Value: nil}}, nil
	case OpNotBlank:
		return cmp("$ne", nil), nil
	default:
		return nil, &UnsupportedFeatureError{Feature: "date filter operator", Value: string(c.Op)}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
