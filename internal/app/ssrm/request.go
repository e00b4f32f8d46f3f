package ssrm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxPageSize - ограничение окна endRow-startRow, если сервер не задал свое
const DefaultMaxPageSize = 1000

type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggAvg   AggFunc = "avg"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
	AggCount AggFunc = "count"
)

// ParseAggFunc разбирает имя функции агрегации; пустое имя означает sum
func ParseAggFunc(name string) (AggFunc, error) {
	switch agg := AggFunc(strings.ToLower(strings.TrimSpace(name))); agg {
	case "":
		return AggSum, nil
	case AggSum, AggAvg, AggMin, AggMax, AggCount:
		return agg, nil
	default:
		return "", &UnsupportedFeatureError{Feature: "aggregation function", Value: name}
	}
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type ColumnSpec struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName,omitempty"`
	Field       string  `json:"field" validate:"required"`
	AggFunc     AggFunc `json:"aggFunc,omitempty"`
}

type SortModelItem struct {
	ColID string        `json:"colId" validate:"required"`
	Sort  SortDirection `json:"sort" validate:"oneof=asc desc"`
}

// Request - провалидированный SSRM запрос грида
type Request struct {
	StartRow     int               `json:"startRow" validate:"min=0"`
	EndRow       int               `json:"endRow" validate:"gtefield=StartRow"`
	RowGroupCols []ColumnSpec      `json:"rowGroupCols" validate:"dive"`
	ValueCols    []ColumnSpec      `json:"valueCols" validate:"dive"`
	PivotCols    []ColumnSpec      `json:"pivotCols" validate:"dive"`
	PivotMode    bool              `json:"pivotMode"`
	GroupKeys    []interface{}     `json:"groupKeys"`
	FilterModel  map[string]Filter `json:"-"`
	SortModel    []SortModelItem   `json:"sortModel" validate:"dive"`
	Fields       []string          `json:"fields,omitempty"`
	Database     string            `json:"database,omitempty"`
	Collection   string            `json:"collection,omitempty"`
}

// Depth - уровень группировки, на котором находится запрос
func (r *Request) Depth() int {
	return len(r.GroupKeys)
}

// IsLeaf сообщает, что все группы раскрыты и ответ состоит из документов
func (r *Request) IsLeaf() bool {
	return len(r.GroupKeys) >= len(r.RowGroupCols)
}

func (r *Request) PivotActive() bool {
	return r.PivotMode && len(r.PivotCols) > 0
}

func (r *Request) PageSize() int {
	return r.EndRow - r.StartRow
}

// FieldFor переводит id колонки грида в путь поля документа
func (r *Request) FieldFor(colID string) string {
	for _, cols := range [][]ColumnSpec{r.RowGroupCols, r.ValueCols, r.PivotCols} {
		for _, col := range cols {
			if col.ID == colID || col.Field == colID {
				return col.Field
			}
		}
	}
	return colID
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type rawColumn struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Field       string `json:"field"`
	AggFunc     string `json:"aggFunc"`
}

type rawSort struct {
	ColID string `json:"colId"`
	Sort  string `json:"sort"`
}

// ParseRequest разбирает тело запроса, проставляет значения по умолчанию и проверяет ограничения.
// Окно больше maxPageSize обрезается.
func ParseRequest(body []byte, maxPageSize int) (*Request, error) {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, validationf("failed to parse request body: %v", err)
	}
	if _, ok := decoded.(map[string]interface{}); !ok {
		return nil, validationf("request body must be a JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, validationf("failed to parse request body: %v", err)
	}

	req := &Request{}

	startRow, hasStart, err := decodeRowIndex(fields, "startRow")
	if err != nil {
		return nil, err
	}
	endRow, hasEnd, err := decodeRowIndex(fields, "endRow")
	if err != nil {
		return nil, err
	}
	if !hasStart {
		startRow = 0
	}
	if !hasEnd {
		endRow = startRow + maxPageSize
	}
	if endRow < startRow {
		return nil, validationf("endRow (%d) must not be less than startRow (%d)", endRow, startRow)
	}
	if endRow-startRow > maxPageSize {
		endRow = startRow + maxPageSize
	}
	req.StartRow, req.EndRow = startRow, endRow

	if req.RowGroupCols, err = decodeColumns(fields, "rowGroupCols", false); err != nil {
		return nil, err
	}
	if req.ValueCols, err = decodeColumns(fields, "valueCols", true); err != nil {
		return nil, err
	}
	if req.PivotCols, err = decodeColumns(fields, "pivotCols", false); err != nil {
		return nil, err
	}

	req.GroupKeys = []interface{}{}
	if err := decodeArray(fields, "groupKeys", &req.GroupKeys); err != nil {
		return nil, err
	}
	if req.GroupKeys == nil {
		req.GroupKeys = []interface{}{}
	}
	if len(req.GroupKeys) > len(req.RowGroupCols) {
		return nil, validationf("groupKeys has %d entries but only %d row group columns are defined",
			len(req.GroupKeys), len(req.RowGroupCols))
	}

	var sorts []rawSort
	if err := decodeArray(fields, "sortModel", &sorts); err != nil {
		return nil, err
	}
	req.SortModel = make([]SortModelItem, 0, len(sorts))
	for _, s := range sorts {
		req.SortModel = append(req.SortModel, SortModelItem{
			ColID: s.ColID,
			Sort:  SortDirection(strings.ToLower(s.Sort)),
		})
	}

	if err := decodeArray(fields, "fields", &req.Fields); err != nil {
		return nil, err
	}

	if raw, ok := present(fields, "pivotMode"); ok {
		if err := json.Unmarshal(raw, &req.PivotMode); err != nil {
			return nil, validationf("pivotMode must be a boolean")
		}
	}
	if req.Database, err = decodeString(fields, "database"); err != nil {
		return nil, err
	}
	if req.Collection, err = decodeString(fields, "collection"); err != nil {
		return nil, err
	}

	if err := validate.Struct(req); err != nil {
		return nil, describeValidation(err)
	}

	if raw, ok := present(fields, "filterModel"); ok {
		if req.FilterModel, err = parseFilterModel(raw); err != nil {
			return nil, err
		}
	}

	if err := resolveAggFuncs(req.ValueCols); err != nil {
		return nil, err
	}

	return req, nil
}

// resolveAggFuncs заменяет сырые имена функций агрегации на известные значения.
// Неизвестная функция дает 501 только для структурно корректного запроса.
func resolveAggFuncs(cols []ColumnSpec) error {
	for i := range cols {
		agg, err := ParseAggFunc(string(cols[i].AggFunc))
		if err != nil {
			return err
		}
		cols[i].AggFunc = agg
	}
	return nil
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		name := strings.TrimPrefix(fe.Namespace(), "Request.")
		if fe.Param() != "" {
			return validationf("%s failed %s=%s validation", name, fe.Tag(), fe.Param())
		}
		return validationf("%s failed %s validation", name, fe.Tag())
	}
	return validationf("invalid request: %v", err)
}

// present возвращает значение ключа, если оно есть и не равно null
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

func decodeArray(fields map[string]json.RawMessage, key string, dst interface{}) error {
	raw, ok := present(fields, key)
	if !ok {
		return nil
	}
	if raw[0] != '[' {
		return validationf("%s must be an array", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return validationf("invalid %s: %v", key, err)
	}
	return nil
}

func decodeString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := present(fields, key)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", validationf("%s must be a string", key)
	}
	return strings.TrimSpace(s), nil
}

func decodeRowIndex(fields map[string]json.RawMessage, key string) (int, bool, error) {
	raw, ok := present(fields, key)
	if !ok {
		return 0, false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, false, validationf("%s must be a non-negative integer", key)
	}
	num, isNum := v.(json.Number)
	if !isNum {
		return 0, false, validationf("%s must be a non-negative integer", key)
	}
	n, err := num.Int64()
	if err != nil || n < 0 {
		return 0, false, validationf("%s must be a non-negative integer, got %s", key, num.String())
	}
	return int(n), true, nil
}

func decodeColumns(fields map[string]json.RawMessage, key string, withAgg bool) ([]ColumnSpec, error) {
	var raws []rawColumn
	if err := decodeArray(fields, key, &raws); err != nil {
		return nil, err
	}
	cols := make([]ColumnSpec, 0, len(raws))
	for i, rc := range raws {
		col := ColumnSpec{
			ID:          strings.TrimSpace(rc.ID),
			DisplayName: rc.DisplayName,
			Field:       strings.TrimSpace(rc.Field),
		}
		if col.Field == "" {
			col.Field = col.ID
		}
		if col.ID == "" {
			col.ID = col.Field
		}
		if withAgg {
			// разбирается после структурных проверок, см. resolveAggFuncs
			col.AggFunc = AggFunc(rc.AggFunc)
		}
		if col.Field == "" {
			return nil, validationf("%s[%d] must define id or field", key, i)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (c ColumnSpec) String() string {
	if c.AggFunc != "" {
		return fmt.Sprintf("%s(%s)", c.AggFunc, c.Field)
	}
	return c.Field
}
