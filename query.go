package sheetcrud

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Condition represents a single query condition
type Condition struct {
	Column   string      // カラム名 (idも指定可能)
	Operator string      // 演算子: ==, !=, >, >=, <, <=, contains, in, between
	Value    interface{} // 比較値（inの場合は[]interface{}, betweenの場合は[2]interface{}）

	// Text is the unparsed value of a textual condition. Text cells are
	// compared against it with == and != so "007" matches "007".
	Text string
}

// Query represents a query with multiple conditions
type Query struct {
	Conditions []Condition // AND条件として評価
	Limit      int
	Offset     int
}

var comparators = map[string]func(a, b interface{}) bool{
	"==":       compareEqual,
	"!=":       func(a, b interface{}) bool { return !compareEqual(a, b) },
	">":        numeric(func(a, b float64) bool { return a > b }),
	">=":       numeric(func(a, b float64) bool { return a >= b }),
	"<":        numeric(func(a, b float64) bool { return a < b }),
	"<=":       numeric(func(a, b float64) bool { return a <= b }),
	"contains": compareContains,
	"in":       compareIn,
	"between":  compareBetween,
}

// operators the text form accepts, longest first so ">=" wins over ">"
var textOperators = []string{"==", "!=", ">=", "<=", "~=", ">", "<", "="}

// ParseCondition parses the text form "column<op>value", e.g. "age>=30".
// "=" is accepted for "==" and "~=" means "contains". Value is typed by
// ParseScalar except for the id column; Text keeps the input as given.
func ParseCondition(expr string) (Condition, error) {
	for _, op := range textOperators {
		i := strings.Index(expr, op)
		if i <= 0 {
			continue
		}
		column := strings.TrimSpace(expr[:i])
		raw := strings.TrimSpace(expr[i+len(op):])
		switch op {
		case "=":
			op = "=="
		case "~=":
			return Condition{Column: column, Operator: "contains", Value: raw, Text: raw}, nil
		}
		if column == IDColumn {
			// idは常に文字列
			return Condition{Column: column, Operator: op, Value: raw, Text: raw}, nil
		}
		return Condition{Column: column, Operator: op, Value: ParseScalar(raw), Text: raw}, nil
	}
	return Condition{}, fmt.Errorf("invalid condition %q: expected column<op>value", expr)
}

// ParseScalar converts text into int64, float64, bool or string. Numbers
// with leading zeros and the Inf/NaN spellings stay strings.
func ParseScalar(s string) interface{} {
	if hasLeadingZero(s) {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	switch s {
	case "true", "TRUE":
		return true
	case "false", "FALSE":
		return false
	}
	return s
}

func hasLeadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// evalCondition evaluates a single condition against a record
func evalCondition(record *Record, condition Condition) bool {
	var value interface{}
	if condition.Column == IDColumn {
		value = record.ID
	} else if v, exists := record.Values[condition.Column]; exists {
		value = v
	}
	// カラムが存在しない場合、nullとして扱う

	// 文字列セルは入力どおりの文字列と比べる
	if text, isText := value.(string); isText && condition.Text != "" {
		switch condition.Operator {
		case "==":
			return text == condition.Text
		case "!=":
			return text != condition.Text
		}
	}

	cmp, ok := comparators[condition.Operator]
	if !ok {
		return false
	}
	return cmp(value, condition.Value)
}

// MatchesQuery checks if a record matches all conditions in the query
func (r *Record) MatchesQuery(query Query) bool {
	for _, condition := range query.Conditions {
		if !evalCondition(r, condition) {
			return false
		}
	}
	return true
}

// compareEqual compares two values for equality
func compareEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	// 数値の比較は型変換を考慮
	if isNumeric(a) && isNumeric(b) {
		return toFloat64(a) == toFloat64(b)
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func numeric(op func(a, b float64) bool) func(a, b interface{}) bool {
	return func(a, b interface{}) bool {
		a, b = asNumber(a), asNumber(b)
		if !isNumeric(a) || !isNumeric(b) {
			return false
		}
		return op(toFloat64(a), toFloat64(b))
	}
}

// asNumber lets numeric text from untyped columns take part in ordering
func asNumber(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return ParseScalar(strings.TrimSpace(s))
	}
	return v
}

// compareContains is a case-insensitive substring match on the text form
func compareContains(a, b interface{}) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.Contains(
		strings.ToLower(fmt.Sprintf("%v", a)),
		strings.ToLower(fmt.Sprintf("%v", b)),
	)
}

// compareIn checks if a is in the list b
func compareIn(a, b interface{}) bool {
	list, ok := b.([]interface{})
	if !ok {
		return false
	}

	for _, item := range list {
		if compareEqual(a, item) {
			return true
		}
	}
	return false
}

// compareBetween checks if a is between b[0] and b[1]
func compareBetween(a, b interface{}) bool {
	min, max, ok := bounds(b)
	if !ok {
		return false
	}

	a, min, max = asNumber(a), asNumber(min), asNumber(max)
	if !isNumeric(a) || !isNumeric(min) || !isNumeric(max) {
		return false
	}

	v := toFloat64(a)
	return v >= toFloat64(min) && v <= toFloat64(max)
}

func bounds(b interface{}) (interface{}, interface{}, bool) {
	switch v := b.(type) {
	case [2]interface{}:
		return v[0], v[1], true
	case []interface{}:
		if len(v) == 2 {
			return v[0], v[1], true
		}
	}
	return nil, nil, false
}

// isNumeric checks if a value is numeric
func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// toFloat64 converts a numeric value to float64
func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	default:
		return 0
	}
}

// ApplyQuery filters records based on query conditions, keeping their order
func ApplyQuery(records []*Record, query Query) []*Record {
	results := []*Record{}

	for _, record := range records {
		if record.MatchesQuery(query) {
			results = append(results, record)
		}
	}

	if query.Offset > 0 {
		if query.Offset >= len(results) {
			return []*Record{}
		}
		results = results[query.Offset:]
	}

	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}

	return results
}

// ValidateQuery validates query structure
func ValidateQuery(query Query) error {
	for i, cond := range query.Conditions {
		if _, ok := comparators[cond.Operator]; !ok {
			return fmt.Errorf("invalid operator '%s' in condition %d", cond.Operator, i)
		}

		if cond.Operator == "in" {
			if _, ok := cond.Value.([]interface{}); !ok {
				return fmt.Errorf("operator 'in' requires []interface{} value in condition %d", i)
			}
		}

		if cond.Operator == "between" {
			if _, _, ok := bounds(cond.Value); !ok {
				return fmt.Errorf("operator 'between' requires [2]interface{} or []interface{} with 2 elements in condition %d", i)
			}
		}

		if cond.Column == "" {
			return fmt.Errorf("empty column name in condition %d", i)
		}
	}

	if query.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	if query.Offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}

	return nil
}
