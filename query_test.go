package sheetcrud_test

import (
	"strings"
	"testing"

	sheetcrud "github.com/ideamans/go-sheetcrud"
)

func TestRecord_MatchesQuery(t *testing.T) {
	alice := sheetcrud.Record{
		ID:     "42",
		Values: map[string]interface{}{"name": "Alice", "age": int64(30), "email": "alice@example.com"},
	}

	tests := []struct {
		name  string
		conds []sheetcrud.Condition
		want  bool
	}{
		{"no conditions", nil, true},
		{"== string", []sheetcrud.Condition{{Column: "name", Operator: "==", Value: "Alice"}}, true},
		{"== mismatch", []sheetcrud.Condition{{Column: "name", Operator: "==", Value: "Bob"}}, false},
		{"== across numeric types", []sheetcrud.Condition{{Column: "age", Operator: "==", Value: 30.0}}, true},
		{"!=", []sheetcrud.Condition{{Column: "name", Operator: "!=", Value: "Bob"}}, true},
		{">", []sheetcrud.Condition{{Column: "age", Operator: ">", Value: 29}}, true},
		{">= equal", []sheetcrud.Condition{{Column: "age", Operator: ">=", Value: 30}}, true},
		{"<", []sheetcrud.Condition{{Column: "age", Operator: "<", Value: 30}}, false},
		{"<= equal", []sheetcrud.Condition{{Column: "age", Operator: "<=", Value: int64(30)}}, true},
		{"> on text", []sheetcrud.Condition{{Column: "name", Operator: ">", Value: 1}}, false},
		{"contains ignores case", []sheetcrud.Condition{{Column: "email", Operator: "contains", Value: "EXAMPLE"}}, true},
		{"contains mismatch", []sheetcrud.Condition{{Column: "email", Operator: "contains", Value: "corp"}}, false},
		{"in", []sheetcrud.Condition{{Column: "name", Operator: "in", Value: []interface{}{"Bob", "Alice"}}}, true},
		{"in mismatch", []sheetcrud.Condition{{Column: "name", Operator: "in", Value: []interface{}{"Bob"}}}, false},
		{"between array", []sheetcrud.Condition{{Column: "age", Operator: "between", Value: [2]interface{}{20, 30}}}, true},
		{"between slice", []sheetcrud.Condition{{Column: "age", Operator: "between", Value: []interface{}{31, 40}}}, false},
		{"id column", []sheetcrud.Condition{{Column: "id", Operator: "==", Value: "42"}}, true},
		{"missing column is nil", []sheetcrud.Condition{{Column: "phone", Operator: "==", Value: nil}}, true},
		{"missing column never contains", []sheetcrud.Condition{{Column: "phone", Operator: "contains", Value: ""}}, false},
		{"unknown operator", []sheetcrud.Condition{{Column: "name", Operator: "like", Value: "A"}}, false},
		{
			"all conditions must match",
			[]sheetcrud.Condition{
				{Column: "name", Operator: "==", Value: "Alice"},
				{Column: "age", Operator: ">", Value: 40},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := alice.MatchesQuery(sheetcrud.Query{Conditions: tt.conds})
			if got != tt.want {
				t.Errorf("MatchesQuery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyQuery(t *testing.T) {
	var records []*sheetcrud.Record
	for i, age := range []int64{30, 25, 41, 35, 19} {
		records = append(records, &sheetcrud.Record{
			ID:     string(rune('a' + i)),
			Values: map[string]interface{}{"age": age},
		})
	}

	tests := []struct {
		name  string
		query sheetcrud.Query
		want  []string
	}{
		{"all in order", sheetcrud.Query{}, []string{"a", "b", "c", "d", "e"}},
		{
			"filter keeps display order",
			sheetcrud.Query{Conditions: []sheetcrud.Condition{{Column: "age", Operator: ">=", Value: 30}}},
			[]string{"a", "c", "d"},
		},
		{"limit", sheetcrud.Query{Limit: 2}, []string{"a", "b"}},
		{"offset and limit", sheetcrud.Query{Offset: 1, Limit: 2}, []string{"b", "c"}},
		{"offset past end", sheetcrud.Query{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sheetcrud.ApplyQuery(records, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("ApplyQuery() returned %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.ID != tt.want[i] {
					t.Errorf("ApplyQuery()[%d].ID = %v, want %v", i, r.ID, tt.want[i])
				}
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name   string
		query  sheetcrud.Query
		errMsg string
	}{
		{"valid", sheetcrud.Query{Conditions: []sheetcrud.Condition{{Column: "age", Operator: ">", Value: 1}}, Limit: 10}, ""},
		{"unknown operator", sheetcrud.Query{Conditions: []sheetcrud.Condition{{Column: "age", Operator: "~", Value: 1}}}, "invalid operator"},
		{"in needs a list", sheetcrud.Query{Conditions: []sheetcrud.Condition{{Column: "age", Operator: "in", Value: 1}}}, "operator 'in' requires"},
		{"between needs two bounds", sheetcrud.Query{Conditions: []sheetcrud.Condition{{Column: "age", Operator: "between", Value: []interface{}{1}}}}, "operator 'between' requires"},
		{"empty column", sheetcrud.Query{Conditions: []sheetcrud.Condition{{Operator: "==", Value: 1}}}, "empty column name"},
		{"negative limit", sheetcrud.Query{Limit: -1}, "limit must be non-negative"},
		{"negative offset", sheetcrud.Query{Offset: -1}, "offset must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sheetcrud.ValidateQuery(tt.query)
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("ValidateQuery() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidateQuery() error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		expr    string
		want    sheetcrud.Condition
		wantErr bool
	}{
		{expr: "age>=30", want: sheetcrud.Condition{Column: "age", Operator: ">=", Value: int64(30), Text: "30"}},
		{expr: "age > 30", want: sheetcrud.Condition{Column: "age", Operator: ">", Value: int64(30), Text: "30"}},
		{expr: "name=Alice", want: sheetcrud.Condition{Column: "name", Operator: "==", Value: "Alice", Text: "Alice"}},
		{expr: "name==Alice", want: sheetcrud.Condition{Column: "name", Operator: "==", Value: "Alice", Text: "Alice"}},
		{expr: "name!=Bob", want: sheetcrud.Condition{Column: "name", Operator: "!=", Value: "Bob", Text: "Bob"}},
		{expr: "score<1.5", want: sheetcrud.Condition{Column: "score", Operator: "<", Value: 1.5, Text: "1.5"}},
		{expr: "email~=example", want: sheetcrud.Condition{Column: "email", Operator: "contains", Value: "example", Text: "example"}},
		{expr: "zip~=007", want: sheetcrud.Condition{Column: "zip", Operator: "contains", Value: "007", Text: "007"}},
		{expr: "active=true", want: sheetcrud.Condition{Column: "active", Operator: "==", Value: true, Text: "true"}},
		{expr: "id==007", want: sheetcrud.Condition{Column: "id", Operator: "==", Value: "007", Text: "007"}},
		{expr: "id=42", want: sheetcrud.Condition{Column: "id", Operator: "==", Value: "42", Text: "42"}},
		{expr: "age", wantErr: true},
		{expr: "=30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := sheetcrud.ParseCondition(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseCondition(%q) = %+v, want error", tt.expr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCondition(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("ParseCondition(%q) = %#v, want %#v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.14", 3.14},
		{"TRUE", true},
		{"false", false},
		{"hello", "hello"},
		{"", ""},
		{"0", int64(0)},
		{"0.5", 0.5},
		{"007", "007"},
		{"-007", "-007"},
		{"1.50", 1.5},
		{"Infinity", "Infinity"},
		{"-inf", "-inf"},
		{"NaN", "NaN"},
	}
	for _, tt := range tests {
		if got := sheetcrud.ParseScalar(tt.in); got != tt.want {
			t.Errorf("ParseScalar(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestParseCondition_MatchesText(t *testing.T) {
	records := []*sheetcrud.Record{
		{ID: "007", Values: map[string]interface{}{"name": "007", "age": int64(7)}},
		{ID: "7", Values: map[string]interface{}{"name": "Bond", "age": int64(44), "score": "12.5"}},
	}

	tests := []struct {
		expr string
		want []string
	}{
		{"id==007", []string{"007"}},
		{"id==7", []string{"7"}},
		{"name==007", []string{"007"}},
		{"name!=007", []string{"7"}},
		{"age==7", []string{"007"}},
		{"age>10", []string{"7"}},
		{"score>=12", []string{"7"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cond, err := sheetcrud.ParseCondition(tt.expr)
			if err != nil {
				t.Fatalf("ParseCondition(%q) error = %v", tt.expr, err)
			}
			got := []string{}
			for _, r := range sheetcrud.ApplyQuery(records, sheetcrud.Query{Conditions: []sheetcrud.Condition{cond}}) {
				got = append(got, r.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("%s matched %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}
