package sheetcrud

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDColumn is the column every adapter persists the record identifier in.
const IDColumn = "id"

// Record is one CRUD entity: a unique identifier plus free-form column values.
type Record struct {
	ID     string                 // id列 (作成時に一度だけ採番)
	Values map[string]interface{} // カラム名と値のマップ (idは含まない)
}

// NewID returns a fresh collision-resistant record identifier.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		ID:     r.ID,
		Values: make(map[string]interface{}, len(r.Values)),
	}
	for k, v := range r.Values {
		c.Values[k] = v
	}
	return c
}

// Merge returns a copy of the record with the draft values overlaid.
// A nil draft value removes the column. The id is never touched.
func (r *Record) Merge(d Draft) *Record {
	merged := r.Clone()
	for k, v := range d {
		if k == IDColumn {
			continue
		}
		if v == nil {
			delete(merged.Values, k)
		} else {
			merged.Values[k] = v
		}
	}
	return merged
}

// Draft returns the record values as a draft, without the id.
func (r *Record) Draft() Draft {
	d := make(Draft, len(r.Values))
	for k, v := range r.Values {
		d[k] = v
	}
	return d
}

// GetAsString returns the value as string or defaultValue if not found
func (r *Record) GetAsString(col string, defaultValue string) string {
	if col == IDColumn {
		return r.ID
	}
	v, ok := r.Values[col]
	if !ok || v == nil {
		return defaultValue
	}

	switch val := v.(type) {
	case string:
		return val
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// GetAsInt64 returns the value as int64 or defaultValue if not found
func (r *Record) GetAsInt64(col string, defaultValue int64) int64 {
	v, ok := r.Values[col]
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetAsFloat64 returns the value as float64 or defaultValue if not found
func (r *Record) GetAsFloat64(col string, defaultValue float64) float64 {
	v, ok := r.Values[col]
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetAsStrings returns the value as []string or defaultValue if not found
func (r *Record) GetAsStrings(col string, defaultValue []string) []string {
	v, ok := r.Values[col]
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case []string:
		return val
	case string:
		if val == "" {
			return []string{}
		}
		return strings.Split(val, ",")
	case []interface{}:
		result := make([]string, len(val))
		for i, item := range val {
			result[i] = fmt.Sprintf("%v", item)
		}
		return result
	}
	return defaultValue
}

// GetAsBool returns the value as bool or defaultValue if not found
func (r *Record) GetAsBool(col string, defaultValue bool) bool {
	v, ok := r.Values[col]
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "1"
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	return defaultValue
}

// TimestampLayout is the layout managed timestamp columns are written in.
const TimestampLayout = "2006-01-02 15:04:05"

// GetAsTime returns the value as time.Time or defaultValue if not found
func (r *Record) GetAsTime(col string, defaultValue time.Time) time.Time {
	v, ok := r.Values[col]
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		formats := []string{
			time.RFC3339,
			TimestampLayout,
			"2006-01-02",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, val); err == nil {
				return t
			}
		}
	}
	return defaultValue
}

func (r *Record) set(col string, value interface{}) {
	if r.Values == nil {
		r.Values = make(map[string]interface{})
	}
	r.Values[col] = value
}

// SetString sets a string value
func (r *Record) SetString(col string, value string) { r.set(col, value) }

// SetInt64 sets an int64 value
func (r *Record) SetInt64(col string, value int64) { r.set(col, value) }

// SetFloat64 sets a float64 value
func (r *Record) SetFloat64(col string, value float64) { r.set(col, value) }

// SetStrings sets a []string value (stored as comma-separated string)
func (r *Record) SetStrings(col string, value []string) { r.set(col, strings.Join(value, ",")) }

// SetBool sets a bool value
func (r *Record) SetBool(col string, value bool) { r.set(col, value) }

// SetTime sets a time.Time value (stored as ISO 8601 string)
func (r *Record) SetTime(col string, value time.Time) { r.set(col, value.Format(time.RFC3339)) }

// Draft is the set of field values collected by a form before confirmation.
type Draft map[string]interface{}

// Clone returns a shallow copy of the draft.
func (d Draft) Clone() Draft {
	if d == nil {
		return nil
	}
	c := make(Draft, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}
