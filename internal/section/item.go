package section

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Item is one entry of a list section. Items are free-form but must carry an
// "id" (string or number) unique within their list.
type Item map[string]any

// ID returns the item's id as a string, or "" when it has none.
func (it Item) ID() string {
	return Stringify(it["id"])
}

// String returns field as a string, or "" when absent.
func (it Item) String(field string) string {
	return Stringify(it[field])
}

// IsSet reports whether field holds a non-blank string or a non-zero time.
// Numbers, booleans and empty values do not count as set.
func (it Item) IsSet(field string) bool {
	switch val := it[field].(type) {
	case string:
		return strings.TrimSpace(val) != ""
	case time.Time:
		return !val.IsZero()
	default:
		return false
	}
}

// Clone returns a shallow copy of the item.
func (it Item) Clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// Stringify renders scalar JSON values the way they compare as ids: numbers
// without exponent or trailing zeros, booleans as true/false, nil as "".
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// restoreNumbers walks a value decoded with json.Number and turns each number
// float64 can hold exactly back into a float64. Others stay json.Number, so
// they round-trip without losing digits.
func restoreNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err == nil && strconv.FormatFloat(f, 'f', -1, 64) == val.String() {
			return f
		}
		return val
	case map[string]any:
		for k, e := range val {
			val[k] = restoreNumbers(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = restoreNumbers(e)
		}
		return val
	default:
		return v
	}
}

// Document is the stored form of a document section.
type Document struct {
	Data      map[string]any `json:"data"`
	Status    string         `json:"status"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Patch is a shallow update to a Document. Nil fields are left unchanged;
// a non-nil Data replaces the document's data wholesale.
type Patch struct {
	Data   map[string]any
	Status *string
}
