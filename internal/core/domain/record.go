// internal/core/domain/record.go
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is one document of a doctype, as returned by the backend.
// The schema belongs to the backend; only "name" is guaranteed.
type Record map[string]any

// Name returns the backend-assigned identifier of the record.
func (r Record) Name() string {
	return r.String("name")
}

// String returns the field as a string, or "" when absent or null.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the field as an int. Frappe sends check fields as 0/1
// and counts as JSON numbers, so both are accepted.
func (r Record) Int(field string) int {
	switch t := r[field].(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

// Bool reports whether a check field is set.
func (r Record) Bool(field string) bool {
	return r.Int(field) != 0
}

// Decimal returns a numeric field as a decimal. Quantities such as
// Bin.actual_qty are floats on the wire.
func (r Record) Decimal(field string) decimal.Decimal {
	switch t := r[field].(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err == nil {
			return d
		}
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
