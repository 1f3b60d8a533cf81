package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by record date fields.
const DateLayout = "2006-01-02"

// Reserved field names carried on Record itself rather than inside Fields.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
)

// Fields maps a field name to a scalar value (string, float64 or bool).
type Fields map[string]any

// Record is one persisted entity within a category.
type Record struct {
	ID        string    `bson:"id"`
	Category  Category  `bson:"category"`
	CreatedAt time.Time `bson:"created_at"`
	Fields    Fields    `bson:"fields"`
}

// MarshalJSON flattens the record into a single object, the shape the
// front-end tables consume.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[FieldID] = r.ID
	if !r.CreatedAt.IsZero() {
		flat[FieldCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(flat)
}

// IsReservedField reports whether name is carried on Record rather than in Fields.
func IsReservedField(name string) bool {
	return strings.EqualFold(name, FieldID) || strings.EqualFold(name, FieldCreatedAt)
}

// NormalizeFields validates the supplied values and returns a copy holding
// only strings, float64 and bools. Reserved keys are dropped and nil becomes "".
func NormalizeFields(in map[string]any) (Fields, error) {
	out := make(Fields, len(in))
	for key, raw := range in {
		name := strings.TrimSpace(key)
		if name == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInvalidField)
		}
		if IsReservedField(name) {
			continue
		}

		value, err := normalizeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidField, name, err)
		}
		out[name] = value
	}
	return out, nil
}

func normalizeValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string, bool, float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
		return v.String(), nil
	case time.Time:
		return v.Format(DateLayout), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}
}

// FormatValue renders a scalar field value in its canonical string form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		normalized, err := normalizeValue(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return FormatValue(normalized)
	}
}

// String returns the canonical string form of the field, or "" when absent.
func (f Fields) String(key string) string {
	return FormatValue(f[key])
}

// Number returns the numeric value of the field. Missing and non-numeric
// values count as zero.
func (f Fields) Number(key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Date returns the YYYY-MM-DD prefix of the field.
func (f Fields) Date(key string) string {
	s := strings.TrimSpace(f.String(key))
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return s
}

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// OrderedKeys returns the keys of f with the category's declared columns
// first, followed by the remaining keys sorted by name.
func OrderedKeys(c Category, f Fields) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]struct{}, len(f))
	for _, col := range c.Columns() {
		if _, ok := f[col]; ok {
			keys = append(keys, col)
			seen[col] = struct{}{}
		}
	}

	var extra []string
	for k := range f {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)

	return append(keys, extra...)
}
