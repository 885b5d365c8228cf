package issue

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// applyFields merges fields into iss with no whitelist.
//
// Schema keys are coerced to the field's type: strings accept any scalar,
// open accepts a bool or a strconv.ParseBool string, created_on accepts a
// time.Time or an RFC 3339 string. _id and updated_on are skipped; the ID is
// immutable and updated_on is refreshed by the store after every merge.
// Every other key is stored verbatim in Extra.
//
// On error iss may be partially modified, so callers merge into a clone.
func applyFields(iss *Issue, fields Fields) error {
	for key, value := range fields {
		switch key {
		case FieldID, FieldUpdatedOn:
			continue
		case FieldTitle:
			iss.Title = stringValue(value)
		case FieldText:
			iss.Text = stringValue(value)
		case FieldCreatedBy:
			iss.CreatedBy = stringValue(value)
		case FieldAssignedTo:
			iss.AssignedTo = stringValue(value)
		case FieldStatusText:
			iss.StatusText = stringValue(value)
		case FieldOpen:
			open, err := boolValue(value)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", FieldOpen, err)
			}
			iss.Open = open
		case FieldCreatedOn:
			at, err := timeValue(value)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", FieldCreatedOn, err)
			}
			iss.CreatedAt = at
		default:
			if iss.Extra == nil {
				iss.Extra = make(map[string]any)
			}
			iss.Extra[key] = cloneValue(value)
		}
	}
	return nil
}

// updatableKeys counts the keys applyFields would act on.
func updatableKeys(fields Fields) int {
	n := 0
	for key := range fields {
		if key != FieldID {
			n++
		}
	}
	return n
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func boolValue(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(t)
	default:
		return false, fmt.Errorf("unsupported type %T", v)
	}
}

func timeValue(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}

// matches reports whether iss holds every filter value under its key.
// Comparison is strict: values must share a dynamic type and be equal, and
// a missing field never matches.
func matches(iss *Issue, filters Filters) bool {
	for key, want := range filters {
		got, ok := iss.Value(key)
		if !ok || !strictEqual(got, want) {
			return false
		}
	}
	return true
}

func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
