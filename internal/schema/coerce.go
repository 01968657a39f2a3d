package schema

import (
	"fmt"
	"reflect"
	"strconv"
)

// CoerceValue coerces a request value to targetType. Lists accept any
// slice and wrap single values; custom scalars and input objects pass
// through unchanged.
func CoerceValue(value any, targetType *TypeRef) (any, error) {
	return coerceValue(value, targetType)
}

// SerializeScalar turns a resolved value into the result form of the named
// scalar. Unlike input coercion any value serializes as a String.
func SerializeScalar(value any, scalar string) (any, error) {
	if scalar == "String" && value != nil {
		if s, ok := value.(fmt.Stringer); ok {
			return s.String(), nil
		}
		return fmt.Sprintf("%v", value), nil
	}
	return coerceValue(value, NamedType(scalar))
}

func coerceValue(value any, targetType *TypeRef) (any, error) {
	if IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return coerceValue(value, Unwrap(targetType))
	}

	if value == nil {
		return nil, nil
	}

	if IsList(targetType) {
		return coerceListValue(value, targetType)
	}

	switch GetNamedType(targetType) {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	default:
		// custom scalars and input objects pass through
		return value, nil
	}
}

func coerceListValue(value any, listType *TypeRef) (any, error) {
	innerType := Unwrap(listType)
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			item, err := coerceValue(rv.Index(i).Interface(), innerType)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	}

	// Single value becomes a list of one
	item, err := coerceValue(value, innerType)
	if err != nil {
		return nil, err
	}
	return []any{item}, nil
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	case float32:
		if v == float32(int(v)) {
			return int(v), nil
		}
	case string:
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if floatVal, err := strconv.ParseFloat(v, 64); err == nil {
			return floatVal, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to string", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}
