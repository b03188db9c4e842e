package dialogscript

import (
	"fmt"
	"math"
	"reflect"
)

// FuncMap maps a built-in/host function name to a Go function value. Scripts
// call these via CALL_FUNC; execCallFunc (dispatch.go) converts popped stack
// Values to the function's declared parameter types via reflection — this
// is the idiomatic-Go shape of the built-in function table (spec.md §4.4,
// §9 "a mapping from name to a closure"), letting built-ins and
// host-registered functions alike be written with natural Go signatures
// instead of manually popping (vm, argc) pairs.
type FuncMap map[string]interface{}

// merge returns a FuncMap containing m's entries overridden by other's.
func (m FuncMap) merge(other FuncMap) FuncMap {
	if len(other) == 0 {
		return m
	}
	out := make(FuncMap, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	boolType    = reflect.TypeOf(true)
	float32Type = reflect.TypeOf(float32(0))
	float64Type = reflect.TypeOf(float64(0))
	intType     = reflect.TypeOf(int(0))
	stringType  = reflect.TypeOf("")
)

// ConvertToBool converts v to bool, per the same falsiness rule as
// Value.Truthy.
func ConvertToBool(v Value) (bool, error) { return v.Truthy(), nil }

// ConvertToFloat32 converts v to float32.
func ConvertToFloat32(v Value) (float32, error) {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.Number()
		return n, nil
	case KindBool:
		b, _ := v.Bool()
		if b {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: cannot convert %s to number", ErrWrongType, v.Kind())
	}
}

// ConvertToFloat64 converts v to float64.
func ConvertToFloat64(v Value) (float64, error) {
	f, err := ConvertToFloat32(v)
	return float64(f), err
}

// ConvertToInt converts v to int, truncating toward zero.
func ConvertToInt(v Value) (int, error) {
	f, err := ConvertToFloat32(v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ConvertToString converts v to its string form (same as Value.String).
func ConvertToString(v Value) (string, error) { return v.String(), nil }

// valueToReflect converts a stack Value to a reflect.Value matching want,
// the corresponding built-in's declared parameter type.
func valueToReflect(v Value, want reflect.Type) (reflect.Value, error) {
	switch want {
	case float32Type:
		f, err := ConvertToFloat32(v)
		return reflect.ValueOf(f), err
	case float64Type:
		f, err := ConvertToFloat64(v)
		return reflect.ValueOf(f), err
	case intType:
		n, err := ConvertToInt(v)
		return reflect.ValueOf(n), err
	case boolType:
		b, err := ConvertToBool(v)
		return reflect.ValueOf(b), err
	case stringType:
		s, _ := ConvertToString(v)
		return reflect.ValueOf(s), nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: unsupported built-in parameter type %s", ErrFunctionArgMismatch, want)
	}
}

// reflectToValue converts a built-in's return value back into a stack
// Value.
func reflectToValue(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return Number(float32(rv.Float())), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float32(rv.Int())), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	default:
		return Null, fmt.Errorf("%w: unsupported built-in return type %s", ErrFunctionArgMismatch, rv.Type())
	}
}

// defaultFuncMap builds the fixed built-in library (spec.md §4.4), bound to
// vm so random()/visited() can reach its RNG and variable storage.
func defaultFuncMap(vm *VirtualMachine) FuncMap {
	return FuncMap{
		"Number.Add":                  func(a, b float32) float32 { return a + b },
		"Number.Minus":                func(a, b float32) float32 { return a - b },
		"Number.Multiply":             func(a, b float32) float32 { return a * b },
		"Number.Divide":               func(a, b float32) float32 { return a / b },
		"Number.Modulo":               func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) },
		"Number.EqualTo":              func(a, b float32) bool { return a == b },
		"Number.LessThan":             func(a, b float32) bool { return a < b },
		"Number.GreaterThan":          func(a, b float32) bool { return a > b },
		"Number.LessThanOrEqualTo":    func(a, b float32) bool { return a <= b },
		"Number.GreaterThanOrEqualTo": func(a, b float32) bool { return a >= b },

		// Bool.Xor is prescribed as true exclusive-or (spec.md §9 Open
		// Question 1: the C++ original implements this as `a && b`, a bug).
		"Bool.And": func(a, b bool) bool { return a && b },
		"Bool.Or":  func(a, b bool) bool { return a || b },
		"Bool.Xor": func(a, b bool) bool { return a != b },
		"Bool.Not": func(a bool) bool { return !a },

		"visited": func(node string) bool {
			return vm.visitedCount(node) > 0
		},
		"visited_count": func(node string) float32 {
			return float32(vm.visitedCount(node))
		},

		"random": func() float32 {
			return vm.rng.Float32()
		},
		"random_range": func(a, b float32) float32 {
			return float32(vm.rng.IntRange(int64(a), int64(b)))
		},
		"dice": func(sides float32) float32 {
			return float32(vm.rng.IntRange(1, int64(sides)))
		},

		"round": func(n float32) float32 { return float32(math.Round(float64(n))) },
		"round_places": func(n, places float32) float32 {
			scale := math.Pow(10, float64(int(places)))
			return float32(math.Round(float64(n)*scale) / scale)
		},
		"floor": func(n float32) float32 { return float32(math.Floor(float64(n))) },
		"ceil":  func(n float32) float32 { return float32(math.Ceil(float64(n))) },
		"inc": func(n float32) float32 {
			c := math.Ceil(float64(n))
			if c == float64(n) {
				return float32(c + 1)
			}
			return float32(c)
		},
		"dec": func(n float32) float32 {
			f := math.Floor(float64(n))
			if f == float64(n) {
				return float32(f - 1)
			}
			return float32(f)
		},
		"decimal": func(n float32) float32 {
			_, frac := math.Modf(float64(n))
			return float32(frac)
		},
		"int": func(n float32) float32 { return float32(math.Trunc(float64(n))) },
	}
}
