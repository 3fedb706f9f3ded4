package conduit

import (
	"fmt"
	"reflect"
	"strings"
)

// formatArgs renders an Args value the way conduit.h's call_print_arg
// does, comma separated: an argument that is a fmt.Stringer or a primitive
// kind is printed as its value, any other argument as its type name. A struct Args is treated as one argument per field
// (matching argsToAny's flattening); any other value is printed whole.
func formatArgs(args any) string {
	parts := argsToAny(args)
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = formatArg(p)
	}
	return strings.Join(strs, ", ")
}

func formatArg(v any) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return fmt.Sprintf("%v", v)
	default:
		return rv.Type().String()
	}
}
