package configbind

import (
	"encoding"
	"fmt"
	"reflect"
	"time"

	"github.com/marmos91/bootkit/pkg/datasize"
)

// Kind is the value type a configuration field is coerced to.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindBool
	KindFloat
	KindDuration
	KindDataSize
	KindEnum
	KindStringList
)

// String returns the name used in coercion messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindDuration:
		return "duration"
	case KindDataSize:
		return "data size"
	case KindEnum:
		return "enum"
	case KindStringList:
		return "string list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	dataSizeType        = reflect.TypeOf(datasize.Size(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// isText reports whether values of t decode through UnmarshalText.
func isText(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// isGroup reports whether t is a nested struct whose fields are flattened
// into dotted keys.
func isGroup(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && !isText(t)
}

// kindOf picks the coercion kind for a field type.
func kindOf(t reflect.Type, hasEnum bool) (Kind, error) {
	switch {
	case t == durationType:
		return KindDuration, nil
	case t == dataSizeType:
		return KindDataSize, nil
	case isText(t):
		return KindEnum, nil
	}

	switch t.Kind() {
	case reflect.String:
		if hasEnum {
			return KindEnum, nil
		}
		return KindString, nil
	case reflect.Bool:
		return KindBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return KindStringList, nil
		}
	}
	return 0, fmt.Errorf("unsupported field type %s", t)
}
