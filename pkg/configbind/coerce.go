package configbind

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// coerce converts raw into target according to f. On failure it returns the
// reason reported to the user alongside the underlying error.
func coerce(target reflect.Value, f *Field, raw string) (string, error) {
	switch f.Kind {
	case KindStringList:
		parts := splitList(raw)
		list := reflect.MakeSlice(target.Type(), len(parts), len(parts))
		for i, p := range parts {
			list.Index(i).SetString(p)
		}
		target.Set(list)
		return "", nil

	case KindEnum:
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, raw) {
			reason := "expected one of " + strings.Join(f.Enum, ", ")
			return reason, fmt.Errorf("%s", reason)
		}
		if isText(target.Type()) {
			return unmarshalText(target, raw)
		}

	case KindDataSize:
		return unmarshalText(target, raw)

	case KindInt, KindBool, KindFloat, KindDuration:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			reason := "expected " + f.Kind.String()
			return reason, fmt.Errorf("%s", reason)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target.Addr().Interface(),
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return "expected " + f.Kind.String(), err
	}
	if err := decoder.Decode(raw); err != nil {
		return "expected " + f.Kind.String(), err
	}
	return "", nil
}

func unmarshalText(target reflect.Value, raw string) (string, error) {
	fresh := reflect.New(target.Type())
	u := fresh.Interface().(encoding.TextUnmarshaler)
	if err := u.UnmarshalText([]byte(raw)); err != nil {
		return err.Error(), err
	}
	target.Set(fresh.Elem())
	return "", nil
}

// render formats a field value for reports.
func render(v reflect.Value, kind Kind) string {
	if v.Type().Implements(textMarshalerType) {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err == nil {
			return string(text)
		}
	}
	if kind == KindStringList {
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = v.Index(i).String()
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v.Interface())
}

// jsonValue is the default as it should appear in a JSON schema.
func jsonValue(v reflect.Value, kind Kind, rendered string) any {
	switch kind {
	case KindInt, KindBool, KindFloat:
		return v.Interface()
	case KindStringList:
		return splitList(rendered)
	default:
		return rendered
	}
}
