package configbind

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is implemented by config structs with cross-field rules.
type Validator interface {
	Validate() error
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report property names instead of Go field names.
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		tag, ok := sf.Tag.Lookup(TagConfig)
		if !ok {
			return sf.Name
		}
		name, _ := parseTag(tag)
		if name == "" {
			return sf.Name
		}
		return name
	})
	return v
}

// validate checks `validate` tags and the Validator interface.
func (s *Schema) validate(obj any, prefix string) []string {
	var msgs []string

	if err := structValidator.Struct(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				key := Qualify(prefix, namespaceKey(fe.Namespace()))
				msgs = append(msgs, fmt.Sprintf("Invalid configuration property '%s': %s", key, constraint(fe)))
			}
		} else {
			msgs = append(msgs, fmt.Sprintf("Invalid configuration '%s': %v", s.name, err))
		}
	}

	if v, ok := obj.(Validator); ok {
		if err := v.Validate(); err != nil {
			msgs = append(msgs, fmt.Sprintf("Invalid configuration '%s': %v", s.name, err))
		}
	}
	return msgs
}

// namespaceKey drops the struct type name from a validator namespace such
// as "ServerConfig.tls.cert".
func namespaceKey(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func constraint(fe validator.FieldError) string {
	tag := fe.Tag()
	if fe.Param() != "" {
		tag += "=" + fe.Param()
	}
	return fmt.Sprintf("must satisfy '%s'", tag)
}
