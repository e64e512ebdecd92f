// Package configbind binds configuration properties from a ledger into typed
// configuration structs.
//
// A Schema is derived from struct tags:
//
//	type ServerConfig struct {
//	    Port            int           `config:"port" default:"8080" validate:"min=1,max=65535"`
//	    ShutdownTimeout time.Duration `config:"shutdown-timeout" default:"10s"`
//	    Environment     string        `config:"environment,required" description:"deployment name"`
//	    Password        string        `config:"password" secret:"true"`
//	    Mode            string        `config:"mode" enum:"fast,safe" default:"safe"`
//	}
//
// Every tagged field maps to the property key "<prefix>.<name>" (or "<name>"
// when the prefix is empty). Untagged fields are ignored. Nested structs with
// a config tag contribute their own fields under "<name>.".
package configbind

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/marmos91/bootkit/pkg/properties"
)

// Struct tags understood by SchemaFor.
const (
	TagConfig      = "config"
	TagDefault     = "default"
	TagDescription = "description"
	TagSecret      = "secret"
	TagEnum        = "enum"
)

// Redacted replaces the value of secret properties in reports and messages.
const Redacted = "[REDACTED]"

// Field is one bindable property of a schema.
type Field struct {
	// Name is the key suffix, relative to the bind prefix.
	Name        string
	Kind        Kind
	Type        reflect.Type
	Required    bool
	Description string
	Secret      bool
	Enum        []string

	// Default is the rendered value of the field in the default object.
	Default string

	defaultValue any
	defaultTag   *string
	index        []int
}

// Schema describes how to build one configuration struct from properties.
type Schema struct {
	name     string
	typ      reflect.Type
	fields   []Field
	defaults func() any
}

// Option customizes a Schema.
type Option func(*schemaOptions)

type schemaOptions struct {
	defaults     func() any
	defaultsType reflect.Type
}

// WithDefaults supplies the object that unset optional fields keep. Default
// tags are applied on top of it.
func WithDefaults[T any](fn func() *T) Option {
	return func(o *schemaOptions) {
		o.defaults = func() any { return fn() }
		o.defaultsType = reflect.TypeOf((*T)(nil)).Elem()
	}
}

// SchemaFor builds the schema of config struct T. An empty name defaults to
// the Go type name.
func SchemaFor[T any](name string, opts ...Option) (*Schema, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("config type %s must be a struct", typ)
	}
	if name == "" {
		name = typ.Name()
	}

	var o schemaOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.defaults != nil && o.defaultsType != typ {
		return nil, fmt.Errorf("config %s: defaults are %s, want %s", name, o.defaultsType, typ)
	}

	s := &Schema{name: name, typ: typ, defaults: o.defaults}
	if err := s.collect(typ, nil, ""); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}

	seen := make(map[string]bool, len(s.fields))
	for _, f := range s.fields {
		if seen[f.Name] {
			return nil, fmt.Errorf("config %s: duplicate property %q", name, f.Name)
		}
		seen[f.Name] = true
	}

	obj, err := s.newObject()
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	root := obj.Elem()
	for i := range s.fields {
		f := &s.fields[i]
		v := root.FieldByIndex(f.index)
		f.Default = render(v, f.Kind)
		f.defaultValue = jsonValue(v, f.Kind, f.Default)
	}
	return s, nil
}

// MustSchema is SchemaFor for package-level declarations; it panics on error.
func MustSchema[T any](name string, opts ...Option) *Schema {
	s, err := SchemaFor[T](name, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Type returns the config struct type.
func (s *Schema) Type() reflect.Type { return s.typ }

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Keys returns the fully qualified property keys under prefix.
func (s *Schema) Keys(prefix string) []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = Qualify(prefix, f.Name)
	}
	return keys
}

// Qualify joins a prefix and a field name into a property key.
func Qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func (s *Schema) collect(typ reflect.Type, index []int, prefix string) error {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		tag, ok := sf.Tag.Lookup(TagConfig)
		if !ok || tag == "-" {
			continue
		}
		if !sf.IsExported() {
			return fmt.Errorf("field %s is not exported", sf.Name)
		}

		name, required := parseTag(tag)
		if name == "" || !properties.ValidKey(name) {
			return fmt.Errorf("field %s: invalid property name %q", sf.Name, name)
		}
		name = Qualify(prefix, name)
		idx := append(append([]int(nil), index...), i)

		if isGroup(sf.Type) {
			if required {
				return fmt.Errorf("field %s: nested config cannot be required", sf.Name)
			}
			if err := s.collect(sf.Type, idx, name); err != nil {
				return err
			}
			continue
		}

		enumTag, hasEnum := sf.Tag.Lookup(TagEnum)
		kind, err := kindOf(sf.Type, hasEnum)
		if err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
		if hasEnum && sf.Type.Kind() != reflect.String {
			return fmt.Errorf("field %s: enum tag requires a string field", sf.Name)
		}

		f := Field{
			Name:        name,
			Kind:        kind,
			Type:        sf.Type,
			Required:    required,
			Description: sf.Tag.Get(TagDescription),
			Secret:      sf.Tag.Get(TagSecret) == "true",
			index:       idx,
		}
		if hasEnum {
			f.Enum = splitList(enumTag)
		}
		if def, ok := sf.Tag.Lookup(TagDefault); ok {
			f.defaultTag = &def
		}
		s.fields = append(s.fields, f)
	}
	return nil
}

// parseTag splits `config:"name,required"`.
func parseTag(tag string) (name string, required bool) {
	name, rest, _ := strings.Cut(tag, ",")
	for _, opt := range strings.Split(rest, ",") {
		if strings.TrimSpace(opt) == "required" {
			required = true
		}
	}
	return strings.TrimSpace(name), required
}

// newObject returns a pointer to a fresh config struct holding the defaults.
func (s *Schema) newObject() (reflect.Value, error) {
	obj := reflect.New(s.typ)
	if s.defaults != nil {
		if d := reflect.ValueOf(s.defaults()); d.IsValid() && !d.IsNil() {
			obj.Elem().Set(d.Elem())
		}
	}
	root := obj.Elem()
	for i := range s.fields {
		f := &s.fields[i]
		if f.defaultTag == nil {
			continue
		}
		if _, err := coerce(root.FieldByIndex(f.index), f, *f.defaultTag); err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q for %s: %w", *f.defaultTag, f.Name, err)
		}
	}
	return obj, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
