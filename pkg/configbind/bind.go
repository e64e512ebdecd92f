package configbind

import (
	"fmt"

	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/ledger"
)

// PropertyReport describes one bound property for the configuration report.
type PropertyReport struct {
	Component   string `json:"component,omitempty" yaml:"component,omitempty"`
	Key         string `json:"key" yaml:"key"`
	Default     string `json:"default" yaml:"default"`
	Runtime     string `json:"runtime" yaml:"runtime"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Secret      bool   `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// Bound is a realized configuration object.
type Bound struct {
	Schema     *Schema
	Prefix     string
	Object     any
	Properties []PropertyReport

	// Unused lists keys under Prefix that no schema consumed.
	Unused []string
}

// UnusedError returns the UnusedConfiguration error for b.Unused, or nil.
func (b *Bound) UnusedError() error {
	if len(b.Unused) == 0 {
		return nil
	}
	return bserrors.NewUnusedPropertyError(b.Unused)
}

// Request asks BindAll to bind one schema.
type Request struct {
	ID     string
	Schema *Schema
	Prefix string
}

// Result holds every object bound by BindAll.
type Result struct {
	bound map[string]*Bound
	order []string
}

// Get returns the bound config for id.
func (r *Result) Get(id string) (*Bound, bool) {
	b, ok := r.bound[id]
	return b, ok
}

// Objects returns the config objects keyed by request id.
func (r *Result) Objects() map[string]any {
	out := make(map[string]any, len(r.bound))
	for id, b := range r.bound {
		out[id] = b.Object
	}
	return out
}

// Reports returns the property reports of every request, in request order.
func (r *Result) Reports() []PropertyReport {
	var out []PropertyReport
	for _, id := range r.order {
		out = append(out, r.bound[id].Properties...)
	}
	return out
}

// Unused returns the per-prefix unused keys, keyed by request id. Requests
// without unused keys are omitted.
func (r *Result) Unused() map[string][]string {
	out := make(map[string][]string)
	for _, id := range r.order {
		if keys := r.bound[id].Unused; len(keys) > 0 {
			out[id] = keys
		}
	}
	return out
}

// Bind builds one config object from l. Every key the schema names is read
// through ConsumeIfPresent, so it is marked consumed even when coercion fails.
func Bind(l *ledger.Ledger, schema *Schema, prefix string) (*Bound, error) {
	var errs phaseErrors
	b := schema.bind(l, prefix, "", &errs)
	b.Unused = l.UnconsumedWithPrefix(prefix)
	return b, errs.err()
}

// BindAll binds every request with a schema. Errors from all requests are
// aggregated into one InitError. Unused keys are computed per prefix once
// every request has been bound.
func BindAll(l *ledger.Ledger, reqs []Request) (*Result, error) {
	res := &Result{bound: make(map[string]*Bound, len(reqs))}
	var errs phaseErrors

	for _, req := range reqs {
		if req.Schema == nil {
			continue
		}
		res.bound[req.ID] = req.Schema.bind(l, req.Prefix, req.ID, &errs)
		res.order = append(res.order, req.ID)
	}
	for _, id := range res.order {
		b := res.bound[id]
		b.Unused = l.UnconsumedWithPrefix(b.Prefix)
	}
	return res, errs.err()
}

func (s *Schema) bind(l *ledger.Ledger, prefix, component string, errs *phaseErrors) *Bound {
	obj, err := s.newObject()
	if err != nil {
		// Defaults were checked by SchemaFor.
		panic(err)
	}
	root := obj.Elem()

	failed := false
	for i := range s.fields {
		f := &s.fields[i]
		key := Qualify(prefix, f.Name)

		raw, ok := l.ConsumeIfPresent(key)
		if !ok {
			if f.Required {
				errs.missing = append(errs.missing, fmt.Sprintf("Configuration property '%s' is required", key))
				failed = true
			}
			continue
		}

		if reason, err := coerce(root.FieldByIndex(f.index), f, raw); err != nil {
			shown := raw
			if f.Secret {
				shown = Redacted
			}
			errs.coercion = append(errs.coercion,
				fmt.Sprintf("Invalid value '%s' for configuration property '%s': %s", shown, key, reason))
			failed = true
		}
	}

	if !failed {
		errs.validation = append(errs.validation, s.validate(obj.Interface(), prefix)...)
	}

	b := &Bound{Schema: s, Prefix: prefix, Object: obj.Interface()}
	for _, f := range s.fields {
		r := PropertyReport{
			Component:   component,
			Key:         Qualify(prefix, f.Name),
			Default:     f.Default,
			Runtime:     render(root.FieldByIndex(f.index), f.Kind),
			Description: f.Description,
			Secret:      f.Secret,
		}
		if f.Secret {
			r.Default = redact(r.Default)
			r.Runtime = redact(r.Runtime)
		}
		b.Properties = append(b.Properties, r)
	}
	return b
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	return Redacted
}

// phaseErrors groups binding messages by kind. The aggregate takes the kind
// of the first non-empty group: coercion, then missing, then validation.
type phaseErrors struct {
	coercion   []string
	missing    []string
	validation []string
}

func (p *phaseErrors) err() error {
	c := bserrors.NewCollector(0)
	for _, m := range p.coercion {
		c.Add(bserrors.ErrConfigCoercion, m)
	}
	for _, m := range p.missing {
		c.Add(bserrors.ErrMissingRequired, m)
	}
	for _, m := range p.validation {
		c.Add(bserrors.ErrConfigValidation, m)
	}
	return c.Err()
}
