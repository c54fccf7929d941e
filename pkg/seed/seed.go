// Package seed loads a catalog definition (attributes, component types,
// compatibility rules and products) from YAML and applies it to the
// stores.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/pcshop/configurator/pkg/catalog"
)

// File is the top-level seed document.
type File struct {
	Attributes     []AttributeSpec     `yaml:"attributes" json:"attributes"`
	ComponentTypes []ComponentTypeSpec `yaml:"componentTypes" json:"componentTypes"`
	Rules          []RuleSpec          `yaml:"rules" json:"rules"`
	Products       []ProductSpec       `yaml:"products" json:"products"`
}

// AttributeSpec declares an attribute.
type AttributeSpec struct {
	Name            string           `yaml:"name" json:"name"`
	DataType        catalog.DataType `yaml:"dataType" json:"dataType"`
	Unit            string           `yaml:"unit,omitempty" json:"unit,omitempty"`
	Required        bool             `yaml:"required,omitempty" json:"required,omitempty"`
	Critical        bool             `yaml:"critical,omitempty" json:"critical,omitempty"`
	ValidationRegex string           `yaml:"validationRegex,omitempty" json:"validationRegex,omitempty"`
	Options         []string         `yaml:"options,omitempty" json:"options,omitempty"`
}

func (a AttributeSpec) model() catalog.Attribute {
	return catalog.Attribute{
		Name:                  a.Name,
		DataType:              a.DataType,
		Unit:                  a.Unit,
		IsRequired:            a.Required,
		CompatibilityCritical: a.Critical,
		ValidationRegex:       a.ValidationRegex,
		EnumOptions:           catalog.JSONStringSlice(a.Options),
	}
}

// ComponentTypeSpec declares a build slot and its compatibility attributes
// by name.
type ComponentTypeSpec struct {
	Slug       string   `yaml:"slug" json:"slug"`
	Name       string   `yaml:"name" json:"name"`
	Required   bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Order      int      `yaml:"order,omitempty" json:"order,omitempty"`
	Attributes []string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// RuleSpec is a rule expression with an optional description. In YAML it
// is either a plain string or a mapping with expr and description.
type RuleSpec struct {
	Expr        string `yaml:"expr" json:"expr"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (r *RuleSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Expr = node.Value
		return nil
	}
	type plain RuleSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = RuleSpec(p)
	return nil
}

// ProductSpec declares a product. Values are keyed by attribute name.
type ProductSpec struct {
	Slug     string         `yaml:"slug" json:"slug"`
	Name     string         `yaml:"name" json:"name"`
	Type     string         `yaml:"type,omitempty" json:"type,omitempty"`
	Price    string         `yaml:"price" json:"price"`
	Quantity int            `yaml:"quantity" json:"quantity"`
	Values   map[string]any `yaml:"values,omitempty" json:"values,omitempty"`
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &f, nil
}

// Problem is one validation finding.
type Problem struct {
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
}

func (p Problem) String() string { return p.Path + ": " + p.Message }

// ValidationErrors collects every problem found in a seed file.
type ValidationErrors []Problem

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return "invalid seed: " + v[0].String()
	}
	return fmt.Sprintf("invalid seed: %s (and %d more)", v[0], len(v)-1)
}

// Validate checks the file without touching a database: names are unique,
// references resolve, rule expressions parse and product values match
// their attribute's data type. It returns nil or a ValidationErrors.
func (f *File) Validate() error {
	var problems ValidationErrors
	add := func(path, format string, args ...any) {
		problems = append(problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	attrs := make(map[string]catalog.Attribute, len(f.Attributes))
	for i, a := range f.Attributes {
		path := fmt.Sprintf("attributes[%d]", i)
		switch {
		case a.Name == "":
			add(path, "name is required")
			continue
		case !a.DataType.Valid():
			add(path, "unsupported data type %q", a.DataType)
		case a.DataType != catalog.TypeEnum && len(a.Options) > 0:
			add(path, "options are only allowed on enum attributes")
		}
		if _, dup := attrs[a.Name]; dup {
			add(path, "duplicate attribute %q", a.Name)
		}
		attrs[a.Name] = a.model()
	}

	types := make(map[string]ComponentTypeSpec, len(f.ComponentTypes))
	for i, ct := range f.ComponentTypes {
		path := fmt.Sprintf("componentTypes[%d]", i)
		if ct.Slug == "" || ct.Name == "" {
			add(path, "name and slug are required")
			continue
		}
		if _, dup := types[ct.Slug]; dup {
			add(path, "duplicate component type %q", ct.Slug)
		}
		for _, name := range ct.Attributes {
			if _, ok := attrs[name]; !ok {
				add(path, "unknown attribute %q", name)
			}
		}
		types[ct.Slug] = ct
	}

	for i, rs := range f.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		expr, err := ParseRule(rs.Expr)
		if err != nil {
			add(path, "%v", err)
			continue
		}
		if expr.Source.Type == expr.Target.Type {
			add(path, "source and target component types must differ")
		}
		for _, ref := range []struct {
			ref   AttrRef
			value *string
		}{{expr.Source, expr.When}, {expr.Target, expr.Then}} {
			if _, ok := types[ref.ref.Type]; !ok {
				add(path, "unknown component type %q", ref.ref.Type)
			}
			attr, ok := attrs[ref.ref.Attribute]
			if !ok {
				add(path, "unknown attribute %q", ref.ref.Attribute)
				continue
			}
			if ref.value != nil {
				if _, err := catalog.Validate(&attr, *ref.value); err != nil {
					add(path, "%v", err)
				}
			}
		}
	}

	slugs := make(map[string]struct{}, len(f.Products))
	for i, p := range f.Products {
		path := fmt.Sprintf("products[%d]", i)
		if p.Slug == "" || p.Name == "" {
			add(path, "name and slug are required")
			continue
		}
		if _, dup := slugs[p.Slug]; dup {
			add(path, "duplicate product %q", p.Slug)
		}
		slugs[p.Slug] = struct{}{}
		if p.Type != "" {
			if _, ok := types[p.Type]; !ok {
				add(path, "unknown component type %q", p.Type)
			}
		}
		if price, err := decimal.NewFromString(p.Price); err != nil {
			add(path, "price %q is not a decimal", p.Price)
		} else if err := catalog.ValidatePrice(price); err != nil {
			add(path, "%v", err)
		}
		if p.Quantity < 0 {
			add(path, "quantity must not be negative")
		}
		for _, name := range slices.Sorted(maps.Keys(p.Values)) {
			raw := p.Values[name]
			attr, ok := attrs[name]
			if !ok {
				add(path, "unknown attribute %q", name)
				continue
			}
			if _, err := catalog.Validate(&attr, raw); err != nil {
				add(path, "%v", err)
			}
		}
	}

	if len(problems) > 0 {
		return problems
	}
	return nil
}
