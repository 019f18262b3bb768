package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/broady/proxykit/proxygen/ir"
)

var validate = validator.New()

// Manifest describes contracts that do not exist as Go source, such as
// RPC stubs. It is usually written in YAML:
//
//	constants:
//	  example.com/rpc.DefaultLimit: 10
//	types:
//	  - name: example.com/rpc.Client
//	    kind: interface
//	    methods:
//	      - name: Fetch
//	        params:
//	          - {name: id, type: string}
//	          - {name: limit, type: int, const: example.com/rpc.DefaultLimit}
//	        results: ["*example.com/rpc.Item", error]
type Manifest struct {
	Constants map[string]any `yaml:"constants"`
	Types     []ManifestType `yaml:"types" validate:"required,min=1,dive"`
}

// ManifestType describes one class or interface.
type ManifestType struct {
	Name       string           `yaml:"name" validate:"required"`
	Kind       string           `yaml:"kind" validate:"required,oneof=interface class"`
	Modifiers  []string         `yaml:"modifiers"`
	Parent     string           `yaml:"parent" validate:"excluded_if=Kind interface"`
	Interfaces []string         `yaml:"interfaces"`
	Methods    []ManifestMethod `yaml:"methods" validate:"dive"`
}

// ManifestMethod describes a method. Types use the forms accepted by
// ParseTypeExpr.
type ManifestMethod struct {
	Name      string          `yaml:"name" validate:"required"`
	Modifiers []string        `yaml:"modifiers" validate:"dive,oneof=exported unexported pointer abstract static constructor"`
	Params    []ManifestParam `yaml:"params" validate:"dive"`
	Results   []string        `yaml:"results"`
	Tentative []string        `yaml:"tentative"`
}

// ManifestParam describes a parameter. Default is a Go literal and Const a
// key of the manifest's constants table; at most one may be set.
type ManifestParam struct {
	Name     string  `yaml:"name" validate:"required"`
	Type     string  `yaml:"type"`
	Variadic bool    `yaml:"variadic"`
	Default  *string `yaml:"default" validate:"excluded_with=Const"`
	Const    string  `yaml:"const"`
}

// ManifestFacility serves type facts from a Manifest.
type ManifestFacility struct {
	types     map[string]*ManifestType
	constants map[string]any
}

var (
	_ Facility         = (*ManifestFacility)(nil)
	_ ConstantResolver = (*ManifestFacility)(nil)
)

// LoadManifest reads a YAML manifest from path.
func LoadManifest(path string) (*ManifestFacility, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return NewManifestFacility(data)
}

// NewManifestFacility parses and validates a YAML manifest.
// Unknown keys are rejected.
func NewManifestFacility(data []byte) (*ManifestFacility, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, proxykit.Errorf(proxykit.CodeInvalidConfig, "failed to parse manifest: %w", err)
	}
	return NewManifestFacilityFrom(&m)
}

// NewManifestFacilityFrom validates m and serves facts from it.
func NewManifestFacilityFrom(m *Manifest) (*ManifestFacility, error) {
	if err := validate.Struct(m); err != nil {
		return nil, proxykit.FromValidation(proxykit.CodeInvalidConfig, err)
	}

	f := &ManifestFacility{
		types:     make(map[string]*ManifestType, len(m.Types)),
		constants: m.Constants,
	}
	for i := range m.Types {
		t := &m.Types[i]
		if _, ok := f.types[t.Name]; ok {
			return nil, proxykit.Errorf(proxykit.CodeInvalidConfig, "type %s is declared twice", t.Name)
		}
		f.types[t.Name] = t
	}
	return f, nil
}

// ResolveConstant returns a value from the constants table.
func (f *ManifestFacility) ResolveConstant(ctx context.Context, ref string) (any, error) {
	v, ok := f.constants[ref]
	if !ok {
		return nil, fmt.Errorf("constant %s is not defined in the manifest", ref)
	}
	return v, nil
}

// Lookup returns the facts of a declared type.
func (f *ManifestFacility) Lookup(ctx context.Context, name string) (*TypeFacts, error) {
	t, ok := f.types[name]
	if !ok {
		return nil, fmt.Errorf("type %s is not declared in the manifest", name)
	}

	_, short := ir.SplitName(t.Name)
	facts := &TypeFacts{
		FullName:    t.Name,
		IsInterface: t.Kind == "interface",
		Modifiers:   t.Modifiers,
		Parent:      t.Parent,
		Interfaces:  t.Interfaces,
	}
	if len(facts.Modifiers) == 0 {
		facts.Modifiers = []string{visibility(short)}
	}

	for _, mm := range t.Methods {
		mf := MethodFacts{Name: mm.Name, Modifiers: mm.Modifiers}
		if len(mf.Modifiers) == 0 {
			mf.Modifiers = []string{visibility(mm.Name)}
		}
		for _, mp := range mm.Params {
			p, err := f.paramFacts(ctx, mp)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name, mm.Name, err)
			}
			mf.Params = append(mf.Params, p)
		}
		for _, r := range mm.Results {
			if x := ParseTypeExpr(r); x != nil {
				mf.Results = append(mf.Results, x)
			}
		}
		for _, r := range mm.Tentative {
			if x := ParseTypeExpr(r); x != nil {
				mf.TentativeResults = append(mf.TentativeResults, x)
			}
		}
		facts.Methods = append(facts.Methods, mf)
	}
	return facts, nil
}

func (f *ManifestFacility) paramFacts(ctx context.Context, mp ManifestParam) (ParamFacts, error) {
	p := ParamFacts{Name: mp.Name, Type: ParseTypeExpr(mp.Type), Variadic: mp.Variadic}
	switch {
	case mp.Const != "":
		v, err := f.ResolveConstant(ctx, mp.Const)
		if err != nil {
			return ParamFacts{}, fmt.Errorf("parameter %s: %w", mp.Name, err)
		}
		p.HasDefault, p.ConstantRef, p.Default = true, mp.Const, v
	case mp.Default != nil:
		v, err := golang.ParseLiteral(*mp.Default)
		if err != nil {
			return ParamFacts{}, fmt.Errorf("parameter %s: %w", mp.Name, err)
		}
		p.HasDefault, p.Default = true, v
	}
	return p, nil
}
