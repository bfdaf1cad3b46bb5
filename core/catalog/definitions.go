package catalog

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"unitconvert/core/units"
	"unitconvert/internal/errors"
)

//go:embed definitions/*.hcl
var embedded embed.FS

// EmbeddedDefinitions returns the built-in category definitions.
func EmbeddedDefinitions() fs.FS {
	sub, err := fs.Sub(embedded, "definitions")
	if err != nil {
		panic(err)
	}
	return sub
}

// Definition roles.
const (
	RoleDefault = "default"
	RoleCommon  = "common"
)

type definitionFile struct {
	Categories []CategoryDef `hcl:"category,block"`
}

// CategoryDef is one category block of a definition file.
type CategoryDef struct {
	Key         string    `hcl:"key,label"`
	ID          int       `hcl:"id"`
	Name        string    `hcl:"name"`
	Description string    `hcl:"description,optional"`
	Online      bool      `hcl:"online,optional"`
	Units       []UnitDef `hcl:"unit,block"`

	file string
}

// UnitDef is one unit block. Multiplier defaults to 1; it is the scale of
// affine units.
type UnitDef struct {
	Key        string   `hcl:"key,label"`
	ID         int      `hcl:"id"`
	Symbol     string   `hcl:"symbol"`
	Name       string   `hcl:"name"`
	Synonyms   []string `hcl:"synonyms,optional"`
	Role       string   `hcl:"role,optional"`
	Strategy   string   `hcl:"strategy,optional"`
	Multiplier float64  `hcl:"multiplier,optional"`
	Offset     float64  `hcl:"offset,optional"`
	Exponent   float64  `hcl:"exponent,optional"`
	Constant   float64  `hcl:"constant,optional"`
	Code       string   `hcl:"code,optional"`
}

// evalContext exposes the shared physical constants and pow() to
// definition expressions.
func evalContext() *hcl.EvalContext {
	num := cty.NumberFloatVal
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"inch":                num(0.0254),
			"foot":                num(0.3048),
			"mile":                num(1609.344),
			"pound":               num(0.45359237),
			"us_gallon":           num(0.003785411784),
			"imperial_gallon":     num(0.00454609),
			"speed_of_light":      num(299792458),
			"planck":              num(6.62607015e-34),
			"elementary_charge":   num(1.602176634e-19),
			"standard_gravity":    num(9.80665),
			"standard_atmosphere": num(101325),
			"pi":                  num(3.141592653589793),
		},
		Functions: map[string]function.Function{
			"pow": stdlib.PowFunc,
		},
	}
}

// LoadDefinitions parses every *.hcl file at the root of fsys and returns
// the categories ordered by id.
func LoadDefinitions(fsys fs.FS) ([]CategoryDef, error) {
	names, err := fs.Glob(fsys, "*.hcl")
	if err != nil {
		return nil, errors.Wrap(errors.TypeDefinition, "failed to list definitions", err)
	}
	if len(names) == 0 {
		return nil, errors.Definition("no category definitions found")
	}
	sort.Strings(names)

	parser := hclparse.NewParser()
	ctx := evalContext()

	var defs []CategoryDef
	var diags hcl.Diagnostics
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeDefinition, err, "failed to read %s", name)
		}

		file, parseDiags := parser.ParseHCL(data, path.Base(name))
		diags = append(diags, parseDiags...)
		if parseDiags.HasErrors() {
			continue
		}

		var df definitionFile
		decodeDiags := gohcl.DecodeBody(file.Body, ctx, &df)
		diags = append(diags, decodeDiags...)
		if decodeDiags.HasErrors() {
			continue
		}
		for i := range df.Categories {
			df.Categories[i].file = name
		}
		defs = append(defs, df.Categories...)
	}
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeDefinition, "invalid category definitions", diags)
	}

	sort.SliceStable(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// BuildStrategy builds the conversion strategy the definition describes.
func (d UnitDef) BuildStrategy() (units.Strategy, error) {
	kind, ok := units.ParseKind(d.Strategy)
	if !ok {
		return units.Strategy{}, errors.Newf(errors.TypeDefinition, "unknown strategy %q", d.Strategy)
	}

	m := d.Multiplier
	if m == 0 {
		m = 1
	}

	switch kind {
	case units.KindLogarithmic:
		return units.Logarithmic(m), nil
	case units.KindPowerLaw:
		return units.PowerLaw(d.Constant, d.Exponent), nil
	case units.KindReciprocal:
		return units.Reciprocal(m), nil
	case units.KindAngular:
		return units.Angular(), nil
	case units.KindAffine:
		return units.Affine(m, d.Offset), nil
	case units.KindPhotonEnergy:
		return units.Photon(d.Constant), nil
	case units.KindBinaryExponent:
		return units.BinaryExponent(d.Exponent), nil
	case units.KindDynamic:
		return units.Dynamic(d.code()), nil
	default:
		return units.Linear(m), nil
	}
}

func (d UnitDef) code() string {
	if d.Code != "" {
		return d.Code
	}
	return d.Symbol
}

// Unit builds the unit the definition describes.
func (d UnitDef) Unit() (units.Unit, error) {
	s, err := d.BuildStrategy()
	if err != nil {
		return units.NullUnit, err
	}
	return units.NewUnit(d.ID, d.Symbol, d.Name, strings.Join(d.Synonyms, ";"), s), nil
}

// Build creates the category and registers its units in definition order.
func (d CategoryDef) Build(opts ...units.Option) (*units.Category, error) {
	c := units.NewCategory(units.CategoryID(d.ID), d.Name, d.Description, opts...)

	for _, ud := range d.Units {
		u, err := ud.Unit()
		if err != nil {
			return nil, errors.Wrapf(errors.TypeDefinition, err, "%s: unit %s", d.Key, ud.Key)
		}

		add := c.AddUnit
		switch ud.Role {
		case RoleDefault:
			add = c.AddDefaultUnit
		case RoleCommon:
			add = c.AddCommonUnit
		}
		if _, err := add(u); err != nil {
			return nil, errors.Wrapf(errors.TypeDefinition, err, "%s: unit %s", d.Key, ud.Key)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
