// Package catalog holds the loan product pricing models offered by the
// portal. Products are immutable once loaded; lookups hand out copies.
package catalog

import "slices"

// CalculationType selects the amortization scheme of a product.
type CalculationType string

const (
	// CalculationEffective is an annuity on an annual effective rate.
	CalculationEffective CalculationType = "EFFECTIVE"
	// CalculationFlat charges a flat monthly rate on the original principal.
	CalculationFlat CalculationType = "FLAT"
)

// TenorUnit is the unit tenor options are expressed in.
type TenorUnit string

const (
	TenorMonth TenorUnit = "MONTH"
	TenorYear  TenorUnit = "YEAR"
)

// Simulator field names used in field configurations.
const (
	FieldLoanAmount     = "loanAmount"
	FieldTenor          = "tenor"
	FieldPurpose        = "purpose"
	FieldCollateralType = "collateralType"
	FieldDownPayment    = "downPayment"
	FieldHousePrice     = "housePrice"
	FieldLoanPurpose    = "loanPurpose"
	FieldBusinessType   = "businessType"
)

// Product is a loan product as shown in the catalog.
type Product struct {
	ID              string           `mapstructure:"id" yaml:"id" json:"id"`
	Name            string           `mapstructure:"name" yaml:"name" json:"name"`
	Rate            string           `mapstructure:"rate" yaml:"rate" json:"rate"`
	Description     string           `mapstructure:"description" yaml:"description" json:"description"`
	Constraints     Constraints      `mapstructure:"constraints" yaml:"constraints" json:"constraints"`
	Calculation     *Calculation     `mapstructure:"calculation" yaml:"calculation,omitempty" json:"calculation,omitempty"`
	SimulatorConfig *SimulatorConfig `mapstructure:"simulator_config" yaml:"simulator_config,omitempty" json:"simulatorConfig,omitempty"`
}

// Constraints are the eligibility and tenor rules of a product.
type Constraints struct {
	MinIncome    float64   `mapstructure:"min_income" yaml:"min_income" json:"min_income"`
	TenorUnit    TenorUnit `mapstructure:"tenor_type" yaml:"tenor_type" json:"tenor_type"`
	TenorOptions []int     `mapstructure:"tenor_options" yaml:"tenor_options" json:"tenor_options"`
}

// Calculation is the pricing model. Rate is an annual percentage for
// EFFECTIVE products and a monthly percentage for FLAT products.
type Calculation struct {
	Type      CalculationType `mapstructure:"type" yaml:"type" json:"type"`
	Rate      float64         `mapstructure:"rate" yaml:"rate" json:"rate"`
	MinAmount float64         `mapstructure:"min_amount" yaml:"min_amount" json:"min_amount"`
	MaxAmount float64         `mapstructure:"max_amount" yaml:"max_amount" json:"max_amount"`
}

// SimulatorConfig describes which simulator fields a product asks for.
type SimulatorConfig struct {
	Fields  FieldConfig         `mapstructure:"fields" yaml:"fields" json:"fields"`
	Options map[string][]Option `mapstructure:"options" yaml:"options,omitempty" json:"options,omitempty"`
}

// FieldConfig groups the simulator fields per product family.
type FieldConfig struct {
	Required []string `mapstructure:"required" yaml:"required" json:"required"`
	KPR      []string `mapstructure:"kpr" yaml:"kpr,omitempty" json:"kpr,omitempty"`
	KMG      []string `mapstructure:"kmg" yaml:"kmg,omitempty" json:"kmg,omitempty"`
	Mikro    []string `mapstructure:"mikro" yaml:"mikro,omitempty" json:"mikro,omitempty"`
}

// Option is a selectable value for a simulator field.
type Option struct {
	Value string `mapstructure:"value" yaml:"value" json:"value"`
	Label string `mapstructure:"label" yaml:"label" json:"label"`
}

// HasTenor reports whether tenor is one of the product's allowed options.
// This is a membership test only; no rounding to the nearest option.
func (p Product) HasTenor(tenor int) bool {
	return slices.Contains(p.Constraints.TenorOptions, tenor)
}

// RequiresField reports whether the product's field configuration lists the
// named field.
func (p Product) RequiresField(name string) bool {
	if p.SimulatorConfig == nil {
		return false
	}
	f := p.SimulatorConfig.Fields
	return slices.Contains(f.Required, name) ||
		slices.Contains(f.KPR, name) ||
		slices.Contains(f.KMG, name) ||
		slices.Contains(f.Mikro, name)
}

// Eligible reports whether a monthly income meets the product's floor.
func (p Product) Eligible(monthlyIncome float64) bool {
	return monthlyIncome >= p.Constraints.MinIncome
}

// Clone returns a deep copy so callers cannot mutate catalog state.
func (p Product) Clone() Product {
	out := p
	out.Constraints.TenorOptions = slices.Clone(p.Constraints.TenorOptions)
	if p.Calculation != nil {
		calc := *p.Calculation
		out.Calculation = &calc
	}
	if p.SimulatorConfig != nil {
		sc := SimulatorConfig{
			Fields: FieldConfig{
				Required: slices.Clone(p.SimulatorConfig.Fields.Required),
				KPR:      slices.Clone(p.SimulatorConfig.Fields.KPR),
				KMG:      slices.Clone(p.SimulatorConfig.Fields.KMG),
				Mikro:    slices.Clone(p.SimulatorConfig.Fields.Mikro),
			},
		}
		if p.SimulatorConfig.Options != nil {
			sc.Options = make(map[string][]Option, len(p.SimulatorConfig.Options))
			for k, v := range p.SimulatorConfig.Options {
				sc.Options[k] = slices.Clone(v)
			}
		}
		out.SimulatorConfig = &sc
	}
	return out
}
