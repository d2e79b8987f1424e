package validation

import (
	"fmt"

	"github.com/iwvelando/loan-leads/pkg/catalog"
)

// ValidateProduct checks one catalog product for pricing mistakes and
// returns warnings. A product with warnings still loads.
func ValidateProduct(p catalog.Product) []string {
	var warnings []string
	name := p.ID
	if name == "" {
		name = p.Name
	}

	switch p.Constraints.TenorUnit {
	case catalog.TenorMonth, catalog.TenorYear:
	default:
		warnings = append(warnings, fmt.Sprintf("Product '%s' has unknown tenor unit %q", name, p.Constraints.TenorUnit))
	}

	if len(p.Constraints.TenorOptions) == 0 {
		warnings = append(warnings, fmt.Sprintf("Product '%s' offers no tenor options", name))
	}
	for i, tenor := range p.Constraints.TenorOptions {
		if tenor <= 0 {
			warnings = append(warnings, fmt.Sprintf("Product '%s' has non-positive tenor option %d", name, tenor))
		}
		if i > 0 && tenor <= p.Constraints.TenorOptions[i-1] {
			warnings = append(warnings, fmt.Sprintf("Product '%s' tenor options are not strictly increasing", name))
		}
	}

	if p.Calculation == nil {
		return append(warnings, fmt.Sprintf("Product '%s' has no calculation configuration - simulations will be rejected", name))
	}

	calc := p.Calculation
	switch calc.Type {
	case catalog.CalculationEffective:
		if p.Constraints.TenorUnit != catalog.TenorYear {
			warnings = append(warnings, fmt.Sprintf("Product '%s' uses EFFECTIVE pricing with %s tenors - expected YEAR", name, p.Constraints.TenorUnit))
		}
	case catalog.CalculationFlat:
		if p.Constraints.TenorUnit != catalog.TenorMonth {
			warnings = append(warnings, fmt.Sprintf("Product '%s' uses FLAT pricing with %s tenors - FLAT tenors are read as months", name, p.Constraints.TenorUnit))
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Product '%s' has unknown calculation type %q", name, calc.Type))
	}

	if calc.Rate < 0 {
		warnings = append(warnings, fmt.Sprintf("Product '%s' has negative rate %.2f", name, calc.Rate))
	}
	if calc.MinAmount <= 0 {
		warnings = append(warnings, fmt.Sprintf("Product '%s' has non-positive minimum amount", name))
	}
	if calc.MaxAmount < calc.MinAmount {
		warnings = append(warnings, fmt.Sprintf("Product '%s' maximum amount is below its minimum (%.0f < %.0f)",
			name, calc.MaxAmount, calc.MinAmount))
	}

	return warnings
}

// ValidateCatalog validates every product and returns all warnings.
func ValidateCatalog(products []catalog.Product) []string {
	var warnings []string
	for _, p := range products {
		warnings = append(warnings, ValidateProduct(p)...)
	}
	return warnings
}
