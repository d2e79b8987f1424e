// Package credit implements the credit simulator: installment math for
// annuity (effective rate) and flat-rate loan products, the amortization
// preview, and validation of simulator input against a product's pricing
// model. Everything here is pure and safe for concurrent use.
package credit

import (
	"math"

	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/constants"
)

// CalculateMonthlyPayment calculates the level monthly payment of an annuity
// using the standard amortization formula. A zero rate degrades to straight
// principal division.
func CalculateMonthlyPayment(principal, annualInterestRate float64, termMonths int) float64 {
	if termMonths <= 0 {
		return 0
	}
	if annualInterestRate == 0 {
		return principal / float64(termMonths)
	}

	periodicInterestRate := MonthlyRate(annualInterestRate)
	power := math.Pow(1.00+periodicInterestRate, float64(termMonths))
	discountFactor := (power - 1.00) / power
	return principal * periodicInterestRate / discountFactor
}

// CalculateInterestPayment calculates the interest portion of an annuity
// payment for the given outstanding balance.
func CalculateInterestPayment(remainingPrincipal, annualInterestRate float64) float64 {
	return remainingPrincipal * MonthlyRate(annualInterestRate)
}

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualInterestRate float64) float64 {
	return annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
}

// CalculateFlatInstallment returns the constant principal and interest
// portions of a flat-rate loan. Interest is charged on the original principal
// every month regardless of how much has been repaid.
func CalculateFlatInstallment(principal, monthlyFlatRate float64, termMonths int) (monthlyPrincipal, monthlyInterest float64) {
	if termMonths <= 0 {
		return 0, 0
	}
	monthlyInterest = principal * (monthlyFlatRate / constants.PercentageMultiplier)
	monthlyPrincipal = principal / float64(termMonths)
	return monthlyPrincipal, monthlyInterest
}

// FlatEffectiveRate back-derives an annualized rate from a flat-rate loan so
// it can be shown next to annuity products. It is not a true IRR; downstream
// consumers display it as-is.
func FlatEffectiveRate(totalInterest, principal float64, termMonths int) float64 {
	if principal == 0 || termMonths <= 0 {
		return 0
	}
	return (totalInterest / principal / float64(termMonths)) * constants.MonthsPerYear * constants.PercentageMultiplier
}

// TenorInMonths converts a tenor in the product's native unit to months.
func TenorInMonths(tenor int, unit catalog.TenorUnit) int {
	if unit == catalog.TenorYear {
		return tenor * constants.MonthsPerYear
	}
	return tenor
}
