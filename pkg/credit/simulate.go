package credit

import (
	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/constants"
	"github.com/iwvelando/loan-leads/pkg/mathutil"
)

// Input is one simulator request. Tenor is in the product's native unit.
// Purpose, CollateralType, LoanPurpose and BusinessType classify the request
// but take no part in the arithmetic.
type Input struct {
	ProductID          string   `json:"productId"`
	LoanAmount         float64  `json:"loanAmount"`
	Tenor              int      `json:"tenor"`
	Purpose            string   `json:"purpose,omitempty"`
	CollateralType     string   `json:"collateralType,omitempty"`
	DownPaymentPercent *float64 `json:"downPayment,omitempty"`
	HousePrice         float64  `json:"housePrice,omitempty"`
	LoanPurpose        string   `json:"loanPurpose,omitempty"`
	BusinessType       string   `json:"businessType,omitempty"`
}

// Result is a derived simulation; it has no identity and is recomputed on
// every input change.
type Result struct {
	MonthlyInstallment float64       `json:"monthlyInstallment"`
	TotalInterest      float64       `json:"totalInterest"`
	TotalPayment       float64       `json:"totalPayment"`
	EffectiveRate      float64       `json:"effectiveRate"`
	MaxLoanAmount      *float64      `json:"maxLoanAmount,omitempty"`
	DownPaymentAmount  *float64      `json:"downPaymentAmount,omitempty"`
	Breakdown          []Installment `json:"breakdown"`
}

// Installment is one row of the amortization preview.
type Installment struct {
	Month     int     `json:"month"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Remaining float64 `json:"remaining"`
}

// DownPaymentLimits derives the down payment amount and the largest loan a
// house price allows. ok is false unless both a positive house price and a
// down payment percentage were supplied.
func DownPaymentLimits(input Input) (downPaymentAmount, maxLoanAmount float64, ok bool) {
	if input.HousePrice <= 0 || input.DownPaymentPercent == nil {
		return 0, 0, false
	}
	downPaymentAmount = mathutil.Percent(input.HousePrice, *input.DownPaymentPercent)
	return downPaymentAmount, input.HousePrice - downPaymentAmount, true
}

// Calculate simulates the loan described by input against product. It
// returns nil when no result can be shown: non-positive amount or tenor, a
// tenor outside the product's options, or a product without a calculation
// model. Callers run Validate first to get a reason.
func Calculate(input Input, product catalog.Product) *Result {
	if !(input.LoanAmount > 0) || input.Tenor <= 0 {
		return nil
	}
	if !product.HasTenor(input.Tenor) {
		return nil
	}
	calc := product.Calculation
	if calc == nil {
		return nil
	}

	switch calc.Type {
	case catalog.CalculationEffective:
		return calculateEffective(input, calc.Rate, TenorInMonths(input.Tenor, product.Constraints.TenorUnit))
	case catalog.CalculationFlat:
		return calculateFlat(input.LoanAmount, input.Tenor, calc.Rate)
	}
	return nil
}

func calculateEffective(input Input, annualRate float64, termMonths int) *Result {
	principal := input.LoanAmount
	monthlyPayment := CalculateMonthlyPayment(principal, annualRate, termMonths)
	totalPayment := monthlyPayment * float64(termMonths)
	totalInterest := totalPayment - principal

	breakdown := make([]Installment, 0, previewMonths(termMonths))
	remaining := principal
	for month := 1; month <= previewMonths(termMonths); month++ {
		interest := CalculateInterestPayment(remaining, annualRate)
		principalPortion := monthlyPayment - interest
		remaining -= principalPortion
		breakdown = append(breakdown, installment(month, principalPortion, interest, remaining))
	}

	result := &Result{
		MonthlyInstallment: mathutil.RoundCurrency(monthlyPayment),
		TotalInterest:      mathutil.RoundCurrency(totalInterest),
		TotalPayment:       mathutil.RoundCurrency(totalPayment),
		EffectiveRate:      annualRate,
		Breakdown:          breakdown,
	}

	if downPayment, maxLoan, ok := DownPaymentLimits(input); ok {
		dp := mathutil.RoundCurrency(downPayment)
		ml := mathutil.RoundCurrency(maxLoan)
		result.DownPaymentAmount = &dp
		result.MaxLoanAmount = &ml
	}

	return result
}

func calculateFlat(principal float64, termMonths int, monthlyRate float64) *Result {
	monthlyPrincipal, monthlyInterest := CalculateFlatInstallment(principal, monthlyRate, termMonths)
	monthlyPayment := monthlyPrincipal + monthlyInterest
	totalPayment := monthlyPayment * float64(termMonths)
	totalInterest := monthlyInterest * float64(termMonths)

	breakdown := make([]Installment, 0, previewMonths(termMonths))
	remaining := principal
	for month := 1; month <= previewMonths(termMonths); month++ {
		remaining -= monthlyPrincipal
		breakdown = append(breakdown, installment(month, monthlyPrincipal, monthlyInterest, remaining))
	}

	return &Result{
		MonthlyInstallment: mathutil.RoundCurrency(monthlyPayment),
		TotalInterest:      mathutil.RoundCurrency(totalInterest),
		TotalPayment:       mathutil.RoundCurrency(totalPayment),
		EffectiveRate:      mathutil.Round(FlatEffectiveRate(totalInterest, principal, termMonths)),
		Breakdown:          breakdown,
	}
}

func installment(month int, principal, interest, remaining float64) Installment {
	return Installment{
		Month:     month,
		Principal: mathutil.RoundCurrency(principal),
		Interest:  mathutil.RoundCurrency(interest),
		Remaining: mathutil.NonNegative(mathutil.RoundCurrency(remaining)),
	}
}

func previewMonths(termMonths int) int {
	return min(constants.BreakdownPreviewMonths, termMonths)
}
