package credit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/format"
	"github.com/iwvelando/loan-leads/pkg/mathutil"
)

// Fixed user-facing rejection reasons.
const (
	ReasonNoCalculation      = "Produk tidak memiliki konfigurasi kalkulasi"
	ReasonHousePriceRequired = "Harga rumah harus diisi"
	ReasonDownPaymentChoice  = "Uang muka harus dipilih"
	ReasonDownPaymentRange   = "Uang muka harus antara 0% dan 100%"
	ReasonLoanPurpose        = "Tujuan penggunaan harus dipilih"
	ReasonBusinessType       = "Jenis usaha harus dipilih"
)

// Validation is the outcome of Validate. Reason is empty when Valid.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func invalid(reason string) Validation {
	return Validation{Valid: false, Reason: reason}
}

// Validate checks input against the product's constraints and returns the
// first failing reason as localized text. It never returns an error: a
// rejection is an ordinary result.
func Validate(input Input, product catalog.Product) Validation {
	calc := product.Calculation
	if calc == nil {
		return invalid(ReasonNoCalculation)
	}

	if input.LoanAmount < calc.MinAmount {
		return invalid(fmt.Sprintf("Jumlah pinjaman minimal %s", format.Rupiah(calc.MinAmount)))
	}

	if input.DownPaymentPercent != nil {
		if dp := *input.DownPaymentPercent; dp < 0 || dp > 100 {
			return invalid(ReasonDownPaymentRange)
		}
	}

	if _, maxLoan, ok := DownPaymentLimits(input); ok {
		if input.LoanAmount > maxLoan {
			return invalid(fmt.Sprintf("Jumlah pinjaman maksimal %s berdasarkan harga rumah dan uang muka",
				format.Rupiah(mathutil.RoundCurrency(maxLoan))))
		}
	}
	if input.LoanAmount > calc.MaxAmount {
		return invalid(fmt.Sprintf("Jumlah pinjaman maksimal %s", format.Rupiah(calc.MaxAmount)))
	}

	if product.RequiresField(catalog.FieldHousePrice) && input.HousePrice <= 0 {
		return invalid(ReasonHousePriceRequired)
	}
	if product.RequiresField(catalog.FieldDownPayment) && input.DownPaymentPercent == nil {
		return invalid(ReasonDownPaymentChoice)
	}

	if !product.HasTenor(input.Tenor) {
		return invalid(tenorReason(product.Constraints))
	}

	if product.RequiresField(catalog.FieldLoanPurpose) && strings.TrimSpace(input.LoanPurpose) == "" {
		return invalid(ReasonLoanPurpose)
	}
	if product.RequiresField(catalog.FieldBusinessType) && strings.TrimSpace(input.BusinessType) == "" {
		return invalid(ReasonBusinessType)
	}

	return Validation{Valid: true}
}

func tenorReason(c catalog.Constraints) string {
	options := make([]string, 0, len(c.TenorOptions))
	for _, t := range c.TenorOptions {
		options = append(options, strconv.Itoa(t))
	}
	unit := "bulan"
	if c.TenorUnit == catalog.TenorYear {
		unit = "tahun"
	}
	return fmt.Sprintf("Tenor harus salah satu dari: %s %s", strings.Join(options, ", "), unit)
}
