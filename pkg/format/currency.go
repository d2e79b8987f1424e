package format

import (
	"fmt"
	"math"
	"strings"
)

// Rupiah returns an amount formatted the way Indonesian banks print it, with
// a currency prefix, dot thousands separators and no fractional part
// (e.g., "Rp 1.234.567", "-Rp 50.000").
func Rupiah(amount float64) string {
	formatted := groupThousands(math.Round(math.Abs(amount)))
	if amount <= -0.5 {
		return "-Rp " + formatted
	}
	return "Rp " + formatted
}

// NumericRupiah returns the grouped amount without the currency prefix
// (e.g., "-1.234.567").
func NumericRupiah(amount float64) string {
	sign := ""
	if amount <= -0.5 {
		sign = "-"
	}
	return sign + groupThousands(math.Round(math.Abs(amount)))
}

// Percent prints a rate with up to two decimals using a comma decimal mark
// (e.g., "4,5%", "9,6%").
func Percent(rate float64) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", rate), "0"), ".")
	return strings.Replace(s, ".", ",", 1) + "%"
}

func groupThousands(value float64) string {
	intPart := fmt.Sprintf("%.0f", value)
	if len(intPart) <= 3 {
		return intPart
	}

	var builder strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			builder.WriteByte('.')
		}
		builder.WriteRune(digit)
	}
	return builder.String()
}
