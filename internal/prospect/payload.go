// Package prospect submits completed loan applications to the external
// loan-prospect API and records their tracking state.
package prospect

import (
	"strings"
	"unicode"

	"github.com/iwvelando/loan-leads/pkg/catalog"
)

// Draft is the serializable state of the application wizard. It is owned by
// the caller and passed in explicitly.
type Draft struct {
	Personal  Personal  `json:"personal"`
	Screening Screening `json:"screening"`
	Consent   bool      `json:"consent"`
}

// Personal is the identity step of the wizard.
type Personal struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Birthdate string `json:"birthdate"` // YYYY-MM-DD
	Address   string `json:"address"`
}

// Screening is the financial step of the wizard.
type Screening struct {
	NIK            string  `json:"nik"`
	MonthlyIncome  float64 `json:"monthlyIncome"`
	RequestedTenor int     `json:"requestedTenor"`
	Occupation     string  `json:"occupation"`
	WorkDuration   int     `json:"workDuration"`
	LoanAmount     float64 `json:"loanAmount"`
}

// Payload is the request body of the loan-prospect API.
type Payload struct {
	FullName         string  `json:"full_name"`
	IDNumber         string  `json:"ind_id_no"`
	Birthdate        string  `json:"ind_birthdate"`
	MobilePhone      string  `json:"ind_main_mobileph"`
	Address          string  `json:"bp_addr"`
	Occupation       string  `json:"ind_occupt_onid"`
	WorkDuration     int     `json:"ind_lama_kerja"`
	Salary           float64 `json:"ind_salary"`
	ProductShortName string  `json:"loanprd_shortname"`
	LoanAmount       float64 `json:"lord_loan_amt"`
	Installments     int     `json:"lord_jml_angs"`
}

// Transform maps a draft onto the API's field names. The phone number is
// reduced to its digits.
func Transform(draft Draft, product catalog.Product, phoneNumber string) Payload {
	return Payload{
		FullName:         draft.Personal.FullName,
		IDNumber:         draft.Screening.NIK,
		Birthdate:        draft.Personal.Birthdate,
		MobilePhone:      digitsOnly(phoneNumber),
		Address:          draft.Personal.Address,
		Occupation:       draft.Screening.Occupation,
		WorkDuration:     draft.Screening.WorkDuration,
		Salary:           draft.Screening.MonthlyIncome,
		ProductShortName: MapProductNameToAPI(product.Name),
		LoanAmount:       draft.Screening.LoanAmount,
		Installments:     draft.Screening.RequestedTenor,
	}
}

// MapProductNameToAPI extracts the short product name the API expects from
// a display name such as "KPR - Kredit Pemilikan Rumah". Unknown names pass
// through unchanged.
func MapProductNameToAPI(name string) string {
	for _, short := range []string{"KPR", "KMG", "Mikro"} {
		if strings.Contains(name, short) {
			return short
		}
	}
	return name
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
