// Package output provides utilities for formatting and displaying simulation
// results and application tracking records.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/constants"
	"github.com/iwvelando/loan-leads/pkg/credit"
	"github.com/iwvelando/loan-leads/pkg/datetime"
	"github.com/iwvelando/loan-leads/pkg/format"
	"github.com/iwvelando/loan-leads/pkg/tracking"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Simulation writes a simulation result in the given output format.
func Simulation(w io.Writer, outputFormat string, product catalog.Product, input credit.Input, result *credit.Result) error {
	if result == nil {
		return fmt.Errorf("no simulation result to print")
	}
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettySimulation(w, product, input, result)
	case constants.OutputFormatCSV:
		return CsvSimulation(w, result)
	case constants.OutputFormatJSON:
		return JSON(w, result)
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// Tracking writes a tracking record in the given output format. Pretty
// output describes timestamps relative to now.
func Tracking(w io.Writer, outputFormat string, record *tracking.ApplicationTracking, now time.Time) error {
	if record == nil {
		return fmt.Errorf("no tracking record to print")
	}
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyTracking(w, record, now)
	case constants.OutputFormatCSV:
		return CsvTracking(w, record)
	case constants.OutputFormatJSON:
		return JSON(w, record)
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// PrettySimulation outputs a human-readable summary followed by the
// installment preview table.
func PrettySimulation(w io.Writer, product catalog.Product, input credit.Input, result *credit.Result) error {
	p := message.NewPrinter(language.Indonesian)

	unit := "bulan"
	if product.Constraints.TenorUnit == catalog.TenorYear {
		unit = "tahun"
	}
	months := credit.TenorInMonths(input.Tenor, product.Constraints.TenorUnit)

	lines := []string{
		p.Sprintf("--- Simulasi %s ---", product.Name),
		p.Sprintf("Jumlah pinjaman    : %s", format.Rupiah(input.LoanAmount)),
		p.Sprintf("Tenor              : %d %s (%d bulan)", input.Tenor, unit, months),
	}
	if result.DownPaymentAmount != nil {
		lines = append(lines, p.Sprintf("Uang muka          : %s", format.Rupiah(*result.DownPaymentAmount)))
	}
	if result.MaxLoanAmount != nil {
		lines = append(lines, p.Sprintf("Maksimal pinjaman  : %s", format.Rupiah(*result.MaxLoanAmount)))
	}
	lines = append(lines,
		p.Sprintf("Angsuran per bulan : %s", format.Rupiah(result.MonthlyInstallment)),
		p.Sprintf("Total bunga        : %s", format.Rupiah(result.TotalInterest)),
		p.Sprintf("Total pembayaran   : %s", format.Rupiah(result.TotalPayment)),
		p.Sprintf("Suku bunga efektif : %s", format.Percent(result.EffectiveRate)),
		"",
		"Bulan | Pokok | Bunga | Sisa Pinjaman",
		"_____ | _____ | _____ | _____________",
	)
	for _, row := range result.Breakdown {
		lines = append(lines, p.Sprintf("%d | %s | %s | %s", row.Month,
			format.Rupiah(row.Principal), format.Rupiah(row.Interest), format.Rupiah(row.Remaining)))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

// CsvSimulation outputs the installment preview in comma-separated value
// format.
func CsvSimulation(w io.Writer, result *credit.Result) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"month", "principal", "interest", "remaining"})
	for _, row := range result.Breakdown {
		_ = cw.Write([]string{
			fmt.Sprintf("%d", row.Month),
			fmt.Sprintf("%.2f", row.Principal),
			fmt.Sprintf("%.2f", row.Interest),
			fmt.Sprintf("%.2f", row.Remaining),
		})
	}
	cw.Flush()
	return cw.Error()
}

// PrettyTracking outputs the current status of an application and its
// history, most recent first.
func PrettyTracking(w io.Writer, record *tracking.ApplicationTracking, now time.Time) error {
	p := message.NewPrinter(language.Indonesian)

	lines := []string{
		p.Sprintf("--- Pengajuan %s ---", record.UUID),
		p.Sprintf("Status     : %s", tracking.Label(record.CurrentStatus)),
	}
	if desc := tracking.Description(record.CurrentStatus); desc != "" {
		lines = append(lines, p.Sprintf("             %s", desc))
	}
	if m := record.Metadata; m != nil {
		if m.ProductName != "" {
			lines = append(lines, p.Sprintf("Produk     : %s", m.ProductName))
		}
		if m.ApplicantName != "" {
			lines = append(lines, p.Sprintf("Pemohon    : %s", m.ApplicantName))
		}
		if m.LoanAmount > 0 {
			lines = append(lines, p.Sprintf("Pinjaman   : %s", format.Rupiah(m.LoanAmount)))
		}
	}
	lines = append(lines,
		p.Sprintf("Diajukan   : %s", datetime.Relative(record.SubmittedAt, now)),
		p.Sprintf("Diperbarui : %s", datetime.Relative(record.LastUpdated, now)),
	)
	if record.IsFinal() {
		lines = append(lines, "Status akhir, tidak ada pembaruan lebih lanjut.")
	}

	lines = append(lines, "", "Riwayat:")
	for i := len(record.StatusHistory) - 1; i >= 0; i-- {
		entry := record.StatusHistory[i]
		line := p.Sprintf("  %s | %s | %s", tracking.Label(entry.To), datetime.Relative(entry.Timestamp, now), entry.UpdatedBy)
		if entry.Notes != "" {
			line += " | " + entry.Notes
		}
		lines = append(lines, line)
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

// CsvTracking outputs the status history in comma-separated value format,
// oldest first. The initial entry has an empty "from" column.
func CsvTracking(w io.Writer, record *tracking.ApplicationTracking) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"uuid", "from", "to", "timestamp", "updated_by", "notes"})
	for _, entry := range record.StatusHistory {
		_ = cw.Write([]string{
			record.UUID,
			string(entry.FromStatus()),
			string(entry.To),
			entry.Timestamp.UTC().Format(datetime.TimestampLayout),
			entry.UpdatedBy,
			entry.Notes,
		})
	}
	cw.Flush()
	return cw.Error()
}

// JSON outputs v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
