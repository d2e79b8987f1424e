// Package tracking models the lifecycle of a submitted loan application: the
// status state machine, the tracking record a backend reports, and the error
// taxonomy of the fetch-status contract.
package tracking

import (
	"fmt"
	"slices"
	"strings"
)

// Status is an application lifecycle state.
type Status string

const (
	// StatusNone stands for "no prior state" and only appears as the origin
	// of the first transition.
	StatusNone      Status = ""
	StatusSubmitted Status = "SUBMITTED"
	StatusVerified  Status = "VERIFIED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusDisbursed Status = "DISBURSED"
)

// Statuses lists every real status in lifecycle order.
var Statuses = []Status{StatusSubmitted, StatusVerified, StatusApproved, StatusRejected, StatusDisbursed}

var transitions = map[Status][]Status{
	StatusNone:      {StatusSubmitted},
	StatusSubmitted: {StatusVerified, StatusRejected},
	StatusVerified:  {StatusApproved, StatusRejected},
	StatusApproved:  {StatusDisbursed},
	StatusRejected:  {},
	StatusDisbursed: {},
}

var labels = map[Status]string{
	StatusSubmitted: "Telah Dikirim",
	StatusVerified:  "Telah Diverifikasi",
	StatusApproved:  "Disetujui",
	StatusRejected:  "Ditolak",
	StatusDisbursed: "Dana Dicairkan",
}

var descriptions = map[Status]string{
	StatusSubmitted: "Pengajuan Anda telah diterima dan sedang dalam proses verifikasi",
	StatusVerified:  "Data Anda telah diverifikasi oleh tim analis kami",
	StatusApproved:  "Selamat! Pengajuan kredit Anda telah disetujui",
	StatusRejected:  "Maaf, pengajuan kredit Anda tidak dapat disetujui",
	StatusDisbursed: "Dana telah dicairkan ke rekening Anda",
}

// IsValidTransition reports whether the lifecycle allows moving from one
// status to another. Use StatusNone as from for the initial transition.
func IsValidTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// NextStatuses returns the statuses reachable from s in one step. The
// returned slice is a copy.
func NextStatuses(s Status) []Status {
	return slices.Clone(transitions[s])
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	next, ok := transitions[s]
	return ok && s != StatusNone && len(next) == 0
}

// IsFinalStatus reports whether polling should stop at s. APPROVED counts as
// final even though it can still move to DISBURSED: automatic polling ends
// once a credit decision exists.
func IsFinalStatus(s Status) bool {
	return s == StatusApproved || s == StatusRejected || s == StatusDisbursed
}

// HasStatusChanged reports whether a freshly fetched status differs from the
// previously observed one. A StatusNone previous value always counts as a
// change.
func HasStatusChanged(previous, current Status) bool {
	return previous != current
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

// Label returns the Indonesian display label for s.
func Label(s Status) string {
	if label, ok := labels[s]; ok {
		return label
	}
	return string(s)
}

// Description returns the Indonesian explanation shown under a status.
func Description(s Status) string {
	return descriptions[s]
}

// ParseStatus converts a case-insensitive status name into a Status.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(value)))
	if !s.Valid() {
		return StatusNone, fmt.Errorf("unknown application status %q", value)
	}
	return s, nil
}
