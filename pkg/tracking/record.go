package tracking

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a status change is not allowed by
// the lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// StatusTransition is one entry of a record's status history. From is nil
// for the initial transition into SUBMITTED.
type StatusTransition struct {
	From      *Status   `json:"from"`
	To        Status    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// FromStatus returns the origin of the transition, StatusNone when absent.
func (t StatusTransition) FromStatus() Status {
	if t.From == nil {
		return StatusNone
	}
	return *t.From
}

// Metadata is the applicant and product snapshot attached to a record.
type Metadata struct {
	ProductName   string  `json:"productName"`
	LoanAmount    float64 `json:"loanAmount"`
	ApplicantName string  `json:"applicantName"`
	Email         string  `json:"email"`
	PhoneNumber   string  `json:"phoneNumber"`
}

// ApplicationTracking is the tracking record for one submitted application.
// The backend owns it; clients hold read-only copies.
type ApplicationTracking struct {
	UUID          string             `json:"uuid"`
	CurrentStatus Status             `json:"currentStatus"`
	StatusHistory []StatusTransition `json:"statusHistory"`
	SubmittedAt   time.Time          `json:"submittedAt"`
	LastUpdated   time.Time          `json:"lastUpdated"`
	Metadata      *Metadata          `json:"metadata,omitempty"`
}

// NewRecord starts the tracking record of a freshly submitted application.
func NewRecord(uuid string, at time.Time, metadata *Metadata) *ApplicationTracking {
	return &ApplicationTracking{
		UUID:          uuid,
		CurrentStatus: StatusSubmitted,
		StatusHistory: []StatusTransition{{
			To:        StatusSubmitted,
			Timestamp: at,
			UpdatedBy: "system",
			Notes:     "Pengajuan telah diterima",
		}},
		SubmittedAt: at,
		LastUpdated: at,
		Metadata:    metadata,
	}
}

// Apply moves the record to a new status and appends the transition to its
// history. The record is left untouched when the lifecycle forbids the move.
func (r *ApplicationTracking) Apply(to Status, at time.Time, updatedBy, notes string) error {
	from := r.CurrentStatus
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, displayStatus(from), displayStatus(to))
	}

	transition := StatusTransition{
		To:        to,
		Timestamp: at,
		UpdatedBy: updatedBy,
		Notes:     notes,
	}
	if from != StatusNone {
		transition.From = &from
	}

	r.StatusHistory = append(r.StatusHistory, transition)
	r.CurrentStatus = to
	r.LastUpdated = at
	return nil
}

// IsFinal reports whether polling for this record should stop.
func (r *ApplicationTracking) IsFinal() bool {
	return r != nil && IsFinalStatus(r.CurrentStatus)
}

// CheckHistory inspects a record's history and returns human-readable data
// quality warnings. Records reported by a backend are trusted as-is, so
// nothing here is fatal.
func CheckHistory(r *ApplicationTracking) []string {
	if r == nil {
		return nil
	}

	var warnings []string
	if len(r.StatusHistory) == 0 {
		return append(warnings, "status history is empty")
	}

	first := r.StatusHistory[0]
	if first.From != nil || first.To != StatusSubmitted {
		warnings = append(warnings, fmt.Sprintf("history starts with %s -> %s instead of none -> SUBMITTED",
			displayStatus(first.FromStatus()), displayStatus(first.To)))
	}

	for i := 1; i < len(r.StatusHistory); i++ {
		prev, cur := r.StatusHistory[i-1], r.StatusHistory[i]
		if cur.FromStatus() != prev.To {
			warnings = append(warnings, fmt.Sprintf("entry %d starts at %s but previous entry ended at %s",
				i, displayStatus(cur.FromStatus()), displayStatus(prev.To)))
		}
		if !IsValidTransition(cur.FromStatus(), cur.To) {
			warnings = append(warnings, fmt.Sprintf("entry %d is not a valid transition: %s -> %s",
				i, displayStatus(cur.FromStatus()), displayStatus(cur.To)))
		}
	}

	if last := r.StatusHistory[len(r.StatusHistory)-1]; last.To != r.CurrentStatus {
		warnings = append(warnings, fmt.Sprintf("current status %s does not match last history entry %s",
			displayStatus(r.CurrentStatus), displayStatus(last.To)))
	}

	return warnings
}

func displayStatus(s Status) string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}
