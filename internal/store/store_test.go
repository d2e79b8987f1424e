package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/loan-leads/pkg/testutil"
	"github.com/iwvelando/loan-leads/pkg/tracking"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	record := tracking.NewRecord(testutil.ValidUUID, testutil.BaseTime, &tracking.Metadata{
		ProductName:   "KPR - Kredit Pemilikan Rumah",
		LoanAmount:    500000000,
		ApplicantName: "Budi Santoso",
		Email:         "budi@example.com",
		PhoneNumber:   "081234567890",
	})
	if err := s.Create(ctx, record); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := s.Get(ctx, testutil.ValidUUID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.CurrentStatus != tracking.StatusSubmitted {
		t.Errorf("CurrentStatus = %s, expected SUBMITTED", got.CurrentStatus)
	}
	if !got.SubmittedAt.Equal(testutil.BaseTime) || !got.LastUpdated.Equal(testutil.BaseTime) {
		t.Errorf("timestamps = %v / %v", got.SubmittedAt, got.LastUpdated)
	}
	if len(got.StatusHistory) != 1 || got.StatusHistory[0].From != nil {
		t.Fatalf("unexpected history %+v", got.StatusHistory)
	}
	if got.StatusHistory[0].Notes != "Pengajuan telah diterima" {
		t.Errorf("notes = %q", got.StatusHistory[0].Notes)
	}
	if got.Metadata == nil || got.Metadata.ApplicantName != "Budi Santoso" || got.Metadata.LoanAmount != 500000000 {
		t.Errorf("metadata = %+v", got.Metadata)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	if err := s.Create(ctx, tracking.NewRecord(testutil.ValidUUID, testutil.BaseTime, nil)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	err := s.Create(ctx, tracking.NewRecord(testutil.ValidUUID, testutil.BaseTime, nil))
	if !errors.Is(err, ErrExists) {
		t.Errorf("second Create() = %v, expected ErrExists", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openMemory(t)
	if _, err := s.Get(context.Background(), testutil.ValidUUID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = %v, expected ErrNotFound", err)
	}
}

func TestTransition(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	if err := s.Create(ctx, tracking.NewRecord(testutil.ValidUUID, testutil.BaseTime, nil)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	steps := []tracking.Status{tracking.StatusVerified, tracking.StatusApproved, tracking.StatusDisbursed}
	for i, to := range steps {
		at := testutil.BaseTime.Add(time.Duration(i+1) * time.Hour)
		record, err := s.Transition(ctx, testutil.ValidUUID, to, at, "analyst-7", "")
		if err != nil {
			t.Fatalf("Transition(%s) error: %v", to, err)
		}
		if record.CurrentStatus != to {
			t.Errorf("returned status = %s, expected %s", record.CurrentStatus, to)
		}
	}

	got, err := s.Get(ctx, testutil.ValidUUID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.CurrentStatus != tracking.StatusDisbursed {
		t.Errorf("stored status = %s", got.CurrentStatus)
	}
	if len(got.StatusHistory) != 4 {
		t.Fatalf("history length = %d, expected 4", len(got.StatusHistory))
	}
	if warnings := tracking.CheckHistory(got); len(warnings) != 0 {
		t.Errorf("stored history has warnings: %v", warnings)
	}
	if !got.LastUpdated.Equal(testutil.BaseTime.Add(3 * time.Hour)) {
		t.Errorf("LastUpdated = %v", got.LastUpdated)
	}
	if got.StatusHistory[3].UpdatedBy != "analyst-7" {
		t.Errorf("UpdatedBy = %q", got.StatusHistory[3].UpdatedBy)
	}
}

func TestTransitionRejected(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	if err := s.Create(ctx, tracking.NewRecord(testutil.ValidUUID, testutil.BaseTime, nil)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err := s.Transition(ctx, testutil.ValidUUID, tracking.StatusApproved, testutil.BaseTime.Add(time.Hour), "system", "")
	if !errors.Is(err, tracking.ErrInvalidTransition) {
		t.Fatalf("Transition() = %v, expected ErrInvalidTransition", err)
	}

	got, err := s.Get(ctx, testutil.ValidUUID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.CurrentStatus != tracking.StatusSubmitted || len(got.StatusHistory) != 1 {
		t.Error("rejected transition changed the stored record")
	}

	if _, err := s.Transition(ctx, "4a1b2c3d-0000-4000-8000-000000000000", tracking.StatusVerified, time.Now(), "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Transition() on unknown uuid = %v, expected ErrNotFound", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracking.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := s.Create(ctx, tracking.NewRecord(testutil.ValidUUID, testutil.BaseTime, nil)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Get(ctx, testutil.ValidUUID); err != nil {
		t.Errorf("record not persisted: %v", err)
	}
}
