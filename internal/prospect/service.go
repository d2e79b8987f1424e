package prospect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/credit"
	"github.com/iwvelando/loan-leads/pkg/format"
	"github.com/iwvelando/loan-leads/pkg/tracking"
	"go.uber.org/zap"
)

// ErrUnknownProduct is returned for an application naming no catalog
// product.
var ErrUnknownProduct = errors.New("unknown product")

// ErrMissingProspect is returned when the prospect API accepted an
// application without issuing a reference number.
var ErrMissingProspect = errors.New("prospect response carries no uuid")

// RejectedError is an application refused before submission. Reason is the
// localized text shown to the applicant.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return e.Reason
}

// Submitter sends a payload to the loan-prospect API.
type Submitter interface {
	Submit(ctx context.Context, payload Payload) (*Response, error)
}

// RecordStore persists new tracking records.
type RecordStore interface {
	Create(ctx context.Context, record *tracking.ApplicationTracking) error
}

// Application is a completed wizard ready for submission. Simulation
// carries the optional simulator fields (house price, down payment,
// purposes); amount and tenor always come from the draft.
type Application struct {
	ProductID   string       `json:"productId"`
	Draft       Draft        `json:"draft"`
	PhoneNumber string       `json:"phoneNumber"`
	Simulation  credit.Input `json:"simulation"`
}

// Service validates applications, submits them and starts tracking.
type Service struct {
	catalog   *catalog.Catalog
	submitter Submitter
	store     RecordStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a Service. A nil logger disables logging.
func NewService(products *catalog.Catalog, submitter Submitter, store RecordStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:   products,
		submitter: submitter,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// SubmitApplication checks the application against the product, submits it
// and stores the initial SUBMITTED tracking record under the prospect UUID
// the API issued.
func (s *Service) SubmitApplication(ctx context.Context, app Application) (*tracking.ApplicationTracking, error) {
	product, ok := s.catalog.Lookup(app.ProductID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, app.ProductID)
	}

	if err := checkDraft(app.Draft); err != nil {
		return nil, err
	}

	input := app.Simulation
	input.ProductID = product.ID
	input.LoanAmount = app.Draft.Screening.LoanAmount
	input.Tenor = app.Draft.Screening.RequestedTenor
	if v := credit.Validate(input, product); !v.Valid {
		return nil, &RejectedError{Reason: v.Reason}
	}
	if !product.Eligible(app.Draft.Screening.MonthlyIncome) {
		return nil, &RejectedError{Reason: fmt.Sprintf("Penghasilan minimal %s untuk produk ini",
			format.Rupiah(product.Constraints.MinIncome))}
	}

	resp, err := s.submitter.Submit(ctx, Transform(app.Draft, product, app.PhoneNumber))
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Data == nil || strings.TrimSpace(resp.Data.UUID) == "" {
		return nil, ErrMissingProspect
	}

	uuid := strings.ToLower(strings.TrimSpace(resp.Data.UUID))
	record := tracking.NewRecord(uuid, s.now(), &tracking.Metadata{
		ProductName:   product.Name,
		LoanAmount:    app.Draft.Screening.LoanAmount,
		ApplicantName: app.Draft.Personal.FullName,
		Email:         app.Draft.Personal.Email,
		PhoneNumber:   app.PhoneNumber,
	})
	if err := s.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record submitted application: %w", err)
	}

	s.logger.Info("application submitted",
		zap.String("op", "prospect.SubmitApplication"),
		zap.String("uuid", record.UUID),
		zap.String("product", product.ID),
	)
	return record, nil
}

func checkDraft(d Draft) error {
	switch {
	case !d.Consent:
		return &RejectedError{Reason: "Persetujuan syarat dan ketentuan diperlukan"}
	case strings.TrimSpace(d.Personal.FullName) == "":
		return &RejectedError{Reason: "Nama lengkap harus diisi"}
	case len(digitsOnly(d.Screening.NIK)) != 16 || len(d.Screening.NIK) != 16:
		return &RejectedError{Reason: "NIK harus 16 digit angka"}
	}
	return nil
}
