package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/loan-leads/internal/prospect"
	"github.com/iwvelando/loan-leads/internal/store"
	"github.com/iwvelando/loan-leads/internal/trackingclient"
	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/credit"
	"github.com/iwvelando/loan-leads/pkg/testutil"
	"github.com/iwvelando/loan-leads/pkg/tracking"
	"go.uber.org/zap"
)

const unknownUUID = "00000000-0000-4000-8000-000000000000"

type failingSubmitter struct {
	err error
}

func (s failingSubmitter) Submit(context.Context, prospect.Payload) (*prospect.Response, error) {
	return nil, s.err
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.MemoryPath, nil)
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestHandler(t *testing.T, deps Dependencies) (http.Handler, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	if deps.Store == nil {
		deps.Store = st
	}
	if deps.Prospects == nil {
		deps.Prospects = prospect.NewClient(prospect.Config{Mock: true}, nil)
	}
	if deps.Applications == nil {
		deps.Applications = prospect.NewService(catalog.Default(), deps.Prospects, st, nil)
	}
	h := newHandler(zap.NewNop(), deps)
	h.now = func() time.Time { return testutil.BaseTime.Add(24 * time.Hour) }
	return h.routes(), st
}

func do(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHandleVersion(t *testing.T) {
	handler, _ := newTestHandler(t, Dependencies{Version: " 1.2.3 "})

	rr := do(t, handler, http.MethodGet, "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	decode(t, rr, &resp)
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}
}

func TestCORS(t *testing.T) {
	const origin = "https://ekredit.example.id"
	handler, _ := newTestHandler(t, Dependencies{AllowedOrigins: []string{origin}})

	tests := []struct {
		name     string
		method   string
		origin   string
		expected string
	}{
		{"Preflight from allowed origin", http.MethodOptions, origin, origin},
		{"Request from allowed origin", http.MethodGet, origin, origin},
		{"Request from other origin", http.MethodGet, "https://evil.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/products", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.expected {
				t.Errorf("Access-Control-Allow-Origin = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestHandleProducts(t *testing.T) {
	handler, _ := newTestHandler(t, Dependencies{})

	rr := do(t, handler, http.MethodGet, "/api/products", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var products []catalog.Product
	decode(t, rr, &products)
	if len(products) != 3 || products[0].ID != catalog.ProductKPR {
		t.Fatalf("unexpected products %+v", products)
	}

	rr = do(t, handler, http.MethodGet, "/api/products/"+catalog.ProductKMG, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var kmg catalog.Product
	decode(t, rr, &kmg)
	if kmg.Calculation == nil || kmg.Calculation.Type != catalog.CalculationFlat {
		t.Fatalf("unexpected product %+v", kmg)
	}

	rr = do(t, handler, http.MethodGet, "/api/products/PROD-UNKNOWN", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleSimulate(t *testing.T) {
	handler, _ := newTestHandler(t, Dependencies{})
	dp := 20.0

	rr := do(t, handler, http.MethodPost, "/api/simulate", credit.Input{
		ProductID:          catalog.ProductKPR,
		LoanAmount:         400000000,
		Tenor:              20,
		HousePrice:         500000000,
		DownPaymentPercent: &dp,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp simulateResponse
	decode(t, rr, &resp)
	if !resp.Valid || resp.Result == nil {
		t.Fatalf("expected a valid result, got %+v", resp)
	}
	if m := resp.Result.MonthlyInstallment; m < 2530000 || m > 2532000 {
		t.Errorf("MonthlyInstallment = %v, expected about 2531000", m)
	}
	if len(resp.Result.Breakdown) != 12 {
		t.Errorf("expected a 12 month breakdown, got %d rows", len(resp.Result.Breakdown))
	}
	if resp.Result.MaxLoanAmount == nil || *resp.Result.MaxLoanAmount != 400000000 {
		t.Errorf("MaxLoanAmount = %v", resp.Result.MaxLoanAmount)
	}
}

func TestHandleSimulateErrors(t *testing.T) {
	dp := 20.0

	tests := []struct {
		name           string
		maxBodySize    int64
		body           interface{}
		expectedStatus int
		expectedReason string
	}{
		{
			name: "Invalid tenor",
			body: credit.Input{
				ProductID:          catalog.ProductKPR,
				LoanAmount:         400000000,
				Tenor:              7,
				HousePrice:         500000000,
				DownPaymentPercent: &dp,
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedReason: "Tenor harus salah satu dari: 5, 10, 15, 20, 25 tahun",
		},
		{
			name:           "Unknown product",
			body:           credit.Input{ProductID: "PROD-UNKNOWN", LoanAmount: 1, Tenor: 12},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Malformed body",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Body too large",
			maxBodySize:    16,
			body:           credit.Input{ProductID: catalog.ProductKMG, LoanAmount: 100000000, Tenor: 24},
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newTestHandler(t, Dependencies{MaxBodySize: tt.maxBodySize})

			rr := do(t, handler, http.MethodPost, "/api/simulate", tt.body)
			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.expectedReason != "" {
				var resp simulateResponse
				decode(t, rr, &resp)
				if resp.Valid || resp.Reason != tt.expectedReason {
					t.Fatalf("unexpected response %+v", resp)
				}
			}
		})
	}
}

func TestHandleTracking(t *testing.T) {
	handler, st := newTestHandler(t, Dependencies{})
	if err := st.Create(context.Background(), testutil.Record(t, testutil.ValidUUID)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	tests := []struct {
		name           string
		uuid           string
		expectedStatus int
		expectedCode   tracking.ErrorCode
	}{
		{"Known application", testutil.ValidUUID, http.StatusOK, ""},
		{"Upper-case reference", strings.ToUpper(testutil.ValidUUID), http.StatusOK, ""},
		{"Malformed reference", "abc-123", http.StatusBadRequest, tracking.CodeInvalidUUID},
		{"Unknown application", unknownUUID, http.StatusNotFound, tracking.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, handler, http.MethodGet, "/api/tracking/"+tt.uuid, nil)
			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}

			var resp tracking.Response
			decode(t, rr, &resp)
			if tt.expectedCode == "" {
				if !resp.Success || resp.Data == nil || resp.Data.CurrentStatus != tracking.StatusSubmitted {
					t.Fatalf("unexpected envelope %+v", resp)
				}
				return
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.expectedCode {
				t.Fatalf("unexpected envelope %+v", resp)
			}
			if resp.Error.UserMessage == "" {
				t.Error("error envelope should carry a user message")
			}
		})
	}
}

func TestHandleTransition(t *testing.T) {
	handler, st := newTestHandler(t, Dependencies{})
	if err := st.Create(context.Background(), testutil.Record(t, testutil.ValidUUID)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	path := "/api/tracking/" + testutil.ValidUUID + "/transitions"

	rr := do(t, handler, http.MethodPost, path, transitionRequest{Status: "verified", UpdatedBy: "analyst", Notes: "Dokumen lengkap"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp tracking.Response
	decode(t, rr, &resp)
	if resp.Data == nil || resp.Data.CurrentStatus != tracking.StatusVerified || len(resp.Data.StatusHistory) != 2 {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	last := resp.Data.StatusHistory[1]
	if last.UpdatedBy != "analyst" || last.Notes != "Dokumen lengkap" {
		t.Errorf("unexpected history entry %+v", last)
	}

	tests := []struct {
		name           string
		path           string
		body           interface{}
		expectedStatus int
	}{
		{"Backwards transition", path, transitionRequest{Status: "SUBMITTED"}, http.StatusConflict},
		{"Skipping a step", path, transitionRequest{Status: "DISBURSED"}, http.StatusConflict},
		{"Unknown status", path, transitionRequest{Status: "PENDING"}, http.StatusBadRequest},
		{"Malformed body", path, "[", http.StatusBadRequest},
		{"Unknown application", "/api/tracking/" + unknownUUID + "/transitions", transitionRequest{Status: "VERIFIED"}, http.StatusNotFound},
		{"Malformed reference", "/api/tracking/nope/transitions", transitionRequest{Status: "VERIFIED"}, http.StatusBadRequest},
		{"Upper-case reference", "/api/tracking/" + strings.ToUpper(testutil.ValidUUID) + "/transitions", transitionRequest{Status: "SUBMITTED"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, handler, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}

	record, err := st.Get(context.Background(), testutil.ValidUUID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if record.CurrentStatus != tracking.StatusVerified {
		t.Errorf("rejected transitions changed the status to %s", record.CurrentStatus)
	}
}

func TestHandleLoanProspect(t *testing.T) {
	handler, _ := newTestHandler(t, Dependencies{})

	rr := do(t, handler, http.MethodPost, "/api/external/loanprospects", prospect.Payload{FullName: "Andi"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp prospect.Response
	decode(t, rr, &resp)
	if resp.Data == nil || resp.Data.FullName != "Andi" || tracking.ValidateUUID(resp.Data.UUID) != nil {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHandleLoanProspectAPIError(t *testing.T) {
	apiErr := &prospect.Error{Status: http.StatusConflict, Message: "duplicate", UserMessage: prospect.UserMessageForStatus(http.StatusConflict, "")}
	handler, _ := newTestHandler(t, Dependencies{Prospects: failingSubmitter{err: apiErr}})

	rr := do(t, handler, http.MethodPost, "/api/external/loanprospects", prospect.Payload{})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]string
	decode(t, rr, &resp)
	if resp["error"] != apiErr.UserMessage {
		t.Fatalf("expected the user message, got %q", resp["error"])
	}
}

func sampleApplication() prospect.Application {
	return prospect.Application{
		ProductID:   catalog.ProductKMG,
		PhoneNumber: "0812-1111-2222",
		Draft: prospect.Draft{
			Personal: prospect.Personal{
				FullName:  "Budi Santoso",
				Email:     "budi@example.com",
				Birthdate: "1988-01-20",
				Address:   "Jl. Sudirman 5, Bandung",
			},
			Screening: prospect.Screening{
				NIK:            "3273010101880001",
				MonthlyIncome:  9000000,
				RequestedTenor: 24,
				Occupation:     "wiraswasta",
				WorkDuration:   8,
				LoanAmount:     100000000,
			},
			Consent: true,
		},
		Simulation: credit.Input{LoanPurpose: "renovasi"},
	}
}

func TestHandleApplication(t *testing.T) {
	handler, _ := newTestHandler(t, Dependencies{})

	rr := do(t, handler, http.MethodPost, "/api/applications", sampleApplication())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var record tracking.ApplicationTracking
	decode(t, rr, &record)
	if record.CurrentStatus != tracking.StatusSubmitted || record.Metadata == nil || record.Metadata.ApplicantName != "Budi Santoso" {
		t.Fatalf("unexpected record %+v", record)
	}

	rr = do(t, handler, http.MethodGet, "/api/tracking/"+record.UUID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submitted application is not trackable: %d %s", rr.Code, rr.Body.String())
	}
}

func TestHandleApplicationErrors(t *testing.T) {
	tests := []struct {
		name           string
		modify         func(*prospect.Application)
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "No consent",
			modify:         func(a *prospect.Application) { a.Draft.Consent = false },
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "Persetujuan syarat dan ketentuan diperlukan",
		},
		{
			name:           "Missing loan purpose",
			modify:         func(a *prospect.Application) { a.Simulation.LoanPurpose = "" },
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  credit.ReasonLoanPurpose,
		},
		{
			name:           "Unknown product",
			modify:         func(a *prospect.Application) { a.ProductID = "PROD-UNKNOWN" },
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newTestHandler(t, Dependencies{})
			app := sampleApplication()
			tt.modify(&app)

			rr := do(t, handler, http.MethodPost, "/api/applications", app)
			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.expectedError != "" {
				var resp map[string]string
				decode(t, rr, &resp)
				if resp["error"] != tt.expectedError {
					t.Fatalf("error = %q, expected %q", resp["error"], tt.expectedError)
				}
			}
		})
	}
}

func TestTrackingClientAgainstServer(t *testing.T) {
	handler, st := newTestHandler(t, Dependencies{})
	record := testutil.Record(t, testutil.ValidUUID, tracking.StatusVerified, tracking.StatusApproved)
	if err := st.Create(context.Background(), record); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()
	client := trackingclient.New(server.URL, time.Second, nil)

	got, err := client.FetchStatus(context.Background(), testutil.ValidUUID)
	if err != nil {
		t.Fatalf("FetchStatus() error: %v", err)
	}
	if got.CurrentStatus != tracking.StatusApproved || !got.IsFinal() || len(got.StatusHistory) != 3 {
		t.Fatalf("unexpected record %+v", got)
	}

	_, err = client.FetchStatus(context.Background(), unknownUUID)
	if te := tracking.AsError(err); te == nil || te.Code != tracking.CodeNotFound || te.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
