package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/iwvelando/loan-leads/internal/prospect"
	"github.com/iwvelando/loan-leads/internal/store"
	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/constants"
	"github.com/iwvelando/loan-leads/pkg/credit"
	"github.com/iwvelando/loan-leads/pkg/tracking"
	"go.uber.org/zap"
)

// RecordStore reads and advances tracking records.
type RecordStore interface {
	Get(ctx context.Context, uuid string) (*tracking.ApplicationTracking, error)
	Transition(ctx context.Context, uuid string, to tracking.Status, at time.Time, updatedBy, notes string) (*tracking.ApplicationTracking, error)
}

// ApplicationService turns a completed wizard into a tracked application.
type ApplicationService interface {
	SubmitApplication(ctx context.Context, app prospect.Application) (*tracking.ApplicationTracking, error)
}

// Dependencies are the collaborators behind the API routes.
type Dependencies struct {
	Catalog      *catalog.Catalog
	Store        RecordStore
	Prospects    prospect.Submitter
	Applications ApplicationService
	MaxBodySize  int64
	Version      string
	// Origins allowed to call the API from a browser. Empty allows any.
	AllowedOrigins []string
}

type handler struct {
	logger      *zap.Logger
	catalog     *catalog.Catalog
	store       RecordStore
	prospects   prospect.Submitter
	apps        ApplicationService
	maxBodySize int64
	version     string
	origins     []string
	now         func() time.Time
}

// NewHandler constructs the HTTP handler serving the catalog, simulation,
// tracking and submission API.
func NewHandler(logger *zap.Logger, deps Dependencies) http.Handler {
	return newHandler(logger, deps).routes()
}

func newHandler(logger *zap.Logger, deps Dependencies) *handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxBodySize := deps.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	version := strings.TrimSpace(deps.Version)
	if version == "" {
		version = "dev"
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	products := deps.Catalog
	if products == nil {
		products = catalog.Default()
	}

	return &handler{
		logger:      logger,
		catalog:     products,
		store:       deps.Store,
		prospects:   deps.Prospects,
		apps:        deps.Applications,
		maxBodySize: maxBodySize,
		version:     version,
		origins:     origins,
		now:         time.Now,
	}
}

func (h *handler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(constants.DefaultRequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Cache-Control"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)

		r.Get("/products", h.handleProducts)
		r.Get("/products/{id}", h.handleProduct)
		r.Post("/simulate", h.handleSimulate)

		r.Get("/tracking/{uuid}", h.handleTracking)
		r.Post("/tracking/{uuid}/transitions", h.handleTransition)

		r.Post("/external/loanprospects", h.handleLoanProspect)
		r.Post("/applications", h.handleApplication)
	})

	return r
}

func (h *handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Debug("http request",
			zap.String("op", "server.loggingMiddleware"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.catalog.All())
}

func (h *handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.catalog.Lookup(chi.URLParam(r, "id"))
	if !ok {
		h.respondErrorWithOp(w, http.StatusNotFound, "product not found", "server.handleProduct")
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}

type simulateResponse struct {
	Valid  bool           `json:"valid"`
	Reason string         `json:"reason,omitempty"`
	Result *credit.Result `json:"result,omitempty"`
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"

	var input credit.Input
	if !h.decodeJSON(w, r, &input, op) {
		return
	}

	product, ok := h.catalog.Lookup(input.ProductID)
	if !ok {
		h.respondErrorWithOp(w, http.StatusNotFound, "product not found", op)
		return
	}

	validation := credit.Validate(input, product)
	if !validation.Valid {
		h.writeJSON(w, http.StatusUnprocessableEntity, simulateResponse{Reason: validation.Reason})
		return
	}

	result := credit.Calculate(input, product)
	if result == nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, simulateResponse{Reason: "Simulasi tidak dapat dihitung"})
		return
	}

	h.logger.Debug("simulation computed",
		zap.String("op", op),
		zap.String("product", product.ID),
		zap.Float64("loan_amount", input.LoanAmount),
		zap.Int("tenor", input.Tenor),
	)
	h.writeJSON(w, http.StatusOK, simulateResponse{Valid: true, Result: result})
}

func (h *handler) handleTracking(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTracking"

	// Stored references are lower case; ValidateUUID accepts either.
	uuid := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "uuid")))
	if err := tracking.ValidateUUID(uuid); err != nil {
		h.writeEnvelopeError(w, tracking.NewError(tracking.CodeInvalidUUID, err.Error()), op)
		return
	}
	if h.store == nil {
		h.writeEnvelopeError(w, tracking.NewError(tracking.CodeServerError, "tracking store is not configured"), op)
		return
	}

	record, err := h.store.Get(r.Context(), uuid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeEnvelopeError(w, tracking.NewError(tracking.CodeNotFound, "Application not found"), op)
			return
		}
		h.writeEnvelopeError(w, tracking.NewError(tracking.CodeServerError, err.Error()), op)
		return
	}

	h.writeJSON(w, http.StatusOK, tracking.Response{Success: true, Data: record})
}

type transitionRequest struct {
	Status    string `json:"status"`
	UpdatedBy string `json:"updatedBy"`
	Notes     string `json:"notes,omitempty"`
}

func (h *handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTransition"

	// Stored references are lower case; ValidateUUID accepts either.
	uuid := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "uuid")))
	if err := tracking.ValidateUUID(uuid); err != nil {
		h.writeEnvelopeError(w, tracking.NewError(tracking.CodeInvalidUUID, err.Error()), op)
		return
	}
	if h.store == nil {
		h.writeEnvelopeError(w, tracking.NewError(tracking.CodeServerError, "tracking store is not configured"), op)
		return
	}

	var req transitionRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	to, err := tracking.ParseStatus(req.Status)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	updatedBy := strings.TrimSpace(req.UpdatedBy)
	if updatedBy == "" {
		updatedBy = "system"
	}

	record, err := h.store.Transition(r.Context(), uuid, to, h.now(), updatedBy, req.Notes)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		h.writeEnvelopeError(w, tracking.NewError(tracking.CodeNotFound, "Application not found"), op)
		return
	case errors.Is(err, tracking.ErrInvalidTransition):
		h.respondErrorWithOp(w, http.StatusConflict, err.Error(), op)
		return
	default:
		h.writeEnvelopeError(w, tracking.NewError(tracking.CodeServerError, err.Error()), op)
		return
	}

	h.logger.Info("application status changed",
		zap.String("op", op),
		zap.String("uuid", uuid),
		zap.String("status", string(record.CurrentStatus)),
		zap.String("updated_by", updatedBy),
	)
	h.writeJSON(w, http.StatusOK, tracking.Response{Success: true, Data: record})
}

func (h *handler) handleLoanProspect(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleLoanProspect"

	if h.prospects == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "loan prospect API is not configured", op)
		return
	}

	var payload prospect.Payload
	if !h.decodeJSON(w, r, &payload, op) {
		return
	}

	resp, err := h.prospects.Submit(r.Context(), payload)
	if err != nil {
		h.respondProspectError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *handler) handleApplication(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleApplication"

	if h.apps == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "application submission is not configured", op)
		return
	}

	var app prospect.Application
	if !h.decodeJSON(w, r, &app, op) {
		return
	}

	record, err := h.apps.SubmitApplication(r.Context(), app)
	if err != nil {
		var rejected *prospect.RejectedError
		switch {
		case errors.As(err, &rejected):
			h.respondErrorWithOp(w, http.StatusUnprocessableEntity, rejected.Reason, op)
		case errors.Is(err, prospect.ErrUnknownProduct):
			h.respondErrorWithOp(w, http.StatusNotFound, "product not found", op)
		default:
			h.respondProspectError(w, err, op)
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, record)
}

func (h *handler) respondProspectError(w http.ResponseWriter, err error, op string) {
	var apiErr *prospect.Error
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		h.respondErrorWithOp(w, status, apiErr.UserMessage, op)
		return
	}
	h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
}

// decodeJSON reads the request body into dst, answering the request itself
// and returning false on failure.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) writeEnvelopeError(w http.ResponseWriter, te *tracking.Error, op string) {
	status := te.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.logger.Warn("tracking request failed",
		zap.String("op", op),
		zap.String("code", string(te.Code)),
		zap.Int("status", status),
		zap.String("error", te.Message),
	)
	h.writeJSON(w, status, tracking.Response{Success: false, Error: te})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	log := h.logger.Warn
	if status >= http.StatusInternalServerError {
		log = h.logger.Error
	}
	log("api request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
