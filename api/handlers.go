/*
handlers.go - HTTP API handlers for the tax engine

PURPOSE:
  Exposes the IFTA, HVUT and UCR calculators via REST API. Handles HTTP
  request/response, JSON serialization, rate table selection and filing
  persistence, and delegates the math to the domain packages.

ENDPOINTS:
  Calculators:
    POST   /api/ifta/calculate         Reconcile one reporting period
    POST   /api/ifta/batch             Reconcile many periods concurrently
    POST   /api/hvut/calculate         Form 2290 heavy vehicle use tax
    POST   /api/ucr/calculate          Unified Carrier Registration fee

  Rates:
    GET    /api/rates/{code}           Single lookup (?table= to pick one)
    GET    /api/rate-tables            List tables
    POST   /api/rate-tables            Publish a table (JSON or YAML body)
    GET    /api/rate-tables/{id}       Table with all rates
    POST   /api/rate-tables/{id}/activate  Make a table the default

  Filings:
    GET    /api/filings                List (?carrier_id= &kind= &limit=)
    GET    /api/filings/{id}           One filing with request and result

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (generic.Store)
  - RateFactory: Document to rate table conversion
  - Cached rate tables, plus the active one used when a request names none

REQUEST FLOW:
  1. Decode JSON (numbers kept as json.Number)
  2. Resolve the rate table
  3. Call the calculator (validation happens there)
  4. Optionally persist a filing
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON {error, details} with HTTP status:
  - 400: Validation errors, unknown jurisdiction under a rejecting table
  - 404: Rate table, filing or fee schedule not found
  - 409: Filing id already used
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Run behind a gateway that handles it.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Canned demo calculations
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/haulfile/tax-engine/factory"
	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/hvut"
	"github.com/haulfile/tax-engine/ifta"
	"github.com/haulfile/tax-engine/ucr"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxBodyBytes       = 4 << 20
	defaultFilingLimit = 50
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       generic.Store
	RateFactory *factory.RateTableFactory
	Logger      *zap.Logger

	// BatchConcurrency bounds the goroutines used by /api/ifta/batch.
	BatchConcurrency int

	mu     sync.RWMutex
	active *generic.StaticRateTable
	tables map[generic.RateTableID]*generic.StaticRateTable
}

// NewHandler creates a handler using active for requests that name no table.
func NewHandler(store generic.Store, active *generic.StaticRateTable, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	rf := factory.NewRateTableFactory()
	rf.DefaultPolicy = active.Policy()
	return &Handler{
		Store:            store,
		RateFactory:      rf,
		Logger:           logger,
		BatchConcurrency: 4,
		active:           active,
		tables:           map[generic.RateTableID]*generic.StaticRateTable{active.ID(): active},
	}
}

// LoadRateTables loads all stored tables into the cache.
func (h *Handler) LoadRateTables(ctx context.Context) error {
	records, err := h.Store.ListRateTables(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, rec := range records {
		table, err := h.RateFactory.ParseJSON([]byte(rec.ConfigJSON))
		if err != nil {
			h.Logger.Warn("skipping invalid stored rate table",
				zap.String("rate_table_id", string(rec.ID)), zap.Error(err))
			continue
		}
		h.tables[table.ID()] = table
	}
	return nil
}

// PublishRateTable stores a table and makes it available to requests.
func (h *Handler) PublishRateTable(ctx context.Context, table *generic.StaticRateTable) error {
	doc, err := h.RateFactory.Marshal(table)
	if err != nil {
		return err
	}
	if err := h.Store.SaveRateTable(ctx, generic.RateTableRecord{
		ID:         table.ID(),
		Name:       table.Name(),
		Quarter:    table.Quarter(),
		ConfigJSON: doc,
	}); err != nil {
		return fmt.Errorf("save rate table: %w", err)
	}

	h.mu.Lock()
	h.tables[table.ID()] = table
	if h.active.ID() == table.ID() {
		h.active = table
	}
	h.mu.Unlock()
	return nil
}

// SetActive switches the default table.
func (h *Handler) SetActive(table *generic.StaticRateTable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = table
	h.tables[table.ID()] = table
}

func (h *Handler) Active() *generic.StaticRateTable {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

// resolveTable returns the active table for an empty id, otherwise the
// cached or stored table.
func (h *Handler) resolveTable(ctx context.Context, id string) (*generic.StaticRateTable, error) {
	if id == "" {
		return h.Active(), nil
	}
	tid := generic.RateTableID(id)

	h.mu.RLock()
	table, ok := h.tables[tid]
	h.mu.RUnlock()
	if ok {
		return table, nil
	}

	rec, err := h.Store.GetRateTable(ctx, tid)
	if err != nil {
		return nil, err
	}
	table, err = h.RateFactory.ParseJSON([]byte(rec.ConfigJSON))
	if err != nil {
		return nil, fmt.Errorf("stored rate table %s: %w", tid, err)
	}

	h.mu.Lock()
	h.tables[tid] = table
	h.mu.Unlock()
	return table, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness and the active rate table.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	active := h.Active()
	writeJSON(w, http.StatusOK, HealthDTO{
		Status:          "ok",
		ActiveRateTable: string(active.ID()),
		UnknownPolicy:   string(active.Policy()),
	})
}

// =============================================================================
// IFTA HANDLERS
// =============================================================================

// CalculateIFTA reconciles one reporting period.
// POST /api/ifta/calculate
func (h *Handler) CalculateIFTA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IFTACalculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, summary, err := h.calculateIFTA(ctx, req)
	if err != nil {
		h.writeDomainError(w, "IFTA calculation failed", err)
		return
	}

	if req.Save {
		id, err := h.saveFiling(ctx, generic.FilingIFTA, req.CarrierID, resp.Quarter, summary.RateTableID, req, resp, summary.TotalTaxDue)
		if err != nil {
			h.writeDomainError(w, "Failed to save filing", err)
			return
		}
		resp.FilingID = id
	}

	writeJSON(w, http.StatusOK, resp)
}

// BatchIFTA reconciles several periods concurrently. Results keep request
// order; the first failure fails the batch and nothing is saved.
// POST /api/ifta/batch
func (h *Handler) BatchIFTA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IFTABatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Calculations) == 0 {
		writeError(w, http.StatusBadRequest, "Batch is empty",
			&generic.InputError{Field: "calculations", Index: -1, Reason: "at least one calculation is required"})
		return
	}

	results := make([]IFTACalculateResponse, len(req.Calculations))
	summaries := make([]*ifta.FleetSummary, len(req.Calculations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(h.BatchConcurrency, 1))
	for i := range req.Calculations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resp, summary, err := h.calculateIFTA(gctx, req.Calculations[i])
			if err != nil {
				return fmt.Errorf("calculation %d: %w", i, err)
			}
			results[i] = resp
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.writeDomainError(w, "IFTA batch failed", err)
		return
	}

	for i, c := range req.Calculations {
		if !c.Save {
			continue
		}
		id, err := h.saveFiling(ctx, generic.FilingIFTA, c.CarrierID, results[i].Quarter,
			summaries[i].RateTableID, c, results[i], summaries[i].TotalTaxDue)
		if err != nil {
			h.writeDomainError(w, "Failed to save filing", err)
			return
		}
		results[i].FilingID = id
	}

	h.Logger.Debug("ifta batch computed", zap.Int("calculations", len(results)))
	writeJSON(w, http.StatusOK, IFTABatchResponse{Results: results})
}

func (h *Handler) calculateIFTA(ctx context.Context, req IFTACalculateRequest) (IFTACalculateResponse, *ifta.FleetSummary, error) {
	table, err := h.resolveTable(ctx, req.RateTableID)
	if err != nil {
		return IFTACalculateResponse{}, nil, err
	}
	if req.UnknownJurisdictions != "" {
		policy, err := generic.ParseUnknownPolicy(req.UnknownJurisdictions)
		if err != nil {
			return IFTACalculateResponse{}, nil, err
		}
		table = table.WithPolicy(policy)
	}

	var resp IFTACalculateResponse
	if req.Quarter != "" {
		q, err := generic.ParseQuarter(req.Quarter)
		if err != nil {
			return IFTACalculateResponse{}, nil, err
		}
		resp.Quarter = q.String()
		resp.DueDate = q.DueDate().Format("2006-01-02")
	}

	summary, err := ifta.NewCalculator(table).CalculateRaw(req.RawInput)
	if err != nil {
		return IFTACalculateResponse{}, nil, err
	}
	resp.Report = summary.Report()

	h.Logger.Debug("ifta calculated",
		zap.String("rate_table_id", string(summary.RateTableID)),
		zap.Int("jurisdictions", len(summary.JurisdictionResults)),
		zap.Int("unrated", len(summary.UnratedJurisdictions)),
		zap.String("total_tax_due", summary.TotalTaxDue.String()),
	)
	return resp, summary, nil
}

// =============================================================================
// HVUT / UCR HANDLERS
// =============================================================================

// CalculateHVUT computes a Form 2290 return.
// POST /api/hvut/calculate
func (h *Handler) CalculateHVUT(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req HVUTCalculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dto, res, err := calculateHVUT(req)
	if err != nil {
		h.writeDomainError(w, "HVUT calculation failed", err)
		return
	}

	if req.Save {
		id, err := h.saveFiling(ctx, generic.FilingHVUT, req.CarrierID, res.Period.String(), "", req, dto, res.TotalDue)
		if err != nil {
			h.writeDomainError(w, "Failed to save filing", err)
			return
		}
		dto.FilingID = id
	}

	writeJSON(w, http.StatusOK, dto)
}

func calculateHVUT(req HVUTCalculateRequest) (HVUTResultDTO, *hvut.Result, error) {
	ret, err := req.toReturn()
	if err != nil {
		return HVUTResultDTO{}, nil, err
	}
	res, err := hvut.Calculate(ret)
	if err != nil {
		return HVUTResultDTO{}, nil, err
	}
	return toHVUTResultDTO(res), res, nil
}

// CalculateUCR looks up the annual UCR fee.
// POST /api/ucr/calculate
func (h *Handler) CalculateUCR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UCRCalculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dto, res, err := calculateUCR(req)
	if err != nil {
		h.writeDomainError(w, "UCR calculation failed", err)
		return
	}

	if req.Save {
		id, err := h.saveFiling(ctx, generic.FilingUCR, req.CarrierID, strconv.Itoa(res.Year), "", req, dto, res.Fee)
		if err != nil {
			h.writeDomainError(w, "Failed to save filing", err)
			return
		}
		dto.FilingID = id
	}

	writeJSON(w, http.StatusOK, dto)
}

func calculateUCR(req UCRCalculateRequest) (UCRResultDTO, *ucr.Result, error) {
	if req.Year == 0 {
		return UCRResultDTO{}, nil, &generic.InputError{Field: "year", Index: -1, Reason: "registration year is required"}
	}
	res, err := ucr.CalculateBuiltin(ucr.Registration{
		Year:       req.Year,
		PowerUnits: req.PowerUnits,
		BrokerOnly: req.BrokerOnly,
	})
	if err != nil {
		return UCRResultDTO{}, nil, err
	}
	return toUCRResultDTO(res), res, nil
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// GetRate returns the rate for one jurisdiction.
// GET /api/rates/{code}?table=
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	table, err := h.resolveTable(r.Context(), r.URL.Query().Get("table"))
	if err != nil {
		h.writeDomainError(w, "Rate table not available", err)
		return
	}

	code := chi.URLParam(r, "code")
	rate, known, err := ifta.RateForState(table, code)
	if errors.Is(err, generic.ErrUnknownJurisdiction) {
		writeError(w, http.StatusNotFound, "Jurisdiction not in rate table", err)
		return
	}
	if err != nil {
		h.writeDomainError(w, "Invalid jurisdiction", err)
		return
	}

	writeJSON(w, http.StatusOK, RateLookupDTO{
		State:       string(generic.NormalizeJurisdiction(code)),
		Rate:        rate.InexactFloat64(),
		Known:       known,
		RateTableID: string(table.ID()),
	})
}

// ListRateTables returns stored tables plus the active one if it was never
// stored (the built-in table).
// GET /api/rate-tables
func (h *Handler) ListRateTables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.Store.ListRateTables(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rate tables", err)
		return
	}

	active := h.Active()
	dtos := make([]RateTableDTO, 0, len(records)+1)
	sawActive := false
	for _, rec := range records {
		table, err := h.resolveTable(ctx, string(rec.ID))
		if err != nil {
			h.Logger.Warn("rate table listed but unreadable", zap.String("rate_table_id", string(rec.ID)), zap.Error(err))
			continue
		}
		if rec.ID == active.ID() {
			sawActive = true
		}
		dtos = append(dtos, toRateTableDTO(table, &rec, rec.ID == active.ID(), false))
	}
	if !sawActive {
		dtos = append([]RateTableDTO{toRateTableDTO(active, nil, true, false)}, dtos...)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetRateTable returns one table with all its rates.
// GET /api/rate-tables/{id}
func (h *Handler) GetRateTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	table, err := h.resolveTable(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Rate table not found", err)
		return
	}

	var rec *generic.RateTableRecord
	if stored, err := h.Store.GetRateTable(ctx, table.ID()); err == nil {
		rec = stored
	} else if !generic.IsNotFound(err) {
		writeError(w, http.StatusInternalServerError, "Failed to load rate table", err)
		return
	}

	writeJSON(w, http.StatusOK, toRateTableDTO(table, rec, table.ID() == h.Active().ID(), true))
}

// CreateRateTable publishes a rate table document. YAML bodies are accepted
// with a YAML content type. ?activate=true also makes it the default.
// POST /api/rate-tables
func (h *Handler) CreateRateTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var table *generic.StaticRateTable
	if isYAML(r.Header.Get("Content-Type")) {
		table, err = h.RateFactory.ParseYAML(body)
	} else {
		table, err = h.RateFactory.ParseJSON(body)
	}
	if err != nil {
		h.writeDomainError(w, "Invalid rate table", err)
		return
	}

	if err := h.PublishRateTable(ctx, table); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate table", err)
		return
	}
	if r.URL.Query().Get("activate") == "true" {
		h.SetActive(table)
	}

	h.Logger.Info("rate table published",
		zap.String("rate_table_id", string(table.ID())),
		zap.Int("jurisdictions", table.Len()),
		zap.Bool("active", table.ID() == h.Active().ID()),
	)

	rec, _ := h.Store.GetRateTable(ctx, table.ID())
	writeJSON(w, http.StatusCreated, toRateTableDTO(table, rec, table.ID() == h.Active().ID(), true))
}

// ActivateRateTable makes a known table the default.
// POST /api/rate-tables/{id}/activate
func (h *Handler) ActivateRateTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.resolveTable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Rate table not found", err)
		return
	}
	h.SetActive(table)
	h.Logger.Info("rate table activated", zap.String("rate_table_id", string(table.ID())))
	writeJSON(w, http.StatusOK, toRateTableDTO(table, nil, true, false))
}

func toRateTableDTO(t *generic.StaticRateTable, rec *generic.RateTableRecord, active, withRates bool) RateTableDTO {
	dto := RateTableDTO{
		ID:            string(t.ID()),
		Name:          t.Name(),
		Quarter:       t.Quarter(),
		UnknownPolicy: string(t.Policy()),
		Jurisdictions: t.Len(),
		Active:        active,
	}
	if rec != nil {
		dto.Version = rec.Version
		dto.UpdatedAt = rec.UpdatedAt
	}
	if withRates {
		dto.Rates = make(map[string]factory.RateValue, t.Len())
		for code, rate := range t.Rates() {
			dto.Rates[string(code)] = factory.RateValue(rate.String())
		}
	}
	return dto
}

func isYAML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "yaml")
}

// =============================================================================
// FILING HANDLERS
// =============================================================================

// ListFilings returns filings newest first.
// GET /api/filings?carrier_id=&kind=&limit=
func (h *Handler) ListFilings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := generic.FilingFilter{
		CarrierID: generic.CarrierID(q.Get("carrier_id")),
		Kind:      generic.FilingKind(q.Get("kind")),
		Limit:     defaultFilingLimit,
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid kind", fmt.Errorf("kind must be ifta, hvut or ucr"))
		return
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", fmt.Errorf("limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	filings, err := h.Store.ListFilings(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list filings", err)
		return
	}

	dtos := make([]FilingDTO, len(filings))
	for i, f := range filings {
		dtos[i] = toFilingDTO(f, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetFiling returns one filing with its request and result documents.
// GET /api/filings/{id}
func (h *Handler) GetFiling(w http.ResponseWriter, r *http.Request) {
	f, err := h.Store.GetFiling(r.Context(), generic.FilingID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Filing not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toFilingDTO(*f, true))
}

// saveFiling persists a calculation and returns the new filing id. The
// result document is written before the id is attached to it.
func (h *Handler) saveFiling(ctx context.Context, kind generic.FilingKind, carrier, period string,
	tableID generic.RateTableID, request, result any, total decimal.Decimal) (string, error) {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode filing request: %w", err)
	}
	resJSON, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode filing result: %w", err)
	}

	f := generic.Filing{
		ID:          generic.FilingID(uuid.NewString()),
		Kind:        kind,
		CarrierID:   generic.CarrierID(carrier),
		Period:      period,
		RateTableID: tableID,
		RequestJSON: string(reqJSON),
		ResultJSON:  string(resJSON),
		TotalDue:    total.String(),
	}
	if err := h.Store.SaveFiling(ctx, f); err != nil {
		return "", err
	}

	h.Logger.Info("filing saved",
		zap.String("filing_id", string(f.ID)),
		zap.String("kind", string(kind)),
		zap.String("carrier_id", carrier),
		zap.String("total_due", f.TotalDue),
	)
	return string(f.ID), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeJSON reads a bounded body. Untyped numbers stay json.Number so
// decimals are parsed from their original text.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, generic.ErrFilingExists):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
