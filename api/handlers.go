/*
handlers.go - HTTP API handlers for the credit engine

PURPOSE:
  Exposes the credit engine via REST API. Handles HTTP request/response,
  JSON serialization, input validation, and delegates to domain logic.

ENDPOINTS:
  Simulation:
    POST   /api/schedules/simulate       Amortization table, no persistence
    POST   /api/schedules/compare        Both methods side by side

  Credits:
    POST   /api/credits                  Request a credit against a product
    GET    /api/credits/{id}             Credit details
    GET    /api/credits/{id}/installments Schedule with payment state
    GET    /api/credits/{id}/payments    Payment history
    POST   /api/credits/{id}/approve     requested -> approved
    POST   /api/credits/{id}/reject      requested/approved -> rejected
    POST   /api/credits/{id}/disburse    approved -> disbursed + schedule
    POST   /api/credits/{id}/payments    Apply a payment
    POST   /api/credits/{id}/reevaluate  Delinquency pass as of a date
    POST   /api/credits/{id}/refinance   Restructure remaining balance

  Guarantees:
    GET    /api/credits/{id}/guarantees          List stakes
    POST   /api/credits/{id}/guarantees          Attach the guarantor pair
    POST   /api/credits/{id}/guarantees/execute  Liquidate (written-off only)
    POST   /api/guarantees/{id}/release/request
    POST   /api/guarantees/{id}/release/approve
    POST   /api/guarantees/{id}/release/deny

  Products:
    GET    /api/products                 List catalog IDs
    GET    /api/products/{id}            Product definition
    POST   /api/products                 Load a JSON definition

  Savings:
    GET    /api/members/{id}/savings     Member savings position

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, engine preconditions
  - 404: Resource not found
  - 409: State conflicts (bad transition, duplicate, not payable)
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. The source system runs behind the
  cooperative's gateway which owns authn/authz.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/coopfin/credit-engine/credit"
	"github.com/coopfin/credit-engine/engine"
	"github.com/coopfin/credit-engine/product"
	"github.com/coopfin/credit-engine/savings"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *credit.Service
	Store   credit.TxStore
	Catalog *product.Catalog

	// Defaults apply to credits with no catalog product.
	Defaults credit.Params

	validate *validator.Validate
}

// NewHandler creates a new handler over the service and store.
func NewHandler(svc *credit.Service, store credit.TxStore, catalog *product.Catalog, defaults credit.Params) *Handler {
	return &Handler{
		Service:  svc,
		Store:    store,
		Catalog:  catalog,
		Defaults: defaults,
		validate: validator.New(),
	}
}

// params resolves the financial parameters for a credit: its product's
// if it references one, the configured defaults otherwise.
func (h *Handler) params(c *credit.Credit) credit.Params {
	if c.ProductID != "" {
		if p, err := h.Catalog.Get(c.ProductID); err == nil {
			return p.Params()
		}
	}
	return h.Defaults
}

// =============================================================================
// SIMULATION HANDLERS
// =============================================================================

// SimulateSchedule generates an amortization table without persisting
// anything. Used by the front office to quote terms.
func (h *Handler) SimulateSchedule(w http.ResponseWriter, r *http.Request) {
	var req SimulateScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, ok := h.scheduleInput(w, req.Principal, req.AnnualRatePercent, req.TermMonths, req.Method, req.DisbursementDate)
	if !ok {
		return
	}

	sched, err := engine.GenerateSchedule(in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// CompareMethods runs both amortization methods over the same terms.
func (h *Handler) CompareMethods(w http.ResponseWriter, r *http.Request) {
	var req CompareMethodsRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, ok := h.scheduleInput(w, req.Principal, req.AnnualRatePercent, req.TermMonths, string(engine.MethodFixedInstallment), req.DisbursementDate)
	if !ok {
		return
	}

	cmp, err := engine.CompareMethods(in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (h *Handler) scheduleInput(w http.ResponseWriter, principal, rate string, term int, method, date string) (engine.ScheduleInput, bool) {
	amount, err := engine.ParseMoney(principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid principal", err)
		return engine.ScheduleInput{}, false
	}
	ratePct, err := decimal.NewFromString(rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid annual_rate_percent", err)
		return engine.ScheduleInput{}, false
	}
	d, err := engine.ParseDate(date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid disbursement_date (use YYYY-MM-DD)", err)
		return engine.ScheduleInput{}, false
	}
	m := engine.Method(method)
	if method == "" {
		m = engine.MethodFixedInstallment
	}
	return engine.ScheduleInput{
		Principal:         amount,
		AnnualRatePercent: ratePct,
		TermMonths:        term,
		Method:            m,
		DisbursementDate:  d,
	}, true
}

// =============================================================================
// CREDIT HANDLERS
// =============================================================================

// CreateCredit registers a credit application against a catalog product.
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	var req CreateCreditRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.Catalog.Get(req.ProductID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	amount, err := engine.ParseMoney(req.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid principal", err)
		return
	}
	if err := p.ValidateRequest(amount, req.TermMonths); err != nil {
		writeDomainError(w, err)
		return
	}

	method := p.Method
	if req.Method != "" {
		method = engine.Method(req.Method)
	}

	c, err := h.Service.RequestCredit(r.Context(), credit.RequestInput{
		MemberID:          credit.MemberID(req.MemberID),
		ProductID:         p.ID,
		Principal:         amount,
		TermMonths:        req.TermMonths,
		Method:            method,
		AnnualRatePercent: p.AnnualRatePercent,
	}, p.Params())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreditDTO(c))
}

// GetCredit returns a single credit.
func (h *Handler) GetCredit(w http.ResponseWriter, r *http.Request) {
	id := credit.CreditID(chi.URLParam(r, "id"))
	c, err := h.Store.GetCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditDTO(c))
}

// ListCredits returns credits filtered by state (?state=disbursed).
func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	state := credit.CreditState(r.URL.Query().Get("state"))
	if state == "" {
		state = credit.StateDisbursed
	}
	credits, err := h.Store.ListCreditsByState(r.Context(), state)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CreditDTO, len(credits))
	for i, c := range credits {
		dtos[i] = toCreditDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInstallments returns a credit's schedule with payment state.
func (h *Handler) GetInstallments(w http.ResponseWriter, r *http.Request) {
	id := credit.CreditID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetCredit(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	installments, err := h.Store.InstallmentsByCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]InstallmentDTO, len(installments))
	for i, inst := range installments {
		dtos[i] = toInstallmentDTO(inst)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayments returns a credit's payment history.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	id := credit.CreditID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetCredit(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	payments, err := h.Store.PaymentsByCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveCredit moves a requested credit to approved.
func (h *Handler) ApproveCredit(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Approve(r.Context(), credit.CreditID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditDTO(c))
}

// RejectCredit declines a requested or approved credit.
func (h *Handler) RejectCredit(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Reject(r.Context(), credit.CreditID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditDTO(c))
}

// DisburseCredit disburses an approved credit and returns the generated
// schedule.
func (h *Handler) DisburseCredit(w http.ResponseWriter, r *http.Request) {
	var req DisburseRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	sched, err := h.Service.Disburse(r.Context(), credit.CreditID(chi.URLParam(r, "id")), date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// ApplyPayment distributes a payment across the credit's installments.
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := engine.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	method := credit.PaymentMethod(req.Method)
	if req.Method == "" {
		method = credit.PaymentCash
	}

	id := credit.CreditID(chi.URLParam(r, "id"))
	c, err := h.Store.GetCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payment, err := h.Service.ApplyPayment(r.Context(), id, amount, date, method, h.params(c))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

// Reevaluate runs the delinquency pass over one credit.
func (h *Handler) Reevaluate(w http.ResponseWriter, r *http.Request) {
	var req ReevaluateRequest
	if !h.decode(w, r, &req) {
		return
	}
	asOf, err := engine.ParseDate(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}

	id := credit.CreditID(chi.URLParam(r, "id"))
	c, err := h.Store.GetCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	report, err := h.Service.Reevaluate(r.Context(), id, asOf, h.params(c))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// Refinance restructures a credit's remaining balance.
func (h *Handler) Refinance(w http.ResponseWriter, r *http.Request) {
	var req RefinanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	sched, err := h.Service.Refinance(r.Context(), credit.CreditID(chi.URLParam(r, "id")),
		req.TermMonths, engine.Method(req.Method), date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// =============================================================================
// GUARANTEE HANDLERS
// =============================================================================

// GetGuarantees lists a credit's guarantor stakes.
func (h *Handler) GetGuarantees(w http.ResponseWriter, r *http.Request) {
	id := credit.CreditID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetCredit(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	gs, err := h.Store.GuaranteesByCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]GuaranteeDTO, len(gs))
	for i, g := range gs {
		dtos[i] = toGuaranteeDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AttachGuarantees constitutes the two-guarantor pair for a credit.
func (h *Handler) AttachGuarantees(w http.ResponseWriter, r *http.Request) {
	var req AttachGuaranteesRequest
	if !h.decode(w, r, &req) {
		return
	}

	id := credit.CreditID(chi.URLParam(r, "id"))
	c, err := h.Store.GetCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	guarantors := make([]credit.MemberID, len(req.GuarantorIDs))
	for i, g := range req.GuarantorIDs {
		guarantors[i] = credit.MemberID(g)
	}

	gs, err := h.Service.AttachGuarantees(r.Context(), id, guarantors, h.params(c))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]GuaranteeDTO, len(gs))
	for i, g := range gs {
		dtos[i] = toGuaranteeDTO(g)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// ExecuteGuarantees liquidates the stakes of a written-off credit.
func (h *Handler) ExecuteGuarantees(w http.ResponseWriter, r *http.Request) {
	exec, err := h.Service.ExecuteGuarantees(r.Context(), credit.CreditID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExecutionDTO(exec))
}

// RequestRelease starts the release workflow for one guarantee.
func (h *Handler) RequestRelease(w http.ResponseWriter, r *http.Request) {
	g, err := h.Service.RequestGuaranteeRelease(r.Context(), credit.GuaranteeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGuaranteeDTO(*g))
}

// ApproveRelease finalizes a pending release.
func (h *Handler) ApproveRelease(w http.ResponseWriter, r *http.Request) {
	g, err := h.Service.ApproveGuaranteeRelease(r.Context(), credit.GuaranteeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGuaranteeDTO(*g))
}

// DenyRelease returns a pending release to active.
func (h *Handler) DenyRelease(w http.ResponseWriter, r *http.Request) {
	g, err := h.Service.DenyGuaranteeRelease(r.Context(), credit.GuaranteeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGuaranteeDTO(*g))
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns the registered product IDs.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.IDs())
}

// GetProduct returns one product's definition.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product.ToJSON(p))
}

// CreateProduct loads a JSON product definition into the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Catalog.Load(string(body)); err != nil {
		writeDomainError(w, err)
		return
	}

	var pj product.ProductJSON
	if err := json.Unmarshal(body, &pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Catalog.Get(pj.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product.ToJSON(p))
}

// =============================================================================
// SAVINGS HANDLERS
// =============================================================================

// GetSavingsAccount returns a member's savings position.
func (h *Handler) GetSavingsAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Store.GetSavingsAccount(r.Context(), credit.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavingsAccountDTO(account))
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// decode unmarshals and validates a request body, writing the error
// response itself when either step fails.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credit.ErrCreditNotFound),
		errors.Is(err, credit.ErrInstallmentNotFound),
		errors.Is(err, credit.ErrGuaranteeNotFound),
		errors.Is(err, credit.ErrAccountNotFound),
		errors.Is(err, product.ErrUnknownProduct):
		writeError(w, http.StatusNotFound, "Not found", err)

	case errors.Is(err, credit.ErrInvalidTransition),
		errors.Is(err, credit.ErrCreditNotPayable),
		errors.Is(err, credit.ErrCreditNotWrittenOff),
		errors.Is(err, credit.ErrGuaranteesExist),
		errors.Is(err, credit.ErrRefinanceBlocked),
		errors.Is(err, product.ErrDuplicateProduct):
		writeError(w, http.StatusConflict, "Conflict", err)

	case engine.IsClientError(err),
		errors.Is(err, credit.ErrGuarantorCount),
		errors.Is(err, credit.ErrGuarantorIsBorrower),
		errors.Is(err, credit.ErrGuarantorOverCommitted),
		errors.Is(err, credit.ErrGuaranteeNotReleasable),
		errors.Is(err, savings.ErrInsufficientAvailable),
		errors.Is(err, savings.ErrInsufficientFrozen),
		errors.Is(err, product.ErrInvalidProduct),
		errors.Is(err, product.ErrAmountOutOfRange),
		errors.Is(err, product.ErrTermOutOfRange):
		writeError(w, http.StatusBadRequest, "Invalid request", err)

	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
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
