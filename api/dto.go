/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND RATES:
  All monetary amounts and rates travel as decimal strings, never JSON
  numbers. Float coercion on money is how rounding bugs enter a lending
  system from the edges.

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the shared validator before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - product/catalog.go: ProductJSON travels through the products endpoints
*/
package api

import (
	"time"

	"github.com/coopfin/credit-engine/credit"
	"github.com/coopfin/credit-engine/engine"
	"github.com/coopfin/credit-engine/savings"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SimulateScheduleRequest asks for an amortization table without creating
// a credit.
type SimulateScheduleRequest struct {
	Principal         string `json:"principal" validate:"required"`
	AnnualRatePercent string `json:"annual_rate_percent" validate:"required"`
	TermMonths        int    `json:"term_months" validate:"required,min=1"`
	Method            string `json:"method" validate:"omitempty,oneof=fixed_installment fixed_principal"`
	DisbursementDate  string `json:"disbursement_date" validate:"required"`
}

// CompareMethodsRequest asks for both amortization methods side by side.
type CompareMethodsRequest struct {
	Principal         string `json:"principal" validate:"required"`
	AnnualRatePercent string `json:"annual_rate_percent" validate:"required"`
	TermMonths        int    `json:"term_months" validate:"required,min=1"`
	DisbursementDate  string `json:"disbursement_date" validate:"required"`
}

// CreateCreditRequest is a member's credit application.
type CreateCreditRequest struct {
	MemberID   string `json:"member_id" validate:"required"`
	ProductID  string `json:"product_id" validate:"required"`
	Principal  string `json:"principal" validate:"required"`
	TermMonths int    `json:"term_months" validate:"required,min=1"`
	Method     string `json:"method" validate:"omitempty,oneof=fixed_installment fixed_principal"`
}

// DisburseRequest fixes the disbursement date of an approved credit.
type DisburseRequest struct {
	Date string `json:"date" validate:"required"`
}

// AttachGuaranteesRequest names the two guarantor members.
type AttachGuaranteesRequest struct {
	GuarantorIDs []string `json:"guarantor_ids" validate:"required,len=2,dive,required"`
}

// PaymentRequest applies a payment to a credit.
type PaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
	Date   string `json:"date" validate:"required"`
	Method string `json:"method" validate:"omitempty,oneof=cash transfer payroll"`
}

// ReevaluateRequest triggers a delinquency pass as of a date.
type ReevaluateRequest struct {
	AsOf string `json:"as_of" validate:"required"`
}

// RefinanceRequest restructures the remaining balance of a credit.
type RefinanceRequest struct {
	TermMonths int    `json:"term_months" validate:"required,min=1"`
	Method     string `json:"method" validate:"required,oneof=fixed_installment fixed_principal"`
	Date       string `json:"date" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CreditDTO represents a credit in API responses.
type CreditDTO struct {
	ID       string `json:"id"`
	MemberID string `json:"member_id"`

	Principal         string `json:"principal"`
	InsurancePremium  string `json:"insurance_premium"`
	TotalFinanced     string `json:"total_financed"`
	TermMonths        int    `json:"term_months"`
	Method            string `json:"method"`
	AnnualRatePercent string `json:"annual_rate_percent"`

	State                string `json:"state"`
	DisbursementDate     string `json:"disbursement_date,omitempty"`
	OutstandingPrincipal string `json:"outstanding_principal"`
	DelinquentDays       int    `json:"delinquent_days"`
	Tier                 string `json:"tier"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// InstallmentDTO represents one schedule row with its payment state.
type InstallmentDTO struct {
	Sequence int    `json:"sequence"`
	DueDate  string `json:"due_date"`

	ScheduledPrincipal string `json:"scheduled_principal"`
	ScheduledInterest  string `json:"scheduled_interest"`
	ScheduledTotal     string `json:"scheduled_total"`

	PaidPrincipal string `json:"paid_principal"`
	PaidInterest  string `json:"paid_interest"`
	PaidPenalty   string `json:"paid_penalty"`

	Penalty     string `json:"penalty"`
	ElapsedDays int    `json:"elapsed_days"`
	Tier        string `json:"tier"`
	Status      string `json:"status"`
}

// AllocationDTO is one installment's share of a payment.
type AllocationDTO struct {
	InstallmentSequence int    `json:"installment_sequence"`
	Penalty             string `json:"penalty"`
	Interest            string `json:"interest"`
	Principal           string `json:"principal"`
}

// PaymentDTO represents a recorded payment and its distribution.
type PaymentDTO struct {
	ID                   string          `json:"id"`
	CreditID             string          `json:"credit_id"`
	Amount               string          `json:"amount"`
	Date                 string          `json:"date"`
	Method               string          `json:"method"`
	Allocations          []AllocationDTO `json:"allocations"`
	InstallmentsAffected int             `json:"installments_affected"`
	Surplus              string          `json:"surplus"`
	CreatedAt            string          `json:"created_at,omitempty"`
}

// GuaranteeDTO represents a guarantor's stake.
type GuaranteeDTO struct {
	ID           string `json:"id"`
	CreditID     string `json:"credit_id"`
	GuarantorID  string `json:"guarantor_id"`
	FrozenAmount string `json:"frozen_amount"`
	State        string `json:"state"`
}

// ExecutionDTO is the outcome of a guarantee execution attempt.
type ExecutionDTO struct {
	Executed         bool   `json:"executed"`
	AmountLiquidated string `json:"amount_liquidated"`
	RemainingBalance string `json:"remaining_balance"`
}

// DelinquencyReportDTO is the outcome of an evaluation pass.
type DelinquencyReportDTO struct {
	CreditID     string `json:"credit_id"`
	AsOf         string `json:"as_of"`
	ElapsedDays  int    `json:"elapsed_days"`
	Tier         string `json:"tier"`
	TotalPenalty string `json:"total_penalty"`
	WrittenOff   bool   `json:"written_off"`
}

// SavingsAccountDTO represents a member's savings position.
type SavingsAccountDTO struct {
	MemberID  string `json:"member_id"`
	Balance   string `json:"balance"`
	Frozen    string `json:"frozen"`
	Available string `json:"available"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCreditDTO(c *credit.Credit) CreditDTO {
	dto := CreditDTO{
		ID:                   string(c.ID),
		MemberID:             string(c.MemberID),
		Principal:            c.Principal.String(),
		InsurancePremium:     c.InsurancePremium.String(),
		TotalFinanced:        c.TotalFinanced.String(),
		TermMonths:           c.TermMonths,
		Method:               string(c.Method),
		AnnualRatePercent:    c.AnnualRatePercent.String(),
		State:                string(c.State),
		OutstandingPrincipal: c.OutstandingPrincipal.String(),
		DelinquentDays:       c.DelinquentDays,
		Tier:                 string(c.Tier),
		CreatedAt:            c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            c.UpdatedAt.Format(time.RFC3339),
	}
	if c.State == credit.StateDisbursed || c.State == credit.StateCompleted || c.State == credit.StateWrittenOff {
		dto.DisbursementDate = c.DisbursementDate.String()
	}
	return dto
}

func toInstallmentDTO(i credit.Installment) InstallmentDTO {
	return InstallmentDTO{
		Sequence:           i.Sequence,
		DueDate:            i.DueDate.String(),
		ScheduledPrincipal: i.ScheduledPrincipal.String(),
		ScheduledInterest:  i.ScheduledInterest.String(),
		ScheduledTotal:     i.ScheduledTotal.String(),
		PaidPrincipal:      i.PaidPrincipal.String(),
		PaidInterest:       i.PaidInterest.String(),
		PaidPenalty:        i.PaidPenalty.String(),
		Penalty:            i.Penalty.String(),
		ElapsedDays:        i.ElapsedDays,
		Tier:               string(i.Tier),
		Status:             string(i.Status),
	}
}

func toPaymentDTO(p *credit.Payment) PaymentDTO {
	allocations := make([]AllocationDTO, len(p.Allocations))
	for i, a := range p.Allocations {
		allocations[i] = AllocationDTO{
			InstallmentSequence: a.InstallmentSequence,
			Penalty:             a.Penalty.String(),
			Interest:            a.Interest.String(),
			Principal:           a.Principal.String(),
		}
	}
	return PaymentDTO{
		ID:                   string(p.ID),
		CreditID:             string(p.CreditID),
		Amount:               p.Amount.String(),
		Date:                 p.Date.String(),
		Method:               string(p.Method),
		Allocations:          allocations,
		InstallmentsAffected: p.InstallmentsAffected,
		Surplus:              p.Surplus.String(),
		CreatedAt:            p.CreatedAt.Format(time.RFC3339),
	}
}

func toGuaranteeDTO(g credit.Guarantee) GuaranteeDTO {
	return GuaranteeDTO{
		ID:           string(g.ID),
		CreditID:     string(g.CreditID),
		GuarantorID:  string(g.GuarantorID),
		FrozenAmount: g.FrozenAmount.String(),
		State:        string(g.State),
	}
}

func toExecutionDTO(e *engine.Execution) ExecutionDTO {
	return ExecutionDTO{
		Executed:         e.Executed,
		AmountLiquidated: e.AmountLiquidated.String(),
		RemainingBalance: e.RemainingBalance.String(),
	}
}

func toReportDTO(r *credit.DelinquencyReport) DelinquencyReportDTO {
	return DelinquencyReportDTO{
		CreditID:     string(r.CreditID),
		AsOf:         r.AsOf.String(),
		ElapsedDays:  r.ElapsedDays,
		Tier:         string(r.Tier),
		TotalPenalty: r.TotalPenalty.String(),
		WrittenOff:   r.WrittenOff,
	}
}

func toSavingsAccountDTO(a *savings.Account) SavingsAccountDTO {
	return SavingsAccountDTO{
		MemberID:  a.MemberID,
		Balance:   a.Balance.String(),
		Frozen:    a.Frozen.String(),
		Available: a.Available().String(),
	}
}
