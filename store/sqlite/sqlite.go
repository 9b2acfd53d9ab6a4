/*
Package sqlite provides a SQLite-backed implementation of credit.TxStore.

PURPOSE:
  Persists the credit domain (credits, installments, payments, guarantees,
  savings accounts) using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

MONEY REPRESENTATION:
  All monetary columns are TEXT holding canonical decimal strings. REAL
  columns are never used for money; float round-trips are how balances
  drift. Dates are TEXT in ISO form (YYYY-MM-DD), timestamps RFC3339.

KEY TABLES:
  credits:          One row per credit, lifecycle state and rollup
  installments:     Schedule rows plus mutable payment/delinquency state
  payments:         Immutable payment records with allocation JSON
  guarantees:       Guarantor stakes and their states
  savings_accounts: Member balance + frozen portion

TRANSACTIONS:
  WithTx wraps a function in one SQL transaction; every service
  read-modify-write runs inside it so partial payment application or a
  half-executed guarantee liquidation never persists.

CONCURRENCY:
  A sync.RWMutex serializes writers. WithTx holds the write lock for the
  whole transaction, which matches the service's single-writer-per-credit
  discipline.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/credit.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := credit.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - credit/store.go: Interface definitions
  - credit/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/coopfin/credit-engine/credit"
	"github.com/coopfin/credit-engine/engine"
	"github.com/coopfin/credit-engine/savings"
)

// Store implements credit.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ credit.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Credits
	CREATE TABLE IF NOT EXISTS credits (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		product_id TEXT NOT NULL DEFAULT '',
		principal TEXT NOT NULL,
		insurance_premium TEXT NOT NULL,
		total_financed TEXT NOT NULL,
		term_months INTEGER NOT NULL,
		method TEXT NOT NULL,
		annual_rate_percent TEXT NOT NULL,
		state TEXT NOT NULL,
		disbursement_date TEXT,
		outstanding_principal TEXT NOT NULL,
		delinquent_days INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_credits_member ON credits(member_id);
	CREATE INDEX IF NOT EXISTS idx_credits_state ON credits(state);

	-- Installments (schedule skeleton is immutable; payment state mutates)
	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		credit_id TEXT NOT NULL REFERENCES credits(id),
		sequence INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		scheduled_principal TEXT NOT NULL,
		scheduled_interest TEXT NOT NULL,
		scheduled_total TEXT NOT NULL,
		paid_principal TEXT NOT NULL,
		paid_interest TEXT NOT NULL,
		paid_penalty TEXT NOT NULL,
		penalty TEXT NOT NULL,
		elapsed_days INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL,
		status TEXT NOT NULL
	);

	-- Hot path: payment application walks installments in order
	CREATE INDEX IF NOT EXISTS idx_installments_credit_sequence
		ON installments(credit_id, sequence);
	CREATE INDEX IF NOT EXISTS idx_installments_status
		ON installments(status);

	-- Payments (immutable records, allocations as JSON)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		credit_id TEXT NOT NULL REFERENCES credits(id),
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		method TEXT NOT NULL,
		allocations_json TEXT NOT NULL,
		installments_affected INTEGER NOT NULL,
		surplus TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_credit ON payments(credit_id);

	-- Guarantees
	CREATE TABLE IF NOT EXISTS guarantees (
		id TEXT PRIMARY KEY,
		credit_id TEXT NOT NULL REFERENCES credits(id),
		guarantor_id TEXT NOT NULL,
		frozen_amount TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_guarantees_credit ON guarantees(credit_id);
	CREATE INDEX IF NOT EXISTS idx_guarantees_guarantor ON guarantees(guarantor_id, state);

	-- Savings accounts (the slice of savings this system sees)
	CREATE TABLE IF NOT EXISTS savings_accounts (
		member_id TEXT PRIMARY KEY,
		balance TEXT NOT NULL,
		frozen TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx so the same statement
// helpers serve plain calls and WithTx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn inside one SQL transaction. fn sees a Store view bound
// to the transaction; an error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(credit.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore is the Store view inside one SQL transaction. It takes no
// locks; WithTx already holds the write lock.
type txStore struct {
	q queryer
}

var _ credit.Store = (*txStore)(nil)

// =============================================================================
// CREDITS
// =============================================================================

func (s *Store) CreateCredit(ctx context.Context, c *credit.Credit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCredit(ctx, s.db, c)
}

func (t *txStore) CreateCredit(ctx context.Context, c *credit.Credit) error {
	return createCredit(ctx, t.q, c)
}

func createCredit(ctx context.Context, q queryer, c *credit.Credit) error {
	query := `
		INSERT INTO credits
		(id, member_id, product_id, principal, insurance_premium, total_financed,
		 term_months, method, annual_rate_percent, state, disbursement_date,
		 outstanding_principal, delinquent_days, tier, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		c.ID, c.MemberID, c.ProductID,
		c.Principal.String(), c.InsurancePremium.String(), c.TotalFinanced.String(),
		c.TermMonths, c.Method, c.AnnualRatePercent.String(),
		c.State, dateOrNull(c.DisbursementDate),
		c.OutstandingPrincipal.String(), c.DelinquentDays, c.Tier,
		c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert credit: %w", err)
	}
	return nil
}

func (s *Store) GetCredit(ctx context.Context, id credit.CreditID) (*credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCredit(ctx, s.db, id)
}

func (t *txStore) GetCredit(ctx context.Context, id credit.CreditID) (*credit.Credit, error) {
	return getCredit(ctx, t.q, id)
}

const creditColumns = `id, member_id, product_id, principal, insurance_premium, total_financed,
	term_months, method, annual_rate_percent, state, disbursement_date,
	outstanding_principal, delinquent_days, tier, created_at, updated_at`

func getCredit(ctx context.Context, q queryer, id credit.CreditID) (*credit.Credit, error) {
	row := q.QueryRowContext(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = ?`, id)
	c, err := scanCredit(row)
	if err == sql.ErrNoRows {
		return nil, credit.ErrCreditNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) UpdateCredit(ctx context.Context, c *credit.Credit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCredit(ctx, s.db, c)
}

func (t *txStore) UpdateCredit(ctx context.Context, c *credit.Credit) error {
	return updateCredit(ctx, t.q, c)
}

func updateCredit(ctx context.Context, q queryer, c *credit.Credit) error {
	query := `
		UPDATE credits SET
			state = ?, disbursement_date = ?, outstanding_principal = ?,
			term_months = ?, method = ?,
			delinquent_days = ?, tier = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		c.State, dateOrNull(c.DisbursementDate), c.OutstandingPrincipal.String(),
		c.TermMonths, c.Method,
		c.DelinquentDays, c.Tier, c.UpdatedAt.UTC().Format(time.RFC3339),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update credit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return credit.ErrCreditNotFound
	}
	return nil
}

func (s *Store) ListCreditsByState(ctx context.Context, state credit.CreditState) ([]*credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCreditsByState(ctx, s.db, state)
}

func (t *txStore) ListCreditsByState(ctx context.Context, state credit.CreditState) ([]*credit.Credit, error) {
	return listCreditsByState(ctx, t.q, state)
}

func listCreditsByState(ctx context.Context, q queryer, state credit.CreditState) ([]*credit.Credit, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+creditColumns+` FROM credits WHERE state = ? ORDER BY id`, state)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits: %w", err)
	}
	defer rows.Close()

	var credits []*credit.Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCredit(row scanner) (*credit.Credit, error) {
	var (
		c                credit.Credit
		principal        string
		premium          string
		total            string
		rate             string
		disbursementDate sql.NullString
		outstanding      string
		createdAt        string
		updatedAt        string
	)
	err := row.Scan(
		&c.ID, &c.MemberID, &c.ProductID, &principal, &premium, &total,
		&c.TermMonths, &c.Method, &rate, &c.State, &disbursementDate,
		&outstanding, &c.DelinquentDays, &c.Tier, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan credit: %w", err)
	}

	if c.Principal, err = engine.ParseMoney(principal); err != nil {
		return nil, fmt.Errorf("bad principal column: %w", err)
	}
	if c.InsurancePremium, err = engine.ParseMoney(premium); err != nil {
		return nil, fmt.Errorf("bad insurance_premium column: %w", err)
	}
	if c.TotalFinanced, err = engine.ParseMoney(total); err != nil {
		return nil, fmt.Errorf("bad total_financed column: %w", err)
	}
	if c.OutstandingPrincipal, err = engine.ParseMoney(outstanding); err != nil {
		return nil, fmt.Errorf("bad outstanding_principal column: %w", err)
	}
	if c.AnnualRatePercent, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("bad annual_rate_percent column: %w", err)
	}
	if disbursementDate.Valid && disbursementDate.String != "" {
		if c.DisbursementDate, err = engine.ParseDate(disbursementDate.String); err != nil {
			return nil, fmt.Errorf("bad disbursement_date column: %w", err)
		}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

func (s *Store) CreateInstallments(ctx context.Context, installments []credit.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createInstallments(ctx, tx, installments); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *txStore) CreateInstallments(ctx context.Context, installments []credit.Installment) error {
	return createInstallments(ctx, t.q, installments)
}

func createInstallments(ctx context.Context, q queryer, installments []credit.Installment) error {
	query := `
		INSERT INTO installments
		(id, credit_id, sequence, due_date, scheduled_principal, scheduled_interest,
		 scheduled_total, paid_principal, paid_interest, paid_penalty,
		 penalty, elapsed_days, tier, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, inst := range installments {
		_, err := q.ExecContext(ctx, query,
			inst.ID, inst.CreditID, inst.Sequence, inst.DueDate.String(),
			inst.ScheduledPrincipal.String(), inst.ScheduledInterest.String(),
			inst.ScheduledTotal.String(),
			inst.PaidPrincipal.String(), inst.PaidInterest.String(), inst.PaidPenalty.String(),
			inst.Penalty.String(), inst.ElapsedDays, inst.Tier, inst.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert installment %d: %w", inst.Sequence, err)
		}
	}
	return nil
}

func (s *Store) InstallmentsByCredit(ctx context.Context, id credit.CreditID) ([]credit.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return installmentsByCredit(ctx, s.db, id)
}

func (t *txStore) InstallmentsByCredit(ctx context.Context, id credit.CreditID) ([]credit.Installment, error) {
	return installmentsByCredit(ctx, t.q, id)
}

func installmentsByCredit(ctx context.Context, q queryer, id credit.CreditID) ([]credit.Installment, error) {
	query := `
		SELECT id, credit_id, sequence, due_date, scheduled_principal, scheduled_interest,
		       scheduled_total, paid_principal, paid_interest, paid_penalty,
		       penalty, elapsed_days, tier, status
		FROM installments
		WHERE credit_id = ?
		ORDER BY sequence ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var installments []credit.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

func scanInstallment(rows *sql.Rows) (credit.Installment, error) {
	var (
		inst      credit.Installment
		dueDate   string
		moneyCols [7]string
	)
	err := rows.Scan(
		&inst.ID, &inst.CreditID, &inst.Sequence, &dueDate,
		&moneyCols[0], &moneyCols[1], &moneyCols[2],
		&moneyCols[3], &moneyCols[4], &moneyCols[5],
		&moneyCols[6], &inst.ElapsedDays, &inst.Tier, &inst.Status,
	)
	if err != nil {
		return inst, fmt.Errorf("failed to scan installment: %w", err)
	}

	if inst.DueDate, err = engine.ParseDate(dueDate); err != nil {
		return inst, fmt.Errorf("bad due_date column: %w", err)
	}
	fields := []*engine.Money{
		&inst.ScheduledPrincipal, &inst.ScheduledInterest, &inst.ScheduledTotal,
		&inst.PaidPrincipal, &inst.PaidInterest, &inst.PaidPenalty,
		&inst.Penalty,
	}
	for i, f := range fields {
		if *f, err = engine.ParseMoney(moneyCols[i]); err != nil {
			return inst, fmt.Errorf("bad money column: %w", err)
		}
	}
	return inst, nil
}

func (s *Store) UpdateInstallment(ctx context.Context, inst *credit.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateInstallment(ctx, s.db, inst)
}

func (t *txStore) UpdateInstallment(ctx context.Context, inst *credit.Installment) error {
	return updateInstallment(ctx, t.q, inst)
}

func updateInstallment(ctx context.Context, q queryer, inst *credit.Installment) error {
	query := `
		UPDATE installments SET
			paid_principal = ?, paid_interest = ?, paid_penalty = ?,
			penalty = ?, elapsed_days = ?, tier = ?, status = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		inst.PaidPrincipal.String(), inst.PaidInterest.String(), inst.PaidPenalty.String(),
		inst.Penalty.String(), inst.ElapsedDays, inst.Tier, inst.Status,
		inst.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return credit.ErrInstallmentNotFound
	}
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) CreatePayment(ctx context.Context, p *credit.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createPayment(ctx, s.db, p)
}

func (t *txStore) CreatePayment(ctx context.Context, p *credit.Payment) error {
	return createPayment(ctx, t.q, p)
}

func createPayment(ctx context.Context, q queryer, p *credit.Payment) error {
	allocations, err := json.Marshal(p.Allocations)
	if err != nil {
		return fmt.Errorf("failed to marshal allocations: %w", err)
	}

	query := `
		INSERT INTO payments
		(id, credit_id, amount, date, method, allocations_json,
		 installments_affected, surplus, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		p.ID, p.CreditID, p.Amount.String(), p.Date.String(), p.Method,
		string(allocations), p.InstallmentsAffected, p.Surplus.String(),
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *Store) PaymentsByCredit(ctx context.Context, id credit.CreditID) ([]*credit.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentsByCredit(ctx, s.db, id)
}

func (t *txStore) PaymentsByCredit(ctx context.Context, id credit.CreditID) ([]*credit.Payment, error) {
	return paymentsByCredit(ctx, t.q, id)
}

func paymentsByCredit(ctx context.Context, q queryer, id credit.CreditID) ([]*credit.Payment, error) {
	query := `
		SELECT id, credit_id, amount, date, method, allocations_json,
		       installments_affected, surplus, created_at
		FROM payments
		WHERE credit_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*credit.Payment
	for rows.Next() {
		var (
			p           credit.Payment
			amount      string
			date        string
			allocations string
			surplus     string
			createdAt   string
		)
		if err := rows.Scan(&p.ID, &p.CreditID, &amount, &date, &p.Method,
			&allocations, &p.InstallmentsAffected, &surplus, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Amount, err = engine.ParseMoney(amount); err != nil {
			return nil, fmt.Errorf("bad amount column: %w", err)
		}
		if p.Surplus, err = engine.ParseMoney(surplus); err != nil {
			return nil, fmt.Errorf("bad surplus column: %w", err)
		}
		if p.Date, err = engine.ParseDate(date); err != nil {
			return nil, fmt.Errorf("bad date column: %w", err)
		}
		if err := json.Unmarshal([]byte(allocations), &p.Allocations); err != nil {
			return nil, fmt.Errorf("bad allocations_json column: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// =============================================================================
// GUARANTEES
// =============================================================================

func (s *Store) CreateGuarantees(ctx context.Context, gs []credit.Guarantee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createGuarantees(ctx, tx, gs); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *txStore) CreateGuarantees(ctx context.Context, gs []credit.Guarantee) error {
	return createGuarantees(ctx, t.q, gs)
}

func createGuarantees(ctx context.Context, q queryer, gs []credit.Guarantee) error {
	query := `
		INSERT INTO guarantees
		(id, credit_id, guarantor_id, frozen_amount, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, g := range gs {
		_, err := q.ExecContext(ctx, query,
			g.ID, g.CreditID, g.GuarantorID, g.FrozenAmount.String(), g.State,
			g.CreatedAt.UTC().Format(time.RFC3339), g.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert guarantee: %w", err)
		}
	}
	return nil
}

func (s *Store) GuaranteesByCredit(ctx context.Context, id credit.CreditID) ([]credit.Guarantee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return guaranteesByCredit(ctx, s.db, id)
}

func (t *txStore) GuaranteesByCredit(ctx context.Context, id credit.CreditID) ([]credit.Guarantee, error) {
	return guaranteesByCredit(ctx, t.q, id)
}

const guaranteeColumns = `id, credit_id, guarantor_id, frozen_amount, state, created_at, updated_at`

func guaranteesByCredit(ctx context.Context, q queryer, id credit.CreditID) ([]credit.Guarantee, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+guaranteeColumns+` FROM guarantees WHERE credit_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query guarantees: %w", err)
	}
	defer rows.Close()

	var gs []credit.Guarantee
	for rows.Next() {
		g, err := scanGuarantee(rows)
		if err != nil {
			return nil, err
		}
		gs = append(gs, *g)
	}
	return gs, rows.Err()
}

func (s *Store) GetGuarantee(ctx context.Context, id credit.GuaranteeID) (*credit.Guarantee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getGuarantee(ctx, s.db, id)
}

func (t *txStore) GetGuarantee(ctx context.Context, id credit.GuaranteeID) (*credit.Guarantee, error) {
	return getGuarantee(ctx, t.q, id)
}

func getGuarantee(ctx context.Context, q queryer, id credit.GuaranteeID) (*credit.Guarantee, error) {
	row := q.QueryRowContext(ctx, `SELECT `+guaranteeColumns+` FROM guarantees WHERE id = ?`, id)
	g, err := scanGuarantee(row)
	if err == sql.ErrNoRows {
		return nil, credit.ErrGuaranteeNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func scanGuarantee(row scanner) (*credit.Guarantee, error) {
	var (
		g         credit.Guarantee
		frozen    string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&g.ID, &g.CreditID, &g.GuarantorID, &frozen, &g.State, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan guarantee: %w", err)
	}
	if g.FrozenAmount, err = engine.ParseMoney(frozen); err != nil {
		return nil, fmt.Errorf("bad frozen_amount column: %w", err)
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	g.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &g, nil
}

func (s *Store) UpdateGuarantee(ctx context.Context, g *credit.Guarantee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateGuarantee(ctx, s.db, g)
}

func (t *txStore) UpdateGuarantee(ctx context.Context, g *credit.Guarantee) error {
	return updateGuarantee(ctx, t.q, g)
}

func updateGuarantee(ctx context.Context, q queryer, g *credit.Guarantee) error {
	res, err := q.ExecContext(ctx,
		`UPDATE guarantees SET state = ?, updated_at = ? WHERE id = ?`,
		g.State, g.UpdatedAt.UTC().Format(time.RFC3339), g.ID)
	if err != nil {
		return fmt.Errorf("failed to update guarantee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return credit.ErrGuaranteeNotFound
	}
	return nil
}

func (s *Store) CountActiveGuaranteesByGuarantor(ctx context.Context, guarantor credit.MemberID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countActiveGuarantees(ctx, s.db, guarantor)
}

func (t *txStore) CountActiveGuaranteesByGuarantor(ctx context.Context, guarantor credit.MemberID) (int, error) {
	return countActiveGuarantees(ctx, t.q, guarantor)
}

func countActiveGuarantees(ctx context.Context, q queryer, guarantor credit.MemberID) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guarantees WHERE guarantor_id = ? AND state = ?`,
		guarantor, engine.GuaranteeActive,
	).Scan(&count)
	return count, err
}

// =============================================================================
// SAVINGS ACCOUNTS
// =============================================================================

func (s *Store) GetSavingsAccount(ctx context.Context, member credit.MemberID) (*savings.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSavingsAccount(ctx, s.db, member)
}

func (t *txStore) GetSavingsAccount(ctx context.Context, member credit.MemberID) (*savings.Account, error) {
	return getSavingsAccount(ctx, t.q, member)
}

func getSavingsAccount(ctx context.Context, q queryer, member credit.MemberID) (*savings.Account, error) {
	var balance, frozen string
	a := &savings.Account{}
	err := q.QueryRowContext(ctx,
		`SELECT member_id, balance, frozen FROM savings_accounts WHERE member_id = ?`, member,
	).Scan(&a.MemberID, &balance, &frozen)
	if err == sql.ErrNoRows {
		return nil, credit.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan savings account: %w", err)
	}
	if a.Balance, err = engine.ParseMoney(balance); err != nil {
		return nil, fmt.Errorf("bad balance column: %w", err)
	}
	if a.Frozen, err = engine.ParseMoney(frozen); err != nil {
		return nil, fmt.Errorf("bad frozen column: %w", err)
	}
	return a, nil
}

func (s *Store) PutSavingsAccount(ctx context.Context, a *savings.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putSavingsAccount(ctx, s.db, a)
}

func (t *txStore) PutSavingsAccount(ctx context.Context, a *savings.Account) error {
	return putSavingsAccount(ctx, t.q, a)
}

func putSavingsAccount(ctx context.Context, q queryer, a *savings.Account) error {
	query := `
		INSERT INTO savings_accounts (member_id, balance, frozen)
		VALUES (?, ?, ?)
		ON CONFLICT(member_id) DO UPDATE SET balance = excluded.balance, frozen = excluded.frozen
	`
	_, err := q.ExecContext(ctx, query, a.MemberID, a.Balance.String(), a.Frozen.String())
	if err != nil {
		return fmt.Errorf("failed to upsert savings account: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func dateOrNull(d engine.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
