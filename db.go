// Package main: data layer — types, migration, and CRUD for users, the three
// debt-source record kinds, payments, plan settings, and payoff alerts.
package main

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type PasswordReset struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func openDB() (*sql.DB, error) {
	env := loadEnvFile()
	host := getEnv("DB_HOST", env)
	if host == "" {
		host = "localhost"
	}
	port := getEnv("DB_PORT", env)
	if port == "" {
		port = "5432"
	}
	user := getEnv("DB_USER", env)
	if user == "" {
		user = "postgres"
	}
	password := getEnv("DB_PASSWORD", env)
	dbname := getEnv("DB_NAME", env)
	if dbname == "" {
		dbname = "debtplan"
	}
	sslmode := getEnv("DB_SSLMODE", env)
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if p := getEnv("DB_MAX_OPEN", env); p != "" {
		if n, e := strconv.Atoi(p); e == nil && n > 0 {
			db.SetMaxOpenConns(n)
		}
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS password_resets (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL,
  token TEXT NOT NULL UNIQUE,
  expires_at TIMESTAMPTZ NOT NULL,
  used BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL,
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Standalone debt records (source 3 for the payoff plan).
CREATE TABLE IF NOT EXISTS debts (
  id BIGSERIAL PRIMARY KEY,
  public_id TEXT NOT NULL UNIQUE,
  user_id BIGINT NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  balance_cents BIGINT NOT NULL CHECK (balance_cents >= 0),
  apr_bps BIGINT NOT NULL CHECK (apr_bps >= 0),
  min_payment_cents BIGINT NOT NULL CHECK (min_payment_cents >= 0),
  loan_type TEXT NOT NULL DEFAULT 'installment',
  compounding TEXT NOT NULL DEFAULT 'monthly',
  billing_cycle_days INTEGER NOT NULL DEFAULT 0,
  due_day INTEGER NOT NULL CHECK (due_day >= 1 AND due_day <= 28),
  color TEXT NOT NULL DEFAULT '',
  icon TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Revolving accounts carry ledger-signed balances: a liability shows up
-- negative (source 1 for the payoff plan).
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  public_id TEXT NOT NULL UNIQUE,
  user_id BIGINT NOT NULL,
  name TEXT NOT NULL,
  ledger_balance_cents BIGINT NOT NULL,
  apr_bps BIGINT NOT NULL CHECK (apr_bps >= 0),
  min_payment_cents BIGINT NOT NULL CHECK (min_payment_cents >= 0),
  billing_cycle_days INTEGER NOT NULL DEFAULT 0,
  color TEXT NOT NULL DEFAULT '',
  icon TEXT NOT NULL DEFAULT '',
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Recurring bills; only ones flagged is_debt join the payoff plan (source 2).
CREATE TABLE IF NOT EXISTS bills (
  id BIGSERIAL PRIMARY KEY,
  public_id TEXT NOT NULL UNIQUE,
  user_id BIGINT NOT NULL,
  name TEXT NOT NULL,
  amount_cents BIGINT NOT NULL CHECK (amount_cents >= 0),
  is_debt BOOLEAN NOT NULL DEFAULT FALSE,
  balance_cents BIGINT NOT NULL DEFAULT 0,
  apr_bps BIGINT NOT NULL DEFAULT 0 CHECK (apr_bps >= 0),
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payments (
  id BIGSERIAL PRIMARY KEY,
  debt_id BIGINT NOT NULL,
  paid_on DATE NOT NULL,
  amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
  note TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  FOREIGN KEY (debt_id) REFERENCES debts(id) ON DELETE CASCADE
);

-- Per-user plan settings consumed by the payoff views.
CREATE TABLE IF NOT EXISTS plan_settings (
  user_id BIGINT PRIMARY KEY,
  extra_payment_cents BIGINT NOT NULL DEFAULT 0 CHECK (extra_payment_cents >= 0),
  method TEXT NOT NULL DEFAULT 'avalanche',
  frequency TEXT NOT NULL DEFAULT 'monthly',
  updated_at TIMESTAMPTZ NOT NULL,
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Payoff milestone alerts, one row per (account, threshold) so a milestone
-- fires exactly once.
CREATE TABLE IF NOT EXISTS payoff_alerts (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL,
  account_id TEXT NOT NULL,
  threshold_id TEXT NOT NULL,
  triggered_at TIMESTAMPTZ NOT NULL,
  UNIQUE(user_id, account_id, threshold_id),
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_payments_debt ON payments(debt_id);
CREATE INDEX IF NOT EXISTS idx_password_resets_token ON password_resets(token);
CREATE INDEX IF NOT EXISTS idx_password_resets_user ON password_resets(user_id);
CREATE INDEX IF NOT EXISTS idx_debts_user ON debts(user_id);
CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_bills_user ON bills(user_id);
CREATE INDEX IF NOT EXISTS idx_payoff_alerts_user ON payoff_alerts(user_id);
`
	_, err := db.Exec(schema)
	return err
}

type Debt struct {
	ID               int64
	PublicID         string
	Name             string
	Kind             string
	BalanceCents     int64
	APRBps           int64
	MinPaymentCents  int64
	LoanType         string
	Compounding      string
	BillingCycleDays int
	DueDay           int
	Color            string
	Icon             string
	Notes            string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Account is a revolving account whose ledger balance is signed: owing
// $2,500 is stored as -250000.
type Account struct {
	ID                 int64
	PublicID           string
	UserID             int64
	Name               string
	LedgerBalanceCents int64
	APRBps             int64
	MinPaymentCents    int64
	BillingCycleDays   int
	Color              string
	Icon               string
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Bill is a recurring bill; IsDebt marks it as carrying a balance to pay
// down, which pulls it into the payoff plan.
type Bill struct {
	ID           int64
	PublicID     string
	UserID       int64
	Name         string
	AmountCents  int64
	IsDebt       bool
	BalanceCents int64
	APRBps       int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Payment struct {
	ID          int64
	DebtID      int64
	PaidOn      time.Time
	AmountCents int64
	Note        string
	CreatedAt   time.Time
}

type PlanSettings struct {
	UserID            int64
	ExtraPaymentCents int64
	Method            string
	Frequency         string
	UpdatedAt         time.Time
}

// PayoffAlert is one fired milestone, keyed by (accountID, thresholdID).
type PayoffAlert struct {
	ID          int64
	UserID      int64
	AccountID   string
	ThresholdID string
	TriggeredAt time.Time
}

func centsToDecimal(cents int64) decimal.Decimal { return decimal.New(cents, -2) }

// bps 1999 -> 19.99 (annual percent).
func bpsToPercent(bps int64) decimal.Decimal { return decimal.New(bps, -2) }

// NormalizeDebt satisfies DebtSource for standalone debt records; values map
// straight across.
func (d Debt) NormalizeDebt() DebtInput {
	return DebtInput{
		ID:               d.PublicID,
		Name:             d.Name,
		RemainingBalance: centsToDecimal(d.BalanceCents),
		MinimumPayment:   centsToDecimal(d.MinPaymentCents),
		InterestRate:     bpsToPercent(d.APRBps),
		Type:             d.Kind,
		LoanType:         LoanType(d.LoanType),
		Compounding:      CompoundingFrequency(d.Compounding),
		BillingCycleDays: d.BillingCycleDays,
		Color:            d.Color,
		Icon:             d.Icon,
	}
}

// NormalizeDebt satisfies DebtSource for revolving accounts. The ledger
// stores liabilities negative, so the owed amount is the absolute value.
func (a Account) NormalizeDebt() DebtInput {
	return DebtInput{
		ID:               a.PublicID,
		Name:             a.Name,
		RemainingBalance: centsToDecimal(a.LedgerBalanceCents).Abs(),
		MinimumPayment:   centsToDecimal(a.MinPaymentCents),
		InterestRate:     bpsToPercent(a.APRBps),
		Type:             "revolving_account",
		LoanType:         LoanRevolving,
		Compounding:      CompoundDaily,
		BillingCycleDays: a.BillingCycleDays,
		Color:            a.Color,
		Icon:             a.Icon,
	}
}

// NormalizeDebt satisfies DebtSource for debt-classified bills. The bill's
// recurring amount acts as the minimum payment; a missing rate stays zero,
// and a corrupt negative balance passes through for the normalizer to flag.
func (b Bill) NormalizeDebt() DebtInput {
	return DebtInput{
		ID:               b.PublicID,
		Name:             b.Name,
		RemainingBalance: centsToDecimal(b.BalanceCents),
		MinimumPayment:   centsToDecimal(b.AmountCents),
		InterestRate:     bpsToPercent(b.APRBps),
		Type:             "bill",
		LoanType:         LoanInstallment,
	}
}

func listDebts(db *sql.DB, userID int64) ([]Debt, error) {
	return listDebtsFiltered(db, userID, "", "", "", "default")
}

func listDebtsFiltered(db *sql.DB, userID int64, searchQuery, kindFilter, statusFilter, sortBy string) ([]Debt, error) {
	query := `
SELECT id, public_id, name, kind, balance_cents, apr_bps, min_payment_cents, loan_type, compounding, billing_cycle_days, due_day, color, icon, notes, active, created_at, updated_at
FROM debts
WHERE user_id = $1`
	args := []any{userID}
	n := 2

	if searchQuery != "" {
		query += fmt.Sprintf(" AND name LIKE $%d", n)
		args = append(args, "%"+searchQuery+"%")
		n++
	}

	if kindFilter != "" {
		query += fmt.Sprintf(" AND kind = $%d", n)
		args = append(args, kindFilter)
		n++
	}

	if statusFilter == "active" {
		query += " AND active = TRUE"
	} else if statusFilter == "closed" {
		query += " AND active = FALSE"
	}

	switch sortBy {
	case "name_asc":
		query += " ORDER BY name ASC"
	case "name_desc":
		query += " ORDER BY name DESC"
	case "balance_asc":
		query += " ORDER BY balance_cents ASC"
	case "balance_desc":
		query += " ORDER BY balance_cents DESC"
	case "apr_asc":
		query += " ORDER BY apr_bps ASC"
	case "apr_desc":
		query += " ORDER BY apr_bps DESC"
	case "min_asc":
		query += " ORDER BY min_payment_cents ASC"
	case "min_desc":
		query += " ORDER BY min_payment_cents DESC"
	case "type_asc":
		query += " ORDER BY kind ASC"
	case "type_desc":
		query += " ORDER BY kind DESC"
	default:
		query += " ORDER BY active DESC, name ASC"
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Debt
	for rows.Next() {
		var d Debt
		if err := scanDebt(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDebt(row rowScanner, d *Debt) error {
	return row.Scan(&d.ID, &d.PublicID, &d.Name, &d.Kind, &d.BalanceCents, &d.APRBps, &d.MinPaymentCents,
		&d.LoanType, &d.Compounding, &d.BillingCycleDays, &d.DueDay, &d.Color, &d.Icon, &d.Notes, &d.Active,
		&d.CreatedAt, &d.UpdatedAt)
}

func getDebt(db *sql.DB, userID, id int64) (Debt, error) {
	var d Debt
	err := scanDebt(db.QueryRow(`
SELECT id, public_id, name, kind, balance_cents, apr_bps, min_payment_cents, loan_type, compounding, billing_cycle_days, due_day, color, icon, notes, active, created_at, updated_at
FROM debts WHERE id = $1 AND user_id = $2`, id, userID), &d)
	if err != nil {
		return Debt{}, err
	}
	return d, nil
}

func createDebt(db *sql.DB, userID int64, d Debt) (int64, error) {
	now := time.Now().UTC()
	err := db.QueryRow(`
INSERT INTO debts(public_id, user_id, name, kind, balance_cents, apr_bps, min_payment_cents, loan_type, compounding, billing_cycle_days, due_day, color, icon, notes, active, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,TRUE,$15,$15)
RETURNING id`,
		d.PublicID, userID, d.Name, d.Kind, d.BalanceCents, d.APRBps, d.MinPaymentCents,
		d.LoanType, d.Compounding, d.BillingCycleDays, d.DueDay, d.Color, d.Icon, d.Notes, now).
		Scan(&d.ID)
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

func updateDebt(db *sql.DB, userID int64, d Debt) error {
	now := time.Now().UTC()
	_, err := db.Exec(`
UPDATE debts
SET name = $1, kind = $2, balance_cents = $3, apr_bps = $4, min_payment_cents = $5, loan_type = $6, compounding = $7, billing_cycle_days = $8, due_day = $9, color = $10, icon = $11, notes = $12, updated_at = $13
WHERE id = $14 AND user_id = $15`,
		d.Name, d.Kind, d.BalanceCents, d.APRBps, d.MinPaymentCents, d.LoanType, d.Compounding,
		d.BillingCycleDays, d.DueDay, d.Color, d.Icon, d.Notes, now, d.ID, userID)
	return err
}

func setDebtActive(db *sql.DB, userID, id int64, active bool) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE debts SET active = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`, active, now, id, userID)
	return err
}

func deleteDebt(db *sql.DB, userID, id int64) error {
	_, err := db.Exec(`DELETE FROM debts WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

// --- Accounts (ledger-signed revolving) ---

func listAccounts(db *sql.DB, userID int64) ([]Account, error) {
	rows, err := db.Query(`
SELECT id, public_id, user_id, name, ledger_balance_cents, apr_bps, min_payment_cents, billing_cycle_days, color, icon, active, created_at, updated_at
FROM accounts WHERE user_id = $1 ORDER BY active DESC, name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.PublicID, &a.UserID, &a.Name, &a.LedgerBalanceCents, &a.APRBps,
			&a.MinPaymentCents, &a.BillingCycleDays, &a.Color, &a.Icon, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func getAccount(db *sql.DB, userID, id int64) (Account, error) {
	var a Account
	err := db.QueryRow(`
SELECT id, public_id, user_id, name, ledger_balance_cents, apr_bps, min_payment_cents, billing_cycle_days, color, icon, active, created_at, updated_at
FROM accounts WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&a.ID, &a.PublicID, &a.UserID, &a.Name, &a.LedgerBalanceCents, &a.APRBps,
			&a.MinPaymentCents, &a.BillingCycleDays, &a.Color, &a.Icon, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func createAccount(db *sql.DB, a Account) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := db.QueryRow(`
INSERT INTO accounts(public_id, user_id, name, ledger_balance_cents, apr_bps, min_payment_cents, billing_cycle_days, color, icon, active, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,TRUE,$10,$10)
RETURNING id`,
		a.PublicID, a.UserID, a.Name, a.LedgerBalanceCents, a.APRBps, a.MinPaymentCents,
		a.BillingCycleDays, a.Color, a.Icon, now).Scan(&id)
	return id, err
}

func updateAccount(db *sql.DB, userID int64, a Account) error {
	now := time.Now().UTC()
	res, err := db.Exec(`
UPDATE accounts SET name = $1, ledger_balance_cents = $2, apr_bps = $3, min_payment_cents = $4, billing_cycle_days = $5, color = $6, icon = $7, active = $8, updated_at = $9
WHERE id = $10 AND user_id = $11`,
		a.Name, a.LedgerBalanceCents, a.APRBps, a.MinPaymentCents, a.BillingCycleDays,
		a.Color, a.Icon, a.Active, now, a.ID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func deleteAccount(db *sql.DB, userID, id int64) error {
	_, err := db.Exec(`DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

// --- Bills ---

func listBills(db *sql.DB, userID int64) ([]Bill, error) {
	rows, err := db.Query(`
SELECT id, public_id, user_id, name, amount_cents, is_debt, balance_cents, apr_bps, active, created_at, updated_at
FROM bills WHERE user_id = $1 ORDER BY active DESC, name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		var b Bill
		if err := rows.Scan(&b.ID, &b.PublicID, &b.UserID, &b.Name, &b.AmountCents, &b.IsDebt,
			&b.BalanceCents, &b.APRBps, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func getBill(db *sql.DB, userID, id int64) (Bill, error) {
	var b Bill
	err := db.QueryRow(`
SELECT id, public_id, user_id, name, amount_cents, is_debt, balance_cents, apr_bps, active, created_at, updated_at
FROM bills WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&b.ID, &b.PublicID, &b.UserID, &b.Name, &b.AmountCents, &b.IsDebt,
			&b.BalanceCents, &b.APRBps, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bill{}, err
	}
	return b, nil
}

func createBill(db *sql.DB, b Bill) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := db.QueryRow(`
INSERT INTO bills(public_id, user_id, name, amount_cents, is_debt, balance_cents, apr_bps, active, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,TRUE,$8,$8)
RETURNING id`,
		b.PublicID, b.UserID, b.Name, b.AmountCents, b.IsDebt, b.BalanceCents, b.APRBps, now).Scan(&id)
	return id, err
}

func updateBill(db *sql.DB, userID int64, b Bill) error {
	now := time.Now().UTC()
	res, err := db.Exec(`
UPDATE bills SET name = $1, amount_cents = $2, is_debt = $3, balance_cents = $4, apr_bps = $5, active = $6, updated_at = $7
WHERE id = $8 AND user_id = $9`,
		b.Name, b.AmountCents, b.IsDebt, b.BalanceCents, b.APRBps, b.Active, now, b.ID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func deleteBill(db *sql.DB, userID, id int64) error {
	_, err := db.Exec(`DELETE FROM bills WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

// --- Payments ---

func listPaymentsForDebt(db *sql.DB, userID, debtID int64) ([]Payment, error) {
	rows, err := db.Query(`
SELECT p.id, p.debt_id, p.paid_on, p.amount_cents, p.note, p.created_at
FROM payments p
JOIN debts d ON p.debt_id = d.id
WHERE p.debt_id = $1 AND d.user_id = $2
ORDER BY p.paid_on DESC, p.id DESC`, debtID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.DebtID, &p.PaidOn, &p.AmountCents, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type PaymentWithDebt struct {
	Payment
	DebtName string
}

func listAllPayments(db *sql.DB, userID int64) ([]PaymentWithDebt, error) {
	rows, err := db.Query(`
SELECT p.id, p.debt_id, p.paid_on, p.amount_cents, p.note, p.created_at, d.name
FROM payments p
JOIN debts d ON p.debt_id = d.id
WHERE d.user_id = $1
ORDER BY p.paid_on DESC, p.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentWithDebt
	for rows.Next() {
		var pwd PaymentWithDebt
		if err := rows.Scan(&pwd.ID, &pwd.DebtID, &pwd.PaidOn, &pwd.AmountCents, &pwd.Note, &pwd.CreatedAt, &pwd.DebtName); err != nil {
			return nil, err
		}
		out = append(out, pwd)
	}
	return out, rows.Err()
}

// PaymentsThisMonth reports how many payments a user logged since the first
// of the current month, and their total.
func PaymentsThisMonth(db *sql.DB, userID int64) (int64, int64, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var count int64
	var total sql.NullInt64
	err := db.QueryRow(`
SELECT COUNT(*), COALESCE(SUM(p.amount_cents), 0)
FROM payments p
JOIN debts d ON p.debt_id = d.id
WHERE d.user_id = $1 AND p.paid_on >= $2`, userID, monthStart).Scan(&count, &total)
	if err != nil {
		return 0, 0, err
	}
	return count, total.Int64, nil
}

func getPayment(db *sql.DB, userID, id int64) (Payment, error) {
	var p Payment
	err := db.QueryRow(`
SELECT p.id, p.debt_id, p.paid_on, p.amount_cents, p.note, p.created_at
FROM payments p
JOIN debts d ON p.debt_id = d.id
WHERE p.id = $1 AND d.user_id = $2`, id, userID).
		Scan(&p.ID, &p.DebtID, &p.PaidOn, &p.AmountCents, &p.Note, &p.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func addPayment(db *sql.DB, userID, debtID int64, paidOn time.Time, amountCents int64, note string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	created := time.Now().UTC()
	_, err = tx.Exec(`
INSERT INTO payments(debt_id, paid_on, amount_cents, note, created_at)
VALUES($1,$2,$3,$4,$5)`, debtID, paidOn, amountCents, note, created)
	if err != nil {
		return err
	}

	var bal int64
	if err := tx.QueryRow(`SELECT balance_cents FROM debts WHERE id = $1 AND user_id = $2`, debtID, userID).Scan(&bal); err != nil {
		return fmt.Errorf("debt not found or access denied")
	}
	newBal := bal - amountCents
	if newBal < 0 {
		newBal = 0
	}
	now := time.Now().UTC()
	if _, err := tx.Exec(`UPDATE debts SET balance_cents = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`, newBal, now, debtID, userID); err != nil {
		return err
	}

	return tx.Commit()
}

func updatePayment(db *sql.DB, userID, paymentID int64, paidOn time.Time, amountCents int64, note string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var oldAmountCents, debtID int64
	err = tx.QueryRow(`
		SELECT p.debt_id, p.amount_cents
		FROM payments p
		JOIN debts d ON p.debt_id = d.id
		WHERE p.id = $1 AND d.user_id = $2`, paymentID, userID).Scan(&debtID, &oldAmountCents)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`UPDATE payments SET paid_on = $1, amount_cents = $2, note = $3 WHERE id = $4`,
		paidOn, amountCents, note, paymentID)
	if err != nil {
		return err
	}

	var bal int64
	if err := tx.QueryRow(`SELECT balance_cents FROM debts WHERE id = $1 AND user_id = $2`, debtID, userID).Scan(&bal); err != nil {
		return err
	}
	newBal := bal + oldAmountCents - amountCents
	if newBal < 0 {
		newBal = 0
	}
	now := time.Now().UTC()
	if _, err := tx.Exec(`UPDATE debts SET balance_cents = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`, newBal, now, debtID, userID); err != nil {
		return err
	}

	return tx.Commit()
}

func deletePayment(db *sql.DB, userID, paymentID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var debtID, amountCents int64
	err = tx.QueryRow(`
		SELECT p.debt_id, p.amount_cents
		FROM payments p
		JOIN debts d ON p.debt_id = d.id
		WHERE p.id = $1 AND d.user_id = $2`, paymentID, userID).Scan(&debtID, &amountCents)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DELETE FROM payments WHERE id = $1`, paymentID)
	if err != nil {
		return err
	}

	var bal int64
	if err := tx.QueryRow(`SELECT balance_cents FROM debts WHERE id = $1 AND user_id = $2`, debtID, userID).Scan(&bal); err != nil {
		return err
	}
	newBal := bal + amountCents
	now := time.Now().UTC()
	if _, err := tx.Exec(`UPDATE debts SET balance_cents = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`, newBal, now, debtID, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// --- Users ---

func createUser(db *sql.DB, email, passwordHash string) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := db.QueryRow(`
INSERT INTO users(email, password_hash, created_at, updated_at)
VALUES($1,$2,$3,$3)
RETURNING id`, email, passwordHash, now).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func getUserByEmail(db *sql.DB, email string) (User, error) {
	var u User
	err := db.QueryRow(`
SELECT id, email, password_hash, created_at, updated_at
FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func getUserByID(db *sql.DB, id int64) (User, error) {
	var u User
	err := db.QueryRow(`
SELECT id, email, password_hash, created_at, updated_at
FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func createPasswordReset(db *sql.DB, userID int64, token string, expiresAt time.Time) error {
	now := time.Now().UTC()
	_, err := db.Exec(`
INSERT INTO password_resets(user_id, token, expires_at, created_at)
VALUES($1,$2,$3,$4)`, userID, token, expiresAt.UTC(), now)
	return err
}

func getPasswordResetByToken(db *sql.DB, token string) (PasswordReset, error) {
	var pr PasswordReset
	err := db.QueryRow(`
SELECT id, user_id, token, expires_at, used, created_at
FROM password_resets WHERE token = $1`, token).
		Scan(&pr.ID, &pr.UserID, &pr.Token, &pr.ExpiresAt, &pr.Used, &pr.CreatedAt)
	if err != nil {
		return PasswordReset{}, err
	}
	return pr, nil
}

func markPasswordResetUsed(db *sql.DB, token string) error {
	_, err := db.Exec(`UPDATE password_resets SET used = TRUE WHERE token = $1`, token)
	return err
}

func updateUserPassword(db *sql.DB, userID int64, passwordHash string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, passwordHash, now, userID)
	return err
}

// --- Plan settings ---

func getPlanSettings(db *sql.DB, userID int64) (PlanSettings, error) {
	var s PlanSettings
	err := db.QueryRow(`
SELECT user_id, extra_payment_cents, method, frequency, updated_at
FROM plan_settings WHERE user_id = $1`, userID).
		Scan(&s.UserID, &s.ExtraPaymentCents, &s.Method, &s.Frequency, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return PlanSettings{
			UserID:    userID,
			Method:    string(Avalanche),
			Frequency: string(FrequencyMonthly),
		}, nil
	}
	if err != nil {
		return PlanSettings{}, err
	}
	return s, nil
}

func savePlanSettings(db *sql.DB, s PlanSettings) error {
	now := time.Now().UTC()
	_, err := db.Exec(`
INSERT INTO plan_settings(user_id, extra_payment_cents, method, frequency, updated_at)
VALUES($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO UPDATE SET extra_payment_cents = $2, method = $3, frequency = $4, updated_at = $5`,
		s.UserID, s.ExtraPaymentCents, s.Method, s.Frequency, now)
	return err
}

// --- Payoff alerts ---

// insertPayoffAlert fires a milestone once: re-inserts of the same
// (user, account, threshold) key are no-ops and report inserted=false.
func insertPayoffAlert(db *sql.DB, userID int64, accountID, thresholdID string, triggeredAt time.Time) (bool, error) {
	res, err := db.Exec(`
INSERT INTO payoff_alerts(user_id, account_id, threshold_id, triggered_at)
VALUES($1,$2,$3,$4)
ON CONFLICT (user_id, account_id, threshold_id) DO NOTHING`,
		userID, accountID, thresholdID, triggeredAt.UTC())
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func listPayoffAlerts(db *sql.DB, userID int64) ([]PayoffAlert, error) {
	rows, err := db.Query(`
SELECT id, user_id, account_id, threshold_id, triggered_at
FROM payoff_alerts WHERE user_id = $1 ORDER BY triggered_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PayoffAlert
	for rows.Next() {
		var al PayoffAlert
		if err := rows.Scan(&al.ID, &al.UserID, &al.AccountID, &al.ThresholdID, &al.TriggeredAt); err != nil {
			return nil, err
		}
		out = append(out, al)
	}
	return out, rows.Err()
}

// sumOfMinPaymentsForUser totals the monthly minimums across every active
// debt source (for the plan and settings views).
func sumOfMinPaymentsForUser(db *sql.DB, userID int64) (int64, error) {
	var total sql.NullInt64
	err := db.QueryRow(`
SELECT COALESCE((SELECT SUM(min_payment_cents) FROM debts WHERE user_id = $1 AND active = TRUE AND balance_cents > 0), 0)
     + COALESCE((SELECT SUM(min_payment_cents) FROM accounts WHERE user_id = $1 AND active = TRUE AND ledger_balance_cents < 0), 0)
     + COALESCE((SELECT SUM(amount_cents) FROM bills WHERE user_id = $1 AND active = TRUE AND is_debt = TRUE AND balance_cents > 0), 0)`,
		userID).Scan(&total)
	if err != nil {
		return 0, err
	}
	if total.Valid {
		return total.Int64, nil
	}
	return 0, nil
}
