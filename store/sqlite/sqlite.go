/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  One Store implements both persistence interfaces the service needs:
    ledger.Store:        append-only ledger entries
    billing.RecordStore: customers, projects, domains, payments

APPEND-ONLY ENFORCEMENT:
  ledger_entries is only ever INSERTed into. There is no UPDATE or DELETE
  on it outside Reset (demo/testing).

ORDERING:
  ledger_entries.seq is an autoincrement column. A customer's history is
  read ORDER BY seq, which is the order entries were posted in.

KEY TABLES:
  customers, projects, domains, payments: mutable records
  ledger_entries:                         immutable money log

  There are no foreign keys between records: deleting a customer leaves its
  projects and ledger in place.

ENCODING:
  Money is stored as decimal TEXT (exact). Calendar dates as YYYY-MM-DD,
  timestamps as RFC3339Nano, optional values as NULL.

CONCURRENCY:
  sync.RWMutex around *sql.DB, as SQLite allows one writer. An in-memory
  database is pinned to a single connection so every query sees the same
  database.

USAGE:
  store, err := sqlite.New("./data/agency.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l := ledger.NewLedger(store)
  svc := billing.NewService(store, l)

SEE ALSO:
  - ledger/store.go: Entry persistence interface
  - billing/store.go: Record persistence interfaces
  - ledger/store/memory.go: In-memory ledger store for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/billing"
	"github.com/warp/agency-ledger/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
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

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		type TEXT,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		amc_amount TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		payment_status TEXT NOT NULL,
		amc_paid_until TEXT,
		last_amc_payment_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_customer ON projects(customer_id);

	CREATE TABLE IF NOT EXISTS domains (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		domain_name TEXT NOT NULL,
		hosting_provider TEXT,
		username TEXT,
		password TEXT,
		validity_date TEXT NOT NULL,
		renewal_amount TEXT NOT NULL,
		renewal_status TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_domains_project ON domains(project_id);
	CREATE INDEX IF NOT EXISTS idx_domains_validity ON domains(validity_date);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		type TEXT NOT NULL,
		reference_id TEXT,
		amount TEXT NOT NULL,
		description TEXT,
		payment_date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_customer ON payments(customer_id);
	CREATE INDEX IF NOT EXISTS idx_payments_reference ON payments(reference_id, type, status);

	-- Append-only ledger
	CREATE TABLE IF NOT EXISTS ledger_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL CHECK (transaction_type IN ('debit', 'credit')),
		amount TEXT NOT NULL,
		description TEXT,
		reference_type TEXT,
		reference_id TEXT,
		date TEXT NOT NULL,
		balance TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_customer ON ledger_entries(customer_id, seq);
	CREATE INDEX IF NOT EXISTS idx_ledger_reference
		ON ledger_entries(customer_id, reference_type, reference_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// AppendEntry inserts one ledger entry. Append-only.
func (s *Store) AppendEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ledger_entries
			(id, customer_id, transaction_type, amount, description,
			 reference_type, reference_id, date, balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(e.ID), string(e.CustomerID), string(e.Type), e.Amount.String(),
		nullString(e.Description), nullString(string(e.ReferenceType)), nullString(e.ReferenceID),
		formatTime(e.Date), e.Balance.String(),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("ledger entry %s already exists: %w", e.ID, err)
	}
	return err
}

// LoadEntries returns the customer's entries in posting order.
func (s *Store) LoadEntries(ctx context.Context, customerID ledger.CustomerID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, transaction_type, amount, description,
		       reference_type, reference_id, date, balance
		FROM ledger_entries
		WHERE customer_id = ?
		ORDER BY seq ASC
	`, string(customerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e                                  ledger.Entry
			id, customer, typ, amount, balance string
			date                               string
			desc, refType, refID               sql.NullString
		)
		if err := rows.Scan(&id, &customer, &typ, &amount, &desc, &refType, &refID, &date, &balance); err != nil {
			return nil, err
		}
		e.ID = ledger.EntryID(id)
		e.CustomerID = ledger.CustomerID(customer)
		e.Type = ledger.EntryType(typ)
		e.Description = desc.String
		e.ReferenceType = ledger.ReferenceType(refType.String)
		e.ReferenceID = refID.String
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("entry %s amount: %w", id, err)
		}
		if e.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("entry %s balance: %w", id, err)
		}
		e.Date = parseTime(date)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) HasEntry(ctx context.Context, customerID ledger.CustomerID, refType ledger.ReferenceType, refID string, typ ledger.EntryType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ledger_entries
		WHERE customer_id = ? AND reference_type = ? AND reference_id = ? AND transaction_type = ?
	`, string(customerID), string(refType), refID, string(typ)).Scan(&n)
	return n > 0, err
}

// =============================================================================
// CUSTOMERS
// =============================================================================

const customerColumns = "id, name, phone, email, address, created_at"

func (s *Store) SaveCustomer(ctx context.Context, c billing.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO customers (id, name, phone, email, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			address = excluded.address
	`
	_, err := s.db.ExecContext(ctx, query,
		string(c.ID), c.Name, nullString(c.Phone), nullString(c.Email), nullString(c.Address),
		formatTime(createdAt(c.CreatedAt)),
	)
	return err
}

func (s *Store) GetCustomer(ctx context.Context, id ledger.CustomerID) (*billing.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = ?", string(id))
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]billing.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY name, created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []billing.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) DeleteCustomer(ctx context.Context, id ledger.CustomerID) (bool, error) {
	return s.deleteByID(ctx, "customers", string(id))
}

func scanCustomer(sc scanner) (billing.Customer, error) {
	var (
		c                     billing.Customer
		id, created           string
		phone, email, address sql.NullString
	)
	if err := sc.Scan(&id, &c.Name, &phone, &email, &address, &created); err != nil {
		return c, err
	}
	c.ID = ledger.CustomerID(id)
	c.Phone = phone.String
	c.Email = email.String
	c.Address = address.String
	c.CreatedAt = parseTime(created)
	return c, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

const projectColumns = `id, customer_id, type, name, amount, paid_amount, amc_amount,
	start_date, end_date, payment_status, amc_paid_until, last_amc_payment_date, created_at`

func (s *Store) SaveProject(ctx context.Context, p billing.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			type = excluded.type,
			name = excluded.name,
			amount = excluded.amount,
			paid_amount = excluded.paid_amount,
			amc_amount = excluded.amc_amount,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			payment_status = excluded.payment_status,
			amc_paid_until = excluded.amc_paid_until,
			last_amc_payment_date = excluded.last_amc_payment_date
	`
	_, err := s.db.ExecContext(ctx, query,
		string(p.ID), string(p.CustomerID), nullString(p.Type), p.Name,
		p.Amount.String(), p.PaidAmount.String(), p.AmcAmount.String(),
		nullDate(&p.StartDate), nullDate(p.EndDate), string(p.PaymentStatus),
		nullDate(p.AmcPaidUntil), nullDate(p.LastAmcPaymentDate),
		formatTime(createdAt(p.CreatedAt)),
	)
	return err
}

func (s *Store) GetProject(ctx context.Context, id billing.ProjectID) (*billing.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", string(id))
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]billing.Project, error) {
	return s.queryProjects(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at, id")
}

func (s *Store) ListProjectsByCustomer(ctx context.Context, customerID ledger.CustomerID) ([]billing.Project, error) {
	return s.queryProjects(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE customer_id = ? ORDER BY created_at, id",
		string(customerID),
	)
}

func (s *Store) DeleteProject(ctx context.Context, id billing.ProjectID) (bool, error) {
	return s.deleteByID(ctx, "projects", string(id))
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]billing.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []billing.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(sc scanner) (billing.Project, error) {
	var (
		p                                   billing.Project
		id, customer, name, status          string
		amount, paid, amc, created          string
		typ, start, end, paidUntil, lastAmc sql.NullString
	)
	err := sc.Scan(&id, &customer, &typ, &name, &amount, &paid, &amc,
		&start, &end, &status, &paidUntil, &lastAmc, &created)
	if err != nil {
		return p, err
	}
	p.ID = billing.ProjectID(id)
	p.CustomerID = ledger.CustomerID(customer)
	p.Type = typ.String
	p.Name = name
	p.PaymentStatus = billing.SettlementStatus(status)
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return p, fmt.Errorf("project %s amount: %w", id, err)
	}
	if p.PaidAmount, err = decimal.NewFromString(paid); err != nil {
		return p, fmt.Errorf("project %s paid_amount: %w", id, err)
	}
	if p.AmcAmount, err = decimal.NewFromString(amc); err != nil {
		return p, fmt.Errorf("project %s amc_amount: %w", id, err)
	}
	if d := parseNullDate(start); d != nil {
		p.StartDate = *d
	}
	p.EndDate = parseNullDate(end)
	p.AmcPaidUntil = parseNullDate(paidUntil)
	p.LastAmcPaymentDate = parseNullDate(lastAmc)
	p.CreatedAt = parseTime(created)
	return p, nil
}

// =============================================================================
// DOMAINS
// =============================================================================

const domainColumns = `id, project_id, domain_name, hosting_provider, username, password,
	validity_date, renewal_amount, renewal_status, payment_type, created_at`

func (s *Store) SaveDomain(ctx context.Context, d billing.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO domains (` + domainColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			domain_name = excluded.domain_name,
			hosting_provider = excluded.hosting_provider,
			username = excluded.username,
			password = excluded.password,
			validity_date = excluded.validity_date,
			renewal_amount = excluded.renewal_amount,
			renewal_status = excluded.renewal_status,
			payment_type = excluded.payment_type
	`
	_, err := s.db.ExecContext(ctx, query,
		string(d.ID), string(d.ProjectID), d.DomainName,
		nullString(d.HostingProvider), nullString(d.Username), nullString(d.Password),
		d.ValidityDate.String(), d.RenewalAmount.String(),
		string(d.RenewalStatus), string(d.PaymentType),
		formatTime(createdAt(d.CreatedAt)),
	)
	return err
}

func (s *Store) GetDomain(ctx context.Context, id billing.DomainID) (*billing.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+domainColumns+" FROM domains WHERE id = ?", string(id))
	d, err := scanDomain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDomains(ctx context.Context) ([]billing.Domain, error) {
	return s.queryDomains(ctx, "SELECT "+domainColumns+" FROM domains ORDER BY validity_date, id")
}

func (s *Store) ListDomainsByProject(ctx context.Context, projectID billing.ProjectID) ([]billing.Domain, error) {
	return s.queryDomains(ctx,
		"SELECT "+domainColumns+" FROM domains WHERE project_id = ? ORDER BY validity_date, id",
		string(projectID),
	)
}

// ListDomainsExpiringBy relies on YYYY-MM-DD sorting lexically.
func (s *Store) ListDomainsExpiringBy(ctx context.Context, day ledger.Date) ([]billing.Domain, error) {
	return s.queryDomains(ctx,
		"SELECT "+domainColumns+" FROM domains WHERE validity_date <= ? ORDER BY validity_date, id",
		day.String(),
	)
}

func (s *Store) DeleteDomain(ctx context.Context, id billing.DomainID) (bool, error) {
	return s.deleteByID(ctx, "domains", string(id))
}

func (s *Store) queryDomains(ctx context.Context, query string, args ...any) ([]billing.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []billing.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func scanDomain(sc scanner) (billing.Domain, error) {
	var (
		d                                            billing.Domain
		id, project, validity, amount, status, payer string
		created                                      string
		provider, username, password                 sql.NullString
	)
	err := sc.Scan(&id, &project, &d.DomainName, &provider, &username, &password,
		&validity, &amount, &status, &payer, &created)
	if err != nil {
		return d, err
	}
	d.ID = billing.DomainID(id)
	d.ProjectID = billing.ProjectID(project)
	d.HostingProvider = provider.String
	d.Username = username.String
	d.Password = password.String
	d.RenewalStatus = billing.RenewalStatus(status)
	d.PaymentType = billing.Payer(payer)
	if d.ValidityDate, err = ledger.ParseDate(validity); err != nil {
		return d, fmt.Errorf("domain %s validity_date: %w", id, err)
	}
	if d.RenewalAmount, err = decimal.NewFromString(amount); err != nil {
		return d, fmt.Errorf("domain %s renewal_amount: %w", id, err)
	}
	d.CreatedAt = parseTime(created)
	return d, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

const paymentColumns = `id, customer_id, type, reference_id, amount, description,
	payment_date, status, created_at`

func (s *Store) SavePayment(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			description = excluded.description
	`
	_, err := s.db.ExecContext(ctx, query,
		string(p.ID), string(p.CustomerID), string(p.Type), nullString(p.ReferenceID),
		p.Amount.String(), nullString(p.Description), p.PaymentDate.String(),
		string(p.Status), formatTime(createdAt(p.CreatedAt)),
	)
	return err
}

func (s *Store) GetPayment(ctx context.Context, id billing.PaymentID) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", string(id))
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPaymentsByCustomer(ctx context.Context, customerID ledger.CustomerID) ([]billing.Payment, error) {
	return s.queryPayments(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE customer_id = ? ORDER BY payment_date DESC, created_at DESC, rowid DESC",
		string(customerID),
	)
}

func (s *Store) FindPayments(ctx context.Context, f billing.PaymentFilter) ([]billing.Payment, error) {
	var (
		where []string
		args  []any
	)
	if f.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, string(f.CustomerID))
	}
	if f.ReferenceID != "" {
		where = append(where, "reference_id = ?")
		args = append(args, f.ReferenceID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := "SELECT " + paymentColumns + " FROM payments"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, rowid"
	return s.queryPayments(ctx, query, args...)
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(sc scanner) (billing.Payment, error) {
	var (
		p                                          billing.Payment
		id, customer, typ, amount, payDate, status string
		created                                    string
		refID, desc                                sql.NullString
	)
	err := sc.Scan(&id, &customer, &typ, &refID, &amount, &desc, &payDate, &status, &created)
	if err != nil {
		return p, err
	}
	p.ID = billing.PaymentID(id)
	p.CustomerID = ledger.CustomerID(customer)
	p.Type = billing.PaymentType(typ)
	p.ReferenceID = refID.String
	p.Description = desc.String
	p.Status = billing.PaymentStatus(status)
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return p, fmt.Errorf("payment %s amount: %w", id, err)
	}
	if p.PaymentDate, err = ledger.ParseDate(payDate); err != nil {
		return p, fmt.Errorf("payment %s payment_date: %w", id, err)
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"ledger_entries", "payments", "domains", "projects", "customers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *ledger.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) *ledger.Date {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d, err := ledger.ParseDate(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

// timestampLayout is fixed width so stored timestamps sort as text in time
// order. RFC3339Nano trims trailing zeros and does not.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ ledger.Store        = (*Store)(nil)
	_ billing.RecordStore = (*Store)(nil)
)
