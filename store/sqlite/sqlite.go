/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements ledger.Repository (schools, students, invoices) and
  auth.UserStore on one SQLite database. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  schools:  tenants
  students: belong to one school (cascade on delete)
  invoices: belong to one student and one school (cascade on delete)
  users:    API accounts

ENCODING:
  Money is stored as TEXT decimal strings so no float ever touches a
  balance. Dates are TEXT YYYY-MM-DD; timestamps are RFC3339 UTC.
  status and payment_method are re-validated on every scan: a row with a
  value outside the closed sets is rejected, never coerced.

INDEXES:
  - idx_invoices_student_date: statement hot path (student + date window)
  - idx_students_school:       paging a school's students by id

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  ":memory:" databases are pinned to one connection so every query sees the
  same database.

MIGRATION:
  Schema lives in migrations/*.sql, embedded and applied by golang-migrate
  on New(). The CLI exposes Migrate("up"|"down").

USAGE:
  store, err := sqlite.New("./data/mattilda.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewStatementEngine(store, logger)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mattilda/school-ledger/auth"
	"github.com/mattilda/school-ledger/ledger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements ledger.Repository and auth.UserStore using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New opens (or creates) the database at dbPath and migrates it to the
// latest schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	store, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate("up"); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Open opens the database at dbPath without touching the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already-open handle without migrating it.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies ("up") or rolls back ("down") every embedded migration.
func (s *Store) Migrate(direction string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// Do not call m.Close here because it would close the shared *sql.DB.

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations %s: %w", direction, err)
	}
	return nil
}

// =============================================================================
// SCHOOLS
// =============================================================================

const schoolColumns = `id, name, address, city, state, zip_code, phone, email,
	principal_name, established_year, is_active, created_at, updated_at`

func (s *Store) FetchSchool(ctx context.Context, id ledger.SchoolID) (*ledger.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+schoolColumns+" FROM schools WHERE id = ?", id)
	school, err := scanSchool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repoErr("fetch school", err)
	}
	return &school, nil
}

func (s *Store) ListSchools(ctx context.Context, f ledger.SchoolFilter, page ledger.Page) ([]ledger.School, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w where
	if f.Name != nil {
		w.add("name LIKE ?", "%"+*f.Name+"%")
	}
	if f.City != nil {
		w.add("city LIKE ?", "%"+*f.City+"%")
	}
	if f.State != nil {
		w.add("state = ? COLLATE NOCASE", *f.State)
	}
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}

	total, err := s.count(ctx, "schools", w)
	if err != nil {
		return nil, 0, repoErr("count schools", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+schoolColumns+" FROM schools"+w.sql()+" ORDER BY id"+limitClause(page),
		w.args...)
	if err != nil {
		return nil, 0, repoErr("list schools", err)
	}
	defer rows.Close()

	schools := []ledger.School{}
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, 0, repoErr("scan school", err)
		}
		schools = append(schools, school)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, repoErr("list schools", err)
	}
	return schools, total, nil
}

func (s *Store) CreateSchool(ctx context.Context, school ledger.School) (ledger.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO schools (name, address, city, state, zip_code, phone, email,
			principal_name, established_year, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		school.Name, school.Address, school.City, school.State, school.ZipCode,
		nullString(school.Phone), nullString(school.Email), nullString(school.Principal),
		nullInt(school.EstablishedYear), school.IsActive,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return ledger.School{}, repoErr("create school", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ledger.School{}, repoErr("create school", err)
	}
	school.ID = ledger.SchoolID(id)
	school.CreatedAt, school.UpdatedAt = now, now
	return school, nil
}

func (s *Store) UpdateSchool(ctx context.Context, school ledger.School) (ledger.School, error) {
	s.mu.Lock()
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE schools SET name = ?, address = ?, city = ?, state = ?, zip_code = ?,
			phone = ?, email = ?, principal_name = ?, established_year = ?,
			is_active = ?, updated_at = ?
		WHERE id = ?`,
		school.Name, school.Address, school.City, school.State, school.ZipCode,
		nullString(school.Phone), nullString(school.Email), nullString(school.Principal),
		nullInt(school.EstablishedYear), school.IsActive, now.Format(time.RFC3339),
		school.ID,
	)
	s.mu.Unlock()
	if err := checkAffected(res, err, "update school", "school", int64(school.ID)); err != nil {
		return ledger.School{}, err
	}

	updated, err := s.FetchSchool(ctx, school.ID)
	if err != nil {
		return ledger.School{}, err
	}
	if updated == nil {
		return ledger.School{}, &ledger.NotFoundError{Entity: "school", ID: int64(school.ID)}
	}
	return *updated, nil
}

// DeleteSchool removes the school; students and invoices cascade.
func (s *Store) DeleteSchool(ctx context.Context, id ledger.SchoolID) (bool, error) {
	return s.deleteByID(ctx, "schools", int64(id))
}

func (s *Store) CountStudents(ctx context.Context, id ledger.SchoolID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w where
	w.add("school_id = ?", id)
	n, err := s.count(ctx, "students", w)
	if err != nil {
		return 0, repoErr("count students", err)
	}
	return n, nil
}

func scanSchool(sc scanner) (ledger.School, error) {
	var (
		school                  ledger.School
		phone, email, principal sql.NullString
		established             sql.NullInt64
		createdAt, updatedAt    string
	)
	err := sc.Scan(&school.ID, &school.Name, &school.Address, &school.City, &school.State,
		&school.ZipCode, &phone, &email, &principal, &established, &school.IsActive,
		&createdAt, &updatedAt)
	if err != nil {
		return school, err
	}
	school.Phone = phone.String
	school.Email = email.String
	school.Principal = principal.String
	school.EstablishedYear = int(established.Int64)
	school.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	school.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return school, nil
}

// =============================================================================
// STUDENTS
// =============================================================================

const studentColumns = `id, school_id, first_name, last_name, email, phone, date_of_birth,
	grade_level, enrollment_date, address, guardian_name, guardian_phone, is_active,
	created_at, updated_at`

func (s *Store) FetchStudent(ctx context.Context, id ledger.StudentID) (*ledger.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+studentColumns+" FROM students WHERE id = ?", id)
	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repoErr("fetch student", err)
	}
	return &student, nil
}

func (s *Store) FetchStudentsBySchool(ctx context.Context, schoolID ledger.SchoolID, page ledger.Page) ([]ledger.Student, int, error) {
	return s.ListStudents(ctx, ledger.StudentFilter{SchoolID: &schoolID}, page)
}

func (s *Store) ListStudents(ctx context.Context, f ledger.StudentFilter, page ledger.Page) ([]ledger.Student, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w where
	if f.SchoolID != nil {
		w.add("school_id = ?", *f.SchoolID)
	}
	if f.GradeLevel != nil {
		w.add("grade_level = ?", *f.GradeLevel)
	}
	if f.Name != nil {
		like := "%" + *f.Name + "%"
		w.add("(first_name LIKE ? OR last_name LIKE ?)", like, like)
	}
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}

	total, err := s.count(ctx, "students", w)
	if err != nil {
		return nil, 0, repoErr("count students", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+studentColumns+" FROM students"+w.sql()+" ORDER BY id"+limitClause(page),
		w.args...)
	if err != nil {
		return nil, 0, repoErr("list students", err)
	}
	defer rows.Close()

	students := []ledger.Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, 0, repoErr("scan student", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, repoErr("list students", err)
	}
	return students, total, nil
}

func (s *Store) CreateStudent(ctx context.Context, st ledger.Student) (ledger.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO students (school_id, first_name, last_name, email, phone, date_of_birth,
			grade_level, enrollment_date, address, guardian_name, guardian_phone, is_active,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.SchoolID, st.FirstName, st.LastName, st.Email, nullString(st.Phone),
		nullDate(st.DateOfBirth), st.GradeLevel, nullDate(st.EnrollmentDate),
		nullString(st.Address), nullString(st.GuardianName), nullString(st.GuardianPhone),
		st.IsActive, now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if isForeignKeyError(err) {
		return ledger.Student{}, &ledger.NotFoundError{Entity: "school", ID: int64(st.SchoolID)}
	}
	if err != nil {
		return ledger.Student{}, repoErr("create student", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ledger.Student{}, repoErr("create student", err)
	}
	st.ID = ledger.StudentID(id)
	st.CreatedAt, st.UpdatedAt = now, now
	return st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, st ledger.Student) (ledger.Student, error) {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE students SET school_id = ?, first_name = ?, last_name = ?, email = ?, phone = ?,
			date_of_birth = ?, grade_level = ?, enrollment_date = ?, address = ?,
			guardian_name = ?, guardian_phone = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		st.SchoolID, st.FirstName, st.LastName, st.Email, nullString(st.Phone),
		nullDate(st.DateOfBirth), st.GradeLevel, nullDate(st.EnrollmentDate),
		nullString(st.Address), nullString(st.GuardianName), nullString(st.GuardianPhone),
		st.IsActive, s.now().Format(time.RFC3339), st.ID,
	)
	s.mu.Unlock()
	if isForeignKeyError(err) {
		return ledger.Student{}, &ledger.NotFoundError{Entity: "school", ID: int64(st.SchoolID)}
	}
	if err := checkAffected(res, err, "update student", "student", int64(st.ID)); err != nil {
		return ledger.Student{}, err
	}

	updated, err := s.FetchStudent(ctx, st.ID)
	if err != nil {
		return ledger.Student{}, err
	}
	if updated == nil {
		return ledger.Student{}, &ledger.NotFoundError{Entity: "student", ID: int64(st.ID)}
	}
	return *updated, nil
}

func (s *Store) DeleteStudent(ctx context.Context, id ledger.StudentID) (bool, error) {
	return s.deleteByID(ctx, "students", int64(id))
}

func scanStudent(sc scanner) (ledger.Student, error) {
	var (
		st                                   ledger.Student
		phone, address, guardian, guardianPh sql.NullString
		dob, enrolled                        sql.NullString
		createdAt, updatedAt                 string
	)
	err := sc.Scan(&st.ID, &st.SchoolID, &st.FirstName, &st.LastName, &st.Email, &phone,
		&dob, &st.GradeLevel, &enrolled, &address, &guardian, &guardianPh, &st.IsActive,
		&createdAt, &updatedAt)
	if err != nil {
		return st, err
	}
	st.Phone = phone.String
	st.Address = address.String
	st.GuardianName = guardian.String
	st.GuardianPhone = guardianPh.String
	if st.DateOfBirth, err = parseNullDate(dob); err != nil {
		return st, err
	}
	if st.EnrollmentDate, err = parseNullDate(enrolled); err != nil {
		return st, err
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return st, nil
}

// =============================================================================
// INVOICES
// =============================================================================

const invoiceColumns = `id, invoice_number, student_id, school_id, amount, tax_amount,
	total_amount, description, invoice_date, due_date, status, payment_date,
	payment_method, notes, created_at, updated_at`

func (s *Store) FetchInvoice(ctx context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repoErr("fetch invoice", err)
	}
	return &inv, nil
}

// FetchInvoices returns matching invoices ordered by invoice date, then id.
func (s *Store) FetchInvoices(ctx context.Context, f ledger.InvoiceFilter, page ledger.Page) ([]ledger.Invoice, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w where
	if f.StudentID != nil {
		w.add("student_id = ?", *f.StudentID)
	}
	if f.SchoolID != nil {
		w.add("school_id = ?", *f.SchoolID)
	}
	if f.Status != nil {
		w.add("status = ?", string(*f.Status))
	}
	if f.InvoiceDateFrom != nil {
		w.add("invoice_date >= ?", f.InvoiceDateFrom.String())
	}
	if f.InvoiceDateTo != nil {
		w.add("invoice_date <= ?", f.InvoiceDateTo.String())
	}

	total, err := s.count(ctx, "invoices", w)
	if err != nil {
		return nil, 0, repoErr("count invoices", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices"+w.sql()+" ORDER BY invoice_date, id"+limitClause(page),
		w.args...)
	if err != nil {
		return nil, 0, repoErr("fetch invoices", err)
	}
	defer rows.Close()

	invoices := []ledger.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, repoErr("scan invoice", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, repoErr("fetch invoices", err)
	}
	return invoices, total, nil
}

// CreateInvoice stores inv. SchoolID is taken from the student when unset.
func (s *Store) CreateInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var schoolID ledger.SchoolID
	err := s.db.QueryRowContext(ctx, "SELECT school_id FROM students WHERE id = ?", inv.StudentID).Scan(&schoolID)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Invoice{}, &ledger.NotFoundError{Entity: "student", ID: int64(inv.StudentID)}
	}
	if err != nil {
		return ledger.Invoice{}, repoErr("create invoice", err)
	}
	if inv.SchoolID == 0 {
		inv.SchoolID = schoolID
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (invoice_number, student_id, school_id, amount, tax_amount,
			total_amount, description, invoice_date, due_date, status, payment_date,
			payment_method, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(inv.InvoiceNumber), inv.StudentID, inv.SchoolID,
		inv.Amount.String(), inv.TaxAmount.String(), inv.TotalAmount.String(),
		nullString(inv.Description), inv.InvoiceDate.String(), inv.DueDate.String(),
		string(inv.Status), nullDatePtr(inv.PaymentDate), nullString(string(inv.PaymentMethod)),
		nullString(inv.Notes), now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return ledger.Invoice{}, repoErr("create invoice", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ledger.Invoice{}, repoErr("create invoice", err)
	}
	inv.ID = ledger.InvoiceID(id)
	inv.CreatedAt, inv.UpdatedAt = now, now
	return inv, nil
}

// UpdateInvoice overwrites every mutable column. Callers pass an invoice
// that already went through Apply, MarkAsPaid or Cancel.
func (s *Store) UpdateInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET invoice_number = ?, amount = ?, tax_amount = ?, total_amount = ?,
			description = ?, invoice_date = ?, due_date = ?, status = ?, payment_date = ?,
			payment_method = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		nullString(inv.InvoiceNumber), inv.Amount.String(), inv.TaxAmount.String(),
		inv.TotalAmount.String(), nullString(inv.Description), inv.InvoiceDate.String(),
		inv.DueDate.String(), string(inv.Status), nullDatePtr(inv.PaymentDate),
		nullString(string(inv.PaymentMethod)), nullString(inv.Notes),
		s.now().Format(time.RFC3339), inv.ID,
	)
	s.mu.Unlock()
	if err := checkAffected(res, err, "update invoice", "invoice", int64(inv.ID)); err != nil {
		return ledger.Invoice{}, err
	}

	updated, err := s.FetchInvoice(ctx, inv.ID)
	if err != nil {
		return ledger.Invoice{}, err
	}
	if updated == nil {
		return ledger.Invoice{}, &ledger.NotFoundError{Entity: "invoice", ID: int64(inv.ID)}
	}
	return *updated, nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id ledger.InvoiceID) (bool, error) {
	return s.deleteByID(ctx, "invoices", int64(id))
}

func scanInvoice(sc scanner) (ledger.Invoice, error) {
	var (
		inv                          ledger.Invoice
		number, description, notes   sql.NullString
		paymentDate, paymentMethod   sql.NullString
		amount, tax, total           string
		invoiceDate, dueDate, status string
		createdAt, updatedAt         string
	)
	err := sc.Scan(&inv.ID, &number, &inv.StudentID, &inv.SchoolID, &amount, &tax, &total,
		&description, &invoiceDate, &dueDate, &status, &paymentDate, &paymentMethod,
		&notes, &createdAt, &updatedAt)
	if err != nil {
		return inv, err
	}

	inv.InvoiceNumber = number.String
	inv.Description = description.String
	inv.Notes = notes.String
	if inv.Amount, err = ledger.ParseMoney(amount); err != nil {
		return inv, err
	}
	if inv.TaxAmount, err = ledger.ParseMoney(tax); err != nil {
		return inv, err
	}
	if inv.TotalAmount, err = ledger.ParseMoney(total); err != nil {
		return inv, err
	}
	if inv.InvoiceDate, err = ledger.ParseDate(invoiceDate); err != nil {
		return inv, err
	}
	if inv.DueDate, err = ledger.ParseDate(dueDate); err != nil {
		return inv, err
	}
	if inv.Status, err = ledger.ParseInvoiceStatus(status); err != nil {
		return inv, err
	}
	if paymentDate.Valid && paymentDate.String != "" {
		d, err := ledger.ParseDate(paymentDate.String)
		if err != nil {
			return inv, err
		}
		inv.PaymentDate = &d
	}
	if paymentMethod.Valid && paymentMethod.String != "" {
		if inv.PaymentMethod, err = ledger.ParsePaymentMethod(paymentMethod.String); err != nil {
			return inv, err
		}
	}
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return inv, nil
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = `id, username, email, full_name, password_hash, is_active, is_superuser, created_at`

func (s *Store) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, full_name, password_hash, is_active, is_superuser, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, nullString(u.FullName), u.PasswordHash, u.IsActive, u.IsSuperuser,
		now.Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return auth.User{}, auth.ErrUserExists
	}
	if err != nil {
		return auth.User{}, repoErr("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return auth.User{}, repoErr("create user", err)
	}
	u.ID = id
	u.CreatedAt = now
	return u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.queryUser(ctx, "username = ?", username)
}

func (s *Store) UserByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.queryUser(ctx, "id = ?", id)
}

func (s *Store) queryUser(ctx context.Context, cond string, arg any) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		u         auth.User
		fullName  sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+cond, arg).Scan(
		&u.ID, &u.Username, &u.Email, &fullName, &u.PasswordHash, &u.IsActive, &u.IsSuperuser, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repoErr("fetch user", err)
	}
	u.FullName = fullName.String
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"invoices", "students", "schools", "users", "sqlite_sequence"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return repoErr("reset "+table, err)
		}
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table string, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return false, repoErr("delete from "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, repoErr("delete from "+table, err)
	}
	return n > 0, nil
}

func (s *Store) count(ctx context.Context, table string, w where) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+w.sql(), w.args...).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// limitClause renders a Page. SQLite treats LIMIT -1 as unbounded.
func limitClause(p ledger.Page) string {
	limit := p.Limit
	if limit <= 0 {
		limit = -1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)
}

func checkAffected(res sql.Result, err error, op, entity string, id int64) error {
	if err != nil {
		return repoErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repoErr(op, err)
	}
	if n == 0 {
		return &ledger.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func repoErr(op string, err error) error {
	return &ledger.RepositoryError{Op: op, Err: err}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nullDate(d ledger.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullDatePtr(d *ledger.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return nullDate(*d)
}

func parseNullDate(s sql.NullString) (ledger.Date, error) {
	if !s.Valid || s.String == "" {
		return ledger.Date{}, nil
	}
	return ledger.ParseDate(s.String)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

var (
	_ ledger.Repository = (*Store)(nil)
	_ auth.UserStore    = (*Store)(nil)
)
