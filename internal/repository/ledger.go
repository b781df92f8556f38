package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"course-ledger/internal/domain"
	"course-ledger/pkg/database/postgres"

	"github.com/shopspring/decimal"
)

// LedgerTx is the transactional surface of the ledger store. Every method
// runs against the same transaction; the increment updates are single atomic
// statements so concurrent payments against one registration cannot lose
// writes.
type LedgerTx interface {
	GetRegistrationByReceipt(ctx context.Context, receiptNo string) (*domain.Registration, error)
	GetRegistration(ctx context.Context, id int64) (*domain.Registration, error)

	UpsertStudent(ctx context.Context, s *domain.Student) (int64, error)
	InsertRegistration(ctx context.Context, r *domain.Registration) (int64, error)
	InsertCourseRegistration(ctx context.Context, cr *domain.CourseRegistration) error
	InsertInstallments(ctx context.Context, installments []domain.Installment) error
	InsertPaymentHistory(ctx context.Context, p *domain.PaymentHistory) (int64, error)
	InsertPaymentMapping(ctx context.Context, historyID, installmentID int64, amount decimal.Decimal) error

	ListInstallmentsForCourse(ctx context.Context, registrationID, courseID int64, ids []int64) ([]domain.Installment, error)
	ListUnpaidInstallmentsBefore(ctx context.Context, registrationID, courseID int64, monthNumber int) ([]domain.Installment, error)

	ApplyInstallmentPayment(ctx context.Context, installmentID int64, delta decimal.Decimal) error
	ApplyRegistrationPayment(ctx context.Context, registrationID int64, delta decimal.Decimal) error

	DeletePaymentMappings(ctx context.Context, registrationID int64) error
	DeletePaymentHistory(ctx context.Context, registrationID int64) error
	DeleteCourseRegistrations(ctx context.Context, registrationID int64) error
	DeleteInstallments(ctx context.Context, registrationID int64) error
	DeleteRegistration(ctx context.Context, registrationID int64) error
	CountStudentRegistrations(ctx context.Context, studentID int64) (int64, error)
	DeleteStudent(ctx context.Context, studentID int64) error
}

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithinTx runs fn inside one READ COMMITTED transaction.
func (r *LedgerRepository) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return postgres.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

type ledgerTx struct {
	tx *sql.Tx
}

const registrationColumns = `id, receipt_no, student_id, total_amount, admission_fees, discount_amount, paid_amount, due_amount, payment_method, payment_status, registration_date`

func scanRegistration(row *sql.Row) (*domain.Registration, error) {
	var reg domain.Registration
	if err := row.Scan(
		&reg.ID,
		&reg.ReceiptNo,
		&reg.StudentID,
		&reg.TotalAmount,
		&reg.AdmissionFees,
		&reg.DiscountAmount,
		&reg.PaidAmount,
		&reg.DueAmount,
		&reg.PaymentMethod,
		&reg.PaymentStatus,
		&reg.RegistrationDate,
	); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Transactional registration reads take a row lock. The services validate
// against the balance they read and then apply increments; without the lock
// two concurrent transactions could both validate against the same stale
// due_amount and both commit.
func (t *ledgerTx) GetRegistrationByReceipt(ctx context.Context, receiptNo string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE receipt_no = $1 FOR UPDATE`
	return scanRegistration(t.tx.QueryRowContext(ctx, query, receiptNo))
}

func (t *ledgerTx) GetRegistration(ctx context.Context, id int64) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 FOR UPDATE`
	return scanRegistration(t.tx.QueryRowContext(ctx, query, id))
}

// UpsertStudent inserts a student or, when the phone number already exists,
// refreshes the mutable fields and returns the existing id.
func (t *ledgerTx) UpsertStudent(ctx context.Context, s *domain.Student) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM students WHERE phone_number = $1`, s.PhoneNumber,
	).Scan(&id)

	switch {
	case err == nil:
		_, err = t.tx.ExecContext(ctx,
			`UPDATE students SET full_name = $1, email = $2, date_of_birth = $3, address = $4, updated_at = CURRENT_TIMESTAMP WHERE id = $5`,
			s.FullName, s.Email, s.DateOfBirth, s.Address, id,
		)
		return id, err
	case err == sql.ErrNoRows:
		err = t.tx.QueryRowContext(ctx,
			`INSERT INTO students (full_name, phone_number, email, date_of_birth, address) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			s.FullName, s.PhoneNumber, s.Email, s.DateOfBirth, s.Address,
		).Scan(&id)
		return id, err
	default:
		return 0, err
	}
}

func (t *ledgerTx) InsertRegistration(ctx context.Context, r *domain.Registration) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO registrations
			(receipt_no, student_id, total_amount, admission_fees, discount_amount, paid_amount, due_amount, payment_method, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		r.ReceiptNo, r.StudentID, r.TotalAmount, r.AdmissionFees, r.DiscountAmount,
		r.PaidAmount, r.DueAmount, r.PaymentMethod, r.PaymentStatus,
	).Scan(&id)
	return id, err
}

func (t *ledgerTx) InsertCourseRegistration(ctx context.Context, cr *domain.CourseRegistration) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO course_registrations (registration_id, course_id, payment_plan, course_fee)
		VALUES ($1, $2, $3, $4)`,
		cr.RegistrationID, cr.CourseID, cr.PaymentPlan, cr.CourseFee,
	)
	return err
}

func (t *ledgerTx) InsertInstallments(ctx context.Context, installments []domain.Installment) error {
	for _, in := range installments {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO monthly_installments
				(registration_id, course_id, month_number, month_name, due_date, installment_amount, payment_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			in.RegistrationID, in.CourseID, in.MonthNumber, in.MonthName, in.DueDate, in.Amount, in.Status,
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *ledgerTx) InsertPaymentHistory(ctx context.Context, p *domain.PaymentHistory) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO payment_history (registration_id, payment_amount, payment_method, payment_type, receipt_no, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.RegistrationID, p.Amount, p.Method, p.Type, p.ReceiptNo, p.Notes,
	).Scan(&id)
	return id, err
}

func (t *ledgerTx) InsertPaymentMapping(ctx context.Context, historyID, installmentID int64, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payment_installment_mapping (payment_history_id, monthly_installment_id, amount_applied)
		VALUES ($1, $2, $3)`,
		historyID, installmentID, amount,
	)
	return err
}

const installmentColumns = `mi.id, mi.registration_id, mi.course_id, c.name, mi.month_number, mi.month_name, mi.due_date, mi.installment_amount, mi.paid_amount, mi.payment_status, mi.payment_date`

func scanInstallments(rows *sql.Rows) ([]domain.Installment, error) {
	defer rows.Close()

	var out []domain.Installment
	for rows.Next() {
		var in domain.Installment
		var paymentDate sql.NullTime
		if err := rows.Scan(
			&in.ID,
			&in.RegistrationID,
			&in.CourseID,
			&in.CourseName,
			&in.MonthNumber,
			&in.MonthName,
			&in.DueDate,
			&in.Amount,
			&in.PaidAmount,
			&in.Status,
			&paymentDate,
		); err != nil {
			return nil, err
		}
		if paymentDate.Valid {
			d := paymentDate.Time
			in.PaymentDate = &d
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListInstallmentsForCourse returns the installments with the given ids that
// belong to the stated registration and course. Ids outside that scope are
// simply absent from the result, which the allocator treats as an invalid
// reference.
func (t *ledgerTx) ListInstallmentsForCourse(ctx context.Context, registrationID, courseID int64, ids []int64) ([]domain.Installment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := []any{registrationID, courseID}
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+3))
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT `+installmentColumns+`
		FROM monthly_installments mi
		JOIN courses c ON c.id = mi.course_id
		WHERE mi.registration_id = $1 AND mi.course_id = $2 AND mi.id IN (%s)
		ORDER BY mi.month_number`,
		strings.Join(placeholders, ", "),
	)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanInstallments(rows)
}

func (t *ledgerTx) ListUnpaidInstallmentsBefore(ctx context.Context, registrationID, courseID int64, monthNumber int) ([]domain.Installment, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+installmentColumns+`
		FROM monthly_installments mi
		JOIN courses c ON c.id = mi.course_id
		WHERE mi.registration_id = $1 AND mi.course_id = $2
		  AND mi.month_number < $3 AND mi.payment_status = 'PENDING'
		ORDER BY mi.month_number`,
		registrationID, courseID, monthNumber,
	)
	if err != nil {
		return nil, err
	}
	return scanInstallments(rows)
}

// ApplyInstallmentPayment increments the paid amount and derives the new
// status in a single statement. Status can only move toward PAID here: once
// paid_amount covers installment_amount the CASE keeps reporting PAID.
func (t *ledgerTx) ApplyInstallmentPayment(ctx context.Context, installmentID int64, delta decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE monthly_installments
		SET paid_amount = paid_amount + $1,
		    payment_status = CASE
		        WHEN (paid_amount + $1) >= installment_amount THEN 'PAID'
		        ELSE 'PARTIAL'
		    END,
		    payment_date = CASE
		        WHEN (paid_amount + $1) >= installment_amount THEN CURRENT_DATE
		        ELSE payment_date
		    END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`,
		delta, installmentID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyRegistrationPayment is the balance recalculation: one atomic statement
// keeps paid/due/status consistent with the registration invariant even when
// two payments race on the same row.
func (t *ledgerTx) ApplyRegistrationPayment(ctx context.Context, registrationID int64, delta decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE registrations
		SET paid_amount = paid_amount + $1,
		    due_amount = GREATEST(0, total_amount - discount_amount - (paid_amount + $1)),
		    payment_status = CASE
		        WHEN (total_amount - discount_amount - (paid_amount + $1)) <= 0 THEN 'COMPLETED'
		        ELSE 'PARTIAL'
		    END
		WHERE id = $2`,
		delta, registrationID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *ledgerTx) DeletePaymentMappings(ctx context.Context, registrationID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM payment_installment_mapping
		WHERE payment_history_id IN (SELECT id FROM payment_history WHERE registration_id = $1)`,
		registrationID,
	)
	return err
}

func (t *ledgerTx) DeletePaymentHistory(ctx context.Context, registrationID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM payment_history WHERE registration_id = $1`, registrationID)
	return err
}

func (t *ledgerTx) DeleteCourseRegistrations(ctx context.Context, registrationID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM course_registrations WHERE registration_id = $1`, registrationID)
	return err
}

func (t *ledgerTx) DeleteInstallments(ctx context.Context, registrationID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM monthly_installments WHERE registration_id = $1`, registrationID)
	return err
}

func (t *ledgerTx) DeleteRegistration(ctx context.Context, registrationID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID)
	return err
}

func (t *ledgerTx) CountStudentRegistrations(ctx context.Context, studentID int64) (int64, error) {
	var count int64
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE student_id = $1`, studentID).Scan(&count)
	return count, err
}

func (t *ledgerTx) DeleteStudent(ctx context.Context, studentID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, studentID)
	return err
}

// Read side (no transaction required).

func (r *LedgerRepository) GetRegistrationByReceipt(ctx context.Context, receiptNo string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE receipt_no = $1`
	return scanRegistration(r.db.QueryRowContext(ctx, query, receiptNo))
}

func (r *LedgerRepository) ListInstallmentsByReceipt(ctx context.Context, receiptNo string) ([]domain.Installment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+installmentColumns+`
		FROM monthly_installments mi
		JOIN courses c ON c.id = mi.course_id
		JOIN registrations r ON r.id = mi.registration_id
		WHERE r.receipt_no = $1
		ORDER BY c.name, mi.course_id, mi.month_number`,
		receiptNo,
	)
	if err != nil {
		return nil, err
	}
	return scanInstallments(rows)
}

func (r *LedgerRepository) ListPaymentHistoryByReceipt(ctx context.Context, receiptNo string) ([]domain.PaymentHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ph.id, ph.registration_id, ph.payment_amount, ph.payment_method, ph.payment_type, ph.receipt_no, ph.notes, ph.payment_date
		FROM payment_history ph
		JOIN registrations r ON r.id = ph.registration_id
		WHERE r.receipt_no = $1
		ORDER BY ph.payment_date DESC`,
		receiptNo,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentHistory
	for rows.Next() {
		var p domain.PaymentHistory
		if err := rows.Scan(
			&p.ID,
			&p.RegistrationID,
			&p.Amount,
			&p.Method,
			&p.Type,
			&p.ReceiptNo,
			&p.Notes,
			&p.PaymentDate,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RegistrationSummary is the joined read model for listings and exports.
type RegistrationSummary struct {
	ID               int64
	ReceiptNo        string
	FullName         string
	PhoneNumber      string
	Email            string
	TotalAmount      decimal.Decimal
	AdmissionFees    decimal.Decimal
	DiscountAmount   decimal.Decimal
	PaidAmount       decimal.Decimal
	DueAmount        decimal.Decimal
	PaymentStatus    domain.PaymentStatus
	RegistrationDate time.Time
	OverdueMonths    int64
}

const summarySelect = `
	SELECT
		r.id, r.receipt_no, s.full_name, s.phone_number, s.email,
		r.total_amount, r.admission_fees, r.discount_amount, r.paid_amount, r.due_amount,
		r.payment_status, r.registration_date,
		COUNT(mi.id) FILTER (WHERE mi.payment_status = 'PENDING' AND mi.due_date < CURRENT_DATE) AS overdue_months
	FROM registrations r
	JOIN students s ON s.id = r.student_id
	LEFT JOIN monthly_installments mi ON mi.registration_id = r.id
	GROUP BY r.id, s.id
	ORDER BY r.registration_date DESC`

func scanSummaries(rows *sql.Rows) ([]RegistrationSummary, error) {
	defer rows.Close()

	var out []RegistrationSummary
	for rows.Next() {
		var rs RegistrationSummary
		if err := rows.Scan(
			&rs.ID,
			&rs.ReceiptNo,
			&rs.FullName,
			&rs.PhoneNumber,
			&rs.Email,
			&rs.TotalAmount,
			&rs.AdmissionFees,
			&rs.DiscountAmount,
			&rs.PaidAmount,
			&rs.DueAmount,
			&rs.PaymentStatus,
			&rs.RegistrationDate,
			&rs.OverdueMonths,
		); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) ListRegistrations(ctx context.Context, limit, offset int) ([]RegistrationSummary, error) {
	rows, err := r.db.QueryContext(ctx, summarySelect+` LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

func (r *LedgerRepository) ListAllRegistrations(ctx context.Context) ([]RegistrationSummary, error) {
	rows, err := r.db.QueryContext(ctx, summarySelect)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

func (r *LedgerRepository) CountRegistrations(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&count)
	return count, err
}
