package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

type CourseEnrollment struct {
	Name            string `json:"name"`
	EnrollmentCount int64  `json:"enrollment_count"`
}

type DashboardStats struct {
	TotalRegistrations     int64              `json:"total_registrations"`
	TotalStudents          int64              `json:"total_students"`
	TotalRevenue           decimal.Decimal    `json:"total_revenue"`
	PendingPayments        decimal.Decimal    `json:"pending_payments"`
	RegistrationsThisMonth int64              `json:"registrations_this_month"`
	PopularCourses         []CourseEnrollment `json:"popular_courses"`
}

type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var st DashboardStats

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&st.TotalRegistrations); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&st.TotalStudents); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(paid_amount), 0) FROM registrations`,
	).Scan(&st.TotalRevenue); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(due_amount), 0) FROM registrations WHERE due_amount > 0`,
	).Scan(&st.PendingPayments); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM registrations
		WHERE DATE_TRUNC('month', registration_date) = DATE_TRUNC('month', CURRENT_DATE)`,
	).Scan(&st.RegistrationsThisMonth); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, COUNT(cr.id) AS enrollment_count
		FROM courses c
		LEFT JOIN course_registrations cr ON cr.course_id = c.id
		GROUP BY c.id, c.name
		ORDER BY enrollment_count DESC
		LIMIT 5`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ce CourseEnrollment
		if err := rows.Scan(&ce.Name, &ce.EnrollmentCount); err != nil {
			return nil, err
		}
		st.PopularCourses = append(st.PopularCourses, ce)
	}
	return &st, rows.Err()
}
