package repository

import (
	"context"
	"database/sql"

	"course-ledger/internal/domain"
)

type CourseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, name, duration, fee, monthly_installments, is_active`

func (r *CourseRepository) ListActive(ctx context.Context) ([]domain.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE is_active = TRUE ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Course
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Duration, &c.Fee, &c.MonthlyInstallments, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*domain.Course, error) {
	var c domain.Course
	err := r.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Duration, &c.Fee, &c.MonthlyInstallments, &c.IsActive)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
