package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MahirRamani/consumer-store/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type StudentListFilter struct {
	Search string
	Status string
	Limit  int
	Offset int
}

type StudentCreateInput struct {
	Name       string
	RollNumber string
	Standard   string
	Year       int
	Balance    domain.Money
}

type StudentPatchInput struct {
	Name     *string
	Standard *string
	Year     *int
	Status   *string
}

const studentColumns = `
	id,
	name,
	roll_number,
	standard,
	year,
	balance,
	status,
	created_at
`

func (r *Repository) ListStudents(ctx context.Context, filter StudentListFilter) ([]domain.Student, error) {
	limit := normalizeLimit(filter.Limit)
	offset := normalizeOffset(filter.Offset)
	search := strings.TrimSpace(filter.Search)
	status := strings.TrimSpace(filter.Status)

	rows, err := r.pool.Query(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR roll_number ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR status = $2)
		ORDER BY id ASC
		LIMIT $3 OFFSET $4
	`, search, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	students := make([]domain.Student, 0, limit)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

func (r *Repository) GetStudentByID(ctx context.Context, id int64) (*domain.Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE id = $1
	`, id)
	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get student %d: %w", id, err)
	}
	return &student, nil
}

func (r *Repository) GetStudentByRollNumber(ctx context.Context, rollNumber string) (*domain.Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE roll_number = $1
	`, strings.TrimSpace(rollNumber))
	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get student by roll number %q: %w", rollNumber, err)
	}
	return &student, nil
}

func (r *Repository) CreateStudent(ctx context.Context, input StudentCreateInput) (domain.Student, error) {
	name := strings.TrimSpace(input.Name)
	roll := strings.TrimSpace(input.RollNumber)
	if name == "" {
		return domain.Student{}, fmt.Errorf("name is required")
	}
	if roll == "" {
		return domain.Student{}, fmt.Errorf("roll_number is required")
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO students (name, roll_number, standard, year, balance, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+studentColumns+`
	`, name, roll, strings.TrimSpace(input.Standard), input.Year, int64(input.Balance), domain.StudentStatusActive)

	student, err := scanStudent(row)
	if err != nil {
		return domain.Student{}, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

func (r *Repository) PatchStudent(ctx context.Context, id int64, input StudentPatchInput) (*domain.Student, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin patch student tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE id = $1
		FOR UPDATE
	`, id)
	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load student for patch: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		student.Name = name
	}
	if input.Standard != nil {
		student.Standard = strings.TrimSpace(*input.Standard)
	}
	if input.Year != nil {
		student.Year = *input.Year
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if status != domain.StudentStatusActive && status != domain.StudentStatusTerminal {
			return nil, fmt.Errorf("invalid status %q", status)
		}
		student.Status = status
	}

	row = tx.QueryRow(ctx, `
		UPDATE students
		SET name = $2, standard = $3, year = $4, status = $5
		WHERE id = $1
		RETURNING `+studentColumns+`
	`, id, student.Name, student.Standard, student.Year, student.Status)
	updated, err := scanStudent(row)
	if err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit patch student tx: %w", err)
	}
	return &updated, nil
}

// AdjustBalance applies a signed delta to a student's balance and records the
// adjustment with its reason. This is the administrative top-up/deduction
// path: unlike a sale it may legitimately drive the balance negative.
func (r *Repository) AdjustBalance(ctx context.Context, id int64, amount domain.Money, reason string) (*domain.Student, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin adjust balance tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE students
		SET balance = balance + $2
		WHERE id = $1
		RETURNING `+studentColumns+`
	`, id, int64(amount))
	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("adjust balance for student %d: %w", id, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO balance_adjustments (student_id, amount, reason)
		VALUES ($1, $2, $3)
	`, id, int64(amount), reason); err != nil {
		return nil, fmt.Errorf("record balance adjustment for student %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit adjust balance tx: %w", err)
	}
	return &student, nil
}

func (r *Repository) DeleteStudent(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertStudentRows imports roster rows in one transaction, matching
// existing students by roll number. The imported balance overwrites the
// stored one, so only run this against a fresh roster.
func (r *Repository) UpsertStudentRows(ctx context.Context, rows []domain.StudentImportRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created := 0
	updated := 0
	for _, line := range rows {
		name := strings.TrimSpace(line.Name)
		roll := strings.TrimSpace(line.RollNumber)
		if name == "" || roll == "" {
			continue
		}

		var existingID int64
		err := tx.QueryRow(ctx, "SELECT id FROM students WHERE roll_number = $1", roll).Scan(&existingID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, fmt.Errorf("query existing student %q: %w", roll, err)
		}

		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := tx.Exec(ctx, `
				INSERT INTO students (name, roll_number, standard, year, balance, status)
				VALUES ($1, $2, $3, $4, $5, $6)
			`,
				name,
				roll,
				strings.TrimSpace(line.Standard),
				line.Year,
				int64(line.Balance),
				domain.StudentStatusActive,
			); err != nil {
				return 0, 0, fmt.Errorf("insert imported student %q: %w", roll, err)
			}
			created++
			continue
		}

		if _, err := tx.Exec(ctx, `
			UPDATE students
			SET
				name = $2,
				standard = $3,
				year = $4,
				balance = $5
			WHERE id = $1
		`,
			existingID,
			name,
			strings.TrimSpace(line.Standard),
			line.Year,
			int64(line.Balance),
		); err != nil {
			return 0, 0, fmt.Errorf("update imported student %q: %w", roll, err)
		}
		updated++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit import tx: %w", err)
	}
	return created, updated, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, created_at
		FROM categories
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) CreateCategory(ctx context.Context, name string, description *string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("name is required")
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, created_at
	`, name, description)
	category, err := scanCategory(row)
	if err != nil {
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, id int64, name string, description *string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = $2, description = $3
		WHERE id = $1
		RETURNING id, name, description, created_at
	`, id, name, description)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	return &category, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanStudent(row pgx.Row) (domain.Student, error) {
	var (
		student domain.Student
		balance int64
	)
	if err := row.Scan(
		&student.ID,
		&student.Name,
		&student.RollNumber,
		&student.Standard,
		&student.Year,
		&balance,
		&student.Status,
		&student.CreatedAt,
	); err != nil {
		return domain.Student{}, err
	}
	student.Balance = domain.Money(balance)
	return student, nil
}

func scanCategory(row pgx.Row) (domain.Category, error) {
	var (
		category    domain.Category
		description sql.NullString
	)
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&description,
		&category.CreatedAt,
	); err != nil {
		return domain.Category{}, err
	}
	if description.Valid {
		value := description.String
		category.Description = &value
	}
	return category, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
