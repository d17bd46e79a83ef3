package student

import (
	"context"
	"database/sql"
)

// Student is a registered student. The id is assigned by the institution
// and never changes.
type Student struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ClassID   int64  `json:"class_id"`
}

// WithClass is a student joined with its class name for listings.
// ClassName is nil when the class has been deleted.
type WithClass struct {
	Student
	ClassName *string `json:"class_name"`
}

// Repository persists students in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether a student row exists.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM students WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert writes a new student row.
func (r *Repository) Insert(ctx context.Context, st Student) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO students (id, first_name, last_name, class_id) VALUES (?, ?, ?, ?)`,
		st.ID, st.FirstName, st.LastName, st.ClassID,
	)
	return err
}

// Get returns a single student by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Student, error) {
	var st Student
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, class_id FROM students WHERE id = ?`, id,
	).Scan(&st.ID, &st.FirstName, &st.LastName, &st.ClassID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// List returns all students left-joined with their class name.
func (r *Repository) List(ctx context.Context) ([]WithClass, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			s.id,
			s.first_name,
			s.last_name,
			s.class_id,
			c.name AS class_name
		FROM students s
		LEFT JOIN classes c ON s.class_id = c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []WithClass
	for rows.Next() {
		var st WithClass
		if err := rows.Scan(&st.ID, &st.FirstName, &st.LastName, &st.ClassID, &st.ClassName); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// Update overwrites all mutable fields of the student row.
func (r *Repository) Update(ctx context.Context, st Student) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET first_name = ?, last_name = ?, class_id = ? WHERE id = ?`,
		st.FirstName, st.LastName, st.ClassID, st.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the student row and reports how many rows went away.
func (r *Repository) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
