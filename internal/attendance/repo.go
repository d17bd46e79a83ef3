package attendance

import (
	"context"
	"database/sql"
	"time"
)

// Record is an attendance row joined with student and class names.
type Record struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	StudentID string `json:"student_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ClassName string `json:"class_name"`
}

// Filters narrows an attendance listing.
type Filters struct {
	ClassID *int64
	Date    string // calendar date, YYYY-MM-DD
}

// Repository persists attendance data in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StudentExists reports whether a student row exists.
func (r *Repository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM students WHERE id = ?`, studentID)
}

// ClassExists reports whether a class row exists.
func (r *Repository) ClassExists(ctx context.Context, classID int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM classes WHERE id = ?`, classID)
}

func (r *Repository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert writes one attendance row and returns the number of affected rows.
func (r *Repository) Insert(ctx context.Context, studentID string, classID int64, ts time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (student_id, class_id, timestamp) VALUES (?, ?, ?)`,
		studentID, classID, ts.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns attendance rows joined with names, most recent first.
// The date filter compares calendar dates, ignoring time of day.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Record, error) {
	query := `
		SELECT
			a.id,
			a.timestamp,
			s.id AS student_id,
			s.first_name,
			s.last_name,
			c.name AS class_name
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		JOIN classes c ON a.class_id = c.id`

	var clauses []string
	var args []any
	if filters.ClassID != nil {
		clauses = append(clauses, "a.class_id = ?")
		args = append(args, *filters.ClassID)
	}
	if filters.Date != "" {
		clauses = append(clauses, "date(a.timestamp) = ?")
		args = append(args, filters.Date)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY a.timestamp DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.StudentID, &rec.FirstName, &rec.LastName, &rec.ClassName); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
