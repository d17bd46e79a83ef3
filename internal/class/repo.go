package class

import (
	"context"
	"database/sql"
)

// Class is a taught class. TeacherID references a user and may be unset.
type Class struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	TeacherID *int64 `json:"teacher_id"`
}

// Member is a student shown inside a class listing.
type Member struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// WithRoster is a class joined with its teacher's full name and the
// students whose primary class this is.
type WithRoster struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Teacher  *string  `json:"teacher"`
	Students []Member `json:"students"`
}

// Repository persists classes and enrollments in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new class row and returns it with the generated id.
func (r *Repository) Insert(ctx context.Context, name string, teacherID *int64) (*Class, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO classes (name, teacher_id) VALUES (?, ?)`, name, teacherID)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Class{ID: id, Name: name, TeacherID: teacherID}, nil
}

// Exists reports whether a class row exists.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM classes WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// StudentExists reports whether a student row exists.
func (r *Repository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM students WHERE id = ?`, studentID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all classes with teacher names attached. Rosters are filled
// in a second query and grouped in memory.
func (r *Repository) List(ctx context.Context) ([]WithRoster, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			c.id,
			c.name,
			u.first_name || ' ' || u.last_name AS teacher
		FROM classes c
		LEFT JOIN users u ON c.teacher_id = u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []WithRoster
	index := make(map[int64]int)
	for rows.Next() {
		var cls WithRoster
		if err := rows.Scan(&cls.ID, &cls.Name, &cls.Teacher); err != nil {
			return nil, err
		}
		cls.Students = []Member{}
		index[cls.ID] = len(classes)
		classes = append(classes, cls)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	studentRows, err := r.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, class_id FROM students`)
	if err != nil {
		return nil, err
	}
	defer studentRows.Close()

	for studentRows.Next() {
		var m Member
		var classID int64
		if err := studentRows.Scan(&m.ID, &m.FirstName, &m.LastName, &classID); err != nil {
			return nil, err
		}
		if i, ok := index[classID]; ok {
			classes[i].Students = append(classes[i].Students, m)
		}
	}
	return classes, studentRows.Err()
}

// Enroll inserts an enrollment row. The composite primary key rejects
// duplicates at the storage layer.
func (r *Repository) Enroll(ctx context.Context, studentID string, classID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO student_classes (student_id, class_id) VALUES (?, ?)`, studentID, classID)
	return err
}
