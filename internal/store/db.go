package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the embedded SQLite database.
type DB struct {
	Client *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath and applies the schema.
// WAL keeps readers live during writes; a busy timeout covers writer contention.
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Foreign keys stay unenforced: referential checks live in the services,
	// and deleting a class intentionally leaves its students orphaned.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{Client: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		email       TEXT NOT NULL UNIQUE,
		username    TEXT NOT NULL UNIQUE,
		password    TEXT NOT NULL,
		first_name  TEXT NOT NULL,
		last_name   TEXT NOT NULL,
		role        TEXT NOT NULL DEFAULT 'student' CHECK(role IN ('admin', 'teacher', 'student')),
		created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS classes (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		teacher_id  INTEGER,
		FOREIGN KEY (teacher_id) REFERENCES users (id)
	);

	CREATE TABLE IF NOT EXISTS students (
		id          TEXT PRIMARY KEY,
		first_name  TEXT NOT NULL,
		last_name   TEXT NOT NULL,
		class_id    INTEGER NOT NULL,
		FOREIGN KEY (class_id) REFERENCES classes (id)
	);

	CREATE TABLE IF NOT EXISTS student_classes (
		student_id  TEXT NOT NULL,
		class_id    INTEGER NOT NULL,
		PRIMARY KEY (student_id, class_id),
		FOREIGN KEY (student_id) REFERENCES students (id),
		FOREIGN KEY (class_id)   REFERENCES classes (id)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id  TEXT NOT NULL,
		class_id    INTEGER NOT NULL,
		timestamp   TEXT NOT NULL,
		FOREIGN KEY (student_id) REFERENCES students (id),
		FOREIGN KEY (class_id)   REFERENCES classes (id)
	);

	CREATE TABLE IF NOT EXISTS unregistered_faces (
		face_id     TEXT PRIMARY KEY,
		class_id    INTEGER NOT NULL,
		created_at  TEXT NOT NULL,
		FOREIGN KEY (class_id) REFERENCES classes (id)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_class   ON attendance(class_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_time    ON attendance(timestamp);
	CREATE INDEX IF NOT EXISTS idx_students_class     ON students(class_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
