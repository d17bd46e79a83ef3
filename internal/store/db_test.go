package store

import (
	"path/filepath"
	"testing"
)

func TestNewCreatesSchema(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "nested", "dir", "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"users", "classes", "students", "student_classes", "attendance", "unregistered_faces"} {
		var name string
		err := db.Client.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Client.Exec(
		`INSERT INTO classes (name) VALUES ('Algebra 1')`,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.Client.QueryRow(`SELECT COUNT(*) FROM classes`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected data to survive reopen, got %d rows", count)
	}
}
