package unregistered

import (
	"context"
	"database/sql"
	"time"
)

// Face is a pending face the recognition service captured but could not
// match to a known student.
type Face struct {
	FaceID    string `json:"face_id"`
	ClassID   int64  `json:"class_id"`
	CreatedAt string `json:"created_at"`
}

// Repository persists pending faces in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert records a pending face keyed by the gateway-issued id.
func (r *Repository) Insert(ctx context.Context, faceID string, classID int64, createdAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO unregistered_faces (face_id, class_id, created_at) VALUES (?, ?, ?)`,
		faceID, classID, createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// List returns every pending face.
func (r *Repository) List(ctx context.Context) ([]Face, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT face_id, class_id, created_at FROM unregistered_faces`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faces []Face
	for rows.Next() {
		var f Face
		if err := rows.Scan(&f.FaceID, &f.ClassID, &f.CreatedAt); err != nil {
			return nil, err
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// Delete removes the local pending record.
func (r *Repository) Delete(ctx context.Context, faceID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM unregistered_faces WHERE face_id = ?`, faceID)
	return err
}
