package user

import (
	"context"
	"database/sql"
	"time"
)

// User is an application account. Password holds the bcrypt hash and is
// never serialized.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Repository persists users in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, username, password, first_name, last_name, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Insert writes a new user row and returns its generated id.
func (r *Repository) Insert(ctx context.Context, u User) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, username, password, first_name, last_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.Username, u.Password, u.FirstName, u.LastName, u.Role, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Get returns a user by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetByEmail returns a user by email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// EmailOrUsernameTaken reports whether either identifier is in use by a
// user other than excludeID.
func (r *Repository) EmailOrUsernameTaken(ctx context.Context, email, username string, excludeID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE (email = ? OR username = ?) AND id != ?`,
		email, username, excludeID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all users.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update overwrites the mutable profile fields. Role is fixed at creation.
func (r *Repository) Update(ctx context.Context, u User) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, username = ?, first_name = ?, last_name = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.Username, u.FirstName, u.LastName, time.Now().UTC().Format(time.RFC3339), u.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a user row.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
