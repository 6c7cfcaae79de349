package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-directory/internal/pool"
)

// User mirrors the 'users' table.
type User struct {
	ID           uint64
	Name         string
	Surname      string
	Username     string
	PasswordHash string
	BirthDate    *time.Time // nil when the user gave none
	Latitude     float64
	Longitude    float64
	IsOwner      bool
}

// UserRepo encapsulates all database queries related to users.
type UserRepo struct{ pool *pool.Pool }

// NewUserRepo constructs a UserRepo over the shared connection pool.
func NewUserRepo(p *pool.Pool) *UserRepo { return &UserRepo{pool: p} }

// Create inserts a user with an already-hashed credential and populates its
// ID. A username unique-key conflict is reported as ErrUsernameExists so the
// caller can distinguish it from validation failures.
func (r *UserRepo) Create(ctx context.Context, u *User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	res, err := conn.ExecContext(ctx,
		`INSERT INTO users (name, surname, username, password_hash, birth_date, latitude, longitude, is_owner)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.Name, u.Surname, u.Username, u.PasswordHash, u.BirthDate, u.Latitude, u.Longitude, u.IsOwner)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrUsernameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return User{}, err
	}
	defer r.pool.Release(conn)

	username = strings.ToLower(strings.TrimSpace(username))
	var u User
	err = conn.QueryRowContext(ctx,
		`SELECT id, name, surname, username, password_hash, birth_date, latitude, longitude, is_owner
		 FROM users WHERE username = ? LIMIT 1`, username).
		Scan(&u.ID, &u.Name, &u.Surname, &u.Username, &u.PasswordHash, &u.BirthDate, &u.Latitude, &u.Longitude, &u.IsOwner)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return User{}, err
	}
	defer r.pool.Release(conn)

	var u User
	err = conn.QueryRowContext(ctx,
		`SELECT id, name, surname, username, password_hash, birth_date, latitude, longitude, is_owner
		 FROM users WHERE id = ? LIMIT 1`, id).
		Scan(&u.ID, &u.Name, &u.Surname, &u.Username, &u.PasswordHash, &u.BirthDate, &u.Latitude, &u.Longitude, &u.IsOwner)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}
