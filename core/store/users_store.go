package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type User struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	HashedPassword    string    `json:"-"`
	Role              string    `json:"role"`
	NomComplet        string    `json:"nom_complet"`
	Email             string    `json:"email"`
	DepartementID     *int64    `json:"departement_id,omitempty"`
	ChefDepartementID *int64    `json:"chef_departement_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type UsersStore interface {
	Create(ctx context.Context, user *User) (int64, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsUsername(ctx context.Context, username string) (bool, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
}

type usersStore struct {
	db *sql.DB
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{db: db}
}

const userColumns = `id, username, hashed_password, role, nom_complet, email, departement_id, chef_departement_id, created_at`

func (s *usersStore) Create(ctx context.Context, user *User) (int64, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users(username, hashed_password, role, nom_complet, email, departement_id, chef_departement_id, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		strings.ToLower(strings.TrimSpace(user.Username)), user.HashedPassword, user.Role,
		strings.TrimSpace(user.NomComplet), strings.ToLower(strings.TrimSpace(user.Email)),
		user.DepartementID, user.ChefDepartementID, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return user.ID, nil
}

func (s *usersStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *usersStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		strings.ToLower(strings.TrimSpace(username))))
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.Role, &u.NomComplet,
		&u.Email, &u.DepartementID, &u.ChefDepartementID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *usersStore) ExistsUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(1) FROM users WHERE username = $1`,
		strings.ToLower(strings.TrimSpace(username)))
}

func (s *usersStore) ExistsEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(1) FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (s *usersStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *usersStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&count)
	return count, err
}
