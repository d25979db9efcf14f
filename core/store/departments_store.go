package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ErrDuplicate maps driver-specific uniqueness violations.
var ErrDuplicate = errors.New("duplicate")

type Departement struct {
	ID   int64  `json:"id"`
	Nom  string `json:"nom"`
	Code string `json:"code"`
}

type DepartmentsStore interface {
	Create(ctx context.Context, dep *Departement) (int64, error)
	GetByID(ctx context.Context, id int64) (*Departement, error)
	GetByCode(ctx context.Context, code string) (*Departement, error)
	List(ctx context.Context) ([]Departement, error)
	HasChef(ctx context.Context, depID int64) (bool, error)
}

type departmentsStore struct {
	db *sql.DB
}

func NewDepartmentsStore(db *sql.DB) DepartmentsStore {
	return &departmentsStore{db: db}
}

func (s *departmentsStore) Create(ctx context.Context, dep *Departement) (int64, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO departements(nom, code) VALUES($1, $2) RETURNING id`,
		strings.TrimSpace(dep.Nom), strings.ToUpper(strings.TrimSpace(dep.Code)),
	).Scan(&dep.ID)
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return dep.ID, nil
}

func (s *departmentsStore) GetByID(ctx context.Context, id int64) (*Departement, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, nom, code FROM departements WHERE id = $1`, id))
}

func (s *departmentsStore) GetByCode(ctx context.Context, code string) (*Departement, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, nom, code FROM departements WHERE code = $1`,
		strings.ToUpper(strings.TrimSpace(code))))
}

func (s *departmentsStore) scanOne(row *sql.Row) (*Departement, error) {
	var dep Departement
	if err := row.Scan(&dep.ID, &dep.Nom, &dep.Code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &dep, nil
}

func (s *departmentsStore) List(ctx context.Context) ([]Departement, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nom, code FROM departements ORDER BY nom`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Departement
	for rows.Next() {
		var dep Departement
		if err := rows.Scan(&dep.ID, &dep.Nom, &dep.Code); err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *departmentsStore) HasChef(ctx context.Context, depID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE chef_departement_id = $1`, depID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505") {
		return ErrDuplicate
	}
	return err
}
