package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	StatusPending    = "En attente"
	StatusInProgress = "En cours"
	StatusDone       = "Terminé"
)

func ValidStatus(statut string) bool {
	switch statut {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Incident struct {
	ID               int64     `json:"id"`
	TypeInc          string    `json:"type_inc"`
	Salle            string    `json:"salle"`
	Description      string    `json:"description"`
	ImagePath        *string   `json:"image_path,omitempty"`
	Statut           string    `json:"statut"`
	DateCreation     time.Time `json:"date_creation"`
	DateModification time.Time `json:"date_modification"`
	ProfID           int64     `json:"prof_id"`
	DepartementID    int64     `json:"departement_id"`
	CommentaireChef  *string   `json:"commentaire_chef,omitempty"`
}

type IncidentsStore interface {
	Create(ctx context.Context, inc *Incident) (int64, error)
	GetByID(ctx context.Context, id int64) (*Incident, error)
	ListByProf(ctx context.Context, profID int64) ([]Incident, error)
	ListByDepartement(ctx context.Context, depID int64) ([]Incident, error)
	UpdateStatus(ctx context.Context, id int64, statut string, commentaire *string) error
}

type incidentsStore struct {
	db *sql.DB
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db}
}

const incidentColumns = `id, type_inc, salle, description, image_path, statut, date_creation, date_modification, prof_id, departement_id, commentaire_chef`

func (s *incidentsStore) Create(ctx context.Context, inc *Incident) (int64, error) {
	now := time.Now().UTC()
	if strings.TrimSpace(inc.Statut) == "" {
		inc.Statut = StatusPending
	}
	inc.DateCreation = now
	inc.DateModification = now
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO incidents(type_inc, salle, description, image_path, statut, date_creation, date_modification, prof_id, departement_id, commentaire_chef)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		strings.TrimSpace(inc.TypeInc), strings.TrimSpace(inc.Salle), strings.TrimSpace(inc.Description),
		inc.ImagePath, inc.Statut, inc.DateCreation, inc.DateModification,
		inc.ProfID, inc.DepartementID, inc.CommentaireChef,
	).Scan(&inc.ID)
	if err != nil {
		return 0, err
	}
	return inc.ID, nil
}

func (s *incidentsStore) GetByID(ctx context.Context, id int64) (*Incident, error) {
	var inc Incident
	err := s.db.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id,
	).Scan(&inc.ID, &inc.TypeInc, &inc.Salle, &inc.Description, &inc.ImagePath, &inc.Statut,
		&inc.DateCreation, &inc.DateModification, &inc.ProfID, &inc.DepartementID, &inc.CommentaireChef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inc, nil
}

func (s *incidentsStore) ListByProf(ctx context.Context, profID int64) ([]Incident, error) {
	return s.list(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE prof_id = $1 ORDER BY date_creation DESC`, profID)
}

func (s *incidentsStore) ListByDepartement(ctx context.Context, depID int64) ([]Incident, error) {
	return s.list(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE departement_id = $1 ORDER BY date_creation DESC`, depID)
}

func (s *incidentsStore) list(ctx context.Context, query string, arg any) ([]Incident, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Incident
	for rows.Next() {
		var inc Incident
		if err := rows.Scan(&inc.ID, &inc.TypeInc, &inc.Salle, &inc.Description, &inc.ImagePath,
			&inc.Statut, &inc.DateCreation, &inc.DateModification, &inc.ProfID,
			&inc.DepartementID, &inc.CommentaireChef); err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status and, when commentaire is non-nil, the
// head's comment. date_modification always advances.
func (s *incidentsStore) UpdateStatus(ctx context.Context, id int64, statut string, commentaire *string) error {
	var res sql.Result
	var err error
	if commentaire != nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE incidents SET statut = $1, commentaire_chef = $2, date_modification = $3 WHERE id = $4`,
			statut, strings.TrimSpace(*commentaire), time.Now().UTC(), id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE incidents SET statut = $1, date_modification = $2 WHERE id = $3`,
			statut, time.Now().UTC(), id)
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
