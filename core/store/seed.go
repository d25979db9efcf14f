package store

import (
	"context"
	"errors"

	"fstt-incidents/core/auth"
	"fstt-incidents/core/rbac"
	"fstt-incidents/core/utils"
)

var defaultDepartements = []Departement{
	{Nom: "Informatique", Code: "INFO"},
	{Nom: "Mathématiques", Code: "MATH"},
	{Nom: "Physique", Code: "PHY"},
}

// Seed makes sure the default departments exist and, on a fresh
// database, creates the two demo accounts. Running it repeatedly is a
// no-op, so it is safe to call unconditionally at every start.
func Seed(ctx context.Context, departments DepartmentsStore, users UsersStore, logger *utils.Logger) error {
	var info *Departement
	for _, dep := range defaultDepartements {
		existing, err := departments.GetByCode(ctx, dep.Code)
		if err != nil {
			return err
		}
		if existing == nil {
			created := dep
			if _, err := departments.Create(ctx, &created); err != nil && !errors.Is(err, ErrDuplicate) {
				return err
			}
			existing = &created
			logger.Printf("SEED departement %s (%s)", created.Nom, created.Code)
		}
		if existing.Code == "INFO" {
			info = existing
		}
	}

	count, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 || info == nil {
		return nil
	}

	hash := auth.MustHashPassword("123")
	prof := &User{
		Username:       "prof1",
		HashedPassword: hash,
		Role:           rbac.RoleProfesseur,
		NomComplet:     "Professeur Test",
		Email:          "prof1@fstt.ac.ma",
		DepartementID:  &info.ID,
	}
	chef := &User{
		Username:          "chef1",
		HashedPassword:    hash,
		Role:              rbac.RoleChef,
		NomComplet:        "Chef Département Info",
		Email:             "chef1@fstt.ac.ma",
		ChefDepartementID: &info.ID,
	}
	for _, u := range []*User{prof, chef} {
		if _, err := users.Create(ctx, u); err != nil && !errors.Is(err, ErrDuplicate) {
			return err
		}
		logger.Printf("SEED user %s role=%s", u.Username, u.Role)
	}
	return nil
}
