package service

import (
	"context"
	"fmt"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/rs/zerolog"
)

// CatalogSeeder installs the fixed permission and role catalog.
type CatalogSeeder struct {
	uow UnitOfWork
	log zerolog.Logger
}

// NewCatalogSeeder creates a new CatalogSeeder.
func NewCatalogSeeder(uow UnitOfWork, log zerolog.Logger) *CatalogSeeder {
	return &CatalogSeeder{
		uow: uow,
		log: log.With().Str("component", "catalog_seeder").Logger(),
	}
}

// EnsureCatalog find-or-creates every catalog permission and role, then seeds the
// grants of any role that has none. Roles that already carry grants are left
// untouched, so a second run changes nothing.
func (s *CatalogSeeder) EnsureCatalog(ctx context.Context) (model.CatalogSummary, error) {
	summary := model.CatalogSummary{GrantsPerRole: make(map[string]int)}

	err := s.uow.WithinTx(ctx, func(st Stores) error {
		permissionIDs := make(map[string]int64, len(model.CatalogPermissions))
		for _, cp := range model.CatalogPermissions {
			p, created, err := st.Permissions.FindOrCreate(ctx, cp.Name, cp.Description)
			if err != nil {
				return fmt.Errorf("ensure permission %s: %w", cp.Name, err)
			}
			if created {
				s.log.Debug().Str("permission", p.Name).Msg("Permission created")
			}
			permissionIDs[p.Name] = p.ID
		}

		for _, cr := range model.CatalogRoles {
			role, _, err := st.Roles.FindOrCreate(ctx, cr.Name, cr.Description)
			if err != nil {
				return fmt.Errorf("ensure role %s: %w", cr.Name, err)
			}

			count, err := st.Grants.CountByRole(ctx, role.ID)
			if err != nil {
				return fmt.Errorf("count grants of %s: %w", role.Name, err)
			}

			if count == 0 {
				for _, name := range cr.Permissions {
					inserted, err := st.Grants.InsertIfAbsent(ctx, model.GrantKey{RoleID: role.ID, PermissionID: permissionIDs[name]})
					if err != nil {
						return fmt.Errorf("seed grant %s/%s: %w", role.Name, name, err)
					}
					if inserted {
						count++
					}
				}
				summary.SeededRoles = append(summary.SeededRoles, role.Name)
			}
			summary.GrantsPerRole[role.Name] = count
		}

		total, err := st.Permissions.Count(ctx)
		if err != nil {
			return err
		}
		roles, err := st.Roles.List(ctx)
		if err != nil {
			return err
		}
		summary.Permissions = total
		summary.Roles = len(roles)
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Catalog bootstrap failed")
		return model.CatalogSummary{}, asServiceError(err)
	}

	event := s.log.Info().
		Int("permissions", summary.Permissions).
		Int("roles", summary.Roles).
		Strs("seeded_roles", summary.SeededRoles)
	for role, n := range summary.GrantsPerRole {
		event = event.Int("grants_"+role, n)
	}
	event.Msg("Catalog ready")

	return summary, nil
}

// ReconcileCatalog grants every catalog permission missing from the catalog
// roles. It never revokes and returns the number of grants added per role.
func (s *CatalogSeeder) ReconcileCatalog(ctx context.Context) (map[string]int, error) {
	added := make(map[string]int)

	err := s.uow.WithinTx(ctx, func(st Stores) error {
		for _, cr := range model.CatalogRoles {
			role, _, err := st.Roles.FindOrCreate(ctx, cr.Name, cr.Description)
			if err != nil {
				return fmt.Errorf("ensure role %s: %w", cr.Name, err)
			}
			for _, name := range cr.Permissions {
				desc := catalogDescription(name)
				p, _, err := st.Permissions.FindOrCreate(ctx, name, desc)
				if err != nil {
					return fmt.Errorf("ensure permission %s: %w", name, err)
				}
				inserted, err := st.Grants.InsertIfAbsent(ctx, model.GrantKey{RoleID: role.ID, PermissionID: p.ID})
				if err != nil {
					return fmt.Errorf("grant %s/%s: %w", role.Name, name, err)
				}
				if inserted {
					added[role.Name]++
				}
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Catalog reconciliation failed")
		return nil, asServiceError(err)
	}

	s.log.Info().Interface("added", added).Msg("Catalog reconciled")
	return added, nil
}

func catalogDescription(name string) string {
	for _, cp := range model.CatalogPermissions {
		if cp.Name == name {
			return cp.Description
		}
	}
	return ""
}
