package repository

import (
	"context"

	"github.com/ctkuo2438/NUboard/internal/database"
)

// RegistrationRepository reads event registration counts. The table belongs to
// the events service and may not exist in this database.
type RegistrationRepository struct {
	db database.Querier
}

// NewRegistrationRepository creates a new RegistrationRepository.
func NewRegistrationRepository(db database.Querier) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// CountRegistrations returns the number of event registrations, or zero when the
// table is absent.
func (r *RegistrationRepository) CountRegistrations(ctx context.Context) (int64, error) {
	var present bool
	if err := r.db.QueryRow(ctx,
		"SELECT to_regclass('event_registrations') IS NOT NULL",
	).Scan(&present); err != nil {
		return 0, err
	}
	if !present {
		return 0, nil
	}

	var n int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM event_registrations").Scan(&n)
	return n, err
}
