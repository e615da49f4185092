package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"
)

// CurrentPolicy loads the singleton replenishment policy. A missing row is a
// configuration error, not a not-found.
func (s *Store) CurrentPolicy(ctx context.Context) (*models.ReplenishmentPolicy, error) {
	var policy models.ReplenishmentPolicy
	err := s.db.GetContext(ctx, &policy, "SELECT * FROM replenishment_policy WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("replenishment policy not configured: %w", apperrors.ErrConfiguration)
	}
	if err != nil {
		return nil, apperrors.Persistence("get replenishment policy", err)
	}
	return &policy, nil
}

// SavePolicy writes the singleton policy
func (s *Store) SavePolicy(ctx context.Context, policy *models.ReplenishmentPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO replenishment_policy (id, default_increment, budget_ceiling)
		VALUES (1, $1, $2)
		ON CONFLICT (id)
		DO UPDATE SET default_increment = EXCLUDED.default_increment,
		              budget_ceiling = EXCLUDED.budget_ceiling,
		              updated_at = NOW()
		RETURNING id, updated_at`

	err := s.db.GetContext(ctx, policy, query, policy.DefaultIncrement, policy.BudgetCeiling)
	return apperrors.Persistence("save replenishment policy", err)
}
