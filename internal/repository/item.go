package repository

import (
	"context"
	"errors"
	"fmt"

	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ItemRepository handles database operations for plan items
type ItemRepository struct {
	db *pgxpool.Pool
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create creates a new plan item
func (r *ItemRepository) Create(ctx context.Context, item *models.PlanItem) error {
	query := `
		INSERT INTO plan_items (id, plan_id, title, notes, assigned_participant_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		item.ID, item.PlanID, item.Title, item.Notes, item.AssignedParticipantID, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// GetByID retrieves a plan item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.PlanItem, error) {
	query := `
		SELECT id, plan_id, title, notes, assigned_participant_id, created_at
		FROM plan_items
		WHERE id = $1
	`
	var item models.PlanItem
	err := r.db.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.PlanID, &item.Title, &item.Notes, &item.AssignedParticipantID, &item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// ListByPlan retrieves all items of a plan
func (r *ItemRepository) ListByPlan(ctx context.Context, planID string) ([]models.PlanItem, error) {
	query := `
		SELECT id, plan_id, title, notes, assigned_participant_id, created_at
		FROM plan_items
		WHERE plan_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []models.PlanItem
	for rows.Next() {
		var item models.PlanItem
		if err := rows.Scan(
			&item.ID, &item.PlanID, &item.Title, &item.Notes, &item.AssignedParticipantID, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	return items, nil
}

// Update stores the editable fields of a plan item
func (r *ItemRepository) Update(ctx context.Context, item *models.PlanItem) error {
	query := `
		UPDATE plan_items
		SET title = $2, notes = $3, assigned_participant_id = $4
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, item.ID, item.Title, item.Notes, item.AssignedParticipantID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
