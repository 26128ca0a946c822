package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/shared"
)

// ActionRepository persists actions and their items.
//
// Write methods take a [Queryer] so they run on the transaction owned by the
// enclosing bulk execution; reads go through the repository's own handle.
type ActionRepository struct {
	db *sql.DB
}

// NewActionRepository creates a new ActionRepository with the given database connection
func NewActionRepository(db *sql.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// Create inserts a new pending action with the provided ID.
func (r *ActionRepository) Create(q Queryer, actionType models.ActionType, userID, id string) (*models.Action, error) {
	sequence, err := NextSequence(q, "actions")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	if id == "" {
		id = shared.GenerateID()
	}

	now := time.Now().UTC()
	action := &models.Action{
		ID:        id,
		Sequence:  sequence,
		Type:      actionType,
		UserID:    userID,
		Status:    models.ActionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO actions (id, sequence, type, user_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.Exec(query, action.ID, action.Sequence, action.Type, action.UserID, action.Status, action.CreatedAt, action.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert action: %w", err)
	}

	return action, nil
}

// AppendItem records the outcome of one targeted entry.
//
// Returns [shared.ErrActionNotFound] if the action does not exist. Items are
// immutable once appended.
func (r *ActionRepository) AppendItem(q Queryer, actionID string, item *models.ActionItem) error {
	var exists bool
	if err := q.QueryRow("SELECT EXISTS(SELECT 1 FROM actions WHERE id = ?)", actionID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check action: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", shared.ErrActionNotFound, actionID)
	}

	item.ActionID = actionID
	item.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO action_items (action_id, position, type, status, video_id, source_playlist_item_id, target_playlist_item_id, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := q.Exec(query,
		item.ActionID,
		item.Position,
		item.Type,
		item.Status,
		item.VideoID,
		nullable(item.SourcePlaylistItemID),
		nullable(item.TargetPlaylistItemID),
		nullable(item.ErrorMessage),
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert action item: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		item.ID = id
	}

	return nil
}

// Finalize derives and stores the action's final status from its items:
// success when every item succeeded, failed when none did (including the
// zero-item case), partial otherwise.
func (r *ActionRepository) Finalize(q Queryer, actionID string) (models.ActionStatus, error) {
	var total, succeeded, failed int
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM action_items
		WHERE action_id = ?
	`
	if err := q.QueryRow(query, actionID).Scan(&total, &succeeded, &failed); err != nil {
		return "", fmt.Errorf("failed to count action items: %w", err)
	}

	status := models.ActionPartial
	switch {
	case succeeded == 0:
		status = models.ActionFailed
	case failed == 0 && succeeded == total:
		status = models.ActionSuccess
	}

	result, err := q.Exec("UPDATE actions SET status = ?, updated_at = ? WHERE id = ?", status, time.Now().UTC(), actionID)
	if err != nil {
		return "", fmt.Errorf("failed to finalize action: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return "", fmt.Errorf("%w: %s", shared.ErrActionNotFound, actionID)
	}

	return status, nil
}

// Summary retrieves an action with all of its items in append order.
//
// Returns [shared.ErrActionNotFound] when the action does not exist.
func (r *ActionRepository) Summary(actionID string) (*models.ActionSummary, error) {
	var action models.Action
	query := `
		SELECT id, sequence, type, user_id, status, created_at, updated_at
		FROM actions
		WHERE id = ?
	`

	err := r.db.QueryRow(query, actionID).Scan(
		&action.ID,
		&action.Sequence,
		&action.Type,
		&action.UserID,
		&action.Status,
		&action.CreatedAt,
		&action.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrActionNotFound, actionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan action: %w", err)
	}

	items, err := r.items(actionID)
	if err != nil {
		return nil, err
	}

	return &models.ActionSummary{Action: action, Items: items}, nil
}

// Recent lists the latest finalized actions for a user, newest first.
func (r *ActionRepository) Recent(userID string, limit int) ([]models.Action, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, sequence, type, user_id, status, created_at, updated_at
		FROM actions
		WHERE user_id = ?
		ORDER BY sequence DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []models.Action
	for rows.Next() {
		var action models.Action
		err := rows.Scan(&action.ID, &action.Sequence, &action.Type, &action.UserID, &action.Status, &action.CreatedAt, &action.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return actions, nil
}

// items loads all items for an action ordered by position.
func (r *ActionRepository) items(actionID string) ([]models.ActionItem, error) {
	query := `
		SELECT id, action_id, position, type, status, video_id, source_playlist_item_id, target_playlist_item_id, error_message, created_at
		FROM action_items
		WHERE action_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, actionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action items: %w", err)
	}
	defer rows.Close()

	var items []models.ActionItem
	for rows.Next() {
		var (
			item         models.ActionItem
			sourceItemID sql.NullString
			targetItemID sql.NullString
			errorMessage sql.NullString
		)

		err := rows.Scan(
			&item.ID,
			&item.ActionID,
			&item.Position,
			&item.Type,
			&item.Status,
			&item.VideoID,
			&sourceItemID,
			&targetItemID,
			&errorMessage,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action item: %w", err)
		}

		item.SourcePlaylistItemID = sourceItemID.String
		item.TargetPlaylistItemID = targetItemID.String
		item.ErrorMessage = errorMessage.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// nullable converts an empty string to a SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
