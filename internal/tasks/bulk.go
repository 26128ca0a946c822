package tasks

import (
	"context"

	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/services"
)

// Add inserts each video into the target playlist, one remote call per
// video, and returns the created entries for items that succeeded.
func (e *BulkEngine) Add(ctx context.Context, userID string, payload models.AddPayload) (*models.AddResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	op := bulkOp{
		actionType: models.ActionAdd,
		count:      len(payload.VideoIDs),
		perItem: func(ctx context.Context, provider services.PlaylistProvider, position int) (*models.ActionItem, int) {
			videoID := payload.VideoIDs[position]
			item := &models.ActionItem{
				Position: position,
				Type:     models.ActionAdd,
				Status:   models.ItemSuccess,
				VideoID:  videoID,
			}

			itemID, err := provider.Insert(ctx, payload.PlaylistID, videoID)
			if err != nil {
				item.Status = models.ItemFailed
				item.ErrorMessage = failureMessage(err)
			} else {
				item.TargetPlaylistItemID = itemID
			}

			return item, CostInsert
		},
	}

	summary, idempotent, cost, err := e.run(ctx, userID, payload.IdempotencyKey, op)
	if err != nil {
		return nil, err
	}

	return shapeAdd(summary, idempotent, cost), nil
}

// Remove deletes each targeted playlist item and reports success and failure
// counts.
func (e *BulkEngine) Remove(ctx context.Context, userID string, payload models.RemovePayload) (*models.RemoveResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	op := bulkOp{
		actionType: models.ActionRemove,
		count:      len(payload.Items),
		perItem: func(ctx context.Context, provider services.PlaylistProvider, position int) (*models.ActionItem, int) {
			target := payload.Items[position]
			item := &models.ActionItem{
				Position:             position,
				Type:                 models.ActionRemove,
				Status:               models.ItemSuccess,
				VideoID:              target.VideoID,
				SourcePlaylistItemID: target.PlaylistItemID,
			}

			if err := provider.Delete(ctx, target.PlaylistItemID); err != nil {
				item.Status = models.ItemFailed
				item.ErrorMessage = failureMessage(err)
			}

			return item, CostDelete
		},
	}

	summary, idempotent, cost, err := e.run(ctx, userID, payload.IdempotencyKey, op)
	if err != nil {
		return nil, err
	}

	return shapeRemove(summary, idempotent, cost), nil
}

// Move relocates each item into the target playlist by deleting it from its
// source and re-inserting its video, in that order.
//
// An item counts as moved only when both legs succeed. When the delete
// succeeds and the insert fails the item is recorded as failed and the video
// is gone from the source without being re-added; this flow performs no
// compensation, so the loss is visible in the action log rather than healed.
func (e *BulkEngine) Move(ctx context.Context, userID string, payload models.MovePayload) (*models.MoveResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	op := bulkOp{
		actionType: models.ActionMove,
		count:      len(payload.Items),
		perItem: func(ctx context.Context, provider services.PlaylistProvider, position int) (*models.ActionItem, int) {
			target := payload.Items[position]
			item := &models.ActionItem{
				Position:             position,
				Type:                 models.ActionMove,
				Status:               models.ItemFailed,
				VideoID:              target.VideoID,
				SourcePlaylistItemID: target.PlaylistItemID,
			}

			if err := provider.Delete(ctx, target.PlaylistItemID); err != nil {
				item.ErrorMessage = failureMessage(err)
				return item, CostDelete
			}

			itemID, err := provider.Insert(ctx, payload.TargetPlaylistID, target.VideoID)
			if err != nil {
				item.ErrorMessage = failureMessage(err)
				return item, CostDelete + CostInsert
			}

			item.Status = models.ItemSuccess
			item.TargetPlaylistItemID = itemID
			return item, CostDelete + CostInsert
		},
	}

	summary, idempotent, cost, err := e.run(ctx, userID, payload.IdempotencyKey, op)
	if err != nil {
		return nil, err
	}

	return shapeMove(summary, idempotent, cost), nil
}

// shapeAdd builds the typed add response from an action summary.
//
// Fresh executions report the accumulated cost of calls actually attempted.
// On idempotent replay the estimated quota is recomputed as item count times
// the fixed insert cost, not the originally recorded true cost.
func shapeAdd(summary *models.ActionSummary, idempotent bool, cost int) *models.AddResult {
	result := &models.AddResult{
		Action:         *summary,
		Created:        []models.CreatedItem{},
		EstimatedQuota: cost,
		Idempotent:     idempotent,
	}

	for _, item := range summary.Items {
		if item.Status == models.ItemSuccess {
			result.Created = append(result.Created, models.CreatedItem{
				PlaylistItemID: item.TargetPlaylistItemID,
				VideoID:        item.VideoID,
			})
		}
	}

	if idempotent {
		result.EstimatedQuota = len(summary.Items) * CostInsert
	}

	return result
}

// shapeRemove builds the typed remove response from an action summary.
func shapeRemove(summary *models.ActionSummary, idempotent bool, cost int) *models.RemoveResult {
	result := &models.RemoveResult{
		Action:         *summary,
		EstimatedQuota: cost,
		Idempotent:     idempotent,
	}

	for _, item := range summary.Items {
		if item.Status == models.ItemSuccess {
			result.Removed++
		} else {
			result.Failed++
		}
	}

	if idempotent {
		result.EstimatedQuota = len(summary.Items) * CostDelete
	}

	return result
}

// shapeMove builds the typed move response from an action summary. Only
// items whose delete and insert legs both succeeded appear in Moved.
func shapeMove(summary *models.ActionSummary, idempotent bool, cost int) *models.MoveResult {
	result := &models.MoveResult{
		Action:         *summary,
		Moved:          []models.MovedItem{},
		EstimatedQuota: cost,
		Idempotent:     idempotent,
	}

	for _, item := range summary.Items {
		if item.Status == models.ItemSuccess && item.SourcePlaylistItemID != "" && item.TargetPlaylistItemID != "" {
			result.Moved = append(result.Moved, models.MovedItem{
				From:    models.ItemEndpoint{PlaylistItemID: item.SourcePlaylistItemID},
				To:      models.ItemEndpoint{PlaylistItemID: item.TargetPlaylistItemID},
				VideoID: item.VideoID,
			})
		}
	}

	if idempotent {
		result.EstimatedQuota = len(summary.Items) * (CostDelete + CostInsert)
	}

	return result
}
