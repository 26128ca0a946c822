package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/shared"
	"github.com/urfave/cli/v3"
)

// BulkAdd inserts videos into a playlist.
func (r *Runner) BulkAdd(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := r.build(db).engine.Add(ctx, userID, models.AddPayload{
		PlaylistID:     cmd.String("playlist"),
		VideoIDs:       cmd.StringSlice("video"),
		IdempotencyKey: cmd.String("key"),
	})
	if err != nil {
		return err
	}

	if result.Idempotent {
		r.writePlain("↻ Replayed earlier submission (no remote calls made)\n")
	}
	r.writePlain("✓ Added %d of %d videos (%s)\n", len(result.Created), len(result.Action.Items), result.Action.Action.Status)
	r.writePlain("Estimated quota: %d units\n", result.EstimatedQuota)

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// BulkRemove deletes playlist items.
func (r *Runner) BulkRemove(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	items, err := parseItemRefs(cmd.StringSlice("item"), false)
	if err != nil {
		return err
	}

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := r.build(db).engine.Remove(ctx, userID, models.RemovePayload{
		Items:          items,
		IdempotencyKey: cmd.String("key"),
	})
	if err != nil {
		return err
	}

	if result.Idempotent {
		r.writePlain("↻ Replayed earlier submission (no remote calls made)\n")
	}
	r.writePlain("✓ Removed %d items, %d failed (%s)\n", result.Removed, result.Failed, result.Action.Action.Status)
	r.writePlain("Estimated quota: %d units\n", result.EstimatedQuota)

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// BulkMove relocates playlist items into another playlist.
func (r *Runner) BulkMove(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	items, err := parseItemRefs(cmd.StringSlice("item"), true)
	if err != nil {
		return err
	}

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := r.build(db).engine.Move(ctx, userID, models.MovePayload{
		TargetPlaylistID: cmd.String("target"),
		Items:            items,
		IdempotencyKey:   cmd.String("key"),
	})
	if err != nil {
		return err
	}

	if result.Idempotent {
		r.writePlain("↻ Replayed earlier submission (no remote calls made)\n")
	}
	r.writePlain("✓ Moved %d of %d items (%s)\n", len(result.Moved), len(result.Action.Items), result.Action.Action.Status)
	r.writePlain("Estimated quota: %d units\n", result.EstimatedQuota)

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// parseItemRefs parses repeated --item values of the form playlistItemId[=videoId].
func parseItemRefs(values []string, videoRequired bool) ([]models.ItemRef, error) {
	items := make([]models.ItemRef, 0, len(values))
	for _, value := range values {
		itemID, videoID, found := strings.Cut(value, "=")
		if itemID == "" {
			return nil, fmt.Errorf("%w: empty playlist item ID in %q", shared.ErrInvalidFlag, value)
		}
		if videoRequired && (!found || videoID == "") {
			return nil, fmt.Errorf("%w: %q must be playlistItemId=videoId", shared.ErrInvalidFlag, value)
		}
		items = append(items, models.ItemRef{PlaylistItemID: itemID, VideoID: videoID})
	}
	return items, nil
}
