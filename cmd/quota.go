package main

import (
	"context"
	"time"

	"github.com/desertthunder/ytb/internal/formatter"
	"github.com/urfave/cli/v3"
)

// Quota shows today's usage against the daily budget.
func (r *Runner) Quota(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	snapshot, err := r.build(db).ledger.TodayQuota(userID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshot, true)
	}

	r.writePlain("Quota for %s\n", userID)
	r.writePlain("Used:      %d units\n", snapshot.Used)
	r.writePlain("Remaining: %d units\n", snapshot.Remain)
	r.writePlain("Budget:    %d units\n", snapshot.Budget)
	r.writePlain("Resets at: %s\n", snapshot.ResetAt.Format(time.RFC3339))

	return nil
}

// ActionsList lists recent actions for a user.
func (r *Runner) ActionsList(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	limit := cmd.Int("limit")

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	actions, err := r.build(db).actions.Recent(userID, int(limit))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(actions, true)
	}

	if len(actions) == 0 {
		r.writePlain("No recorded actions for user %s\n", userID)
		return nil
	}

	for _, action := range actions {
		r.writePlain("%s  %-6s  %-7s  %s\n",
			action.CreatedAt.Format(time.RFC3339), action.Type, action.Status, action.ID)
	}

	return nil
}

// ActionsShow shows one action with its per-item results.
func (r *Runner) ActionsShow(ctx context.Context, cmd *cli.Command) error {
	actionID := cmd.String("id")

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := r.build(db).actions.Summary(actionID)
	if err != nil {
		return err
	}

	if format := cmd.String("export"); format != "" {
		path, err := formatter.WriteExport(summary, format, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Report saved to %s\n", path)
		return nil
	}

	return r.writeJSON(summary, true)
}
