// package tasks implements the bulk mutation orchestrator.
//
// The core abstraction is BulkEngine, which composes the provider boundary,
// the action log, the idempotency guard and the quota ledger into the three
// bulk operations (add, remove, move). It is the only component that issues
// remote calls.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/repositories"
	"github.com/desertthunder/ytb/internal/services"
	"github.com/desertthunder/ytb/internal/shared"
	"golang.org/x/time/rate"
)

// Fixed quota cost per provider call class.
const (
	CostList   = 1
	CostInsert = 50
	CostDelete = 50
)

// defaultRateLimit paces remote calls within one bulk execution.
const defaultRateLimit = 5.0

// BulkEngine orchestrates bulk mutations against the remote provider.
//
// Each execution wraps its action log writes in one transaction, issues
// remote calls strictly sequentially, and reconciles quota cost after the
// transaction commits. Post-commit steps are best-effort: their failure is
// logged, never surfaced to the caller.
type BulkEngine struct {
	db       *sql.DB
	resolver services.ProviderResolver
	actions  *repositories.ActionRepository
	guard    *repositories.IdempotencyRepository
	ledger   *repositories.QuotaLedger
	logger   *log.Logger
	limiter  *rate.Limiter
	now      func() time.Time
}

// BulkEngineOpts contains dependencies for creating a BulkEngine.
type BulkEngineOpts struct {
	DB        *sql.DB
	Resolver  services.ProviderResolver
	Actions   *repositories.ActionRepository
	Guard     *repositories.IdempotencyRepository
	Ledger    *repositories.QuotaLedger
	Logger    *log.Logger
	RateLimit float64 // remote calls per second (default: 5)
}

// NewBulkEngine creates a new BulkEngine with the provided dependencies.
func NewBulkEngine(opts BulkEngineOpts) *BulkEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	return &BulkEngine{
		db:       opts.DB,
		resolver: opts.Resolver,
		actions:  opts.Actions,
		guard:    opts.Guard,
		ledger:   opts.Ledger,
		logger:   opts.Logger,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		now:      time.Now,
	}
}

// bulkOp parameterizes the shared execution skeleton for one operation kind.
//
// perItem issues the remote call(s) for one targeted entry and returns the
// recorded item plus the quota cost of the calls actually attempted. A
// failed item never stops processing of subsequent items.
type bulkOp struct {
	actionType models.ActionType
	count      int
	perItem    func(ctx context.Context, provider services.PlaylistProvider, position int) (*models.ActionItem, int)
}

// run executes the shared skeleton: resolve the provider, consult the
// idempotency guard, execute the per-item loop inside one transaction, then
// register the key and record quota cost post-commit.
//
// The returned bool reports an idempotent replay, in which case the summary
// comes from the action log and no remote call was made. The returned int is
// the quota cost of calls actually attempted; it is zero on replay.
func (e *BulkEngine) run(ctx context.Context, userID, key string, op bulkOp) (*models.ActionSummary, bool, int, error) {
	provider, err := e.resolver.Provider(ctx, userID)
	if err != nil {
		return nil, false, 0, err
	}

	if key != "" {
		actionID, present, err := e.guard.Check(key)
		if err != nil {
			return nil, false, 0, err
		}
		if present {
			summary, err := e.actions.Summary(actionID)
			if err == nil && summary.Action.UserID == userID {
				return summary, true, 0, nil
			}
			if err != nil && !errors.Is(err, shared.ErrActionNotFound) {
				// A storage fault, not a missing record: re-executing here
				// could double the remote calls, so fail the request.
				return nil, false, 0, fmt.Errorf("failed to load action for idempotency key: %w", err)
			}
			// Key present but the action is missing or owned by another
			// user: treated as a miss and re-executed.
			e.logger.Warn("idempotency key present without usable summary, re-executing",
				"key", key, "action", actionID, "user", userID)
		}
	}

	var (
		summary *models.ActionSummary
		cost    int
	)

	err = repositories.WithTx(e.db, func(tx *sql.Tx) error {
		action, err := e.actions.Create(tx, op.actionType, userID, shared.GenerateID())
		if err != nil {
			return err
		}

		items := make([]models.ActionItem, 0, op.count)
		for i := 0; i < op.count; i++ {
			if err := e.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter interrupted: %w", err)
			}

			item, itemCost := op.perItem(ctx, provider, i)
			cost += itemCost

			if err := e.actions.AppendItem(tx, action.ID, item); err != nil {
				return err
			}
			items = append(items, *item)
		}

		status, err := e.actions.Finalize(tx, action.ID)
		if err != nil {
			return err
		}

		action.Status = status
		summary = &models.ActionSummary{Action: *action, Items: items}
		return nil
	})
	if err != nil {
		// The transaction rolled back: no action row persists, and no cost
		// is recorded even though remote calls may already have happened.
		return nil, false, 0, err
	}

	e.afterCommit(userID, key, summary.Action.ID, cost)
	return summary, false, cost, nil
}

// afterCommit registers the idempotency key and writes the accumulated cost
// to the quota ledger, under the global scope and the user's own scope.
//
// Both steps are best-effort: a failure here cannot invalidate the committed
// action, so it is surfaced to operational logging only. The ledger may
// under-count true remote usage as a result.
func (e *BulkEngine) afterCommit(userID, key, actionID string, cost int) {
	if key != "" {
		if err := e.guard.Register(key, actionID); err != nil {
			e.logger.Warn("failed to register idempotency key", "key", key, "action", actionID, "error", err)
		}
	}

	day := e.now()
	if err := e.ledger.RecordUsage(repositories.GlobalScope, cost, day); err != nil {
		e.logger.Warn("failed to record global quota usage", "action", actionID, "cost", cost, "error", err)
	}
	if userID != "" {
		if err := e.ledger.RecordUsage(userID, cost, day); err != nil {
			e.logger.Warn("failed to record user quota usage", "action", actionID, "user", userID, "error", err)
		}
	}
}

// failureMessage renders a classified, human-readable message for a failed
// provider call, prefixed with its failure reason.
func failureMessage(err error) string {
	var perr *services.ProviderError
	if errors.As(err, &perr) {
		msg := perr.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", perr.Code)
		}
		return fmt.Sprintf("%s: %s", perr.Reason, msg)
	}
	return fmt.Sprintf("%s: %v", services.ReasonUnknown, err)
}
