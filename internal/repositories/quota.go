package repositories

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/shared"
)

// GlobalScope is the shared usage counter charged by every bulk execution.
// Per-user scopes accumulate alongside it under the user's ID.
const GlobalScope = "global"

// rolloverZone is the fixed timezone whose midnight starts a new quota day.
// The provider resets daily budgets at midnight Pacific, DST included.
const rolloverZone = "America/Los_Angeles"

const (
	dayKeyLayout   = "2006-01-02"
	metaLastPrune  = "last_prune_date"
	metaLastVacuum = "last_vacuum_date"

	defaultBudget         = 10000
	defaultRetentionDays  = 35
	defaultVacuumInterval = 7

	// maintenanceInterval throttles retention pruning and compaction so the
	// sweep stays off the hot path regardless of call volume.
	maintenanceInterval = time.Hour
)

// QuotaLedger persists and reports daily API usage against a fixed budget.
//
// Usage rows are keyed by (calendar date in the rollover timezone, scope) and
// only ever incremented, so concurrent writers accumulate rather than
// overwrite. The ledger prunes rows past the retention window and compacts
// the store periodically, both throttled to at most once per hour.
type QuotaLedger struct {
	db     *sql.DB
	logger *log.Logger

	budget         int
	retentionDays  int
	vacuumInterval int
	loc            *time.Location

	now func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

// NewQuotaLedger creates a ledger over the given database handle.
//
// Zero or negative config values fall back to the defaults (budget 10000,
// retention 35 days, vacuum every 7 days).
func NewQuotaLedger(db *sql.DB, cfg shared.QuotaConfig, logger *log.Logger) *QuotaLedger {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	budget := cfg.DailyBudget
	if budget <= 0 {
		budget = defaultBudget
	}
	retention := cfg.RetentionDays
	if retention <= 0 {
		retention = defaultRetentionDays
	}
	vacuum := cfg.VacuumIntervalDays
	if vacuum <= 0 {
		vacuum = defaultVacuumInterval
	}

	loc, err := time.LoadLocation(rolloverZone)
	if err != nil {
		logger.Warn("failed to load rollover timezone, falling back to fixed offset", "zone", rolloverZone, "error", err)
		loc = time.FixedZone("PST", -8*60*60)
	}

	return &QuotaLedger{
		db:             db,
		logger:         logger,
		budget:         budget,
		retentionDays:  retention,
		vacuumInterval: vacuum,
		loc:            loc,
		now:            time.Now,
	}
}

// Budget returns the configured daily budget in quota units.
func (l *QuotaLedger) Budget() int {
	return l.budget
}

// DayKey returns the calendar date of t in the rollover timezone.
func (l *QuotaLedger) DayKey(t time.Time) string {
	return t.In(l.loc).Format(dayKeyLayout)
}

// ResetAt returns the next rollover instant after t: midnight of the
// following day in the rollover timezone.
func (l *QuotaLedger) ResetAt(t time.Time) time.Time {
	local := t.In(l.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, l.loc)
}

// RecordUsage adds units to the (day, scope) counter. Calls with units <= 0
// are no-ops. The increment is a blind additive upsert, safe under
// concurrent writers to the same key.
func (l *QuotaLedger) RecordUsage(scope string, units int, day time.Time) error {
	if units <= 0 {
		return nil
	}

	query := `
		INSERT INTO quota_usage (date_key, scope, used, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date_key, scope) DO UPDATE SET
			used = used + excluded.used,
			updated_at = excluded.updated_at
	`

	_, err := l.db.Exec(query, l.DayKey(day), scope, units, l.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	l.maintain()
	return nil
}

// Usage returns the units consumed under the given scope on the given day.
func (l *QuotaLedger) Usage(day time.Time, scope string) (int, error) {
	var used int
	err := l.db.QueryRow("SELECT used FROM quota_usage WHERE date_key = ? AND scope = ?", l.DayKey(day), scope).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query usage: %w", err)
	}
	return used, nil
}

// TodayQuota reports today's usage for the user against the daily budget.
//
// Per-user tracking defaults to the shared counter: when the user's own
// scope has no usage recorded, the global scope is reported instead.
func (l *QuotaLedger) TodayQuota(userID string) (*models.QuotaSnapshot, error) {
	now := l.now()

	used := 0
	if userID != "" {
		userUsed, err := l.Usage(now, userID)
		if err != nil {
			return nil, err
		}
		used = userUsed
	}

	if used == 0 {
		globalUsed, err := l.Usage(now, GlobalScope)
		if err != nil {
			return nil, err
		}
		used = globalUsed
	}

	remain := l.budget - used
	if remain < 0 {
		remain = 0
	}

	return &models.QuotaSnapshot{
		Used:    used,
		Remain:  remain,
		Budget:  l.budget,
		ResetAt: l.ResetAt(now),
	}, nil
}

// maintain runs retention pruning and periodic compaction, at most once per
// hour of wall-clock time. Failures are logged, never surfaced: maintenance
// must not fail the usage write that triggered it.
func (l *QuotaLedger) maintain() {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) < maintenanceInterval {
		l.mu.Unlock()
		return
	}
	l.lastSweep = now
	l.mu.Unlock()

	if err := l.prune(now); err != nil {
		l.logger.Warn("quota ledger prune failed", "error", err)
	}
	if err := l.vacuum(now); err != nil {
		l.logger.Warn("quota ledger vacuum failed", "error", err)
	}
}

// prune deletes usage rows older than the retention window, once per day.
func (l *QuotaLedger) prune(now time.Time) error {
	today := l.DayKey(now)

	last, err := l.meta(metaLastPrune)
	if err != nil {
		return err
	}
	if last == today {
		return nil
	}

	cutoff := now.In(l.loc).AddDate(0, 0, -l.retentionDays).Format(dayKeyLayout)
	if _, err := l.db.Exec("DELETE FROM quota_usage WHERE date_key < ?", cutoff); err != nil {
		return fmt.Errorf("failed to prune usage rows: %w", err)
	}

	return l.setMeta(metaLastPrune, today)
}

// vacuum compacts the store when the last pass is older than the configured
// interval.
func (l *QuotaLedger) vacuum(now time.Time) error {
	last, err := l.meta(metaLastVacuum)
	if err != nil {
		return err
	}

	if last != "" {
		lastDay, err := time.ParseInLocation(dayKeyLayout, last, l.loc)
		if err == nil && now.In(l.loc).Sub(lastDay) < time.Duration(l.vacuumInterval)*24*time.Hour {
			return nil
		}
	}

	if _, err := l.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum: %w", err)
	}

	return l.setMeta(metaLastVacuum, l.DayKey(now))
}

// meta reads a maintenance bookkeeping value, returning "" when unset.
func (l *QuotaLedger) meta(key string) (string, error) {
	var value string
	err := l.db.QueryRow("SELECT value FROM quota_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read quota meta %s: %w", key, err)
	}
	return value, nil
}

// setMeta upserts a maintenance bookkeeping value.
func (l *QuotaLedger) setMeta(key, value string) error {
	query := `
		INSERT INTO quota_meta (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := l.db.Exec(query, key, value, l.now().UTC()); err != nil {
		return fmt.Errorf("failed to write quota meta %s: %w", key, err)
	}
	return nil
}
