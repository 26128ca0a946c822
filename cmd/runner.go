package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytb/internal/repositories"
	"github.com/desertthunder/ytb/internal/services"
	"github.com/desertthunder/ytb/internal/shared"
	"github.com/desertthunder/ytb/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
	db     *sql.DB // preopened handle, used by tests
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
	DB     *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		db:     opts.DB,
	}
}

// database opens the configured database, or returns the preopened handle.
//
// The returned cleanup is a no-op for preopened handles.
func (r *Runner) database() (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	return db, func() { db.Close() }, nil
}

// components wires the repositories and bulk engine over an open database handle.
type components struct {
	accounts *repositories.AccountRepository
	actions  *repositories.ActionRepository
	ledger   *repositories.QuotaLedger
	engine   *tasks.BulkEngine
}

func (r *Runner) build(db *sql.DB) *components {
	accounts := repositories.NewAccountRepository(db)
	actions := repositories.NewActionRepository(db)
	guard := repositories.NewIdempotencyRepository(db)
	ledger := repositories.NewQuotaLedger(db, r.config.Quota, r.logger)

	resolver := services.NewOAuthProviderResolver(
		services.NewOAuthConfig(r.config.Credentials.YouTube),
		accounts,
		r.config.Credentials.YouTube.BaseURL,
	)

	engine := tasks.NewBulkEngine(tasks.BulkEngineOpts{
		DB:       db,
		Resolver: resolver,
		Actions:  actions,
		Guard:    guard,
		Ledger:   ledger,
		Logger:   r.logger,
	})

	return &components{
		accounts: accounts,
		actions:  actions,
		ledger:   ledger,
		engine:   engine,
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
