// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, bulkCommand, quotaCommand, actionsCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configFlag is shared by every command that reads config.toml.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// userFlag identifies the account a command acts on behalf of.
func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "User ID the command acts on behalf of",
		Value:   "default",
	}
}

// setupCommand handles database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles OAuth authentication operations.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage YouTube authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with YouTube using OAuth2",
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check whether stored credentials exist for a user",
				Flags:  []cli.Flag{userFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// bulkCommand handles bulk playlist mutations.
func bulkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bulk",
		Usage: "Bulk playlist mutations",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Insert videos into a playlist",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Target playlist ID",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "video",
						Aliases:  []string{"v"},
						Usage:    "Video ID to insert (repeatable)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "key",
						Usage: "Idempotency key for safe retries",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.BulkAdd,
			},
			{
				Name:  "remove",
				Usage: "Delete playlist items",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringSliceFlag{
						Name:     "item",
						Aliases:  []string{"i"},
						Usage:    "Playlist item as playlistItemId[=videoId] (repeatable)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "key",
						Usage: "Idempotency key for safe retries",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.BulkRemove,
			},
			{
				Name:  "move",
				Usage: "Relocate playlist items into another playlist",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:     "target",
						Aliases:  []string{"t"},
						Usage:    "Destination playlist ID",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "item",
						Aliases:  []string{"i"},
						Usage:    "Playlist item as playlistItemId=videoId (repeatable)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "key",
						Usage: "Idempotency key for safe retries",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.BulkMove,
			},
		},
	}
}

// quotaCommand reports today's usage against the daily budget.
func quotaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "Show today's quota usage",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Quota,
	}
}

// actionsCommand inspects the recorded action log.
func actionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "actions",
		Usage: "Inspect recorded bulk actions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent actions for a user",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of actions to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ActionsList,
			},
			{
				Name:  "show",
				Usage: "Show one action with its per-item results",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Action ID to show",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "export",
						Usage: "Export report format (csv, md, text)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path for the exported report",
					},
				},
				Action: r.ActionsShow,
			},
		},
	}
}

// serveCommand runs the HTTP API server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API server",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}
