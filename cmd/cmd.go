// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/tunedeck/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand handles first-run setup of the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Where to write the configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the backend session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the backend session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the token pair",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("TUNEDECK_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Revoke the refresh token and clear the store",
				Action: r.AuthLogout,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
			{
				Name:  "status",
				Usage: "Show whether a session is stored and still accepted",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "local",
						Usage: "Only inspect the token store, do not call the backend",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// apiCommand handles raw authenticated calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Raw authenticated calls to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a path relative to the base URL, prints the response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST a JSON body to a path relative to the base URL",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

func pollFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Time between polls (defaults to jobs.interval_ms)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Give up waiting after this long (defaults to jobs.timeout_ms)",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Follow the job in an interactive view",
		},
	}
}

// jobsCommand handles backend jobs
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Enqueue and follow backend jobs",
		Commands: []*cli.Command{
			{
				Name:  "enqueue",
				Usage: "Submit a job",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "type",
						Aliases:  []string{"t"},
						Usage:    "Job type",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "payload",
						Usage: "JSON payload",
						Value: "{}",
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Attempts before the backend marks the job failed (0 = backend default)",
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Wait for the job to finish",
					},
				}, pollFlags()...),
				Action: r.JobsEnqueue,
			},
			{
				Name:  "status",
				Usage: "Show the current state of a job",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsStatus,
			},
			{
				Name:  "watch",
				Usage: "Poll a job until it settles",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  pollFlags(),
				Action: r.JobsWatch,
			},
			{
				Name:  "history",
				Usage: "List jobs recorded by this client",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to list",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only list jobs with this status",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsHistory,
			},
		},
	}
}

// searchCommand handles catalogue search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalogue for artists, albums and tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results to request",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output normalized JSON",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown or csv",
				Value:   formatter.FormatText,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the rendered results to a file instead of stdout",
			},
		},
		Action: r.Search,
	}
}
