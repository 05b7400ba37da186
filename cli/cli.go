package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/pipewatch/pipewatch/azdo"
	"github.com/pipewatch/pipewatch/engine"
)

const AppName = "pipewatch"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Trigger Azure DevOps pipeline runs and analyze their failures",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
				&cli.StringFlag{
					Name:  "config",
					Usage: "Path to config file (default: ./pipewatch.toml, then ~/.config/pipewatch/config.toml)",
				},
				&cli.StringFlag{
					Name:  "org",
					Usage: "Organization URL (e.g. https://dev.azure.com/myorg)",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Trigger a pipeline run, wait for completion and report the outcome",
		Action: app.run,
		Flags: append(targetFlags(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the run to complete",
				Value: 5 * time.Minute,
			},
			&cli.StringSliceFlag{
				Name:  "var",
				Usage: "Pipeline variable as key=value (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "template-param",
				Usage: "Template parameter as key=value (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "skip-stage",
				Usage: "Stage to skip in this run (repeatable)",
			},
			&cli.StringFlag{
				Name:  "branch",
				Usage: "Branch to run against (e.g. main or refs/heads/main)",
			},
			&cli.BoolFlag{
				Name:  "no-record",
				Usage: "Don't record the outcome to local history",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "wait",
		Usage:  "Wait for an existing run to complete and report the outcome",
		Action: app.wait,
		Flags: append(targetFlags(),
			&cli.IntFlag{
				Name:     "run",
				Usage:    "Run ID to wait for",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the run to complete",
				Value: 5 * time.Minute,
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "timeline",
		Usage:  "Show the execution tree of a run",
		Action: app.timeline,
		Flags: append(targetFlags(),
			&cli.IntFlag{
				Name:     "run",
				Usage:    "Run ID to inspect",
				Required: true,
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "failures",
		Usage:  "Classify the failures of a run and show root-cause logs",
		Action: app.failures,
		Flags: append(targetFlags(),
			&cli.IntFlag{
				Name:     "run",
				Usage:    "Run ID to analyze",
				Required: true,
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "logs",
		Usage:  "Show logs for the failed steps of a run",
		Action: app.logs,
		Flags: append(targetFlags(),
			&cli.IntFlag{
				Name:     "run",
				Usage:    "Run ID to inspect",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "step",
				Usage: "Only steps whose name contains this substring (case-insensitive)",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previously recorded outcomes",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Filter by project name",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show a recorded outcome from history",
		ArgsUsage: "[ID|INDEX]",
		Action:    app.show,
		Description: `Show a recorded outcome from history.

Arguments:
  0           Show last recorded outcome (default)
  -1          Show 2nd last recorded outcome
  -2          Show 3rd last recorded outcome
  <hex-id>    Show outcome matching the hex ID prefix

Examples:
  pipewatch show           # Show last outcome
  pipewatch show -1        # Show 2nd last outcome
  pipewatch show abc123    # Show outcome with ID starting with abc123`,
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

// targetFlags are the flags shared by all commands that talk to the
// remote organization.
func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "project",
			Aliases: []string{"p"},
			Usage:   "Project name (overrides config)",
		},
		&cli.IntFlag{
			Name:  "pipeline",
			Usage: "Pipeline definition ID (overrides config)",
		},
		&cli.DurationFlag{
			Name:  "poll-interval",
			Usage: "Delay between run-state polls (overrides config)",
		},
		&cli.IntFlag{
			Name:  "max-lines",
			Usage: "Maximum log lines per failed step (overrides config)",
		},
	}
}

// setup loads configuration and builds an engine on a live client.
// Command flags win over config file values.
func (a *App) setup(ctx *cli.Context) (*engine.Engine, Config, error) {
	cfgPath := ctx.String("config")
	if cfgPath == "" {
		cfgPath = DefaultConfigPath()
	}
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return nil, Config{}, err
	}
	if v := ctx.String("org"); v != "" {
		cfg.OrganizationURL = v
	}
	if v := ctx.String("project"); v != "" {
		cfg.Project = v
	}
	if v := ctx.Int("pipeline"); v > 0 {
		cfg.Pipeline = v
	}
	if v := ctx.Duration("poll-interval"); v > 0 {
		cfg.PollIntervalSeconds = int(v / time.Second)
	}
	if v := ctx.Int("max-lines"); v > 0 {
		cfg.MaxLogLines = v
	}

	if cfg.OrganizationURL == "" {
		return nil, Config{}, fmt.Errorf("no organization URL configured: set organization_url, PIPEWATCH_ORG_URL or --org")
	}
	if cfg.PAT == "" {
		return nil, Config{}, fmt.Errorf("no personal access token configured: set PIPEWATCH_PAT or AZURE_DEVOPS_PAT")
	}

	client, err := azdo.New(a.logger, cfg.OrganizationURL, cfg.PAT,
		azdo.WithRetryConfig(cfg.RetryConfig()))
	if err != nil {
		return nil, Config{}, err
	}

	var opts []engine.Option
	if d := cfg.PollInterval(); d > 0 {
		opts = append(opts, engine.WithPollInterval(d))
	}
	if cfg.MaxLogLines > 0 {
		opts = append(opts, engine.WithMaxLogLines(cfg.MaxLogLines))
	}
	if cfg.LogConcurrency > 0 {
		opts = append(opts, engine.WithLogConcurrency(cfg.LogConcurrency))
	}

	return engine.New(a.logger, client, opts...), cfg, nil
}

// target resolves the project and pipeline for a command, erroring on
// anything missing.
func target(cfg Config, needPipeline bool) (string, int, error) {
	if cfg.Project == "" {
		return "", 0, fmt.Errorf("no project configured: set project, PIPEWATCH_PROJECT or --project")
	}
	if needPipeline && cfg.Pipeline <= 0 {
		return "", 0, fmt.Errorf("no pipeline configured: set pipeline or --pipeline")
	}
	return cfg.Project, cfg.Pipeline, nil
}
