// Package cli wires the command line surface: data import, pipeline runs,
// result queries and the local HTTP server.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/thermognosis/thermopulse/pkg/config"
	"github.com/thermognosis/thermopulse/pkg/data"
	"github.com/thermognosis/thermopulse/pkg/logging"
	urfave "github.com/urfave/cli/v2"
)

const (
	appName      = "thermopulse"
	homeDirName  = ".thermopulse"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	dbFlag = &urfave.StringFlag{
		Name:  "db",
		Usage: "Database DSN (Sqlite file path or postgres:// URL)",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	DSN   string
	Debug bool
	Conf  *config.Config
	DB    *data.DB
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:                 appName,
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Score, validate and rank thermoelectric transport measurements",
		Flags: []urfave.Flag{
			debugFlag,
			dbFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			importCmd,
			validateCmd,
			scoreCmd,
			gapsCmd,
			rankCmd,
			runCmd,
			queryCmd,
			resetCmd,
			serverCmd,
		},
		Before: func(c *urfave.Context) error {
			if c.Bool(debugFlag.Name) {
				logging.SetDefaultCLILogger("debug")
			}

			f := c.String(formatFlag.Name)
			if f == formatYAML || f == "yml" {
				outputFormat = formatYAML
			}

			home, created, err := config.GetOrCreateHomeDir(homeDirName)
			if err != nil {
				return fmt.Errorf("resolving home dir: %w", err)
			}
			if created {
				slog.Debug("created home dir", "path", home)
			}

			conf, err := config.ReadOrCreate(home)
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}

			dsn := c.String(dbFlag.Name)
			if dsn == "" {
				dsn = path.Join(home, data.DataFileName)
			}

			db, err := data.Open(dsn)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			if err := db.Init(); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}

			c.App.Metadata[appConfigKey] = &appConfig{
				DSN:   dsn,
				Debug: c.Bool(debugFlag.Name),
				Conf:  conf,
				DB:    db,
			}
			return nil
		},
		After: func(c *urfave.Context) error {
			if cfg, ok := c.App.Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}
