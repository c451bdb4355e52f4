package cli

import (
	"context"
	"fmt"

	"github.com/thermognosis/thermopulse/pkg/pipeline"
	"github.com/urfave/cli/v2"
)

var (
	strictFlag = &cli.BoolFlag{
		Name:  "strict",
		Usage: "Abort the run on the first physical constraint violation",
	}

	deterministicFlag = &cli.BoolFlag{
		Name:  "deterministic",
		Usage: "Force the sequential reference executor",
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of parallel workers (0 uses all CPUs)",
	}

	scoringFlag = &cli.StringFlag{
		Name:  "scoring",
		Usage: "Quality aggregation strategy [linear, multiplicative, entropy, risk]",
	}

	runCmd = &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Validate, score, and rank everything currently in the store",
		UsageText: `thermopulse run                          # full pipeline with configured defaults
   thermopulse run --strict                  # abort on any physics violation
   thermopulse run --scoring multiplicative  # weakest-link quality aggregation`,
		HideHelpCommand: true,
		Action:          cmdRun,
		Flags: []cli.Flag{
			strictFlag,
			deterministicFlag,
			workersFlag,
			scoringFlag,
		},
	}
)

func cmdRun(c *cli.Context) error {
	cfg := getConfig(c)

	conf := *cfg.Conf
	if c.IsSet(strictFlag.Name) {
		conf.Strict = c.Bool(strictFlag.Name)
	}
	if c.IsSet(deterministicFlag.Name) {
		conf.Deterministic = c.Bool(deterministicFlag.Name)
	}
	if c.IsSet(workersFlag.Name) {
		conf.Workers = c.Int(workersFlag.Name)
	}
	if c.IsSet(scoringFlag.Name) {
		conf.Scoring = c.String(scoringFlag.Name)
	}

	res, err := pipeline.New(cfg.DB, &conf).Run(context.Background())
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if err := getEncoder().Encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}
