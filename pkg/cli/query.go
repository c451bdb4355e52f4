package cli

import (
	"fmt"

	"github.com/thermognosis/thermopulse/pkg/data"
	"github.com/urfave/cli/v2"
)

const queryResultLimitDefault = 100

var (
	queryLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of results returned",
		Value: queryResultLimitDefault,
	}

	materialLikeFlag = &cli.StringFlag{
		Name:  "like",
		Usage: "Fuzzy material id search",
	}

	materialNameFlag = &cli.StringFlag{
		Name:     "name",
		Usage:    "Material id",
		Required: true,
	}

	runIDFlag = &cli.StringFlag{
		Name:     "run",
		Usage:    "Run id",
		Required: true,
	}

	queryCmd = &cli.Command{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "List data query operations",
		Subcommands: []*cli.Command{
			{
				Name:    "material",
				Usage:   "List material operations",
				Aliases: []string{"m"},
				Subcommands: []*cli.Command{
					{
						Name:    "list",
						Usage:   "List materials and their temperature coverage",
						Aliases: []string{"l"},
						Action:  cmdQueryMaterials,
						Flags: []cli.Flag{
							materialLikeFlag,
							queryLimitFlag,
						},
					},
					{
						Name:    "detail",
						Usage:   "Get all observations of a specific material",
						Aliases: []string{"d"},
						Action:  cmdQueryMaterial,
						Flags: []cli.Flag{
							materialNameFlag,
						},
					},
				},
			},
			{
				Name:    "papers",
				Usage:   "List papers and their credibility priors",
				Aliases: []string{"p"},
				Action:  cmdQueryPapers,
			},
			{
				Name:    "run",
				Usage:   "Get a run and its parameters",
				Aliases: []string{"r"},
				Action:  cmdQueryRun,
				Flags: []cli.Flag{
					runIDFlag,
				},
			},
			{
				Name:   "gaps",
				Usage:  "List the largest epistemic coverage gaps of a run",
				Action: cmdQueryGaps,
				Flags: []cli.Flag{
					runIDFlag,
					queryLimitFlag,
				},
			},
			{
				Name:   "ranks",
				Usage:  "List the material ranking of a run",
				Action: cmdQueryRanks,
				Flags: []cli.Flag{
					runIDFlag,
					queryLimitFlag,
				},
			},
			{
				Name:   "scores",
				Usage:  "List the per-observation scores of a run",
				Action: cmdQueryScores,
				Flags: []cli.Flag{
					runIDFlag,
				},
			},
		},
	}
)

func queryLimit(c *cli.Context) int {
	limit := c.Int(queryLimitFlag.Name)
	if limit <= 0 || limit > queryResultLimitDefault {
		limit = queryResultLimitDefault
	}
	return limit
}

func cmdQueryMaterials(c *cli.Context) error {
	cfg := getConfig(c)
	list, err := data.ListMaterials(cfg.DB, c.String(materialLikeFlag.Name), queryLimit(c))
	if err != nil {
		return fmt.Errorf("failed to query materials: %w", err)
	}
	return getEncoder().Encode(list)
}

func cmdQueryMaterial(c *cli.Context) error {
	val := c.String(materialNameFlag.Name)
	if val == "" {
		return cli.ShowSubcommandHelp(c)
	}

	cfg := getConfig(c)
	list, err := data.ListMaterialMeasurements(cfg.DB, val)
	if err != nil {
		return fmt.Errorf("failed to query material %s: %w", val, err)
	}
	return getEncoder().Encode(list)
}

func cmdQueryPapers(c *cli.Context) error {
	cfg := getConfig(c)
	list, err := data.ListPapers(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to query papers: %w", err)
	}
	return getEncoder().Encode(list)
}

func cmdQueryRun(c *cli.Context) error {
	cfg := getConfig(c)
	run, err := data.GetRun(cfg.DB, c.String(runIDFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to query run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", c.String(runIDFlag.Name))
	}
	return getEncoder().Encode(run)
}

func cmdQueryGaps(c *cli.Context) error {
	cfg := getConfig(c)
	list, err := data.TopGaps(cfg.DB, c.String(runIDFlag.Name), queryLimit(c))
	if err != nil {
		return fmt.Errorf("failed to query gaps: %w", err)
	}
	return getEncoder().Encode(list)
}

func cmdQueryRanks(c *cli.Context) error {
	cfg := getConfig(c)
	list, err := data.TopRanks(cfg.DB, c.String(runIDFlag.Name), queryLimit(c))
	if err != nil {
		return fmt.Errorf("failed to query ranks: %w", err)
	}
	return getEncoder().Encode(list)
}

func cmdQueryScores(c *cli.Context) error {
	cfg := getConfig(c)
	list, err := data.ListScores(cfg.DB, c.String(runIDFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to query scores: %w", err)
	}
	return getEncoder().Encode(list)
}
