package cli

import (
	"context"
	"fmt"

	"github.com/thermognosis/thermopulse/pkg/pipeline"
	"github.com/urfave/cli/v2"
)

var (
	binsFlag = &cli.IntFlag{
		Name:  "bins",
		Usage: "Number of histogram bins for coverage analysis",
	}

	domainMinFlag = &cli.Float64Flag{
		Name:  "min",
		Usage: "Lower bound of the temperature domain (K)",
	}

	domainMaxFlag = &cli.Float64Flag{
		Name:  "max",
		Usage: "Upper bound of the temperature domain (K)",
	}

	alphaFlag = &cli.Float64Flag{
		Name:  "alpha",
		Usage: "Citation weight strength",
	}

	betaFlag = &cli.Float64Flag{
		Name:  "beta",
		Usage: "Entropy penalty strength",
	}

	validateCmd = &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate stored measurements against the physical constraints",
		UsageText: `thermopulse validate            # flag invalid rows
   thermopulse validate --strict    # fail on the first violation`,
		HideHelpCommand: true,
		Action:          cmdValidate,
		Flags: []cli.Flag{
			strictFlag,
		},
	}

	scoreCmd = &cli.Command{
		Name:            "score",
		Aliases:         []string{"s"},
		Usage:           "Score quality and credibility of stored measurements",
		HideHelpCommand: true,
		Action:          cmdScore,
		Flags: []cli.Flag{
			scoringFlag,
		},
	}

	gapsCmd = &cli.Command{
		Name:            "gaps",
		Aliases:         []string{"g"},
		Usage:           "Detect epistemic coverage gaps in the temperature domain",
		HideHelpCommand: true,
		Action:          cmdGaps,
		Flags: []cli.Flag{
			binsFlag,
			domainMinFlag,
			domainMaxFlag,
		},
	}

	rankCmd = &cli.Command{
		Name:            "rank",
		Usage:           "Rank materials by citation-weighted, entropy-regularized merit",
		HideHelpCommand: true,
		Action:          cmdRank,
		Flags: []cli.Flag{
			alphaFlag,
			betaFlag,
		},
	}
)

// ValidationRow is the CLI view of one validated observation.
type ValidationRow struct {
	MaterialID string  `json:"material_id" yaml:"material_id"`
	PaperID    string  `json:"paper_id" yaml:"paper_id"`
	Temp       float64 `json:"temp" yaml:"temp"`
	ZT         float64 `json:"zt" yaml:"zt"`
	ZTErr      float64 `json:"zt_err" yaml:"zt_err"`
	Valid      bool    `json:"valid" yaml:"valid"`
}

func evaluate(c *cli.Context) (*pipeline.Evaluation, error) {
	cfg := getConfig(c)
	conf := *cfg.Conf
	if c.IsSet(strictFlag.Name) {
		conf.Strict = c.Bool(strictFlag.Name)
	}
	if c.IsSet(scoringFlag.Name) {
		conf.Scoring = c.String(scoringFlag.Name)
	}
	if c.IsSet(binsFlag.Name) {
		conf.Gaps.Bins = c.Int(binsFlag.Name)
	}
	if c.IsSet(domainMinFlag.Name) {
		conf.Gaps.DomainMin = c.Float64(domainMinFlag.Name)
	}
	if c.IsSet(domainMaxFlag.Name) {
		conf.Gaps.DomainMax = c.Float64(domainMaxFlag.Name)
	}
	if c.IsSet(alphaFlag.Name) {
		conf.Rank.Alpha = c.Float64(alphaFlag.Name)
	}
	if c.IsSet(betaFlag.Name) {
		conf.Rank.Beta = c.Float64(betaFlag.Name)
	}

	ev, err := pipeline.New(cfg.DB, &conf).Evaluate(context.Background())
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	return ev, nil
}

func cmdValidate(c *cli.Context) error {
	ev, err := evaluate(c)
	if err != nil {
		return err
	}

	rows := make([]*ValidationRow, len(ev.Measurements))
	for i, m := range ev.Measurements {
		rows[i] = &ValidationRow{
			MaterialID: m.MaterialID,
			PaperID:    m.PaperID,
			Temp:       m.Temp,
			ZT:         ev.State.ZT[i],
			ZTErr:      ev.State.ZTErr[i],
			Valid:      ev.State.Valid[i],
		}
	}
	return getEncoder().Encode(rows)
}

func cmdScore(c *cli.Context) error {
	ev, err := evaluate(c)
	if err != nil {
		return err
	}
	return getEncoder().Encode(ev.Scores)
}

func cmdGaps(c *cli.Context) error {
	ev, err := evaluate(c)
	if err != nil {
		return err
	}
	return getEncoder().Encode(ev.Gaps)
}

func cmdRank(c *cli.Context) error {
	ev, err := evaluate(c)
	if err != nil {
		return err
	}
	return getEncoder().Encode(ev.Ranks)
}
