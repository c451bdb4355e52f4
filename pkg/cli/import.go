package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/thermognosis/thermopulse/pkg/data"
	"github.com/thermognosis/thermopulse/pkg/ingest"
	"github.com/thermognosis/thermopulse/pkg/net"
	"github.com/urfave/cli/v2"
)

var (
	measurementsFlag = &cli.StringSliceFlag{
		Name:    "measurements",
		Aliases: []string{"m"},
		Usage:   "Path to a measurements CSV file (can be specified multiple times)",
	}

	papersFlag = &cli.StringSliceFlag{
		Name:    "papers",
		Aliases: []string{"p"},
		Usage:   "Path to a papers CSV file (can be specified multiple times)",
	}

	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "URL of a measurements CSV to download and import",
	}

	papersURLFlag = &cli.StringFlag{
		Name:  "papers-url",
		Usage: "URL of a papers JSON endpoint to fetch and import",
	}

	importCmd = &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import measurement and paper data from CSV files or a URL",
		UsageText: `thermopulse import --measurements data.csv --papers refs.csv   # import local files
   thermopulse import --url https://example.com/transport.csv      # download and import
   thermopulse import -m a.csv -m b.csv                            # import multiple files`,
		HideHelpCommand: true,
		Action:          cmdImport,
		Flags: []cli.Flag{
			measurementsFlag,
			papersFlag,
			urlFlag,
			papersURLFlag,
		},
	}
)

// ImportResult summarizes one import invocation.
type ImportResult struct {
	Files        []string `json:"files,omitempty" yaml:"files,omitempty"`
	Measurements int      `json:"measurements" yaml:"measurements"`
	Papers       int      `json:"papers" yaml:"papers"`
	Duration     string   `json:"duration" yaml:"duration"`
}

func cmdImport(c *cli.Context) error {
	start := time.Now()
	mPaths := c.StringSlice(measurementsFlag.Name)
	pPaths := c.StringSlice(papersFlag.Name)
	url := c.String(urlFlag.Name)
	papersURL := c.String(papersURLFlag.Name)

	if len(mPaths) == 0 && len(pPaths) == 0 && url == "" && papersURL == "" {
		return cli.ShowSubcommandHelp(c)
	}

	cfg := getConfig(c)
	res := &ImportResult{}

	if url != "" {
		tmp := filepath.Join(os.TempDir(), fmt.Sprintf("thermopulse-import-%d.csv", time.Now().UnixNano()))
		slog.Info("downloading measurements", "url", url)
		if err := net.Download(url, tmp); err != nil {
			return fmt.Errorf("failed to download %s: %w", url, err)
		}
		defer os.Remove(tmp)
		mPaths = append(mPaths, tmp)
	}

	for _, p := range mPaths {
		slog.Info("importing measurements", "path", p)
		list, err := ingest.ReadMeasurementsFile(p)
		if err != nil {
			return fmt.Errorf("failed to read measurements from %s: %w", p, err)
		}
		if err := data.SaveMeasurements(cfg.DB, list); err != nil {
			return fmt.Errorf("failed to save measurements from %s: %w", p, err)
		}
		res.Files = append(res.Files, p)
		res.Measurements += len(list)
	}

	for _, p := range pPaths {
		slog.Info("importing papers", "path", p)
		list, err := ingest.ReadPapersFile(p)
		if err != nil {
			return fmt.Errorf("failed to read papers from %s: %w", p, err)
		}
		if err := data.SavePapers(cfg.DB, list); err != nil {
			return fmt.Errorf("failed to save papers from %s: %w", p, err)
		}
		res.Files = append(res.Files, p)
		res.Papers += len(list)
	}

	if papersURL != "" {
		slog.Info("fetching papers", "url", papersURL)
		n, err := importPapersURL(cfg.DB, papersURL)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, papersURL)
		res.Papers += n
	}

	res.Duration = time.Since(start).String()

	if err := getEncoder().Encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}

// importPapersURL fetches a JSON array of papers and saves it.
func importPapersURL(db *data.DB, url string) (int, error) {
	var papers []*data.Paper
	if err := net.GetJSON(url, &papers); err != nil {
		return 0, fmt.Errorf("failed to fetch papers from %s: %w", url, err)
	}
	if err := data.SavePapers(db, papers); err != nil {
		return 0, fmt.Errorf("failed to save papers from %s: %w", url, err)
	}
	return len(papers), nil
}
