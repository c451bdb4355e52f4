package cli

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/thermognosis/thermopulse/pkg/data"
	"github.com/urfave/cli/v2"
)

var resetCmd = &cli.Command{
	Name:            "reset",
	Usage:           "Delete all imported data and start fresh",
	HideHelpCommand: true,
	Flags:           []cli.Flag{debugFlag},
	Action:          cmdReset,
}

func cmdReset(c *cli.Context) error {
	cfg := getConfig(c)

	if strings.HasPrefix(cfg.DSN, "postgres://") {
		return errors.New("reset supports local Sqlite stores only")
	}

	fmt.Printf("This will permanently delete all data in %s\n", cfg.DSN)
	fmt.Print("Are you sure? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("Aborted.")
		return nil
	}

	// close the DB before deleting the file
	if cfg.DB != nil {
		cfg.DB.Close()
		cfg.DB = nil
	}

	if err := os.Remove(cfg.DSN); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting database: %w", err)
	}

	slog.Info("database deleted", "path", cfg.DSN)

	// re-initialize empty database
	db, err := data.Open(cfg.DSN)
	if err != nil {
		return fmt.Errorf("re-opening database: %w", err)
	}
	if err := db.Init(); err != nil {
		return fmt.Errorf("re-initializing database: %w", err)
	}
	cfg.DB = db

	slog.Info("database re-initialized", "path", cfg.DSN)
	fmt.Println("Reset complete.")
	return nil
}
