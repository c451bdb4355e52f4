package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/thermognosis/thermopulse/pkg/thermo"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600
)

// Config is the persisted engine configuration. Every field has a
// working default, so a freshly created file is a runnable starting
// point that documents the tunable surface.
type Config struct {
	// Strict aborts a run on the first physical constraint violation
	// instead of masking the offending rows out.
	Strict bool `yaml:"strict"`

	// Deterministic forces the sequential reference executor; otherwise
	// groups fan out over Workers goroutines.
	Deterministic bool `yaml:"deterministic"`
	Workers       int  `yaml:"workers"`

	// Scoring selects the aggregation strategy: linear, multiplicative,
	// entropy or risk.
	Scoring       string    `yaml:"scoring"`
	Weights       []float64 `yaml:"weights"`
	LambdaEntropy float64   `yaml:"lambda_entropy"`
	GammaRisk     float64   `yaml:"gamma_risk"`

	// LambdaWF scales the Wiedemann-Franz consistency penalty in the
	// Bayesian likelihood.
	LambdaWF float64 `yaml:"lambda_wf"`

	Credibility thermo.CredibilityParams `yaml:"credibility"`
	Gaps        thermo.GapParams         `yaml:"gaps"`
	Rank        thermo.RankParams        `yaml:"rank"`
}

// Default returns the standard engine configuration.
func Default() *Config {
	return getDefaultConfig()
}

func getDefaultConfig() *Config {
	return &Config{
		Strict:        false,
		Deterministic: false,
		Workers:       0,
		Scoring:       "linear",
		Weights:       []float64{0.25, 0.25, 0.20, 0.15, 0.10, 0.05},
		LambdaEntropy: 0.1,
		GammaRisk:     1.0,
		LambdaWF:      1.0,
		Credibility:   thermo.DefaultCredibilityParams(),
		Gaps:          thermo.DefaultGapParams(),
		Rank:          thermo.DefaultRankParams(),
	}
}

// Save writes the config to its directory.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", configFileName)
	}
	return nil
}

// ReadOrCreate reads the engine config from a directory, writing the
// default one first when none exists.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dirPath, dirMode); err != nil {
			return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
		}
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(dirPath, getDefaultConfig()); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	j, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening config file: %s", path)
	}
	defer j.Close()

	b, err := io.ReadAll(j)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	return &c, nil
}

// GetOrCreateHomeDir returns the app directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get user home dir")
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, errors.Wrapf(err, "failed to create dir: %s", dir)
		}
		created = true
	}
	return dir, created, nil
}
