package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/zacharyweiss/demandscheduling/config"
)

var (
	cfgPath     string
	cohortsPath string
)

var rootCmd = &cobra.Command{
	Use:           "demandsched",
	Short:         "EV cohort charging scheduler with price-elastic demand",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&cohortsPath, "cohorts", "", "cohort file (yaml or json), replaces configured cohorts")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file. A missing file is accepted when
// --cohorts is given, in which case defaults are used for everything else.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	switch {
	case err == nil:
	case cohortsPath != "" && errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cohortsPath != "" {
		cohorts, err := config.LoadCohorts(cohortsPath)
		if err != nil {
			return nil, fmt.Errorf("load cohorts: %w", err)
		}
		cfg.Cohorts = cohorts
	}
	if len(cfg.Cohorts) == 0 {
		return nil, errors.New("no cohorts configured")
	}
	return cfg, nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
