package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zeusync/racer/internal/config"
)

func main() {
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "racer",
		Short:         "Racer trains and evaluates checkpoint-racing agents.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a YAML config file (defaults to $"+config.EnvVar+")")

	rootCmd.AddCommand(
		newRunCommand(&configPath),
		newServeCommand(&configPath),
		newCourseCommand(&configPath),
	)
	return rootCmd
}

// loadSettings reads the file named by the flag, else by RACER_CONFIG, else
// returns the defaults.
func loadSettings(path string) (config.Settings, error) {
	if path == "" {
		path = os.Getenv(config.EnvVar)
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
