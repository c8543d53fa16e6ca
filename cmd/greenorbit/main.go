package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"greenorbit/internal/config"
)

// annotation marking commands that run without a config file
const standalone = "standalone"

var (
	cfg        *config.Config
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "greenorbit",
	Short: "Pest and disease risk engine for monitored farms",
	Long:  "Classifies satellite and field sensor readings into crop health, pest and disease risk, and serves the GreenOrbit dashboard API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[standalone] == "true" {
			return nil
		}
		if err := config.LoadEnv(envFiles...); err != nil {
			return err
		}

		c, err := config.Load(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before the config (default .env)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
