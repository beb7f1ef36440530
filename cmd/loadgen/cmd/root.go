package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
)

const envPrefix = "LOADGEN"

var rootCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Synthetic load generator for the metrics ingestion service",
	Long: `
Synthetic load generator for the metrics ingestion service.

Virtual users are spawned per profile (device, admin), each repeatedly
drawing a weighted task, issuing one HTTP request and sleeping a think time.

Every setting can come from the run config file, a flag, or a LOADGEN_*
environment variable (e.g. LOADGEN_TARGET, LOADGEN_SPAWN_RATE).
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetDefault(logger.NewWithFormat(viper.GetString("log_format"), viper.GetString("log_level"), os.Stderr))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
