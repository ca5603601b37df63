package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/franksops/cloudsync/config"
)

var cfg = config.Default()
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cloudsync",
	Short: "Batch mover for objects between cloud storage locations",
	Long: "Moves large numbers of objects between object-storage locations, picking per job\n" +
		"between a direct endpoint-to-endpoint copy and a staged download-then-upload,\n" +
		"with bounded concurrency, automatic fallback, and a performance report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return nil
		}
		return cfg.LoadFromFile(cfgFile)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to YAML config file")
	pf.IntVar(&cfg.MaxParallel, "max-parallel", cfg.MaxParallel, "Worker ceiling for batches and jobs")
	pf.StringVar(&cfg.ToolPath, "tool", cfg.ToolPath, "External direct-copy tool executable")
	pf.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-invocation timeout for the copy tool")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
