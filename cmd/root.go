package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/daedaleanai/tbgen/config"
	"github.com/daedaleanai/tbgen/log"
	"github.com/daedaleanai/tbgen/testbench"
)

var rootCmd = &cobra.Command{
	Use:   "tbgen",
	Short: "HDL testbench generator",
	Long: `tbgen generates HDL testbenches from YAML descriptions and exchanges
sampled data and timestamped control events with the simulator through
tab separated files.`,
	SilenceUsage: true,
}

var workDir string

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&log.Verbose, "verbose", "v", false, "Print debug output")
	rootCmd.PersistentFlags().StringVarP(&workDir, "work-dir", "w", "", "Directory of exchange files and generated sources (overrides the configuration)")
	if rootCmd.Execute() != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// buildTestbench loads a description and assembles its testbench in the working
// directory.
func buildTestbench(path string) (config.Config, *testbench.Description, *testbench.Testbench) {
	cfg := config.GetConfig()
	if workDir != "" {
		cfg.WorkDir = workDir
	}

	desc, err := testbench.LoadDescription(path)
	if err != nil {
		log.Fatal("%s.\n", err)
	}
	log.Debug("Loaded description %s\n", desc)

	tb, err := desc.Build(cfg.WorkDir, testbench.Options{Timescale: cfg.Timescale})
	if err != nil {
		log.Fatal("Failed to build the testbench of %s: %s.\n", desc.Dut, err)
	}
	if cfg.Preserve {
		for _, f := range tb.Files {
			f.Preserve = true
		}
	}
	return cfg, desc, tb
}
