package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/log"
	"github.com/daedaleanai/tbgen/simulator"
	"github.com/daedaleanai/tbgen/testbench"
	"github.com/daedaleanai/tbgen/util"
)

var runCmd = &cobra.Command{
	Use:   "run DESCRIPTION",
	Args:  cobra.ExactArgs(1),
	Short: "Simulates a testbench",
	Long: `Writes the input exchange files of the testbench described in DESCRIPTION,
generates its source, runs the configured simulator and prints the
contents of every output exchange file.`,
	Run: runRun,
}

var runSimulator string
var runMaxRows int

func init() {
	runCmd.Flags().StringVarP(&runSimulator, "simulator", "s", "", "Simulator to launch (overrides the configuration)")
	runCmd.Flags().IntVar(&runMaxRows, "max-rows", 20, "Maximum number of rows printed per output file, 0 prints all")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	cfg, desc, tb := buildTestbench(args[0])
	if runSimulator != "" {
		cfg.Simulator = runSimulator
	}

	sim, err := simulator.New(cfg.Simulator, cfg)
	if err != nil {
		log.Fatal("%s.\n", err)
	}
	for _, key := range util.SortedKeys(desc.Defines) {
		sim.Defines[key] = desc.Defines[key]
	}
	if log.Verbose {
		sim.Output = os.Stderr
	}

	sources, err := desc.SourcePaths()
	if err != nil {
		log.Fatal("%s.\n", err)
	}
	session := &testbench.Session{
		Testbench:    tb,
		Launcher:     sim,
		Dir:          cfg.WorkDir,
		Sources:      sources,
		PollAttempts: cfg.PollAttempts,
		PollInterval: cfg.PollInterval,
	}
	atexit.Register(session.Cleanup)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	progress := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	progress.Writer = os.Stderr
	progress.Suffix = fmt.Sprintf(" Simulating %s with %s", tb.Name, sim.Name)
	if !log.Verbose {
		progress.Start()
	}
	start := time.Now()
	results, err := session.Run(ctx)
	progress.Stop()
	if err != nil {
		log.Fatal("%s.\n", err)
	}
	log.Success("Simulated %s in %s.\n", tb.Name, time.Since(start).Round(time.Millisecond))

	for _, f := range tb.FilesOf(exchange.Out) {
		fmt.Println(resultTable(f, results[f.Name], runMaxRows))
	}
}

// resultTable renders the decoded rows of an output file.
func resultTable(f *exchange.File, rows [][]string, maxRows int) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%d rows)", f.Name, len(rows)))

	header := table.Row{"#"}
	for _, name := range f.ColumnNames() {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i, r := range rows {
		if maxRows > 0 && i == maxRows {
			t.AppendFooter(table.Row{"...", fmt.Sprintf("%d more", len(rows)-maxRows)})
			break
		}
		row := table.Row{i}
		for _, cell := range r {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	return t.Render()
}
