package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/log"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule DESCRIPTION FILE",
	Args:  cobra.ExactArgs(2),
	Short: "Prints the replay schedule of a control file",
	Long: `Prints when the rows of the control exchange file FILE are applied by the
testbench described in DESCRIPTION: the delay waited before every row and
its absolute time. The last row is applied after the replay loop ends.`,
	Run: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) {
	_, _, tb := buildTestbench(args[0])

	f, err := tb.File(args[1])
	if err != nil {
		log.Fatal("%s.\n", err)
	}
	events, err := f.Schedule()
	if err != nil {
		log.Fatal("%s.\n", err)
	}
	fmt.Println(scheduleTable(f, events))
}

func scheduleTable(f *exchange.File, events []exchange.Event) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Replay of %s (%s)", f.Name, f.Path()))
	t.AppendHeader(table.Row{"Row", "Delay", "Time", "Applied"})
	for _, e := range events {
		applied := "in loop"
		if e.Final {
			applied = "after loop"
		}
		t.AppendRow(table.Row{e.Row, e.Delay, e.Time, applied})
	}
	return t.Render()
}
