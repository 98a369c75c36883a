package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/log"
	"github.com/daedaleanai/tbgen/util"
)

var generateCmd = &cobra.Command{
	Use:   "generate DESCRIPTION",
	Args:  cobra.ExactArgs(1),
	Short: "Generates the source of a testbench",
	Long: `Generates the HDL source of the testbench described in DESCRIPTION.
The source is printed to stdout unless an output file is given. With
--write-inputs the input exchange files are written to the working
directory as well, ready for a manual simulation.`,
	Run: runGenerate,
}

var generateOutput string
var generateWriteInputs bool

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "File where the testbench will be stored")
	generateCmd.Flags().BoolVar(&generateWriteInputs, "write-inputs", false, "Write the input exchange files")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	_, _, tb := buildTestbench(args[0])

	source, err := tb.Generate()
	if err != nil {
		log.Fatal("Failed to generate testbench %s: %s.\n", tb.Name, err)
	}

	if generateWriteInputs {
		for _, f := range tb.FilesOf(exchange.In) {
			if err := f.Write(); err != nil {
				log.Fatal("%s.\n", err)
			}
		}
	}

	if generateOutput == "" {
		fmt.Print(source)
		return
	}
	if err := os.WriteFile(generateOutput, []byte(source), util.FileMode); err != nil {
		log.Fatal("Failed to write %s: %s.\n", generateOutput, err)
	}
	log.Success("Generated testbench %s in %s.\n", tb.Name, generateOutput)
}
