package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/daedaleanai/tbgen/util"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Args:  cobra.NoArgs,
	Short: "Prints the version of this tool",
	Long: `Prints the version of this tool. Descriptions whose "requires" field names
this version or an older one are accepted. With --short only the version is
printed, in the form "requires" expects.`,
	Run: runVersion,
}

var versionShort bool

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print the version only")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	printVersion(cmd.OutOrStdout(), versionShort)
}

func printVersion(w io.Writer, short bool) {
	if short {
		fmt.Fprintln(w, util.TbgenVersion)
		return
	}
	fmt.Fprintf(w, "tbgen %s, accepts descriptions requiring up to %s\n", util.TbgenVersion, util.TbgenVersion)
}
