package cmd

import (
	"io"
	"sort"

	"github.com/spf13/cobra"
)

// completionGenerators write the completion script of each supported shell.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletion(w) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletion(w)
	},
}

func completionShells() []string {
	shells := []string{}
	for shell := range completionGenerators {
		shells = append(shells, shell)
	}
	sort.Strings(shells)
	return shells
}

var completionCmd = &cobra.Command{
	Use:   "completion SHELL",
	Short: "Prints the shell completion script",
	Long: `Prints the completion script of SHELL (bash, fish, powershell or zsh).

  $ source <(tbgen completion bash)
  $ tbgen completion zsh > "${fpath[1]}/_tbgen"
  $ tbgen completion fish > ~/.config/fish/completions/tbgen.fish
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells(),
	Args:                  cobra.ExactValidArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionGenerators[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
