package cmd

import (
	"io"
	"sort"

	"github.com/spf13/cobra"
)

// completionWriters generates the completion script for each supported shell
var completionWriters = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Generate shell completion scripts",
	Long: `Print the hitconn completion script for bash, zsh, fish or powershell.

Examples:
  source <(hitconn completion bash)
  hitconn completion zsh > "${fpath[1]}/_hitconn"
  hitconn completion fish > ~/.config/fish/completions/hitconn.fish
  hitconn completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells(),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionWriters[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}

func completionShells() []string {
	shells := make([]string, 0, len(completionWriters))
	for shell := range completionWriters {
		shells = append(shells, shell)
	}
	sort.Strings(shells)
	return shells
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
