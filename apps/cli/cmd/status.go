package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

var statusCmd = &cobra.Command{
	Use:   "status [code]",
	Short: "List the named HTTP status codes",
	Long: `List the named HTTP status codes, or show the entry for one code.

Examples:
  hitconn status
  hitconn status 404
  hitconn status -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: statusCommand,
}

func statusCommand(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	formatter, err := s.formatter(cmd)
	if err != nil {
		return err
	}

	entries := conn.Catalogue
	if len(args) == 1 {
		code, err := strconv.Atoi(args[0])
		if err != nil {
			return usageError(fmt.Errorf("invalid status code %q", args[0]))
		}
		entries = nil
		for _, e := range conn.Catalogue {
			if e.Code == code {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			return usageError(fmt.Errorf("no named status for code %d", code))
		}
	}

	formatter.FormatStatuses(entries)
	return formatter.Flush()
}
