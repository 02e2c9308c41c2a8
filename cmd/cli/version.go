package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graderunner/graderunner/internal/version"
)

// NewVersionCommand builds the `version` command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graderunner %s %s\n", version.String(), version.Platform())
		},
	}
}
