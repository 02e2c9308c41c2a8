package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graderunner/graderunner/internal/initialization"
)

// NewResetTokenCommand builds the `reset-token` command: interactively
// acquire a fresh access token and persist it.
func NewResetTokenCommand(container *initialization.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-token",
		Short: "Replace the stored access token",
		Long: `Prompt for a fresh access token, validate it against the grading
service, and store it for this project.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := container.GetGradingService().ProcessResetToken(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(outcome)
			return nil
		},
	}
}
