package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graderunner/graderunner/internal/initialization"
)

// NewGradeCommand builds the `grade` command: run the suite and submit the
// results.
func NewGradeCommand(container *initialization.Container) *cobra.Command {
	var inputToken string

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Run the test suite and submit results for grading",
		Long: `Run the project's test suite against the instructor's specification set
and submit the results to the grading service. If the local specs are stale
relative to the assignment's target revision, they are refreshed first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := container.GetGradingService().ProcessGradeAll(cmd.Context(), inputToken)
			if err != nil {
				return err
			}
			fmt.Println(outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputToken, "token", "", "Access token (overrides the stored token)")

	return cmd
}
