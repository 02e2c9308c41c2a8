package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graderunner/graderunner/internal/domain"
)

const reportFixture = `{
	"summary": {"duration": 0.5, "example_count": 2, "failure_count": 1},
	"summary_line": "2 examples, 1 failure",
	"examples": [
		{"status": "passed", "description": "adds numbers"},
		{"status": "failed", "description": "subtracts numbers"}
	]
}`

func newTestExecutor(t *testing.T, deps ExecutorDependencies) (*Executor, string) {
	t.Helper()
	root := t.TempDir()
	deps.ProjectRoot = root
	if deps.OutputDir == "" {
		deps.OutputDir = "tmp/output"
	}
	if deps.DefaultPoints == 0 {
		deps.DefaultPoints = 1
	}
	return NewExecutor(deps), root
}

// writeReportCommand produces a shell command that writes the fixture report
// to the substituted output path, standing in for the real test runner.
func writeReportCommand(report string) []string {
	return []string{"sh", "-c", fmt.Sprintf("printf '%%s' '%s' > \"$0\"", report), "{output}"}
}

func TestExecutor_PrepareOutputPath(t *testing.T) {
	exec, root := newTestExecutor(t, ExecutorDependencies{
		RunnerCommand: []string{"true"},
	})

	path, err := exec.PrepareOutputPath()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, filepath.Join(root, "tmp", "output")))
	assert.True(t, strings.HasSuffix(path, ".json"))

	info, err := os.Stat(filepath.Join(root, "tmp", "output"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExecutor_RunParsesAndNormalizesReport(t *testing.T) {
	exec, _ := newTestExecutor(t, ExecutorDependencies{
		RunnerCommand: writeReportCommand(reportFixture),
		DefaultPoints: 2,
	})

	path, err := exec.PrepareOutputPath()
	require.NoError(t, err)

	report, err := exec.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.ExampleCount)
	assert.Equal(t, 1, report.Summary.FailureCount)
	assert.Equal(t, 4, report.Summary.TotalPoints)
	assert.Equal(t, 2, report.Summary.EarnedPoints)
	assert.InDelta(t, 0.5, report.Summary.Score, 0.0001)
	assert.Equal(t, "2 examples, 1 failure", report.SummaryLine)
}

func TestExecutor_RunIgnoresRunnerExitStatus(t *testing.T) {
	// A failing suite exits non-zero after writing the report; the report
	// still counts.
	command := writeReportCommand(reportFixture)
	command[2] += "; exit 1"
	exec, _ := newTestExecutor(t, ExecutorDependencies{
		RunnerCommand: command,
	})

	path, err := exec.PrepareOutputPath()
	require.NoError(t, err)

	report, err := exec.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, report.Examples, 2)
}

func TestExecutor_RunIgnoresPrepFailure(t *testing.T) {
	exec, _ := newTestExecutor(t, ExecutorDependencies{
		PrepCommand:   []string{"sh", "-c", "exit 1"},
		RunnerCommand: writeReportCommand(reportFixture),
	})

	path, err := exec.PrepareOutputPath()
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), path)
	assert.NoError(t, err)
}

func TestExecutor_RunPassesRunnerEnv(t *testing.T) {
	report := `{"summary": {"example_count": 0, "failure_count": 0}, "examples": []}`
	exec, root := newTestExecutor(t, ExecutorDependencies{
		RunnerCommand: []string{"sh", "-c", `printf '%s' "$GRADE_MODE" > mode.txt; printf '%s' '` + report + `' > "$0"`, "{output}"},
		RunnerEnv:     []string{"GRADE_MODE=test"},
	})

	path, err := exec.PrepareOutputPath()
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), path)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "mode.txt"))
	require.NoError(t, err)
	assert.Equal(t, "test", string(data))
}

func TestExecutor_RunMissingOutputIsFatal(t *testing.T) {
	exec, _ := newTestExecutor(t, ExecutorDependencies{
		RunnerCommand: []string{"true"},
	})

	path, err := exec.PrepareOutputPath()
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no output")
}

func TestExecutor_RunUnparsableOutputIsFatal(t *testing.T) {
	exec, _ := newTestExecutor(t, ExecutorDependencies{
		RunnerCommand: writeReportCommand("not json at all"),
	})

	path, err := exec.PrepareOutputPath()
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestExecutor_RunWithoutCommandIsFatal(t *testing.T) {
	exec, _ := newTestExecutor(t, ExecutorDependencies{})

	_, err := exec.Run(context.Background(), "unused.json")
	assert.Error(t, err)
}

var _ domain.TestRunner = (*Executor)(nil)
