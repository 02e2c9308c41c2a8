// Package runner invokes the external test runner and parses its JSON
// report. The runner's process exit status is deliberately ignored: a failing
// suite still exits non-zero while producing a perfectly good report file.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/graderunner/graderunner/internal/domain"
)

// outputPlaceholder marks where the output file path is substituted into the
// runner command.
const outputPlaceholder = "{output}"

// Executor implements domain.TestRunner.
type Executor struct {
	projectRoot   string
	outputDir     string
	prepCommand   []string
	runnerCommand []string
	runnerEnv     []string
	defaultPoints int
}

// ExecutorDependencies carries what an Executor needs.
type ExecutorDependencies struct {
	ProjectRoot   string
	OutputDir     string
	PrepCommand   []string
	RunnerCommand []string
	RunnerEnv     []string
	DefaultPoints int
}

// NewExecutor creates a test executor.
func NewExecutor(deps ExecutorDependencies) *Executor {
	return &Executor{
		projectRoot:   deps.ProjectRoot,
		outputDir:     deps.OutputDir,
		prepCommand:   deps.PrepCommand,
		runnerCommand: deps.RunnerCommand,
		runnerEnv:     deps.RunnerEnv,
		defaultPoints: deps.DefaultPoints,
	}
}

// PrepareOutputPath creates the output directory and returns a fresh,
// timestamped output file path for one run.
func (e *Executor) PrepareOutputPath() (string, error) {
	dir := filepath.Join(e.projectRoot, e.outputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("%d.json", time.Now().Unix())), nil
}

// Run executes the suite and returns the parsed, normalized report. The
// preparation command (schema migration and the like) runs first when
// configured; its failure is logged and ignored so a project without that
// tooling still grades. A missing or unparsable report file is a hard error.
func (e *Executor) Run(ctx context.Context, outputPath string) (*domain.TestReport, error) {
	if len(e.runnerCommand) == 0 {
		return nil, fmt.Errorf("no test runner command configured")
	}

	if len(e.prepCommand) > 0 {
		if err := e.runCommand(ctx, e.prepCommand, nil); err != nil {
			log.Debug().Err(err).Strs("command", e.prepCommand).Msg("Preparation command failed")
		}
	}

	command := make([]string, len(e.runnerCommand))
	for i, arg := range e.runnerCommand {
		command[i] = strings.ReplaceAll(arg, outputPlaceholder, outputPath)
	}

	if err := e.runCommand(ctx, command, e.runnerEnv); err != nil {
		// A failing suite exits non-zero; the report file is the contract.
		log.Debug().Err(err).Msg("Test runner exited with error")
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("test runner produced no output at %s: %w", outputPath, err)
	}

	var report domain.TestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse test output: %w", err)
	}

	report.Normalize(e.defaultPoints)

	log.Info().
		Int("examples", report.Summary.ExampleCount).
		Int("failures", report.Summary.FailureCount).
		Int("earned", report.Summary.EarnedPoints).
		Int("total", report.Summary.TotalPoints).
		Msg("Test run complete")

	return &report, nil
}

func (e *Executor) runCommand(ctx context.Context, command, extraEnv []string) error {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = e.projectRoot
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
