// Package initialization wires the pipeline's services together for the CLI
// commands.
package initialization

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/graderunner/graderunner/internal/config"
	"github.com/graderunner/graderunner/internal/domain"
	"github.com/graderunner/graderunner/internal/gitcli"
	"github.com/graderunner/graderunner/internal/grading"
	"github.com/graderunner/graderunner/internal/identity"
	"github.com/graderunner/graderunner/internal/runner"
	"github.com/graderunner/graderunner/internal/specsync"
	"github.com/graderunner/graderunner/internal/tokens"
	"github.com/graderunner/graderunner/pkg/clients/grades"
)

// Container holds the fully wired pipeline.
type Container struct {
	settings domain.Settings
	service  *grading.Service
}

// NewContainer loads the settings and builds every service the pipeline
// needs, wired against the real filesystem, git binary, grading service, and
// terminal.
func NewContainer() (*Container, error) {
	settings, err := domain.LoadSettings()
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("submission_url", settings.SubmissionURL).
		Str("project_root", settings.ProjectRoot).
		Bool("override_local_specs", settings.OverrideLocalSpecs).
		Msg("Settings loaded")

	client := grades.NewClient(grades.WithBaseURL(settings.SubmissionURL))
	store := config.NewStore(settings.ProjectRoot, settings.ConfigDir, settings.ConfigFile)
	git := gitcli.NewExecGit(settings.ProjectRoot)

	tokenManager := tokens.NewManager(tokens.ManagerDependencies{
		Client:         client,
		Input:          os.Stdin,
		Output:         os.Stdout,
		PromptAttempts: settings.PromptAttempts,
	})

	resolver := identity.NewResolver(identity.ResolverDependencies{
		Store:    store,
		Git:      git,
		Searcher: identity.NewGitHubSearcher(),
	})

	syncer := specsync.NewSyncer(specsync.SyncerDependencies{
		Git:         git,
		Client:      client,
		ProjectRoot: settings.ProjectRoot,
		SpecDir:     settings.SpecDir,
	})

	executor := runner.NewExecutor(runner.ExecutorDependencies{
		ProjectRoot:   settings.ProjectRoot,
		OutputDir:     settings.OutputDir,
		PrepCommand:   settings.PrepCommand,
		RunnerCommand: settings.RunnerCommand,
		RunnerEnv:     settings.RunnerEnv,
		DefaultPoints: settings.DefaultPoints,
	})

	service := grading.NewService(grading.ServiceDependencies{
		Settings: settings,
		Store:    store,
		Tokens:   tokenManager,
		Identity: resolver,
		Git:      git,
		Syncer:   syncer,
		Runner:   executor,
		Client:   client,
	})

	return &Container{
		settings: settings,
		service:  service,
	}, nil
}

// GetSettings returns the loaded settings.
func (c *Container) GetSettings() domain.Settings {
	return c.settings
}

// GetGradingService returns the orchestrator.
func (c *Container) GetGradingService() *grading.Service {
	return c.service
}
