// Package grading sequences the pipeline: credential acquisition and
// validation, optional spec synchronization, test execution, and submission.
// Soft failures come back as guidance strings for the student; only a
// corrupt credential file, a broken test run, or a failed submission abort
// the run with an error.
package grading

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/graderunner/graderunner/internal/domain"
	"github.com/graderunner/graderunner/pkg/clients/grades"
)

const (
	noTokenMessage = "We couldn't find your access token. " +
		"Please click on the assignment link and run the grade command shown there."
	invalidTokenMessage = "Your access token looked invalid, so we've reset it to be blank. " +
		"Please re-run the grade command and copy-paste your token carefully from the assignment page."
	submittedMessage  = "Grade submitted successfully"
	tokenResetMessage = "Grade token has been reset successfully."

	// triggerSource identifies a manual CLI invocation to the grading
	// service.
	triggerSource = "manual"
)

// Service is the pipeline orchestrator.
type Service struct {
	settings domain.Settings
	store    domain.CredentialStore
	tokens   domain.TokenManager
	identity domain.IdentityResolver
	git      domain.Git
	syncer   domain.SpecSyncer
	runner   domain.TestRunner
	client   grades.ClientInterface
}

// ServiceDependencies carries everything the orchestrator sequences.
type ServiceDependencies struct {
	Settings domain.Settings
	Store    domain.CredentialStore
	Tokens   domain.TokenManager
	Identity domain.IdentityResolver
	Git      domain.Git
	Syncer   domain.SpecSyncer
	Runner   domain.TestRunner
	Client   grades.ClientInterface
}

// NewService creates the orchestrator.
func NewService(deps ServiceDependencies) *Service {
	return &Service{
		settings: deps.Settings,
		store:    deps.Store,
		tokens:   deps.Tokens,
		identity: deps.Identity,
		git:      deps.Git,
		syncer:   deps.Syncer,
		runner:   deps.Runner,
		client:   deps.Client,
	}
}

// ProcessGradeAll runs the full pipeline and returns a human-readable
// outcome. inputToken is an explicit override (from the --token flag) and
// takes precedence over everything else. A returned error means the run
// aborted: corrupt credential file, failed test execution, or a submission
// that could not be delivered.
func (s *Service) ProcessGradeAll(ctx context.Context, inputToken string) (string, error) {
	record, err := s.store.Load(ctx, s.settings.SubmissionURL)
	if err != nil {
		return "", err
	}

	fileToken := strings.TrimSpace(record.PersonalAccessToken)

	// Sandboxed environments supply the token through the environment when
	// nothing is stored yet and interactive prompting is unavailable.
	if fileToken == "" && inputToken == "" {
		if envToken, ok := os.LookupEnv(s.settings.EnvTokenVar); ok {
			inputToken = envToken
		}
	}

	token, err := s.tokens.Acquire(ctx, inputToken, fileToken)
	if err != nil {
		log.Debug().Err(err).Msg("Token acquisition ended without a token")
		token = ""
	}

	username := s.identity.Resolve(ctx)

	// A newly supplied or newly prompted token is persisted before it is
	// validated; a bad token is cleared only after an explicit validation
	// failure.
	if strings.TrimSpace(inputToken) != "" || (token != "" && fileToken == "") {
		if err := s.store.Save(ctx, token, s.settings.SubmissionURL, username); err != nil {
			return "", err
		}
	}

	if token == "" {
		return noTokenMessage, nil
	}

	if !s.tokens.ValidateRemotely(ctx, token) {
		if err := s.store.ClearToken(ctx); err != nil {
			log.Warn().Err(err).Msg("Could not clear stored token")
		}
		return invalidTokenMessage, nil
	}

	if s.settings.OverrideLocalSpecs {
		s.syncSpecs(ctx, token)
	}

	outputPath, err := s.runner.PrepareOutputPath()
	if err != nil {
		return "", err
	}

	report, err := s.runner.Run(ctx, outputPath)
	if err != nil {
		return "", err
	}

	sha, err := s.git.HeadShortSHA(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read commit SHA")
	}

	resp, err := s.client.SubmitBuild(ctx, &grades.SubmitBuildRequest{
		AccessToken: token,
		TestOutput:  report,
		CommitSHA:   sha,
		Username:    username,
		Reponame:    filepath.Base(s.settings.ProjectRoot),
		Source:      triggerSource,
	})
	if err != nil {
		// A completed run that cannot be reported is surfaced loudly, not
		// swallowed.
		return "", err
	}

	log.Info().Str("url", resp.URL).Msg("Results submitted")
	return submittedMessage, nil
}

// syncSpecs fetches the upstream resource, points the upstream remote at the
// resolved repository, and runs the synchronizer. Every step fails soft: a
// missing descriptor or a failed sync leaves the local specs as they are.
func (s *Service) syncSpecs(ctx context.Context, token string) {
	resource, ok := s.tokens.FetchResource(ctx, token)
	if !ok {
		log.Debug().Msg("No upstream resource available, using local specs")
		return
	}

	if resource.RepoSlug != "" {
		if err := s.git.SetUpstreamRemote(ctx, resource.RepoSlug); err != nil {
			log.Warn().Err(err).Str("repo", resource.RepoSlug).Msg("Could not set upstream remote")
		}
	}

	s.syncer.Sync(ctx, resource)
}

// ProcessResetToken interactively acquires a fresh token and persists it.
// The prompt's own validation is the only gate. A corrupt credential file
// aborts the flow before the prompt: the record is never repaired by
// overwriting, here or anywhere else.
func (s *Service) ProcessResetToken(ctx context.Context) (string, error) {
	if _, err := s.store.Load(ctx, s.settings.SubmissionURL); err != nil {
		return "", err
	}

	username := s.identity.Resolve(ctx)

	token, err := s.tokens.Prompt(ctx)
	if err != nil {
		return "", err
	}

	if err := s.store.Save(ctx, token, s.settings.SubmissionURL, username); err != nil {
		return "", err
	}

	return tokenResetMessage, nil
}
