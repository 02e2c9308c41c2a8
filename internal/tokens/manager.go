// Package tokens owns access-token validation and acquisition. Structural
// checks are pure; authenticity is confirmed only by the grading service,
// and an unreachable service reads as "not valid" rather than an error so a
// student's local run never crashes on a network condition.
package tokens

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/graderunner/graderunner/internal/domain"
	"github.com/graderunner/graderunner/pkg/clients/grades"
)

// tokenShape is the structural form of an access token: 24 alphanumeric
// characters excluding the visually ambiguous O, I and l, with a leading
// character that is additionally not 0.
var tokenShape = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z][0-9A-HJ-NP-Za-km-z]{23}$`)

// Manager implements domain.TokenManager.
type Manager struct {
	client         grades.ClientInterface
	input          io.Reader
	output         io.Writer
	promptAttempts int
}

// ManagerDependencies carries what a Manager needs. Input and Output default
// to being unusable: the orchestrator wires stdin/stdout, tests wire
// buffers.
type ManagerDependencies struct {
	Client         grades.ClientInterface
	Input          io.Reader
	Output         io.Writer
	PromptAttempts int
}

// NewManager creates a token manager.
func NewManager(deps ManagerDependencies) *Manager {
	attempts := deps.PromptAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Manager{
		client:         deps.Client,
		input:          deps.Input,
		output:         deps.Output,
		promptAttempts: attempts,
	}
}

// ValidFormat is the pure structural check. Malformed input never reaches
// the network.
func (m *Manager) ValidFormat(token string) bool {
	return tokenShape.MatchString(token)
}

// ValidateRemotely confirms authenticity with the grading service. Returns
// false for structurally invalid tokens without a remote call, and false
// (never an error) on transport or parse failures: the caller cannot
// distinguish "service said no" from "service unreachable", which keeps the
// student-facing message uniform.
func (m *Manager) ValidateRemotely(ctx context.Context, token string) bool {
	if !m.ValidFormat(token) {
		return false
	}

	ok, err := m.client.ValidateToken(ctx, token)
	if err != nil {
		log.Debug().Err(err).Msg("Token validation request failed, treating token as invalid")
		return false
	}
	return ok
}

// FetchResource looks up the upstream resource descriptor bound to a token.
// Same soft-failure policy as ValidateRemotely.
func (m *Manager) FetchResource(ctx context.Context, token string) (*domain.UpstreamResource, bool) {
	if !m.ValidFormat(token) {
		return nil, false
	}

	res, err := m.client.GetResource(ctx, token)
	if err != nil {
		log.Debug().Err(err).Msg("Resource fetch failed")
		return nil, false
	}

	return &domain.UpstreamResource{
		RepoSlug:      res.RepoSlug,
		SpecFolderSHA: res.SpecFolderSHA,
		SourceCodeURL: res.SourceCodeURL,
	}, true
}

// Acquire resolves a token by precedence: explicit input, then stored, then
// interactive prompt. Blank and whitespace-only values count as absent at
// every level, so a blank stored token still falls through to the prompt.
func (m *Manager) Acquire(ctx context.Context, inputToken, storedToken string) (string, error) {
	if tok := strings.TrimSpace(inputToken); tok != "" {
		return tok, nil
	}
	if tok := strings.TrimSpace(storedToken); tok != "" {
		return tok, nil
	}
	return m.Prompt(ctx)
}

// Prompt reads tokens from the configured input until one passes both the
// format and the remote check. The loop terminates on input exhaustion or
// after the configured number of attempts.
func (m *Manager) Prompt(ctx context.Context) (string, error) {
	fmt.Fprintln(m.output, "Enter your access token for this project")

	scanner := bufio.NewScanner(m.input)
	for attempt := 0; attempt < m.promptAttempts; attempt++ {
		fmt.Fprint(m.output, "> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("failed to read token input: %w", err)
			}
			return "", fmt.Errorf("input ended before a valid token was provided")
		}

		token := strings.TrimSpace(scanner.Text())
		if token == "" || !m.ValidateRemotely(ctx, token) {
			fmt.Fprintln(m.output, "Please enter valid token")
			continue
		}

		return token, nil
	}

	return "", fmt.Errorf("no valid token provided after %d attempts", m.promptAttempts)
}
