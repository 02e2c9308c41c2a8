// Package gitcli implements domain.Git by shelling out to the git binary.
// Only the handful of operations the pipeline needs are exposed; everything
// runs against a single working tree.
package gitcli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExecGit runs git commands in a fixed working directory.
type ExecGit struct {
	dir string
}

// NewExecGit creates a git runner rooted at dir.
func NewExecGit(dir string) *ExecGit {
	return &ExecGit{dir: dir}
}

// TreeSHA returns the object id of the tree at path as of HEAD. An untracked
// path (or a repository without commits) yields "" rather than an error; the
// caller treats a missing marker as "out of date".
func (g *ExecGit) TreeSHA(ctx context.Context, path string) (string, error) {
	out, err := g.run(ctx, "rev-parse", "HEAD:"+path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("No tree object for path")
		return "", nil
	}
	return out, nil
}

// HeadShortSHA returns the first eight characters of the HEAD commit id.
func (g *ExecGit) HeadShortSHA(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if len(out) > 8 {
		out = out[:8]
	}
	return out, nil
}

// UserEmail reads the configured git identity email. Unset is "" without an
// error.
func (g *ExecGit) UserEmail(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "config", "user.email")
	if err != nil {
		return "", nil
	}
	return out, nil
}

// UserName reads the configured git display name. Unset is "" without an
// error.
func (g *ExecGit) UserName(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "config", "user.name")
	if err != nil {
		return "", nil
	}
	return out, nil
}

// SetUpstreamRemote points the "upstream" remote at the GitHub repository
// for repoSlug, adding the remote when it does not exist yet.
func (g *ExecGit) SetUpstreamRemote(ctx context.Context, repoSlug string) error {
	remoteURL := "https://github.com/" + repoSlug

	if _, err := g.run(ctx, "remote", "get-url", "upstream"); err != nil {
		if _, err := g.run(ctx, "remote", "add", "upstream", remoteURL); err != nil {
			return fmt.Errorf("failed to add upstream remote: %w", err)
		}
		return nil
	}

	if _, err := g.run(ctx, "remote", "set-url", "upstream", remoteURL); err != nil {
		return fmt.Errorf("failed to update upstream remote: %w", err)
	}
	return nil
}

// CommitDir stages changes restricted to dir and commits them under the
// given author. A clean tree is not an error.
func (g *ExecGit) CommitDir(ctx context.Context, dir, authorName, authorEmail, message string) error {
	if _, err := g.run(ctx, "add", "--", dir); err != nil {
		return fmt.Errorf("failed to stage %s: %w", dir, err)
	}

	status, err := g.run(ctx, "status", "--porcelain", "--", dir)
	if err != nil {
		return fmt.Errorf("failed to check status of %s: %w", dir, err)
	}
	if status == "" {
		log.Debug().Str("dir", dir).Msg("Nothing to commit")
		return nil
	}

	author := fmt.Sprintf("%s <%s>", authorName, authorEmail)
	if _, err := g.run(ctx,
		"-c", "user.name="+authorName,
		"-c", "user.email="+authorEmail,
		"commit", "--author", author, "-m", message, "--", dir,
	); err != nil {
		return fmt.Errorf("failed to commit %s: %w", dir, err)
	}
	return nil
}

func (g *ExecGit) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}
