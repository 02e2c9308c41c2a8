// Package identity derives the student's username from the credential
// record, the local git identity, and a GitHub user-directory lookup.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog/log"

	"github.com/graderunner/graderunner/internal/domain"
)

// UserSearcher looks up a user handle by email in a remote directory.
type UserSearcher interface {
	SearchByEmail(ctx context.Context, email string) (string, bool)
}

// Resolver implements domain.IdentityResolver.
type Resolver struct {
	store    domain.CredentialStore
	git      domain.Git
	searcher UserSearcher
}

// ResolverDependencies carries what a Resolver needs.
type ResolverDependencies struct {
	Store    domain.CredentialStore
	Git      domain.Git
	Searcher UserSearcher
}

// NewResolver creates an identity resolver.
func NewResolver(deps ResolverDependencies) *Resolver {
	return &Resolver{
		store:    deps.Store,
		git:      deps.Git,
		searcher: deps.Searcher,
	}
}

// Resolve derives the username. The order is fixed: stored record, then a
// directory match on the git email, then the git display name, then empty.
// An empty result means the identity is unknown, which is a valid terminal
// state.
func (r *Resolver) Resolve(ctx context.Context) string {
	record, err := r.store.Load(ctx, domain.DefaultSubmissionURL)
	if err == nil && strings.TrimSpace(record.GitHubUsername) != "" {
		return strings.TrimSpace(record.GitHubUsername)
	}

	email, _ := r.git.UserEmail(ctx)
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}

	name, _ := r.git.UserName(ctx)
	name = strings.TrimSpace(name)

	if login, found := r.searcher.SearchByEmail(ctx, email); found {
		return login
	}

	return name
}

// GitHubSearcher queries the public GitHub user search.
type GitHubSearcher struct {
	client *github.Client
}

// NewGitHubSearcher creates an unauthenticated GitHub searcher.
func NewGitHubSearcher() *GitHubSearcher {
	return &GitHubSearcher{client: github.NewClient(nil)}
}

// SearchByEmail returns the login of the first user whose email matches.
// Lookup failures degrade to "not found"; the resolver falls back to the
// local git name.
func (s *GitHubSearcher) SearchByEmail(ctx context.Context, email string) (string, bool) {
	result, _, err := s.client.Search.Users(ctx, fmt.Sprintf("%s in:email", email), nil)
	if err != nil {
		log.Debug().Err(err).Msg("GitHub user search failed")
		return "", false
	}
	if len(result.Users) == 0 {
		return "", false
	}
	login := result.Users[0].GetLogin()
	return login, login != ""
}
