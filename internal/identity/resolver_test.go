package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graderunner/graderunner/internal/domain"
)

type fakeStore struct {
	record  domain.CredentialRecord
	loadErr error
}

func (f *fakeStore) Path() (string, error) { return "", nil }

func (f *fakeStore) Load(ctx context.Context, defaultURL string) (domain.CredentialRecord, error) {
	if f.loadErr != nil {
		return domain.CredentialRecord{}, f.loadErr
	}
	return f.record, nil
}

func (f *fakeStore) Save(ctx context.Context, token, submissionURL, githubUsername string) error {
	return nil
}

func (f *fakeStore) ClearToken(ctx context.Context) error { return nil }

type fakeGit struct {
	email string
	name  string
}

func (f *fakeGit) TreeSHA(ctx context.Context, path string) (string, error) { return "", nil }
func (f *fakeGit) HeadShortSHA(ctx context.Context) (string, error)         { return "", nil }
func (f *fakeGit) UserEmail(ctx context.Context) (string, error)            { return f.email, nil }
func (f *fakeGit) UserName(ctx context.Context) (string, error)             { return f.name, nil }
func (f *fakeGit) SetUpstreamRemote(ctx context.Context, repoSlug string) error {
	return nil
}
func (f *fakeGit) CommitDir(ctx context.Context, dir, authorName, authorEmail, message string) error {
	return nil
}

type fakeSearcher struct {
	login  string
	found  bool
	called bool
}

func (f *fakeSearcher) SearchByEmail(ctx context.Context, email string) (string, bool) {
	f.called = true
	return f.login, f.found
}

func TestResolver_StoredUsernameWins(t *testing.T) {
	searcher := &fakeSearcher{login: "remote-handle", found: true}
	r := NewResolver(ResolverDependencies{
		Store:    &fakeStore{record: domain.CredentialRecord{GitHubUsername: "stored-handle"}},
		Git:      &fakeGit{email: "a@example.com", name: "Alice"},
		Searcher: searcher,
	})

	assert.Equal(t, "stored-handle", r.Resolve(context.Background()))
	assert.False(t, searcher.called)
}

func TestResolver_BlankEmailMeansUnknownIdentity(t *testing.T) {
	searcher := &fakeSearcher{login: "remote-handle", found: true}
	r := NewResolver(ResolverDependencies{
		Store:    &fakeStore{},
		Git:      &fakeGit{email: "", name: "Alice"},
		Searcher: searcher,
	})

	assert.Equal(t, "", r.Resolve(context.Background()))
	assert.False(t, searcher.called)
}

func TestResolver_DirectoryMatchBeatsLocalName(t *testing.T) {
	r := NewResolver(ResolverDependencies{
		Store:    &fakeStore{},
		Git:      &fakeGit{email: "a@example.com", name: "Alice"},
		Searcher: &fakeSearcher{login: "remote-handle", found: true},
	})

	assert.Equal(t, "remote-handle", r.Resolve(context.Background()))
}

func TestResolver_FallsBackToLocalNameOnMiss(t *testing.T) {
	r := NewResolver(ResolverDependencies{
		Store:    &fakeStore{},
		Git:      &fakeGit{email: "a@example.com", name: "Alice"},
		Searcher: &fakeSearcher{},
	})

	assert.Equal(t, "Alice", r.Resolve(context.Background()))
}

func TestResolver_CorruptRecordDegradesToGitIdentity(t *testing.T) {
	r := NewResolver(ResolverDependencies{
		Store:    &fakeStore{loadErr: fmt.Errorf("unparsable")},
		Git:      &fakeGit{email: "a@example.com", name: "Alice"},
		Searcher: &fakeSearcher{},
	})

	assert.Equal(t, "Alice", r.Resolve(context.Background()))
}
