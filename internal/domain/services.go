package domain

import "context"

// CredentialStore reads and writes the persisted credential record.
type CredentialStore interface {
	// Path resolves the credential file path, creating the containing
	// directory if it does not exist yet.
	Path() (string, error)

	// Load parses the credential file. A missing file yields a record
	// holding only the default submission URL. A file that exists but does
	// not parse is a fatal condition and returns an error telling the user
	// to delete the file; it is never silently repaired.
	Load(ctx context.Context, defaultURL string) (CredentialRecord, error)

	// Save overwrites the full record. This is the only write path, used on
	// first acquisition and on token refresh alike.
	Save(ctx context.Context, token, submissionURL, githubUsername string) error

	// ClearToken blanks the token field in place, keeping the rest of the
	// record. No-op when the file does not exist.
	ClearToken(ctx context.Context) error
}

// IdentityResolver derives the student's username. An empty result means the
// identity is unknown, which is a valid terminal state rather than an error.
type IdentityResolver interface {
	Resolve(ctx context.Context) string
}

// TokenManager owns access-token validation and acquisition.
type TokenManager interface {
	// ValidFormat is the pure structural check. It never touches the
	// network.
	ValidFormat(token string) bool

	// ValidateRemotely confirms authenticity with the grading service. Only
	// structurally valid tokens are sent; transport and parse failures
	// report false rather than an error so an unreachable service cannot
	// crash a local run.
	ValidateRemotely(ctx context.Context, token string) bool

	// FetchResource looks up the upstream resource descriptor bound to a
	// token. Same soft-failure policy as ValidateRemotely.
	FetchResource(ctx context.Context, token string) (*UpstreamResource, bool)

	// Acquire resolves a token by precedence: explicit input, then stored,
	// then interactive prompt. Blank and whitespace-only values count as
	// absent at every level.
	Acquire(ctx context.Context, inputToken, storedToken string) (string, error)

	// Prompt reads tokens from the configured input until one passes both
	// format and remote validation. The loop is bounded by the input's
	// exhaustion and by the configured attempt cap.
	Prompt(ctx context.Context) (string, error)
}

// SpecSyncer reconciles the local spec directory with the upstream revision.
// The boolean reports whether an update was performed; all failures inside a
// sync attempt degrade to false after best-effort cleanup.
type SpecSyncer interface {
	Sync(ctx context.Context, resource *UpstreamResource) bool
}

// TestRunner shells out to the external test runner and parses its JSON
// output. It does not interpret pass/fail semantics.
type TestRunner interface {
	// PrepareOutputPath creates the output directory and returns a fresh
	// output file path for one run.
	PrepareOutputPath() (string, error)

	// Run executes the suite and returns the parsed, normalized report.
	Run(ctx context.Context, outputPath string) (*TestReport, error)
}

// Git is the narrow slice of version-control operations the pipeline uses.
// It exists so the synchronizer and identity resolver can be tested against
// a fake instead of a real working tree.
type Git interface {
	// TreeSHA returns the object id of the tree at path as of HEAD, or ""
	// when the path is not tracked.
	TreeSHA(ctx context.Context, path string) (string, error)

	// HeadShortSHA returns the abbreviated commit id of HEAD.
	HeadShortSHA(ctx context.Context) (string, error)

	// UserEmail and UserName read the local git identity configuration.
	UserEmail(ctx context.Context) (string, error)
	UserName(ctx context.Context) (string, error)

	// SetUpstreamRemote points the "upstream" remote at the given GitHub
	// repository, adding the remote if it does not exist.
	SetUpstreamRemote(ctx context.Context, repoSlug string) error

	// CommitDir stages changes restricted to dir and commits them under the
	// given author. A clean tree is not an error.
	CommitDir(ctx context.Context, dir, authorName, authorEmail, message string) error
}
