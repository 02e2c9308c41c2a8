package domain

// CredentialRecord is the persisted credential state for one project. It is
// the only durable state the pipeline owns, stored as a small YAML document
// under the project's hidden config directory.
type CredentialRecord struct {
	SubmissionURL       string `mapstructure:"submission_url" yaml:"submission_url"`
	PersonalAccessToken string `mapstructure:"personal_access_token" yaml:"personal_access_token"`
	GitHubUsername      string `mapstructure:"github_username" yaml:"github_username"`
}

// UpstreamResource describes the specification version a validated token is
// entitled to: the upstream repository, the target revision of its spec
// folder, and an archive of the source tree at that revision.
type UpstreamResource struct {
	RepoSlug      string `json:"repo_slug"`
	SpecFolderSHA string `json:"spec_folder_sha"`
	SourceCodeURL string `json:"source_code_url"`
}

// Complete reports whether all fields required to run a sync are present.
func (r *UpstreamResource) Complete() bool {
	return r != nil && r.RepoSlug != "" && r.SpecFolderSHA != "" && r.SourceCodeURL != ""
}

// ExampleStatus is the outcome of a single test example as reported by the
// external test runner.
type ExampleStatus string

const (
	StatusPassed  ExampleStatus = "passed"
	StatusFailed  ExampleStatus = "failed"
	StatusPending ExampleStatus = "pending"
)

// Example is one test example from the runner's JSON output.
type Example struct {
	Status      ExampleStatus `json:"status"`
	Description string        `json:"description"`
	Points      *int          `json:"points,omitempty"`
}

// ReportSummary aggregates one test run.
type ReportSummary struct {
	Duration     float64 `json:"duration"`
	ExampleCount int     `json:"example_count"`
	FailureCount int     `json:"failure_count"`
	PendingCount int     `json:"pending_count"`
	TotalPoints  int     `json:"total_points"`
	EarnedPoints int     `json:"earned_points"`
	Score        float64 `json:"score"`
}

// TestReport is the machine-readable result of one test run. The shape is a
// hard contract at the pipeline boundary: the external runner produces it and
// the submission client forwards it untouched apart from Normalize.
type TestReport struct {
	Summary     ReportSummary `json:"summary"`
	SummaryLine string        `json:"summary_line,omitempty"`
	Examples    []Example     `json:"examples"`
}

// Normalize recomputes the point totals and score from the examples.
// Examples without an explicit point value count as defaultPoints (floored
// at 1). Earned points sum only passed examples; score is earned/total, or
// zero when no points are at stake. Runners that already filled these fields
// are overwritten with the recomputed values so the invariant always holds.
func (r *TestReport) Normalize(defaultPoints int) {
	if defaultPoints < 1 {
		defaultPoints = 1
	}

	total := 0
	earned := 0
	for _, ex := range r.Examples {
		points := defaultPoints
		if ex.Points != nil {
			points = *ex.Points
		}
		total += points
		if ex.Status == StatusPassed {
			earned += points
		}
	}

	r.Summary.TotalPoints = total
	r.Summary.EarnedPoints = earned
	if total > 0 {
		r.Summary.Score = float64(earned) / float64(total)
	} else {
		r.Summary.Score = 0
	}
}
