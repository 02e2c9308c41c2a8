package grades

import "fmt"

// ValidateTokenResponse is the grading service's answer to a token
// validation lookup.
type ValidateTokenResponse struct {
	Success bool `json:"success"`
}

// Resource is the upstream resource descriptor bound to a validated token.
type Resource struct {
	RepoSlug      string `json:"repo_slug"`
	SpecFolderSHA string `json:"spec_folder_sha"`
	SourceCodeURL string `json:"source_code_url"`
}

// SubmitBuildRequest is the payload for one grade submission. TestOutput is
// the runner's report, forwarded as-is.
type SubmitBuildRequest struct {
	AccessToken string `json:"access_token"`
	TestOutput  any    `json:"test_output"`
	CommitSHA   string `json:"commit_sha"`
	Username    string `json:"username"`
	Reponame    string `json:"reponame"`
	Source      string `json:"source"`
}

// SubmitBuildResponse carries the result locator for a submitted build.
type SubmitBuildResponse struct {
	URL string `json:"url"`
}

// Error represents an API error response from the grading service.
type Error struct {
	StatusCode int
	Message    string
	Body       string
	RequestID  string
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("grades API error %d: %s (request ID: %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("grades API error %d: %s", e.StatusCode, e.Message)
}
