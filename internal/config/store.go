// Package config persists the credential record for one project: the
// submission URL, the personal access token, and the resolved GitHub
// username, kept as a small YAML file under the project's hidden config
// directory.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/graderunner/graderunner/internal/domain"
)

// Store is the viper-backed implementation of domain.CredentialStore.
type Store struct {
	projectRoot string
	configDir   string
	configFile  string
}

// NewStore creates a credential store rooted at projectRoot. The record
// lives at projectRoot/configDir/configFile.
func NewStore(projectRoot, configDir, configFile string) *Store {
	return &Store{
		projectRoot: projectRoot,
		configDir:   configDir,
		configFile:  configFile,
	}
}

// Path resolves the credential file path, creating the hidden directory when
// absent. Directory creation is idempotent.
func (s *Store) Path() (string, error) {
	dir := filepath.Join(s.projectRoot, s.configDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return filepath.Join(dir, s.configFile), nil
}

// Load reads the credential record. A missing file yields a record holding
// only the default submission URL. A corrupt file is fatal: the returned
// error carries the remediation message and the run must abort.
func (s *Store) Load(ctx context.Context, defaultURL string) (domain.CredentialRecord, error) {
	path, err := s.Path()
	if err != nil {
		return domain.CredentialRecord{}, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debug().Str("path", path).Msg("No credential file, starting from defaults")
		return domain.CredentialRecord{SubmissionURL: defaultURL}, nil
	}

	record, err := s.read(path)
	if err != nil {
		return domain.CredentialRecord{}, fmt.Errorf(
			"it looks like there's something wrong with your token in %s. "+
				"Please delete that file and try again, and be sure to provide the access token for THIS project", path)
	}

	return record, nil
}

// Save overwrites the full record with the given fields. This is the only
// write path.
func (s *Store) Save(ctx context.Context, token, submissionURL, githubUsername string) error {
	path, err := s.Path()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("submission_url", submissionURL)
	v.Set("personal_access_token", token)
	v.Set("github_username", githubUsername)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	log.Debug().Str("path", path).Msg("Credential record saved")
	return nil
}

// ClearToken blanks the token field in place. The record survives so the
// submission URL and username are kept for the next acquisition. No-op when
// the file does not exist.
func (s *Store) ClearToken(ctx context.Context) error {
	path, err := s.Path()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	record, err := s.read(path)
	if err != nil {
		return fmt.Errorf("failed to reload credential file: %w", err)
	}

	return s.Save(ctx, "", record.SubmissionURL, record.GitHubUsername)
}

func (s *Store) read(path string) (domain.CredentialRecord, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return domain.CredentialRecord{}, err
	}

	var record domain.CredentialRecord
	if err := v.Unmarshal(&record); err != nil {
		return domain.CredentialRecord{}, err
	}

	return record, nil
}
