package domain

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DefaultSubmissionURL is where grades are reported when no credential file
// or environment override says otherwise.
const DefaultSubmissionURL = "https://grades.firstdraft.com"

// Settings holds the process-wide pipeline configuration. It is constructed
// once at startup and passed into the services explicitly; there is no
// settable package-level state.
type Settings struct {
	// SubmissionURL is the base URL of the grading service.
	SubmissionURL string `mapstructure:"submission_url"`

	// DefaultPoints is the point value assumed for examples that carry no
	// explicit points metadata. Always at least 1.
	DefaultPoints int `mapstructure:"default_points"`

	// OverrideLocalSpecs enables the spec synchronization step. When false
	// the upstream resource is never fetched and the local spec directory is
	// used as-is.
	OverrideLocalSpecs bool `mapstructure:"override_local_specs"`

	// EnvTokenVar names the environment variable consulted for a fallback
	// token when no file-stored token exists (sandboxed environments where
	// interactive prompting is unavailable).
	EnvTokenVar string `mapstructure:"env_token_var"`

	// ProjectRoot is the local working directory the pipeline operates on.
	ProjectRoot string `mapstructure:"project_root"`

	// SpecDir is the spec directory name, relative to ProjectRoot.
	SpecDir string `mapstructure:"spec_dir"`

	// OutputDir is where test runner output files are written, relative to
	// ProjectRoot.
	OutputDir string `mapstructure:"output_dir"`

	// ConfigDir and ConfigFile locate the credential record inside
	// ProjectRoot.
	ConfigDir  string `mapstructure:"config_dir"`
	ConfigFile string `mapstructure:"config_file"`

	// PrepCommand runs before the test suite (schema migration and the
	// like). Empty disables preparation. Failures are logged and ignored.
	PrepCommand []string `mapstructure:"prep_command"`

	// RunnerCommand invokes the external test runner. The {output}
	// placeholder is replaced with the prepared output file path.
	RunnerCommand []string `mapstructure:"runner_command"`

	// RunnerEnv is appended to the runner's environment.
	RunnerEnv []string `mapstructure:"runner_env"`

	// PromptAttempts bounds the interactive token prompt loop.
	PromptAttempts int `mapstructure:"prompt_attempts"`
}

// LoadSettings builds Settings from defaults and GRADERUNNER_* environment
// variables.
func LoadSettings() (Settings, error) {
	v := viper.New()

	setSettingsDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("GRADERUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"submission_url":       "GRADERUNNER_SUBMISSION_URL",
		"default_points":       "GRADERUNNER_DEFAULT_POINTS",
		"override_local_specs": "GRADERUNNER_OVERRIDE_LOCAL_SPECS",
		"spec_dir":             "GRADERUNNER_SPEC_DIR",
		"output_dir":           "GRADERUNNER_OUTPUT_DIR",
		"prompt_attempts":      "GRADERUNNER_PROMPT_ATTEMPTS",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("unable to decode settings: %w", err)
	}

	if settings.ProjectRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Settings{}, fmt.Errorf("failed to determine project root: %w", err)
		}
		settings.ProjectRoot = cwd
	}

	if settings.DefaultPoints < 1 {
		settings.DefaultPoints = 1
	}

	return settings, nil
}

func setSettingsDefaults(v *viper.Viper) {
	v.SetDefault("submission_url", DefaultSubmissionURL)
	v.SetDefault("default_points", 1)
	v.SetDefault("override_local_specs", true)
	v.SetDefault("env_token_var", "LTICI_GITPOD_APITOKEN")
	v.SetDefault("spec_dir", "spec")
	v.SetDefault("output_dir", "tmp/output")
	v.SetDefault("config_dir", ".vscode")
	v.SetDefault("config_file", ".ltici_apitoken.yml")
	v.SetDefault("prep_command", []string{"bin/rails", "db:migrate"})
	v.SetDefault("runner_command", []string{
		"bundle", "exec", "rspec",
		"--format", "JsonOutputFormatter",
		"--out", "{output}",
	})
	v.SetDefault("runner_env", []string{"RAILS_ENV=test"})
	v.SetDefault("prompt_attempts", 10)
}
