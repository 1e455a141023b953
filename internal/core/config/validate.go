package config

import (
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// addresses, URLs and file accessibility. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		criterio.Run("server.addr", c.Server.Addr, validAddr),
		criterio.Run("llm.base_url", c.LLM.BaseURL, validBaseURL),
		c.validateGoogleTasks(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.LLM.APIKey == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "LLM",
			Item:     "api_key",
			Message:  fmt.Sprintf("no API key configured and %s is unset; generation will fail", EnvAPIKey),
		})
	}

	if c.Database.MaxOpenConns == 1 && c.Generation.Concurrency > 1 {
		warnings = append(warnings, ValidationWarning{
			Category: "Generation",
			Item:     "concurrency",
			Message:  "concurrency above 1 has no effect with a single database connection",
		})
	}

	return warnings
}

// validateFileAccess checks config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// validateGoogleTasks checks explicitly configured OAuth files exist.
// Defaults inside the data directory are only required when exporting.
func (c *Config) validateGoogleTasks() error {
	var errs criterio.FieldErrorsBuilder

	if path := c.GoogleTasks.CredentialsFile; path != "" {
		if err := isRegularFile(path); err != nil {
			errs = errs.Append("google_tasks.credentials_file", err)
		}
	}
	if c.GoogleTasks.TaskList == "" {
		errs = errs.Append("google_tasks.task_list", fmt.Errorf("cannot be empty"))
	}

	return errs.ToError()
}

func validAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

func validBaseURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func isRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
