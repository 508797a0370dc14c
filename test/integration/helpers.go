//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	APIURL    string
	AccessKey string
	SecretKey string
	TypeName  string
	GdapiPath string
	Verbose   bool
	RedisAddr string
	NATSURL   string
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		APIURL:    os.Getenv("GDAPI_TEST_URL"),
		AccessKey: os.Getenv("GDAPI_TEST_ACCESS_KEY"),
		SecretKey: os.Getenv("GDAPI_TEST_SECRET_KEY"),
		TypeName:  os.Getenv("GDAPI_TEST_TYPE"),
		GdapiPath: getGdapiPath(),
		Verbose:   os.Getenv("GDAPI_VERBOSE") == "true",
		RedisAddr: os.Getenv("GDAPI_TEST_REDIS_ADDR"),
		NATSURL:   os.Getenv("GDAPI_TEST_NATS_URL"),
	}
}

// getGdapiPath determines the path to the gdapi binary
func getGdapiPath() string {
	if path := os.Getenv("GDAPI_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../gdapi",
		"./gdapi",
		"../gdapi",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "gdapi"
}

// SkipIfNoAPI skips the test unless a live API is configured.
func (config *TestConfig) SkipIfNoAPI(t *testing.T) {
	t.Helper()

	if config.APIURL == "" {
		t.Skip("GDAPI_TEST_URL not set, skipping integration test")
	}
}

// SkipIfNoBinary skips the test unless the CLI binary can be found.
func (config *TestConfig) SkipIfNoBinary(t *testing.T) {
	t.Helper()

	config.SkipIfNoAPI(t)

	if _, err := exec.LookPath(config.GdapiPath); err != nil {
		t.Skipf("gdapi binary not found at %s, skipping integration test", config.GdapiPath)
	}
}

// CommandRunner runs the gdapi CLI against the configured API.
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		t:      t,
	}
}

// Run executes a gdapi command with the API flags prepended.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	full := append([]string{
		"--api", runner.config.APIURL,
		"--access-key", runner.config.AccessKey,
		"--secret-key", runner.config.SecretKey,
	}, args...)

	cmd := exec.Command(runner.config.GdapiPath, full...) //nolint:gosec // test binary path

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.GdapiPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// RunJSON executes a command with JSON output and decodes the result.
func (runner *CommandRunner) RunJSON(out any, args ...string) error {
	stdout, stderr, err := runner.Run(append(args, "--output", "json")...)
	if err != nil {
		runner.t.Logf("stderr: %s", stderr)

		return err
	}

	return json.Unmarshal([]byte(stdout), out)
}
