//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	APIEndpoint string
	ChainSlug   string
	RedisAddr   string
	NATSURL     string
	BinaryPath  string
	Verbose     bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		APIEndpoint: os.Getenv("XEXPLORER_TEST_API"),
		ChainSlug:   os.Getenv("XEXPLORER_TEST_CHAIN"),
		RedisAddr:   os.Getenv("XEXPLORER_TEST_REDIS_ADDR"),
		NATSURL:     os.Getenv("XEXPLORER_TEST_NATS_URL"),
		BinaryPath:  getBinaryPath(),
		Verbose:     os.Getenv("XEXPLORER_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the xexplorer binary.
func getBinaryPath() string {
	if path := os.Getenv("XEXPLORER_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../xexplorer",
		"./xexplorer",
		"../xexplorer",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "xexplorer"
}

// SkipIfMissingAPI skips the test when no explorer endpoint is configured.
func (config *TestConfig) SkipIfMissingAPI(t *testing.T) {
	t.Helper()

	if config.APIEndpoint == "" {
		t.Skip("XEXPLORER_TEST_API not set, skipping integration test")
	}
}

// SkipIfMissingBinary skips the test when the CLI binary is not built.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	config.SkipIfMissingAPI(t)

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("xexplorer binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// CommandRunner runs xexplorer commands against the configured endpoint.
type CommandRunner struct {
	config    *TestConfig
	t         *testing.T
	configDir string
}

// NewCommandRunner creates a runner with an isolated config file.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:    config,
		t:         t,
		configDir: t.TempDir(),
	}
}

// Run executes an xexplorer command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	base := []string{
		"--config", runner.configDir + "/config.yml",
		"--api", runner.config.APIEndpoint,
	}
	if runner.config.ChainSlug != "" {
		base = append(base, "--chain", runner.config.ChainSlug)
	}

	cmd := exec.Command(runner.config.BinaryPath, append(base, args...)...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// AssertJSONOutput validates that output is valid JSON.
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &doc), "output is not valid JSON: %s", output)
}
