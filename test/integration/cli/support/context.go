package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	TempDir string

	// Command execution state
	LastCommand string
	LastOutput  string
	LastError   error

	// HTTP state
	Server             *ServerHarness
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string

	// Descriptor state
	Descriptor metadata.Object
	LastAngle  float64
	LastErr    error
}

// NewTestContext creates a context with a fresh temporary directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "metascan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{TempDir: tempDir, LastHTTPHeaders: map[string]string{}}, nil
}

// Cleanup stops the server and removes the temporary directory.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// Path resolves name inside the scenario's temporary directory.
func (testCtx *TestContext) Path(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// expand replaces {tmp} with the temporary directory.
func (testCtx *TestContext) expand(s string) string {
	return strings.ReplaceAll(s, "{tmp}", testCtx.TempDir)
}
