package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/testutil"
)

// TestEngineConfig returns engine settings suitable for tests: debug logs,
// short timeouts and no color.
func TestEngineConfig() config.Engine {
	return config.Engine{
		NodeTimeout:    10 * time.Second,
		MaxOutputBytes: 1 << 20,
		LogLevel:       "debug",
		LogFormat:      "text",
		EventsAddr:     "127.0.0.1:0",
	}
}

// WriteGraph writes a graph document into a temp dir and returns its path.
func WriteGraph(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write graph file: %v", err)
	}
	return path
}

// SetupAppTest creates a new app instance for system testing. It returns
// the app, the summary output and the captured logs.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	out := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	cfg.NoColor = true
	testApp, err := NewApp(context.Background(), out, logs, cfg, modules...)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	t.Cleanup(func() {
		_ = testApp.Close(context.Background())
		if os.Getenv("GRIDFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return testApp, out, logs
}
