package integration_tests

import (
	"testing"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, name, graph string) *app.App {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		GraphPath: app.WriteGraph(t, name, graph),
		Engine:    app.TestEngineConfig(),
	})
	require.NoError(t, err)
	testApp, out, _ := app.SetupAppTest(t, cfg)
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("summary:\n%s", out.String())
		}
	})
	return testApp
}
