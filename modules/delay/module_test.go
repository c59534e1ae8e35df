package delay

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/specialistvlad/gridflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func node(cfg map[string]any) *model.Node {
	n := &model.Node{ID: "wait", Kind: Name, Config: cfg}
	n.Inputs, n.Outputs = (&Kind{}).Ports(n)
	return n
}

func TestCheck(t *testing.T) {
	k := &Kind{}
	testCases := []struct {
		name    string
		cfg     map[string]any
		wantErr string
	}{
		{name: "seconds", cfg: map[string]any{"seconds": 0.5}},
		{name: "string seconds", cfg: map[string]any{"seconds": "2"}},
		{name: "no config", cfg: nil},
		{name: "negative", cfg: map[string]any{"seconds": -1}, wantErr: "must not be negative"},
		{name: "unknown key", cfg: map[string]any{"secs": 1}, wantErr: "invalid config"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := k.Check(node(tc.cfg))
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestUnit_WaitsAndPassesThrough(t *testing.T) {
	ctx, _ := testutil.Context(t)
	u, err := (&Kind{}).Unit(node(map[string]any{"seconds": 0.05}), nil)
	require.NoError(t, err)

	start := time.Now()
	out, err := u.(script.Func)(ctx, map[string]cty.Value{"value": cty.StringVal("x")})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, map[string]cty.Value{"value": cty.StringVal("x")}, out)
}

func TestUnit_Cancelled(t *testing.T) {
	ctx, _ := testutil.Context(t)
	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	u, err := (&Kind{}).Unit(node(map[string]any{"seconds": 10}), nil)
	require.NoError(t, err)
	_, err = u.(script.Func)(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
