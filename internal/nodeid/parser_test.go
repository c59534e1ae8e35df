package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		expectErr   bool
		expectedRef PortRef
	}{
		{
			name:        "simple reference",
			raw:         "fetch.body",
			expectedRef: PortRef{Node: "fetch", Port: "body"},
		},
		{
			name:        "dotted node id splits at the last dot",
			raw:         "stage.one.out",
			expectedRef: PortRef{Node: "stage.one", Port: "out"},
		},
		{
			name:        "hyphens and underscores",
			raw:         "http-client.status_code",
			expectedRef: PortRef{Node: "http-client", Port: "status_code"},
		},
		{name: "error - no port", raw: "fetch", expectErr: true},
		{name: "error - trailing dot", raw: "fetch.", expectErr: true},
		{name: "error - leading dot", raw: ".body", expectErr: true},
		{name: "error - empty string", raw: "", expectErr: true},
		{name: "error - invalid port characters", raw: "a.b[0]", expectErr: true},
		{name: "error - empty node segment", raw: "a..b", expectErr: true},
		{name: "error - just hyphen port", raw: "a.-", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := Parse(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedRef, ref)
		})
	}
}

func TestPortRef_RoundTrip(t *testing.T) {
	for _, raw := range []string{"a.b", "stage.one.out", "http-client.get"} {
		t.Run(raw, func(t *testing.T) {
			ref, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, ref.String())
		})
	}
	assert.Equal(t, "whole", PortRef{Node: "whole"}.String())
}

func TestResolve(t *testing.T) {
	nodes := map[string]bool{"in": true, "stage.one": true}
	has := func(id string) bool { return nodes[id] }

	ref, err := Resolve("in", has)
	require.NoError(t, err)
	assert.True(t, ref.WholeNode())

	ref, err = Resolve("stage.one", has)
	require.NoError(t, err)
	assert.Equal(t, PortRef{Node: "stage.one"}, ref)

	ref, err = Resolve("stage.one.value", has)
	require.NoError(t, err)
	assert.Equal(t, PortRef{Node: "stage.one", Port: "value"}, ref)

	_, err = Resolve("ghost.value", has)
	assert.ErrorContains(t, err, `unknown node "ghost"`)
}

func TestValidNodeID(t *testing.T) {
	assert.NoError(t, ValidNodeID("a-b_c.d"))
	assert.Error(t, ValidNodeID(""))
	assert.Error(t, ValidNodeID(".."))
	assert.Error(t, ValidNodeID("a b"))
}
