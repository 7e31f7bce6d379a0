package canvas

import (
	"encoding/json"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

func TestMutationInvertRoundTrip(t *testing.T) {
	conn := patch.ConnectionInfo{Src: patch.NewHandle(), Dst: patch.NewHandle()}
	tests := []Mutation{
		geometryMutation(patch.NewHandle(), image.Rect(0, 0, 10, 10), image.Rect(5, 5, 15, 15)),
		connectionMutation(MutationConnect, conn),
		{Kind: MutationCreate, Handle: patch.NewHandle(), Text: "osc~"},
	}
	for _, m := range tests {
		t.Run(string(m.Kind), func(t *testing.T) {
			inv := m.Invert()
			assert.NotEqual(t, m, inv)
			assert.Equal(t, m, inv.Invert())
		})
	}
}

func TestMutationUndoMove(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	rec := &recorder{}
	c := newTestCanvas(t, m, rec)

	c.PressNode(c.Node(a), 0)
	c.DragNodes(image.Pt(30, 0))
	c.ReleaseNodes(0)
	require.Len(t, rec.mutations, 1)

	require.NoError(t, rec.mutations[0].Invert().Apply(m))
	assert.Equal(t, image.Pt(0, 0), unitBounds(t, m, a).Min)
}

func TestMutationJSON(t *testing.T) {
	conn := patch.ConnectionInfo{Src: patch.NewHandle(), Outlet: 1, Dst: patch.NewHandle(), Inlet: 2}
	data, err := json.Marshal(connectionMutation(MutationDisconnect, conn))
	require.NoError(t, err)

	var back Mutation
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Connection)
	assert.Equal(t, conn, *back.Connection)
	assert.Equal(t, MutationDisconnect, back.Kind)
	assert.NotContains(t, string(data), "before")
}
