package statestore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
	"github.com/vk/provisiongrid/internal/testutil"
)

func sampleSnapshot() []graph.NodeStatus {
	return []graph.NodeStatus{
		{
			ID:      nodeid.MustParse("project.main"),
			Kind:    node.KindOperation,
			State:   node.StateComplete,
			Outputs: map[string]any{"id": "proj-1", "labels": map[string]any{"team": "media"}, "quota": 5},
		},
		{ID: nodeid.MustParse("gate.propagation"), Kind: node.KindGate, State: node.StateComplete, Outputs: map[string]any{}},
		{ID: nodeid.MustParse("cloud_function.tts"), Kind: node.KindOperation, State: node.StateFailed, Err: errors.New("quota exceeded")},
		{ID: nodeid.MustParse("api_gateway.gateway"), Kind: node.KindOperation, State: node.StateDependencyFailed},
	}
}

func TestFile_SaveLoad(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	store := NewFile(filepath.Join(t.TempDir(), "nested", "state.yaml"))
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	saved := FromSnapshot("run-1", sampleSnapshot(), now)

	// --- Act ---
	require.NoError(t, store.Save(ctx, saved))
	loaded, err := store.Load(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.True(t, now.Equal(loaded.SavedAt))
	require.Len(t, loaded.Nodes, 4)
	assert.Equal(t, nodeid.MustParse("cloud_function.tts"), loaded.Nodes[2].ID)
	assert.Equal(t, node.StateFailed, loaded.Nodes[2].State)
	assert.Equal(t, "quota exceeded", loaded.Nodes[2].Error)
	assert.Nil(t, loaded.Nodes[2].Outputs)
	assert.Equal(t, "gate", loaded.Nodes[1].Kind)

	live := loaded.Live()
	assert.Len(t, live, 2)
	assert.Equal(t, "proj-1", live[nodeid.MustParse("project.main")]["id"])
	assert.Equal(t, 5, live[nodeid.MustParse("project.main")]["quota"])
	assert.Equal(t, map[string]any{}, live[nodeid.MustParse("gate.propagation")])

	entries, err := os.ReadDir(filepath.Dir(store.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFile_LoadMissing(t *testing.T) {
	ctx, _ := testutil.Context(t)
	store := NewFile(filepath.Join(t.TempDir(), "state.yaml"))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_LoadCorrupt(t *testing.T) {
	ctx, _ := testutil.Context(t)
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes: [\n  - id: 12"), 0o644))

	_, err := NewFile(path).Load(ctx)
	assert.ErrorContains(t, err, "failed to parse state file")
}

func TestState_Retain(t *testing.T) {
	s := FromSnapshot("run-1", sampleSnapshot(), time.Now())

	kept := s.Retain([]nodeid.ID{nodeid.MustParse("project.main")})

	require.Len(t, kept.Nodes, 1)
	assert.Equal(t, "run-1", kept.RunID)
	assert.False(t, kept.Empty())
	assert.True(t, s.Retain(nil).Empty())
}
