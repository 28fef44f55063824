package nonestore

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutIsNoOp(t *testing.T) {
	n := New()
	written, err := n.Put(context.Background(), []string{"/does/not/matter"}, "a", "p", false)
	require.Nil(t, err)
	assert.Zero(t, written)
}

func TestPutFromStreamDrainsAndCounts(t *testing.T) {
	n := New()
	written, err := n.PutFromStream(context.Background(), bytes.NewReader([]byte("some bytes")), "a", "p")
	require.Nil(t, err)
	assert.Equal(t, int64(len("some bytes")), written)
}

func TestExistsAlwaysFalse(t *testing.T) {
	n := New()
	exists, err := n.Exists(context.Background(), "a", "p")
	require.Nil(t, err)
	assert.False(t, exists)
}

func TestRetrieveFails(t *testing.T) {
	n := New()
	_, err := n.Retrieve(context.Background(), "a", "p", t.TempDir(), false)
	assert.NotNil(t, err)
}

func TestTempWorkspaceStillUsable(t *testing.T) {
	n := New()
	ws, err := n.TempWorkspace(context.Background())
	require.Nil(t, err)
	assert.NotEmpty(t, ws.Dir())
	require.NoError(t, ws.Close())
}
