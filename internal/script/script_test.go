package script_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nm3210/mpgc/gc"
	"github.com/nm3210/mpgc/internal/script"
)

func TestParseSkipsBlankAndCommentLines(t *testing.T) {
	cmds, err := script.Parse(strings.NewReader("\n# comment\nalloc 16\n"))
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, script.OpAlloc, cmds[0].Op)
	assert.EqualValues(t, 16, cmds[0].NBytes)
}

func TestParseAllocFlags(t *testing.T) {
	cmds, err := script.Parse(strings.NewReader("alloc 32 finalizer=true longlived=true"))
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.True(t, cmds[0].Finalizer)
	assert.True(t, cmds[0].LongLived)
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	_, err := script.Parse(strings.NewReader("frobnicate 1"))
	assert.Error(t, err)
}

func TestParseHandleReferences(t *testing.T) {
	cmds, err := script.Parse(strings.NewReader("alloc 8\nfree $0\npin $0\nlonglived $0\ncollect\n"))
	require.NoError(t, err)
	require.Len(t, cmds, 5)
	assert.Equal(t, 0, cmds[1].Handle)
	assert.Equal(t, script.OpPin, cmds[2].Op)
	assert.Equal(t, script.OpLongLived, cmds[3].Op)
	assert.Equal(t, script.OpCollect, cmds[4].Op)
}

func TestExecutorReplaysAllocAndFree(t *testing.T) {
	region := make([]byte, 4096)
	h, err := gc.New(region)
	require.NoError(t, err)

	cmds, err := script.Parse(strings.NewReader("alloc 32\nfree $0\n"))
	require.NoError(t, err)

	exec := script.NewExecutor(h)
	out, err := exec.Run(cmds)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestExecutorPinSurvivesCollect(t *testing.T) {
	region := make([]byte, 4096)
	h, err := gc.New(region)
	require.NoError(t, err)

	cmds, err := script.Parse(strings.NewReader("alloc 32\npin $0\ncollect\n"))
	require.NoError(t, err)

	exec := script.NewExecutor(h)
	_, err = exec.Run(cmds)
	require.NoError(t, err)

	ptr, err := exec.Step(script.Command{Op: script.OpFree, Handle: 99})
	assert.Error(t, err)
	assert.Empty(t, ptr)

	// NeverFree refuses a reclaimed pointer, so pinning $0 again only
	// succeeds if it survived the collection.
	_, err = exec.Step(script.Command{Op: script.OpPin, Handle: 0})
	require.NoError(t, err)
}
