package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

func TestSubmissionCache_OnlyCompleted(t *testing.T) {
	c, err := NewSubmissionCache(4)
	require.NoError(t, err)

	assert.False(t, c.Put(&client.Submission{SID: "s1", State: client.SubmissionStateSubmitted}))
	assert.False(t, c.Put(nil))
	assert.True(t, c.Put(&client.Submission{SID: "s2", State: client.SubmissionStateCompleted}))

	_, ok := c.Get("s1")
	assert.False(t, ok)
	got, ok := c.Get("s2")
	require.True(t, ok)
	assert.Equal(t, "s2", got.SID)

	assert.Equal(t, 1, c.Len())
}

func TestSubmissionCache_Evicts(t *testing.T) {
	c, err := NewSubmissionCache(2)
	require.NoError(t, err)
	for _, sid := range []string{"a", "b", "c"} {
		c.Put(&client.Submission{SID: sid, State: client.SubmissionStateCompleted})
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestNewSubmissionCache_InvalidSize(t *testing.T) {
	_, err := NewSubmissionCache(0)
	assert.Error(t, err)
}
