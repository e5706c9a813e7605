package ordering_test

import (
	"testing"

	"github.com/forbearing/admincore/internal/ordering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortPriorityAfterRegistration(t *testing.T) {
	// A(75), B(50, after: a), C(50) -> observed order A, C, B (spec scenario 3).
	entries := []ordering.Entry{
		{ID: "a", Priority: 75, Seq: 0},
		{ID: "b", Priority: 50, After: []string{"a"}, Seq: 1},
		{ID: "c", Priority: 50, Seq: 2},
	}
	out, err := ordering.Sort(entries)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

func TestSortCycleDetected(t *testing.T) {
	entries := []ordering.Entry{
		{ID: "a", After: []string{"b"}},
		{ID: "b", After: []string{"a"}},
	}
	_, err := ordering.Sort(entries)
	require.Error(t, err)
}

func TestSortRegistrationOrderOnTies(t *testing.T) {
	entries := []ordering.Entry{
		{ID: "x", Priority: 50, Seq: 0},
		{ID: "y", Priority: 50, Seq: 1},
		{ID: "z", Priority: 50, Seq: 2},
	}
	out, err := ordering.Sort(entries)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, []string{out[0].ID, out[1].ID, out[2].ID})
}
