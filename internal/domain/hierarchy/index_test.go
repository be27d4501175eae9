package hierarchy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landportal/internal/core/apperror"
)

// chain builds n0 <- n1 <- ... <- n(n-1), returning the leaf.
func chain(t *testing.T, x *Index[string], n int) string {
	t.Helper()
	for i := 0; i < n; i++ {
		x.Add(fmt.Sprintf("n%d", i))
	}
	for i := 1; i < n; i++ {
		require.NoError(t, x.SetParent(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i-1)))
	}
	return fmt.Sprintf("n%d", n-1)
}

func TestAncestors_ChainLength(t *testing.T) {
	for _, n := range []int{1, 2, 5, 20} {
		x := New[string]("org.is_part_of")
		leaf := chain(t, x, n)

		got, err := x.Ancestors(leaf)
		require.NoError(t, err)
		assert.Len(t, got, n)
		assert.Equal(t, leaf, got[0])
		assert.Equal(t, "n0", got[len(got)-1])

		root, err := x.Root(leaf)
		require.NoError(t, err)
		assert.Equal(t, "n0", root)
	}
}

func TestSetParent_RejectsCycles(t *testing.T) {
	x := New[string]("org.is_part_of")
	leaf := chain(t, x, 4) // n0 <- n1 <- n2 <- n3

	tests := []struct {
		name      string
		child     string
		candidate string
	}{
		{"self", "n2", "n2"},
		{"direct", "n0", "n1"},
		{"transitive", "n0", leaf},
		{"middle", "n1", "n3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beforeChild, childHad := x.Parent(tt.child)
			beforeCand, candHad := x.Parent(tt.candidate)

			err := x.SetParent(tt.child, tt.candidate)
			require.Error(t, err)
			assert.True(t, apperror.IsCycle(err))

			afterChild, childHas := x.Parent(tt.child)
			afterCand, candHas := x.Parent(tt.candidate)
			assert.Equal(t, childHad, childHas)
			assert.Equal(t, beforeChild, afterChild)
			assert.Equal(t, candHad, candHas)
			assert.Equal(t, beforeCand, afterCand)
		})
	}
}

func TestSetParent_UnknownIDs(t *testing.T) {
	x := New[int64]("region.is_part_of")
	x.Add(1)

	assert.True(t, apperror.IsUnknownReference(x.SetParent(1, 2)))
	assert.True(t, apperror.IsUnknownReference(x.SetParent(2, 1)))
	_, err := x.Ancestors(99)
	assert.True(t, apperror.IsUnknownReference(err))
}

func TestSetParent_MovesBetweenParents(t *testing.T) {
	x := New[string]("org.is_part_of")
	for _, k := range []string{"a", "b", "c"} {
		x.Add(k)
	}
	require.NoError(t, x.SetParent("c", "a"))
	require.NoError(t, x.SetParent("c", "b"))

	assert.Empty(t, x.Children("a"))
	assert.Equal(t, []string{"c"}, x.Children("b"))
	p, ok := x.Parent("c")
	require.True(t, ok)
	assert.Equal(t, "b", p)

	x.ClearParent("c")
	_, ok = x.Parent("c")
	assert.False(t, ok)
	assert.Empty(t, x.Children("b"))
}

func TestAncestors_DetectsCorruptCycle(t *testing.T) {
	x := New[string]("org.is_part_of")
	x.Add("a")
	x.Add("b")
	// Simulate a cycle that bypassed SetParent (e.g. corrupt storage rows).
	x.parent["a"] = "b"
	x.parent["b"] = "a"

	_, err := x.Ancestors("a")
	assert.True(t, apperror.IsCycle(err))
}

func TestRemove(t *testing.T) {
	t.Run("fails with children", func(t *testing.T) {
		x := New[string]("org.is_part_of")
		chain(t, x, 3)

		_, err := x.Remove("n1", FailIfChildren)
		assert.True(t, apperror.IsIntegrity(err))
		assert.True(t, x.Has("n1"))
	})

	t.Run("reparents children to grandparent", func(t *testing.T) {
		x := New[string]("org.is_part_of")
		chain(t, x, 3)

		moved, err := x.Remove("n1", ReparentChildren)
		require.NoError(t, err)
		assert.Equal(t, []string{"n2"}, moved)
		assert.False(t, x.Has("n1"))

		p, ok := x.Parent("n2")
		require.True(t, ok)
		assert.Equal(t, "n0", p)
		assert.Equal(t, []string{"n2"}, x.Children("n0"))
	})

	t.Run("reparenting a root's children makes them roots", func(t *testing.T) {
		x := New[string]("org.is_part_of")
		chain(t, x, 2)

		_, err := x.Remove("n0", ReparentChildren)
		require.NoError(t, err)
		_, ok := x.Parent("n1")
		assert.False(t, ok)
	})
}

func TestClone_IsIndependent(t *testing.T) {
	x := New[string]("org")
	for _, k := range []string{"UN", "FAO", "WFP"} {
		x.Add(k)
	}
	require.NoError(t, x.SetParent("FAO", "UN"))

	c := x.Clone()
	c.Add("IFAD")
	require.NoError(t, c.SetParent("IFAD", "UN"))
	require.NoError(t, c.SetParent("FAO", "WFP"))

	assert.False(t, x.Has("IFAD"))
	assert.Equal(t, []string{"FAO"}, x.Children("UN"))
	p, ok := x.Parent("FAO")
	require.True(t, ok)
	assert.Equal(t, "UN", p)
	assert.Equal(t, []string{"IFAD"}, c.Children("UN"))
}
