package association

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembership_LinkIsIdempotent(t *testing.T) {
	m := NewMembership[string, string]()

	assert.True(t, m.Link("D", "A"))
	assert.False(t, m.Link("D", "A"))
	assert.Equal(t, 1, m.Len())

	assert.Equal(t, []string{"A"}, m.Rights("D"))
	assert.Equal(t, []string{"D"}, m.Lefts("A"))
}

func TestMembership_ViewsAgree(t *testing.T) {
	m := NewMembership[string, string]()
	m.Link("D1", "A")
	m.Link("D1", "B")
	m.Link("D2", "A")

	for _, p := range m.Pairs() {
		assert.Contains(t, m.Rights(p.Left), p.Right)
		assert.Contains(t, m.Lefts(p.Right), p.Left)
	}
	assert.Equal(t, []string{"D1", "D2"}, m.Lefts("A"))
}

func TestMembership_UnlinkScenario(t *testing.T) {
	m := NewMembership[string, string]()
	m.Link("D", "A")
	m.Link("D", "B")

	assert.True(t, m.Unlink("D", "A"))
	assert.False(t, m.Unlink("D", "A"))

	assert.Equal(t, []string{"B"}, m.Rights("D"))
	assert.NotContains(t, m.Lefts("A"), "D")
	assert.Equal(t, 1, m.Len())
}

func TestMembership_UnlinkSide(t *testing.T) {
	m := NewMembership[string, string]()
	m.Link("D1", "A")
	m.Link("D1", "B")
	m.Link("D2", "A")

	assert.Equal(t, []string{"D1", "D2"}, m.UnlinkRight("A"))
	assert.Empty(t, m.Lefts("A"))
	assert.Equal(t, []string{"B"}, m.Rights("D1"))
	assert.Empty(t, m.Rights("D2"))

	assert.Equal(t, []string{"B"}, m.UnlinkLeft("D1"))
	assert.Equal(t, 0, m.Len())
}

func TestContainment_AttachMoves(t *testing.T) {
	x := NewContainment[string, string]()

	_, moved := x.Attach("S1", "O1")
	assert.False(t, moved)
	x.Attach("S1", "O2")

	prev, moved := x.Attach("S2", "O1")
	require.True(t, moved)
	assert.Equal(t, "S1", prev)

	assert.Equal(t, []string{"O2"}, x.Children("S1"))
	assert.Equal(t, []string{"O1"}, x.Children("S2"))
	p, ok := x.Parent("O1")
	require.True(t, ok)
	assert.Equal(t, "S2", p)
	assert.Equal(t, 2, x.Len())
}

func TestContainment_ReattachSameParentKeepsOrder(t *testing.T) {
	x := NewContainment[string, int64]()
	x.Attach("R", 1)
	x.Attach("R", 2)
	x.Attach("R", 1)

	assert.Equal(t, []int64{1, 2}, x.Children("R"))
}

func TestContainment_Detach(t *testing.T) {
	x := NewContainment[string, string]()
	x.Attach("P", "a")
	x.Attach("P", "b")

	children := x.Children("P")
	assert.True(t, x.Detach("a"))
	assert.False(t, x.Detach("a"))
	assert.Equal(t, []string{"a", "b"}, children, "returned slices are copies")
	assert.Equal(t, []string{"b"}, x.Children("P"))

	assert.Equal(t, []string{"b"}, x.DetachAll("P"))
	assert.False(t, x.HasChildren("P"))
	_, ok := x.Parent("b")
	assert.False(t, ok)
	assert.Empty(t, x.Parents())
}

func TestClone_IsIndependent(t *testing.T) {
	m := NewMembership[string, string]()
	m.Link("D", "A")
	mc := m.Clone()
	mc.Link("D", "B")
	mc.Unlink("D", "A")
	assert.Equal(t, []string{"A"}, m.Rights("D"))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{"B"}, mc.Rights("D"))

	x := NewContainment[string, string]()
	x.Attach("D", "S1")
	xc := x.Clone()
	xc.Attach("D", "S2")
	xc.Attach("E", "S1")
	assert.Equal(t, []string{"S1"}, x.Children("D"))
	p, ok := x.Parent("S1")
	require.True(t, ok)
	assert.Equal(t, "D", p)
	assert.Equal(t, []string{"S2"}, xc.Children("D"))
}
