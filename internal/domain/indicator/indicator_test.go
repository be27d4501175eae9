package indicator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landportal/internal/core/apperror"
)

func registerAll(t *testing.T, c *Compounds, compounds []string, plain []string) {
	t.Helper()
	for _, id := range compounds {
		require.NoError(t, c.Register(id, true))
	}
	for _, id := range plain {
		require.NoError(t, c.Register(id, false))
	}
}

func TestCompounds_AddMember(t *testing.T) {
	c := NewCompounds()
	registerAll(t, c, []string{"C1", "C2"}, []string{"A", "B"})

	require.NoError(t, c.AddMember("C1", "A"))
	require.NoError(t, c.AddMember("C1", "B"))
	assert.Equal(t, []string{"A", "B"}, c.Members("C1"))

	parent, ok := c.CompoundOf("A")
	require.True(t, ok)
	assert.Equal(t, "C1", parent)
}

func TestCompounds_ReassignDetaches(t *testing.T) {
	c := NewCompounds()
	registerAll(t, c, []string{"C1", "C2"}, []string{"A"})

	require.NoError(t, c.AddMember("C1", "A"))
	require.NoError(t, c.AddMember("C2", "A"))

	assert.Empty(t, c.Members("C1"))
	assert.Equal(t, []string{"A"}, c.Members("C2"))
}

func TestCompounds_RejectsCycles(t *testing.T) {
	c := NewCompounds()
	registerAll(t, c, []string{"C1", "C2", "C3"}, []string{"A"})

	// C3 aggregates C2 which aggregates C1.
	require.NoError(t, c.AddMember("C3", "C2"))
	require.NoError(t, c.AddMember("C2", "C1"))
	require.NoError(t, c.AddMember("C1", "A"))

	tests := []struct {
		name      string
		compound  string
		candidate string
	}{
		{"self", "C1", "C1"},
		{"direct", "C1", "C2"},
		{"transitive", "C1", "C3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := c.Members(tt.compound)
			prev, hadPrev := c.CompoundOf(tt.candidate)

			err := c.AddMember(tt.compound, tt.candidate)
			assert.True(t, apperror.IsCycle(err))

			assert.Equal(t, before, c.Members(tt.compound))
			now, hasNow := c.CompoundOf(tt.candidate)
			assert.Equal(t, hadPrev, hasNow)
			assert.Equal(t, prev, now)
		})
	}

	assert.Equal(t, []string{"C2", "C1", "A"}, c.TransitiveMembers("C3"))

	containers, err := c.Containers("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2", "C3"}, containers)
}

func TestCompounds_TargetMustBeCompound(t *testing.T) {
	c := NewCompounds()
	registerAll(t, c, nil, []string{"A", "B"})

	assert.True(t, apperror.IsValidation(c.AddMember("A", "B")))
	assert.True(t, apperror.IsUnknownReference(c.AddMember("A", "missing")))
	assert.True(t, apperror.IsUnknownReference(c.AddMember("missing", "A")))
}

func TestCompounds_RegisterAndRemove(t *testing.T) {
	c := NewCompounds()
	registerAll(t, c, []string{"C1"}, []string{"A"})
	require.NoError(t, c.AddMember("C1", "A"))

	assert.True(t, apperror.IsIntegrity(c.Register("C1", false)))
	assert.True(t, c.IsCompound("C1"))
	assert.True(t, apperror.IsIntegrity(c.Remove("C1")))

	require.NoError(t, c.Remove("A"))
	assert.Empty(t, c.Members("C1"))
	require.NoError(t, c.Register("C1", false))
	assert.False(t, c.IsCompound("C1"))
}

func TestRelationships(t *testing.T) {
	ctx := context.Background()
	x := NewRelationships()

	require.NoError(t, x.Add(ctx, Relationship{ID: 1, Variant: Becomes, SourceID: "OLD", TargetID: "NEW"}))
	require.NoError(t, x.Add(ctx, Relationship{ID: 2, Variant: IsPartOf, SourceID: "OLD", TargetID: "NEW"}))

	err := x.Add(ctx, Relationship{ID: 3, Variant: Becomes, SourceID: "OLD", TargetID: "NEW"})
	assert.True(t, apperror.IsDuplicate(err))

	err = x.Add(ctx, Relationship{ID: 4, Variant: Becomes, SourceID: "A", TargetID: "A"})
	assert.True(t, apperror.IsDuplicate(err))

	err = x.Add(ctx, Relationship{ID: 5, Variant: "replaces", SourceID: "A", TargetID: "B"})
	assert.True(t, apperror.IsValidation(err))

	assert.Len(t, x.From("OLD"), 2)
	assert.Len(t, x.To("NEW"), 2)
	assert.Empty(t, x.To("OLD"))
	assert.Len(t, x.Involving("NEW"), 2)

	assert.True(t, x.Remove(1))
	assert.False(t, x.Remove(1))
	require.NoError(t, x.Add(ctx, Relationship{ID: 6, Variant: Becomes, SourceID: "OLD", TargetID: "NEW"}))
	assert.Len(t, x.All(), 2)
}

func TestIndicator_Validate(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, New("WB-SP.POP", "Population").Validate(ctx))
	require.NoError(t, NewCompound("LP-IDX", "Land index").Validate(ctx))

	assert.True(t, apperror.IsValidation((&Indicator{Variant: VariantPlain}).Validate(ctx)))
	assert.True(t, apperror.IsValidation((&Indicator{ID: "X"}).Validate(ctx)))

	group := int64(3)
	plain := New("X", "x")
	plain.GroupID = &group
	assert.True(t, apperror.IsValidation(plain.Validate(ctx)))

	assert.True(t, New("X", "a").Equal(*NewCompound("X", "b")))
}
