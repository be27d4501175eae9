package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/hierarchy"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/translation"
	"landportal/internal/domain/value"
)

func pendingKinds(refs []entity.Ref) []entity.Kind {
	out := make([]entity.Kind, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Kind)
	}
	return out
}

func TestDeleteOrganization_Policies(t *testing.T) {
	f := newFixture(t)
	f.org("UN", nil)
	f.org("FAO", ptr("UN"))
	f.org("ESS", ptr("FAO"))

	err := f.c.DeleteOrganization(f.ctx, "FAO", hierarchy.FailIfChildren)
	assert.True(t, apperror.IsIntegrity(err))
	_, err = f.c.GetOrganization("FAO")
	require.NoError(t, err, "nothing removed")

	require.NoError(t, f.c.DeleteOrganization(f.ctx, "FAO", hierarchy.ReparentChildren))

	ess, err := f.c.GetOrganization("ESS")
	require.NoError(t, err)
	require.NotNil(t, ess.PartOfID)
	assert.Equal(t, "UN", *ess.PartOfID)

	_, err = f.c.GetOrganization("FAO")
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, []entity.Ref{{Kind: entity.KindOrganization, Key: "FAO"}}, f.c.Pending())
}

func TestDeleteOrganization_BlockedByDataSources(t *testing.T) {
	f := newFixture(t)
	f.org("FAO", nil)
	f.source("FAOSTAT", "FAO")

	err := f.c.DeleteOrganization(f.ctx, "FAO", hierarchy.ReparentChildren)
	assert.True(t, apperror.IsIntegrity(err))

	require.NoError(t, f.c.DeleteDataSource(f.ctx, "FAOSTAT"))
	require.NoError(t, f.c.DeleteOrganization(f.ctx, "FAO", hierarchy.FailIfChildren))
	assert.Zero(t, f.c.Stats().Organizations)
}

func TestDeleteOrganization_DropsTranslations(t *testing.T) {
	f := newFixture(t)
	f.languages("en", "es")
	f.org("FAO", nil)
	require.NoError(t, f.c.AddTranslation(f.ctx, entity.KindOrganization, "FAO", "en", translation.Fields{Name: "FAO"}))
	require.NoError(t, f.c.AddTranslation(f.ctx, entity.KindOrganization, "FAO", "es", translation.Fields{Name: "FAO"}))

	require.NoError(t, f.c.DeleteOrganization(f.ctx, "FAO", hierarchy.FailIfChildren))

	assert.Equal(t,
		[]entity.Kind{entity.KindTranslation, entity.KindTranslation, entity.KindOrganization},
		pendingKinds(f.c.Pending()))

	f.org("FAO", nil)
	rows, err := f.c.Translations(entity.KindOrganization, "FAO")
	require.NoError(t, err)
	assert.Empty(t, rows, "re-added organization starts without translations")
}

func TestDeleteDataset_Integrity(t *testing.T) {
	f := newFixture(t)
	f.dataset("D", "")
	f.indicator("A")
	y := f.year(2020)
	f.slice("S", "D", "A", y)

	assert.True(t, apperror.IsIntegrity(f.c.DeleteDataset(f.ctx, "D")), "slices")

	require.NoError(t, f.c.DeleteSlice(f.ctx, "S"))
	assert.True(t, apperror.IsIntegrity(f.c.DeleteDataset(f.ctx, "D")), "still linked")

	_, err := f.c.UnlinkIndicator(f.ctx, "D", "A")
	require.NoError(t, err)
	require.NoError(t, f.c.DeleteDataset(f.ctx, "D"))

	assert.Equal(t,
		[]entity.Kind{entity.KindSlice, entity.KindMembership, entity.KindDataset},
		pendingKinds(f.c.Pending()))

	// The uniqueness key of the deleted slice is free again.
	f.dataset("D", "")
	f.slice("S2", "D", "A", y)
}

func TestDeleteSlice_BlockedByObservations(t *testing.T) {
	f := newFixture(t)
	f.dataset("D", "")
	f.indicator("A")
	y := f.year(2020)
	f.slice("S", "D", "A", y)
	v := f.value("1")

	_, err := f.c.RecordObservation(f.ctx, dataset.Observation{ID: "O", ValueID: v, IndicatorID: "A", DatasetID: "D", SliceID: ptr("S")})
	require.NoError(t, err)

	assert.True(t, apperror.IsIntegrity(f.c.DeleteSlice(f.ctx, "S")))
	assert.True(t, apperror.IsIntegrity(f.c.DeleteIndicator(f.ctx, "A")))
	assert.True(t, apperror.IsIntegrity(f.c.DeleteDimension(f.ctx, y, hierarchy.FailIfChildren)))

	require.NoError(t, f.c.DeleteObservation(f.ctx, "O"))
	require.NoError(t, f.c.DeleteSlice(f.ctx, "S"))

	_, err = f.c.GetValue(v)
	assert.NoError(t, err, "values outlive their observations")
}

func TestDeleteIndicator(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.AddTopic(f.ctx, indicator.Topic{ID: "LAND", Name: "Land"})
	require.NoError(t, err)
	f.compound("X")
	ind := indicator.New("A", "A")
	ind.TopicID = ptr("LAND")
	ind.CompoundID = ptr("X")
	_, err = f.c.AddIndicator(f.ctx, *ind)
	require.NoError(t, err)
	f.indicator("B")

	r, err := f.c.AddRelationship(f.ctx, indicator.Relationship{Variant: indicator.Becomes, SourceID: "A", TargetID: "B"})
	require.NoError(t, err)

	assert.True(t, apperror.IsIntegrity(f.c.DeleteIndicator(f.ctx, "A")), "relationship")
	assert.True(t, apperror.IsIntegrity(f.c.DeleteIndicator(f.ctx, "X")), "compound with members")
	assert.True(t, apperror.IsIntegrity(f.c.DeleteTopic(f.ctx, "LAND")))

	require.NoError(t, f.c.DeleteRelationship(f.ctx, r.ID))
	require.NoError(t, f.c.DeleteIndicator(f.ctx, "A"))

	members, err := f.c.Members("X")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, f.c.DeleteIndicator(f.ctx, "X"))
	require.NoError(t, f.c.DeleteTopic(f.ctx, "LAND"))
}

func TestDeleteDimension_Regions(t *testing.T) {
	f := newFixture(t)
	f.languages("en")
	world := f.region(1, nil)
	europe := f.region(150, &world)
	spain := f.country("ESP", 724, &europe)
	require.NoError(t, f.c.AddTranslation(f.ctx, entity.KindDimension, id.Format(europe), "en", translation.Fields{Name: "Europe"}))

	err := f.c.DeleteDimension(f.ctx, europe, hierarchy.FailIfChildren)
	assert.True(t, apperror.IsIntegrity(err))

	require.NoError(t, f.c.DeleteDimension(f.ctx, europe, hierarchy.ReparentChildren))

	chain, err := f.c.RegionAncestors(spain)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, world, chain[1].ID())

	assert.Contains(t, pendingKinds(f.c.Pending()), entity.KindTranslation)
}

func TestDeleteLicenseAndUnit(t *testing.T) {
	f := newFixture(t)
	l, err := f.c.AddLicense(f.ctx, dataset.License{Name: "CC-BY", URL: "https://creativecommons.org/licenses/by/4.0/"})
	require.NoError(t, err)
	d := dataset.New("D", "A")
	d.LicenseID = &l.ID
	_, err = f.c.AddDataset(f.ctx, *d)
	require.NoError(t, err)

	assert.True(t, apperror.IsIntegrity(f.c.DeleteLicense(f.ctx, l.ID)))
	require.NoError(t, f.c.DeleteDataset(f.ctx, "D"))
	require.NoError(t, f.c.DeleteLicense(f.ctx, l.ID))

	ha, err := f.c.AddMeasurementUnit(f.ctx, *value.NewMeasurementUnit("ha"))
	require.NoError(t, err)
	ind := indicator.New("A", "A")
	ind.MeasurementUnitID = &ha.ID
	_, err = f.c.AddIndicator(f.ctx, *ind)
	require.NoError(t, err)

	assert.True(t, apperror.IsIntegrity(f.c.DeleteMeasurementUnit(f.ctx, ha.ID)))
	require.NoError(t, f.c.DeleteIndicator(f.ctx, "A"))
	require.NoError(t, f.c.DeleteMeasurementUnit(f.ctx, ha.ID))
}

func TestDeleteMissing(t *testing.T) {
	f := newFixture(t)
	assert.True(t, apperror.IsNotFound(f.c.DeleteDataset(f.ctx, "nope")))
	assert.True(t, apperror.IsNotFound(f.c.DeleteIndicator(f.ctx, "nope")))
	assert.True(t, apperror.IsNotFound(f.c.DeleteObservation(f.ctx, "nope")))
	assert.Empty(t, f.c.Pending())
}
