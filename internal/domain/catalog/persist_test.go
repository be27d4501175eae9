package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/dimension"
	"landportal/internal/domain/hierarchy"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/translation"
	"landportal/internal/infrastructure/storage/memstore"
)

type PersistSuite struct {
	suite.Suite
	f     *fixture
	store *memstore.Store
	txm   *memstore.TxManager

	spain, europe id.Surrogate
}

func (s *PersistSuite) SetupTest() {
	s.f = newFixture(s.T())
	s.store = memstore.New()
	s.txm = memstore.NewTxManager(s.store)

	f := s.f
	f.languages("en", "es")
	f.org("UN", nil)
	f.org("FAO", ptr("UN"))
	f.source("FAOSTAT", "FAO")

	l, err := f.c.AddLicense(f.ctx, dataset.License{Name: "CC-BY"})
	s.Require().NoError(err)
	d := dataset.New("D", "A")
	d.DataSourceID = "FAOSTAT"
	d.LicenseID = &l.ID
	_, err = f.c.AddDataset(f.ctx, *d)
	s.Require().NoError(err)

	_, err = f.c.AddTopic(f.ctx, indicator.Topic{ID: "LAND", Name: "Land"})
	s.Require().NoError(err)
	f.compound("X")
	a := indicator.New("A", "Agricultural area")
	a.TopicID = ptr("LAND")
	a.CompoundID = ptr("X")
	_, err = f.c.AddIndicator(f.ctx, *a)
	s.Require().NoError(err)
	f.indicator("B")
	_, err = f.c.AddRelationship(f.ctx, indicator.Relationship{Variant: indicator.Becomes, SourceID: "A", TargetID: "B"})
	s.Require().NoError(err)
	_, err = f.c.LinkIndicator(f.ctx, "D", "B")
	s.Require().NoError(err)

	world := f.region(1, nil)
	s.europe = f.region(150, &world)
	s.spain = f.country("ESP", 724, &s.europe)
	y := f.year(2020)
	f.slice("S", "D", "A", y)

	_, err = f.c.RecordObservation(f.ctx, dataset.Observation{
		ID:          "O1",
		ValueID:     f.value("42"),
		IndicatorID: "A",
		DatasetID:   "D",
		RefTimeID:   &y,
		RegionID:    &s.spain,
		SliceID:     ptr("S"),
		ProviderID:  ptr("FAOSTAT"),
	})
	s.Require().NoError(err)

	s.Require().NoError(f.c.AddTranslation(f.ctx, entity.KindIndicator, "A", "es", translation.Fields{Name: "Superficie agrícola"}))
	s.Require().NoError(f.c.AddTranslation(f.ctx, entity.KindDimension, id.Format(s.spain), "es", translation.Fields{Name: "España"}))
}

func (s *PersistSuite) persist() {
	s.Require().NoError(s.f.c.Persist(s.f.ctx, s.store, s.txm))
}

func (s *PersistSuite) TestPersistWritesEveryRow() {
	s.persist()

	s.Equal(2, s.store.Len(entity.KindOrganization))
	s.Equal(1, s.store.Len(entity.KindDataset))
	s.Equal(3, s.store.Len(entity.KindIndicator))
	s.Equal(2, s.store.Len(entity.KindMembership))
	s.Equal(4, s.store.Len(entity.KindDimension))
	s.Equal(1, s.store.Len(entity.KindObservation))
	s.Equal(2, s.store.Len(entity.KindTranslation))

	row, err := s.store.Load(s.f.ctx, entity.KindSlice, "S")
	s.Require().NoError(err)
	s.Equal("D", row.(dataset.Slice).DatasetID, "back references are written")
}

func (s *PersistSuite) TestHydrateRebuildsTheGraph() {
	s.persist()

	fresh := New()
	s.Require().NoError(fresh.HydrateDataset(s.f.ctx, s.store, "D"))

	inds, err := fresh.DatasetIndicators("D")
	s.Require().NoError(err)
	s.Equal([]string{"A", "B"}, indicatorIDs(inds))

	members, err := fresh.Members("X")
	s.Require().NoError(err)
	s.Equal([]string{"A"}, indicatorIDs(members))
	s.Len(fresh.RelationshipsFrom("A"), 1)

	chain, err := fresh.OrganizationAncestors("FAO")
	s.Require().NoError(err)
	s.Len(chain, 2)

	regions, err := fresh.RegionAncestors(s.spain)
	s.Require().NoError(err)
	s.Len(regions, 3)

	obs, err := fresh.SliceObservations("S")
	s.Require().NoError(err)
	s.Equal([]string{"O1"}, observationIDs(obs))

	byProvider, err := fresh.ProviderObservations("FAOSTAT")
	s.Require().NoError(err)
	s.Len(byProvider, 1)

	rec, err := fresh.Localized(entity.KindDimension, id.Format(s.spain), "es", "en")
	s.Require().NoError(err)
	s.Equal("España", rec.Name)

	rec, err = fresh.Localized(entity.KindIndicator, "A", "es", "")
	s.Require().NoError(err)
	s.Equal("Superficie agrícola", rec.Name)

	// Fresh surrogates do not collide with hydrated ones.
	yi, err := dimension.NewYearInterval(2021)
	s.Require().NoError(err)
	y, err := fresh.AddDimension(s.f.ctx, yi)
	s.Require().NoError(err)
	s.Greater(y.ID(), s.spain)
	s.Equal(s.f.c.Stats().Dimensions+1, fresh.Stats().Dimensions)
}

func (s *PersistSuite) TestHydrateUnknownDataset() {
	err := New().HydrateDataset(s.f.ctx, s.store, "missing")
	s.True(apperror.IsNotFound(err))
}

func (s *PersistSuite) TestHydrateConflictLeavesCatalogUnchanged() {
	s.persist()

	target := newFixture(s.T())
	target.org("WB", nil)
	target.source("OTHER", "WB")
	target.dataset("D", "OTHER")
	target.indicator("A")
	target.slice("S2", "D", "A", target.year(2020))
	before := target.c.Stats()

	err := target.c.HydrateDataset(s.f.ctx, s.store, "D")
	s.Require().Error(err)
	s.True(apperror.IsDuplicate(err), "slice S repeats (D, A, 2020)")

	s.Equal(before, target.c.Stats())
	d, err := target.c.GetDataset("D")
	s.Require().NoError(err)
	s.Equal("OTHER", d.DataSourceID)
	_, err = target.c.GetOrganization("FAO")
	s.True(apperror.IsNotFound(err))
	s.Empty(target.c.Languages())

	// No half-registered hierarchy node blocks a later add.
	target.org("FAO", nil)
	target.org("UN", nil)
	s.Require().NoError(target.c.SetOrganizationParent(target.ctx, "FAO", ptr("UN")))
}

func (s *PersistSuite) TestDeletesApplyAfterSaves() {
	s.persist()

	c := s.f.c
	s.Require().NoError(c.DeleteObservation(s.f.ctx, "O1"))
	s.Require().NoError(c.DeleteSlice(s.f.ctx, "S"))
	s.Require().NoError(c.DeleteRelationship(s.f.ctx, c.RelationshipsFrom("A")[0].ID))
	s.Require().NotEmpty(c.Pending())

	s.persist()

	s.Zero(s.store.Len(entity.KindObservation))
	s.Zero(s.store.Len(entity.KindSlice))
	s.Zero(s.store.Len(entity.KindRelationship))
	s.Empty(c.Pending())
}

func (s *PersistSuite) TestReaddedEntitySurvives() {
	s.persist()

	c := s.f.c
	s.Require().NoError(c.DeleteOrganization(s.f.ctx, "UN", hierarchy.ReparentChildren))
	s.f.org("UN", nil)

	s.persist()
	s.Equal(2, s.store.Len(entity.KindOrganization))
}

func (s *PersistSuite) TestHookErrorRollsBack() {
	boom := errors.New("boom")
	s.f.c.Hooks().On(domain.BeforeSave, func(ctx context.Context, e entity.Entity) error {
		if e.EntityKind() == entity.KindObservation {
			return boom
		}
		return nil
	})

	err := s.f.c.Persist(s.f.ctx, s.store, s.txm)
	s.ErrorIs(err, boom)
	s.Zero(s.store.Len(entity.KindOrganization))
	s.Zero(s.store.Len(entity.KindDataset))
}

func (s *PersistSuite) TestPendingKeptOnFailure() {
	s.persist()
	s.Require().NoError(s.f.c.DeleteObservation(s.f.ctx, "O1"))

	boom := errors.New("boom")
	s.f.c.Hooks().On(domain.BeforeDelete, func(ctx context.Context, e entity.Entity) error { return boom })

	s.ErrorIs(s.f.c.Persist(s.f.ctx, s.store, s.txm), boom)
	s.Len(s.f.c.Pending(), 1)
	s.Equal(1, s.store.Len(entity.KindObservation))
}

func TestPersistSuite(t *testing.T) {
	suite.Run(t, new(PersistSuite))
}

func TestPersist_SerializesConcurrentCalls(t *testing.T) {
	f := newFixture(t)
	f.org("FAO", nil)
	store := memstore.New()
	txm := memstore.NewTxManager(store)

	errs := make(chan error, 4)
	for range 4 {
		go func() { errs <- f.c.Persist(f.ctx, store, txm) }()
	}
	for range 4 {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, 1, store.Len(entity.KindOrganization))
}
