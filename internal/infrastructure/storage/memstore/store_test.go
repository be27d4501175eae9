package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/domain"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/organization"
	"landportal/internal/domain/translation"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
	txm   *TxManager
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New()
	s.txm = NewTxManager(s.store)
}

func (s *StoreSuite) save(es ...entity.Entity) {
	for _, e := range es {
		s.Require().NoError(s.store.Save(s.ctx, e))
	}
}

func (s *StoreSuite) TestSaveUpsertsAndLoad() {
	s.save(organization.Organization{ID: "FAO", Name: "Food and Agriculture Organization"})
	s.save(organization.Organization{ID: "FAO", Name: "FAO"})

	got, err := s.store.Load(s.ctx, entity.KindOrganization, "FAO")
	s.Require().NoError(err)
	s.Equal("FAO", got.(organization.Organization).Name)
	s.Equal(1, s.store.Len(entity.KindOrganization))
}

func (s *StoreSuite) TestLoadMissing() {
	_, err := s.store.Load(s.ctx, entity.KindDataset, "nope")
	s.True(apperror.IsNotFound(err))
}

func (s *StoreSuite) TestLoadChildrenByField() {
	sliceOf := func(sliceID, ds string) dataset.Slice {
		return dataset.Slice{ID: sliceID, IndicatorID: "I1", DimensionID: 1, DatasetID: ds}
	}
	ds := dataset.Dataset{ID: "D1"}
	s.save(ds, sliceOf("S2", "D1"), sliceOf("S1", "D1"), sliceOf("S3", "D2"))

	kids, err := s.store.LoadChildren(s.ctx, ds, domain.RelDatasetSlices)
	s.Require().NoError(err)
	s.Require().Len(kids, 2)
	s.Equal("S1", kids[0].Key())
	s.Equal("S2", kids[1].Key())
}

func (s *StoreSuite) TestLoadChildrenByLink() {
	ds := dataset.Dataset{ID: "D1"}
	a := indicator.Indicator{ID: "A", Variant: indicator.VariantPlain}
	b := indicator.Indicator{ID: "B", Variant: indicator.VariantPlain}
	s.save(ds, a, b,
		dataset.IndicatorLink{DatasetID: "D1", IndicatorID: "B"},
		dataset.IndicatorLink{DatasetID: "D2", IndicatorID: "A"},
	)

	kids, err := s.store.LoadChildren(s.ctx, ds, domain.RelDatasetIndicators)
	s.Require().NoError(err)
	s.Require().Len(kids, 1)
	s.Equal("B", kids[0].Key())

	back, err := s.store.LoadChildren(s.ctx, b, domain.RelIndicatorDatasets)
	s.Require().NoError(err)
	s.Require().Len(back, 1)
	s.Equal("D1", back[0].Key())
}

func (s *StoreSuite) TestLoadChildrenTranslations() {
	topic := indicator.Topic{ID: "LAND", Name: "Land"}
	s.save(topic,
		translation.Record{Owner: entity.KindTopic, Lang: "en", EntityID: "LAND", Fields: translation.Fields{Name: "Land"}},
		translation.Record{Owner: entity.KindIndicator, Lang: "en", EntityID: "LAND", Fields: translation.Fields{Name: "other owner"}},
	)

	kids, err := s.store.LoadChildren(s.ctx, topic, domain.RelTranslations)
	s.Require().NoError(err)
	s.Require().Len(kids, 1)
	s.Equal("Land", kids[0].(translation.Record).Name)
}

func (s *StoreSuite) TestDeleteReferencedRowFails() {
	parent := organization.Organization{ID: "UN"}
	child := organization.Organization{ID: "FAO", PartOfID: ptr("UN")}
	s.save(parent, child)

	err := s.store.Delete(s.ctx, parent)
	s.True(apperror.IsIntegrity(err))

	s.Require().NoError(s.store.Delete(s.ctx, child))
	s.Require().NoError(s.store.Delete(s.ctx, parent))
	s.Equal(0, s.store.Len(entity.KindOrganization))
}

func (s *StoreSuite) TestDeleteLinkedRowFails() {
	ds := dataset.Dataset{ID: "D1"}
	link := dataset.IndicatorLink{DatasetID: "D1", IndicatorID: "A"}
	s.save(ds, indicator.Indicator{ID: "A", Variant: indicator.VariantPlain}, link)

	s.True(apperror.IsIntegrity(s.store.Delete(s.ctx, ds)))
	s.Require().NoError(s.store.Delete(s.ctx, link))
	s.Require().NoError(s.store.Delete(s.ctx, ds))
}

func (s *StoreSuite) TestDeleteMissingIsNoop() {
	s.NoError(s.store.Delete(s.ctx, dataset.Dataset{ID: "ghost"}))
}

func (s *StoreSuite) TestTransactionRollsBack() {
	s.save(organization.Organization{ID: "UN"})
	boom := errors.New("boom")

	err := s.txm.RunInTransaction(s.ctx, func(ctx context.Context) error {
		s.True(InTransaction(ctx))
		s.Require().NoError(s.store.Save(ctx, organization.Organization{ID: "FAO"}))
		s.Require().NoError(s.store.Delete(ctx, organization.Organization{ID: "UN"}))
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.Load(s.ctx, entity.KindOrganization, "UN")
	s.NoError(err)
	_, err = s.store.Load(s.ctx, entity.KindOrganization, "FAO")
	s.True(apperror.IsNotFound(err))
}

func (s *StoreSuite) TestNestedTransactionJoinsOuter() {
	err := s.txm.RunInTransaction(s.ctx, func(ctx context.Context) error {
		return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.store.Save(ctx, organization.Organization{ID: "FAO"})
		})
	})
	s.Require().NoError(err)
	s.Equal(1, s.store.Len(entity.KindOrganization))
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func TestSave_RejectsEmptyKey(t *testing.T) {
	err := New().Save(context.Background(), organization.Organization{})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func ptr[T any](v T) *T { return &v }
