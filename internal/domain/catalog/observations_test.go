package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landportal/internal/core/apperror"
	"landportal/internal/core/id"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/value"
)

type observationSetup struct {
	*fixture
	refYear, issued, spain id.Surrogate
	val                    id.Surrogate
}

func newObservationSetup(t *testing.T) *observationSetup {
	f := newFixture(t)
	f.org("FAO", nil)
	f.source("FAOSTAT", "FAO")
	f.dataset("D", "FAOSTAT")
	f.dataset("D2", "FAOSTAT")
	f.indicator("A")
	f.indicator("B")

	s := &observationSetup{fixture: f}
	s.refYear = f.year(2020)
	s.issued = f.instant(time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC))
	s.spain = f.country("ESP", 724, nil)
	s.val = f.value("12.5")
	f.slice("S-A", "D", "A", s.refYear)
	f.slice("S-B", "D", "B", s.refYear)
	return s
}

func (s *observationSetup) observation(obsID string) dataset.Observation {
	return dataset.Observation{
		ID:          obsID,
		ValueID:     s.val,
		IndicatorID: "A",
		DatasetID:   "D",
		RefTimeID:   &s.refYear,
		IssuedID:    &s.issued,
		RegionID:    &s.spain,
		SliceID:     ptr("S-A"),
		ProviderID:  ptr("FAOSTAT"),
	}
}

func TestRecordObservation_AttachesEverywhere(t *testing.T) {
	s := newObservationSetup(t)

	got, err := s.c.RecordObservation(s.ctx, s.observation("O1"))
	require.NoError(t, err)
	assert.Equal(t, "D", got.DatasetID)
	require.NotNil(t, got.SliceID)
	assert.Equal(t, "S-A", *got.SliceID)

	bySlice, err := s.c.SliceObservations("S-A")
	require.NoError(t, err)
	assert.Equal(t, []string{"O1"}, observationIDs(bySlice))

	byRegion, err := s.c.RegionObservations(s.spain)
	require.NoError(t, err)
	assert.Equal(t, []string{"O1"}, observationIDs(byRegion))

	byDataset, err := s.c.DatasetObservations("D")
	require.NoError(t, err)
	assert.Equal(t, []string{"O1"}, observationIDs(byDataset))

	byProvider, err := s.c.ProviderObservations("FAOSTAT")
	require.NoError(t, err)
	assert.Equal(t, []string{"O1"}, observationIDs(byProvider))
}

func TestRecordObservation_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *observationSetup, o *dataset.Observation)
		is     func(error) bool
	}{
		{
			name:   "unknown value",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.ValueID = 999 },
			is:     apperror.IsUnknownReference,
		},
		{
			name:   "unknown dataset",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.DatasetID = "nope" },
			is:     apperror.IsUnknownReference,
		},
		{
			name:   "ref time is a region",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.RefTimeID = &s.spain },
			is:     apperror.IsValidation,
		},
		{
			name:   "issued is a year",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.IssuedID = &s.refYear },
			is:     apperror.IsValidation,
		},
		{
			name:   "region is a time",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.RegionID = &s.refYear },
			is:     apperror.IsValidation,
		},
		{
			name:   "unknown provider",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.ProviderID = ptr("nope") },
			is:     apperror.IsUnknownReference,
		},
		{
			name:   "slice of another indicator",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.SliceID = ptr("S-B") },
			is:     apperror.IsValidation,
		},
		{
			name:   "slice of another dataset",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.DatasetID = "D2" },
			is:     apperror.IsValidation,
		},
		{
			name:   "missing value id",
			mutate: func(s *observationSetup, o *dataset.Observation) { o.ValueID = 0 },
			is:     apperror.IsValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newObservationSetup(t)
			o := s.observation("O1")
			tt.mutate(s, &o)

			_, err := s.c.RecordObservation(s.ctx, o)
			require.Error(t, err)
			assert.True(t, tt.is(err), "got %v", err)

			_, err = s.c.GetObservation("O1")
			assert.True(t, apperror.IsNotFound(err), "nothing stored")
			bySlice, err := s.c.SliceObservations("S-A")
			require.NoError(t, err)
			assert.Empty(t, bySlice)
			byRegion, err := s.c.RegionObservations(s.spain)
			require.NoError(t, err)
			assert.Empty(t, byRegion)
		})
	}
}

func TestRecordObservation_ReplaceDetaches(t *testing.T) {
	s := newObservationSetup(t)
	_, err := s.c.RecordObservation(s.ctx, s.observation("O1"))
	require.NoError(t, err)

	o := s.observation("O1")
	o.RegionID, o.SliceID, o.ProviderID = nil, nil, nil
	_, err = s.c.RecordObservation(s.ctx, o)
	require.NoError(t, err)

	byRegion, err := s.c.RegionObservations(s.spain)
	require.NoError(t, err)
	assert.Empty(t, byRegion)

	bySlice, err := s.c.SliceObservations("S-A")
	require.NoError(t, err)
	assert.Empty(t, bySlice)

	got, err := s.c.GetObservation("O1")
	require.NoError(t, err)
	assert.Nil(t, got.RegionID)
	assert.Nil(t, got.ProviderID)
}

func TestAttachObservation_MovesBetweenSlices(t *testing.T) {
	s := newObservationSetup(t)
	y2 := s.year(2021)
	s.slice("S-A-2021", "D", "A", y2)

	_, err := s.c.RecordObservation(s.ctx, s.observation("O1"))
	require.NoError(t, err)

	require.NoError(t, s.c.AttachObservation(s.ctx, "S-A-2021", "O1"))

	old, err := s.c.SliceObservations("S-A")
	require.NoError(t, err)
	assert.Empty(t, old)

	cur, err := s.c.SliceObservations("S-A-2021")
	require.NoError(t, err)
	assert.Equal(t, []string{"O1"}, observationIDs(cur))

	err = s.c.AttachObservation(s.ctx, "S-B", "O1")
	assert.True(t, apperror.IsValidation(err), "slice of another indicator")

	err = s.c.AttachObservation(s.ctx, "S-A", "ghost")
	assert.True(t, apperror.IsUnknownReference(err))
}

func TestAttachRegionAndProvider(t *testing.T) {
	s := newObservationSetup(t)
	france := s.country("FRA", 250, nil)
	s.source("EUROSTAT", "FAO")

	_, err := s.c.RecordObservation(s.ctx, s.observation("O1"))
	require.NoError(t, err)

	require.NoError(t, s.c.AttachRegionObservation(s.ctx, france, "O1"))
	require.NoError(t, s.c.AttachProviderObservation(s.ctx, "EUROSTAT", "O1"))

	got, err := s.c.GetObservation("O1")
	require.NoError(t, err)
	require.NotNil(t, got.RegionID)
	assert.Equal(t, france, *got.RegionID)
	require.NotNil(t, got.ProviderID)
	assert.Equal(t, "EUROSTAT", *got.ProviderID)

	spain, err := s.c.RegionObservations(s.spain)
	require.NoError(t, err)
	assert.Empty(t, spain)

	err = s.c.AttachRegionObservation(s.ctx, s.refYear, "O1")
	assert.True(t, apperror.IsValidation(err))
}

func TestObservedQuantity(t *testing.T) {
	f := newFixture(t)
	ha, err := f.c.AddMeasurementUnit(f.ctx, *value.NewMeasurementUnit("ha"))
	require.NoError(t, err)
	km2, err := f.c.AddMeasurementUnit(f.ctx, value.MeasurementUnit{Name: "km2", ConvertibleTo: "ha", Factor: decimal.NewFromInt(100)})
	require.NoError(t, err)
	pct, err := f.c.AddMeasurementUnit(f.ctx, *value.NewMeasurementUnit("%"))
	require.NoError(t, err)

	ind := indicator.New("AREA", "Land area")
	ind.MeasurementUnitID = &km2.ID
	_, err = f.c.AddIndicator(f.ctx, *ind)
	require.NoError(t, err)
	f.indicator("NOUNIT")
	f.dataset("D", "")

	v := f.value("2.5")
	_, err = f.c.RecordObservation(f.ctx, dataset.Observation{ID: "O1", ValueID: v, IndicatorID: "AREA", DatasetID: "D"})
	require.NoError(t, err)
	_, err = f.c.RecordObservation(f.ctx, dataset.Observation{ID: "O2", ValueID: v, IndicatorID: "NOUNIT", DatasetID: "D"})
	require.NoError(t, err)

	got, err := f.c.ObservedQuantity("O1", ha.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(got), "got %s", got)

	same, err := f.c.ObservedQuantity("O1", km2.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.5", same.String())

	_, err = f.c.ObservedQuantity("O1", pct.ID)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.c.ObservedQuantity("O2", ha.ID)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.c.ObservedQuantity("missing", ha.ID)
	assert.True(t, apperror.IsNotFound(err))
}
