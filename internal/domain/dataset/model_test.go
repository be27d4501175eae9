package dataset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landportal/internal/core/apperror"
)

func TestObservation_Validate(t *testing.T) {
	ctx := context.Background()

	ok := &Observation{ID: "OBS-1", ValueID: 1, IndicatorID: "IND", DatasetID: "DS"}
	require.NoError(t, ok.Validate(ctx))

	tests := []struct {
		name string
		obs  Observation
	}{
		{"missing id", Observation{ValueID: 1, IndicatorID: "IND", DatasetID: "DS"}},
		{"missing value", Observation{ID: "O", IndicatorID: "IND", DatasetID: "DS"}},
		{"missing indicator", Observation{ID: "O", ValueID: 1, DatasetID: "DS"}},
		{"missing dataset", Observation{ID: "O", ValueID: 1, IndicatorID: "IND"}},
		{"id too long", Observation{ID: strings.Repeat("x", 256), ValueID: 1, IndicatorID: "IND", DatasetID: "DS"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperror.IsValidation(tt.obs.Validate(ctx)))
		})
	}
}

func TestObservation_String(t *testing.T) {
	region := int64(7)
	slice := "SL-1"
	o := Observation{ID: "OBS-1", ValueID: 3, IndicatorID: "IND", DatasetID: "DS", RegionID: &region, SliceID: &slice}

	s := o.String()
	assert.True(t, strings.HasPrefix(s, `<Observation id="OBS-1"`))
	assert.Contains(t, s, "region=7")
	assert.Contains(t, s, `slice="SL-1"`)
	assert.NotContains(t, s, "issued=")
}

func TestLicense_Validate(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, (&License{Name: "CC-BY 4.0", URL: "https://creativecommons.org/licenses/by/4.0/"}).Validate(ctx))
	assert.True(t, apperror.IsValidation((&License{Name: "x", URL: "not a url"}).Validate(ctx)))
	assert.True(t, apperror.IsValidation((&License{}).Validate(ctx)))
}

func TestSlice_Validate(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, (&Slice{ID: "SL", IndicatorID: "IND", DimensionID: 1, DatasetID: "DS"}).Validate(ctx))
	assert.True(t, apperror.IsValidation((&Slice{ID: "SL", IndicatorID: "IND", DatasetID: "DS"}).Validate(ctx)))
}
