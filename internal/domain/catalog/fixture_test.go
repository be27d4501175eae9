package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"landportal/internal/core/id"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/dimension"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/organization"
	"landportal/internal/domain/translation"
	"landportal/internal/domain/value"
)

type fixture struct {
	t   *testing.T
	ctx context.Context
	c   *Catalog
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return &fixture{t: t, ctx: context.Background(), c: New(opts...)}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) org(orgID string, parent *string) organization.Organization {
	f.t.Helper()
	o := organization.New(orgID, orgID+" name")
	o.PartOfID = parent
	got, err := f.c.AddOrganization(f.ctx, *o)
	require.NoError(f.t, err)
	return got
}

func (f *fixture) source(sourceID, orgID string) organization.DataSource {
	f.t.Helper()
	d := organization.NewDataSource(sourceID, sourceID+" feed")
	d.OrganizationID = orgID
	got, err := f.c.AddDataSource(f.ctx, *d)
	require.NoError(f.t, err)
	return got
}

func (f *fixture) dataset(datasetID, sourceID string) dataset.Dataset {
	f.t.Helper()
	d := dataset.New(datasetID, "A")
	d.DataSourceID = sourceID
	got, err := f.c.AddDataset(f.ctx, *d)
	require.NoError(f.t, err)
	return got
}

func (f *fixture) indicator(indicatorID string) indicator.Indicator {
	f.t.Helper()
	got, err := f.c.AddIndicator(f.ctx, *indicator.New(indicatorID, indicatorID))
	require.NoError(f.t, err)
	return got
}

func (f *fixture) compound(indicatorID string) indicator.Indicator {
	f.t.Helper()
	got, err := f.c.AddIndicator(f.ctx, *indicator.NewCompound(indicatorID, indicatorID))
	require.NoError(f.t, err)
	return got
}

func (f *fixture) year(y int) id.Surrogate {
	f.t.Helper()
	yi, err := dimension.NewYearInterval(y)
	require.NoError(f.t, err)
	d, err := f.c.AddDimension(f.ctx, yi)
	require.NoError(f.t, err)
	return d.ID()
}

func (f *fixture) instant(ts time.Time) id.Surrogate {
	f.t.Helper()
	in, err := dimension.NewInstant(ts)
	require.NoError(f.t, err)
	d, err := f.c.AddDimension(f.ctx, in)
	require.NoError(f.t, err)
	return d.ID()
}

func (f *fixture) region(unCode int, parent *id.Surrogate) id.Surrogate {
	f.t.Helper()
	r, err := dimension.NewRegion(unCode)
	require.NoError(f.t, err)
	d, err := f.c.AddDimension(f.ctx, r.WithPartOf(parent))
	require.NoError(f.t, err)
	return d.ID()
}

func (f *fixture) country(iso3 string, unCode int, parent *id.Surrogate) id.Surrogate {
	f.t.Helper()
	c, err := dimension.NewCountry(iso3[:2], iso3, "http://www.fao.org/aos/countries/"+iso3, unCode)
	require.NoError(f.t, err)
	d, err := f.c.AddDimension(f.ctx, c.WithPartOf(parent))
	require.NoError(f.t, err)
	return d.ID()
}

func (f *fixture) slice(sliceID, datasetID, indicatorID string, dimID id.Surrogate) dataset.Slice {
	f.t.Helper()
	got, err := f.c.AddSlice(f.ctx, dataset.Slice{ID: sliceID, DatasetID: datasetID, IndicatorID: indicatorID, DimensionID: dimID})
	require.NoError(f.t, err)
	return got
}

func (f *fixture) value(raw string) id.Surrogate {
	f.t.Helper()
	v, err := f.c.AddValue(f.ctx, value.Value{Status: value.StatusNormal, Type: value.TypeFloat, Raw: raw})
	require.NoError(f.t, err)
	return v.ID
}

func (f *fixture) languages(codes ...string) {
	f.t.Helper()
	for _, code := range codes {
		require.NoError(f.t, f.c.AddLanguage(f.ctx, translation.Language{Code: code, Name: code}))
	}
}

func indicatorIDs(inds []indicator.Indicator) []string {
	out := make([]string, 0, len(inds))
	for _, i := range inds {
		out = append(out, i.ID)
	}
	return out
}

func observationIDs(obs []dataset.Observation) []string {
	out := make([]string, 0, len(obs))
	for _, o := range obs {
		out = append(out, o.ID)
	}
	return out
}
