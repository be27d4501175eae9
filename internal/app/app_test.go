package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landportal/internal/config"
	"landportal/internal/core/apperror"
	"landportal/internal/domain/catalog"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/organization"
	"landportal/internal/infrastructure/cache"
)

func memoryConfig(cacheSize int) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		Cache:   config.CacheConfig{Size: cacheSize},
		Catalog: config.CatalogConfig{FallbackLanguage: "en"},
	}
}

func TestNew_MemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(64))
	require.NoError(t, err)
	defer a.Close()

	_, isCached := a.Store.(*cache.Store)
	assert.True(t, isCached)

	_, err = a.Catalog.AddOrganization(ctx, *organization.New("FAO", "Food and Agriculture Organization"))
	require.NoError(t, err)
	src := organization.NewDataSource("FAOSTAT", "FAOSTAT")
	src.OrganizationID = "FAO"
	_, err = a.Catalog.AddDataSource(ctx, *src)
	require.NoError(t, err)
	ds := dataset.New("D", "A")
	ds.DataSourceID = "FAOSTAT"
	_, err = a.Catalog.AddDataset(ctx, *ds)
	require.NoError(t, err)

	require.NoError(t, a.Persist(ctx))

	a.Catalog = catalog.New()
	require.NoError(t, a.Hydrate(ctx, "D"))

	got, err := a.Catalog.GetDataset("D")
	require.NoError(t, err)
	assert.Equal(t, "FAOSTAT", got.DataSourceID)
	org, err := a.Catalog.GetOrganization("FAO")
	require.NoError(t, err)
	assert.Equal(t, "Food and Agriculture Organization", org.Name)
}

func TestNew_WithoutCache(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(0))
	require.NoError(t, err)
	defer a.Close()

	_, isCached := a.Store.(*cache.Store)
	assert.False(t, isCached)

	err = a.Hydrate(context.Background(), "missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestNew_Failures(t *testing.T) {
	ctx := context.Background()

	listen := memoryConfig(8)
	listen.Cache.Listen = true
	_, err := New(ctx, listen)
	assert.Error(t, err)

	badDSN := memoryConfig(0)
	badDSN.Storage = config.StorageConfig{Driver: config.DriverPostgres, DSN: "::not a dsn::", MaxConns: 1}
	_, err = New(ctx, badDSN)
	assert.Error(t, err)

	unknown := memoryConfig(0)
	unknown.Storage.Driver = "sqlite"
	_, err = New(ctx, unknown)
	assert.Error(t, err)
}
