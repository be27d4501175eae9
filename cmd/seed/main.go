// Package main seeds the configured catalog store with a small FAO graph and
// reads it back.
//
// Configuration comes from CATALOG_* environment variables; CATALOG_CONFIG
// names an optional config file.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"landportal/internal/app"
	"landportal/internal/config"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain/catalog"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/dimension"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/organization"
	"landportal/internal/domain/translation"
	"landportal/internal/domain/value"
	"landportal/pkg/logger"
)

const seedDataset = "FAOSTAT-LAND"

func main() {
	cfg, err := config.Load(os.Getenv("CATALOG_CONFIG"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to start catalog", "error", err)
	}
	defer a.Close()

	if err := seedCatalog(ctx, a.Catalog); err != nil {
		log.Fatalw("failed to build seed catalog", "error", err)
	}
	if err := a.Persist(ctx); err != nil {
		log.Fatalw("failed to persist catalog", "error", err)
	}
	log.Infow("catalog persisted", "stats", a.Catalog.Stats())

	// Read the graph back into an empty catalog.
	a.Catalog = catalog.New(catalog.WithFallbackLanguage(cfg.Catalog.FallbackLanguage))
	if err := a.Hydrate(ctx, seedDataset); err != nil {
		log.Fatalw("failed to hydrate dataset", "dataset", seedDataset, "error", err)
	}
	log.Infow("dataset hydrated", "dataset", seedDataset, "stats", a.Catalog.Stats())

	log.Info("seeding completed successfully")
}

func seedCatalog(ctx context.Context, c *catalog.Catalog) error {
	for _, l := range []translation.Language{{Code: "en", Name: "English"}, {Code: "es", Name: "Español"}, {Code: "fr", Name: "Français"}} {
		if err := c.AddLanguage(ctx, l); err != nil {
			return err
		}
	}

	un := organization.New("UN", "United Nations")
	if _, err := c.AddOrganization(ctx, *un); err != nil {
		return err
	}
	fao := organization.New("FAO", "Food and Agriculture Organization")
	fao.URL = "http://www.fao.org"
	fao.PartOfID = &un.ID
	if _, err := c.AddOrganization(ctx, *fao); err != nil {
		return err
	}
	if err := c.AddTranslation(ctx, entity.KindOrganization, "FAO", "es",
		translation.Fields{Name: "Organización de las Naciones Unidas para la Alimentación y la Agricultura"}); err != nil {
		return err
	}

	src := organization.NewDataSource("FAOSTAT", "FAOSTAT")
	src.OrganizationID = "FAO"
	if _, err := c.AddDataSource(ctx, *src); err != nil {
		return err
	}

	lic, err := c.AddLicense(ctx, dataset.License{Name: "CC BY-NC-SA 3.0 IGO", Republish: true, URL: "https://creativecommons.org/licenses/by-nc-sa/3.0/igo/"})
	if err != nil {
		return err
	}
	ds := dataset.New(seedDataset, "A")
	ds.DataSourceID = "FAOSTAT"
	ds.LicenseID = &lic.ID
	if _, err := c.AddDataset(ctx, *ds); err != nil {
		return err
	}

	ha := value.NewMeasurementUnit("ha")
	haUnit, err := c.AddMeasurementUnit(ctx, *ha)
	if err != nil {
		return err
	}
	km2 := value.NewMeasurementUnit("km2")
	km2.ConvertibleTo = "ha"
	km2.Factor = decimal.NewFromInt(100)
	if _, err := c.AddMeasurementUnit(ctx, *km2); err != nil {
		return err
	}

	if _, err := c.AddTopic(ctx, indicator.Topic{ID: "LAND", Name: "Land use"}); err != nil {
		return err
	}
	area := indicator.New("FAO-6601", "Land area")
	area.MeasurementUnitID = &haUnit.ID
	area.TopicID = ptr("LAND")
	if _, err := c.AddIndicator(ctx, *area); err != nil {
		return err
	}
	if _, err := c.LinkIndicator(ctx, seedDataset, area.ID); err != nil {
		return err
	}

	world, err := addRegion(ctx, c, 1, nil)
	if err != nil {
		return err
	}
	europe, err := addRegion(ctx, c, 150, &world)
	if err != nil {
		return err
	}
	spain, err := dimension.NewCountry("ES", "ESP", "http://www.fao.org/countryprofiles/ESP", 724)
	if err != nil {
		return err
	}
	spainDim, err := c.AddDimension(ctx, spain.WithPartOf(&europe))
	if err != nil {
		return err
	}

	for i, raw := range []string{"49890000", "49962000"} {
		year := 2019 + i
		yi, err := dimension.NewYearInterval(year)
		if err != nil {
			return err
		}
		refTime, err := c.AddDimension(ctx, yi)
		if err != nil {
			return err
		}
		issued, err := dimension.NewInstant(time.Date(year+1, 3, 1, 0, 0, 0, 0, time.UTC))
		if err != nil {
			return err
		}
		issuedDim, err := c.AddDimension(ctx, issued)
		if err != nil {
			return err
		}

		sl, err := c.AddSlice(ctx, dataset.Slice{
			ID:          fmt.Sprintf("%s-%d", area.ID, year),
			IndicatorID: area.ID,
			DimensionID: refTime.ID(),
			DatasetID:   seedDataset,
		})
		if err != nil {
			return err
		}
		v, err := c.AddValue(ctx, value.Value{Status: value.StatusNormal, Type: value.TypeInteger, Raw: raw})
		if err != nil {
			return err
		}

		regionID, refID, issuedID := spainDim.ID(), refTime.ID(), issuedDim.ID()
		_, err = c.RecordObservation(ctx, dataset.Observation{
			ID:          fmt.Sprintf("OBS-ESP-%d", year),
			RefTimeID:   &refID,
			IssuedID:    &issuedID,
			ValueID:     v.ID,
			IndicatorID: area.ID,
			DatasetID:   seedDataset,
			RegionID:    &regionID,
			SliceID:     &sl.ID,
			ProviderID:  ptr("FAOSTAT"),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func addRegion(ctx context.Context, c *catalog.Catalog, unCode int, parent *id.Surrogate) (id.Surrogate, error) {
	r, err := dimension.NewRegion(unCode)
	if err != nil {
		return 0, err
	}
	d, err := c.AddDimension(ctx, r.WithPartOf(parent))
	if err != nil {
		return 0, err
	}
	return d.ID(), nil
}

func ptr[T any](v T) *T { return &v }
