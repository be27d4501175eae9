// Package catalog provides the Catalog aggregate: the single owner of every
// entity index, hierarchy and association in the indicator catalog.
//
// All mutations go through Catalog methods, which take the write lock,
// validate every precondition and only then touch the indexes, so a failed
// call leaves no partial change behind. Reads take the read lock and return
// copies whose back-reference fields (parents, owners, compound) are filled
// from the indexes.
package catalog

import (
	"context"
	"maps"
	"sync"

	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain"
	"landportal/internal/domain/association"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/dimension"
	"landportal/internal/domain/hierarchy"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/organization"
	"landportal/internal/domain/translation"
	"landportal/internal/domain/value"
	"landportal/pkg/logger"
)

// Catalog is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	persistMu sync.Mutex
	seq       id.Sequence

	fallbackLang string
	hooks        *domain.HookRegistry[entity.Entity]

	// Entities by key.
	organizations map[string]organization.Organization
	sources       map[string]organization.DataSource
	datasets      map[string]dataset.Dataset
	licenses      map[id.Surrogate]dataset.License
	slices        map[string]dataset.Slice
	observations  map[string]dataset.Observation
	indicators    map[string]indicator.Indicator
	topics        map[string]indicator.Topic
	groups        map[id.Surrogate]indicator.Group
	dimensions    map[id.Surrogate]dimension.Dimension
	units         map[id.Surrogate]value.MeasurementUnit
	computations  map[id.Surrogate]value.Computation
	values        map[id.Surrogate]value.Value

	// Hierarchies.
	orgTree       *hierarchy.Index[string]
	regionTree    *hierarchy.Index[id.Surrogate]
	compounds     *indicator.Compounds
	relationships *indicator.Relationships

	// Associations.
	datasetIndicators    *association.Membership[string, string]
	orgSources           *association.Containment[string, string]
	sourceDatasets       *association.Containment[string, string]
	datasetSlices        *association.Containment[string, string]
	sliceObservations    *association.Containment[string, string]
	regionObservations   *association.Containment[id.Surrogate, string]
	datasetObservations  *association.Containment[string, string]
	providerObservations *association.Containment[string, string]
	topicIndicators      *association.Containment[string, string]

	// sliceKeys enforces one slice per (dataset, indicator, dimension value).
	sliceKeys map[sliceKey]string

	langs        *translation.Languages
	translations map[entity.Kind]*translation.Overlay

	// pending holds deleted entities not yet removed from storage, in
	// deletion order.
	pending []entity.Entity
}

type sliceKey struct {
	dataset, indicator, canonical string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithFallbackLanguage sets the language Localized falls back to when the
// caller passes no fallback.
func WithFallbackLanguage(code string) Option {
	return func(c *Catalog) { c.fallbackLang = code }
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	langs := translation.NewLanguages()
	c := &Catalog{
		hooks: domain.NewHookRegistry[entity.Entity](),

		organizations: make(map[string]organization.Organization),
		sources:       make(map[string]organization.DataSource),
		datasets:      make(map[string]dataset.Dataset),
		licenses:      make(map[id.Surrogate]dataset.License),
		slices:        make(map[string]dataset.Slice),
		observations:  make(map[string]dataset.Observation),
		indicators:    make(map[string]indicator.Indicator),
		topics:        make(map[string]indicator.Topic),
		groups:        make(map[id.Surrogate]indicator.Group),
		dimensions:    make(map[id.Surrogate]dimension.Dimension),
		units:         make(map[id.Surrogate]value.MeasurementUnit),
		computations:  make(map[id.Surrogate]value.Computation),
		values:        make(map[id.Surrogate]value.Value),

		orgTree:       hierarchy.New[string]("organization.is_part_of"),
		regionTree:    hierarchy.New[id.Surrogate]("region.is_part_of"),
		compounds:     indicator.NewCompounds(),
		relationships: indicator.NewRelationships(),

		datasetIndicators:    association.NewMembership[string, string](),
		orgSources:           association.NewContainment[string, string](),
		sourceDatasets:       association.NewContainment[string, string](),
		datasetSlices:        association.NewContainment[string, string](),
		sliceObservations:    association.NewContainment[string, string](),
		regionObservations:   association.NewContainment[id.Surrogate, string](),
		datasetObservations:  association.NewContainment[string, string](),
		providerObservations: association.NewContainment[string, string](),
		topicIndicators:      association.NewContainment[string, string](),

		sliceKeys: make(map[sliceKey]string),

		langs: langs,
		translations: map[entity.Kind]*translation.Overlay{
			entity.KindDimension:    translation.NewOverlay(entity.KindDimension, langs),
			entity.KindOrganization: translation.NewOverlay(entity.KindOrganization, langs),
			entity.KindIndicator:    translation.NewOverlay(entity.KindIndicator, langs),
			entity.KindTopic:        translation.NewOverlay(entity.KindTopic, langs),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// stage returns a copy of every index for an all-or-nothing batch apply.
// Callers hold the write lock; the copy is private until adopt.
func (c *Catalog) stage() *Catalog {
	langs := c.langs.Clone()
	translations := make(map[entity.Kind]*translation.Overlay, len(c.translations))
	for kind, ov := range c.translations {
		translations[kind] = ov.CloneWith(langs)
	}
	s := &Catalog{
		fallbackLang: c.fallbackLang,
		hooks:        c.hooks,

		organizations: maps.Clone(c.organizations),
		sources:       maps.Clone(c.sources),
		datasets:      maps.Clone(c.datasets),
		licenses:      maps.Clone(c.licenses),
		slices:        maps.Clone(c.slices),
		observations:  maps.Clone(c.observations),
		indicators:    maps.Clone(c.indicators),
		topics:        maps.Clone(c.topics),
		groups:        maps.Clone(c.groups),
		dimensions:    maps.Clone(c.dimensions),
		units:         maps.Clone(c.units),
		computations:  maps.Clone(c.computations),
		values:        maps.Clone(c.values),

		orgTree:       c.orgTree.Clone(),
		regionTree:    c.regionTree.Clone(),
		compounds:     c.compounds.Clone(),
		relationships: c.relationships.Clone(),

		datasetIndicators:    c.datasetIndicators.Clone(),
		orgSources:           c.orgSources.Clone(),
		sourceDatasets:       c.sourceDatasets.Clone(),
		datasetSlices:        c.datasetSlices.Clone(),
		sliceObservations:    c.sliceObservations.Clone(),
		regionObservations:   c.regionObservations.Clone(),
		datasetObservations:  c.datasetObservations.Clone(),
		providerObservations: c.providerObservations.Clone(),
		topicIndicators:      c.topicIndicators.Clone(),

		sliceKeys: maps.Clone(c.sliceKeys),

		langs:        langs,
		translations: translations,
	}
	s.seq.Observe(c.seq.Last())
	return s
}

// adopt replaces the indexes of c with those of a staged copy. Callers hold
// the write lock.
func (c *Catalog) adopt(s *Catalog) {
	c.seq.Observe(s.seq.Last())

	c.organizations = s.organizations
	c.sources = s.sources
	c.datasets = s.datasets
	c.licenses = s.licenses
	c.slices = s.slices
	c.observations = s.observations
	c.indicators = s.indicators
	c.topics = s.topics
	c.groups = s.groups
	c.dimensions = s.dimensions
	c.units = s.units
	c.computations = s.computations
	c.values = s.values

	c.orgTree = s.orgTree
	c.regionTree = s.regionTree
	c.compounds = s.compounds
	c.relationships = s.relationships

	c.datasetIndicators = s.datasetIndicators
	c.orgSources = s.orgSources
	c.sourceDatasets = s.sourceDatasets
	c.datasetSlices = s.datasetSlices
	c.sliceObservations = s.sliceObservations
	c.regionObservations = s.regionObservations
	c.datasetObservations = s.datasetObservations
	c.providerObservations = s.providerObservations
	c.topicIndicators = s.topicIndicators

	c.sliceKeys = s.sliceKeys

	c.langs = s.langs
	c.translations = s.translations
}

// Hooks returns the persistence hook registry used by Persist.
func (c *Catalog) Hooks() *domain.HookRegistry[entity.Entity] {
	return c.hooks
}

// Stats reports entity counts, mostly for logs.
type Stats struct {
	Organizations int `json:"organizations"`
	DataSources   int `json:"dataSources"`
	Datasets      int `json:"datasets"`
	Slices        int `json:"slices"`
	Observations  int `json:"observations"`
	Indicators    int `json:"indicators"`
	Dimensions    int `json:"dimensions"`
	Memberships   int `json:"memberships"`
}

// Stats returns the current entity counts.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Organizations: len(c.organizations),
		DataSources:   len(c.sources),
		Datasets:      len(c.datasets),
		Slices:        len(c.slices),
		Observations:  len(c.observations),
		Indicators:    len(c.indicators),
		Dimensions:    len(c.dimensions),
		Memberships:   c.datasetIndicators.Len(),
	}
}

// --- read views (callers hold at least the read lock) ---

func (c *Catalog) viewOrganization(o organization.Organization) organization.Organization {
	o.PartOfID = nil
	if p, ok := c.orgTree.Parent(o.ID); ok {
		o.PartOfID = &p
	}
	return o
}

func (c *Catalog) viewDataSource(d organization.DataSource) organization.DataSource {
	d.OrganizationID, _ = c.orgSources.Parent(d.ID)
	return d
}

func (c *Catalog) viewDataset(d dataset.Dataset) dataset.Dataset {
	d.DataSourceID, _ = c.sourceDatasets.Parent(d.ID)
	d.LicenseID = copySurrogate(d.LicenseID)
	return d
}

func (c *Catalog) viewSlice(s dataset.Slice) dataset.Slice {
	s.DatasetID, _ = c.datasetSlices.Parent(s.ID)
	return s
}

func (c *Catalog) viewObservation(o dataset.Observation) dataset.Observation {
	o.DatasetID, _ = c.datasetObservations.Parent(o.ID)
	o.SliceID = optString(c.sliceObservations.Parent(o.ID))
	o.ProviderID = optString(c.providerObservations.Parent(o.ID))
	o.RegionID = nil
	if r, ok := c.regionObservations.Parent(o.ID); ok {
		o.RegionID = &r
	}
	o.RefTimeID = copySurrogate(o.RefTimeID)
	o.IssuedID = copySurrogate(o.IssuedID)
	o.ComputationID = copySurrogate(o.ComputationID)
	o.GroupID = copySurrogate(o.GroupID)
	return o
}

func (c *Catalog) viewIndicator(i indicator.Indicator) indicator.Indicator {
	i.CompoundID = optString(c.compounds.CompoundOf(i.ID))
	i.TopicID = optString(c.topicIndicators.Parent(i.ID))
	i.MeasurementUnitID = copySurrogate(i.MeasurementUnitID)
	i.GroupID = copySurrogate(i.GroupID)
	if i.LastUpdate != nil {
		t := *i.LastUpdate
		i.LastUpdate = &t
	}
	return i
}

func (c *Catalog) viewDimension(d dimension.Dimension) dimension.Dimension {
	t, ok := dimension.AsTerritory(d)
	if !ok {
		return d
	}
	if p, ok := c.regionTree.Parent(t.ID()); ok {
		return t.WithPartOf(&p)
	}
	return t.WithPartOf(nil)
}

func optString(v string, ok bool) *string {
	if !ok {
		return nil
	}
	return &v
}

func copySurrogate(p *id.Surrogate) *id.Surrogate {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// logRejected records a mutation refused by a graph rule.
func logRejected(ctx context.Context, msg string, err error, keysAndValues ...any) {
	logger.Warn(ctx, msg, append(keysAndValues, "error", err)...)
}

func movedFrom[P any](prev P, moved bool) any {
	if !moved {
		return nil
	}
	return prev
}
