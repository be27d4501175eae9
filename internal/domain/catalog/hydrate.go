package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"landportal/internal/core/apperror"
	appctx "landportal/internal/core/context"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/dimension"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/organization"
	"landportal/internal/domain/translation"
	"landportal/internal/domain/value"
	"landportal/pkg/logger"
)

// hydrateFanOut bounds concurrent LoadChildren calls for translations and lineage.
const hydrateFanOut = 8

// HydrateDataset loads datasetID and the graph it reaches from store: its
// data source with the organization chain, license, linked indicators with
// their topics, units, groups and compound chain, slices with their
// dimensions, observations with values, computations, time dimensions,
// region chains and providers, plus the translations and languages of
// everything loaded.
//
// Loading happens before the catalog lock is taken. Applying runs every
// catalog check in dependency order against a staged copy of the indexes,
// which replaces the live ones only when every row passed; a row that breaks
// a catalog rule leaves the catalog unchanged.
func (c *Catalog) HydrateDataset(ctx context.Context, store domain.Store, datasetID string) error {
	ctx = appctx.StartOperation(ctx, "catalog.hydrate")
	ctx, span := tracer.Start(ctx, "catalog.HydrateDataset",
		trace.WithAttributes(attribute.String("dataset.id", datasetID)))
	defer span.End()

	h := &hydration{store: store, seen: make(map[entity.Ref]entity.Entity)}
	if err := h.collect(ctx, datasetID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	b := h.bundle()
	span.SetAttributes(attribute.Int("catalog.loaded", len(h.seen)))

	c.mu.Lock()
	defer c.mu.Unlock()

	staged := c.stage()
	if err := staged.apply(ctx, b); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx, "dataset hydration failed", "dataset", datasetID, "error", err)
		return err
	}
	c.adopt(staged)
	logger.Info(ctx, "dataset hydrated",
		"dataset", datasetID,
		"indicators", len(b.indicators),
		"slices", len(b.slices),
		"observations", len(b.observations))
	return nil
}

// hydration memoizes the rows loaded for one HydrateDataset call.
type hydration struct {
	store domain.Store

	mu    sync.Mutex
	seen  map[entity.Ref]entity.Entity
	links []dataset.IndicatorLink
}

func (h *hydration) fetch(ctx context.Context, kind entity.Kind, key string) (entity.Entity, error) {
	ref := entity.Ref{Kind: kind, Key: key}
	h.mu.Lock()
	e, ok := h.seen[ref]
	h.mu.Unlock()
	if ok {
		return e, nil
	}

	e, err := h.store.Load(ctx, kind, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref, err)
	}
	h.add(e)
	return e, nil
}

func (h *hydration) add(es ...entity.Entity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range es {
		h.seen[entity.RefOf(e)] = e
	}
}

func fetchAs[T entity.Entity](ctx context.Context, h *hydration, kind entity.Kind, key string) (T, error) {
	var zero T
	e, err := h.fetch(ctx, kind, key)
	if err != nil {
		return zero, err
	}
	t, ok := e.(T)
	if !ok {
		return zero, apperror.NewInternal(fmt.Errorf("store returned %T for %s:%s", e, kind, key))
	}
	return t, nil
}

func (h *hydration) collect(ctx context.Context, datasetID string) error {
	ds, err := fetchAs[dataset.Dataset](ctx, h, entity.KindDataset, datasetID)
	if err != nil {
		return err
	}
	if ds.DataSourceID != "" {
		if err := h.source(ctx, ds.DataSourceID); err != nil {
			return err
		}
	}
	if ds.LicenseID != nil {
		if _, err := h.fetch(ctx, entity.KindLicense, id.Format(*ds.LicenseID)); err != nil {
			return err
		}
	}

	var inds, slcs, obs []entity.Entity
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		inds, err = h.store.LoadChildren(egCtx, ds, domain.RelDatasetIndicators)
		return err
	})
	eg.Go(func() error {
		var err error
		slcs, err = h.store.LoadChildren(egCtx, ds, domain.RelDatasetSlices)
		return err
	})
	eg.Go(func() error {
		var err error
		obs, err = h.store.LoadChildren(egCtx, ds, domain.RelDatasetObservations)
		return err
	})
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("load children of dataset %s: %w", datasetID, err)
	}

	for _, e := range inds {
		ind, ok := e.(indicator.Indicator)
		if !ok {
			continue
		}
		h.links = append(h.links, dataset.IndicatorLink{DatasetID: datasetID, IndicatorID: ind.ID})
		if err := h.indicator(ctx, ind); err != nil {
			return err
		}
	}
	for _, e := range slcs {
		s, ok := e.(dataset.Slice)
		if !ok {
			continue
		}
		h.add(s)
		if _, err := h.fetch(ctx, entity.KindDimension, id.Format(s.DimensionID)); err != nil {
			return err
		}
		if err := h.indicatorByID(ctx, s.IndicatorID); err != nil {
			return err
		}
	}
	for _, e := range obs {
		o, ok := e.(dataset.Observation)
		if !ok {
			continue
		}
		h.add(o)
		if err := h.observation(ctx, o); err != nil {
			return err
		}
	}
	return h.overlays(ctx)
}

func (h *hydration) source(ctx context.Context, sourceID string) error {
	src, err := fetchAs[organization.DataSource](ctx, h, entity.KindDataSource, sourceID)
	if err != nil || src.OrganizationID == "" {
		return err
	}
	return h.organizationChain(ctx, src.OrganizationID)
}

func (h *hydration) organizationChain(ctx context.Context, orgID string) error {
	visited := make(map[string]struct{})
	for key := orgID; key != ""; {
		if _, ok := visited[key]; ok {
			return apperror.NewCycle("organization.is_part_of", orgID, key)
		}
		visited[key] = struct{}{}

		o, err := fetchAs[organization.Organization](ctx, h, entity.KindOrganization, key)
		if err != nil {
			return err
		}
		key = ""
		if o.PartOfID != nil {
			key = *o.PartOfID
		}
	}
	return nil
}

func (h *hydration) regionChain(ctx context.Context, regionID id.Surrogate) error {
	visited := make(map[id.Surrogate]struct{})
	for cur := &regionID; cur != nil; {
		if _, ok := visited[*cur]; ok {
			return apperror.NewCycle("region.is_part_of", regionID, *cur)
		}
		visited[*cur] = struct{}{}

		d, err := fetchAs[dimension.Dimension](ctx, h, entity.KindDimension, id.Format(*cur))
		if err != nil {
			return err
		}
		t, ok := dimension.AsTerritory(d)
		if !ok {
			return apperror.NewValidation("region reference points at a time dimension").
				WithDetail("id", *cur)
		}
		cur = t.PartOfID()
	}
	return nil
}

func (h *hydration) indicatorByID(ctx context.Context, indicatorID string) error {
	ind, err := fetchAs[indicator.Indicator](ctx, h, entity.KindIndicator, indicatorID)
	if err != nil {
		return err
	}
	return h.indicator(ctx, ind)
}

// indicator loads what ind refers to, following the compound chain upwards.
func (h *hydration) indicator(ctx context.Context, ind indicator.Indicator) error {
	visited := make(map[string]struct{})
	for {
		if _, ok := visited[ind.ID]; ok {
			return apperror.NewCycle("compound_indicator.members", ind.ID, ind.ID)
		}
		visited[ind.ID] = struct{}{}
		h.add(ind)

		if ind.TopicID != nil {
			if _, err := h.fetch(ctx, entity.KindTopic, *ind.TopicID); err != nil {
				return err
			}
		}
		if ind.MeasurementUnitID != nil {
			if _, err := h.fetch(ctx, entity.KindMeasurementUnit, id.Format(*ind.MeasurementUnitID)); err != nil {
				return err
			}
		}
		if ind.GroupID != nil {
			if _, err := h.fetch(ctx, entity.KindIndicatorGroup, id.Format(*ind.GroupID)); err != nil {
				return err
			}
		}
		if ind.CompoundID == nil {
			return nil
		}
		next, err := fetchAs[indicator.Indicator](ctx, h, entity.KindIndicator, *ind.CompoundID)
		if err != nil {
			return err
		}
		ind = next
	}
}

func (h *hydration) observation(ctx context.Context, o dataset.Observation) error {
	refs := []struct {
		kind entity.Kind
		id   *id.Surrogate
	}{
		{entity.KindValue, &o.ValueID},
		{entity.KindComputation, o.ComputationID},
		{entity.KindDimension, o.RefTimeID},
		{entity.KindDimension, o.IssuedID},
		{entity.KindIndicatorGroup, o.GroupID},
	}
	for _, r := range refs {
		if r.id == nil {
			continue
		}
		if _, err := h.fetch(ctx, r.kind, id.Format(*r.id)); err != nil {
			return err
		}
	}
	if o.RegionID != nil {
		if err := h.regionChain(ctx, *o.RegionID); err != nil {
			return err
		}
	}
	if o.ProviderID != nil {
		if err := h.source(ctx, *o.ProviderID); err != nil {
			return err
		}
	}
	return h.indicatorByID(ctx, o.IndicatorID)
}

// overlays loads translations (and their languages) for every translatable
// row, and the lineage edges of every indicator.
func (h *hydration) overlays(ctx context.Context) error {
	h.mu.Lock()
	var owners []entity.Entity
	for _, e := range h.seen {
		switch v := e.(type) {
		case organization.Organization, indicator.Indicator, indicator.Topic:
			owners = append(owners, e)
		case dimension.Dimension:
			if v.Variant().IsTerritory() {
				owners = append(owners, e)
			}
		}
	}
	h.mu.Unlock()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(hydrateFanOut)
	for _, owner := range owners {
		eg.Go(func() error {
			recs, err := h.store.LoadChildren(egCtx, owner, domain.RelTranslations)
			if err != nil {
				return fmt.Errorf("load translations of %s: %w", entity.RefOf(owner), err)
			}
			for _, r := range recs {
				rec, ok := r.(translation.Record)
				if !ok {
					continue
				}
				h.add(rec)
				if _, err := h.fetch(egCtx, entity.KindLanguage, rec.Lang); err != nil {
					return err
				}
			}
			if owner.EntityKind() != entity.KindIndicator {
				return nil
			}
			rels, err := h.store.LoadChildren(egCtx, owner, domain.RelIndicatorLineage)
			if err != nil {
				return fmt.Errorf("load lineage of %s: %w", entity.RefOf(owner), err)
			}
			h.add(rels...)
			return nil
		})
	}
	return eg.Wait()
}

// hydrated groups loaded rows by kind in apply order.
type hydrated struct {
	languages     []translation.Language
	licenses      []dataset.License
	units         []value.MeasurementUnit
	computations  []value.Computation
	values        []value.Value
	groups        []indicator.Group
	topics        []indicator.Topic
	organizations []organization.Organization
	sources       []organization.DataSource
	datasets      []dataset.Dataset
	dimensions    []dimension.Dimension
	indicators    []indicator.Indicator
	relationships []indicator.Relationship
	links         []dataset.IndicatorLink
	slices        []dataset.Slice
	observations  []dataset.Observation
	translations  []translation.Record
}

func (h *hydration) bundle() hydrated {
	refs := make([]entity.Ref, 0, len(h.seen))
	for ref := range h.seen {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b entity.Ref) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Key, b.Key))
	})

	var b hydrated
	for _, ref := range refs {
		switch e := h.seen[ref].(type) {
		case translation.Language:
			b.languages = append(b.languages, e)
		case dataset.License:
			b.licenses = append(b.licenses, e)
		case value.MeasurementUnit:
			b.units = append(b.units, e)
		case value.Computation:
			b.computations = append(b.computations, e)
		case value.Value:
			b.values = append(b.values, e)
		case indicator.Group:
			b.groups = append(b.groups, e)
		case indicator.Topic:
			b.topics = append(b.topics, e)
		case organization.Organization:
			b.organizations = append(b.organizations, e)
		case organization.DataSource:
			b.sources = append(b.sources, e)
		case dataset.Dataset:
			b.datasets = append(b.datasets, e)
		case dimension.Dimension:
			b.dimensions = append(b.dimensions, e)
		case indicator.Indicator:
			b.indicators = append(b.indicators, e)
		case indicator.Relationship:
			b.relationships = append(b.relationships, e)
		case dataset.Slice:
			b.slices = append(b.slices, e)
		case dataset.Observation:
			b.observations = append(b.observations, e)
		case translation.Record:
			b.translations = append(b.translations, e)
		}
	}
	b.links = h.links

	sortRootsFirst(b.organizations, func(o organization.Organization) string { return o.ID },
		func(o organization.Organization) (string, bool) {
			if o.PartOfID == nil {
				return "", false
			}
			return *o.PartOfID, true
		})
	sortRootsFirst(b.dimensions, func(d dimension.Dimension) string { return d.Key() },
		func(d dimension.Dimension) (string, bool) {
			t, ok := dimension.AsTerritory(d)
			if !ok || t.PartOfID() == nil {
				return "", false
			}
			return id.Format(*t.PartOfID()), true
		})
	sortRootsFirst(b.indicators, func(i indicator.Indicator) string { return i.ID },
		func(i indicator.Indicator) (string, bool) {
			if i.CompoundID == nil {
				return "", false
			}
			return *i.CompoundID, true
		})
	return b
}

// sortRootsFirst orders items so that every parent precedes its children.
// Parents outside items count as roots.
func sortRootsFirst[T any](items []T, key func(T) string, parent func(T) (string, bool)) {
	parents := make(map[string]string, len(items))
	for _, it := range items {
		if p, ok := parent(it); ok {
			parents[key(it)] = p
		}
	}
	depthOf := func(k string) int {
		d := 0
		for p, ok := parents[k]; ok && d <= len(items); p, ok = parents[p] {
			d++
		}
		return d
	}
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(depthOf(key(a)), depthOf(key(b)))
	})
}

// apply adds b to c, stopping at the first rejected row. Callers apply to
// a staged copy.
func (c *Catalog) apply(ctx context.Context, b hydrated) error {
	for _, l := range b.languages {
		if err := c.langs.Add(ctx, l); err != nil {
			return err
		}
	}
	for _, l := range b.licenses {
		c.seq.Observe(l.ID)
		c.licenses[l.ID] = l
	}
	for _, u := range b.units {
		c.seq.Observe(u.ID)
		c.units[u.ID] = u
	}
	for _, cp := range b.computations {
		c.seq.Observe(cp.ID)
		c.computations[cp.ID] = cp
	}
	for _, v := range b.values {
		c.seq.Observe(v.ID)
		c.values[v.ID] = v
	}
	for _, g := range b.groups {
		c.seq.Observe(g.ID)
		c.groups[g.ID] = g
	}
	for _, t := range b.topics {
		c.topics[t.ID] = t
	}

	for _, o := range b.organizations {
		c.orgTree.Add(o.ID)
		if err := c.checkOrganizationParent(o.ID, o.PartOfID); err != nil {
			return err
		}
		c.putOrganization(o)
	}
	for _, d := range b.sources {
		if d.OrganizationID != "" {
			if _, ok := c.organizations[d.OrganizationID]; !ok {
				return apperror.NewUnknownReference("organization", d.OrganizationID)
			}
		}
		c.putDataSource(d)
	}
	for _, d := range b.datasets {
		c.putDataset(d)
	}

	for _, d := range b.dimensions {
		var parent *id.Surrogate
		if t, ok := dimension.AsTerritory(d); ok {
			parent = t.PartOfID()
			if err := c.checkRegionParent(d.ID(), parent); err != nil {
				return err
			}
		}
		c.seq.Observe(d.ID())
		c.putDimension(d, parent)
	}

	for _, ind := range b.indicators {
		if err := c.checkIndicator(ind); err != nil {
			return err
		}
		c.putIndicator(ind)
	}
	for _, r := range b.relationships {
		_, srcOK := c.indicators[r.SourceID]
		_, dstOK := c.indicators[r.TargetID]
		if !srcOK || !dstOK {
			continue
		}
		c.seq.Observe(r.ID)
		if err := c.relationships.Add(ctx, r); err != nil {
			return err
		}
	}
	for _, l := range b.links {
		c.datasetIndicators.Link(l.DatasetID, l.IndicatorID)
	}

	for _, s := range b.slices {
		key, err := c.checkSlice(s)
		if err != nil {
			return err
		}
		c.putSlice(s, key)
	}
	for _, o := range b.observations {
		if err := c.checkObservation(o); err != nil {
			return err
		}
		c.putObservation(o)
	}

	for _, r := range b.translations {
		ov, ok := c.translations[r.Owner]
		if !ok {
			return apperror.NewValidation("entity kind is not translatable").
				WithDetail("owner", string(r.Owner))
		}
		if err := ov.Load(r); err != nil {
			return err
		}
	}
	return nil
}
