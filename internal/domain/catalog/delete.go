package catalog

import (
	"context"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/hierarchy"
	"landportal/pkg/logger"
)

// Deletes follow one rule: an entity that still has attached children or
// association links is an INTEGRITY_VIOLATION and nothing changes. Removed
// entities and their translation rows are queued for Persist, which deletes
// them from storage after saving the surviving graph.

// enqueue records deleted entities for the next Persist.
func (c *Catalog) enqueue(es ...entity.Entity) {
	c.pending = append(c.pending, es...)
}

// Pending returns the deletions not yet applied to storage.
func (c *Catalog) Pending() []entity.Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]entity.Ref, 0, len(c.pending))
	for _, e := range c.pending {
		out = append(out, entity.RefOf(e))
	}
	return out
}

func (c *Catalog) dropTranslations(owner entity.Kind, entityID string) {
	for _, r := range c.translations[owner].Drop(entityID) {
		c.enqueue(r)
	}
}

// DeleteOrganization removes an organization without data sources. Its
// sub-organizations block the delete under hierarchy.FailIfChildren and are
// re-pointed at its parent under hierarchy.ReparentChildren.
func (c *Catalog) DeleteOrganization(ctx context.Context, orgID string, policy hierarchy.RemovePolicy) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, ok := c.organizations[orgID]
	if !ok {
		return apperror.NewNotFound("organization", orgID)
	}
	if c.orgSources.HasChildren(orgID) {
		err := apperror.NewIntegrity("organization", orgID, "organization still owns data sources")
		logRejected(ctx, "organization delete rejected", err)
		return err
	}
	moved, err := c.orgTree.Remove(orgID, policy)
	if err != nil {
		logRejected(ctx, "organization delete rejected", err, "id", orgID)
		return err
	}

	delete(c.organizations, orgID)
	c.dropTranslations(entity.KindOrganization, orgID)
	c.enqueue(o)
	logger.Debug(ctx, "organization deleted", "id", orgID, "reparented", len(moved))
	return nil
}

// DeleteDataSource removes a data source that owns no datasets and provides
// no observations.
func (c *Catalog) DeleteDataSource(ctx context.Context, sourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.sources[sourceID]
	if !ok {
		return apperror.NewNotFound("data source", sourceID)
	}
	var err error
	switch {
	case c.sourceDatasets.HasChildren(sourceID):
		err = apperror.NewIntegrity("data source", sourceID, "data source still owns datasets")
	case c.providerObservations.HasChildren(sourceID):
		err = apperror.NewIntegrity("data source", sourceID, "data source still provides observations")
	}
	if err != nil {
		logRejected(ctx, "data source delete rejected", err)
		return err
	}

	c.orgSources.Detach(sourceID)
	delete(c.sources, sourceID)
	c.enqueue(d)
	logger.Debug(ctx, "data source deleted", "id", sourceID)
	return nil
}

// DeleteDataset removes a dataset with no slices, observations or linked
// indicators.
func (c *Catalog) DeleteDataset(ctx context.Context, datasetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.datasets[datasetID]
	if !ok {
		return apperror.NewNotFound("dataset", datasetID)
	}
	var err error
	switch {
	case c.datasetSlices.HasChildren(datasetID):
		err = apperror.NewIntegrity("dataset", datasetID, "dataset still has slices")
	case c.datasetObservations.HasChildren(datasetID):
		err = apperror.NewIntegrity("dataset", datasetID, "dataset still has observations")
	case len(c.datasetIndicators.Rights(datasetID)) > 0:
		err = apperror.NewIntegrity("dataset", datasetID, "dataset is still linked to indicators")
	}
	if err != nil {
		logRejected(ctx, "dataset delete rejected", err)
		return err
	}

	c.sourceDatasets.Detach(datasetID)
	delete(c.datasets, datasetID)
	c.enqueue(d)
	logger.Debug(ctx, "dataset deleted", "id", datasetID)
	return nil
}

// DeleteSlice removes a slice that holds no observations. The dataset keeps
// its link to the slice's indicator.
func (c *Catalog) DeleteSlice(ctx context.Context, sliceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slices[sliceID]
	if !ok {
		return apperror.NewNotFound("slice", sliceID)
	}
	if c.sliceObservations.HasChildren(sliceID) {
		err := apperror.NewIntegrity("slice", sliceID, "slice still has observations")
		logRejected(ctx, "slice delete rejected", err)
		return err
	}

	delete(c.sliceKeys, c.sliceKeyOf(s))
	c.datasetSlices.Detach(sliceID)
	delete(c.slices, sliceID)
	c.enqueue(s)
	logger.Debug(ctx, "slice deleted", "id", sliceID)
	return nil
}

// DeleteObservation removes an observation from every collection it belongs
// to. Its value is kept.
func (c *Catalog) DeleteObservation(ctx context.Context, obsID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, ok := c.observations[obsID]
	if !ok {
		return apperror.NewNotFound("observation", obsID)
	}
	c.datasetObservations.Detach(obsID)
	c.sliceObservations.Detach(obsID)
	c.regionObservations.Detach(obsID)
	c.providerObservations.Detach(obsID)
	delete(c.observations, obsID)
	c.enqueue(o)
	logger.Debug(ctx, "observation deleted", "id", obsID)
	return nil
}

// DeleteIndicator removes an indicator that no dataset, slice, observation
// or lineage edge refers to. A compound must have no members left; a member
// leaves its compound.
func (c *Catalog) DeleteIndicator(ctx context.Context, indicatorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ind, ok := c.indicators[indicatorID]
	if !ok {
		return apperror.NewNotFound("indicator", indicatorID)
	}
	if err := c.checkIndicatorUnused(indicatorID); err != nil {
		logRejected(ctx, "indicator delete rejected", err)
		return err
	}
	if err := c.compounds.Remove(indicatorID); err != nil {
		logRejected(ctx, "indicator delete rejected", err, "id", indicatorID)
		return err
	}

	c.topicIndicators.Detach(indicatorID)
	delete(c.indicators, indicatorID)
	c.dropTranslations(entity.KindIndicator, indicatorID)
	c.enqueue(ind)
	logger.Debug(ctx, "indicator deleted", "id", indicatorID)
	return nil
}

func (c *Catalog) checkIndicatorUnused(indicatorID string) error {
	if ds := c.datasetIndicators.Lefts(indicatorID); len(ds) > 0 {
		return apperror.NewIntegrity("indicator", indicatorID, "indicator is still linked to datasets").
			WithDetail("datasets", ds)
	}
	for sid, s := range c.slices {
		if s.IndicatorID == indicatorID {
			return apperror.NewIntegrity("indicator", indicatorID, "indicator is still used by a slice").
				WithDetail("slice", sid)
		}
	}
	for oid, o := range c.observations {
		if o.IndicatorID == indicatorID {
			return apperror.NewIntegrity("indicator", indicatorID, "indicator still has observations").
				WithDetail("observation", oid)
		}
	}
	if rels := c.relationships.Involving(indicatorID); len(rels) > 0 {
		return apperror.NewIntegrity("indicator", indicatorID, "indicator still has relationships").
			WithDetail("relationships", len(rels))
	}
	return nil
}

// DeleteRelationship removes a lineage edge.
func (c *Catalog) DeleteRelationship(ctx context.Context, relID id.Surrogate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.relationships.Get(relID)
	if !ok {
		return apperror.NewNotFound("indicator relationship", relID)
	}
	c.relationships.Remove(relID)
	c.enqueue(r)
	logger.Debug(ctx, "indicator relationship deleted", "id", relID)
	return nil
}

// DeleteTopic removes a topic that classifies no indicator.
func (c *Catalog) DeleteTopic(ctx context.Context, topicID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.topics[topicID]
	if !ok {
		return apperror.NewNotFound("topic", topicID)
	}
	if c.topicIndicators.HasChildren(topicID) {
		err := apperror.NewIntegrity("topic", topicID, "topic still classifies indicators")
		logRejected(ctx, "topic delete rejected", err)
		return err
	}

	delete(c.topics, topicID)
	c.dropTranslations(entity.KindTopic, topicID)
	c.enqueue(t)
	logger.Debug(ctx, "topic deleted", "id", topicID)
	return nil
}

// DeleteDimension removes a dimension no slice or observation refers to.
// Regions follow the same child policy as DeleteOrganization.
func (c *Catalog) DeleteDimension(ctx context.Context, dimID id.Surrogate, policy hierarchy.RemovePolicy) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.dimensions[dimID]
	if !ok {
		return apperror.NewNotFound("dimension", dimID)
	}
	if err := c.checkDimensionUnused(dimID); err != nil {
		logRejected(ctx, "dimension delete rejected", err)
		return err
	}

	if d.Variant().IsTerritory() {
		moved, err := c.regionTree.Remove(dimID, policy)
		if err != nil {
			logRejected(ctx, "region delete rejected", err, "id", dimID)
			return err
		}
		c.dropTranslations(entity.KindDimension, id.Format(dimID))
		logger.Debug(ctx, "region removed from hierarchy", "id", dimID, "reparented", len(moved))
	}

	delete(c.dimensions, dimID)
	c.enqueue(d)
	logger.Debug(ctx, "dimension deleted", "id", dimID, "variant", d.Variant())
	return nil
}

func (c *Catalog) checkDimensionUnused(dimID id.Surrogate) error {
	if c.dimensionInUse(dimID) {
		return apperror.NewIntegrity("dimension", dimID, "dimension is still used by a slice")
	}
	if c.regionObservations.HasChildren(dimID) {
		return apperror.NewIntegrity("dimension", dimID, "region still has observations")
	}
	for oid, o := range c.observations {
		if refersTo(o.RefTimeID, dimID) || refersTo(o.IssuedID, dimID) {
			return apperror.NewIntegrity("dimension", dimID, "dimension is still used by an observation").
				WithDetail("observation", oid)
		}
	}
	return nil
}

// DeleteLicense removes a license no dataset refers to.
func (c *Catalog) DeleteLicense(ctx context.Context, licenseID id.Surrogate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.licenses[licenseID]
	if !ok {
		return apperror.NewNotFound("license", licenseID)
	}
	for dsID, d := range c.datasets {
		if refersTo(d.LicenseID, licenseID) {
			err := apperror.NewIntegrity("license", licenseID, "license is still used by a dataset").
				WithDetail("dataset", dsID)
			logRejected(ctx, "license delete rejected", err)
			return err
		}
	}

	delete(c.licenses, licenseID)
	c.enqueue(l)
	logger.Debug(ctx, "license deleted", "id", licenseID)
	return nil
}

// DeleteMeasurementUnit removes a unit no indicator refers to.
func (c *Catalog) DeleteMeasurementUnit(ctx context.Context, unitID id.Surrogate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.units[unitID]
	if !ok {
		return apperror.NewNotFound("measurement unit", unitID)
	}
	for indID, ind := range c.indicators {
		if refersTo(ind.MeasurementUnitID, unitID) {
			err := apperror.NewIntegrity("measurement unit", unitID, "unit is still used by an indicator").
				WithDetail("indicator", indID)
			logRejected(ctx, "measurement unit delete rejected", err)
			return err
		}
	}

	delete(c.units, unitID)
	c.enqueue(u)
	logger.Debug(ctx, "measurement unit deleted", "id", unitID)
	return nil
}

func refersTo(p *id.Surrogate, v id.Surrogate) bool {
	return p != nil && *p == v
}

// unlinked queues the storage row of a removed membership pair.
func unlinked(datasetID, indicatorID string) entity.Entity {
	return dataset.IndicatorLink{DatasetID: datasetID, IndicatorID: indicatorID}
}
