package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"landportal/internal/core/apperror"
	"landportal/internal/core/id"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/dimension"
	"landportal/internal/domain/value"
	"landportal/pkg/logger"
)

// --- values and computations ---

// AddValue stores an observed value, assigning an id when v.ID is 0.
func (c *Catalog) AddValue(ctx context.Context, v value.Value) (value.Value, error) {
	if err := v.Validate(ctx); err != nil {
		return value.Value{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	v.ID = c.seq.Assign(v.ID)
	c.values[v.ID] = v
	return v, nil
}

// GetValue returns a value by id.
func (c *Catalog) GetValue(valueID id.Surrogate) (value.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[valueID]
	if !ok {
		return value.Value{}, apperror.NewNotFound("value", valueID)
	}
	return v, nil
}

// AddComputation stores a computation record, assigning an id when cp.ID is 0.
func (c *Catalog) AddComputation(ctx context.Context, cp value.Computation) (value.Computation, error) {
	if err := cp.Validate(ctx); err != nil {
		return value.Computation{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cp.ID = c.seq.Assign(cp.ID)
	c.computations[cp.ID] = cp
	logger.Debug(ctx, "computation saved", "id", cp.ID, "uri", cp.URI)
	return cp, nil
}

// GetComputation returns a computation by id.
func (c *Catalog) GetComputation(computationID id.Surrogate) (value.Computation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cp, ok := c.computations[computationID]
	if !ok {
		return value.Computation{}, apperror.NewNotFound("computation", computationID)
	}
	return cp, nil
}

// --- observations ---

// RecordObservation inserts or replaces an observation and attaches it to
// its dataset, slice, region and provider in one step. Every reference is
// checked first: RefTimeID must be a time dimension, IssuedID an instant,
// RegionID a region, and the slice must belong to the same dataset and
// indicator.
func (c *Catalog) RecordObservation(ctx context.Context, o dataset.Observation) (dataset.Observation, error) {
	if err := o.Validate(ctx); err != nil {
		return dataset.Observation{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkObservation(o); err != nil {
		logRejected(ctx, "observation rejected", err, "id", o.ID)
		return dataset.Observation{}, err
	}

	c.putObservation(o)
	logger.Debug(ctx, "observation recorded", "id", o.ID, "dataset", o.DatasetID, "indicator", o.IndicatorID)
	return c.viewObservation(c.observations[o.ID]), nil
}

func (c *Catalog) checkObservation(o dataset.Observation) error {
	if _, ok := c.values[o.ValueID]; !ok {
		return apperror.NewUnknownReference("value", o.ValueID)
	}
	if err := c.requireDatasetAndIndicator(o.DatasetID, o.IndicatorID); err != nil {
		return err
	}
	if o.RefTimeID != nil {
		if err := c.requireDimension(*o.RefTimeID, "ref_time", func(v dimension.Variant) bool { return v.IsTime() }); err != nil {
			return err
		}
	}
	if o.IssuedID != nil {
		if err := c.requireDimension(*o.IssuedID, "issued", func(v dimension.Variant) bool { return v == dimension.VariantInstant }); err != nil {
			return err
		}
	}
	if o.RegionID != nil {
		if err := c.requireDimension(*o.RegionID, "region", dimension.Variant.IsTerritory); err != nil {
			return err
		}
	}
	if o.ComputationID != nil {
		if _, ok := c.computations[*o.ComputationID]; !ok {
			return apperror.NewUnknownReference("computation", *o.ComputationID)
		}
	}
	if o.GroupID != nil {
		if _, ok := c.groups[*o.GroupID]; !ok {
			return apperror.NewUnknownReference("indicator group", *o.GroupID)
		}
	}
	if o.ProviderID != nil {
		if _, ok := c.sources[*o.ProviderID]; !ok {
			return apperror.NewUnknownReference("data source", *o.ProviderID)
		}
	}
	if o.SliceID != nil {
		return c.checkSliceFits(*o.SliceID, o.DatasetID, o.IndicatorID)
	}
	return nil
}

func (c *Catalog) requireDimension(dimID id.Surrogate, field string, accept func(dimension.Variant) bool) error {
	d, ok := c.dimensions[dimID]
	if !ok {
		return apperror.NewUnknownReference("dimension", dimID).WithDetail("field", field)
	}
	if !accept(d.Variant()) {
		return apperror.NewValidation(field+" has the wrong dimension variant").
			WithDetail("field", field).
			WithDetail("id", dimID).
			WithDetail("variant", string(d.Variant()))
	}
	return nil
}

func (c *Catalog) checkSliceFits(sliceID, datasetID, indicatorID string) error {
	s, ok := c.slices[sliceID]
	if !ok {
		return apperror.NewUnknownReference("slice", sliceID)
	}
	if ds, _ := c.datasetSlices.Parent(sliceID); ds != datasetID || s.IndicatorID != indicatorID {
		return apperror.NewValidation("slice belongs to another dataset or indicator").
			WithDetail("slice", sliceID).
			WithDetail("dataset", datasetID).
			WithDetail("indicator", indicatorID)
	}
	return nil
}

func (c *Catalog) putObservation(o dataset.Observation) {
	datasetID, sliceID, regionID, providerID := o.DatasetID, o.SliceID, o.RegionID, o.ProviderID
	o.DatasetID, o.SliceID, o.RegionID, o.ProviderID = "", nil, nil, nil
	c.observations[o.ID] = o

	c.datasetObservations.Attach(datasetID, o.ID)
	if sliceID != nil {
		c.sliceObservations.Attach(*sliceID, o.ID)
	} else {
		c.sliceObservations.Detach(o.ID)
	}
	if regionID != nil {
		c.regionObservations.Attach(*regionID, o.ID)
	} else {
		c.regionObservations.Detach(o.ID)
	}
	if providerID != nil {
		c.providerObservations.Attach(*providerID, o.ID)
	} else {
		c.providerObservations.Detach(o.ID)
	}
}

// GetObservation returns an observation by id.
func (c *Catalog) GetObservation(obsID string) (dataset.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o, ok := c.observations[obsID]
	if !ok {
		return dataset.Observation{}, apperror.NewNotFound("observation", obsID)
	}
	return c.viewObservation(o), nil
}

// AttachObservation moves obsID into sliceID. The slice must belong to the
// observation's dataset and indicator.
func (c *Catalog) AttachObservation(ctx context.Context, sliceID, obsID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, ok := c.observations[obsID]
	if !ok {
		return apperror.NewUnknownReference("observation", obsID)
	}
	ds, _ := c.datasetObservations.Parent(obsID)
	if err := c.checkSliceFits(sliceID, ds, o.IndicatorID); err != nil {
		logRejected(ctx, "observation attach rejected", err, "id", obsID, "slice", sliceID)
		return err
	}
	prev, moved := c.sliceObservations.Attach(sliceID, obsID)
	logger.Debug(ctx, "observation attached", "id", obsID, "slice", sliceID, "moved_from", movedFrom(prev, moved))
	return nil
}

// AttachRegionObservation moves obsID to regionID.
func (c *Catalog) AttachRegionObservation(ctx context.Context, regionID id.Surrogate, obsID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.observations[obsID]; !ok {
		return apperror.NewUnknownReference("observation", obsID)
	}
	if err := c.requireDimension(regionID, "region", dimension.Variant.IsTerritory); err != nil {
		return err
	}
	prev, moved := c.regionObservations.Attach(regionID, obsID)
	logger.Debug(ctx, "observation attached to region", "id", obsID, "region", regionID, "moved_from", movedFrom(prev, moved))
	return nil
}

// AttachProviderObservation records sourceID as the provider of obsID.
func (c *Catalog) AttachProviderObservation(ctx context.Context, sourceID, obsID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.observations[obsID]; !ok {
		return apperror.NewUnknownReference("observation", obsID)
	}
	if _, ok := c.sources[sourceID]; !ok {
		return apperror.NewUnknownReference("data source", sourceID)
	}
	prev, moved := c.providerObservations.Attach(sourceID, obsID)
	logger.Debug(ctx, "observation attached to provider", "id", obsID, "datasource", sourceID, "moved_from", movedFrom(prev, moved))
	return nil
}

// SliceObservations returns the observations of sliceID in attachment order.
func (c *Catalog) SliceObservations(sliceID string) ([]dataset.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.slices[sliceID]; !ok {
		return nil, apperror.NewNotFound("slice", sliceID)
	}
	return c.observationViews(c.sliceObservations.Children(sliceID)), nil
}

// RegionObservations returns the observations of regionID in attachment order.
func (c *Catalog) RegionObservations(regionID id.Surrogate) ([]dataset.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.regionTree.Has(regionID) {
		return nil, apperror.NewNotFound("region", regionID)
	}
	return c.observationViews(c.regionObservations.Children(regionID)), nil
}

// DatasetObservations returns the observations of datasetID in attachment order.
func (c *Catalog) DatasetObservations(datasetID string) ([]dataset.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.datasets[datasetID]; !ok {
		return nil, apperror.NewNotFound("dataset", datasetID)
	}
	return c.observationViews(c.datasetObservations.Children(datasetID)), nil
}

// ProviderObservations returns the observations provided by sourceID.
func (c *Catalog) ProviderObservations(sourceID string) ([]dataset.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.sources[sourceID]; !ok {
		return nil, apperror.NewNotFound("data source", sourceID)
	}
	return c.observationViews(c.providerObservations.Children(sourceID)), nil
}

func (c *Catalog) observationViews(ids []string) []dataset.Observation {
	out := make([]dataset.Observation, 0, len(ids))
	for _, k := range ids {
		out = append(out, c.viewObservation(c.observations[k]))
	}
	return out
}

// ObservedQuantity returns the numeric value of obsID expressed in unitID,
// converting from the indicator's measurement unit.
func (c *Catalog) ObservedQuantity(obsID string, unitID id.Surrogate) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o, ok := c.observations[obsID]
	if !ok {
		return decimal.Zero, apperror.NewNotFound("observation", obsID)
	}
	target, ok := c.units[unitID]
	if !ok {
		return decimal.Zero, apperror.NewUnknownReference("measurement unit", unitID)
	}
	qty, err := c.values[o.ValueID].Decimal()
	if err != nil {
		return decimal.Zero, err
	}

	ind := c.indicators[o.IndicatorID]
	if ind.MeasurementUnitID == nil {
		return decimal.Zero, apperror.NewValidation("indicator has no measurement unit").
			WithDetail("indicator", ind.ID)
	}
	return c.units[*ind.MeasurementUnitID].ConvertTo(qty, target)
}
