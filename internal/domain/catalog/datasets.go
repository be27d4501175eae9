package catalog

import (
	"context"

	"landportal/internal/core/apperror"
	"landportal/internal/core/id"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/indicator"
	"landportal/pkg/logger"
)

// --- licenses ---

// AddLicense inserts or replaces a license, assigning an id when l.ID is 0.
func (c *Catalog) AddLicense(ctx context.Context, l dataset.License) (dataset.License, error) {
	if err := l.Validate(ctx); err != nil {
		return dataset.License{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	l.ID = c.seq.Assign(l.ID)
	c.licenses[l.ID] = l
	logger.Debug(ctx, "license saved", "id", l.ID)
	return l, nil
}

// GetLicense returns a license by id.
func (c *Catalog) GetLicense(licenseID id.Surrogate) (dataset.License, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l, ok := c.licenses[licenseID]
	if !ok {
		return dataset.License{}, apperror.NewNotFound("license", licenseID)
	}
	return l, nil
}

// --- datasets ---

// AddDataset inserts or replaces a dataset. A non-empty DataSourceID
// attaches it to that data source; LicenseID must name a known license.
func (c *Catalog) AddDataset(ctx context.Context, d dataset.Dataset) (dataset.Dataset, error) {
	if err := d.Validate(ctx); err != nil {
		return dataset.Dataset{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if d.DataSourceID != "" {
		if _, ok := c.sources[d.DataSourceID]; !ok {
			return dataset.Dataset{}, apperror.NewUnknownReference("data source", d.DataSourceID)
		}
	}
	if d.LicenseID != nil {
		if _, ok := c.licenses[*d.LicenseID]; !ok {
			return dataset.Dataset{}, apperror.NewUnknownReference("license", *d.LicenseID)
		}
	}

	c.putDataset(d)
	logger.Debug(ctx, "dataset saved", "id", d.ID, "datasource", d.DataSourceID)
	return c.viewDataset(c.datasets[d.ID]), nil
}

func (c *Catalog) putDataset(d dataset.Dataset) {
	owner := d.DataSourceID
	d.DataSourceID = ""
	d.LicenseID = copySurrogate(d.LicenseID)
	c.datasets[d.ID] = d
	if owner == "" {
		c.sourceDatasets.Detach(d.ID)
		return
	}
	c.sourceDatasets.Attach(owner, d.ID)
}

// GetDataset returns a dataset by id.
func (c *Catalog) GetDataset(datasetID string) (dataset.Dataset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.datasets[datasetID]
	if !ok {
		return dataset.Dataset{}, apperror.NewNotFound("dataset", datasetID)
	}
	return c.viewDataset(d), nil
}

// AttachDataset makes sourceID the owner of datasetID, moving it from any
// previous source.
func (c *Catalog) AttachDataset(ctx context.Context, sourceID, datasetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sources[sourceID]; !ok {
		return apperror.NewUnknownReference("data source", sourceID)
	}
	if _, ok := c.datasets[datasetID]; !ok {
		return apperror.NewUnknownReference("dataset", datasetID)
	}
	prev, moved := c.sourceDatasets.Attach(sourceID, datasetID)
	logger.Debug(ctx, "dataset attached", "id", datasetID, "datasource", sourceID, "moved_from", movedFrom(prev, moved))
	return nil
}

// Datasets returns the datasets of sourceID in attachment order.
func (c *Catalog) Datasets(sourceID string) ([]dataset.Dataset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.sources[sourceID]; !ok {
		return nil, apperror.NewNotFound("data source", sourceID)
	}
	kids := c.sourceDatasets.Children(sourceID)
	out := make([]dataset.Dataset, 0, len(kids))
	for _, k := range kids {
		out = append(out, c.viewDataset(c.datasets[k]))
	}
	return out, nil
}

// --- dataset <-> indicator membership ---

// LinkIndicator adds (datasetID, indicatorID) to the membership set. It
// reports whether the pair was new; linking twice is a no-op.
func (c *Catalog) LinkIndicator(ctx context.Context, datasetID, indicatorID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireDatasetAndIndicator(datasetID, indicatorID); err != nil {
		return false, err
	}
	added := c.datasetIndicators.Link(datasetID, indicatorID)
	if added {
		logger.Debug(ctx, "indicator linked", "dataset", datasetID, "indicator", indicatorID)
	}
	return added, nil
}

// UnlinkIndicator removes (datasetID, indicatorID) from the membership set.
// An indicator still used by a slice of the dataset cannot be unlinked.
func (c *Catalog) UnlinkIndicator(ctx context.Context, datasetID, indicatorID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireDatasetAndIndicator(datasetID, indicatorID); err != nil {
		return false, err
	}
	for _, sid := range c.datasetSlices.Children(datasetID) {
		if c.slices[sid].IndicatorID == indicatorID {
			err := apperror.NewIntegrity("dataset", datasetID, "indicator is still used by a slice of the dataset").
				WithDetail("indicator", indicatorID).
				WithDetail("slice", sid)
			logRejected(ctx, "indicator unlink rejected", err)
			return false, err
		}
	}
	removed := c.datasetIndicators.Unlink(datasetID, indicatorID)
	if removed {
		c.enqueue(unlinked(datasetID, indicatorID))
		logger.Debug(ctx, "indicator unlinked", "dataset", datasetID, "indicator", indicatorID)
	}
	return removed, nil
}

func (c *Catalog) requireDatasetAndIndicator(datasetID, indicatorID string) error {
	if _, ok := c.datasets[datasetID]; !ok {
		return apperror.NewUnknownReference("dataset", datasetID)
	}
	if _, ok := c.indicators[indicatorID]; !ok {
		return apperror.NewUnknownReference("indicator", indicatorID)
	}
	return nil
}

// DatasetIndicators returns the indicators linked to datasetID, sorted by id.
func (c *Catalog) DatasetIndicators(datasetID string) ([]indicator.Indicator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.datasets[datasetID]; !ok {
		return nil, apperror.NewNotFound("dataset", datasetID)
	}
	return c.indicatorViews(c.datasetIndicators.Rights(datasetID)), nil
}

// IndicatorDatasets returns the datasets linked to indicatorID, sorted by id.
func (c *Catalog) IndicatorDatasets(indicatorID string) ([]dataset.Dataset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.indicators[indicatorID]; !ok {
		return nil, apperror.NewNotFound("indicator", indicatorID)
	}
	ids := c.datasetIndicators.Lefts(indicatorID)
	out := make([]dataset.Dataset, 0, len(ids))
	for _, k := range ids {
		out = append(out, c.viewDataset(c.datasets[k]))
	}
	return out, nil
}

// --- slices ---

// AddSlice inserts or replaces a slice. Dataset, indicator and dimension must
// exist, and a dataset holds at most one slice per (indicator, dimension
// canonical string). The indicator is linked to the dataset as a side effect.
func (c *Catalog) AddSlice(ctx context.Context, s dataset.Slice) (dataset.Slice, error) {
	if err := s.Validate(ctx); err != nil {
		return dataset.Slice{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.checkSlice(s)
	if err != nil {
		logRejected(ctx, "slice rejected", err, "id", s.ID)
		return dataset.Slice{}, err
	}
	if old, ok := c.slices[s.ID]; ok && c.sliceObservations.HasChildren(s.ID) {
		if oldDS, _ := c.datasetSlices.Parent(s.ID); oldDS != s.DatasetID || old.IndicatorID != s.IndicatorID {
			return dataset.Slice{}, apperror.NewIntegrity("slice", s.ID, "slice with observations cannot change dataset or indicator")
		}
	}

	c.putSlice(s, key)
	logger.Debug(ctx, "slice saved", "id", s.ID, "dataset", s.DatasetID, "indicator", s.IndicatorID, "dimension", key.canonical)
	return c.viewSlice(c.slices[s.ID]), nil
}

func (c *Catalog) checkSlice(s dataset.Slice) (sliceKey, error) {
	if err := c.requireDatasetAndIndicator(s.DatasetID, s.IndicatorID); err != nil {
		return sliceKey{}, err
	}
	dim, ok := c.dimensions[s.DimensionID]
	if !ok {
		return sliceKey{}, apperror.NewUnknownReference("dimension", s.DimensionID)
	}
	key := sliceKey{dataset: s.DatasetID, indicator: s.IndicatorID, canonical: dim.CanonicalString()}
	if other, taken := c.sliceKeys[key]; taken && other != s.ID {
		return sliceKey{}, apperror.NewDuplicate("slice", "dimension", key.canonical).
			WithDetail("dataset", s.DatasetID).
			WithDetail("indicator", s.IndicatorID).
			WithDetail("existing_id", other)
	}
	return key, nil
}

func (c *Catalog) putSlice(s dataset.Slice, key sliceKey) {
	if old, ok := c.slices[s.ID]; ok {
		delete(c.sliceKeys, c.sliceKeyOf(old))
	}
	s.DatasetID = ""
	c.slices[s.ID] = s
	c.sliceKeys[key] = s.ID
	c.datasetSlices.Attach(key.dataset, s.ID)
	c.datasetIndicators.Link(key.dataset, s.IndicatorID)
}

// sliceKeyOf rebuilds the uniqueness key of a stored slice.
func (c *Catalog) sliceKeyOf(s dataset.Slice) sliceKey {
	ds, _ := c.datasetSlices.Parent(s.ID)
	var canonical string
	if dim, ok := c.dimensions[s.DimensionID]; ok {
		canonical = dim.CanonicalString()
	}
	return sliceKey{dataset: ds, indicator: s.IndicatorID, canonical: canonical}
}

// AttachSlice moves sliceID into datasetID. Slices with observations cannot
// move; the uniqueness rule of AddSlice applies in the new dataset.
func (c *Catalog) AttachSlice(ctx context.Context, datasetID, sliceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slices[sliceID]
	if !ok {
		return apperror.NewUnknownReference("slice", sliceID)
	}
	if cur, _ := c.datasetSlices.Parent(sliceID); cur == datasetID {
		return nil
	}
	if c.sliceObservations.HasChildren(sliceID) {
		return apperror.NewIntegrity("slice", sliceID, "slice with observations cannot change dataset")
	}
	s.DatasetID = datasetID
	key, err := c.checkSlice(s)
	if err != nil {
		logRejected(ctx, "slice attach rejected", err, "id", sliceID, "dataset", datasetID)
		return err
	}
	c.putSlice(s, key)
	logger.Debug(ctx, "slice attached", "id", sliceID, "dataset", datasetID)
	return nil
}

// GetSlice returns a slice by id.
func (c *Catalog) GetSlice(sliceID string) (dataset.Slice, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.slices[sliceID]
	if !ok {
		return dataset.Slice{}, apperror.NewNotFound("slice", sliceID)
	}
	return c.viewSlice(s), nil
}

// Slices returns the slices of datasetID in attachment order.
func (c *Catalog) Slices(datasetID string) ([]dataset.Slice, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.datasets[datasetID]; !ok {
		return nil, apperror.NewNotFound("dataset", datasetID)
	}
	kids := c.datasetSlices.Children(datasetID)
	out := make([]dataset.Slice, 0, len(kids))
	for _, k := range kids {
		out = append(out, c.viewSlice(c.slices[k]))
	}
	return out, nil
}
