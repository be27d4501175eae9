package catalog

import (
	"context"

	"landportal/internal/core/apperror"
	"landportal/internal/core/id"
	"landportal/internal/domain/dimension"
	"landportal/pkg/logger"
)

// AddDimension registers a time or region value and returns it with its
// surrogate id. A dimension that already carries an id replaces the stored
// one of the same variant. For regions, PartOfID must name a known region
// and must not close a cycle.
func (c *Catalog) AddDimension(ctx context.Context, d dimension.Dimension) (dimension.Dimension, error) {
	if err := dimension.Validate(d); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.dimensions[d.ID()]; ok {
		if old.Variant() != d.Variant() {
			return nil, apperror.NewValidation("dimension variant cannot change").
				WithDetail("id", d.ID()).
				WithDetail("variant", string(old.Variant()))
		}
		if old.CanonicalString() != d.CanonicalString() && c.dimensionInUse(d.ID()) {
			return nil, apperror.NewIntegrity("dimension", d.ID(), "dimension used by a slice cannot change its value")
		}
	}

	var parent *id.Surrogate
	if t, ok := dimension.AsTerritory(d); ok {
		parent = t.PartOfID()
		if err := c.checkRegionParent(d.ID(), parent); err != nil {
			logRejected(ctx, "region parent rejected", err, "id", d.ID())
			return nil, err
		}
	}

	dimID := c.seq.Assign(d.ID())
	c.putDimension(dimension.WithID(d, dimID), parent)
	logger.Debug(ctx, "dimension saved", "id", dimID, "variant", d.Variant(), "canonical", d.CanonicalString())
	return c.viewDimension(c.dimensions[dimID]), nil
}

func (c *Catalog) checkRegionParent(regionID id.Surrogate, parent *id.Surrogate) error {
	if parent == nil {
		return nil
	}
	p, ok := c.dimensions[*parent]
	if !ok || !p.Variant().IsTerritory() {
		return apperror.NewUnknownReference("region", *parent)
	}
	if regionID == 0 || !c.regionTree.Has(regionID) {
		if *parent == regionID {
			return apperror.NewCycle(c.regionTree.Relation(), regionID, *parent)
		}
		return nil
	}
	return c.regionTree.CheckParent(regionID, *parent)
}

func (c *Catalog) dimensionInUse(dimID id.Surrogate) bool {
	for _, s := range c.slices {
		if s.DimensionID == dimID {
			return true
		}
	}
	return false
}

func (c *Catalog) putDimension(d dimension.Dimension, parent *id.Surrogate) {
	t, ok := dimension.AsTerritory(d)
	if !ok {
		c.dimensions[d.ID()] = d
		return
	}
	c.dimensions[d.ID()] = t.WithPartOf(nil)
	c.regionTree.Add(d.ID())
	if parent == nil {
		c.regionTree.ClearParent(d.ID())
		return
	}
	// Checked by checkRegionParent.
	_ = c.regionTree.SetParent(d.ID(), *parent)
}

// GetDimension returns a dimension by surrogate id.
func (c *Catalog) GetDimension(dimID id.Surrogate) (dimension.Dimension, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.dimensions[dimID]
	if !ok {
		return nil, apperror.NewNotFound("dimension", dimID)
	}
	return c.viewDimension(d), nil
}

// SetRegionParent points regionID at parentID (nil clears it). Cycles fail
// with CYCLE_DETECTED and change nothing.
func (c *Catalog) SetRegionParent(ctx context.Context, regionID id.Surrogate, parentID *id.Surrogate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.regionTree.Has(regionID) {
		return apperror.NewUnknownReference("region", regionID)
	}
	if parentID == nil {
		c.regionTree.ClearParent(regionID)
		logger.Debug(ctx, "region parent cleared", "id", regionID)
		return nil
	}
	if err := c.regionTree.SetParent(regionID, *parentID); err != nil {
		logRejected(ctx, "region parent rejected", err, "id", regionID, "parent", *parentID)
		return err
	}
	logger.Debug(ctx, "region parent set", "id", regionID, "parent", *parentID)
	return nil
}

// RegionAncestors returns [region, parent, ..., root].
func (c *Catalog) RegionAncestors(regionID id.Surrogate) ([]dimension.Territory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chain, err := c.regionTree.Ancestors(regionID)
	if err != nil {
		return nil, err
	}
	out := make([]dimension.Territory, 0, len(chain))
	for _, k := range chain {
		t, _ := dimension.AsTerritory(c.viewDimension(c.dimensions[k]))
		out = append(out, t)
	}
	return out, nil
}

// SubRegions returns the direct parts of regionID.
func (c *Catalog) SubRegions(regionID id.Surrogate) ([]dimension.Territory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.regionTree.Has(regionID) {
		return nil, apperror.NewNotFound("region", regionID)
	}
	kids := c.regionTree.Children(regionID)
	out := make([]dimension.Territory, 0, len(kids))
	for _, k := range kids {
		t, _ := dimension.AsTerritory(c.viewDimension(c.dimensions[k]))
		out = append(out, t)
	}
	return out, nil
}
