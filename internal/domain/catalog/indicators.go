package catalog

import (
	"context"

	"landportal/internal/core/apperror"
	"landportal/internal/core/id"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/value"
	"landportal/pkg/logger"
)

// --- topics, groups, units ---

// AddTopic inserts or replaces a topic.
func (c *Catalog) AddTopic(ctx context.Context, t indicator.Topic) (indicator.Topic, error) {
	if err := t.Validate(ctx); err != nil {
		return indicator.Topic{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.topics[t.ID] = t
	logger.Debug(ctx, "topic saved", "id", t.ID)
	return t, nil
}

// GetTopic returns a topic by id.
func (c *Catalog) GetTopic(topicID string) (indicator.Topic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.topics[topicID]
	if !ok {
		return indicator.Topic{}, apperror.NewNotFound("topic", topicID)
	}
	return t, nil
}

// TopicIndicators returns the indicators classified under topicID.
func (c *Catalog) TopicIndicators(topicID string) ([]indicator.Indicator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.topics[topicID]; !ok {
		return nil, apperror.NewNotFound("topic", topicID)
	}
	return c.indicatorViews(c.topicIndicators.Children(topicID)), nil
}

// AddIndicatorGroup registers an indicator group, assigning an id when g.ID is 0.
func (c *Catalog) AddIndicatorGroup(ctx context.Context, g indicator.Group) (indicator.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g.ID = c.seq.Assign(g.ID)
	c.groups[g.ID] = g
	logger.Debug(ctx, "indicator group saved", "id", g.ID)
	return g, nil
}

// AddMeasurementUnit inserts or replaces a unit, assigning an id when u.ID is 0.
func (c *Catalog) AddMeasurementUnit(ctx context.Context, u value.MeasurementUnit) (value.MeasurementUnit, error) {
	if err := u.Validate(ctx); err != nil {
		return value.MeasurementUnit{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	u.ID = c.seq.Assign(u.ID)
	c.units[u.ID] = u
	logger.Debug(ctx, "measurement unit saved", "id", u.ID, "name", u.Name)
	return u, nil
}

// GetMeasurementUnit returns a unit by id.
func (c *Catalog) GetMeasurementUnit(unitID id.Surrogate) (value.MeasurementUnit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.units[unitID]
	if !ok {
		return value.MeasurementUnit{}, apperror.NewNotFound("measurement unit", unitID)
	}
	return u, nil
}

// --- indicators ---

// AddIndicator inserts or replaces an indicator. Unit, topic and group
// references must exist. A set CompoundID makes the indicator a member of
// that compound (detaching it from any other); nil detaches it.
func (c *Catalog) AddIndicator(ctx context.Context, ind indicator.Indicator) (indicator.Indicator, error) {
	if err := ind.Validate(ctx); err != nil {
		return indicator.Indicator{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIndicator(ind); err != nil {
		logRejected(ctx, "indicator rejected", err, "id", ind.ID)
		return indicator.Indicator{}, err
	}

	c.putIndicator(ind)
	logger.Debug(ctx, "indicator saved", "id", ind.ID, "type", ind.Variant)
	return c.viewIndicator(c.indicators[ind.ID]), nil
}

func (c *Catalog) checkIndicator(ind indicator.Indicator) error {
	if ind.MeasurementUnitID != nil {
		if _, ok := c.units[*ind.MeasurementUnitID]; !ok {
			return apperror.NewUnknownReference("measurement unit", *ind.MeasurementUnitID)
		}
	}
	if ind.TopicID != nil {
		if _, ok := c.topics[*ind.TopicID]; !ok {
			return apperror.NewUnknownReference("topic", *ind.TopicID)
		}
	}
	if ind.GroupID != nil {
		if _, ok := c.groups[*ind.GroupID]; !ok {
			return apperror.NewUnknownReference("indicator group", *ind.GroupID)
		}
	}

	old, exists := c.indicators[ind.ID]
	if exists && old.IsCompound() && !ind.IsCompound() && len(c.compounds.Members(ind.ID)) > 0 {
		return apperror.NewIntegrity("compound indicator", ind.ID, "compound indicator still has members")
	}

	if ind.CompoundID == nil {
		return nil
	}
	compoundID := *ind.CompoundID
	if compoundID == ind.ID {
		return apperror.NewCycle("compound_indicator.members", compoundID, ind.ID)
	}
	if !exists {
		if _, ok := c.indicators[compoundID]; !ok {
			return apperror.NewUnknownReference("indicator", compoundID)
		}
		if !c.compounds.IsCompound(compoundID) {
			return apperror.NewValidation("members can only be added to a compound indicator").
				WithDetail("id", compoundID)
		}
		return nil
	}
	return c.compounds.CheckMember(compoundID, ind.ID)
}

func (c *Catalog) putIndicator(ind indicator.Indicator) {
	compoundID, topicID := ind.CompoundID, ind.TopicID
	ind.CompoundID, ind.TopicID = nil, nil
	c.indicators[ind.ID] = ind

	// Checked by checkIndicator.
	_ = c.compounds.Register(ind.ID, ind.IsCompound())
	if compoundID != nil {
		_ = c.compounds.AddMember(*compoundID, ind.ID)
	} else {
		c.compounds.RemoveMember(ind.ID)
	}

	if topicID != nil {
		c.topicIndicators.Attach(*topicID, ind.ID)
	} else {
		c.topicIndicators.Detach(ind.ID)
	}
}

// GetIndicator returns an indicator by id.
func (c *Catalog) GetIndicator(indicatorID string) (indicator.Indicator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ind, ok := c.indicators[indicatorID]
	if !ok {
		return indicator.Indicator{}, apperror.NewNotFound("indicator", indicatorID)
	}
	return c.viewIndicator(ind), nil
}

// AddMember makes memberID a member of compoundID. A member that
// (transitively) aggregates compoundID fails with CYCLE_DETECTED and the
// membership set is unchanged.
func (c *Catalog) AddMember(ctx context.Context, compoundID, memberID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.compounds.AddMember(compoundID, memberID); err != nil {
		logRejected(ctx, "compound member rejected", err, "compound", compoundID, "member", memberID)
		return err
	}
	logger.Debug(ctx, "compound member added", "compound", compoundID, "member", memberID)
	return nil
}

// RemoveMember detaches memberID from its compound, if any.
func (c *Catalog) RemoveMember(ctx context.Context, memberID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.indicators[memberID]; !ok {
		return apperror.NewUnknownReference("indicator", memberID)
	}
	c.compounds.RemoveMember(memberID)
	logger.Debug(ctx, "compound member removed", "member", memberID)
	return nil
}

// Members returns the direct members of compoundID.
func (c *Catalog) Members(compoundID string) ([]indicator.Indicator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.indicators[compoundID]; !ok {
		return nil, apperror.NewNotFound("indicator", compoundID)
	}
	return c.indicatorViews(c.compounds.Members(compoundID)), nil
}

// TransitiveMembers returns every indicator aggregated by compoundID.
func (c *Catalog) TransitiveMembers(compoundID string) ([]indicator.Indicator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.indicators[compoundID]; !ok {
		return nil, apperror.NewNotFound("indicator", compoundID)
	}
	return c.indicatorViews(c.compounds.TransitiveMembers(compoundID)), nil
}

func (c *Catalog) indicatorViews(ids []string) []indicator.Indicator {
	out := make([]indicator.Indicator, 0, len(ids))
	for _, k := range ids {
		out = append(out, c.viewIndicator(c.indicators[k]))
	}
	return out
}

// --- relationships ---

// AddRelationship records a lineage edge between two known indicators,
// assigning an id when r.ID is 0. Self loops and repeated edges fail with
// DUPLICATE_ENTRY.
func (c *Catalog) AddRelationship(ctx context.Context, r indicator.Relationship) (indicator.Relationship, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, end := range []string{r.SourceID, r.TargetID} {
		if _, ok := c.indicators[end]; !ok && end != "" {
			return indicator.Relationship{}, apperror.NewUnknownReference("indicator", end)
		}
	}
	if err := c.relationships.Check(ctx, r); err != nil {
		logRejected(ctx, "indicator relationship rejected", err, "source", r.SourceID, "target", r.TargetID)
		return indicator.Relationship{}, err
	}

	r.ID = c.seq.Assign(r.ID)
	if err := c.relationships.Add(ctx, r); err != nil {
		return indicator.Relationship{}, err
	}
	logger.Debug(ctx, "indicator relationship saved", "id", r.ID, "type", r.Variant, "source", r.SourceID, "target", r.TargetID)
	return r, nil
}

// RelationshipsFrom returns the lineage edges leaving indicatorID.
func (c *Catalog) RelationshipsFrom(indicatorID string) []indicator.Relationship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.relationships.From(indicatorID)
}

// RelationshipsTo returns the lineage edges entering indicatorID.
func (c *Catalog) RelationshipsTo(indicatorID string) []indicator.Relationship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.relationships.To(indicatorID)
}
