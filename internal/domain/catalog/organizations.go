package catalog

import (
	"context"

	"landportal/internal/core/apperror"
	"landportal/internal/domain/organization"
	"landportal/pkg/logger"
)

// AddOrganization inserts or replaces an organization. PartOfID, when set,
// must name a known organization and must not close a cycle; nil makes the
// organization a root.
func (c *Catalog) AddOrganization(ctx context.Context, o organization.Organization) (organization.Organization, error) {
	if err := o.Validate(ctx); err != nil {
		return organization.Organization{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOrganizationParent(o.ID, o.PartOfID); err != nil {
		logRejected(ctx, "organization parent rejected", err, "id", o.ID)
		return organization.Organization{}, err
	}

	c.putOrganization(o)
	logger.Debug(ctx, "organization saved", "id", o.ID)
	return c.viewOrganization(c.organizations[o.ID]), nil
}

func (c *Catalog) checkOrganizationParent(orgID string, parent *string) error {
	if parent == nil {
		return nil
	}
	if _, ok := c.organizations[*parent]; !ok {
		return apperror.NewUnknownReference("organization", *parent)
	}
	if !c.orgTree.Has(orgID) {
		if *parent == orgID {
			return apperror.NewCycle(c.orgTree.Relation(), orgID, *parent)
		}
		return nil
	}
	return c.orgTree.CheckParent(orgID, *parent)
}

// putOrganization applies a checked upsert.
func (c *Catalog) putOrganization(o organization.Organization) {
	parent := o.PartOfID
	o.PartOfID = nil
	c.organizations[o.ID] = o
	c.orgTree.Add(o.ID)
	if parent == nil {
		c.orgTree.ClearParent(o.ID)
		return
	}
	// Checked by checkOrganizationParent.
	_ = c.orgTree.SetParent(o.ID, *parent)
}

// GetOrganization returns an organization by id.
func (c *Catalog) GetOrganization(orgID string) (organization.Organization, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o, ok := c.organizations[orgID]
	if !ok {
		return organization.Organization{}, apperror.NewNotFound("organization", orgID)
	}
	return c.viewOrganization(o), nil
}

// SetOrganizationParent points orgID at parentID (nil clears it). Self
// references and parents whose chain contains orgID fail with
// CYCLE_DETECTED and change nothing.
func (c *Catalog) SetOrganizationParent(ctx context.Context, orgID string, parentID *string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.organizations[orgID]; !ok {
		return apperror.NewUnknownReference("organization", orgID)
	}
	if parentID == nil {
		c.orgTree.ClearParent(orgID)
		logger.Debug(ctx, "organization parent cleared", "id", orgID)
		return nil
	}
	if err := c.orgTree.SetParent(orgID, *parentID); err != nil {
		logRejected(ctx, "organization parent rejected", err, "id", orgID, "parent", *parentID)
		return err
	}
	logger.Debug(ctx, "organization parent set", "id", orgID, "parent", *parentID)
	return nil
}

// OrganizationAncestors returns [org, parent, ..., root].
func (c *Catalog) OrganizationAncestors(orgID string) ([]organization.Organization, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chain, err := c.orgTree.Ancestors(orgID)
	if err != nil {
		return nil, err
	}
	out := make([]organization.Organization, 0, len(chain))
	for _, k := range chain {
		out = append(out, c.viewOrganization(c.organizations[k]))
	}
	return out, nil
}

// SubOrganizations returns the direct parts of orgID.
func (c *Catalog) SubOrganizations(orgID string) ([]organization.Organization, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.organizations[orgID]; !ok {
		return nil, apperror.NewNotFound("organization", orgID)
	}
	kids := c.orgTree.Children(orgID)
	out := make([]organization.Organization, 0, len(kids))
	for _, k := range kids {
		out = append(out, c.viewOrganization(c.organizations[k]))
	}
	return out, nil
}

// --- data sources ---

// AddDataSource inserts or replaces a data source. A non-empty
// OrganizationID attaches it to that organization.
func (c *Catalog) AddDataSource(ctx context.Context, d organization.DataSource) (organization.DataSource, error) {
	if err := d.Validate(ctx); err != nil {
		return organization.DataSource{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if d.OrganizationID != "" {
		if _, ok := c.organizations[d.OrganizationID]; !ok {
			return organization.DataSource{}, apperror.NewUnknownReference("organization", d.OrganizationID)
		}
	}
	c.putDataSource(d)
	logger.Debug(ctx, "data source saved", "id", d.ID, "organization", d.OrganizationID)
	return c.viewDataSource(c.sources[d.ID]), nil
}

func (c *Catalog) putDataSource(d organization.DataSource) {
	owner := d.OrganizationID
	d.OrganizationID = ""
	c.sources[d.ID] = d
	if owner == "" {
		c.orgSources.Detach(d.ID)
		return
	}
	c.orgSources.Attach(owner, d.ID)
}

// AttachDataSource makes orgID the owner of sourceID, moving it from any
// previous owner.
func (c *Catalog) AttachDataSource(ctx context.Context, orgID, sourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.organizations[orgID]; !ok {
		return apperror.NewUnknownReference("organization", orgID)
	}
	if _, ok := c.sources[sourceID]; !ok {
		return apperror.NewUnknownReference("data source", sourceID)
	}
	prev, moved := c.orgSources.Attach(orgID, sourceID)
	logger.Debug(ctx, "data source attached", "id", sourceID, "organization", orgID, "moved_from", movedFrom(prev, moved))
	return nil
}

// GetDataSource returns a data source by id.
func (c *Catalog) GetDataSource(sourceID string) (organization.DataSource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.sources[sourceID]
	if !ok {
		return organization.DataSource{}, apperror.NewNotFound("data source", sourceID)
	}
	return c.viewDataSource(d), nil
}

// DataSources returns the data sources of orgID in attachment order.
func (c *Catalog) DataSources(orgID string) ([]organization.DataSource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.organizations[orgID]; !ok {
		return nil, apperror.NewNotFound("organization", orgID)
	}
	kids := c.orgSources.Children(orgID)
	out := make([]organization.DataSource, 0, len(kids))
	for _, k := range kids {
		out = append(out, c.viewDataSource(c.sources[k]))
	}
	return out, nil
}
