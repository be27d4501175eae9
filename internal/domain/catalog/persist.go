package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appctx "landportal/internal/core/context"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/core/tx"
	"landportal/internal/domain"
	"landportal/internal/domain/dataset"
	"landportal/pkg/logger"
)

var tracer = otel.Tracer("landportal/catalog")

// translatable lists the overlay owners in persistence order.
var translatable = []entity.Kind{
	entity.KindOrganization,
	entity.KindDimension,
	entity.KindTopic,
	entity.KindIndicator,
}

// Persist writes the whole catalog to store inside one transaction, parents
// before children, and then applies the queued deletions. Hooks registered
// through Hooks run around every save and delete; a hook error aborts the
// transaction. Calls to Persist are serialized.
func (c *Catalog) Persist(ctx context.Context, store domain.Store, txm tx.Manager) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	ctx = appctx.StartOperation(ctx, "catalog.persist")
	ctx, span := tracer.Start(ctx, "catalog.Persist")
	defer span.End()

	c.mu.RLock()
	batch := c.snapshot()
	deletes := slices.Clone(c.pending)
	c.mu.RUnlock()

	// An entity deleted and then added again must survive.
	saved := make(map[entity.Ref]struct{}, len(batch))
	for _, e := range batch {
		saved[entity.RefOf(e)] = struct{}{}
	}

	span.SetAttributes(
		attribute.Int("catalog.saves", len(batch)),
		attribute.Int("catalog.deletes", len(deletes)),
	)

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, e := range batch {
			if err := c.save(ctx, store, e); err != nil {
				return err
			}
		}
		for _, e := range deletes {
			if _, ok := saved[entity.RefOf(e)]; ok {
				continue
			}
			if err := c.remove(ctx, store, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx, "catalog persist failed", "error", err)
		return err
	}

	c.mu.Lock()
	c.pending = slices.Clone(c.pending[len(deletes):])
	c.mu.Unlock()

	logger.Info(ctx, "catalog persisted", "saved", len(batch), "deleted", len(deletes))
	return nil
}

func (c *Catalog) save(ctx context.Context, store domain.Store, e entity.Entity) error {
	if err := c.hooks.Run(ctx, domain.BeforeSave, e); err != nil {
		return err
	}
	if err := store.Save(ctx, e); err != nil {
		return fmt.Errorf("save %s: %w", entity.RefOf(e), err)
	}
	return c.hooks.Run(ctx, domain.AfterSave, e)
}

func (c *Catalog) remove(ctx context.Context, store domain.Store, e entity.Entity) error {
	if err := c.hooks.Run(ctx, domain.BeforeDelete, e); err != nil {
		return err
	}
	if err := store.Delete(ctx, e); err != nil {
		return fmt.Errorf("delete %s: %w", entity.RefOf(e), err)
	}
	return c.hooks.Run(ctx, domain.AfterDelete, e)
}

// snapshot renders every entity in an order where each row only refers to
// rows written before it. Callers hold the read lock.
func (c *Catalog) snapshot() []entity.Entity {
	var out []entity.Entity

	for _, l := range c.langs.List() {
		out = append(out, l)
	}
	out = appendByKey(out, c.licenses, nil)
	out = appendByKey(out, c.units, nil)
	out = appendByKey(out, c.computations, nil)
	out = appendByKey(out, c.values, nil)
	out = appendByKey(out, c.groups, nil)
	out = appendByKey(out, c.topics, nil)

	orgDepth := func(k string) int {
		chain, _ := c.orgTree.Ancestors(k)
		return len(chain)
	}
	for _, k := range rootsFirst(c.organizations, orgDepth) {
		out = append(out, c.viewOrganization(c.organizations[k]))
	}
	out = appendByKey(out, c.sources, c.viewDataSource)
	out = appendByKey(out, c.datasets, c.viewDataset)

	dimDepth := func(k id.Surrogate) int {
		if !c.dimensions[k].Variant().IsTerritory() {
			return 0
		}
		chain, _ := c.regionTree.Ancestors(k)
		return len(chain)
	}
	for _, k := range rootsFirst(c.dimensions, dimDepth) {
		out = append(out, c.viewDimension(c.dimensions[k]))
	}

	indicatorDepth := func(k string) int {
		chain, _ := c.compounds.Containers(k)
		return len(chain)
	}
	for _, k := range rootsFirst(c.indicators, indicatorDepth) {
		out = append(out, c.viewIndicator(c.indicators[k]))
	}
	for _, r := range c.relationships.All() {
		out = append(out, r)
	}
	for _, p := range c.datasetIndicators.Pairs() {
		out = append(out, dataset.IndicatorLink{DatasetID: p.Left, IndicatorID: p.Right})
	}

	out = appendByKey(out, c.slices, c.viewSlice)
	out = appendByKey(out, c.observations, c.viewObservation)

	for _, owner := range translatable {
		for _, r := range c.translations[owner].All() {
			out = append(out, r)
		}
	}
	return out
}

func appendByKey[K cmp.Ordered, V entity.Entity](out []entity.Entity, m map[K]V, view func(V) V) []entity.Entity {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := m[k]
		if view != nil {
			v = view(v)
		}
		out = append(out, v)
	}
	return out
}

// rootsFirst orders the keys of m by hierarchy depth, then by key.
func rootsFirst[K cmp.Ordered, V any](m map[K]V, depthOf func(K) int) []K {
	depths := make(map[K]int, len(m))
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
		depths[k] = depthOf(k)
	}
	slices.SortFunc(keys, func(a, b K) int {
		if d := cmp.Compare(depths[a], depths[b]); d != 0 {
			return d
		}
		return cmp.Compare(a, b)
	})
	return keys
}
