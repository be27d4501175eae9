package catalog

import (
	"context"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain/translation"
	"landportal/pkg/logger"
)

// AddLanguage registers or renames a language.
func (c *Catalog) AddLanguage(ctx context.Context, l translation.Language) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.langs.Add(ctx, l); err != nil {
		return err
	}
	logger.Debug(ctx, "language saved", "code", l.Code)
	return nil
}

// Languages returns the registered languages ordered by code.
func (c *Catalog) Languages() []translation.Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.langs.List()
}

// AddTranslation inserts or replaces the (lang, entity) row of owner.
// Calling it twice with the same language keeps one row with the second
// call's text. Region translations are keyed by the dimension id.
func (c *Catalog) AddTranslation(ctx context.Context, owner entity.Kind, entityID, lang string, f translation.Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ov, err := c.overlayFor(owner, entityID)
	if err != nil {
		return err
	}
	if err := ov.Upsert(entityID, lang, f); err != nil {
		logRejected(ctx, "translation rejected", err, "owner", owner, "id", entityID, "lang", lang)
		return err
	}
	logger.Debug(ctx, "translation saved", "owner", owner, "id", entityID, "lang", lang)
	return nil
}

// InsertTranslation is the strict variant of AddTranslation: an existing
// row for (lang, entity) fails with DUPLICATE_ENTRY.
func (c *Catalog) InsertTranslation(ctx context.Context, owner entity.Kind, entityID, lang string, f translation.Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ov, err := c.overlayFor(owner, entityID)
	if err != nil {
		return err
	}
	if err := ov.Insert(entityID, lang, f); err != nil {
		logRejected(ctx, "translation rejected", err, "owner", owner, "id", entityID, "lang", lang)
		return err
	}
	logger.Debug(ctx, "translation inserted", "owner", owner, "id", entityID, "lang", lang)
	return nil
}

// Localized returns the owner row for lang, else for fallback, else
// translation.ErrNoTranslation. An empty fallback uses the catalog default
// set by WithFallbackLanguage when that language is registered.
func (c *Catalog) Localized(owner entity.Kind, entityID, lang, fallback string) (translation.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ov, err := c.overlayFor(owner, entityID)
	if err != nil {
		return translation.Record{}, err
	}
	if fallback == "" {
		if _, ok := c.langs.Get(c.fallbackLang); ok {
			fallback = c.fallbackLang
		}
	}
	return ov.Localized(entityID, lang, fallback)
}

// Translations returns every row of entityID ordered by language.
func (c *Catalog) Translations(owner entity.Kind, entityID string) ([]translation.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ov, err := c.overlayFor(owner, entityID)
	if err != nil {
		return nil, err
	}
	return ov.Records(entityID), nil
}

// overlayFor returns the overlay of owner after checking that entityID
// names a stored entity of that kind.
func (c *Catalog) overlayFor(owner entity.Kind, entityID string) (*translation.Overlay, error) {
	ov, ok := c.translations[owner]
	if !ok {
		return nil, apperror.NewValidation("entity kind is not translatable").
			WithDetail("owner", string(owner))
	}

	var known bool
	switch owner {
	case entity.KindOrganization:
		_, known = c.organizations[entityID]
	case entity.KindIndicator:
		_, known = c.indicators[entityID]
	case entity.KindTopic:
		_, known = c.topics[entityID]
	case entity.KindDimension:
		if regionID, err := id.Parse(entityID); err == nil {
			d, ok := c.dimensions[regionID]
			known = ok && d.Variant().IsTerritory()
		}
	}
	if !known {
		return nil, apperror.NewUnknownReference(string(owner), entityID)
	}
	return ov, nil
}
