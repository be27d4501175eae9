package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"landportal/internal/core/entity"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/translation"
)

func TestExtractDBColumns_EmbeddedFields(t *testing.T) {
	cols := ExtractDBColumns[translation.Record]()

	assert.Equal(t, []string{"owner_kind", "lang_code", "entity_id", "name", "description"}, cols)
}

func TestExtractDBColumns_SkipsUntagged(t *testing.T) {
	type row struct {
		ID      string `db:"id"`
		Ignored string `db:"-"`
		Plain   string
	}

	assert.Equal(t, []string{"id"}, ExtractDBColumns[row]())
}

func TestStructToMap_EmbeddedFields(t *testing.T) {
	rec := translation.Record{
		Owner:    entity.KindIndicator,
		Lang:     "fr",
		EntityID: "WB-1",
		Fields:   translation.Fields{Name: "Superficie", Description: "en ha"},
	}

	m := StructToMap(rec)

	assert.Equal(t, entity.KindIndicator, m["owner_kind"])
	assert.Equal(t, "fr", m["lang_code"])
	assert.Equal(t, "WB-1", m["entity_id"])
	assert.Equal(t, "Superficie", m["name"])
	assert.Equal(t, "en ha", m["description"])
}

func TestStructToMap_PointerAndNil(t *testing.T) {
	s := &dataset.Slice{ID: "S1", IndicatorID: "A", DimensionID: 4, DatasetID: "D"}

	m := StructToMap(s)
	assert.Equal(t, "S1", m["id"])
	assert.Len(t, m, 4)

	assert.Nil(t, StructToMap(42))
}
