package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"landportal/internal/core/entity"
	"landportal/internal/domain"
)

// AuditAction represents the type of audited operation.
type AuditAction string

const (
	AuditActionDelete AuditAction = "delete"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one row of catalog_audit.
type AuditEntry struct {
	ID                uuid.UUID       `db:"id"`
	EntityKind        entity.Kind     `db:"entity_kind"`
	EntityKey         string          `db:"entity_key"`
	Action            AuditAction     `db:"action"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// DeleteAudit records the last column values of every deleted row, in the
// transaction that deletes it.
type DeleteAudit struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewDeleteAudit creates a delete audit writing through txManager.
func NewDeleteAudit(txManager *TxManager) (*DeleteAudit, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &DeleteAudit{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 4 * 1024,
	}, nil
}

// Register hooks the audit after every delete in hooks.
func (a *DeleteAudit) Register(hooks *domain.HookRegistry[entity.Entity]) {
	hooks.On(domain.AfterDelete, a.Record)
}

// Record writes an audit row for the deleted entity e.
func (a *DeleteAudit) Record(ctx context.Context, e entity.Entity) error {
	entry, err := a.entry(e)
	if err != nil {
		return err
	}

	sql, args, err := Builder().
		Insert("catalog_audit").
		SetMap(StructToMap(entry)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := a.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// entry builds the audit row for e, compressing large payloads.
func (a *DeleteAudit) entry(e entity.Entity) (AuditEntry, error) {
	t, err := tableFor(e.EntityKind())
	if err != nil {
		return AuditEntry{}, err
	}
	row, err := t.row(e)
	if err != nil {
		return AuditEntry{}, err
	}
	changes, err := json.Marshal(row)
	if err != nil {
		return AuditEntry{}, fmt.Errorf("marshal changes: %w", err)
	}

	entry := AuditEntry{
		ID:              uuid.New(),
		EntityKind:      e.EntityKind(),
		EntityKey:       e.Key(),
		Action:          AuditActionDelete,
		Changes:         changes,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if len(changes) > a.compressThreshold {
		entry.ChangesCompressed = a.encoder.EncodeAll(changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}
	return entry, nil
}

// History returns the audit rows of one entity, newest first.
func (a *DeleteAudit) History(ctx context.Context, kind entity.Kind, key string, limit int) ([]AuditEntry, error) {
	sql, args, err := Builder().
		Select(ExtractDBColumns[AuditEntry]()...).
		From("catalog_audit").
		Where("entity_kind = ? AND entity_key = ?", string(kind), key).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	var entries []AuditEntry
	if err := pgxscan.Select(ctx, a.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	for i := range entries {
		if err := a.inflate(&entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (a *DeleteAudit) inflate(e *AuditEntry) error {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return nil
	}
	decompressed, err := a.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	e.Changes = decompressed
	e.ChangesCompressed = nil
	return nil
}
