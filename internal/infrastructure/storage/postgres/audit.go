package postgres

import (
	"context"
	"fmt"

	"ledgercore/internal/domain/audit"
	"ledgercore/internal/infrastructure/storage/codec"
)

var _ audit.Recorder = (*AuditLog)(nil)

// AuditLog writes audit entries to sys_audit. The before/after snapshot is
// stored as JSON, or zstd-compressed when it is large.
type AuditLog struct {
	txManager *TxManager
	codec     *codec.Codec
}

// NewAuditLog creates an audit recorder.
func NewAuditLog(txManager *TxManager, c *codec.Codec) *AuditLog {
	return &AuditLog{txManager: txManager, codec: c}
}

// Record implements audit.Recorder.
func (a *AuditLog) Record(ctx context.Context, e audit.Entry) error {
	audit.Fill(ctx, &e)

	changes, err := a.codec.Encode(map[string]any{"before": e.Before, "after": e.After})
	if err != nil {
		return err
	}

	_, err = a.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, tenant_id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		e.ID, e.TenantID, e.EntityType, e.EntityID, e.Action, e.UserID,
		changes.JSON, changes.Compressed, changes.Algo, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
