package memory

import (
	"context"
	"fmt"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/idempotency"
	"ledgercore/internal/core/numerator"
	"ledgercore/internal/domain/audit"
	"ledgercore/internal/domain/events"
)

// --- Numerator ---

// Numerator implements numerator.Generator.
type Numerator struct{ s *Store }

// Numerator returns the sequence generator of s.
func (s *Store) Numerator() *Numerator { return &Numerator{s: s} }

func (n *Numerator) Next(ctx context.Context, tenantID id.ID, cfg numerator.Config, period time.Time) (string, error) {
	var num int64
	err := n.s.write(ctx, func() error {
		key := tenantID.String() + ":" + numerator.Key(cfg, period)
		n.s.sequences[key]++
		num = n.s.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return numerator.Format(cfg, period, num), nil
}

// --- Outbox ---

// Outbox implements events.Publisher.
type Outbox struct{ s *Store }

// Outbox returns the event publisher of s.
func (s *Store) Outbox() *Outbox { return &Outbox{s: s} }

func (o *Outbox) Publish(ctx context.Context, evs ...events.Event) error {
	if !o.s.inTx(ctx) {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	o.s.outbox = append(o.s.outbox, evs...)
	return nil
}

// --- Audit ---

// AuditLog implements audit.Recorder.
type AuditLog struct{ s *Store }

// Audit returns the audit recorder of s.
func (s *Store) Audit() *AuditLog { return &AuditLog{s: s} }

func (a *AuditLog) Record(ctx context.Context, e audit.Entry) error {
	audit.Fill(ctx, &e)
	return a.s.write(ctx, func() error {
		a.s.auditLog = append(a.s.auditLog, e)
		return nil
	})
}

// --- Idempotency ---

type idempotencyRecord struct {
	key       idempotency.Key
	status    idempotency.Status
	replay    idempotency.Replay
	updatedAt time.Time
	expiresAt time.Time
}

// IdempotencyStore implements idempotency.Store.
type IdempotencyStore struct {
	s   *Store
	ttl time.Duration
}

// Idempotency returns the idempotency store of s.
func (s *Store) Idempotency(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{s: s, ttl: ttl}
}

func recordKey(k idempotency.Key) string {
	return k.TenantID.String() + ":" + k.Key
}

func (st *IdempotencyStore) Acquire(ctx context.Context, k idempotency.Key) (*idempotency.Replay, error) {
	var replay *idempotency.Replay
	err := st.s.write(ctx, func() error {
		now := st.s.clock()
		rec, ok := st.s.idempotency[recordKey(k)]
		if !ok || now.After(rec.expiresAt) {
			st.s.idempotency[recordKey(k)] = &idempotencyRecord{
				key:       k,
				status:    idempotency.StatusPending,
				updatedAt: now,
				expiresAt: now.Add(st.ttl),
			}
			return nil
		}
		if rec.key.Operation != k.Operation || rec.key.RequestHash != k.RequestHash {
			return apperror.NewIdempotencyMismatch(k.Key)
		}
		if rec.status == idempotency.StatusCompleted {
			r := idempotency.NormalizeReplay(rec.replay)
			replay = &r
			return nil
		}
		if now.Sub(rec.updatedAt) > idempotency.StaleAfter {
			next := *rec
			next.updatedAt = now
			st.s.idempotency[recordKey(k)] = &next
			return nil
		}
		return apperror.NewIdempotencyConflict(k.Key)
	})
	return replay, err
}

func (st *IdempotencyStore) Complete(ctx context.Context, k idempotency.Key, r idempotency.Replay) error {
	return st.s.write(ctx, func() error {
		rec, ok := st.s.idempotency[recordKey(k)]
		if !ok {
			return apperror.NewNotFound("idempotency key", k.Key)
		}
		next := *rec
		next.status = idempotency.StatusCompleted
		next.replay = r
		next.updatedAt = st.s.clock()
		st.s.idempotency[recordKey(k)] = &next
		return nil
	})
}

func (st *IdempotencyStore) Release(ctx context.Context, k idempotency.Key) error {
	return st.s.write(ctx, func() error {
		delete(st.s.idempotency, recordKey(k))
		return nil
	})
}
