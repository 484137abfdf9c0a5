package pg

import (
	"context"
	"database/sql"
	"encoding/json"

	"bazara.org/internal/audit"
)

// AuditLog narrows *Store to the append-only audit contract. There is no
// update or delete path on purpose; the table carries a trigger rejecting
// both.
type AuditLog struct{ s *Store }

func (s *Store) AuditLog() *AuditLog { return &AuditLog{s: s} }

func (a *AuditLog) Append(ctx context.Context, rec *audit.Record) error {
	return appendAudit(ctx, a.s.db, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendAudit(ctx context.Context, db execer, rec *audit.Record) error {
	var meta []byte
	if len(rec.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx, `
		insert into audit_log(id, occurred_at, actor_id, store_id, action, resource_type, resource_id, from_state, to_state, reason, metadata)
		values ($1, $2, $3, nullif($4,''), $5, $6, $7, nullif($8,''), nullif($9,''), nullif($10,''), $11)
	`, rec.ID, rec.OccurredAt, rec.ActorID, rec.StoreID, rec.Action, rec.ResourceType, rec.ResourceID,
		rec.FromState, rec.ToState, rec.Reason, meta)
	return mapError(err)
}

func (a *AuditLog) List(ctx context.Context, resourceType, resourceID string, limit int) ([]audit.Record, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := a.s.db.QueryContext(ctx, `
		select id, occurred_at, actor_id, coalesce(store_id,''), action, resource_type, resource_id,
		       coalesce(from_state,''), coalesce(to_state,''), coalesce(reason,''), metadata
		from audit_log
		where ($1 = '' or resource_type = $1) and ($2 = '' or resource_id = $2)
		order by occurred_at desc
		limit $3
	`, resourceType, resourceID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var rec audit.Record
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.OccurredAt, &rec.ActorID, &rec.StoreID, &rec.Action,
			&rec.ResourceType, &rec.ResourceID, &rec.FromState, &rec.ToState, &rec.Reason, &meta); err != nil {
			return nil, mapError(err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (a *AuditLog) ListByStore(ctx context.Context, storeID string, limit int) ([]audit.Record, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := a.s.db.QueryContext(ctx, `
		select id, occurred_at, actor_id, coalesce(store_id,''), action, resource_type, resource_id,
		       coalesce(from_state,''), coalesce(to_state,''), coalesce(reason,''), metadata
		from audit_log
		where store_id = $1
		order by occurred_at desc
		limit $2
	`, storeID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var rec audit.Record
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.OccurredAt, &rec.ActorID, &rec.StoreID, &rec.Action,
			&rec.ResourceType, &rec.ResourceID, &rec.FromState, &rec.ToState, &rec.Reason, &meta); err != nil {
			return nil, mapError(err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
