package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// recordTx implements driven.RecordTx on top of one transaction.
type recordTx struct {
	tx *sql.Tx
}

var _ driven.RecordTx = (*recordTx)(nil)

// GetCurrent returns the current record of a key.
func (s *recordStore) GetCurrent(ctx context.Context, key domain.EntityKey) (*domain.VersionedRecord, error) {
	return getCurrent(ctx, s.store.db, key)
}

// ListCurrent returns the current records inside a scope.
func (s *recordStore) ListCurrent(ctx context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error) {
	return listCurrent(ctx, s.store.db, scope)
}

// History returns every version inside a scope, grouped by key, oldest first.
func (s *recordStore) History(ctx context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error) {
	t, err := tableFor(scope.Kind)
	if err != nil {
		return nil, err
	}
	where, args := t.scopeWhere(scope)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		t.recordColumns(), t.name, where, t.keyOrder())
	return queryRecords(ctx, s.store.db, scope.Kind, query, args...)
}

// KnownIDs returns distinct product IDs of the kind, ascending.
func (s *recordStore) KnownIDs(ctx context.Context, kind domain.EntityKind, filter driven.IDFilter) ([]int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var query string
	switch filter.State {
	case driven.IDsListed:
		query = fmt.Sprintf(`SELECT DISTINCT product_id FROM %s
			WHERE %s IS NULL AND delisted IS NULL AND product_id > ?
			ORDER BY product_id`, t.name, t.superseded)
	case driven.IDsDelisted:
		query = fmt.Sprintf(`SELECT product_id FROM %s
			WHERE %s IS NULL AND product_id > ?
			GROUP BY product_id HAVING COUNT(*) = COUNT(delisted)
			ORDER BY product_id`, t.name, t.superseded)
	case driven.IDsAll:
		query = fmt.Sprintf(`SELECT DISTINCT product_id FROM %s
			WHERE %s IS NULL AND product_id > ?
			ORDER BY product_id`, t.name, t.superseded)
	default:
		return nil, fmt.Errorf("%w: id state %d", domain.ErrInvalidInput, filter.State)
	}

	rows, err := s.store.db.QueryContext(ctx, query, filter.After)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s ids: %w", domain.ErrPersistence, t.name, err)
	}
	defer rows.Close()

	var ids []int64 //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning %s id: %w", domain.ErrPersistence, t.name, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s ids: %w", domain.ErrPersistence, t.name, err)
	}
	return ids, nil
}

// CountChanges summarises the history written since a time. A version that
// replaced an older one counts as an update, not an addition.
func (s *recordStore) CountChanges(ctx context.Context, kind domain.EntityKind, since time.Time) (driven.ChangeCounts, error) {
	counts := driven.ChangeCounts{Kind: kind}
	t, err := tableFor(kind)
	if err != nil {
		return counts, err
	}
	cutoff := formatTime(since)

	query := fmt.Sprintf(`SELECT
			(SELECT COUNT(*) FROM %[1]s r WHERE r.added >= ?
				AND NOT EXISTS (SELECT 1 FROM %[1]s p WHERE p.id < r.id AND %[3]s)),
			(SELECT COUNT(*) FROM %[1]s WHERE %[2]s >= ?),
			(SELECT COUNT(*) FROM %[1]s WHERE %[2]s IS NULL AND delisted >= ?),
			(SELECT COUNT(*) FROM %[1]s WHERE %[2]s IS NULL)`,
		t.name, t.superseded, t.sameKey("p", "r"))

	row := s.store.db.QueryRowContext(ctx, query, cutoff, cutoff, cutoff)
	if err := row.Scan(&counts.Added, &counts.Updated, &counts.Delisted, &counts.Current); err != nil {
		return counts, fmt.Errorf("%w: counting %s changes: %w", domain.ErrPersistence, t.name, err)
	}
	return counts, nil
}

// Atomic runs fn in one transaction.
func (s *recordStore) Atomic(ctx context.Context, fn func(tx driven.RecordTx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, err)
	}

	if err := fn(&recordTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("%w: rollback: %w", domain.ErrPersistence, rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrPersistence, err)
	}
	return nil
}

// GetCurrent returns the current record of a key.
func (r *recordTx) GetCurrent(ctx context.Context, key domain.EntityKey) (*domain.VersionedRecord, error) {
	return getCurrent(ctx, r.tx, key)
}

// ListCurrent returns the current records inside a scope.
func (r *recordTx) ListCurrent(ctx context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error) {
	return listCurrent(ctx, r.tx, scope)
}

// Insert stores a new current record and sets its ID.
func (r *recordTx) Insert(ctx context.Context, rec *domain.VersionedRecord) error {
	if rec == nil || rec.Snapshot == nil {
		return domain.ErrInvalidInput
	}
	if rec.SupersededAt != nil {
		return fmt.Errorf("%w: inserting superseded %s", domain.ErrInvalidInput, rec.Key)
	}
	t, err := tableFor(rec.Key.Kind)
	if err != nil {
		return err
	}
	payload, err := domain.EncodeSnapshot(rec.Snapshot)
	if err != nil {
		return err
	}

	args := append([]any{rec.Key.ProductID}, keyParts(rec.Key)...)
	args = append(args, t.values(rec.Snapshot)...)
	args = append(args, rec.Fingerprint, string(payload),
		formatTime(rec.AddedAt), formatTime(rec.UpdatedAt), formatNullableTime(rec.DelistedAt))

	res, err := r.tx.ExecContext(ctx, t.insertStatement(), args...)
	if err != nil {
		return fmt.Errorf("%w: inserting %s: %w", domain.ErrPersistence, rec.Key, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// Supersede closes the current record of a key.
func (r *recordTx) Supersede(ctx context.Context, key domain.EntityKey, at time.Time) error {
	t, err := tableFor(key.Kind)
	if err != nil {
		return err
	}
	where, args := t.keyWhere(key)
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s AND %s IS NULL", t.name, t.superseded, where, t.superseded)
	return r.updateCurrent(ctx, key, "superseding", query, append([]any{formatTime(at)}, args...))
}

// MarkDelisted sets the delisted timestamp on the current record of a key.
func (r *recordTx) MarkDelisted(ctx context.Context, key domain.EntityKey, at time.Time) error {
	t, err := tableFor(key.Kind)
	if err != nil {
		return err
	}
	where, args := t.keyWhere(key)
	query := fmt.Sprintf("UPDATE %s SET delisted = ? WHERE %s AND %s IS NULL", t.name, where, t.superseded)
	return r.updateCurrent(ctx, key, "delisting", query, append([]any{formatTime(at)}, args...))
}

// ClearDelisted clears the delisted timestamp on the current record of a key.
func (r *recordTx) ClearDelisted(ctx context.Context, key domain.EntityKey) error {
	t, err := tableFor(key.Kind)
	if err != nil {
		return err
	}
	where, args := t.keyWhere(key)
	query := fmt.Sprintf("UPDATE %s SET delisted = NULL WHERE %s AND %s IS NULL", t.name, where, t.superseded)
	return r.updateCurrent(ctx, key, "relisting", query, args)
}

func (r *recordTx) updateCurrent(ctx context.Context, key domain.EntityKey, op, query string, args []any) error {
	res, err := r.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrPersistence, op, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrPersistence, op, key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, key, domain.ErrNotFound)
	}
	return nil
}

// ==================== Helper Functions ====================

func getCurrent(ctx context.Context, q querier, key domain.EntityKey) (*domain.VersionedRecord, error) {
	t, err := tableFor(key.Kind)
	if err != nil {
		return nil, err
	}
	where, args := t.keyWhere(key)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s AND %s IS NULL",
		t.recordColumns(), t.name, where, t.superseded)

	recs, err := queryRecords(ctx, q, key.Kind, query, args...)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, domain.ErrNotFound
	}
	return recs[0], nil
}

func listCurrent(ctx context.Context, q querier, scope domain.Scope) ([]*domain.VersionedRecord, error) {
	t, err := tableFor(scope.Kind)
	if err != nil {
		return nil, err
	}
	where, args := t.scopeWhere(scope)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s AND %s IS NULL ORDER BY %s",
		t.recordColumns(), t.name, where, t.superseded, t.keyOrder())
	return queryRecords(ctx, q, scope.Kind, query, args...)
}

func queryRecords(ctx context.Context, q querier, kind domain.EntityKind, query string, args ...any) ([]*domain.VersionedRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s records: %w", domain.ErrPersistence, kind, err)
	}
	defer rows.Close()

	var recs []*domain.VersionedRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRecord(rows, kind)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s records: %w", domain.ErrPersistence, kind, err)
	}
	return recs, nil
}

// scanRecord scans a versioned record from *sql.Rows.
func scanRecord(rows *sql.Rows, kind domain.EntityKind) (*domain.VersionedRecord, error) {
	var rec domain.VersionedRecord
	var payload, added, updated string
	var superseded, delisted sql.NullString

	if err := rows.Scan(&rec.ID, &rec.Fingerprint, &payload, &added, &updated, &superseded, &delisted); err != nil {
		return nil, fmt.Errorf("%w: scanning %s record: %w", domain.ErrPersistence, kind, err)
	}

	snap, err := domain.DecodeSnapshot(kind, []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	rec.Snapshot = snap
	rec.Key = snap.Key()

	if rec.AddedAt, err = parseTime(added); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if rec.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if rec.SupersededAt, err = parseNullableTime(superseded); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if rec.DelistedAt, err = parseNullableTime(delisted); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return &rec, nil
}
