package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/logger"
)

// Decision is the delta verdict for one fresh snapshot.
type Decision struct {
	Action DeltaAction

	// Relist is set when the current record is delisted and must be
	// cleared before the comparison takes effect.
	Relist bool
}

// DeltaAction says what to write for a snapshot.
type DeltaAction int

const (
	// ActionNew inserts the first version of a key.
	ActionNew DeltaAction = iota

	// ActionUnchanged leaves the current version in place.
	ActionUnchanged

	// ActionChanged supersedes the current version and inserts a new one.
	ActionChanged
)

// Change is one write made by the delta engine.
type Change struct {
	Key     domain.EntityKey
	Title   string
	Outcome domain.Outcome
}

// DeltaEngine compares fresh snapshots with stored history and writes the
// difference. It holds no state; every write goes through the given tx.
type DeltaEngine struct{}

// NewDeltaEngine creates a delta engine.
func NewDeltaEngine() *DeltaEngine {
	return &DeltaEngine{}
}

// Decide compares a snapshot with the current record of its key, which may
// be nil.
func (e *DeltaEngine) Decide(current *domain.VersionedRecord, snap domain.Snapshot) (Decision, error) {
	fp, err := domain.Fingerprint(snap)
	if err != nil {
		return Decision{}, err
	}
	if current == nil {
		return Decision{Action: ActionNew}, nil
	}
	d := Decision{Action: ActionChanged, Relist: current.DelistedAt != nil}
	if current.Matches(fp) {
		d.Action = ActionUnchanged
	}
	return d, nil
}

// ApplyScope writes the fresh snapshots of one unit of work. Keys of the
// scope that are current in storage but absent from snaps are delisted.
// Snapshots outside the scope are ignored.
//
//nolint:gocognit // One pass over the fresh keys, one over the stale ones.
func (e *DeltaEngine) ApplyScope(
	ctx context.Context,
	tx driven.RecordTx,
	scope domain.Scope,
	snaps []domain.Snapshot,
	now time.Time,
) ([]Change, error) {
	current, err := tx.ListCurrent(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list current %s: %w", scope, err)
	}
	stale := make(map[domain.EntityKey]*domain.VersionedRecord, len(current))
	for _, rec := range current {
		stale[rec.Key] = rec
	}

	var changes []Change
	seen := make(map[domain.EntityKey]struct{}, len(snaps))
	for _, snap := range snaps {
		key := snap.Key()
		if !scope.Contains(key) {
			logger.Warn("Ignoring %s outside scope %s", key, scope)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		rec := stale[key]
		delete(stale, key)

		decision, err := e.Decide(rec, snap)
		if err != nil {
			return nil, err
		}

		if decision.Relist {
			if _, err := rec.Relist(); err != nil {
				return nil, err
			}
			if err := tx.ClearDelisted(ctx, key); err != nil {
				return nil, fmt.Errorf("relist %s: %w", key, err)
			}
			changes = append(changes, Change{Key: key, Title: snap.Title(), Outcome: domain.OutcomeRelisted})
		}

		switch decision.Action {
		case ActionNew:
			if err := e.insert(ctx, tx, snap, now); err != nil {
				return nil, err
			}
			changes = append(changes, Change{Key: key, Title: snap.Title(), Outcome: domain.OutcomeAdded})
		case ActionChanged:
			if err := rec.Supersede(now); err != nil {
				return nil, err
			}
			if err := tx.Supersede(ctx, key, now); err != nil {
				return nil, fmt.Errorf("supersede %s: %w", key, err)
			}
			if err := e.insert(ctx, tx, snap, now); err != nil {
				return nil, err
			}
			changes = append(changes, Change{Key: key, Title: snap.Title(), Outcome: domain.OutcomeUpdated})
		case ActionUnchanged:
			if !decision.Relist {
				changes = append(changes, Change{Key: key, Title: snap.Title(), Outcome: domain.OutcomeUnchanged})
			}
		}
	}

	delisted, err := e.delist(ctx, tx, stale, now)
	if err != nil {
		return nil, err
	}
	return append(changes, delisted...), nil
}

// ApplyNotFound delists every current key of the scope. A scope with no
// stored history is a no-op.
func (e *DeltaEngine) ApplyNotFound(
	ctx context.Context,
	tx driven.RecordTx,
	scope domain.Scope,
	now time.Time,
) ([]Change, error) {
	current, err := tx.ListCurrent(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list current %s: %w", scope, err)
	}
	stale := make(map[domain.EntityKey]*domain.VersionedRecord, len(current))
	for _, rec := range current {
		stale[rec.Key] = rec
	}
	return e.delist(ctx, tx, stale, now)
}

func (e *DeltaEngine) insert(ctx context.Context, tx driven.RecordTx, snap domain.Snapshot, now time.Time) error {
	rec, err := domain.NewRecord(snap, now)
	if err != nil {
		return err
	}
	if err := tx.Insert(ctx, rec); err != nil {
		return fmt.Errorf("insert %s: %w", rec.Key, err)
	}
	return nil
}

// delist marks the given records delisted in key order.
func (e *DeltaEngine) delist(
	ctx context.Context,
	tx driven.RecordTx,
	recs map[domain.EntityKey]*domain.VersionedRecord,
	now time.Time,
) ([]Change, error) {
	keys := make([]domain.EntityKey, 0, len(recs))
	for k := range recs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b domain.EntityKey) int {
		return strings.Compare(a.String(), b.String())
	})

	var changes []Change
	for _, key := range keys {
		rec := recs[key]
		changed, err := rec.Delist(now)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		if err := tx.MarkDelisted(ctx, key, now); err != nil {
			return nil, fmt.Errorf("delist %s: %w", key, err)
		}
		changes = append(changes, Change{Key: key, Title: rec.Snapshot.Title(), Outcome: domain.OutcomeDelisted})
	}
	return changes, nil
}

// logChanges writes the change markers of a committed unit.
func logChanges(tag string, changes []Change) {
	for _, c := range changes {
		switch c.Outcome {
		case domain.OutcomeAdded:
			logger.Info("%s +++ Added %s: %s", tag, c.Key, c.Title)
		case domain.OutcomeUpdated:
			logger.Info("%s ~~~ Updated %s: %s", tag, c.Key, c.Title)
		case domain.OutcomeDelisted:
			logger.Info("%s --- Delisted %s: %s", tag, c.Key, c.Title)
		case domain.OutcomeRelisted:
			logger.Info("%s *** Relisted %s: %s", tag, c.Key, c.Title)
		default:
			logger.Debug("%s %s unchanged", tag, c.Key)
		}
	}
}
