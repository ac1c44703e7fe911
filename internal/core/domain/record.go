package domain

import (
	"fmt"
	"time"
)

// RecordState is the lifecycle state of a versioned record.
type RecordState string

const (
	// StateCurrent is the live version of an entity.
	StateCurrent RecordState = "current"

	// StateDelisted is a live version whose entity is no longer found remotely.
	StateDelisted RecordState = "delisted"

	// StateSuperseded is a historical version replaced by a newer snapshot.
	// Superseded is terminal.
	StateSuperseded RecordState = "superseded"
)

// VersionedRecord is one entry in an entity's permanent history: a snapshot
// plus lifecycle timestamps. Per key, at most one record is not superseded.
type VersionedRecord struct {
	// ID is the storage row identifier. Zero until persisted.
	ID int64

	Key         EntityKey
	Snapshot    Snapshot
	Fingerprint string

	// AddedAt is set when the version is first observed and never changes.
	AddedAt time.Time

	// UpdatedAt is the instant the value this version carries was observed.
	UpdatedAt time.Time

	// SupersededAt is set once a differing snapshot replaces this version.
	SupersededAt *time.Time

	// DelistedAt is set while the entity cannot be found remotely.
	DelistedAt *time.Time
}

// NewRecord builds the current record for a freshly observed snapshot.
func NewRecord(snap Snapshot, at time.Time) (*VersionedRecord, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidInput)
	}
	key := snap.Key()
	if err := key.Validate(); err != nil {
		return nil, err
	}
	fp, err := Fingerprint(snap)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	return &VersionedRecord{
		Key:         key,
		Snapshot:    snap,
		Fingerprint: fp,
		AddedAt:     at,
		UpdatedAt:   at,
	}, nil
}

// State derives the lifecycle state from the timestamps.
func (r *VersionedRecord) State() RecordState {
	switch {
	case r.SupersededAt != nil:
		return StateSuperseded
	case r.DelistedAt != nil:
		return StateDelisted
	default:
		return StateCurrent
	}
}

// IsCurrent reports whether the record is the live version of its key,
// delisted or not.
func (r *VersionedRecord) IsCurrent() bool {
	return r.SupersededAt == nil
}

// Matches reports whether the record holds the given fingerprint.
func (r *VersionedRecord) Matches(fingerprint string) bool {
	return r.Fingerprint == fingerprint
}

// Supersede closes the record at the given instant.
func (r *VersionedRecord) Supersede(at time.Time) error {
	if r.SupersededAt != nil {
		return fmt.Errorf("%w: %s already superseded", ErrInvalidTransition, r.Key)
	}
	if at.Before(r.UpdatedAt) {
		return fmt.Errorf("%w: %s superseded before its last update", ErrInvalidTransition, r.Key)
	}
	at = at.UTC()
	r.SupersededAt = &at
	return nil
}

// Delist marks the record as no longer found. It returns false when the
// record was already delisted.
func (r *VersionedRecord) Delist(at time.Time) (bool, error) {
	if r.SupersededAt != nil {
		return false, fmt.Errorf("%w: cannot delist superseded %s", ErrInvalidTransition, r.Key)
	}
	if r.DelistedAt != nil {
		return false, nil
	}
	at = at.UTC()
	r.DelistedAt = &at
	return true, nil
}

// Relist clears the delisting. It returns false when the record was not
// delisted.
func (r *VersionedRecord) Relist() (bool, error) {
	if r.SupersededAt != nil {
		return false, fmt.Errorf("%w: cannot relist superseded %s", ErrInvalidTransition, r.Key)
	}
	if r.DelistedAt == nil {
		return false, nil
	}
	r.DelistedAt = nil
	return true, nil
}
